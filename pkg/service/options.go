package service

import (
	"log/slog"

	"github.com/goliatone/go-sheets/pkg/materialize"
	"github.com/goliatone/go-sheets/pkg/provider"
	"github.com/goliatone/go-sheets/pkg/store"
)

// Sanitizer rewrites user-supplied strings before they are stored.
// *bluemonday.Policy satisfies it.
type Sanitizer interface {
	Sanitize(string) string
}

// Option customises the service configuration.
type Option func(*Service)

// WithProvider sets the template provider. Required.
func WithProvider(p provider.Provider) Option {
	return func(s *Service) {
		s.provider = p
	}
}

// WithStore sets the sheet store. Defaults to an in-memory store.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithMaterializer overrides the materializer, e.g. to change the depth limit
// or identifier source.
func WithMaterializer(m *materialize.Materializer) Option {
	return func(s *Service) {
		if m != nil {
			s.materializer = m
		}
	}
}

// WithSanitizer enables stripping markup from free-text string leaves after
// validation. The result is stored as plain text with entities decoded. Leaves
// that declare options are left alone, so a validated choice stays a member of
// its option set.
func WithSanitizer(sanitizer Sanitizer) Option {
	return func(s *Service) {
		s.sanitizer = sanitizer
	}
}

// WithRevalidateUpdates controls whether Update re-materializes replacement
// fields against the sheet's template. Enabled by default.
func WithRevalidateUpdates(enabled bool) Option {
	return func(s *Service) {
		s.revalidate = enabled
	}
}

// WithLogger sets the structured logger. Nil discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
