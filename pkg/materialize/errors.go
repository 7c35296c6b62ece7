package materialize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-sheets/pkg/value"
)

var (
	// ErrMissingRequiredField reports a required template field with no user value.
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrTypeMismatch reports a value whose type disagrees with the template.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrInvalidOption reports a value outside the declared option set.
	ErrInvalidOption = errors.New("invalid option")
	// ErrDepthExceeded reports a template nested deeper than the configured limit.
	ErrDepthExceeded = errors.New("maximum depth exceeded")
)

// FieldError pinpoints the field that stopped materialization. It unwraps to
// one of the Err* sentinels above.
type FieldError struct {
	Err      error
	Path     string
	Expected string
	Allowed  []value.Value
	Limit    int
}

func (e *FieldError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingRequiredField):
		return "materialize: missing required field: " + e.Path
	case errors.Is(e.Err, ErrTypeMismatch):
		return fmt.Sprintf("materialize: field %s must be %s", e.Path, withArticle(e.Expected))
	case errors.Is(e.Err, ErrInvalidOption):
		return fmt.Sprintf("materialize: invalid value for %s, options: %s", e.Path, FormatOptions(e.Allowed))
	case errors.Is(e.Err, ErrDepthExceeded):
		return fmt.Sprintf("materialize: field %s exceeds maximum nesting depth %d", e.Path, e.Limit)
	default:
		return fmt.Sprintf("materialize: field %s: %v", e.Path, e.Err)
	}
}

func (e *FieldError) Unwrap() error { return e.Err }

// Code returns a stable snake_case identifier for API responses.
func (e *FieldError) Code() string {
	switch {
	case errors.Is(e.Err, ErrMissingRequiredField):
		return "missing_required_field"
	case errors.Is(e.Err, ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(e.Err, ErrInvalidOption):
		return "invalid_option"
	case errors.Is(e.Err, ErrDepthExceeded):
		return "depth_exceeded"
	default:
		return "invalid_field"
	}
}

// AsFieldError extracts a *FieldError from err.
func AsFieldError(err error) (*FieldError, bool) {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) && fieldErr != nil {
		return fieldErr, true
	}
	return nil, false
}

// FormatOptions renders an option set as a JSON array, e.g. ["a","b"].
func FormatOptions(options []value.Value) string {
	if options == nil {
		options = []value.Value{}
	}
	data, err := json.Marshal(options)
	if err != nil {
		parts := make([]string, 0, len(options))
		for _, option := range options {
			parts = append(parts, option.Display())
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return string(data)
}

func missingField(path string) error {
	return &FieldError{Err: ErrMissingRequiredField, Path: path}
}

func typeMismatch(path, expected string) error {
	return &FieldError{Err: ErrTypeMismatch, Path: path, Expected: expected}
}

func invalidOption(path string, allowed []value.Value) error {
	return &FieldError{Err: ErrInvalidOption, Path: path, Allowed: append([]value.Value(nil), allowed...)}
}

func depthExceeded(path string, limit int) error {
	return &FieldError{Err: ErrDepthExceeded, Path: path, Limit: limit}
}

func withArticle(noun string) string {
	if noun == "" {
		return "a value"
	}
	switch noun[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an " + noun
	}
	return "a " + noun
}
