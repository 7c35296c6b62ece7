// Package httpprovider resolves templates through the template service's HTTP
// API:
//
//	GET {base}by-id/{id}
//	GET {base}by-name/{system_name}
//	GET {base}
//
// A 404 maps to provider.ErrTemplateNotFound. Transport failures, other
// non-2xx statuses, and undecodable or structurally invalid templates map to
// provider.ErrProviderUnavailable. Unavailability is retried with a linear
// backoff; not-found is not.
package httpprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-sheets/pkg/provider"
	"github.com/goliatone/go-sheets/pkg/template"
)

const (
	defaultTimeout = 5 * time.Second
	defaultBackoff = 200 * time.Millisecond
	maxBodyBytes   = 4 << 20
)

// Options configures a Provider.
type Options struct {
	// BaseURL is the template service root, e.g. http://templates:8000/api/templates/.
	// A trailing slash is added when missing.
	BaseURL string
	// Client defaults to a client with Timeout applied.
	Client *http.Client
	// Timeout bounds each attempt. Zero uses 5s.
	Timeout time.Duration
	// Retries is the number of extra attempts after an unavailable response.
	Retries int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	Logger  *slog.Logger
}

// Provider implements provider.Provider over HTTP.
type Provider struct {
	base    string
	client  *http.Client
	timeout time.Duration
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New validates options and returns a Provider.
func New(opts Options) (*Provider, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("httpprovider: base url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("httpprovider: invalid base url %q", base)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Provider{
		base:    base,
		client:  client,
		timeout: timeout,
		retries: max(opts.Retries, 0),
		backoff: backoff,
		logger:  logger,
	}, nil
}

// BaseURL returns the normalized template service root.
func (p *Provider) BaseURL() string { return p.base }

func (p *Provider) Resolve(ctx context.Context, ref template.Ref) (template.Template, error) {
	var target string
	switch {
	case ref.ID != "":
		target = p.base + "by-id/" + url.PathEscape(ref.ID)
	case ref.SystemName != "":
		target = p.base + "by-name/" + url.PathEscape(ref.SystemName)
	default:
		return template.Template{}, provider.ErrMissingIdentifier
	}

	body, err := p.fetch(ctx, target)
	if err != nil {
		if errors.Is(err, provider.ErrTemplateNotFound) {
			return template.Template{}, fmt.Errorf("%w: %s", provider.ErrTemplateNotFound, ref)
		}
		return template.Template{}, err
	}

	tpl, err := template.Decode(body)
	if err != nil {
		return template.Template{}, fmt.Errorf("%w: %s: %w", provider.ErrProviderUnavailable, ref, err)
	}
	return tpl, nil
}

func (p *Provider) List(ctx context.Context) ([]template.Template, error) {
	body, err := p.fetch(ctx, p.base)
	if err != nil {
		return nil, err
	}
	var out []template.Template
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode listing: %w", provider.ErrProviderUnavailable, err)
	}
	if out == nil {
		out = []template.Template{}
	}
	return out, nil
}

func (p *Provider) fetch(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * p.backoff
			p.logger.Warn("template service retry",
				"url", target,
				"attempt", attempt,
				"wait", wait,
				"error", lastErr,
			)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, ctx.Err())
			case <-timer.C:
			}
		}

		body, err := p.get(ctx, target)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, provider.ErrTemplateNotFound) {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (p *Provider) get(ctx context.Context, target string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, provider.ErrTemplateNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %s", provider.ErrProviderUnavailable, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", provider.ErrProviderUnavailable, err)
	}
	return data, nil
}
