package sheetsapi

import (
	"log/slog"
	"net/http"

	"github.com/goliatone/go-sheets/pkg/render"
	"github.com/goliatone/go-sheets/pkg/service"
)

const (
	defaultRoutePath    = "/api/sheets"
	defaultHealthPath   = "/health"
	defaultServiceName  = "sheets"
	defaultMaxBodyBytes = 1 << 20
	defaultSearchLimit  = 20
	defaultMaxLimit     = 100
)

// GuardFunc may reject a request before it reaches a route. Returning a
// StatusError selects the response code; other errors yield 403.
type GuardFunc func(r *http.Request) error

type Options struct {
	RoutePath          string
	HealthPath         string
	ServiceName        string
	TemplateServiceURL string
	MaxBodyBytes       int64
	Guard              GuardFunc

	// Template search parameters.
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode

	Service  *service.Service
	Renderer *render.Renderer
	Logger   *slog.Logger
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:    defaultRoutePath,
		HealthPath:   defaultHealthPath,
		ServiceName:  defaultServiceName,
		MaxBodyBytes: defaultMaxBodyBytes,

		SearchParam:     "q",
		LimitParam:      "limit",
		DefaultLimit:    defaultSearchLimit,
		MaxLimit:        defaultMaxLimit,
		EmptySearchMode: EmptySearchTop,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.RoutePath == "" {
		opts.RoutePath = defaultRoutePath
	}
	if opts.HealthPath == "" {
		opts.HealthPath = defaultHealthPath
	}
	if opts.ServiceName == "" {
		opts.ServiceName = defaultServiceName
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.SearchParam == "" {
		opts.SearchParam = "q"
	}
	if opts.LimitParam == "" {
		opts.LimitParam = "limit"
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaultSearchLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = defaultMaxLimit
	}
	if opts.EmptySearchMode == "" {
		opts.EmptySearchMode = EmptySearchTop
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithHealthPath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.HealthPath = path
	}
}

// WithTemplateServiceURL is reported by the health route.
func WithTemplateServiceURL(url string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.TemplateServiceURL = url
	}
}

func WithMaxBodyBytes(limit int64) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MaxBodyBytes = limit
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

func WithService(svc *service.Service) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Service = svc
	}
}

// WithRenderer replaces the default HTML renderer.
func WithRenderer(r *render.Renderer) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Renderer = r
	}
}

func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = logger
	}
}

// WithServiceName is reported by the health route.
func WithServiceName(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.ServiceName = name
	}
}

func WithSearchParam(param string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SearchParam = param
	}
}

func WithLimitParam(param string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.LimitParam = param
	}
}

func WithDefaultLimit(limit int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.DefaultLimit = limit
	}
}

func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MaxLimit = limit
	}
}

// WithEmptySearchMode controls whether an empty query lists the first
// templates (EmptySearchTop) or nothing (EmptySearchNone).
func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.EmptySearchMode = mode
	}
}
