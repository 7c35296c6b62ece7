package sheetsapi

import (
	"net/http"
	"sync"

	"github.com/goliatone/go-sheets/pkg/service"
)

// Component binds a sheet service to the API. It owns the service's store:
// Close releases it once the server stops.
type Component struct {
	svc  *service.Service
	opts Options

	once    sync.Once
	handler http.Handler
}

// New builds a component serving svc. A nil svc yields a component whose
// sheet routes answer 503.
func New(svc *service.Service, fns ...OptionFn) *Component {
	opts := NewOptions(append(fns, WithService(svc))...)
	return &Component{svc: svc, opts: opts}
}

// Service returns the bound sheet service.
func (c *Component) Service() *service.Service { return c.svc }

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	return NewOptions(func(o *Options) { *o = c.opts })
}

// Handler serves the API at opts.RoutePath and health at opts.HealthPath. The
// same handler, and its template cache, is returned on every call.
func (c *Component) Handler() http.Handler {
	c.once.Do(func() {
		c.handler = HandlerWithOptions(c.opts)
	})
	return c.handler
}

// RegisterRoutes mounts the component under basePath on mux.
func (c *Component) RegisterRoutes(mux Mux, basePath string) (string, error) {
	return RegisterRoutesWithOptions(mux, basePath, c.opts)
}

// Close closes the service store. It is a no-op without a service.
func (c *Component) Close() error {
	if c.svc == nil {
		return nil
	}
	return c.svc.Store().Close()
}
