package sheetsapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-sheets/internal/apidoc"
	"github.com/goliatone/go-sheets/pkg/render"
	"github.com/goliatone/go-sheets/pkg/service"
	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/template"
)

type createBody struct {
	TemplateID string          `json:"template_id"`
	SystemName string          `json:"system_name"`
	OwnerID    string          `json:"owner_id"`
	Fields     json.RawMessage `json:"fields"`
	UserData   json.RawMessage `json:"user_data"`
}

type updateBody struct {
	OwnerID  *string         `json:"owner_id"`
	Fields   json.RawMessage `json:"fields"`
	UserData json.RawMessage `json:"user_data"`
}

type healthBody struct {
	Status             string `json:"status"`
	Service            string `json:"service"`
	TemplateServiceURL string `json:"template_service_url,omitempty"`
}

// Handler builds a net/http handler with default options plus any overrides.
func Handler(fns ...OptionFn) http.Handler {
	return NewHandler(fns...)
}

func NewHandler(fns ...OptionFn) http.Handler {
	opts := NewOptions(fns...)
	return HandlerWithOptions(opts)
}

// HandlerWithOptions serves the API routes at opts.RoutePath and the health
// route at opts.HealthPath.
func HandlerWithOptions(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return newAPI(opts).mux(mountPath("", opts.RoutePath), mountPath("", opts.HealthPath))
}

type api struct {
	opts Options

	rendererOnce sync.Once
	renderer     *render.Renderer
	rendererErr  error
}

func newAPI(opts Options) *api {
	return &api{opts: opts}
}

func (a *api) mux(prefix, healthPath string) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, fn func(http.ResponseWriter, *http.Request) error) {
		mux.Handle(pattern, a.wrap(fn))
	}

	prefix = strings.TrimSuffix(prefix, "/")
	if prefix != "" {
		handle("POST "+prefix, a.create)
		handle("GET "+prefix, a.list)
	}
	handle("POST "+prefix+"/{$}", a.create)
	handle("GET "+prefix+"/{$}", a.list)
	handle("GET "+prefix+"/templates", a.templates)
	handle("GET "+prefix+"/templates/search", a.searchTemplates)
	handle("GET "+prefix+"/templates/by-id/{id}", a.templateByID)
	handle("GET "+prefix+"/templates/by-name/{name}", a.templateByName)
	handle("GET "+prefix+"/openapi.json", a.document)
	handle("GET "+prefix+"/{id}", a.get)
	handle("PATCH "+prefix+"/{id}", a.update)
	handle("DELETE "+prefix+"/{id}", a.remove)
	handle("GET "+prefix+"/{id}/render", a.render)
	handle("GET "+healthPath, a.health)
	return mux
}

func (a *api) wrap(fn func(http.ResponseWriter, *http.Request) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.opts.Guard != nil {
			if err := a.opts.Guard(r); err != nil {
				writeGuardError(w, err)
				return
			}
		}
		if err := fn(w, r); err != nil {
			writeError(w, r, a.opts.Logger, err)
		}
	})
}

func (a *api) service() (*service.Service, error) {
	if a.opts.Service == nil {
		return nil, StatusError{Code: http.StatusServiceUnavailable, Err: errors.New("sheet service is not configured")}
	}
	return a.opts.Service, nil
}

func (a *api) create(w http.ResponseWriter, r *http.Request) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	var body createBody
	if err := a.decode(w, r, &body); err != nil {
		return err
	}

	created, err := svc.Create(r.Context(), service.CreateRequest{
		TemplateID: body.TemplateID,
		SystemName: body.SystemName,
		OwnerID:    body.OwnerID,
		RawFields:  pickFields(body.Fields, body.UserData),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, created)
	return nil
}

func (a *api) list(w http.ResponseWriter, r *http.Request) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	sheets, err := svc.ListByOwner(r.Context(), r.URL.Query().Get("owner_id"))
	if err != nil {
		return err
	}
	if sheets == nil {
		sheets = []sheet.Sheet{}
	}
	writeJSON(w, http.StatusOK, sheets)
	return nil
}

func (a *api) get(w http.ResponseWriter, r *http.Request) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	found, err := svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, found)
	return nil
}

func (a *api) update(w http.ResponseWriter, r *http.Request) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	var body updateBody
	if err := a.decode(w, r, &body); err != nil {
		return err
	}

	updated, err := svc.Update(r.Context(), r.PathValue("id"), service.UpdateRequest{
		OwnerID:   body.OwnerID,
		RawFields: pickFields(body.Fields, body.UserData),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, updated)
	return nil
}

func (a *api) remove(w http.ResponseWriter, r *http.Request) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	if err := svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *api) templates(w http.ResponseWriter, r *http.Request) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	list, err := svc.Templates(r.Context())
	if err != nil {
		return err
	}
	if list == nil {
		list = []template.Template{}
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

func (a *api) templateByID(w http.ResponseWriter, r *http.Request) error {
	return a.template(w, r, template.Ref{ID: r.PathValue("id")})
}

func (a *api) templateByName(w http.ResponseWriter, r *http.Request) error {
	return a.template(w, r, template.Ref{SystemName: r.PathValue("name")})
}

func (a *api) template(w http.ResponseWriter, r *http.Request, ref template.Ref) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	tpl, err := svc.Template(r.Context(), ref)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, tpl)
	return nil
}

func (a *api) document(w http.ResponseWriter, r *http.Request) error {
	doc, err := apidoc.Load(r.Context())
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(doc.JSON())
	if err != nil {
		a.opts.Logger.Warn("write api document", "error", err)
	}
	return nil
}

func (a *api) render(w http.ResponseWriter, r *http.Request) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	found, err := svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}
	renderer, err := a.htmlRenderer()
	if err != nil {
		return err
	}
	html, err := renderer.Render(r.Context(), found)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(html); err != nil {
		a.opts.Logger.Warn("write rendered sheet", "sheet_id", found.ID, "error", err)
	}
	return nil
}

func (a *api) health(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, healthBody{
		Status:             "online",
		Service:            a.opts.ServiceName,
		TemplateServiceURL: a.opts.TemplateServiceURL,
	})
	return nil
}

func (a *api) htmlRenderer() (*render.Renderer, error) {
	if a.opts.Renderer != nil {
		return a.opts.Renderer, nil
	}
	a.rendererOnce.Do(func() {
		a.renderer, a.rendererErr = render.New()
	})
	return a.renderer, a.rendererErr
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, target any) error {
	body := http.MaxBytesReader(w, r.Body, a.opts.MaxBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return StatusError{Code: http.StatusRequestEntityTooLarge, Err: err}
		}
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: expected an object", errInvalidJSON)
	}
	if err := json.Unmarshal(trimmed, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return nil
}

// pickFields prefers fields and falls back to user_data when fields is
// absent, null, or an empty object.
func pickFields(fields, userData json.RawMessage) json.RawMessage {
	if !blankPayload(fields) {
		return fields
	}
	if !blankPayload(userData) {
		return userData
	}
	return fields
}

func blankPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err == nil && len(probe) == 0 {
		return true
	}
	return false
}
