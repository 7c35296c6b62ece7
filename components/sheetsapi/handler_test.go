package sheetsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-sheets/internal/store/memory"
	"github.com/goliatone/go-sheets/pkg/materialize"
	"github.com/goliatone/go-sheets/pkg/provider"
	"github.com/goliatone/go-sheets/pkg/service"
	"github.com/goliatone/go-sheets/pkg/template"
	"github.com/goliatone/go-sheets/pkg/value"
)

func fixtureTemplate() template.Template {
	return template.Template{
		ID:         "tpl-1",
		SystemName: "dnd5e",
		Version:    "5.1",
		Fields: []template.Field{
			template.Leaf("name", template.FieldTypeString, true),
			template.Leaf("hp", template.FieldTypeNumber, true),
			template.Leaf("class", template.FieldTypeString, false, value.String("mage"), value.String("warrior")),
		},
	}
}

func newTestHandler(t *testing.T, fns ...OptionFn) http.Handler {
	t.Helper()
	n := 0
	svc := service.New(
		service.WithProvider(provider.NewStatic(fixtureTemplate())),
		service.WithStore(memory.New()),
		service.WithMaterializer(materialize.New(materialize.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("sheet-%d", n)
		}))),
	)
	return NewHandler(append([]OptionFn{WithService(svc)}, fns...)...)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	payload := decodeBody(t, rec)
	detail, _ := payload["error"].(map[string]any)
	code, _ := detail["code"].(string)
	return code
}

func TestHandler_CreateReturnsMaterializedSheet(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/sheets/",
		`{"template_id":"tpl-1","owner_id":"u1","fields":{"name":"Aria","hp":12,"class":"mage"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content-type, got %q", ct)
	}

	want := map[string]any{
		"id":                      "sheet-1",
		"template_id":             "tpl-1",
		"template_system_name":    "dnd5e",
		"template_system_version": "5.1",
		"owner_id":                "u1",
		"data": map[string]any{
			"name":  map[string]any{"value": "Aria", "required": true},
			"hp":    map[string]any{"value": float64(12), "required": true},
			"class": map[string]any{"value": "mage", "required": false, "options": []any{"mage", "warrior"}},
		},
	}
	if diff := cmp.Diff(want, decodeBody(t, rec)); diff != "" {
		t.Fatalf("created sheet mismatch (-want +got):\n%s", diff)
	}
}

func TestHandler_CreateAcceptsPathWithoutSlashAndUserData(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/sheets",
		`{"system_name":"dnd5e","owner_id":"u1","fields":{},"user_data":{"name":"Aria","hp":3}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"template_id":`, http.StatusBadRequest, "invalid_json"},
		{"array body", `[]`, http.StatusBadRequest, "invalid_json"},
		{"missing identifier", `{"owner_id":"u1","fields":{"name":"a","hp":1}}`, http.StatusBadRequest, "missing_identifier"},
		{"missing owner", `{"template_id":"tpl-1","fields":{"name":"a","hp":1}}`, http.StatusBadRequest, "missing_owner"},
		{"fields not an object", `{"template_id":"tpl-1","owner_id":"u1","fields":[1]}`, http.StatusBadRequest, "invalid_fields_payload"},
		{"unknown template", `{"template_id":"nope","owner_id":"u1","fields":{"name":"a","hp":1}}`, http.StatusNotFound, "template_not_found"},
		{"missing required field", `{"template_id":"tpl-1","owner_id":"u1","fields":{"name":"a"}}`, http.StatusUnprocessableEntity, "missing_required_field"},
		{"type mismatch", `{"template_id":"tpl-1","owner_id":"u1","fields":{"name":"a","hp":"x"}}`, http.StatusUnprocessableEntity, "type_mismatch"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t)
			rec := do(t, h, http.MethodPost, "/api/sheets/", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, got)
			}
		})
	}
}

func TestHandler_InvalidOptionReportsAllowedValues(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/sheets/",
		`{"template_id":"tpl-1","owner_id":"u1","fields":{"name":"a","hp":1,"class":"bard"}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	want := map[string]any{
		"code":    "invalid_option",
		"path":    "class",
		"allowed": []any{"mage", "warrior"},
	}
	detail, _ := decodeBody(t, rec)["error"].(map[string]any)
	delete(detail, "message")
	delete(detail, "expected")
	if diff := cmp.Diff(want, detail); diff != "" {
		t.Fatalf("error detail mismatch (-want +got):\n%s", diff)
	}
}

func TestHandler_SheetLifecycle(t *testing.T) {
	h := newTestHandler(t)

	if rec := do(t, h, http.MethodPost, "/api/sheets/",
		`{"template_id":"tpl-1","owner_id":"u1","fields":{"name":"Aria","hp":12}}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/api/sheets/sheet-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["owner_id"]; got != "u1" {
		t.Fatalf("get: unexpected owner %v", got)
	}

	rec = do(t, h, http.MethodPatch, "/api/sheets/sheet-1", `{"owner_id":"u2","fields":{"name":"Aria","hp":20}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody(t, rec)
	if updated["owner_id"] != "u2" {
		t.Fatalf("update: owner not changed: %v", updated["owner_id"])
	}
	hp := updated["data"].(map[string]any)["hp"].(map[string]any)["value"]
	if hp != float64(20) {
		t.Fatalf("update: hp not replaced: %v", hp)
	}

	rec = do(t, h, http.MethodGet, "/api/sheets/?owner_id=u2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var listed []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("list: decode: %v", err)
	}
	if len(listed) != 1 || listed[0]["id"] != "sheet-1" {
		t.Fatalf("list: unexpected result %#v", listed)
	}

	rec = do(t, h, http.MethodGet, "/api/sheets/sheet-1/render", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("render: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("render: expected HTML, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Aria") {
		t.Fatalf("render: expected sheet name in output")
	}

	if rec := do(t, h, http.MethodDelete, "/api/sheets/sheet-1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/sheets/sheet-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
	if got := errorCode(t, rec); got != "sheet_not_found" {
		t.Fatalf("get after delete: unexpected code %q", got)
	}
}

func TestHandler_ListByOwnerEmptyAndMissingOwner(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/sheets?owner_id=nobody", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("expected empty array, got %s", body)
	}

	rec = do(t, h, http.MethodGet, "/api/sheets/", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := errorCode(t, rec); got != "missing_owner" {
		t.Fatalf("unexpected code %q", got)
	}
}

func TestHandler_Templates(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/sheets/templates", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listed []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 || listed[0]["id"] != "tpl-1" {
		t.Fatalf("unexpected templates %#v", listed)
	}

	for _, target := range []string{"/api/sheets/templates/by-id/tpl-1", "/api/sheets/templates/by-name/dnd5e"} {
		rec := do(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", target, rec.Code)
		}
		if got := decodeBody(t, rec)["system_name"]; got != "dnd5e" {
			t.Fatalf("%s: unexpected system name %v", target, got)
		}
	}

	rec = do(t, h, http.MethodGet, "/api/sheets/templates/by-id/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_HealthAndDocument(t *testing.T) {
	h := newTestHandler(t, WithTemplateServiceURL("http://templates:8001/api/templates/"))

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	want := map[string]any{
		"status":               "online",
		"service":              "sheets",
		"template_service_url": "http://templates:8001/api/templates/",
	}
	if diff := cmp.Diff(want, decodeBody(t, rec)); diff != "" {
		t.Fatalf("health mismatch (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodGet, "/api/sheets/openapi.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("document: expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["openapi"]; got != "3.0.3" {
		t.Fatalf("document: unexpected openapi version %v", got)
	}
}

func TestHandler_BodyLimit(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(16))

	rec := do(t, h, http.MethodPost, "/api/sheets/",
		`{"template_id":"tpl-1","owner_id":"u1","fields":{"name":"Aria","hp":12}}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestHandler_GuardRejects(t *testing.T) {
	h := newTestHandler(t, WithGuard(func(r *http.Request) error {
		if r.Header.Get("Authorization") == "" {
			return StatusError{Code: http.StatusUnauthorized, Err: errors.New("missing token")}
		}
		return nil
	}))

	rec := do(t, h, http.MethodGet, "/api/sheets/templates", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := errorCode(t, rec); got != "unauthorized" {
		t.Fatalf("unexpected code %q", got)
	}
}

func TestHandler_MissingServiceIsUnavailable(t *testing.T) {
	h := NewHandler()

	rec := do(t, h, http.MethodGet, "/api/sheets/sheet-1", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health should not need a service, got %d", rec.Code)
	}
}

func TestHandler_ProviderUnavailable(t *testing.T) {
	svc := service.New(service.WithProvider(failingProvider{}))
	h := NewHandler(WithService(svc))

	rec := do(t, h, http.MethodPost, "/api/sheets/", `{"template_id":"tpl-1","owner_id":"u1","fields":{"a":1}}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if got := errorCode(t, rec); got != "provider_unavailable" {
		t.Fatalf("unexpected code %q", got)
	}
}

type failingProvider struct{}

func (failingProvider) Resolve(_ context.Context, _ template.Ref) (template.Template, error) {
	return template.Template{}, fmt.Errorf("%w: connection refused", provider.ErrProviderUnavailable)
}

func (failingProvider) List(_ context.Context) ([]template.Template, error) {
	return nil, fmt.Errorf("%w: connection refused", provider.ErrProviderUnavailable)
}
