package httpprovider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-sheets/pkg/provider"
	"github.com/goliatone/go-sheets/pkg/template"
)

const dndTemplate = `{
	"_id": "t1",
	"system_name": "dnd5e",
	"version": 5.1,
	"fields": [
		{"name": "hp", "type": "number", "required": true},
		{"name": "stats", "required": true, "fields": [
			{"name": "str", "type": "number", "required": true}
		]}
	]
}`

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func newServer(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()
	paths := &recorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/templates/by-id/{id}", func(w http.ResponseWriter, r *http.Request) {
		paths.add(r.URL.Path)
		if r.PathValue("id") != "t1" {
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(dndTemplate))
	})
	mux.HandleFunc("GET /api/templates/by-name/{name}", func(w http.ResponseWriter, r *http.Request) {
		paths.add(r.URL.Path)
		if r.PathValue("name") != "dnd5e" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(dndTemplate))
	})
	mux.HandleFunc("GET /api/templates/{$}", func(w http.ResponseWriter, r *http.Request) {
		paths.add(r.URL.Path)
		_, _ = w.Write([]byte("[" + dndTemplate + "]"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, paths
}

func TestProvider_Resolve(t *testing.T) {
	srv, paths := newServer(t)
	p, err := New(Options{BaseURL: srv.URL + "/api/templates"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	byID, err := p.Resolve(ctx, template.Ref{ID: "t1", SystemName: "ignored"})
	if err != nil {
		t.Fatalf("resolve by id: %v", err)
	}
	if byID.ID != "t1" || byID.Version != "5.1" || len(byID.Fields) != 2 {
		t.Fatalf("unexpected template: %+v", byID)
	}
	if _, err := p.Resolve(ctx, template.Ref{SystemName: "dnd5e"}); err != nil {
		t.Fatalf("resolve by name: %v", err)
	}

	want := []string{"/api/templates/by-id/t1", "/api/templates/by-name/dnd5e"}
	if diff := cmp.Diff(want, paths.list()); diff != "" {
		t.Fatalf("request paths mismatch (-want +got):\n%s", diff)
	}
}

func TestProvider_NotFoundIsNotRetried(t *testing.T) {
	srv, paths := newServer(t)
	p, err := New(Options{BaseURL: srv.URL + "/api/templates/", Retries: 3, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = p.Resolve(context.Background(), template.Ref{ID: "missing"})
	if !errors.Is(err, provider.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if got := paths.list(); len(got) != 1 {
		t.Fatalf("expected a single request, got %v", got)
	}
}

func TestProvider_UnavailableRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(dndTemplate))
	}))
	defer srv.Close()

	p, err := New(Options{BaseURL: srv.URL + "/", Retries: 2, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := p.Resolve(context.Background(), template.Ref{ID: "t1"}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestProvider_UnavailableAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := New(Options{BaseURL: srv.URL, Retries: 1, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = p.Resolve(context.Background(), template.Ref{SystemName: "dnd5e"})
	if !errors.Is(err, provider.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestProvider_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p, err := New(Options{BaseURL: base, Timeout: time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = p.Resolve(context.Background(), template.Ref{ID: "t1"})
	if !errors.Is(err, provider.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestProvider_InvalidTemplateIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"t1","system_name":"x","fields":[]}`))
	}))
	defer srv.Close()

	p, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = p.Resolve(context.Background(), template.Ref{ID: "t1"})
	if !errors.Is(err, provider.ErrProviderUnavailable) || !errors.Is(err, template.ErrInvalidTemplate) {
		t.Fatalf("expected unavailable wrapping invalid template, got %v", err)
	}
}

func TestProvider_List(t *testing.T) {
	srv, _ := newServer(t)
	p, err := New(Options{BaseURL: srv.URL + "/api/templates/"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	list, err := p.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].SystemName != "dnd5e" {
		t.Fatalf("unexpected listing: %+v", list)
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, base := range []string{"", "not a url", "/relative"} {
		if _, err := New(Options{BaseURL: base}); err == nil {
			t.Fatalf("expected error for %q", base)
		}
	}
}
