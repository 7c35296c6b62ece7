// Package render produces printable HTML for materialized sheets. Templates
// are pongo2 documents; the package embeds a default sheet layout and callers
// may supply their own through WithFS or WithBaseDir.
package render

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-sheets/pkg/sheet"
)

// DefaultTemplate is the name of the embedded layout.
const DefaultTemplate = "sheet.html"

//go:embed templates/*.tpl
var embedded embed.FS

// TemplatesFS exposes the embedded layouts so callers can copy or extend them.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return embedded
	}
	return sub
}

// Option configures a Renderer.
type Option func(*config)

type config struct {
	baseDir    string
	templates  fs.FS
	extension  string
	name       string
	globalData map[string]any
}

// WithBaseDir loads templates from a directory on disk, ahead of the
// embedded defaults.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS, ahead of the embedded defaults.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithTemplate selects the layout to execute. The extension is appended when
// missing.
func WithTemplate(name string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.name = trimmed
		}
	}
}

// WithGlobalData seeds values available to every render.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// Renderer executes a pongo2 template against a sheet. Safe for concurrent use.
type Renderer struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	name      string
}

// New builds a Renderer. Custom loaders are consulted before the embedded
// templates, so a caller-supplied sheet.html.tpl overrides the default.
func New(options ...Option) (*Renderer, error) {
	cfg := &config{
		extension: ".tpl",
		name:      DefaultTemplate,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("render: create local loader: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.templates != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.templates))
	}
	loaders = append(loaders, pongo2.NewFSLoader(TemplatesFS()))

	set := pongo2.NewSet("sheets", loaders...)
	if len(cfg.globalData) > 0 {
		if set.Globals == nil {
			set.Globals = make(pongo2.Context)
		}
		set.Globals.Update(pongo2.Context(cfg.globalData))
	}

	name := cfg.name
	if !strings.HasSuffix(name, cfg.extension) {
		name += cfg.extension
	}

	r := &Renderer{
		set:       set,
		templates: make(map[string]*pongo2.Template),
		name:      name,
	}
	if _, err := r.template(name); err != nil {
		return nil, err
	}
	return r, nil
}

// Render returns the HTML for s.
func (r *Renderer) Render(ctx context.Context, s sheet.Sheet) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.RenderTo(ctx, &buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderTo writes the HTML for s to w. Output is buffered so nothing reaches
// w when execution fails.
func (r *Renderer) RenderTo(ctx context.Context, w io.Writer, s sheet.Sheet) error {
	if r == nil || r.set == nil {
		return errors.New("render: renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpl, err := r.template(r.name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(sheetContext(s), &buf); err != nil {
		return fmt.Errorf("render: execute template %q: %w", r.name, err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (r *Renderer) template(name string) (*pongo2.Template, error) {
	r.mu.RLock()
	if tmpl, ok := r.templates[name]; ok {
		r.mu.RUnlock()
		return tmpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tmpl, ok := r.templates[name]; ok {
		return tmpl, nil
	}
	tmpl, err := r.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("render: load template %q: %w", name, err)
	}
	r.templates[name] = tmpl
	return tmpl, nil
}

func sheetContext(s sheet.Sheet) pongo2.Context {
	rows := Rows(s.Data)
	rowContexts := make([]any, 0, len(rows))
	for _, row := range rows {
		rowContexts = append(rowContexts, row.context())
	}

	title := s.TemplateSystemName
	if title == "" {
		title = "Sheet"
	}
	if name, ok := s.Data.Lookup("name"); ok && !name.IsGroup() {
		if display := name.Value.Display(); display != "" {
			title = display
		}
	}

	return pongo2.Context{
		"title": title,
		"sheet": map[string]any{
			"id":                      s.ID,
			"template_id":             s.TemplateID,
			"template_system_name":    s.TemplateSystemName,
			"template_system_version": s.TemplateSystemVersion,
			"owner_id":                s.OwnerID,
		},
		"rows": rowContexts,
	}
}
