// Package fileprovider serves templates from a directory of documents. Each
// file holds one template in JSON, JSONC (comments and trailing commas), or
// YAML; the extension picks the parser.
package fileprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-sheets/pkg/provider"
	"github.com/goliatone/go-sheets/pkg/template"
)

// Provider indexes a directory once at construction time.
type Provider struct {
	dir    string
	static *provider.Static
}

var _ provider.Provider = (*Provider)(nil)

// New loads every supported file directly under dir. Unsupported extensions
// are skipped; a file that fails to parse fails the whole load. Two files
// declaring the same id or system name are rejected.
func New(dir string) (*Provider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("fileprovider: %w", err)
	}

	var (
		templates []template.Template
		ids       = map[string]string{}
		names     = map[string]string{}
	)
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		tpl, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if tpl.ID != "" {
			if prev, dup := ids[tpl.ID]; dup {
				return nil, fmt.Errorf("fileprovider: template id %q declared by %s and %s", tpl.ID, prev, path)
			}
			ids[tpl.ID] = path
		}
		if prev, dup := names[tpl.SystemName]; dup {
			return nil, fmt.Errorf("fileprovider: system name %q declared by %s and %s", tpl.SystemName, prev, path)
		}
		names[tpl.SystemName] = path
		templates = append(templates, tpl)
	}

	return &Provider{dir: dir, static: provider.NewStatic(templates...)}, nil
}

// Dir returns the directory the provider was loaded from.
func (p *Provider) Dir() string { return p.dir }

func (p *Provider) Resolve(ctx context.Context, ref template.Ref) (template.Template, error) {
	return p.static.Resolve(ctx, ref)
}

func (p *Provider) List(ctx context.Context) ([]template.Template, error) {
	return p.static.List(ctx)
}

// Supported reports whether the file extension has a parser.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonc", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFile reads and validates a single template document.
func LoadFile(path string) (template.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return template.Template{}, fmt.Errorf("fileprovider: %w", err)
	}
	tpl, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return template.Template{}, fmt.Errorf("fileprovider: %s: %w", path, err)
	}
	return tpl, nil
}

// Parse decodes a template document. ext selects the syntax and includes the
// leading dot; anything other than YAML or JSONC is parsed as JSON.
func Parse(data []byte, ext string) (template.Template, error) {
	var (
		doc []byte
		err error
	)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		doc, err = yamlToJSON(data)
		if err != nil {
			return template.Template{}, err
		}
	case ".jsonc":
		doc = jsonc.ToJSON(data)
	default:
		doc = data
	}
	return template.Decode(doc)
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, fmt.Errorf("parse yaml: document is not a mapping")
	}
	return json.Marshal(raw)
}
