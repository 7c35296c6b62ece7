// Package apidoc embeds the OpenAPI description of the sheets HTTP API and
// validates it on load.
package apidoc

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var source []byte

// Document is a validated API description.
type Document struct {
	spec *openapi3.T
	json []byte
}

var (
	once   sync.Once
	cached *Document
	errDoc error
)

// Load parses and validates the embedded document once per process. The parse
// runs detached from ctx, so a cancelled caller never caches a failure.
func Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	once.Do(func() {
		cached, errDoc = parse(context.Background(), source)
	})
	return cached, errDoc
}

func parse(ctx context.Context, data []byte) (*Document, error) {
	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("apidoc: load document: %w", err)
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("apidoc: validate: %w", err)
	}
	encoded, err := spec.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("apidoc: encode: %w", err)
	}
	return &Document{spec: spec, json: encoded}, nil
}

// JSON returns the document encoded as JSON.
func (d *Document) JSON() []byte { return d.json }

// Version returns info.version.
func (d *Document) Version() string {
	if d.spec.Info == nil {
		return ""
	}
	return d.spec.Info.Version
}

// Operations lists "METHOD path" pairs, sorted.
func (d *Document) Operations() []string {
	var out []string
	if d.spec.Paths == nil {
		return out
	}
	for path, item := range d.spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method := range item.Operations() {
			out = append(out, strings.ToUpper(method)+" "+path)
		}
	}
	sort.Strings(out)
	return out
}
