package render

import (
	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/value"
)

// Row is one line of a printable sheet. Groups produce a header row followed
// by their children at Depth+1.
type Row struct {
	Name     string
	Path     string
	Depth    int
	Group    bool
	Value    string
	Required bool
	Options  []string
}

// Rows flattens data depth-first, sorting names within each level.
func Rows(data sheet.Data) []Row {
	var rows []Row
	appendRows(&rows, data, "", 0)
	return rows
}

func appendRows(rows *[]Row, data sheet.Data, parent string, depth int) {
	for _, name := range value.SortedKeys(data) {
		field := data[name]
		path := name
		if parent != "" {
			path = parent + "." + name
		}
		row := Row{
			Name:     name,
			Path:     path,
			Depth:    depth,
			Group:    field.IsGroup(),
			Required: field.Required,
		}
		for _, option := range field.Options {
			row.Options = append(row.Options, option.Display())
		}
		if !row.Group {
			row.Value = field.Value.Display()
		}
		*rows = append(*rows, row)
		if row.Group {
			appendRows(rows, field.Fields, path, depth+1)
		}
	}
}

func (r Row) context() map[string]any {
	options := make([]any, 0, len(r.Options))
	for _, option := range r.Options {
		options = append(options, option)
	}
	return map[string]any{
		"name":     r.Name,
		"path":     r.Path,
		"depth":    r.Depth,
		"indent":   r.Depth * 2,
		"group":    r.Group,
		"value":    r.Value,
		"required": r.Required,
		"options":  options,
	}
}
