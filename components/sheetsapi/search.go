package sheetsapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-sheets/pkg/template"
)

type EmptySearchMode string

const (
	EmptySearchNone EmptySearchMode = "none"
	EmptySearchTop  EmptySearchMode = "top"
)

// Option is a template choice for pickers: Value resolves through the
// by-id route when the template has an id, else through by-name.
type Option struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	SystemName string `json:"system_name"`
}

type optionsResponse struct {
	Data []Option `json:"data"`
}

// SearchTemplates ranks templates whose id, system name, or display name
// contains query. Prefix matches come first, then lexical order by label.
func SearchTemplates(templates []template.Template, query string, limit int, opts Options) []Option {
	limit = clampLimit(limit, opts)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode != EmptySearchTop {
			return nil
		}
		all := make([]matchedTemplate, 0, len(templates))
		for _, tpl := range templates {
			all = append(all, matchedTemplate{option: templateOption(tpl)})
		}
		return rank(all, limit)
	}

	q := strings.ToLower(query)
	matches := make([]matchedTemplate, 0, len(templates))
	for _, tpl := range templates {
		matched, isPrefix := false, false
		for _, candidate := range []string{tpl.ID, tpl.SystemName, tpl.Name} {
			lower := strings.ToLower(candidate)
			if candidate == "" || !strings.Contains(lower, q) {
				continue
			}
			matched = true
			if strings.HasPrefix(lower, q) {
				isPrefix = true
			}
		}
		if matched {
			matches = append(matches, matchedTemplate{option: templateOption(tpl), isPrefix: isPrefix})
		}
	}
	return rank(matches, limit)
}

type matchedTemplate struct {
	option   Option
	isPrefix bool
}

func rank(matches []matchedTemplate, limit int) []Option {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].option.Label < matches[j].option.Label
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if len(matches) == 0 {
		return nil
	}
	out := make([]Option, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.option)
	}
	return out
}

func templateOption(tpl template.Template) Option {
	label := tpl.Name
	if label == "" {
		label = tpl.SystemName
	}
	if tpl.Version != "" {
		label += " " + tpl.Version
	}
	value := tpl.ID
	if value == "" {
		value = tpl.SystemName
	}
	return Option{Value: value, Label: label, SystemName: tpl.SystemName}
}

func (a *api) searchTemplates(w http.ResponseWriter, r *http.Request) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	list, err := svc.Templates(r.Context())
	if err != nil {
		return err
	}

	query := r.URL.Query().Get(a.opts.SearchParam)
	limit := parseInt(r.URL.Query().Get(a.opts.LimitParam))

	results := SearchTemplates(list, query, limit, a.opts)
	if results == nil {
		results = []Option{}
	}
	writeJSON(w, http.StatusOK, optionsResponse{Data: results})
	return nil
}

func clampLimit(limit int, opts Options) int {
	if limit < 0 {
		return 0
	}
	if limit == 0 {
		limit = opts.DefaultLimit
	}
	if opts.MaxLimit > 0 && limit > opts.MaxLimit {
		return opts.MaxLimit
	}
	return limit
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
