// Package prompt fills a template interactively. It walks the template the
// same way the materializer does and asks for one value per leaf, producing a
// payload the materializer accepts.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-sheets/pkg/template"
	"github.com/goliatone/go-sheets/pkg/value"
)

const skipLabel = "(skip)"

// Filler asks a Driver for field values.
type Filler struct {
	driver Driver
}

// New wraps driver. A nil driver uses the survey driver on the process
// terminal.
func New(driver Driver) *Filler {
	if driver == nil {
		driver = NewSurveyDriver()
	}
	return &Filler{driver: driver}
}

// Fill prompts for every field of tpl in declared order. Optional leaves
// accept empty input (or the skip choice) as "omit"; optional groups are only
// entered after confirmation.
func (f *Filler) Fill(ctx context.Context, tpl template.Template) (map[string]value.Value, error) {
	header := tpl.Name
	if header == "" {
		header = tpl.SystemName
	}
	if tpl.Version != "" {
		header += " " + tpl.Version
	}
	if err := f.driver.Info(ctx, strings.TrimSpace(header)); err != nil {
		return nil, err
	}
	return f.fields(ctx, tpl.Fields, "")
}

func (f *Filler) fields(ctx context.Context, fields []template.Field, parent string) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(fields))
	for _, field := range fields {
		path := template.JoinPath(parent, field.Name)

		if field.IsGroup() {
			if !field.Required {
				enter, err := f.driver.Confirm(ctx, ConfirmConfig{
					Message: fmt.Sprintf("Fill in %s?", path),
				})
				if err != nil {
					return nil, err
				}
				if !enter {
					continue
				}
			}
			nested, err := f.fields(ctx, field.Fields, path)
			if err != nil {
				return nil, err
			}
			out[field.Name] = value.Map(nested)
			continue
		}

		v, ok, err := f.leaf(ctx, field, path)
		if err != nil {
			return nil, err
		}
		if ok {
			out[field.Name] = v
		}
	}
	return out, nil
}

func (f *Filler) leaf(ctx context.Context, field template.Field, path string) (value.Value, bool, error) {
	message := label(field, path)

	if len(field.Options) > 0 {
		labels := make([]string, 0, len(field.Options)+1)
		if !field.Required {
			labels = append(labels, skipLabel)
		}
		for _, option := range field.Options {
			labels = append(labels, option.Display())
		}
		idx, err := f.driver.Select(ctx, SelectConfig{Message: message, Options: labels})
		if err != nil {
			return value.Value{}, false, err
		}
		if !field.Required {
			if idx == 0 {
				return value.Value{}, false, nil
			}
			idx--
		}
		if idx < 0 || idx >= len(field.Options) {
			return value.Value{}, false, fmt.Errorf("prompt: %s: selection %d out of range", path, idx)
		}
		return field.Options[idx], true, nil
	}

	if field.Type == template.FieldTypeNumber {
		answer, err := f.driver.Input(ctx, InputConfig{
			Message:   message,
			Help:      "a number",
			Validator: numberValidator(field.Required),
		})
		if err != nil {
			return value.Value{}, false, err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" && !field.Required {
			return value.Value{}, false, nil
		}
		n, err := parseNumber(answer)
		if err != nil {
			return value.Value{}, false, fmt.Errorf("prompt: %s: %w", path, err)
		}
		return value.Number(n), true, nil
	}

	answer, err := f.driver.Input(ctx, InputConfig{Message: message})
	if err != nil {
		return value.Value{}, false, err
	}
	if answer == "" && !field.Required {
		return value.Value{}, false, nil
	}
	return value.String(answer), true, nil
}

func label(field template.Field, path string) string {
	if field.Required {
		return path + " *"
	}
	return path
}

func numberValidator(required bool) func(string) error {
	return func(answer string) error {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			if required {
				return errors.New("a number is required")
			}
			return nil
		}
		_, err := parseNumber(answer)
		return err
	}
}

func parseNumber(s string) (float64, error) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return n, nil
}
