package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-sheets/internal/provider/fileprovider"
	"github.com/goliatone/go-sheets/pkg/materialize"
	"github.com/goliatone/go-sheets/pkg/prompt"
	"github.com/goliatone/go-sheets/pkg/render"
	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/template"
	"github.com/goliatone/go-sheets/pkg/value"
)

type failure struct {
	Error failureDetail `json:"error"`
}

type failureDetail struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Expected string `json:"expected,omitempty"`
	Allowed  []any  `json:"allowed,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var (
		templatePath string
		dataPath     string
		ownerID      string
		maxDepth     int
		pretty       bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Materialize a payload against a template and print the sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tpl, err := fileprovider.LoadFile(templatePath)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(dataPath)
			if err != nil {
				return err
			}
			fields, err := value.ParseObject(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", dataPath, err)
			}
			return materializeAndPrint(cmd.OutOrStdout(), tpl, fields, ownerID, maxDepth, pretty)
		},
	}
	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "template file (.json, .jsonc, .yaml)")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "JSON object with field values")
	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id recorded on the sheet")
	cmd.Flags().IntVar(&maxDepth, "max-depth", materialize.DefaultMaxDepth, "maximum template nesting depth")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newFillCommand(driver prompt.Driver) *cobra.Command {
	var (
		templatePath string
		ownerID      string
		pretty       bool
	)
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Prompt for every template field and print the sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tpl, err := fileprovider.LoadFile(templatePath)
			if err != nil {
				return err
			}
			fields, err := prompt.New(driver).Fill(cmd.Context(), tpl)
			if err != nil {
				return err
			}
			return materializeAndPrint(cmd.OutOrStdout(), tpl, fields, ownerID, materialize.DefaultMaxDepth, pretty)
		},
	}
	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "template file (.json, .jsonc, .yaml)")
	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id recorded on the sheet")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func newRenderCommand() *cobra.Command {
	var (
		sheetPath   string
		templateDir string
		layout      string
		output      string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a sheet JSON document as HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(sheetPath)
			if err != nil {
				return err
			}
			var doc sheet.Sheet
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("%s: %w", sheetPath, err)
			}

			var options []render.Option
			if templateDir != "" {
				options = append(options, render.WithBaseDir(templateDir))
			}
			if layout != "" {
				options = append(options, render.WithTemplate(layout))
			}
			renderer, err := render.New(options...)
			if err != nil {
				return err
			}
			html, err := renderer.Render(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if output != "" {
				return os.WriteFile(output, html, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(html)
			return err
		},
	}
	cmd.Flags().StringVarP(&sheetPath, "sheet", "s", "", "sheet JSON document")
	cmd.Flags().StringVar(&templateDir, "template-dir", "", "directory with custom layouts")
	cmd.Flags().StringVar(&layout, "layout", "", "layout name (default "+render.DefaultTemplate+")")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}

func newTemplatesCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the templates in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := fileprovider.New(dir)
			if err != nil {
				return err
			}
			list, err := p.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, tpl := range list {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", tpl.ID, tpl.SystemName, tpl.Version, tpl.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "template directory")
	return cmd
}

func materializeAndPrint(w io.Writer, tpl template.Template, fields map[string]value.Value, ownerID string, maxDepth int, pretty bool) error {
	m := materialize.New(materialize.WithMaxDepth(maxDepth))
	doc, err := m.Materialize(tpl, fields, ownerID)
	if err != nil {
		if fieldErr, ok := materialize.AsFieldError(err); ok {
			if werr := writeJSON(w, failure{Error: detailFor(fieldErr)}, pretty); werr != nil {
				return werr
			}
			return silentError{err: err}
		}
		return err
	}
	return writeJSON(w, doc, pretty)
}

func detailFor(err *materialize.FieldError) failureDetail {
	detail := failureDetail{
		Code:     err.Code(),
		Message:  err.Error(),
		Path:     err.Path,
		Expected: err.Expected,
	}
	for _, option := range err.Allowed {
		detail.Allowed = append(detail.Allowed, option.Interface())
	}
	return detail
}

func writeJSON(w io.Writer, payload any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(payload)
}
