// sheetctl validates, fills, and renders character sheets against local
// template files without running the service.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-sheets/pkg/prompt"
)

// silentError has already been reported on stdout and only sets the exit code.
type silentError struct{ err error }

func (e silentError) Error() string { return e.err.Error() }
func (e silentError) Unwrap() error { return e.err }

func main() {
	root := newRootCommand(os.Stdout, os.Stderr, nil)
	if err := root.Execute(); err != nil {
		var silent silentError
		if !errors.As(err, &silent) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newRootCommand assembles the command tree. A nil driver prompts on the
// terminal.
func newRootCommand(stdout, stderr io.Writer, driver prompt.Driver) *cobra.Command {
	root := &cobra.Command{
		Use:           "sheetctl",
		Short:         "Work with character sheet templates offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		newValidateCommand(),
		newFillCommand(driver),
		newRenderCommand(),
		newTemplatesCommand(),
	)
	return root
}
