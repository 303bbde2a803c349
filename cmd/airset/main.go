package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	airerrors "github.com/airset-dev/airset/internal/errors"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// colors is false when output is not a terminal or --no-color is set.
var colors = true

// exitError ends the process with code without printing anything. It
// carries verdicts such as "not equal", which are not failures.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	os.Exit(execute(newRootCmd(), os.Args[1:], os.Stderr))
}

func newRootCmd() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "airset",
		Short: "Compare, clone and merge JSON and YAML documents",
		Long: `Airset compares, clones and merges document trees.

Documents are JSON (.json, or "-" for stdin) or YAML (.yaml, .yml)
files. Commands:

  • equal   compare two documents by identity, shallow or deep equality
  • diff    list the paths where two documents differ
  • merge   merge a new document onto an old one, keeping unchanged subtrees
  • clone   deep-clone a document and check the copy
  • serve   load documents into stores and serve the inspector

equal and merge exit with status 1 when the documents differ, diff
when any path differs. Errors exit with status 2.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupColors(cmd.OutOrStdout(), noColor)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		equalCmd(),
		diffCmd(),
		mergeCmd(),
		cloneCmd(),
		serveCmd(),
		versionCmd(),
	)

	return rootCmd
}

// execute runs the command and maps its outcome to a process exit status.
func execute(cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	airerrors.PrintError(stderr, err)
	return 2
}

// setupColors turns colors off unless w is an interactive terminal.
func setupColors(w io.Writer, disabled bool) {
	colors = !disabled && isTerminal(w)
	if colors {
		airerrors.EnableColors()
	} else {
		airerrors.DisableColors()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func paint(code, text string) string {
	if !colors {
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("32", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("33", "⚠"), fmt.Sprintf(format, args...))
}

// differ prints a negative verdict.
func differ(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("31", "✗"), fmt.Sprintf(format, args...))
}
