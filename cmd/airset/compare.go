package main

import (
	"encoding/json"
	"fmt"

	"github.com/airset-dev/airset/internal/document"
	airerrors "github.com/airset-dev/airset/internal/errors"
	"github.com/airset-dev/airset/pkg/store"
	"github.com/airset-dev/airset/pkg/tree"
	"github.com/spf13/cobra"
)

func equalCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "equal A B",
		Short: "Check whether two documents are equal",
		Long: `Compare two documents.

Modes:
  identity  the roots are the same leaf value
  shallow   same top-level keys with identical values (default)
  deep      structurally equal at every depth

Examples:
  airset equal old.json new.json
  airset equal --mode deep a.yaml b.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEqual(cmd, args[0], args[1], mode)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "shallow", "Comparison: identity, shallow or deep")

	return cmd
}

func runEqual(cmd *cobra.Command, pathA, pathB, mode string) error {
	cm, err := store.ParseCompareMode(mode)
	if err != nil {
		return airerrors.New("E141").
			WithDetail(fmt.Sprintf("--mode is %q.", mode)).
			WithSuggestion("Use one of: identity, shallow, deep")
	}

	a, b, err := loadPair(pathA, pathB)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cm.Comparator()(a, b) {
		success(w, "equal (%s)", cm)
		return nil
	}
	differ(w, "not equal (%s)", cm)
	return &exitError{code: 1}
}

func diffCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diff A B",
		Short: "List the paths where two documents differ",
		Long: `List every path at which two documents differ, one per line.

A changed container is reported through the paths of its changed
children. Entries only present in B are listed after those of A.

Examples:
  airset diff old.json new.json
  airset diff --json a.yaml b.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, args[0], args[1], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the paths as a JSON array")

	return cmd
}

func runDiff(cmd *cobra.Command, pathA, pathB string, asJSON bool) error {
	a, b, err := loadPair(pathA, pathB)
	if err != nil {
		return err
	}

	paths := tree.Changes(a, b, nil)
	w := cmd.OutOrStdout()
	if asJSON {
		if paths == nil {
			paths = []tree.Path{}
		}
		if err := json.NewEncoder(w).Encode(paths); err != nil {
			return err
		}
	} else {
		for _, p := range paths {
			fmt.Fprintln(w, p)
		}
	}
	if len(paths) > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func loadPair(pathA, pathB string) (a, b tree.Value, err error) {
	if a, err = document.Load(pathA); err != nil {
		return nil, nil, err
	}
	if b, err = document.Load(pathB); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
