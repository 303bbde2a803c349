package main

import (
	"fmt"
	"os"

	"github.com/airset-dev/airset/internal/document"
	airerrors "github.com/airset-dev/airset/internal/errors"
	"github.com/airset-dev/airset/pkg/tree"
	"github.com/spf13/cobra"
)

func mergeCmd() *cobra.Command {
	var (
		output string
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "merge OLD NEW",
		Short: "Merge a new document onto an old one",
		Long: `Merge NEW onto OLD the way a store update does.

Every subtree of NEW that is deeply equal to the same subtree of OLD
is replaced by OLD's copy. The command reports whether anything
changed, the changed paths, and the subtrees that were kept from OLD.

Examples:
  airset merge state.json incoming.json
  airset merge -o merged.json state.yaml incoming.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, args[0], args[1], output, quiet)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the merged document as JSON to this file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only set the exit status")

	return cmd
}

func runMerge(cmd *cobra.Command, oldPath, newPath, output string, quiet bool) error {
	old, next, err := loadPair(oldPath, newPath)
	if err != nil {
		return err
	}

	// DeepUpdate consumes next, so the changed paths are taken first.
	paths := tree.Changes(old, next, nil)
	unchanged, result := tree.DeepUpdate(old, next, nil)
	kept := keptSubtrees(old, result)

	if output != "" {
		if err := writeDocument(output, result); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if !quiet {
		if unchanged {
			success(w, "unchanged")
		} else {
			differ(w, "changed (%d paths)", len(paths))
			for _, p := range paths {
				info(w, "%s", p)
			}
		}
		if !unchanged && len(kept) > 0 {
			fmt.Fprintf(w, "kept %d subtrees from %s\n", len(kept), oldPath)
			for _, p := range kept {
				info(w, "%s", p)
			}
		}
		if output != "" {
			success(w, "wrote %s", output)
		}
	}

	if !unchanged {
		return &exitError{code: 1}
	}
	return nil
}

// keptSubtrees lists the outermost containers of result that are the same
// reference as the container at the same path in old.
func keptSubtrees(old, result tree.Value) []tree.Path {
	var kept []tree.Path
	seen := make(map[tree.Value]bool)

	var walk func(o, r tree.Value, path tree.Path)
	walk = func(o, r tree.Value, path tree.Path) {
		if r.Kind() == tree.KindLeaf || seen[r] {
			return
		}
		if tree.IdentityEqual(o, r) {
			kept = append(kept, path)
			return
		}
		seen[r] = true
		switch rv := r.(type) {
		case *tree.Mapping:
			om, ok := o.(*tree.Mapping)
			if !ok {
				return
			}
			for _, k := range rv.Keys() {
				ov, ok := om.Get(k)
				if !ok {
					continue
				}
				child, _ := rv.Get(k)
				walk(ov, child, path.Child(tree.Field(k)))
			}
		case *tree.Sequence:
			oseq, ok := o.(*tree.Sequence)
			if !ok {
				return
			}
			for i := 0; i < rv.Len() && i < oseq.Len(); i++ {
				walk(oseq.At(i), rv.At(i), path.Child(tree.Index(i)))
			}
		}
	}
	walk(old, result, tree.Root)
	return kept
}

func writeDocument(path string, v tree.Value) error {
	f, err := os.Create(path)
	if err != nil {
		return airerrors.Newf(airerrors.CategoryCLI, "cannot write %s", path).Wrap(err)
	}
	defer f.Close()
	if err := document.Encode(f, v); err != nil {
		return airerrors.Newf(airerrors.CategoryCLI, "cannot encode %s", path).Wrap(err)
	}
	return f.Close()
}

func cloneCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "clone FILE",
		Short: "Deep-clone a document and verify the copy",
		Long: `Deep-clone a document, check that the copy is deeply equal to the
original and shares no container with it, and print it as JSON.

Examples:
  airset clone config.yaml
  airset clone -o copy.json state.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClone(cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the clone to this file instead of stdout")

	return cmd
}

func runClone(cmd *cobra.Command, path, output string) error {
	v, err := document.Load(path)
	if err != nil {
		return err
	}

	c := tree.DeepClone(v, nil)
	if !tree.DeepEqual(v, c, nil) {
		return airerrors.Newf(airerrors.CategoryCLI, "clone of %s differs from the original", path).
			WithDetail(fmt.Sprintf("Paths: %v", tree.Changes(v, c, nil)))
	}
	if v.Kind() != tree.KindLeaf && tree.IdentityEqual(v, c) {
		return airerrors.Newf(airerrors.CategoryCLI, "clone of %s shares its root with the original", path)
	}

	if output != "" {
		if err := writeDocument(output, c); err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "cloned %s to %s", path, output)
		return nil
	}
	return document.Encode(cmd.OutOrStdout(), c)
}
