package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

// errStale is returned by check when a file on disk differs from the
// rendered schema. The diff has already been printed.
var errStale = errors.New("schema is out of date")

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail if the schema on disk differs from the rendered one",
		Long: `Render the schema in memory and compare it with the files on disk.
A unified diff is printed for every stale file and the command exits
with a non-zero status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.generator().check(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (g *generator) check(ctx context.Context, w io.Writer) error {
	if g.cfg.Output == "" && g.cfg.OutputDir == "" {
		return errors.WithHint(errors.New("check needs a file to compare against"),
			"pass --output or --output-dir")
	}

	files, _, err := g.generate(ctx)
	if err != nil {
		return err
	}

	stale := 0

	for _, f := range files {
		path := g.path(f)

		onDisk, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "reading %s", path)
		}

		if string(onDisk) == string(f.Content) {
			continue
		}

		stale++

		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(onDisk)),
			B:        difflib.SplitLines(string(f.Content)),
			FromFile: path,
			ToFile:   path + " (generated)",
			Context:  3,
		})
		if err != nil {
			return errors.Wrapf(err, "diffing %s", path)
		}

		if _, err := io.WriteString(w, diff); err != nil {
			return errors.Wrap(err, "writing diff")
		}
	}

	if stale > 0 {
		fmt.Fprintf(w, "%d of %d schema files out of date; run fbsgen gen\n", stale, len(files))
		return errStale
	}

	return nil
}
