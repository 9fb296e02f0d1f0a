package main

import (
	"io"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fbsgen/internal/schema"
)

func newGenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gen",
		Short: "Render the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := a.generator()

			files, _, err := g.generate(cmd.Context())
			if err != nil {
				return err
			}

			return g.write(cmd.OutOrStdout(), files)
		},
	}
}

// write stores the files on disk, or prints the single file to w when no
// output is configured.
func (g *generator) write(w io.Writer, files []schema.GeneratedFile) error {
	switch {
	case g.cfg.OutputDir != "":
		if err := schema.WriteFiles(files, g.cfg.OutputDir); err != nil {
			return err
		}
	case g.cfg.Output != "":
		f := files[0]
		f.Filename = filepath.Base(g.cfg.Output)

		if err := schema.WriteFiles([]schema.GeneratedFile{f}, filepath.Dir(g.cfg.Output)); err != nil {
			return err
		}
	default:
		for _, f := range files {
			if _, err := w.Write(f.Content); err != nil {
				return errors.Wrap(err, "writing schema")
			}
		}

		return nil
	}

	for _, f := range files {
		g.log.Info("wrote file", zap.String("file", g.path(f)), zap.Int("bytes", len(f.Content)))
	}

	return nil
}
