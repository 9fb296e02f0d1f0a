package main

import (
	"context"
	"io"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"fbsgen/internal/manifest"
	"fbsgen/internal/schema"
)

func newExportCmd(a *app) *cobra.Command {
	var pkg string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the loaded declarations of one package as a YAML manifest",
		Long: `export converts the declarations of one package into manifest form, so
annotated Go types can be maintained as YAML from then on.

With --output-dir the manifest is named after the package.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.generator().export(cmd.Context(), cmd.OutOrStdout(), pkg)
		},
	}

	cmd.Flags().StringVar(&pkg, "from-package", "", "package whose declarations to export (default: the only loaded package)")

	return cmd
}

func (g *generator) export(ctx context.Context, w io.Writer, pkg string) error {
	set, err := g.loadSet(ctx)
	if err != nil {
		return err
	}

	m, err := manifest.FromSet(set, pkg)
	if err != nil {
		return err
	}

	data, err := manifest.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}

	return g.write(w, []schema.GeneratedFile{{Filename: path.Base(m.Package) + ".yaml", Content: data}})
}
