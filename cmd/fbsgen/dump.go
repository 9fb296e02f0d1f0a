package main

import (
	"context"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"fbsgen/internal/schema"
)

// dumpConfig prints models without addresses so output is stable across
// runs. Cycles are cut by spew itself.
var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	MaxDepth:                6,
}

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the derived type models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.generator().dump(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (g *generator) dump(ctx context.Context, w io.Writer) error {
	_, reg, err := g.generate(ctx)
	if err != nil {
		return err
	}

	set := reg.Descriptors()

	ids, err := g.selected(set)
	if err != nil {
		return err
	}

	decls, err := schema.Declarations(reg, ids...)
	if err != nil {
		return err
	}

	for _, m := range decls {
		dumpConfig.Fdump(w, m)
	}

	return nil
}
