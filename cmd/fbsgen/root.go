package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"fbsgen/internal/config"
	"fbsgen/internal/logging"
)

// app carries the state shared by all subcommands.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New(), log: logging.Nop()}

	root := &cobra.Command{
		Use:   "fbsgen",
		Short: "Generate FlatBuffers schemas from Go types and YAML manifests",
		Long: `fbsgen derives FlatBuffers type models from declared types and renders
them as canonical schema (.fbs) text.

Types come from Go packages annotated with //fbs: directives and fbs struct
tags, from a YAML manifest, or both.

Examples:
  fbsgen gen --packages ./model/... -o schema/model.fbs
  fbsgen gen --manifest types.yaml --types Monster --root-type Monster
  fbsgen check --packages ./model/... -o schema/model.fbs
  fbsgen dump --manifest types.yaml
  fbsgen export --packages ./model -o types.yaml
  fbsgen watch --packages ./model/... --output-dir schema`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./"+config.FileName+" if present)")
	flags.StringSlice("packages", nil, "Go package patterns to load annotated types from")
	flags.String("manifest", "", "YAML manifest of type descriptors")
	flags.StringSlice("types", nil, "types to render (default: every declared type)")
	flags.StringP("output", "o", "", "schema file to write (default: stdout)")
	flags.String("output-dir", "", "write one self-contained schema file per type into this directory")
	flags.String("namespace", "", "namespace declared at the top of each file")
	flags.String("root-type", "", "table declared as root_type")
	flags.StringSlice("include", nil, "schema files to include")
	flags.Bool("combine-attributes", config.Default().CombineAttributes, "render attributes as one (a, b) list")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Bool("log-json", false, "log JSON lines instead of console text")

	bindings := map[string]string{
		"packages":           "packages",
		"manifest":           "manifest",
		"types":              "types",
		"output":             "output",
		"output_dir":         "output-dir",
		"namespace":          "namespace",
		"root_type":          "root-type",
		"includes":           "include",
		"combine_attributes": "combine-attributes",
		"verbose":            "verbose",
		"log_json":           "log-json",
	}
	for key, name := range bindings {
		// Only fails on a nil flag, which means the table above is wrong.
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(errors.Wrapf(err, "binding flag --%s", name))
		}
	}

	root.AddCommand(
		newGenCmd(a),
		newCheckCmd(a),
		newDumpCmd(a),
		newWatchCmd(a),
		newExportCmd(a),
	)

	return root
}

// setup loads the configuration and builds the logger before any
// subcommand runs.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	if err := config.ReadFile(a.v, a.configPath); err != nil {
		return err
	}

	cfg, err := config.LoadWithViper(a.v)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Verbose, cfg.LogJSON)
	if err != nil {
		return errors.Wrap(err, "failed to build logger")
	}

	a.cfg = cfg
	a.log = log

	return nil
}

func (a *app) generator() *generator {
	return newGenerator(a.cfg, a.log)
}
