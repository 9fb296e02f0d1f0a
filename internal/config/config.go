// Package config loads fbsgen settings from flags, FBSGEN_* environment
// variables and an optional fbsgen.yaml file.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables, e.g. FBSGEN_NAMESPACE.
const EnvPrefix = "FBSGEN"

// FileName is the configuration file looked up in the working directory.
const FileName = "fbsgen.yaml"

// Config holds the settings of one generator run.
type Config struct {
	// Packages are Go package patterns to load annotated types from.
	Packages []string `mapstructure:"packages"`
	// Manifest is the path of a YAML descriptor manifest.
	Manifest string `mapstructure:"manifest"`
	// Types restricts rendering to these type names; empty means all.
	Types []string `mapstructure:"types"`
	// Output is the schema file to write; empty means stdout.
	Output string `mapstructure:"output"`
	// OutputDir, when set, receives one self-contained file per type
	// instead of a single Output file.
	OutputDir string `mapstructure:"output_dir"`
	// Namespace, RootType and Includes are written to the schema header.
	Namespace string   `mapstructure:"namespace"`
	RootType  string   `mapstructure:"root_type"`
	Includes  []string `mapstructure:"includes"`
	// CombineAttributes renders "(a, b: 1)" instead of "(a) (b: 1)".
	CombineAttributes bool `mapstructure:"combine_attributes"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`
	// LogJSON switches log output to JSON lines.
	LogJSON bool `mapstructure:"log_json"`

	Watch WatchConfig `mapstructure:"watch"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Dirs are watched for changes; empty means the directories of the
	// loaded packages and the manifest.
	Dirs []string `mapstructure:"dirs"`
	// Debounce collapses bursts of file events.
	Debounce time.Duration `mapstructure:"debounce"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		CombineAttributes: true,
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("packages", orEmpty(d.Packages))
	v.SetDefault("manifest", d.Manifest)
	v.SetDefault("types", orEmpty(d.Types))
	v.SetDefault("output", d.Output)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("namespace", d.Namespace)
	v.SetDefault("root_type", d.RootType)
	v.SetDefault("includes", orEmpty(d.Includes))
	v.SetDefault("combine_attributes", d.CombineAttributes)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("log_json", d.LogJSON)
	v.SetDefault("watch.dirs", orEmpty(d.Watch.Dirs))
	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// New creates a Viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	return v
}

// ReadFile merges the configuration file at path into v. With an empty path
// FileName is read from the working directory if it exists.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		if _, err := os.Stat(FileName); err != nil {
			return nil
		}

		path = FileName
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	return nil
}

// LoadWithViper loads configuration using a provided Viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	cfg.Packages = splitList(cfg.Packages)
	cfg.Types = splitList(cfg.Types)
	cfg.Includes = splitList(cfg.Includes)
	cfg.Watch.Dirs = splitList(cfg.Watch.Dirs)

	return &cfg, nil
}

// Validate checks that the configuration names an input.
func (c *Config) Validate() error {
	if len(c.Packages) == 0 && c.Manifest == "" {
		return errors.WithHint(
			errors.New("no input: neither packages nor manifest is set"),
			"pass --packages ./... or --manifest types.yaml, or set them in "+FileName)
	}

	if c.Output != "" && c.OutputDir != "" {
		return errors.New("output and output_dir are mutually exclusive")
	}

	return nil
}

// splitList flattens comma separated entries, as environment variables
// arrive as a single string.
func splitList(in []string) []string {
	var out []string

	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
