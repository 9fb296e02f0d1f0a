package manifest

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// LoadFile loads and parses a manifest from the given path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest %s", path)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}

	return m, nil
}

// Parse parses YAML data into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest

	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest YAML")
	}

	applyDefaults(&m)

	return &m, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(m *Manifest) {
	if m.Version == "" {
		m.Version = "1"
	}

	if m.Package == "" {
		m.Package = DefaultPackage
	}
}

// Marshal serializes a Manifest to YAML.
func Marshal(m *Manifest) ([]byte, error) {
	return yaml.Marshal(m)
}
