package descriptor

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Metadata is a schema attribute attached to a type or field.
// Value is an int64, bool or string when HasValue is true.
type Metadata struct {
	Name     string
	Value    any
	HasValue bool
}

// Flag returns a valueless attribute.
func Flag(name string) Metadata {
	return Metadata{Name: name}
}

// IntMeta returns an integer-valued attribute.
func IntMeta(name string, v int64) Metadata {
	return Metadata{Name: name, Value: v, HasValue: true}
}

// BoolMeta returns a boolean-valued attribute.
func BoolMeta(name string, v bool) Metadata {
	return Metadata{Name: name, Value: v, HasValue: true}
}

// StringMeta returns a string-valued attribute.
func StringMeta(name, v string) Metadata {
	return Metadata{Name: name, Value: v, HasValue: true}
}

func (m Metadata) validate() error {
	if !IsIdent(m.Name) {
		return errors.Wrapf(ErrInvalidDescriptor, "metadata name %q is not an identifier", m.Name)
	}

	if !m.HasValue {
		return nil
	}

	switch m.Value.(type) {
	case int64, bool, string:
		return nil
	default:
		return errors.Wrapf(ErrInvalidDescriptor, "metadata %q has unsupported value type %T", m.Name, m.Value)
	}
}

// ParseMetadataValue types a textual value: quoted text is a string,
// true/false a bool, an integer literal an int64, anything else a string.
func ParseMetadataValue(s string) any {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	switch s {
	case "true":
		return true
	case "false":
		return false
	}

	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return n
	}

	return s
}

// ParseMetadataList parses "key=value;flag;key2='text'" into entries.
// Empty segments are skipped; order and duplicates are kept.
func ParseMetadataList(s string) ([]Metadata, error) {
	var out []Metadata

	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, "=")

		m := Metadata{Name: strings.TrimSpace(key)}
		if hasValue {
			m.Value = ParseMetadataValue(value)
			m.HasValue = true
		}

		if err := m.validate(); err != nil {
			return nil, err
		}

		out = append(out, m)
	}

	return out, nil
}

// IsIdent reports whether s is an ASCII identifier usable as a schema name.
func IsIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}
