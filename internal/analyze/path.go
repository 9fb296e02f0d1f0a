package analyze

import (
	"strings"
)

// TypePath is a readable location inside a declared type, used in error
// messages. Examples:
//   - "Monster" for the type itself
//   - "Monster.Weapons" for a field
//   - "Boss.Stats.Level" for a field promoted from an embedded struct
type TypePath struct {
	parts []string
}

// NewTypePath creates a new TypePath from a root type name.
func NewTypePath(root string) *TypePath {
	return &TypePath{
		parts: []string{root},
	}
}

// Field appends a field name to the path.
func (p *TypePath) Field(name string) *TypePath {
	return &TypePath{
		parts: append(append([]string{}, p.parts...), name),
	}
}

// String returns the full path string.
func (p *TypePath) String() string {
	return strings.Join(p.parts, ".")
}
