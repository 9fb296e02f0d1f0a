package manifest

// Manifest is the root of a descriptor manifest file.
type Manifest struct {
	// Version of the manifest format. Defaults to "1".
	Version string `yaml:"version"`
	// Package is the package path of every declared type. Defaults to
	// DefaultPackage.
	Package string `yaml:"package,omitempty"`
	// Types are the declared types, in declaration order.
	Types []TypeDef `yaml:"types"`
}

// DefaultPackage is the package path used when a manifest does not set one.
const DefaultPackage = "manifest"

// TypeDef declares one table, struct, enum or union.
type TypeDef struct {
	Name string `yaml:"name"`
	// Kind is one of table, struct, enum, union.
	Kind string `yaml:"kind"`
	// Underlying is the integral Go type of an enum (e.g., "uint8").
	Underlying string `yaml:"underlying,omitempty"`
	// Values are the constants of an enum.
	Values EnumValues `yaml:"values,omitempty"`
	// Members are the member tables of a union.
	Members StringOrArray `yaml:"members,omitempty"`
	// Fields of a table or struct, in declaration order.
	Fields []FieldDef `yaml:"fields,omitempty"`
	// Metadata is rendered after the type name.
	Metadata MetadataList `yaml:"metadata,omitempty"`
}

// FieldDef declares one field of a table or struct.
type FieldDef struct {
	Name string `yaml:"name"`
	// Type is a type expression, see the package documentation.
	Type string `yaml:"type"`
	// Order is the explicit field position; nil means declaration order.
	Order      *int         `yaml:"order,omitempty"`
	Required   bool         `yaml:"required,omitempty"`
	Deprecated bool         `yaml:"deprecated,omitempty"`
	Union      string       `yaml:"union,omitempty"`
	Metadata   MetadataList `yaml:"metadata,omitempty"`
}

// StringOrArray accepts either a single string or an array of strings.
type StringOrArray []string

// EnumValues are enum constants in declaration order. In YAML they are a
// mapping of name to value, or a list of names and single-entry mappings
// where a bare name takes the previous value plus one.
type EnumValues []EnumValue

// EnumValue is one enum constant.
type EnumValue struct {
	Name  string
	Value int64
}

// MetadataList is an ordered list of metadata entries. In YAML it is a
// "key=value;flag" string, a mapping, or a list of either.
type MetadataList []MetadataEntry

// MetadataEntry is one metadata attribute. Value is nil for flags.
type MetadataEntry struct {
	Name  string
	Value any
}
