package typemodel

import (
	"strconv"

	"fbsgen/internal/descriptor"
)

// TypeModel is the derived structural description of one type.
type TypeModel struct {
	ID       descriptor.TypeID // zero for scalars and vectors
	Name     string
	BaseType BaseType
	IsEnum   bool

	// ElementType is set for vectors only.
	ElementType *TypeModel
	// StructDef is set for structs and tables only.
	StructDef *StructDef
	// EnumValues holds enum constants in ascending numeric order.
	EnumValues []EnumValue
	// UnionMembers holds the member tables of a union.
	UnionMembers []*TypeModel
	// Metadata holds type-level schema attributes.
	Metadata []descriptor.Metadata
}

// IsScalar reports whether the model is a plain scalar (not an enum).
func (m *TypeModel) IsScalar() bool {
	return !m.IsEnum && m.BaseType.IsScalar()
}

// IsVector reports whether the model is a vector.
func (m *TypeModel) IsVector() bool {
	return m.BaseType == BaseTypeVector
}

// IsUnion reports whether the model is a union.
func (m *TypeModel) IsUnion() bool {
	return m.BaseType == BaseTypeUnion
}

// IsTable reports whether the model has a variable-layout definition.
func (m *TypeModel) IsTable() bool {
	return m.StructDef != nil && !m.StructDef.IsFixed
}

// IsFixedStruct reports whether the model has a fixed-layout definition.
func (m *TypeModel) IsFixedStruct() bool {
	return m.StructDef != nil && m.StructDef.IsFixed
}

// IsInline reports whether values of the model are stored inline in a struct.
func (m *TypeModel) IsInline() bool {
	return m.IsEnum || m.BaseType.IsInline() || m.IsFixedStruct()
}

// IsDeclaration reports whether the model renders as a top-level declaration.
func (m *TypeModel) IsDeclaration() bool {
	return m.IsEnum || m.StructDef != nil || m.IsUnion()
}

// StructDef is the table/struct part of a TypeModel.
type StructDef struct {
	// Fields are sorted by effective order.
	Fields  []*FieldTypeDefinition
	IsFixed bool
}

// Field returns the field with the given name, or nil.
func (s *StructDef) Field(name string) *FieldTypeDefinition {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}

	return nil
}

// FieldTypeDefinition is one resolved field of a StructDef.
type FieldTypeDefinition struct {
	Name       string
	TypeModel  *TypeModel
	Order      int
	Required   bool
	Deprecated bool
	// UnionType is set for union fields; TypeModel then points at the same union.
	UnionType *TypeModel
	// Metadata is schema text only; it has no effect on wire layout.
	Metadata []descriptor.Metadata
}

// EnumValue is one enum constant.
type EnumValue struct {
	Name  string
	Value int64
}

// FormatValue renders an enum value of the given underlying type, reading
// uint64 bit patterns as unsigned.
func FormatValue(v int64, underlying BaseType) string {
	if underlying == BaseTypeUInt64 {
		return strconv.FormatUint(uint64(v), 10)
	}

	return strconv.FormatInt(v, 10)
}

// Less orders enum values numerically for the underlying type.
func Less(a, b int64, underlying BaseType) bool {
	if underlying == BaseTypeUInt64 {
		return uint64(a) < uint64(b)
	}

	return a < b
}
