package descriptor

import (
	"strings"

	"fbsgen/internal/common"
)

// TypeID uniquely identifies a declared type by its package path and name.
type TypeID struct {
	PkgPath string // e.g., "fbsgen/examples/monster"
	Name    string // e.g., "Monster"
}

// String returns a human-readable representation of the TypeID.
func (t TypeID) String() string {
	if t.PkgPath == "" {
		return t.Name
	}

	return t.PkgPath + "." + t.Name
}

// IsZero reports whether the TypeID is unset.
func (t TypeID) IsZero() bool {
	return t.PkgPath == "" && t.Name == ""
}

// ParseTypeID splits "pkg/path.Name" into a TypeID. A string without a dot
// becomes a bare name.
func ParseTypeID(s string) TypeID {
	slash := strings.LastIndex(s, "/")

	dot := strings.LastIndex(s, ".")
	if dot <= slash {
		return TypeID{Name: s}
	}

	return TypeID{PkgPath: s[:dot], Name: s[dot+1:]}
}

// Kind classifies a TypeDescriptor.
type Kind int

const (
	KindUnknown Kind = iota
	KindTable        // variable layout, offset-indirected fields
	KindStruct       // fixed layout, inline fields
	KindEnum         // named integral type with constants
	KindUnion        // variant marker with member tables
)

// String returns the schema keyword of the kind.
func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindUnion:
		return "union"
	default:
		return common.UnknownStr
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range []Kind{KindTable, KindStruct, KindEnum, KindUnion} {
		if k.String() == s {
			return k, true
		}
	}

	return KindUnknown, false
}

// RefKind classifies a TypeRef.
type RefKind int

const (
	RefInvalid  RefKind = iota
	RefBasic            // Go basic type by name: int32, string, ...
	RefNamed            // reference to another declared type
	RefSequence         // slice or array of Elem
	RefAny              // the "any variant" placeholder used by union fields
	RefOpaque           // a type with no schema mapping, kept for error messages
)

// TypeRef is the declared type of a field, before resolution.
type TypeRef struct {
	Kind RefKind
	Name string   // basic type name, or the Go spelling of an opaque type
	ID   TypeID   // for RefNamed
	Elem *TypeRef // for RefSequence
}

// Basic references a Go basic type such as "int32" or "string".
func Basic(name string) TypeRef {
	return TypeRef{Kind: RefBasic, Name: name}
}

// Named references another declared type.
func Named(id TypeID) TypeRef {
	return TypeRef{Kind: RefNamed, ID: id}
}

// SequenceOf references a sequence of elem.
func SequenceOf(elem TypeRef) TypeRef {
	return TypeRef{Kind: RefSequence, Elem: &elem}
}

// Any references the variant placeholder.
func Any() TypeRef {
	return TypeRef{Kind: RefAny}
}

// Opaque records a type that has no schema representation.
func Opaque(goType string) TypeRef {
	return TypeRef{Kind: RefOpaque, Name: goType}
}

// String returns the Go-like spelling of the reference.
func (r TypeRef) String() string {
	switch r.Kind {
	case RefBasic, RefOpaque:
		return r.Name
	case RefNamed:
		return r.ID.String()
	case RefSequence:
		if r.Elem == nil {
			return "[]<nil>"
		}

		return "[]" + r.Elem.String()
	case RefAny:
		return common.AnyTypeStr
	default:
		return "<invalid>"
	}
}

// EnumValue is one named constant of an enum.
// Values of uint64 enums above MaxInt64 are stored as their two's complement bit pattern.
type EnumValue struct {
	Name  string
	Value int64
}

// TypeDescriptor describes one declared type.
type TypeDescriptor struct {
	ID       TypeID
	Kind     Kind
	Fields   []FieldDescriptor // tables and structs, in declaration order
	Metadata []Metadata        // type-level schema attributes

	// Underlying is the Go basic name of an enum's integral type.
	Underlying string
	// Values are the enum constants in declaration order.
	Values []EnumValue

	// Members lists the tables of a union.
	Members []TypeID
}

// IsUnion reports whether the descriptor carries the union marker.
func (d *TypeDescriptor) IsUnion() bool {
	return d != nil && d.Kind == KindUnion
}

// IsStructLike reports whether the descriptor is a table or a struct.
func (d *TypeDescriptor) IsStructLike() bool {
	return d != nil && (d.Kind == KindTable || d.Kind == KindStruct)
}

// Field returns the field with the given schema name, or nil.
func (d *TypeDescriptor) Field(name string) *FieldDescriptor {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}

	return nil
}
