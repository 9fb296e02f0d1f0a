package typemodel

import (
	"math"

	"fbsgen/internal/common"
)

// BaseType is the closed set of schema categories.
type BaseType int

const (
	BaseTypeNone BaseType = iota // invalid default
	BaseTypeBool
	BaseTypeInt8
	BaseTypeUInt8
	BaseTypeInt16
	BaseTypeUInt16
	BaseTypeInt32
	BaseTypeUInt32
	BaseTypeInt64
	BaseTypeUInt64
	BaseTypeFloat32
	BaseTypeFloat64
	BaseTypeString
	BaseTypeVector
	BaseTypeStruct
	BaseTypeUnion
)

// keywords are the FlatBuffers IDL spellings; they must match flatc verbatim.
var keywords = map[BaseType]string{
	BaseTypeBool:    "bool",
	BaseTypeInt8:    "byte",
	BaseTypeUInt8:   "ubyte",
	BaseTypeInt16:   "short",
	BaseTypeUInt16:  "ushort",
	BaseTypeInt32:   "int",
	BaseTypeUInt32:  "uint",
	BaseTypeInt64:   "long",
	BaseTypeUInt64:  "ulong",
	BaseTypeFloat32: "float",
	BaseTypeFloat64: "double",
	BaseTypeString:  "string",
}

// goBasics maps Go basic type names to base types. int and uint are taken
// as 64 bit.
var goBasics = map[string]BaseType{
	"bool":    BaseTypeBool,
	"int8":    BaseTypeInt8,
	"uint8":   BaseTypeUInt8,
	"byte":    BaseTypeUInt8,
	"int16":   BaseTypeInt16,
	"uint16":  BaseTypeUInt16,
	"int32":   BaseTypeInt32,
	"rune":    BaseTypeInt32,
	"uint32":  BaseTypeUInt32,
	"int64":   BaseTypeInt64,
	"int":     BaseTypeInt64,
	"uint64":  BaseTypeUInt64,
	"uint":    BaseTypeUInt64,
	"float32": BaseTypeFloat32,
	"float64": BaseTypeFloat64,
	"string":  BaseTypeString,
}

// BaseTypeOf maps a Go basic type name to its base type.
func BaseTypeOf(goName string) (BaseType, bool) {
	b, ok := goBasics[goName]
	return b, ok
}

// Keyword returns the IDL keyword, or "" for vector, struct and union.
func (b BaseType) Keyword() string {
	return keywords[b]
}

// String returns the keyword, or a descriptive name for composite types.
func (b BaseType) String() string {
	if kw := b.Keyword(); kw != "" {
		return kw
	}

	switch b {
	case BaseTypeVector:
		return "vector"
	case BaseTypeStruct:
		return "struct"
	case BaseTypeUnion:
		return "union"
	default:
		return common.UnknownStr
	}
}

// IsScalar reports whether the base type has a fixed keyword.
func (b BaseType) IsScalar() bool {
	return b.Keyword() != ""
}

// IsInline reports whether values are stored inline (numbers and bool).
func (b BaseType) IsInline() bool {
	return b.IsScalar() && b != BaseTypeString
}

// IsIntegral reports whether the base type is an integer of any width.
func (b BaseType) IsIntegral() bool {
	switch b {
	case BaseTypeInt8, BaseTypeUInt8, BaseTypeInt16, BaseTypeUInt16,
		BaseTypeInt32, BaseTypeUInt32, BaseTypeInt64, BaseTypeUInt64:
		return true
	default:
		return false
	}
}

// IsEnumUnderlying reports whether the base type may underlie an enum:
// an integer of at most 32 bits.
func (b BaseType) IsEnumUnderlying() bool {
	return b.IsIntegral() && b.Size() <= 4
}

// IsUnsigned reports whether the base type is an unsigned integer.
func (b BaseType) IsUnsigned() bool {
	switch b {
	case BaseTypeUInt8, BaseTypeUInt16, BaseTypeUInt32, BaseTypeUInt64:
		return true
	default:
		return false
	}
}

// Size returns the inline size in bytes, or 0 for non-inline types.
func (b BaseType) Size() int {
	switch b {
	case BaseTypeBool, BaseTypeInt8, BaseTypeUInt8:
		return 1
	case BaseTypeInt16, BaseTypeUInt16:
		return 2
	case BaseTypeInt32, BaseTypeUInt32, BaseTypeFloat32:
		return 4
	case BaseTypeInt64, BaseTypeUInt64, BaseTypeFloat64:
		return 8
	default:
		return 0
	}
}

// Fits reports whether v (a two's complement bit pattern for uint64) is
// representable by the integral base type.
func (b BaseType) Fits(v int64) bool {
	switch b {
	case BaseTypeInt8:
		return v >= math.MinInt8 && v <= math.MaxInt8
	case BaseTypeUInt8:
		return v >= 0 && v <= math.MaxUint8
	case BaseTypeInt16:
		return v >= math.MinInt16 && v <= math.MaxInt16
	case BaseTypeUInt16:
		return v >= 0 && v <= math.MaxUint16
	case BaseTypeInt32:
		return v >= math.MinInt32 && v <= math.MaxInt32
	case BaseTypeUInt32:
		return v >= 0 && v <= math.MaxUint32
	case BaseTypeInt64, BaseTypeUInt64:
		return true
	default:
		return false
	}
}
