package schema

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"fbsgen/internal/descriptor"
	"fbsgen/internal/typemodel"
)

const indent = "    "

// Writer renders type models as schema text into an io.Writer.
// A Writer is not safe for concurrent use.
type Writer struct {
	w       io.Writer
	combine bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// CombineAttributes renders all attributes of a field or type as one
// comma separated list, e.g. "(deprecated, priority: 1)", instead of one
// parenthesized group per attribute.
func CombineAttributes() WriterOption {
	return func(w *Writer) {
		w.combine = true
	}
}

// NewWriter creates a Writer that writes to w.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	wr := &Writer{w: w}
	for _, opt := range opts {
		opt(wr)
	}

	return wr
}

// Render writes the declaration of m. Nothing is written when m cannot be
// rendered.
func (w *Writer) Render(m *typemodel.TypeModel) error {
	var buf bytes.Buffer

	if err := w.render(&buf, m); err != nil {
		return err
	}

	if _, err := buf.WriteTo(w.w); err != nil {
		return errors.Wrapf(err, "writing %s", m.Name)
	}

	return nil
}

// RenderType derives the model of id from reg and renders it.
func (w *Writer) RenderType(reg *typemodel.Registry, id descriptor.TypeID) error {
	m, err := reg.Derive(id)
	if err != nil {
		return err
	}

	return w.Render(m)
}

func (w *Writer) render(buf *bytes.Buffer, m *typemodel.TypeModel) error {
	if m == nil {
		return errors.Wrap(typemodel.ErrUnsupportedOperation, "nil type model")
	}

	switch {
	case m.IsEnum:
		return w.renderEnum(buf, m)
	case m.StructDef != nil:
		return w.renderStruct(buf, m)
	case m.IsUnion():
		return w.renderUnion(buf, m)
	case m.BaseType == typemodel.BaseTypeStruct:
		return errors.Wrapf(typemodel.ErrUnsupportedOperation, "%s has no struct definition", m.Name)
	default:
		return errors.Wrapf(typemodel.ErrUnsupportedOperation,
			"%s is a %s, not an enum, struct, table or union", m.Name, m.BaseType)
	}
}

func (w *Writer) renderEnum(buf *bytes.Buffer, m *typemodel.TypeModel) error {
	kw := m.BaseType.Keyword()
	if !m.BaseType.IsEnumUnderlying() {
		return errors.Wrapf(typemodel.ErrUnsupportedOperation,
			"enum %s: underlying type %s is not an integer of at most 32 bits", m.Name, m.BaseType)
	}

	buf.WriteString("enum " + m.Name + " : " + kw)
	buf.WriteString(w.attributes(nil, m.Metadata))
	buf.WriteString(" {\n")

	// Once one member needs an explicit value, every later member gets one.
	explicit := false

	for i, v := range m.EnumValues {
		if !explicit && v.Value != int64(i) {
			explicit = true
		}

		buf.WriteString(indent + v.Name)

		if explicit {
			buf.WriteString(" = " + typemodel.FormatValue(v.Value, m.BaseType))
		}

		if i < len(m.EnumValues)-1 {
			buf.WriteByte(',')
		}

		buf.WriteByte('\n')
	}

	buf.WriteString("}\n")

	return nil
}

func (w *Writer) renderStruct(buf *bytes.Buffer, m *typemodel.TypeModel) error {
	keyword := "table"
	if m.StructDef.IsFixed {
		keyword = "struct"
	}

	buf.WriteString(keyword + " " + m.Name)
	buf.WriteString(w.attributes(nil, m.Metadata))
	buf.WriteString(" {\n")

	for _, f := range m.StructDef.Fields {
		typeName, err := TypeName(f.TypeModel)
		if err != nil {
			return errors.Wrapf(err, "field %s of %s", f.Name, m.Name)
		}

		buf.WriteString(indent + f.Name + ":" + typeName)
		buf.WriteString(w.attributes(fieldFlags(f), f.Metadata))
		buf.WriteString(";\n")
	}

	buf.WriteString("}\n")

	return nil
}

func (w *Writer) renderUnion(buf *bytes.Buffer, m *typemodel.TypeModel) error {
	if len(m.UnionMembers) == 0 {
		return errors.Wrapf(typemodel.ErrUnsupportedOperation, "union %s has no members", m.Name)
	}

	buf.WriteString("union " + m.Name)
	buf.WriteString(w.attributes(nil, m.Metadata))
	buf.WriteString(" {\n")

	for i, member := range m.UnionMembers {
		buf.WriteString(indent + member.Name)

		if i < len(m.UnionMembers)-1 {
			buf.WriteByte(',')
		}

		buf.WriteByte('\n')
	}

	buf.WriteString("}\n")

	return nil
}

func fieldFlags(f *typemodel.FieldTypeDefinition) []string {
	var flags []string

	if f.Deprecated {
		flags = append(flags, "deprecated")
	}

	if f.Required {
		flags = append(flags, "required")
	}

	return flags
}

// attributes formats flags followed by metadata, with a leading space, or
// returns "" when there is nothing to render.
func (w *Writer) attributes(flags []string, md []descriptor.Metadata) string {
	items := make([]string, 0, len(flags)+len(md))
	items = append(items, flags...)

	for _, m := range md {
		items = append(items, formatMetadata(m))
	}

	if len(items) == 0 {
		return ""
	}

	if w.combine {
		return " (" + strings.Join(items, ", ") + ")"
	}

	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(" (" + item + ")")
	}

	return sb.String()
}

func formatMetadata(m descriptor.Metadata) string {
	if !m.HasValue {
		return m.Name
	}

	return m.Name + ": " + formatMetadataValue(m.Value)
}

func formatMetadataValue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return strconv.Quote(fmt.Sprint(v))
	}
}
