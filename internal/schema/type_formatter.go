package schema

import (
	"github.com/cockroachdb/errors"

	"fbsgen/internal/typemodel"
)

// TypeName returns the schema spelling of a field type: the scalar keyword,
// the declared name of an enum, struct, table or union, or "[elem]" for
// vectors, nested as deep as the element types go.
func TypeName(m *typemodel.TypeModel) (string, error) {
	if m == nil {
		return "", errors.Wrap(typemodel.ErrUnsupportedOperation, "missing field type")
	}

	switch {
	case m.IsEnum, m.StructDef != nil, m.IsUnion():
		return m.Name, nil
	case m.IsVector():
		if m.ElementType == nil {
			return "", errors.Wrap(typemodel.ErrUnsupportedOperation, "vector without element type")
		}

		elem, err := TypeName(m.ElementType)
		if err != nil {
			return "", err
		}

		return "[" + elem + "]", nil
	}

	if kw := m.BaseType.Keyword(); kw != "" {
		return kw, nil
	}

	return "", errors.Wrapf(typemodel.ErrUnsupportedOperation, "%s has no schema type name", m.BaseType)
}
