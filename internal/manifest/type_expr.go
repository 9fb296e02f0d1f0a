package manifest

import (
	"strings"

	"github.com/cockroachdb/errors"

	"fbsgen/internal/descriptor"
	"fbsgen/internal/typemodel"
)

// ParseTypeExpr parses a field type expression. Bare names refer to pkg.
// Supports: "int32", "any", "[Weapon]", "[[int32]]", "game/items.Weapon".
func ParseTypeExpr(expr, pkg string) (descriptor.TypeRef, error) {
	s := strings.TrimSpace(expr)

	switch {
	case s == "":
		return descriptor.TypeRef{}, errors.New("empty type expression")

	case strings.HasPrefix(s, "["):
		if !strings.HasSuffix(s, "]") {
			return descriptor.TypeRef{}, errors.Newf("invalid type %q: unbalanced brackets", expr)
		}

		elem, err := ParseTypeExpr(s[1:len(s)-1], pkg)
		if err != nil {
			return descriptor.TypeRef{}, errors.Wrapf(err, "element of %q", expr)
		}

		return descriptor.SequenceOf(elem), nil

	case s == "any":
		return descriptor.Any(), nil
	}

	if _, ok := typemodel.BaseTypeOf(s); ok {
		return descriptor.Basic(s), nil
	}

	id, err := parseTypeName(s, pkg)
	if err != nil {
		return descriptor.TypeRef{}, err
	}

	return descriptor.Named(id), nil
}

// parseTypeName resolves "Name" within pkg or a qualified "pkg/path.Name".
func parseTypeName(s, pkg string) (descriptor.TypeID, error) {
	id := descriptor.ParseTypeID(s)
	if id.PkgPath == "" {
		id.PkgPath = pkg
	}

	if !descriptor.IsIdent(id.Name) {
		return descriptor.TypeID{}, errors.Newf("invalid type %q: %q is not an identifier", s, id.Name)
	}

	return id, nil
}
