package manifest

import (
	"sort"

	"github.com/cockroachdb/errors"

	"fbsgen/internal/descriptor"
)

// FromSet converts the declarations of pkg in set into a manifest. References
// to other packages are written qualified. With an empty pkg the set must
// hold a single package.
func FromSet(set *descriptor.Set, pkg string) (*Manifest, error) {
	if pkg == "" {
		pkgs := Packages(set)
		if len(pkgs) != 1 {
			return nil, errors.WithHintf(
				errors.Newf("declarations span %d packages", len(pkgs)),
				"select one of %v", pkgs)
		}

		pkg = pkgs[0]
	}

	m := &Manifest{Version: "1", Package: pkg}

	for _, id := range set.IDs() {
		if id.PkgPath != pkg {
			continue
		}

		d, _ := set.Get(id)

		td, err := exportType(d, pkg)
		if err != nil {
			return nil, errors.Wrapf(err, "type %s", id)
		}

		m.Types = append(m.Types, td)
	}

	if len(m.Types) == 0 {
		return nil, errors.Newf("no declarations in package %s", pkg)
	}

	return m, nil
}

// Packages returns the sorted package paths declared in set.
func Packages(set *descriptor.Set) []string {
	seen := map[string]bool{}

	var out []string

	for _, id := range set.IDs() {
		if !seen[id.PkgPath] {
			seen[id.PkgPath] = true
			out = append(out, id.PkgPath)
		}
	}

	sort.Strings(out)

	return out
}

func exportType(d *descriptor.TypeDescriptor, pkg string) (TypeDef, error) {
	td := TypeDef{
		Name:     d.ID.Name,
		Kind:     d.Kind.String(),
		Metadata: exportMetadata(d.Metadata),
	}

	switch d.Kind {
	case descriptor.KindEnum:
		td.Underlying = d.Underlying
		for _, v := range d.Values {
			td.Values = append(td.Values, EnumValue{Name: v.Name, Value: v.Value})
		}

	case descriptor.KindUnion:
		for _, member := range d.Members {
			td.Members = append(td.Members, typeName(member, pkg))
		}

	default:
		for i := range d.Fields {
			f := &d.Fields[i]

			expr, err := typeExpr(f.Type, pkg)
			if err != nil {
				return td, errors.Wrapf(err, "field %s", f.Name)
			}

			fd := FieldDef{
				Name:       f.Name,
				Type:       expr,
				Required:   f.Required,
				Deprecated: f.Deprecated,
				Metadata:   exportMetadata(f.Metadata),
			}

			if f.OrderSet {
				order := f.Order
				fd.Order = &order
			}

			if f.Union != nil {
				fd.Union = typeName(*f.Union, pkg)
			}

			td.Fields = append(td.Fields, fd)
		}
	}

	return td, nil
}

// typeExpr is the inverse of ParseTypeExpr.
func typeExpr(ref descriptor.TypeRef, pkg string) (string, error) {
	switch ref.Kind {
	case descriptor.RefBasic:
		return ref.Name, nil
	case descriptor.RefAny:
		return "any", nil
	case descriptor.RefNamed:
		return typeName(ref.ID, pkg), nil
	case descriptor.RefSequence:
		elem, err := typeExpr(*ref.Elem, pkg)
		if err != nil {
			return "", err
		}

		return "[" + elem + "]", nil
	default:
		return "", errors.Newf("type %s has no manifest spelling", ref)
	}
}

func typeName(id descriptor.TypeID, pkg string) string {
	if id.PkgPath == pkg {
		return id.Name
	}

	return id.String()
}

func exportMetadata(md []descriptor.Metadata) MetadataList {
	var out MetadataList

	for _, m := range md {
		e := MetadataEntry{Name: m.Name}
		if m.HasValue {
			e.Value = m.Value
		}

		out = append(out, e)
	}

	return out
}
