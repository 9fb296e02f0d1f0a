package manifest

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"fbsgen/internal/descriptor"
	"fbsgen/internal/typemodel"
)

var (
	kindHint           = "kind is one of: table, struct, enum, union"
	enumUnderlyingHint = "underlying is one of: " + strings.Join(
		[]string{"int8", "uint8", "int16", "uint16", "int32", "uint32"}, ", ")
)

// Validate checks the manifest and the descriptors it describes, reporting
// every problem rather than stopping at the first.
func (m *Manifest) Validate() *descriptor.Report {
	r := &descriptor.Report{}
	if m == nil {
		r.Fail("manifest_is_nil", descriptor.TypeID{}, "", "manifest is nil")
		return r
	}

	seen := map[string]struct{}{}

	for i := range m.Types {
		td := &m.Types[i]

		if !descriptor.IsIdent(td.Name) {
			r.Fail("invalid_name", descriptor.TypeID{}, "", fmt.Sprintf("type #%d has invalid name %q", i+1, td.Name))
			continue
		}

		at := m.typeID(td.Name)

		if _, ok := seen[td.Name]; ok {
			r.Fail("duplicate_type", at, "", fmt.Sprintf("type %q declared twice", td.Name))
			continue
		}

		seen[td.Name] = struct{}{}

		kind, ok := descriptor.ParseKind(td.Kind)
		if !ok {
			r.Fail("unknown_kind", at, "", fmt.Sprintf("unknown kind %q", td.Kind), kindHint)
			continue
		}

		switch kind {
		case descriptor.KindEnum:
			validateEnum(r, at, td)
		case descriptor.KindUnion:
			validateUnion(r, at, td, m.Package)
		default:
			validateFields(r, at, td, m.Package)
		}

		warnIgnored(r, at, td, kind)
	}

	if r.HasErrors() {
		return r
	}

	set, err := m.buildSet()
	if err != nil {
		r.Fail("invalid_descriptor", descriptor.TypeID{}, "", err.Error())
		return r
	}

	r.Merge(set.Diagnose())

	return r
}

func (m *Manifest) typeID(name string) descriptor.TypeID {
	return descriptor.TypeID{PkgPath: m.Package, Name: name}
}

func validateEnum(r *descriptor.Report, at descriptor.TypeID, td *TypeDef) {
	under, ok := typemodel.BaseTypeOf(td.Underlying)
	if !ok || !under.IsEnumUnderlying() {
		r.Fail("invalid_underlying", at, "",
			fmt.Sprintf("enum underlying type %q is not an integer of at most 32 bits", td.Underlying),
			enumUnderlyingHint)

		return
	}

	if len(td.Values) == 0 {
		r.Fail("empty_enum", at, "", "enum declares no values")
	}

	names := map[string]struct{}{}

	for _, v := range td.Values {
		if !descriptor.IsIdent(v.Name) {
			r.Fail("invalid_value_name", at, v.Name, fmt.Sprintf("invalid enum value name %q", v.Name))
		}

		if _, dup := names[v.Name]; dup {
			r.Fail("duplicate_value", at, v.Name, fmt.Sprintf("enum value %q declared twice", v.Name))
		}

		names[v.Name] = struct{}{}

		if !under.Fits(v.Value) {
			r.Fail("value_out_of_range", at, v.Name, fmt.Sprintf("value %d does not fit %s", v.Value, td.Underlying))
		}
	}
}

func validateUnion(r *descriptor.Report, at descriptor.TypeID, td *TypeDef, pkg string) {
	if len(td.Members) == 0 {
		r.Fail("empty_union", at, "", "union declares no members")
	}

	for _, member := range td.Members {
		if _, err := parseTypeName(member, pkg); err != nil {
			r.Fail("invalid_member", at, member, err.Error())
		}
	}
}

func validateFields(r *descriptor.Report, at descriptor.TypeID, td *TypeDef, pkg string) {
	names := map[string]struct{}{}

	for i := range td.Fields {
		f := &td.Fields[i]

		if !descriptor.IsIdent(f.Name) {
			r.Fail("invalid_field_name", at, f.Name, fmt.Sprintf("field #%d has invalid name %q", i+1, f.Name))
			continue
		}

		if _, dup := names[f.Name]; dup {
			r.Fail("duplicate_field", at, f.Name, fmt.Sprintf("field %q declared twice", f.Name))
		}

		names[f.Name] = struct{}{}

		ref, err := ParseTypeExpr(f.Type, pkg)
		if err != nil {
			r.Fail("invalid_type", at, f.Name, err.Error())
		}

		if f.Order != nil && *f.Order < 0 {
			r.Fail("negative_order", at, f.Name, fmt.Sprintf("negative order %d", *f.Order))
		}

		if f.Union == "" {
			continue
		}

		if _, err := parseTypeName(f.Union, pkg); err != nil {
			r.Fail("invalid_union_ref", at, f.Name, err.Error())
		}

		if err == nil && ref.Kind != descriptor.RefAny {
			r.Fail("union_field_not_any", at, f.Name,
				fmt.Sprintf("union field must have type any, not %q", f.Type), "declare the field as type: any")
		}
	}
}

func warnIgnored(r *descriptor.Report, at descriptor.TypeID, td *TypeDef, kind descriptor.Kind) {
	if kind != descriptor.KindEnum && (td.Underlying != "" || len(td.Values) > 0) {
		r.Warn("ignored_key", at, "", "underlying and values apply to enums only")
	}

	if kind != descriptor.KindUnion && len(td.Members) > 0 {
		r.Warn("ignored_key", at, "", "members apply to unions only")
	}

	if (kind == descriptor.KindEnum || kind == descriptor.KindUnion) && len(td.Fields) > 0 {
		r.Warn("ignored_key", at, "", "fields apply to tables and structs only")
	}
}

// DescriptorSet validates the manifest and converts it to a descriptor set.
func (m *Manifest) DescriptorSet() (*descriptor.Set, error) {
	if err := m.Validate().Err(); err != nil {
		return nil, errors.Wrap(err, "invalid manifest")
	}

	return m.buildSet()
}

// buildSet converts the manifest without the batch checks of Validate.
func (m *Manifest) buildSet() (*descriptor.Set, error) {
	set := descriptor.NewSet()

	for i := range m.Types {
		td := &m.Types[i]

		desc, err := m.typeDescriptor(td)
		if err != nil {
			return nil, errors.Wrapf(err, "type %s", td.Name)
		}

		if err := set.Add(desc); err != nil {
			return nil, err
		}
	}

	return set, nil
}

func (m *Manifest) typeDescriptor(td *TypeDef) (descriptor.TypeDescriptor, error) {
	kind, ok := descriptor.ParseKind(td.Kind)
	if !ok {
		return descriptor.TypeDescriptor{}, errors.Wrapf(descriptor.ErrInvalidDescriptor, "unknown kind %q", td.Kind)
	}

	desc := descriptor.TypeDescriptor{
		ID:       m.typeID(td.Name),
		Kind:     kind,
		Metadata: td.Metadata.Descriptors(),
	}

	switch kind {
	case descriptor.KindEnum:
		desc.Underlying = td.Underlying
		for _, v := range td.Values {
			desc.Values = append(desc.Values, descriptor.EnumValue{Name: v.Name, Value: v.Value})
		}

	case descriptor.KindUnion:
		for _, member := range td.Members {
			id, err := parseTypeName(member, m.Package)
			if err != nil {
				return desc, err
			}

			desc.Members = append(desc.Members, id)
		}

	default:
		for i := range td.Fields {
			fd, err := m.fieldDescriptor(&td.Fields[i])
			if err != nil {
				return desc, err
			}

			desc.Fields = append(desc.Fields, fd)
		}
	}

	return desc, nil
}

func (m *Manifest) fieldDescriptor(f *FieldDef) (descriptor.FieldDescriptor, error) {
	ref, err := ParseTypeExpr(f.Type, m.Package)
	if err != nil {
		return descriptor.FieldDescriptor{}, errors.Wrapf(err, "field %q", f.Name)
	}

	var opts []descriptor.FieldOption

	if f.Order != nil {
		opts = append(opts, descriptor.WithOrder(*f.Order))
	}

	if f.Required {
		opts = append(opts, descriptor.Required())
	}

	if f.Deprecated {
		opts = append(opts, descriptor.Deprecated())
	}

	if f.Union != "" {
		id, err := parseTypeName(f.Union, m.Package)
		if err != nil {
			return descriptor.FieldDescriptor{}, errors.Wrapf(err, "field %q", f.Name)
		}

		opts = append(opts, descriptor.WithUnionRef(id))
	}

	if md := f.Metadata.Descriptors(); len(md) > 0 {
		opts = append(opts, descriptor.WithMetadata(md...))
	}

	return descriptor.NewField(f.Name, ref, opts...)
}
