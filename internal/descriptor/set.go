package descriptor

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
)

// Set is a fixed collection of type descriptors produced by one ingestion pass.
type Set struct {
	types map[TypeID]*TypeDescriptor
	order []TypeID
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{types: make(map[TypeID]*TypeDescriptor)}
}

// Add inserts a descriptor. IDs must be unique within the set.
func (s *Set) Add(d TypeDescriptor) error {
	if d.ID.Name == "" {
		return errors.Wrap(ErrInvalidDescriptor, "type descriptor has no name")
	}

	if _, ok := s.types[d.ID]; ok {
		return errors.Wrapf(ErrInvalidDescriptor, "type %s declared twice", d.ID)
	}

	s.types[d.ID] = &d
	s.order = append(s.order, d.ID)

	return nil
}

// Get returns the descriptor for id.
func (s *Set) Get(id TypeID) (*TypeDescriptor, bool) {
	d, ok := s.types[id]
	return d, ok
}

// IDs returns all type IDs in insertion order.
func (s *Set) IDs() []TypeID {
	return append([]TypeID(nil), s.order...)
}

// Len returns the number of descriptors.
func (s *Set) Len() int {
	return len(s.order)
}

// Merge adds every descriptor of other to s.
func (s *Set) Merge(other *Set) error {
	for _, id := range other.order {
		if err := s.Add(*other.types[id]); err != nil {
			return err
		}
	}

	return nil
}

// Lookup resolves a user-supplied name: either a full "pkg/path.Name" or a
// bare name that must be unique across packages.
func (s *Set) Lookup(name string) (TypeID, error) {
	if id := ParseTypeID(name); id.PkgPath != "" {
		if _, ok := s.types[id]; ok {
			return id, nil
		}
	}

	var matches []TypeID

	for _, id := range s.order {
		if id.Name == name {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return TypeID{}, errors.Newf("type %q not found", name)
	case 1:
		return matches[0], nil
	default:
		sort.Slice(matches, func(i, j int) bool { return matches[i].String() < matches[j].String() })

		return TypeID{}, errors.WithHintf(
			errors.Newf("type name %q is ambiguous", name),
			"use a qualified name, one of %v", matches)
	}
}

// Validate runs the ingestion-time checks over the whole set: every union
// reference resolves to a union-marked type, union members exist and are
// tables, and field names are unique within a type.
func (s *Set) Validate() error {
	if err := s.Diagnose().Err(); err != nil {
		return errors.Wrap(err, "descriptor validation failed")
	}

	return nil
}

// Diagnose is Validate returning every finding. Besides errors it notes
// declarations that no other declaration refers to.
func (s *Set) Diagnose() *Report {
	r := &Report{}

	for _, id := range s.order {
		d := s.types[id]

		switch {
		case d.IsStructLike():
			s.validateFields(r, d)
		case d.IsUnion():
			s.validateMembers(r, d)
		case d.Kind == KindEnum:
			if len(d.Values) == 0 {
				r.Fail("empty_enum", id, "", "enum declares no values")
			}
		default:
			r.Fail("unknown_kind", id, "", "type has no table, struct, enum or union marker",
				"mark it with //fbs:table, //fbs:struct or //fbs:union")
		}

		for _, m := range d.Metadata {
			if err := m.validate(); err != nil {
				r.Fail("invalid_metadata", id, "", err.Error())
			}
		}
	}

	referenced := s.referenced()
	for _, id := range s.order {
		if !referenced[id] {
			r.Note("unreferenced", id, "", "no other declaration refers to this type; it is rendered only when selected")
		}
	}

	return r
}

func (s *Set) validateFields(r *Report, d *TypeDescriptor) {
	seen := make(map[string]struct{}, len(d.Fields))

	for i := range d.Fields {
		f := &d.Fields[i]

		if _, dup := seen[f.Name]; dup {
			r.Fail("duplicate_field", d.ID, f.Name, fmt.Sprintf("field %q declared twice", f.Name))
		}

		seen[f.Name] = struct{}{}

		if f.OrderSet && f.Order < 0 {
			r.Fail("negative_order", d.ID, f.Name, fmt.Sprintf("negative order %d", f.Order))
		}

		for _, m := range f.Metadata {
			if err := m.validate(); err != nil {
				r.Fail("invalid_metadata", d.ID, f.Name, err.Error())
			}
		}

		if f.Union == nil {
			continue
		}

		u, ok := s.types[*f.Union]

		switch {
		case !ok:
			r.Fail("union_not_found", d.ID, f.Name, fmt.Sprintf("union type %s is not declared", f.Union))
		case !u.IsUnion():
			r.Fail("union_marker_missing", d.ID, f.Name,
				fmt.Sprintf("union type %s is a %s, not a union", f.Union, u.Kind),
				"mark "+f.Union.Name+" with //fbs:union")
		}
	}
}

func (s *Set) validateMembers(r *Report, d *TypeDescriptor) {
	if len(d.Members) == 0 {
		r.Fail("empty_union", d.ID, "", "union declares no members")
	}

	for _, m := range d.Members {
		md, ok := s.types[m]

		switch {
		case !ok:
			r.Fail("member_not_found", d.ID, "", fmt.Sprintf("union member %s is not declared", m))
		case md.Kind != KindTable:
			r.Fail("member_not_table", d.ID, "", fmt.Sprintf("union member %s is a %s", m, md.Kind))
		}
	}
}

// referenced returns the IDs named by a field type, union reference or
// union member of another declaration.
func (s *Set) referenced() map[TypeID]bool {
	out := make(map[TypeID]bool)

	visit := func(owner TypeID, ref *TypeRef) {
		for ref != nil && ref.Kind == RefSequence {
			ref = ref.Elem
		}

		if ref != nil && ref.Kind == RefNamed && ref.ID != owner {
			out[ref.ID] = true
		}
	}

	for _, id := range s.order {
		d := s.types[id]

		for i := range d.Fields {
			visit(id, &d.Fields[i].Type)

			if u := d.Fields[i].Union; u != nil && *u != id {
				out[*u] = true
			}
		}

		for _, m := range d.Members {
			out[m] = true
		}
	}

	return out
}
