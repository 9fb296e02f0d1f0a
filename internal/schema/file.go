package schema

import (
	"bytes"
	"io"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"

	"fbsgen/internal/descriptor"
	"fbsgen/internal/typemodel"
)

// builtinAttributes are understood by flatc without an attribute declaration.
var builtinAttributes = map[string]bool{
	"id":                  true,
	"deprecated":          true,
	"required":            true,
	"key":                 true,
	"hash":                true,
	"force_align":         true,
	"bit_flags":           true,
	"nested_flatbuffer":   true,
	"flexbuffer":          true,
	"original_order":      true,
	"shared":              true,
	"native_inline":       true,
	"native_type":         true,
	"native_default":      true,
	"native_custom_alloc": true,
	"cpp_type":            true,
	"cpp_ptr_type":        true,
	"cpp_str_type":        true,
	"streaming":           true,
	"idempotent":          true,
}

// File describes one schema file.
type File struct {
	// Namespace is emitted as "namespace <Namespace>;" when set.
	Namespace string
	// RootType names the table emitted as "root_type <RootType>;" when set.
	RootType string
	// Includes are emitted as include statements, in order.
	Includes []string
	// WriterOptions are passed to the declaration writer.
	WriterOptions []WriterOption
}

// Write derives ids and every declaration they reach, and writes the whole
// schema to w. Nothing is written on error.
func (f *File) Write(w io.Writer, reg *typemodel.Registry, ids ...descriptor.TypeID) error {
	decls, err := Declarations(reg, ids...)
	if err != nil {
		return err
	}

	if err := f.checkRoot(decls); err != nil {
		return err
	}

	var sections [][]byte

	if len(f.Includes) > 0 {
		var b bytes.Buffer
		for _, inc := range f.Includes {
			b.WriteString("include " + strconv.Quote(inc) + ";\n")
		}

		sections = append(sections, b.Bytes())
	}

	if f.Namespace != "" {
		sections = append(sections, []byte("namespace "+f.Namespace+";\n"))
	}

	if attrs := customAttributes(decls); len(attrs) > 0 {
		var b bytes.Buffer
		for _, a := range attrs {
			b.WriteString("attribute " + strconv.Quote(a) + ";\n")
		}

		sections = append(sections, b.Bytes())
	}

	for _, m := range decls {
		var b bytes.Buffer
		if err := NewWriter(&b, f.WriterOptions...).Render(m); err != nil {
			return err
		}

		sections = append(sections, b.Bytes())
	}

	if f.RootType != "" {
		sections = append(sections, []byte("root_type "+f.RootType+";\n"))
	}

	out := bytes.Join(sections, []byte("\n"))
	if _, err := w.Write(out); err != nil {
		return errors.Wrap(err, "writing schema")
	}

	return nil
}

func (f *File) checkRoot(decls []*typemodel.TypeModel) error {
	if f.RootType == "" {
		return nil
	}

	for _, m := range decls {
		if m.Name != f.RootType {
			continue
		}

		if !m.IsTable() {
			return errors.Wrapf(typemodel.ErrInvalidConfiguration, "root type %s is not a table", f.RootType)
		}

		return nil
	}

	return errors.WithHint(
		errors.Wrapf(typemodel.ErrInvalidConfiguration, "root type %s is not declared in this file", f.RootType),
		"include the root table in the rendered types")
}

// Declarations derives ids and returns every declaration they reach, ordered
// so that enums and fixed structs precede their users. Remaining ties are
// broken by name. Tables may refer to each other in any order.
func Declarations(reg *typemodel.Registry, ids ...descriptor.TypeID) ([]*typemodel.TypeModel, error) {
	seen := make(map[*typemodel.TypeModel]bool)

	var all []*typemodel.TypeModel

	var visit func(m *typemodel.TypeModel)
	visit = func(m *typemodel.TypeModel) {
		for m.IsVector() {
			m = m.ElementType
		}

		if !m.IsDeclaration() || seen[m] {
			return
		}

		seen[m] = true
		all = append(all, m)

		if m.StructDef != nil {
			for _, f := range m.StructDef.Fields {
				visit(f.TypeModel)
			}
		}

		for _, member := range m.UnionMembers {
			visit(member)
		}
	}

	for _, id := range ids {
		m, err := reg.Derive(id)
		if err != nil {
			return nil, err
		}

		if !m.IsDeclaration() {
			return nil, errors.Wrapf(typemodel.ErrUnsupportedOperation, "%s is not a declaration", id)
		}

		visit(m)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}

		return all[i].ID.String() < all[j].ID.String()
	})

	for i := 1; i < len(all); i++ {
		if all[i-1].Name == all[i].Name {
			return nil, errors.WithHint(
				errors.Wrapf(typemodel.ErrInvalidConfiguration,
					"declarations %s and %s share the name %s", all[i-1].ID, all[i].ID, all[i].Name),
				"render the packages into separate files or rename one of the types")
		}
	}

	return orderDeclarations(all)
}

func customAttributes(decls []*typemodel.TypeModel) []string {
	keys := make(map[string]bool)

	add := func(md []descriptor.Metadata) {
		for _, m := range md {
			if !builtinAttributes[m.Name] {
				keys[m.Name] = true
			}
		}
	}

	for _, m := range decls {
		add(m.Metadata)

		if m.StructDef != nil {
			for _, f := range m.StructDef.Fields {
				add(f.Metadata)
			}
		}
	}

	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
