package analyze

import (
	"go/constant"
	"go/token"
	"go/types"
	"reflect"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"fbsgen/internal/common"
	"fbsgen/internal/descriptor"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// Analyzer loads Go packages and builds a descriptor set from their
// annotated declarations.
type Analyzer struct {
	log *zap.Logger
	dir string

	// Per LoadPackages call.
	pkgs     map[string]*packages.Package
	declared map[descriptor.TypeID]*declaration
}

// declaration is one annotated type found while loading.
type declaration struct {
	id     descriptor.TypeID
	kind   descriptor.Kind
	pkg    *packages.Package
	obj    *types.TypeName
	dirs   directives
	values []descriptor.EnumValue
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// WithDir sets the directory package patterns are resolved in.
func WithDir(dir string) Option {
	return func(a *Analyzer) {
		a.dir = dir
	}
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// LoadPackages loads the packages matching patterns (e.g.,
// "fbsgen/examples/monster/...") and returns the validated descriptors of
// every annotated type in them.
func (a *Analyzer) LoadPackages(patterns ...string) (*descriptor.Set, error) {
	cfg := &packages.Config{
		Mode: LoadMode,
		Dir:  a.dir,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load packages")
	}

	if len(pkgs) == 0 {
		return nil, errors.Newf("no packages match %v", patterns)
	}

	var errs []string

	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e.Error())
		}
	}

	if len(errs) > 0 {
		return nil, errors.Newf("package errors: %s", strings.Join(errs, "; "))
	}

	a.pkgs = make(map[string]*packages.Package, len(pkgs))
	a.declared = make(map[descriptor.TypeID]*declaration)

	var decls []*declaration

	for _, pkg := range pkgs {
		a.pkgs[pkg.PkgPath] = pkg

		found, err := a.collect(pkg)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to process package %s", pkg.PkgPath)
		}

		decls = append(decls, found...)
	}

	set, err := a.build(decls)
	if err != nil {
		return nil, err
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}

	a.log.Info("loaded annotated types",
		zap.Strings("patterns", patterns),
		zap.Int("packages", len(pkgs)),
		zap.Int("types", set.Len()))

	return set, nil
}

// collect finds the annotated types of one package.
func (a *Analyzer) collect(pkg *packages.Package) ([]*declaration, error) {
	docs := typeDocs(pkg.Syntax)
	values := enumValues(pkg)
	scope := pkg.Types.Scope()

	var out []*declaration

	for _, name := range scope.Names() {
		obj, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !obj.Exported() || obj.IsAlias() {
			continue
		}

		dirs, err := parseDirectives(docs[name]...)
		if err != nil {
			return nil, errors.Wrapf(err, "type %s", name)
		}

		kind, err := classify(obj, dirs, len(values[obj]) > 0)
		if err != nil {
			return nil, err
		}

		if kind == descriptor.KindUnknown {
			continue
		}

		d := &declaration{
			id:     descriptor.TypeID{PkgPath: pkg.PkgPath, Name: name},
			kind:   kind,
			pkg:    pkg,
			obj:    obj,
			dirs:   dirs,
			values: values[obj],
		}

		a.declared[d.id] = d
		out = append(out, d)

		a.log.Debug("found annotated type", zap.Stringer("type", d.id), zap.Stringer("kind", kind))
	}

	return out, nil
}

// classify decides what a named type declares. KindUnknown means the type
// is not part of the schema.
func classify(obj *types.TypeName, dirs directives, hasConsts bool) (descriptor.Kind, error) {
	switch u := obj.Type().Underlying().(type) {
	case *types.Struct:
		switch dirs.kind {
		case descriptor.KindTable, descriptor.KindStruct, descriptor.KindUnknown:
			return dirs.kind, nil
		}

	case *types.Interface:
		if dirs.kind == descriptor.KindUnion || dirs.kind == descriptor.KindUnknown {
			return dirs.kind, nil
		}

	case *types.Basic:
		if dirs.kind != descriptor.KindUnknown {
			break
		}

		if hasConsts && u.Info()&types.IsInteger != 0 {
			return descriptor.KindEnum, nil
		}

		return descriptor.KindUnknown, nil

	default:
		if dirs.kind == descriptor.KindUnknown {
			return descriptor.KindUnknown, nil
		}
	}

	return descriptor.KindUnknown, errors.WithHint(
		errors.Wrapf(descriptor.ErrInvalidDescriptor, "type %s: //fbs:%s does not apply to %s",
			obj.Name(), dirs.kind, obj.Type().Underlying()),
		"//fbs:table and //fbs:struct mark structs, //fbs:union marks interfaces")
}

// enumValues groups the exported typed constants of pkg by their named type,
// in declaration order.
func enumValues(pkg *packages.Package) map[*types.TypeName][]descriptor.EnumValue {
	type entry struct {
		pos   token.Pos
		value descriptor.EnumValue
	}

	grouped := make(map[*types.TypeName][]entry)
	scope := pkg.Types.Scope()

	for _, name := range scope.Names() {
		c, ok := scope.Lookup(name).(*types.Const)
		if !ok || !c.Exported() {
			continue
		}

		named, ok := c.Type().(*types.Named)
		if !ok || named.Obj().Pkg() != pkg.Types || c.Val().Kind() != constant.Int {
			continue
		}

		v, ok := constant.Int64Val(c.Val())
		if !ok {
			u, exact := constant.Uint64Val(c.Val())
			if !exact {
				continue
			}

			v = int64(u)
		}

		grouped[named.Obj()] = append(grouped[named.Obj()], entry{
			pos:   c.Pos(),
			value: descriptor.EnumValue{Name: name, Value: v},
		})
	}

	out := make(map[*types.TypeName][]descriptor.EnumValue, len(grouped))

	for obj, entries := range grouped {
		sort.Slice(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })

		values := make([]descriptor.EnumValue, len(entries))
		for i, e := range entries {
			values[i] = e.value
		}

		out[obj] = values
	}

	return out
}

// build turns declarations into descriptors. Enums and unions go first so
// union fields can be checked against their target while being built.
func (a *Analyzer) build(decls []*declaration) (*descriptor.Set, error) {
	set := descriptor.NewSet()

	for _, d := range decls {
		var desc descriptor.TypeDescriptor

		switch d.kind {
		case descriptor.KindEnum:
			desc = descriptor.TypeDescriptor{
				ID:         d.id,
				Kind:       d.kind,
				Underlying: d.obj.Type().Underlying().(*types.Basic).Name(),
				Values:     d.values,
				Metadata:   d.dirs.metadata,
			}
		case descriptor.KindUnion:
			members, err := a.unionMembers(d)
			if err != nil {
				return nil, err
			}

			desc = descriptor.TypeDescriptor{ID: d.id, Kind: d.kind, Members: members, Metadata: d.dirs.metadata}
		default:
			continue
		}

		if err := set.Add(desc); err != nil {
			return nil, err
		}
	}

	for _, d := range decls {
		if d.kind != descriptor.KindTable && d.kind != descriptor.KindStruct {
			continue
		}

		st := d.obj.Type().Underlying().(*types.Struct)

		promoting := map[*types.Struct]bool{st: true}

		fields, err := a.structFields(set, d, st, NewTypePath(d.id.Name), promoting)
		if err != nil {
			return nil, err
		}

		if err := set.Add(descriptor.TypeDescriptor{
			ID:       d.id,
			Kind:     d.kind,
			Fields:   fields,
			Metadata: d.dirs.metadata,
		}); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// unionMembers resolves the names listed in the union directive. Without a
// list, every table of the package implementing the interface is a member.
func (a *Analyzer) unionMembers(d *declaration) ([]descriptor.TypeID, error) {
	if len(d.dirs.members) > 0 {
		members := make([]descriptor.TypeID, 0, len(d.dirs.members))

		for _, name := range d.dirs.members {
			id, err := a.resolveName(d.pkg, name)
			if err != nil {
				return nil, errors.Wrapf(err, "union %s", d.id.Name)
			}

			members = append(members, id)
		}

		return members, nil
	}

	iface, _ := d.obj.Type().Underlying().(*types.Interface)

	var members []descriptor.TypeID

	for _, other := range a.declared {
		if other.pkg != d.pkg || other.kind != descriptor.KindTable {
			continue
		}

		t := other.obj.Type()
		if types.Implements(t, iface) || types.Implements(types.NewPointer(t), iface) {
			members = append(members, other.id)
		}
	}

	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })

	return members, nil
}

// resolveName resolves a type name used in a directive or tag: a bare name
// refers to pkg, "alias.Name" to an import or a loaded package.
func (a *Analyzer) resolveName(pkg *packages.Package, name string) (descriptor.TypeID, error) {
	qual, typeName, ok := strings.Cut(name, ".")
	if !ok {
		return descriptor.TypeID{PkgPath: pkg.PkgPath, Name: name}, nil
	}

	for path, imp := range pkg.Imports {
		if imp.Name == qual || path == qual {
			return descriptor.TypeID{PkgPath: path, Name: typeName}, nil
		}
	}

	if id := descriptor.ParseTypeID(name); id.PkgPath != "" {
		if _, ok := a.pkgs[id.PkgPath]; ok {
			return id, nil
		}
	}

	return descriptor.TypeID{}, errors.Wrapf(descriptor.ErrInvalidDescriptor,
		"cannot resolve %q: package %s is not imported by %s", name, qual, pkg.PkgPath)
}

// structFields builds the field descriptors of st. Fields of embedded
// structs are promoted in place unless the embedded field is named by a tag.
// promoting holds the structs on the current promotion path; embedding one
// of them again yields a plain field referring to the type instead.
func (a *Analyzer) structFields(
	set *descriptor.Set,
	d *declaration,
	st *types.Struct,
	path *TypePath,
	promoting map[*types.Struct]bool,
) ([]descriptor.FieldDescriptor, error) {
	var fields []descriptor.FieldDescriptor

	for i := range st.NumFields() {
		f := st.Field(i)
		fieldPath := path.Field(f.Name())

		tag, err := parseFieldTag(reflect.StructTag(st.Tag(i)))
		if err != nil {
			return nil, errors.Wrapf(err, "%s", fieldPath)
		}

		if tag.skip {
			continue
		}

		if f.Embedded() && tag.name == "" {
			if inner, ok := derefStruct(f.Type()); ok && !promoting[inner] {
				promoting[inner] = true
				promoted, err := a.structFields(set, d, inner, fieldPath, promoting)
				delete(promoting, inner)

				if err != nil {
					return nil, err
				}

				fields = append(fields, promoted...)

				continue
			}
		}

		if !f.Exported() {
			continue
		}

		fd, err := a.field(set, d, f, tag)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", fieldPath)
		}

		fields = append(fields, fd)
	}

	return fields, nil
}

func (a *Analyzer) field(
	set *descriptor.Set,
	d *declaration,
	f *types.Var,
	tag fieldTag,
) (descriptor.FieldDescriptor, error) {
	name := tag.name
	if name == "" {
		name = common.ToSnakeCase(f.Name())
	}

	typ := a.typeRef(f.Type())
	opts := tag.options()

	var (
		unionID descriptor.TypeID
		isUnion bool
	)

	switch {
	case tag.union != "":
		id, err := a.resolveName(d.pkg, tag.union)
		if err != nil {
			return descriptor.FieldDescriptor{}, err
		}

		unionID, isUnion = id, true
	case typ.Kind == descriptor.RefNamed && a.isUnion(typ.ID):
		// A field typed as a union interface holds that union.
		unionID, isUnion = typ.ID, true
		typ = descriptor.Any()
	}

	if isUnion {
		u, ok := set.Get(unionID)
		if !ok {
			target, declared := a.declared[unionID]
			if !declared {
				return descriptor.FieldDescriptor{}, errors.WithHint(
					errors.Wrapf(descriptor.ErrInvalidDescriptor, "union type %s is not declared", unionID),
					"mark the referenced type with //fbs:union")
			}

			// Tables and structs are not in the set yet; UnionOf reports the
			// missing marker.
			u = &descriptor.TypeDescriptor{ID: unionID, Kind: target.kind}
		}

		opts = append(opts, descriptor.UnionOf(u))
	}

	return descriptor.NewField(name, typ, opts...)
}

// typeRef maps a Go type to a declared type reference. Pointers are
// transparent; named types with a basic underlying type that are not enums
// map to that basic type.
func (a *Analyzer) typeRef(t types.Type) descriptor.TypeRef {
	switch tt := types.Unalias(t).(type) {
	case *types.Pointer:
		return a.typeRef(tt.Elem())

	case *types.Basic:
		if tt.Info()&types.IsUntyped != 0 || tt.Kind() == types.UnsafePointer {
			return descriptor.Opaque(tt.String())
		}

		return descriptor.Basic(tt.Name())

	case *types.Slice:
		return descriptor.SequenceOf(a.typeRef(tt.Elem()))

	case *types.Array:
		return descriptor.SequenceOf(a.typeRef(tt.Elem()))

	case *types.Interface:
		if tt.Empty() {
			return descriptor.Any()
		}

		return descriptor.Opaque(tt.String())

	case *types.Named:
		obj := tt.Obj()
		if obj.Pkg() == nil {
			return descriptor.Opaque(obj.Name())
		}

		id := descriptor.TypeID{PkgPath: obj.Pkg().Path(), Name: obj.Name()}
		if _, ok := a.declared[id]; ok {
			return descriptor.Named(id)
		}

		if b, ok := tt.Underlying().(*types.Basic); ok {
			return a.typeRef(b)
		}

		return descriptor.Named(id)

	default:
		return descriptor.Opaque(types.TypeString(t, nil))
	}
}

func (a *Analyzer) isUnion(id descriptor.TypeID) bool {
	d, ok := a.declared[id]
	return ok && d.kind == descriptor.KindUnion
}

func derefStruct(t types.Type) (*types.Struct, bool) {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}

	st, ok := t.Underlying().(*types.Struct)

	return st, ok
}
