package typemodel

import (
	"slices"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"fbsgen/internal/descriptor"
)

// Registry derives and caches TypeModels for the types of one descriptor set.
//
// Derive is safe for concurrent use. First-time derivations are serialized,
// so one declared type never ends up with two divergent models; completed
// models are read under a shared lock.
type Registry struct {
	set *descriptor.Set
	log *zap.Logger

	mu     sync.RWMutex
	models map[string]*TypeModel // keyed by refKey
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for derivation debug output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates a Registry over set. The set must not change afterwards.
func NewRegistry(set *descriptor.Set, opts ...Option) *Registry {
	r := &Registry{
		set:    set,
		log:    zap.NewNop(),
		models: make(map[string]*TypeModel),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Descriptors returns the descriptor set the registry derives from.
func (r *Registry) Descriptors() *descriptor.Set {
	return r.set
}

// Derive returns the model of a declared type, building it on first use.
// Repeated calls return the identical instance.
func (r *Registry) Derive(id descriptor.TypeID) (*TypeModel, error) {
	return r.DeriveRef(descriptor.Named(id))
}

// DeriveRef returns the model of any type reference, e.g. a sequence of a
// declared type.
func (r *Registry) DeriveRef(ref descriptor.TypeRef) (*TypeModel, error) {
	key := refKey(ref)

	r.mu.RLock()
	m, ok := r.models[key]
	r.mu.RUnlock()

	if ok {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[key]; ok {
		return m, nil
	}

	d := &deriver{
		reg:      r,
		pending:  make(map[string]*TypeModel),
		building: make(map[*TypeModel]bool),
	}

	m, err := d.resolve(ref)
	if err != nil {
		// Placeholders of a failed derivation are dropped with the deriver.
		r.log.Debug("derivation failed", zap.Stringer("type", ref), zap.Error(err))
		return nil, err
	}

	for k, pm := range d.pending {
		r.models[k] = pm
	}

	r.log.Debug("derived type model",
		zap.Stringer("type", ref),
		zap.Stringer("base_type", m.BaseType),
		zap.Int("new_models", len(d.pending)))

	return m, nil
}

// Lookup returns the cached model of a declared type without deriving it.
func (r *Registry) Lookup(id descriptor.TypeID) (*TypeModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[refKey(descriptor.Named(id))]

	return m, ok
}

// Models returns every cached model of a declared type, sorted by ID.
func (r *Registry) Models() []*TypeModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*TypeModel, 0, len(r.models))
	for _, m := range r.models {
		if !m.ID.IsZero() {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })

	return out
}

// refKey is the cache identity of a type reference. Go spellings that map to
// the same base type share one key.
func refKey(ref descriptor.TypeRef) string {
	switch ref.Kind {
	case descriptor.RefBasic:
		if b, ok := BaseTypeOf(ref.Name); ok {
			return b.Keyword()
		}

		return "?" + ref.Name
	case descriptor.RefNamed:
		return "@" + ref.ID.String()
	case descriptor.RefSequence:
		if ref.Elem == nil {
			return "[?]"
		}

		return "[" + refKey(*ref.Elem) + "]"
	default:
		return "?" + ref.String()
	}
}

// deriver holds the state of one top-level derivation. Models land in pending
// and are published to the registry only when the whole derivation succeeds.
type deriver struct {
	reg      *Registry
	pending  map[string]*TypeModel
	building map[*TypeModel]bool // structs whose fields are being resolved
}

func (d *deriver) lookup(key string) (*TypeModel, bool) {
	if m, ok := d.reg.models[key]; ok {
		return m, true
	}

	m, ok := d.pending[key]

	return m, ok
}

func (d *deriver) resolve(ref descriptor.TypeRef) (*TypeModel, error) {
	key := refKey(ref)
	if m, ok := d.lookup(key); ok {
		return m, nil
	}

	switch ref.Kind {
	case descriptor.RefBasic:
		b, ok := BaseTypeOf(ref.Name)
		if !ok {
			return nil, unsupportedType("Go type %s has no schema mapping", ref.Name)
		}

		m := &TypeModel{Name: b.Keyword(), BaseType: b}
		d.pending[key] = m

		return m, nil

	case descriptor.RefSequence:
		if ref.Elem == nil {
			return nil, unsupportedType("sequence without element type")
		}

		elem, err := d.resolve(*ref.Elem)
		if err != nil {
			return nil, err
		}

		m := &TypeModel{Name: "[" + elem.Name + "]", BaseType: BaseTypeVector, ElementType: elem}
		d.pending[key] = m

		return m, nil

	case descriptor.RefNamed:
		return d.resolveNamed(ref.ID, key)

	case descriptor.RefAny:
		return nil, errors.WithHint(
			unsupportedType("the any placeholder is only valid on union fields"),
			`add fbs:"union=<UnionType>" to the field`)

	case descriptor.RefOpaque:
		return nil, unsupportedType("Go type %s has no schema mapping", ref.Name)

	default:
		return nil, unsupportedType("invalid type reference")
	}
}

func (d *deriver) resolveNamed(id descriptor.TypeID, key string) (*TypeModel, error) {
	desc, ok := d.reg.set.Get(id)
	if !ok {
		return nil, errors.WithHint(
			unsupportedType("type %s is not a declared table, struct, enum or union", id),
			"mark it with //fbs:table, //fbs:struct or //fbs:union, or declare typed constants for an enum")
	}

	switch desc.Kind {
	case descriptor.KindEnum:
		return d.buildEnum(desc, key)
	case descriptor.KindTable, descriptor.KindStruct:
		return d.buildStruct(desc, key)
	case descriptor.KindUnion:
		return d.buildUnion(desc, key)
	default:
		return nil, unsupportedType("type %s has no table, struct, enum or union marker", id)
	}
}

func (d *deriver) buildEnum(desc *descriptor.TypeDescriptor, key string) (*TypeModel, error) {
	under, ok := BaseTypeOf(desc.Underlying)
	if !ok || !under.IsEnumUnderlying() {
		return nil, invalidConfig("enum %s: underlying type %q is not an integer of at most 32 bits", desc.ID, desc.Underlying)
	}

	if len(desc.Values) == 0 {
		return nil, invalidConfig("enum %s declares no values", desc.ID)
	}

	values := make([]EnumValue, 0, len(desc.Values))
	for _, v := range desc.Values {
		if !under.Fits(v.Value) {
			return nil, invalidConfig("enum %s: value %s = %d does not fit %s", desc.ID, v.Name, v.Value, under)
		}

		values = append(values, EnumValue{Name: v.Name, Value: v.Value})
	}

	// Ties keep declaration order.
	sort.SliceStable(values, func(i, j int) bool {
		return Less(values[i].Value, values[j].Value, under)
	})

	m := &TypeModel{
		ID:         desc.ID,
		Name:       desc.ID.Name,
		BaseType:   under,
		IsEnum:     true,
		EnumValues: values,
		Metadata:   slices.Clone(desc.Metadata),
	}
	d.pending[key] = m

	return m, nil
}

func (d *deriver) buildStruct(desc *descriptor.TypeDescriptor, key string) (*TypeModel, error) {
	orders, err := resolveOrder(desc)
	if err != nil {
		return nil, err
	}

	m := &TypeModel{
		ID:        desc.ID,
		Name:      desc.ID.Name,
		BaseType:  BaseTypeStruct,
		StructDef: &StructDef{IsFixed: desc.Kind == descriptor.KindStruct},
		Metadata:  slices.Clone(desc.Metadata),
	}

	// Placeholder first: fields referring back to this type resolve to m.
	d.pending[key] = m
	d.building[m] = true

	defer delete(d.building, m)

	fields := make([]*FieldTypeDefinition, 0, len(desc.Fields))

	for i := range desc.Fields {
		f, err := d.resolveField(desc, m, &desc.Fields[i])
		if err != nil {
			return nil, err
		}

		f.Order = orders[i]
		fields = append(fields, f)
	}

	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Order < fields[j].Order })
	m.StructDef.Fields = fields

	return m, nil
}

func (d *deriver) resolveField(
	desc *descriptor.TypeDescriptor,
	owner *TypeModel,
	f *descriptor.FieldDescriptor,
) (*FieldTypeDefinition, error) {
	def := &FieldTypeDefinition{
		Name:       f.Name,
		Required:   f.Required,
		Deprecated: f.Deprecated,
		Metadata:   slices.Clone(f.Metadata),
	}

	if f.IsUnionField() {
		um, err := d.resolveUnionField(desc, f)
		if err != nil {
			return nil, err
		}

		def.TypeModel = um
		def.UnionType = um
	} else {
		if target, ok := d.unionTarget(f.Type); ok {
			return nil, errors.WithHintf(
				invalidConfig("field %s of %s: union %s must be held by an any field with a union reference",
					f.Name, desc.ID, target.ID),
				`declare the field as any with fbs:"union=%s"`, target.ID.Name)
		}

		ft, err := d.resolve(f.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s of %s", f.Name, desc.ID)
		}

		def.TypeModel = ft
	}

	if owner.IsFixedStruct() {
		if err := checkInlineField(desc, def, d.building); err != nil {
			return nil, err
		}
	}

	return def, nil
}

func (d *deriver) resolveUnionField(desc *descriptor.TypeDescriptor, f *descriptor.FieldDescriptor) (*TypeModel, error) {
	if f.Type.Kind != descriptor.RefAny {
		return nil, errors.WithHint(
			invalidConfig("field %s of %s: union field must be declared as any, not %s", f.Name, desc.ID, f.Type),
			"the concrete variant is chosen at runtime by the union discriminant")
	}

	u, ok := d.reg.set.Get(*f.Union)
	if !ok || !u.IsUnion() {
		return nil, errors.WithHint(
			invalidConfig("field %s of %s: %s is not a union", f.Name, desc.ID, f.Union),
			"mark the referenced type with //fbs:union")
	}

	um, err := d.resolve(descriptor.Named(u.ID))
	if err != nil {
		return nil, errors.Wrapf(err, "field %s of %s", f.Name, desc.ID)
	}

	return um, nil
}

// unionTarget reports a plain named reference to a union type.
func (d *deriver) unionTarget(ref descriptor.TypeRef) (*descriptor.TypeDescriptor, bool) {
	if ref.Kind != descriptor.RefNamed {
		return nil, false
	}

	target, ok := d.reg.set.Get(ref.ID)

	return target, ok && target.IsUnion()
}

func checkInlineField(desc *descriptor.TypeDescriptor, f *FieldTypeDefinition, building map[*TypeModel]bool) error {
	switch {
	case f.Deprecated:
		return invalidConfig("field %s of struct %s: struct fields cannot be deprecated", f.Name, desc.ID)
	case !f.TypeModel.IsInline():
		return errors.WithHint(
			invalidConfig("field %s of struct %s: %s cannot be stored inline", f.Name, desc.ID, describe(f.TypeModel)),
			"use a table for strings, vectors, unions and nested tables")
	case building[f.TypeModel]:
		return invalidConfig("struct %s: field %s closes a cycle of inline structs", desc.ID, f.Name)
	}

	return nil
}

func (d *deriver) buildUnion(desc *descriptor.TypeDescriptor, key string) (*TypeModel, error) {
	if len(desc.Members) == 0 {
		return nil, invalidConfig("union %s declares no members", desc.ID)
	}

	m := &TypeModel{
		ID:       desc.ID,
		Name:     desc.ID.Name,
		BaseType: BaseTypeUnion,
		Metadata: slices.Clone(desc.Metadata),
	}
	d.pending[key] = m

	members := make([]*TypeModel, 0, len(desc.Members))

	for _, id := range desc.Members {
		mm, err := d.resolve(descriptor.Named(id))
		if err != nil {
			return nil, errors.Wrapf(err, "member %s of union %s", id.Name, desc.ID)
		}

		if !mm.IsTable() {
			return nil, invalidConfig("union %s: member %s is a %s, not a table", desc.ID, id, describe(mm))
		}

		members = append(members, mm)
	}

	m.UnionMembers = members

	return m, nil
}

// resolveOrder computes effective field orders in declaration order.
// Explicit orders are kept verbatim; the rest continue after the largest
// explicit order, keeping their relative order.
func resolveOrder(desc *descriptor.TypeDescriptor) ([]int, error) {
	orders := make([]int, len(desc.Fields))
	owners := make(map[int]string, len(desc.Fields))
	next := 0

	for i := range desc.Fields {
		f := &desc.Fields[i]
		if !f.OrderSet {
			continue
		}

		if f.Order < 0 {
			return nil, invalidConfig("field %s of %s: negative order %d", f.Name, desc.ID, f.Order)
		}

		if prev, dup := owners[f.Order]; dup {
			return nil, invalidConfig("%s: fields %s and %s both have order %d", desc.ID, prev, f.Name, f.Order)
		}

		owners[f.Order] = f.Name
		orders[i] = f.Order
		next = max(next, f.Order+1)
	}

	for i := range desc.Fields {
		if !desc.Fields[i].OrderSet {
			orders[i] = next
			next++
		}
	}

	return orders, nil
}

func describe(m *TypeModel) string {
	switch {
	case m.IsEnum:
		return "enum " + m.Name
	case m.IsTable():
		return "table " + m.Name
	case m.IsFixedStruct():
		return "struct " + m.Name
	case m.IsUnion():
		return "union " + m.Name
	case m.IsVector():
		return "vector " + m.Name
	default:
		return m.BaseType.String()
	}
}
