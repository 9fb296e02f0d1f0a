package typemodel

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"fbsgen/internal/descriptor"
)

const pkg = "fbsgen/internal/typemodel/testtypes"

func tid(name string) descriptor.TypeID {
	return descriptor.TypeID{PkgPath: pkg, Name: name}
}

func newSet(t *testing.T, descs ...descriptor.TypeDescriptor) *descriptor.Set {
	t.Helper()

	s := descriptor.NewSet()
	for _, d := range descs {
		require.NoError(t, s.Add(d))
	}

	return s
}

func table(name string, fields ...descriptor.FieldDescriptor) descriptor.TypeDescriptor {
	return descriptor.TypeDescriptor{ID: tid(name), Kind: descriptor.KindTable, Fields: fields}
}

func fixed(name string, fields ...descriptor.FieldDescriptor) descriptor.TypeDescriptor {
	return descriptor.TypeDescriptor{ID: tid(name), Kind: descriptor.KindStruct, Fields: fields}
}

func field(name string, typ descriptor.TypeRef) descriptor.FieldDescriptor {
	return descriptor.FieldDescriptor{Name: name, Type: typ}
}

func ordered(name string, typ descriptor.TypeRef, order int) descriptor.FieldDescriptor {
	return descriptor.FieldDescriptor{Name: name, Type: typ, Order: order, OrderSet: true}
}

func fieldNames(m *TypeModel) []string {
	names := make([]string, 0, len(m.StructDef.Fields))
	for _, f := range m.StructDef.Fields {
		names = append(names, f.Name)
	}

	return names
}

func TestRegistry_DeriveIsIdempotent(t *testing.T) {
	reg := NewRegistry(newSet(t, table("Stat", field("value", descriptor.Basic("int32")))))

	a, err := reg.Derive(tid("Stat"))
	require.NoError(t, err)

	b, err := reg.Derive(tid("Stat"))
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Same(t, a.StructDef.Fields[0].TypeModel, mustScalar(t, reg, "int32"))
}

func mustScalar(t *testing.T, r *Registry, goName string) *TypeModel {
	t.Helper()

	m, err := r.DeriveRef(descriptor.Basic(goName))
	require.NoError(t, err)

	return m
}

func TestRegistry_Scalars(t *testing.T) {
	reg := NewRegistry(descriptor.NewSet())

	m := mustScalar(t, reg, "float64")
	assert.True(t, m.IsScalar())
	assert.False(t, m.IsEnum)
	assert.Nil(t, m.StructDef)
	assert.Equal(t, "double", m.Name)

	// byte and uint8 are the same schema type.
	assert.Same(t, mustScalar(t, reg, "byte"), mustScalar(t, reg, "uint8"))

	_, err := reg.DeriveRef(descriptor.Basic("complex128"))
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestRegistry_NestedVectors(t *testing.T) {
	reg := NewRegistry(descriptor.NewSet())

	m, err := reg.DeriveRef(descriptor.SequenceOf(descriptor.SequenceOf(descriptor.Basic("int32"))))
	require.NoError(t, err)

	assert.True(t, m.IsVector())
	require.NotNil(t, m.ElementType)
	assert.True(t, m.ElementType.IsVector())
	assert.Equal(t, BaseTypeInt32, m.ElementType.ElementType.BaseType)
	assert.Equal(t, "[[int]]", m.Name)
}

func TestRegistry_FieldOrder(t *testing.T) {
	reg := NewRegistry(newSet(t, table("Ordered",
		field("f1", descriptor.Basic("int32")),
		ordered("f2", descriptor.Basic("int32"), 0),
		field("f3", descriptor.Basic("int32")),
	)))

	m, err := reg.Derive(tid("Ordered"))
	require.NoError(t, err)

	assert.Equal(t, []string{"f2", "f1", "f3"}, fieldNames(m))
	assert.Equal(t, 0, m.StructDef.Fields[0].Order)
	assert.Equal(t, 1, m.StructDef.Fields[1].Order)
	assert.Equal(t, 2, m.StructDef.Fields[2].Order)
}

func TestRegistry_FieldOrderContinuesAfterMaxExplicit(t *testing.T) {
	reg := NewRegistry(newSet(t, table("Sparse",
		field("a", descriptor.Basic("int32")),
		ordered("b", descriptor.Basic("int32"), 5),
		ordered("c", descriptor.Basic("int32"), 2),
		field("d", descriptor.Basic("int32")),
	)))

	m, err := reg.Derive(tid("Sparse"))
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "b", "a", "d"}, fieldNames(m))
	assert.Equal(t, 6, m.StructDef.Field("a").Order)
	assert.Equal(t, 7, m.StructDef.Field("d").Order)
}

func TestRegistry_DuplicateOrder(t *testing.T) {
	reg := NewRegistry(newSet(t, table("Clash",
		ordered("first", descriptor.Basic("int32"), 0),
		ordered("second", descriptor.Basic("int32"), 0),
	)))

	_, err := reg.Derive(tid("Clash"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")
	assert.Contains(t, err.Error(), "Clash")

	_, ok := reg.Lookup(tid("Clash"))
	assert.False(t, ok)
}

func TestRegistry_SelfReference(t *testing.T) {
	reg := NewRegistry(newSet(t, table("Node",
		field("children", descriptor.SequenceOf(descriptor.Named(tid("Node")))),
		field("parent", descriptor.Named(tid("Node"))),
	)))

	m, err := reg.Derive(tid("Node"))
	require.NoError(t, err)

	children := m.StructDef.Field("children")
	require.NotNil(t, children)
	assert.Same(t, m, children.TypeModel.ElementType)
	assert.Same(t, m, m.StructDef.Field("parent").TypeModel)
}

func TestRegistry_MutualRecursion(t *testing.T) {
	reg := NewRegistry(newSet(t,
		table("Author", field("books", descriptor.SequenceOf(descriptor.Named(tid("Book"))))),
		table("Book", field("author", descriptor.Named(tid("Author")))),
	))

	author, err := reg.Derive(tid("Author"))
	require.NoError(t, err)

	book, ok := reg.Lookup(tid("Book"))
	require.True(t, ok)
	assert.Same(t, book, author.StructDef.Field("books").TypeModel.ElementType)
	assert.Same(t, author, book.StructDef.Field("author").TypeModel)

	assert.Equal(t, []*TypeModel{author, book}, reg.Models())
}

func TestRegistry_FailedDerivationLeavesCacheUntouched(t *testing.T) {
	reg := NewRegistry(newSet(t,
		table("Outer",
			field("inner", descriptor.Named(tid("Inner"))),
			field("lookup", descriptor.Opaque("map[string]int")),
		),
		table("Inner", field("v", descriptor.Basic("int32"))),
	))

	_, err := reg.Derive(tid("Outer"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.Contains(t, err.Error(), "lookup")
	assert.Contains(t, err.Error(), "map[string]int")

	_, ok := reg.Lookup(tid("Outer"))
	assert.False(t, ok)
	_, ok = reg.Lookup(tid("Inner"))
	assert.False(t, ok, "models built during a failed derivation must not be published")
	assert.Empty(t, reg.Models())

	// Inner on its own is fine.
	inner, err := reg.Derive(tid("Inner"))
	require.NoError(t, err)
	assert.True(t, inner.IsTable())
}

func TestRegistry_UnknownNamedType(t *testing.T) {
	reg := NewRegistry(newSet(t, table("Event", field("at", descriptor.Named(descriptor.TypeID{PkgPath: "time", Name: "Time"})))))

	_, err := reg.Derive(tid("Event"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.Contains(t, err.Error(), "time.Time")
	assert.Contains(t, err.Error(), "field at of")
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func equipmentSet(t *testing.T, fields ...descriptor.FieldDescriptor) *descriptor.Set {
	t.Helper()

	return newSet(t,
		table("Weapon", field("damage", descriptor.Basic("int16"))),
		table("Shield", field("armor", descriptor.Basic("int16"))),
		descriptor.TypeDescriptor{ID: tid("Equipment"), Kind: descriptor.KindUnion, Members: []descriptor.TypeID{tid("Weapon"), tid("Shield")}},
		table("Monster", fields...),
	)
}

func TestRegistry_UnionField(t *testing.T) {
	equipment := tid("Equipment")
	reg := NewRegistry(equipmentSet(t, descriptor.FieldDescriptor{Name: "equipped", Type: descriptor.Any(), Union: &equipment}))

	m, err := reg.Derive(tid("Monster"))
	require.NoError(t, err)

	f := m.StructDef.Field("equipped")
	require.NotNil(t, f)
	require.NotNil(t, f.UnionType)
	assert.Same(t, f.UnionType, f.TypeModel)
	assert.True(t, f.UnionType.IsUnion())
	require.Len(t, f.UnionType.UnionMembers, 2)
	assert.Equal(t, "Weapon", f.UnionType.UnionMembers[0].Name)
	assert.Equal(t, "Shield", f.UnionType.UnionMembers[1].Name)
}

func TestRegistry_UnionFieldErrors(t *testing.T) {
	equipment := tid("Equipment")
	weapon := tid("Weapon")

	tests := []struct {
		name  string
		field descriptor.FieldDescriptor
		want  error
		text  string
	}{
		{
			name:  "declared type is not any",
			field: descriptor.FieldDescriptor{Name: "equipped", Type: descriptor.Named(weapon), Union: &equipment},
			want:  ErrInvalidConfiguration,
			text:  "must be declared as any",
		},
		{
			name:  "reference lacks union marker",
			field: descriptor.FieldDescriptor{Name: "equipped", Type: descriptor.Any(), Union: &weapon},
			want:  ErrInvalidConfiguration,
			text:  "is not a union",
		},
		{
			name:  "union used without reference",
			field: descriptor.FieldDescriptor{Name: "equipped", Type: descriptor.Named(equipment)},
			want:  ErrInvalidConfiguration,
			text:  "must be held by an any field",
		},
		{
			name:  "any without union",
			field: descriptor.FieldDescriptor{Name: "equipped", Type: descriptor.Any()},
			want:  ErrUnsupportedType,
			text:  "only valid on union fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(equipmentSet(t, tt.field))

			_, err := reg.Derive(tid("Monster"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, err.Error(), tt.text)
			assert.Contains(t, err.Error(), "equipped")
		})
	}
}

func TestRegistry_UnionMemberMustBeTable(t *testing.T) {
	reg := NewRegistry(newSet(t,
		descriptor.TypeDescriptor{ID: tid("Color"), Kind: descriptor.KindEnum, Underlying: "int8",
			Values: []descriptor.EnumValue{{Name: "Red", Value: 0}}},
		descriptor.TypeDescriptor{ID: tid("Bad"), Kind: descriptor.KindUnion, Members: []descriptor.TypeID{tid("Color")}},
	))

	_, err := reg.Derive(tid("Bad"))
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestRegistry_Enum(t *testing.T) {
	reg := NewRegistry(newSet(t, descriptor.TypeDescriptor{
		ID:         tid("Color"),
		Kind:       descriptor.KindEnum,
		Underlying: "uint8",
		Values: []descriptor.EnumValue{
			{Name: "Blue", Value: 5},
			{Name: "Red", Value: 0},
			{Name: "Green", Value: 1},
			{Name: "Crimson", Value: 0},
		},
	}))

	m, err := reg.Derive(tid("Color"))
	require.NoError(t, err)

	assert.True(t, m.IsEnum)
	assert.False(t, m.IsScalar())
	assert.Nil(t, m.StructDef)
	assert.Equal(t, BaseTypeUInt8, m.BaseType)
	assert.Equal(t, []EnumValue{
		{Name: "Red", Value: 0},
		{Name: "Crimson", Value: 0},
		{Name: "Green", Value: 1},
		{Name: "Blue", Value: 5},
	}, m.EnumValues)
}

func TestRegistry_EnumErrors(t *testing.T) {
	tests := []struct {
		name string
		desc descriptor.TypeDescriptor
	}{
		{
			name: "float underlying",
			desc: descriptor.TypeDescriptor{ID: tid("E"), Kind: descriptor.KindEnum, Underlying: "float32",
				Values: []descriptor.EnumValue{{Name: "A", Value: 0}}},
		},
		{
			name: "long underlying",
			desc: descriptor.TypeDescriptor{ID: tid("E"), Kind: descriptor.KindEnum, Underlying: "int64",
				Values: []descriptor.EnumValue{{Name: "A", Value: 0}}},
		},
		{
			name: "ulong underlying",
			desc: descriptor.TypeDescriptor{ID: tid("E"), Kind: descriptor.KindEnum, Underlying: "uint",
				Values: []descriptor.EnumValue{{Name: "A", Value: 0}}},
		},
		{
			name: "overflow",
			desc: descriptor.TypeDescriptor{ID: tid("E"), Kind: descriptor.KindEnum, Underlying: "int8",
				Values: []descriptor.EnumValue{{Name: "A", Value: 300}}},
		},
		{
			name: "no values",
			desc: descriptor.TypeDescriptor{ID: tid("E"), Kind: descriptor.KindEnum, Underlying: "int8"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(newSet(t, tt.desc))
			_, err := reg.Derive(tid("E"))
			assert.True(t, errors.Is(err, ErrInvalidConfiguration), "got %v", err)

			_, cached := reg.Lookup(tid("E"))
			assert.False(t, cached)
		})
	}
}

func TestRegistry_FixedStructRules(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		reg := NewRegistry(newSet(t,
			fixed("Vec3", field("x", descriptor.Basic("float32")), field("y", descriptor.Basic("float32")), field("z", descriptor.Basic("float32"))),
			fixed("Ray", field("origin", descriptor.Named(tid("Vec3"))), field("dir", descriptor.Named(tid("Vec3")))),
		))

		m, err := reg.Derive(tid("Ray"))
		require.NoError(t, err)
		assert.True(t, m.IsFixedStruct())
		assert.False(t, m.IsTable())
		assert.True(t, m.StructDef.Field("origin").TypeModel.IsFixedStruct())
	})

	tests := []struct {
		name string
		desc []descriptor.TypeDescriptor
		text string
	}{
		{
			name: "string field",
			desc: []descriptor.TypeDescriptor{fixed("S", field("name", descriptor.Basic("string")))},
			text: "cannot be stored inline",
		},
		{
			name: "vector field",
			desc: []descriptor.TypeDescriptor{fixed("S", field("xs", descriptor.SequenceOf(descriptor.Basic("int32"))))},
			text: "cannot be stored inline",
		},
		{
			name: "deprecated field",
			desc: []descriptor.TypeDescriptor{fixed("S", descriptor.FieldDescriptor{Name: "old", Type: descriptor.Basic("int32"), Deprecated: true})},
			text: "cannot be deprecated",
		},
		{
			name: "table field",
			desc: []descriptor.TypeDescriptor{fixed("S", field("t", descriptor.Named(tid("T")))), table("T")},
			text: "table T",
		},
		{
			name: "contains itself",
			desc: []descriptor.TypeDescriptor{fixed("S", field("self", descriptor.Named(tid("S"))))},
			text: "cycle of inline structs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(newSet(t, tt.desc...)).Derive(tid("S"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration), "got %v", err)
			assert.Contains(t, err.Error(), tt.text)
		})
	}
}

// Required and metadata are carried for schema text only; they never change
// the resolved order or the field's type model.
func TestRegistry_RequiredAndMetadataAreSchemaTextOnly(t *testing.T) {
	reg := NewRegistry(newSet(t, table("Tagged",
		descriptor.FieldDescriptor{Name: "a", Type: descriptor.Basic("string"), Required: true,
			Metadata: []descriptor.Metadata{descriptor.Flag("key"), descriptor.IntMeta("priority", 1), descriptor.Flag("key")}},
		field("b", descriptor.Basic("string")),
	)))

	m, err := reg.Derive(tid("Tagged"))
	require.NoError(t, err)

	a, b := m.StructDef.Field("a"), m.StructDef.Field("b")
	assert.True(t, a.Required)
	assert.Same(t, a.TypeModel, b.TypeModel)
	assert.Equal(t, 0, a.Order)
	assert.Equal(t, 1, b.Order)
	assert.Len(t, a.Metadata, 3)
}

func TestRegistry_ConcurrentDerive(t *testing.T) {
	reg := NewRegistry(newSet(t,
		table("Node", field("next", descriptor.Named(tid("Node"))), field("payload", descriptor.Named(tid("Payload")))),
		table("Payload", field("data", descriptor.SequenceOf(descriptor.Basic("byte")))),
	))

	const workers = 16

	results := make([]*TypeModel, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			m, err := reg.Derive(tid("Node"))
			assert.NoError(t, err)

			results[i] = m
		}()
	}

	wg.Wait()

	for _, m := range results[1:] {
		assert.Same(t, results[0], m)
	}
}

func TestRegistry_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reg := NewRegistry(newSet(t, table("Stat", field("value", descriptor.Basic("int32")))), WithLogger(zap.New(core)))

	_, err := reg.Derive(tid("Stat"))
	require.NoError(t, err)

	_, err = reg.Derive(tid("Missing"))
	require.Error(t, err)

	assert.Equal(t, 1, logs.FilterMessage("derived type model").Len())
	assert.Equal(t, 1, logs.FilterMessage("derivation failed").Len())
}
