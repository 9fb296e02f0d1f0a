package schema

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fbsgen/internal/descriptor"
	"fbsgen/internal/typemodel"
)

func monsterSet(t *testing.T) *descriptor.Set {
	t.Helper()

	descs := []descriptor.TypeDescriptor{
		{
			ID: tid("Monster"), Kind: descriptor.KindTable,
			Metadata: []descriptor.Metadata{descriptor.IntMeta("priority", 1)},
			Fields: []descriptor.FieldDescriptor{
				{Name: "pos", Type: descriptor.Named(tid("Vec3"))},
				{Name: "color", Type: descriptor.Named(tid("Color"))},
				{Name: "weapons", Type: descriptor.SequenceOf(descriptor.Named(tid("Weapon")))},
				{Name: "equipped", Type: descriptor.Any(), Union: ptr(tid("Equipment"))},
				{Name: "name", Type: descriptor.Basic("string"), Metadata: []descriptor.Metadata{descriptor.Flag("key")}},
			},
		},
		{
			ID: tid("Weapon"), Kind: descriptor.KindTable,
			Fields: []descriptor.FieldDescriptor{
				{Name: "damage", Type: descriptor.Basic("int16"), Metadata: []descriptor.Metadata{descriptor.Flag("tracked")}},
				{Name: "owner", Type: descriptor.Named(tid("Monster"))},
			},
		},
		{ID: tid("Equipment"), Kind: descriptor.KindUnion, Members: []descriptor.TypeID{tid("Weapon")}},
		{
			ID: tid("Vec3"), Kind: descriptor.KindStruct,
			Fields: []descriptor.FieldDescriptor{
				{Name: "x", Type: descriptor.Basic("float32")},
				{Name: "tint", Type: descriptor.Named(tid("Color"))},
			},
		},
		{
			ID: tid("Color"), Kind: descriptor.KindEnum, Underlying: "uint8",
			Values: []descriptor.EnumValue{{Name: "Red", Value: 0}, {Name: "Blue", Value: 2}},
		},
	}

	set := descriptor.NewSet()
	for _, d := range descs {
		require.NoError(t, set.Add(d))
	}

	return set
}

func ptr[T any](v T) *T { return &v }

func TestDeclarations_Order(t *testing.T) {
	decls, err := Declarations(typemodel.NewRegistry(monsterSet(t)), tid("Monster"))
	require.NoError(t, err)

	names := make([]string, 0, len(decls))
	for _, d := range decls {
		names = append(names, d.Name)
	}

	// Color must precede Vec3 and Monster; Vec3 must precede Monster.
	// Tables and unions are otherwise in name order.
	assert.Equal(t, []string{"Color", "Equipment", "Vec3", "Monster", "Weapon"}, names)
}

func TestFile_Write(t *testing.T) {
	f := &File{
		Namespace: "Game.Sample",
		RootType:  "Monster",
		Includes:  []string{"common.fbs"},
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, typemodel.NewRegistry(monsterSet(t)), tid("Monster")))

	want := `include "common.fbs";

namespace Game.Sample;

attribute "priority";
attribute "tracked";

enum Color : ubyte {
    Red,
    Blue = 2
}

union Equipment {
    Weapon
}

struct Vec3 {
    x:float;
    tint:Color;
}

table Monster (priority: 1) {
    pos:Vec3;
    color:Color;
    weapons:[Weapon];
    equipped:Equipment;
    name:string (key);
}

table Weapon {
    damage:short (tracked);
    owner:Monster;
}

root_type Monster;
`
	assert.Equal(t, want, buf.String())
}

func TestFile_WriteMinimal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&File{}).Write(&buf, typemodel.NewRegistry(monsterSet(t)), tid("Color")))

	assert.Equal(t, "enum Color : ubyte {\n    Red,\n    Blue = 2\n}\n", buf.String())
}

func TestFile_WriteCombinedAttributes(t *testing.T) {
	f := &File{WriterOptions: []WriterOption{CombineAttributes()}}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, typemodel.NewRegistry(monsterSet(t)), tid("Weapon")))

	assert.Contains(t, buf.String(), "table Monster (priority: 1) {\n")
}

func TestFile_RootTypeErrors(t *testing.T) {
	reg := typemodel.NewRegistry(monsterSet(t))

	for _, root := range []string{"Vec3", "Unknown"} {
		t.Run(root, func(t *testing.T) {
			var buf bytes.Buffer

			err := (&File{RootType: root}).Write(&buf, reg, tid("Monster"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, typemodel.ErrInvalidConfiguration))
			assert.Contains(t, err.Error(), root)
			assert.Zero(t, buf.Len())
		})
	}
}

func TestDeclarations_NameClash(t *testing.T) {
	other := descriptor.TypeID{PkgPath: "fbsgen/other", Name: "Monster"}

	set := descriptor.NewSet()
	require.NoError(t, set.Add(descriptor.TypeDescriptor{ID: tid("Monster"), Kind: descriptor.KindTable}))
	require.NoError(t, set.Add(descriptor.TypeDescriptor{ID: other, Kind: descriptor.KindTable}))

	_, err := Declarations(typemodel.NewRegistry(set), tid("Monster"), other)
	require.Error(t, err)
	assert.True(t, errors.Is(err, typemodel.ErrInvalidConfiguration))
}

func TestOrderDeclarations(t *testing.T) {
	fixed := func(name string, fields ...*typemodel.TypeModel) *typemodel.TypeModel {
		m := &typemodel.TypeModel{ID: tid(name), Name: name, BaseType: typemodel.BaseTypeStruct,
			StructDef: &typemodel.StructDef{IsFixed: true}}
		for i, f := range fields {
			m.StructDef.Fields = append(m.StructDef.Fields, &typemodel.FieldTypeDefinition{Name: "f" + strconv.Itoa(i), TypeModel: f})
		}

		return m
	}

	color := &typemodel.TypeModel{ID: tid("Color"), Name: "Color", IsEnum: true, BaseType: typemodel.BaseTypeUInt8}
	vec := fixed("Vec", color)
	aabb := fixed("Aabb", vec, vec)
	table := &typemodel.TypeModel{ID: tid("Body"), Name: "Body", StructDef: &typemodel.StructDef{
		Fields: []*typemodel.FieldTypeDefinition{
			{Name: "box", TypeModel: aabb},
			{Name: "path", TypeModel: &typemodel.TypeModel{BaseType: typemodel.BaseTypeVector, ElementType: vec}},
		},
	}}

	order, err := orderDeclarations([]*typemodel.TypeModel{aabb, table, color, vec})
	require.NoError(t, err)

	names := make([]string, len(order))
	for i, m := range order {
		names[i] = m.Name
	}

	assert.Equal(t, []string{"Color", "Vec", "Aabb", "Body"}, names)

	left := fixed("Left")
	right := fixed("Right", left)
	left.StructDef.Fields = append(left.StructDef.Fields, &typemodel.FieldTypeDefinition{Name: "r", TypeModel: right})

	_, err = orderDeclarations([]*typemodel.TypeModel{color, left, right})
	require.Error(t, err)
	assert.True(t, errors.Is(err, typemodel.ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), pkg+".Left, "+pkg+".Right")
	assert.NotContains(t, err.Error(), "Color")
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()

	err := WriteFiles([]GeneratedFile{
		{Filename: "monster.fbs", Content: []byte("table Monster {\n}\n")},
		{Filename: "nested/weapon.fbs", Content: []byte("table Weapon {\n}\n")},
	}, filepath.Join(dir, "out"))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "out", "nested", "weapon.fbs"))
	require.NoError(t, err)
	assert.Equal(t, "table Weapon {\n}\n", string(got))
}
