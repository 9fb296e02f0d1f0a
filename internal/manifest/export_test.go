package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fbsgen/internal/descriptor"
)

func TestFromSet_RoundTrip(t *testing.T) {
	m, err := LoadFile("testdata/monster.yaml")
	require.NoError(t, err)

	set, err := m.DescriptorSet()
	require.NoError(t, err)

	exported, err := FromSet(set, "")
	require.NoError(t, err)
	assert.Equal(t, "game/sample", exported.Package)

	data, err := Marshal(exported)
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)

	againSet, err := again.DescriptorSet()
	require.NoError(t, err)

	require.Equal(t, set.IDs(), againSet.IDs())

	for _, id := range set.IDs() {
		want, _ := set.Get(id)
		got, _ := againSet.Get(id)
		assert.Equal(t, want, got, id.String())
	}
}

func TestFromSet_QualifiesOtherPackages(t *testing.T) {
	geom := descriptor.TypeID{PkgPath: "game/geom", Name: "Vec3"}
	monster := descriptor.TypeID{PkgPath: "game/sample", Name: "Monster"}

	set := descriptor.NewSet()
	require.NoError(t, set.Add(descriptor.TypeDescriptor{ID: geom, Kind: descriptor.KindStruct,
		Fields: []descriptor.FieldDescriptor{{Name: "x", Type: descriptor.Basic("float32")}}}))
	require.NoError(t, set.Add(descriptor.TypeDescriptor{ID: monster, Kind: descriptor.KindTable,
		Fields: []descriptor.FieldDescriptor{
			{Name: "path", Type: descriptor.SequenceOf(descriptor.Named(geom)), Order: 1, OrderSet: true},
		}}))

	assert.Equal(t, []string{"game/geom", "game/sample"}, Packages(set))

	_, err := FromSet(set, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "span 2 packages")

	m, err := FromSet(set, "game/sample")
	require.NoError(t, err)
	require.Len(t, m.Types, 1)
	assert.Equal(t, "[game/geom.Vec3]", m.Types[0].Fields[0].Type)
	require.NotNil(t, m.Types[0].Fields[0].Order)
	assert.Equal(t, 1, *m.Types[0].Fields[0].Order)

	_, err = FromSet(set, "game/other")
	assert.Error(t, err)
}

func TestFromSet_OpaqueField(t *testing.T) {
	set := descriptor.NewSet()
	require.NoError(t, set.Add(descriptor.TypeDescriptor{
		ID:     descriptor.TypeID{PkgPath: "p", Name: "T"},
		Kind:   descriptor.KindTable,
		Fields: []descriptor.FieldDescriptor{{Name: "m", Type: descriptor.Opaque("map[string]int")}},
	}))

	_, err := FromSet(set, "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map[string]int")
}

func TestValidate_NotesUnreferencedTypes(t *testing.T) {
	m, err := LoadFile("testdata/monster.yaml")
	require.NoError(t, err)

	notes := m.Validate().Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "unreferenced", notes[0].Code)
	assert.Equal(t, descriptor.TypeID{PkgPath: "game/sample", Name: "Monster"}, notes[0].Type)
}
