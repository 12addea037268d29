package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnify_ExtendedJSONIsTop(t *testing.T) {
	assert.True(t, Unify(ExtendedJSON(), ScalarType(ScalarInt)).Equal(ExtendedJSON()))
	assert.True(t, Unify(ScalarType(ScalarInt), ExtendedJSON()).Equal(ExtendedJSON()))
}

func TestUnify_UndefinedIsIdentity(t *testing.T) {
	assert.True(t, Unify(ScalarType(ScalarUndefined), ScalarType(ScalarInt)).Equal(ScalarType(ScalarInt)))
	assert.True(t, Unify(ScalarType(ScalarInt), ScalarType(ScalarUndefined)).Equal(ScalarType(ScalarInt)))
}

func TestUnify_NullWidensToNullable(t *testing.T) {
	result := Unify(ScalarType(ScalarNull), ScalarType(ScalarString))
	assert.True(t, result.Equal(NullableOf(ScalarType(ScalarString))))
}

func TestUnify_BothNullStaysNull(t *testing.T) {
	result := Unify(ScalarType(ScalarNull), ScalarType(ScalarNull))
	assert.True(t, result.Equal(ScalarType(ScalarNull)))
}

func TestUnify_NullableInnerUnified(t *testing.T) {
	result := Unify(NullableOf(ScalarType(ScalarInt)), NullableOf(ScalarType(ScalarLong)))
	assert.True(t, result.Equal(NullableOf(ScalarType(ScalarLong))))
}

func TestUnify_ScalarWidening(t *testing.T) {
	result := Unify(ScalarType(ScalarInt), ScalarType(ScalarDouble))
	assert.True(t, result.Equal(ScalarType(ScalarDouble)))
}

func TestUnify_IncomparableScalarsWidenToExtendedJSON(t *testing.T) {
	result := Unify(ScalarType(ScalarString), ScalarType(ScalarBool))
	assert.True(t, result.Equal(ExtendedJSON()))
}

func TestUnify_SameNamedObjectStaysNamed(t *testing.T) {
	result := Unify(ObjectRef("Artist"), ObjectRef("Artist"))
	assert.True(t, result.Equal(ObjectRef("Artist")))
}

func TestUnify_DifferentNamedObjectsWidenToExtendedJSON(t *testing.T) {
	result := Unify(ObjectRef("Artist"), ObjectRef("Album"))
	assert.True(t, result.Equal(ExtendedJSON()))
}

func TestUnify_ArraysUnifyElementwise(t *testing.T) {
	result := Unify(ArrayOfType(ScalarType(ScalarInt)), ArrayOfType(ScalarType(ScalarDouble)))
	assert.True(t, result.Equal(ArrayOfType(ScalarType(ScalarDouble))))
}

func TestUnifyObjectType_SharedFieldUnifiedMissingFieldNullable(t *testing.T) {
	a := ObjectType{Name: "Artist"}.
		WithField("Name", ScalarType(ScalarString), "").
		WithField("Founded", ScalarType(ScalarInt), "")
	b := ObjectType{Name: "Artist"}.
		WithField("Name", ScalarType(ScalarString), "")

	merged := UnifyObjectType(a, b, ObjectTypeMap{})

	nameType, ok := merged.FieldType("Name")
	require := assert.New(t)
	require.True(ok)
	require.True(nameType.Equal(ScalarType(ScalarString)))

	foundedType, ok := merged.FieldType("Founded")
	require.True(ok)
	require.True(foundedType.Equal(NullableOf(ScalarType(ScalarInt))))
}

func TestUnifyObjectType_FieldOnlyOnRightSideBecomesNullable(t *testing.T) {
	a := ObjectType{Name: "Artist"}.WithField("Name", ScalarType(ScalarString), "")
	b := ObjectType{Name: "Artist"}.
		WithField("Name", ScalarType(ScalarString), "").
		WithField("Genre", ScalarType(ScalarString), "")

	merged := UnifyObjectType(a, b, ObjectTypeMap{})
	genreType, ok := merged.FieldType("Genre")
	assert.True(t, ok)
	assert.True(t, genreType.Equal(NullableOf(ScalarType(ScalarString))))
}

func TestUnifyObjectType_RecursesIntoNestedObjectTypeTable(t *testing.T) {
	types := ObjectTypeMap{
		"Address": ObjectType{Name: "Address"}.WithField("city", ScalarType(ScalarString), ""),
	}
	a := ObjectType{Name: "Artist"}.WithField("address", ObjectRef("Address"), "")
	b := ObjectType{Name: "Artist"}.WithField("address", ObjectRef("Address"), "")

	merged := UnifyObjectType(a, b, types)
	addrType, ok := merged.FieldType("address")
	assert.True(t, ok)
	assert.True(t, addrType.Equal(ObjectRef("Address")))
}

func TestMergeSchemas_UnionsAndUnifiesSharedNames(t *testing.T) {
	left := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.WithField("Name", ScalarType(ScalarString), ""),
	}
	right := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.WithField("Founded", ScalarType(ScalarInt), ""),
		"Album":  ObjectType{Name: "Album"},
	}

	merged := MergeSchemas(left, right)
	assert.Contains(t, merged, "Album")

	artist := merged["Artist"]
	_, ok := artist.FieldType("Founded")
	assert.True(t, ok)
}

func TestMergeSchemas_DoesNotMutateInputs(t *testing.T) {
	left := ObjectTypeMap{"Artist": ObjectType{Name: "Artist"}}
	right := ObjectTypeMap{"Album": ObjectType{Name: "Album"}}

	_ = MergeSchemas(left, right)

	_, leftHasAlbum := left["Album"]
	assert.False(t, leftHasAlbum)
}
