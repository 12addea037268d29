package querycore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeNullable_Idempotent(t *testing.T) {
	assert.Equal(t, ExtendedJSON(), MakeNullable(ExtendedJSON()))
	assert.Equal(t, ScalarType(ScalarNull), MakeNullable(ScalarType(ScalarNull)))

	nullable := MakeNullable(ScalarType(ScalarInt))
	assert.True(t, nullable.Equal(NullableOf(ScalarType(ScalarInt))))
	assert.True(t, MakeNullable(nullable).Equal(nullable))
}

func TestIsNullable(t *testing.T) {
	assert.True(t, IsNullable(ExtendedJSON()))
	assert.True(t, IsNullable(NullableOf(ScalarType(ScalarInt))))
	assert.True(t, IsNullable(ScalarType(ScalarNull)))
	assert.False(t, IsNullable(ScalarType(ScalarInt)))
	assert.False(t, IsNullable(ObjectRef("Artist")))
}

func TestNormalize_CollapsesNestedNullable(t *testing.T) {
	doubled := NullableOf(NullableOf(ScalarType(ScalarInt)))
	normalized := Normalize(doubled)
	assert.True(t, normalized.Equal(NullableOf(ScalarType(ScalarInt))))
}

func TestNormalize_NullableOfExtendedJSONCollapses(t *testing.T) {
	normalized := Normalize(NullableOf(ExtendedJSON()))
	assert.True(t, normalized.Equal(ExtendedJSON()))
}

func TestNormalize_NullableOfNullCollapses(t *testing.T) {
	normalized := Normalize(NullableOf(ScalarType(ScalarNull)))
	assert.True(t, normalized.Equal(ScalarType(ScalarNull)))
}

func TestNormalize_PushesIntoArrayElement(t *testing.T) {
	arr := ArrayOfType(NullableOf(NullableOf(ScalarType(ScalarString))))
	normalized := Normalize(arr)
	assert.True(t, normalized.Equal(ArrayOfType(NullableOf(ScalarType(ScalarString)))))
}

func TestType_Equal(t *testing.T) {
	assert.True(t, ScalarType(ScalarInt).Equal(ScalarType(ScalarInt)))
	assert.False(t, ScalarType(ScalarInt).Equal(ScalarType(ScalarString)))
	assert.True(t, ObjectRef("Artist").Equal(ObjectRef("Artist")))
	assert.False(t, ObjectRef("Artist").Equal(ObjectRef("Album")))
	assert.True(t, ArrayOfType(ScalarType(ScalarInt)).Equal(ArrayOfType(ScalarType(ScalarInt))))
	assert.False(t, ArrayOfType(ScalarType(ScalarInt)).Equal(ArrayOfType(ScalarType(ScalarString))))
	assert.True(t, PredicateOver("Artist").Equal(PredicateOver("Artist")))
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "ExtendedJSON", ExtendedJSON().String())
	assert.Equal(t, "int", ScalarType(ScalarInt).String())
	assert.Equal(t, "Object(Artist)", ObjectRef("Artist").String())
	assert.Equal(t, "ArrayOf(int)", ArrayOfType(ScalarType(ScalarInt)).String())
	assert.Equal(t, "Nullable(int)", NullableOf(ScalarType(ScalarInt)).String())
	assert.Equal(t, "Predicate(Artist)", PredicateOver("Artist").String())
}

func TestType_JSONRoundTrip(t *testing.T) {
	types := []Type{
		ExtendedJSON(),
		ScalarType(ScalarInt),
		ObjectRef("Artist"),
		ArrayOfType(ScalarType(ScalarString)),
		NullableOf(ScalarType(ScalarDouble)),
		PredicateOver("Artist"),
		ArrayOfType(NullableOf(ObjectRef("Track"))),
	}
	for _, typ := range types {
		raw, err := json.Marshal(typ)
		require.NoError(t, err)

		var out Type
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.True(t, typ.Equal(out), "round trip mismatch for %s: got %s", typ, out)
	}
}

func TestType_MarshalJSON_ExtendedJSONIsBareString(t *testing.T) {
	raw, err := json.Marshal(ExtendedJSON())
	require.NoError(t, err)
	assert.JSONEq(t, `"ExtendedJSON"`, string(raw))
}

func TestType_MarshalJSON_ScalarIsTaggedObject(t *testing.T) {
	raw, err := json.Marshal(ScalarType(ScalarInt))
	require.NoError(t, err)
	assert.JSONEq(t, `{"scalar":"int"}`, string(raw))
}

func TestType_UnmarshalJSON_UnknownBareTagErrors(t *testing.T) {
	var out Type
	err := out.UnmarshalJSON([]byte(`"NotARealType"`))
	assert.Error(t, err)
}

func TestObjectType_FieldTypeAndWithField(t *testing.T) {
	obj := ObjectType{Name: "Artist"}
	obj = obj.WithField("Name", ScalarType(ScalarString), "artist name")
	obj = obj.WithField("ArtistId", ScalarType(ScalarInt), "")

	typ, ok := obj.FieldType("Name")
	require.True(t, ok)
	assert.True(t, typ.Equal(ScalarType(ScalarString)))

	_, ok = obj.FieldType("Missing")
	assert.False(t, ok)

	replaced := obj.WithField("Name", ScalarType(ScalarInt), "renamed type")
	require.Len(t, replaced.Fields, 2)
	newType, _ := replaced.FieldType("Name")
	assert.True(t, newType.Equal(ScalarType(ScalarInt)))
}

func TestObjectTypeMap_CloneIsIndependent(t *testing.T) {
	m := ObjectTypeMap{"Artist": ObjectType{Name: "Artist"}}
	clone := m.Clone()
	clone["Album"] = ObjectType{Name: "Album"}

	_, ok := m["Album"]
	assert.False(t, ok)
	_, ok = clone["Artist"]
	assert.True(t, ok)
}
