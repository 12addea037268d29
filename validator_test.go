package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func findObjectType(types []ObjectType, name string) (ObjectType, bool) {
	for _, ot := range types {
		if ot.Name == name {
			return ot, true
		}
	}
	return ObjectType{}, false
}

func TestInferFromValidator_SynthesizesMissingID(t *testing.T) {
	schema := bson.D{
		{Key: "bsonType", Value: "object"},
		{Key: "required", Value: bson.A{"Name"}},
		{Key: "properties", Value: bson.D{
			{Key: "Name", Value: bson.D{{Key: "bsonType", Value: "string"}}},
		}},
	}

	types, err := InferFromValidator("Artist", schema)
	require.NoError(t, err)

	root, ok := findObjectType(types, "Artist")
	require.True(t, ok)

	idType, ok := root.FieldType("_id")
	require.True(t, ok)
	assert.True(t, idType.Equal(ScalarType(ScalarObjectId)))
}

func TestInferFromValidator_RequiredFieldIsNotNullable(t *testing.T) {
	schema := bson.D{
		{Key: "bsonType", Value: "object"},
		{Key: "required", Value: bson.A{"Name"}},
		{Key: "properties", Value: bson.D{
			{Key: "Name", Value: bson.D{{Key: "bsonType", Value: "string"}}},
			{Key: "Bio", Value: bson.D{{Key: "bsonType", Value: "string"}}},
		}},
	}

	types, err := InferFromValidator("Artist", schema)
	require.NoError(t, err)

	root, _ := findObjectType(types, "Artist")
	nameType, ok := root.FieldType("Name")
	require.True(t, ok)
	assert.True(t, nameType.Equal(ScalarType(ScalarString)))

	bioType, ok := root.FieldType("Bio")
	require.True(t, ok)
	assert.True(t, bioType.Equal(NullableOf(ScalarType(ScalarString))))
}

func TestInferFromValidator_NestedObjectProducesNamedType(t *testing.T) {
	schema := bson.D{
		{Key: "bsonType", Value: "object"},
		{Key: "required", Value: bson.A{"Address"}},
		{Key: "properties", Value: bson.D{
			{Key: "Address", Value: bson.D{
				{Key: "bsonType", Value: "object"},
				{Key: "required", Value: bson.A{"City"}},
				{Key: "properties", Value: bson.D{
					{Key: "City", Value: bson.D{{Key: "bsonType", Value: "string"}}},
				}},
			}},
		}},
	}

	types, err := InferFromValidator("Artist", schema)
	require.NoError(t, err)

	root, _ := findObjectType(types, "Artist")
	addrType, ok := root.FieldType("Address")
	require.True(t, ok)
	assert.True(t, addrType.Equal(ObjectRef("Artist_Address")))

	nested, ok := findObjectType(types, "Artist_Address")
	require.True(t, ok)
	cityType, ok := nested.FieldType("City")
	require.True(t, ok)
	assert.True(t, cityType.Equal(ScalarType(ScalarString)))
}

func TestInferFromValidator_ObjectWithoutPropertiesBecomesExtendedJSON(t *testing.T) {
	schema := bson.D{
		{Key: "bsonType", Value: "object"},
		{Key: "properties", Value: bson.D{
			{Key: "Metadata", Value: bson.D{{Key: "bsonType", Value: "object"}}},
		}},
	}

	types, err := InferFromValidator("Artist", schema)
	require.NoError(t, err)
	root, _ := findObjectType(types, "Artist")
	metaType, ok := root.FieldType("Metadata")
	require.True(t, ok)
	assert.True(t, metaType.Equal(MakeNullable(ExtendedJSON())))
}

func TestInferFromValidator_ArrayOfScalarsProducesArrayOfType(t *testing.T) {
	schema := bson.D{
		{Key: "bsonType", Value: "object"},
		{Key: "required", Value: bson.A{"Tags"}},
		{Key: "properties", Value: bson.D{
			{Key: "Tags", Value: bson.D{
				{Key: "bsonType", Value: "array"},
				{Key: "items", Value: bson.D{{Key: "bsonType", Value: "string"}}},
			}},
		}},
	}

	types, err := InferFromValidator("Artist", schema)
	require.NoError(t, err)
	root, _ := findObjectType(types, "Artist")
	tagsType, ok := root.FieldType("Tags")
	require.True(t, ok)
	assert.True(t, tagsType.Equal(ArrayOfType(ScalarType(ScalarString))))
}

func TestInferFromValidator_ArrayMissingItemsErrors(t *testing.T) {
	schema := bson.D{
		{Key: "bsonType", Value: "object"},
		{Key: "properties", Value: bson.D{
			{Key: "Tags", Value: bson.D{{Key: "bsonType", Value: "array"}}},
		}},
	}
	_, err := InferFromValidator("Artist", schema)
	assert.Error(t, err)
}

func TestInferFromValidator_UnknownBsonTypeErrors(t *testing.T) {
	schema := bson.D{
		{Key: "bsonType", Value: "object"},
		{Key: "properties", Value: bson.D{
			{Key: "Weird", Value: bson.D{{Key: "bsonType", Value: "not-a-real-type"}}},
		}},
	}
	_, err := InferFromValidator("Artist", schema)
	assert.Error(t, err)
}

func TestInferFromValidator_RootMustBeObject(t *testing.T) {
	schema := bson.D{{Key: "bsonType", Value: "string"}}
	_, err := InferFromValidator("Artist", schema)
	assert.Error(t, err)
}
