package querycore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSchema_MissingFileReturnsEmptySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	s, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Empty(t, s.Collections)
	assert.Empty(t, s.ObjectTypes)
}

func TestSaveSchema_ThenLoadSchema_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")

	s := NewSchema()
	s.AddCollection("movies", "movies", "movies collection", []ObjectType{
		{Name: "movies", Fields: []ObjectField{
			{Name: "_id", Type: ScalarType(ScalarObjectId)},
			{Name: "title", Type: ScalarType(ScalarString)},
		}},
	})

	require.NoError(t, SaveSchema(path, s))

	loaded, err := LoadSchema(path)
	require.NoError(t, err)
	docType, err := loaded.CollectionDocumentType("movies")
	require.NoError(t, err)
	assert.Equal(t, "movies", docType)
}

func TestUpdateSchema_MergesAndPersistsBackwardCompatibly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")

	original := NewSchema()
	original.AddCollection("movies", "movies", "original description", []ObjectType{
		{Name: "movies", Fields: []ObjectField{
			{Name: "title", Type: ScalarType(ScalarString)},
			{Name: "legacyField", Type: ScalarType(ScalarInt)},
		}},
	})
	require.NoError(t, SaveSchema(path, original))

	freshlyInferred := NewSchema()
	freshlyInferred.AddCollection("movies", "movies", "", []ObjectType{
		{Name: "movies", Fields: []ObjectField{
			{Name: "title", Type: ScalarType(ScalarString)},
			{Name: "year", Type: ScalarType(ScalarInt)},
		}},
	})

	merged, err := UpdateSchema(path, freshlyInferred)
	require.NoError(t, err)

	moviesType := merged.ObjectTypes["movies"]

	_, hasLegacy := moviesType.FieldType("legacyField")
	assert.True(t, hasLegacy, "field dropped from fresh introspection should be kept")

	_, hasYear := moviesType.FieldType("year")
	assert.True(t, hasYear, "new field should be added")

	coll := merged.Collections["movies"]
	assert.Equal(t, "original description", coll.Description)

	reloaded, err := LoadSchema(path)
	require.NoError(t, err)
	_, hasLegacyOnDisk := reloaded.ObjectTypes["movies"].FieldType("legacyField")
	assert.True(t, hasLegacyOnDisk, "merged schema should be persisted to disk")
}

func TestUpdateSchema_CollectionRemovedUpstreamIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")

	original := NewSchema()
	original.AddCollection("archived", "archived", "", []ObjectType{{Name: "archived"}})
	require.NoError(t, SaveSchema(path, original))

	freshlyInferred := NewSchema()
	merged, err := UpdateSchema(path, freshlyInferred)
	require.NoError(t, err)

	_, ok := merged.Collections["archived"]
	assert.True(t, ok, "collection no longer introspected should remain in the committed schema")
}
