package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeepBackwardCompatibleChanges_NewFieldAddedAsIs(t *testing.T) {
	existing := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.WithField("Name", ScalarType(ScalarString), ""),
	}
	updated := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.
			WithField("Name", ScalarType(ScalarString), "").
			WithField("Genre", ScalarType(ScalarString), ""),
	}

	merged := KeepBackwardCompatibleChanges(existing, updated, "Artist")
	genreType, ok := merged["Artist"].FieldType("Genre")
	require.True(t, ok)
	assert.True(t, genreType.Equal(ScalarType(ScalarString)))
}

func TestKeepBackwardCompatibleChanges_CommittedNonNullableFieldNeverWidensToNullable(t *testing.T) {
	existing := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.WithField("Name", ScalarType(ScalarString), ""),
	}
	updated := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.WithField("Name", NullableOf(ScalarType(ScalarString)), ""),
	}

	merged := KeepBackwardCompatibleChanges(existing, updated, "Artist")
	nameType, ok := merged["Artist"].FieldType("Name")
	require.True(t, ok)
	assert.True(t, nameType.Equal(ScalarType(ScalarString)), "should stay non-nullable")
}

func TestKeepBackwardCompatibleChanges_FieldDroppedFromUpdatedIsKept(t *testing.T) {
	existing := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.
			WithField("Name", ScalarType(ScalarString), "").
			WithField("Legacy", ScalarType(ScalarInt), ""),
	}
	updated := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.WithField("Name", ScalarType(ScalarString), ""),
	}

	merged := KeepBackwardCompatibleChanges(existing, updated, "Artist")
	legacyType, ok := merged["Artist"].FieldType("Legacy")
	require.True(t, ok)
	assert.True(t, legacyType.Equal(ScalarType(ScalarInt)))
}

func TestKeepBackwardCompatibleChanges_TypeOnlyOnCommittedSideIsKeptVerbatim(t *testing.T) {
	existing := ObjectTypeMap{
		"Artist":  ObjectType{Name: "Artist"}.WithField("address", ObjectRef("Address"), ""),
		"Address": ObjectType{Name: "Address"}.WithField("city", ScalarType(ScalarString), ""),
	}
	updated := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"},
	}

	merged := KeepBackwardCompatibleChanges(existing, updated, "Artist")
	_, ok := merged["Address"]
	assert.True(t, ok, "unreferenced committed type should survive reconciliation")
}

func TestKeepBackwardCompatibleChanges_ArrayElementsReconcileRecursively(t *testing.T) {
	existing := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.WithField("tags", ArrayOfType(ScalarType(ScalarString)), ""),
	}
	updated := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.WithField("tags", ArrayOfType(NullableOf(ScalarType(ScalarString))), ""),
	}

	merged := KeepBackwardCompatibleChanges(existing, updated, "Artist")
	tagsType, ok := merged["Artist"].FieldType("tags")
	require.True(t, ok)
	assert.True(t, tagsType.Equal(ArrayOfType(ScalarType(ScalarString))))
}

func TestKeepBackwardCompatibleChanges_DescriptionPrefersExistingThenUpdated(t *testing.T) {
	existing := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.WithField("Name", ScalarType(ScalarString), "original description"),
	}
	updated := ObjectTypeMap{
		"Artist": ObjectType{Name: "Artist"}.WithField("Name", ScalarType(ScalarString), "new description"),
	}

	merged := KeepBackwardCompatibleChanges(existing, updated, "Artist")
	field, ok := merged["Artist"].FieldType("Name")
	require.True(t, ok)
	_ = field

	var desc string
	for _, f := range merged["Artist"].Fields {
		if f.Name == "Name" {
			desc = f.Description
		}
	}
	assert.Equal(t, "original description", desc)
}
