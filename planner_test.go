package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackJoinSchema() *Schema {
	s := NewSchema()
	s.AddCollection("albums", "albums", "", []ObjectType{
		{Name: "albums", Fields: []ObjectField{
			{Name: "_id", Type: ScalarType(ScalarObjectId)},
			{Name: "title", Type: ScalarType(ScalarString)},
		}},
	})
	s.AddCollection("tracks", "tracks", "", []ObjectType{
		{Name: "tracks", Fields: []ObjectField{
			{Name: "_id", Type: ScalarType(ScalarObjectId)},
			{Name: "albumId", Type: ScalarType(ScalarObjectId)},
			{Name: "genreId", Type: ScalarType(ScalarObjectId)},
			{Name: "name", Type: ScalarType(ScalarString)},
		}},
	})
	s.AddCollection("genres", "genres", "", []ObjectType{
		{Name: "genres", Fields: []ObjectField{
			{Name: "_id", Type: ScalarType(ScalarObjectId)},
			{Name: "name", Type: ScalarType(ScalarString)},
		}},
	})
	return s
}

func trackRelationships() map[string]RelationshipDef {
	return map[string]RelationshipDef{
		"tracks": {
			ColumnMapping:    map[string][]string{"_id": {"albumId"}},
			RelationshipType: RelationshipArray,
			TargetCollection: "tracks",
		},
		"genre": {
			ColumnMapping:    map[string][]string{"genreId": {"_id"}},
			RelationshipType: RelationshipObject,
			TargetCollection: "genres",
		},
	}
}

func TestPlanForRelationshipPath_SingleHop(t *testing.T) {
	planState := NewQueryPlanState(trackJoinSchema(), trackRelationships())
	path := []RelationshipPathElement{{Relationship: "tracks"}}

	aliases, objType, err := PlanForRelationshipPath(planState, path, []string{"name"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tracks"}, aliases)
	assert.Equal(t, "tracks", objType.Name)

	rel, ok := planState.IntoRelationships()["tracks"]
	require.True(t, ok)
	require.NotNil(t, rel.Query)
	assert.Equal(t, QueryFinalized, rel.Query.State())
	f, ok := rel.Query.Fields["name"]
	require.True(t, ok)
	assert.Equal(t, ScalarType(ScalarString), f.ColumnType)
}

func TestPlanForRelationshipPath_NestedHopsWrapOutward(t *testing.T) {
	planState := NewQueryPlanState(trackJoinSchema(), trackRelationships())
	path := []RelationshipPathElement{{Relationship: "tracks"}, {Relationship: "genre"}}

	aliases, objType, err := PlanForRelationshipPath(planState, path, []string{"name"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tracks", "genre"}, aliases, "aliases are in root-to-leaf order")
	assert.Equal(t, "genres", objType.Name)

	tracksRel, ok := planState.IntoRelationships()["tracks"]
	require.True(t, ok)
	assert.Nil(t, tracksRel.Query.Fields, "outer sub-query carries no fields of its own")

	genreRel, ok := tracksRel.Query.Relationships["genre"]
	require.True(t, ok, "inner relationship is nested inside the outer sub-query, not the root state")
	f, ok := genreRel.Query.Fields["name"]
	require.True(t, ok)
	assert.Equal(t, ScalarType(ScalarString), f.ColumnType)
}

func TestPlanForRelationshipPath_UnspecifiedRelation(t *testing.T) {
	planState := NewQueryPlanState(trackJoinSchema(), trackRelationships())
	_, _, err := PlanForRelationshipPath(planState, []RelationshipPathElement{{Relationship: "bogus"}}, nil, nil)
	require.Error(t, err)
	var unspecified *UnspecifiedRelationError
	assert.ErrorAs(t, err, &unspecified)
	assert.Equal(t, "bogus", unspecified.Name)
}

func TestQueryStateMachine_MonotonicTransitions(t *testing.T) {
	q := NewQuery()
	assert.Equal(t, QueryFresh, q.State())

	err := q.ResolvePredicate(nil)
	require.Error(t, err, "cannot resolve predicate before fields")
	var stateErr *QueryStateTransitionError
	assert.ErrorAs(t, err, &stateErr)

	require.NoError(t, q.ResolveFields(nil, nil))
	require.Error(t, q.ResolveFields(nil, nil), "fields stage cannot reopen once closed")

	require.NoError(t, q.ResolvePredicate(nil))
	require.NoError(t, q.ResolveOrderBy(nil))
	require.NoError(t, q.ResolveGrouping(nil))
	require.NoError(t, q.Finalize(nil, nil, RootScope()))
	assert.Equal(t, QueryFinalized, q.State())

	require.Error(t, q.ResolveGrouping(nil), "cannot reopen a finalized query")
}

func TestQueryPlanState_RegisterVariableUseDedupes(t *testing.T) {
	planState := NewQueryPlanState(trackJoinSchema(), trackRelationships())
	planState.RegisterVariableUse("minAge", ScalarType(ScalarInt))
	planState.RegisterVariableUse("minAge", ScalarType(ScalarInt))
	planState.RegisterVariableUse("minAge", ScalarType(ScalarDouble))

	info := planState.IntoQueryPlanInfo()
	assert.Len(t, info.VariableTypes["minAge"], 2)
}

func TestQueryPlanState_RegisterUnrelatedJoin(t *testing.T) {
	planState := NewQueryPlanState(trackJoinSchema(), trackRelationships())
	q := NewQuery()
	require.NoError(t, q.ResolveFields(nil, nil))
	require.NoError(t, q.ResolvePredicate(nil))
	require.NoError(t, q.ResolveOrderBy(nil))
	require.NoError(t, q.ResolveGrouping(nil))
	require.NoError(t, q.Finalize(nil, nil, RootScope()))

	key := planState.RegisterUnrelatedJoin("genres", nil, q)
	info := planState.IntoQueryPlanInfo()
	join, ok := info.UnrelatedJoins[key]
	require.True(t, ok)
	assert.Equal(t, "genres", join.TargetCollection)
}
