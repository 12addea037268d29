package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyCompileContext() ExpressionCompileContext {
	return ExpressionCompileContext{Relationships: map[string]Relationship{}, UnrelatedJoins: map[string]UnrelatedJoin{}}
}

func TestCompileExpression_ScalarEquality(t *testing.T) {
	expr := BinaryComparisonExpr(ColumnTarget("status", ScalarType(ScalarString)), CmpEqual, ScalarValue("active", ScalarType(ScalarString)))
	f, err := CompileExpression(expr, emptyCompileContext())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":{"$eq":"active"}}`, f.CompactJSON())
}

func TestCompileExpression_NestedArrayRelationshipElemMatch(t *testing.T) {
	// Albums.Tracks.Name = "Helter Skelter", through two array relationships.
	namePredicate := BinaryComparisonExpr(ColumnTarget("Name", ScalarType(ScalarString)), CmpEqual, ScalarValue("Helter Skelter", ScalarType(ScalarString)))
	tracksExists := ExistsExpr(RelatedExists("Tracks"), &namePredicate)
	albumsExists := ExistsExpr(RelatedExists("Albums"), &tracksExists)

	ctx := ExpressionCompileContext{
		Relationships: map[string]Relationship{
			"Albums": {RelationshipType: RelationshipArray, Query: &Query{Relationships: map[string]Relationship{
				"Tracks": {RelationshipType: RelationshipArray, Query: &Query{Relationships: map[string]Relationship{}}},
			}}},
		},
		UnrelatedJoins: map[string]UnrelatedJoin{},
	}

	f, err := CompileExpression(albumsExists, ctx)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"Albums":{"$elemMatch":{"Tracks":{"$elemMatch":{"Name":{"$eq":"Helter Skelter"}}}}}}`,
		f.CompactJSON())
}

func TestCompileExpression_ExistsWithoutPredicate(t *testing.T) {
	ctx := ExpressionCompileContext{
		Relationships:  map[string]Relationship{"Tracks": {RelationshipType: RelationshipArray}},
		UnrelatedJoins: map[string]UnrelatedJoin{},
	}
	expr := ExistsExpr(RelatedExists("Tracks"), nil)
	f, err := CompileExpression(expr, ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Tracks.0":{"$exists":true}}`, f.CompactJSON())
}

func TestCompileExpression_UnspecifiedRelationshipErrors(t *testing.T) {
	expr := ExistsExpr(RelatedExists("bogus"), nil)
	_, err := CompileExpression(expr, emptyCompileContext())
	require.Error(t, err)
	var unknown *UnknownRelationshipError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "bogus", unknown.Name)
}

func TestCompileExpression_ColumnComparisonFallsBackToExpr(t *testing.T) {
	expr := BinaryComparisonExpr(
		ColumnTarget("spent", ScalarType(ScalarInt)),
		CmpGreaterThan,
		ColumnValue("budget", ScalarType(ScalarInt)),
	)
	f, err := CompileExpression(expr, emptyCompileContext())
	require.NoError(t, err)
	assert.JSONEq(t, `{"$expr":{"$gt":["$spent","$budget"]}}`, f.CompactJSON())
}

func TestCompileExpression_IRegexSetsCaseInsensitiveOption(t *testing.T) {
	expr := BinaryComparisonExpr(ColumnTarget("name", ScalarType(ScalarString)), CmpIRegex, ScalarValue("^a", ScalarType(ScalarString)))
	f, err := CompileExpression(expr, emptyCompileContext())
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":{"$regex":"^a","$options":"i"}}`, f.CompactJSON())
}

func TestCompileExpression_NotFallsBackToExpr(t *testing.T) {
	inner := BinaryComparisonExpr(ColumnTarget("active", ScalarType(ScalarString)), CmpEqual, ScalarValue(true, ScalarType(ScalarString)))
	expr := NotExpr(inner)
	f, err := CompileExpression(expr, emptyCompileContext())
	require.NoError(t, err)
	assert.JSONEq(t, `{"$expr":{"$not":[{"$eq":["$active",true]}]}}`, f.CompactJSON())
}

func TestCompileExpression_FieldNameWithDotUsesGetField(t *testing.T) {
	expr := BinaryComparisonExpr(ColumnTarget("a.b", ScalarType(ScalarString)), CmpEqual, ScalarValue("x", ScalarType(ScalarString)))
	f, err := CompileExpression(expr, emptyCompileContext())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"$expr":{"$eq":[{"$getField":{"field":{"$literal":"a.b"},"input":"$$ROOT"}},"x"]}}`,
		f.CompactJSON())
}
