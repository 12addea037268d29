package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func albumsSchema() *Schema {
	s := NewSchema()
	s.AddCollection("albums", "albums", "", []ObjectType{
		{Name: "albums", Fields: []ObjectField{
			{Name: "_id", Type: ScalarType(ScalarObjectId)},
			{Name: "title", Type: ScalarType(ScalarString)},
			{Name: "tracks", Type: ArrayOfType(ObjectRef("albums_track"))},
		}},
		{Name: "albums_track", Fields: []ObjectField{
			{Name: "name", Type: ScalarType(ScalarString)},
			{Name: "duration", Type: ScalarType(ScalarInt)},
		}},
	})
	return s
}

func TestInferPipelineTypes_EmptyPipeline(t *testing.T) {
	ctx := NewPipelineTypeContext(NewSchema(), "", false, "result", testLogger())
	_, err := InferPipelineTypes(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyPipeline)
}

func TestInferPipelineTypes_DocumentsStage(t *testing.T) {
	ctx := NewPipelineTypeContext(NewSchema(), "", false, "result", testLogger())
	pipeline := []bson.D{
		{{Key: "$documents", Value: bson.A{
			bson.D{{Key: "name", Value: "Alice"}, {Key: "age", Value: int32(30)}},
			bson.D{{Key: "name", Value: "Bob"}, {Key: "age", Value: int32(25)}},
		}}},
	}
	types, err := InferPipelineTypes(ctx, pipeline)
	require.NoError(t, err)

	root, ok := types.ObjectTypes[types.ResultDocumentType]
	require.True(t, ok, "result document type must be registered")
	fieldNames := make(map[string]Type, len(root.Fields))
	for _, f := range root.Fields {
		fieldNames[f.Name] = f.Type
	}
	assert.Equal(t, ScalarType(ScalarString), fieldNames["name"])
	assert.Equal(t, ScalarType(ScalarInt), fieldNames["age"])
}

func TestInferPipelineTypes_DocumentsStageRequiresArray(t *testing.T) {
	ctx := NewPipelineTypeContext(NewSchema(), "", false, "result", testLogger())
	pipeline := []bson.D{
		{{Key: "$documents", Value: "not an array"}},
	}
	_, err := InferPipelineTypes(ctx, pipeline)
	require.Error(t, err)
	var notImpl *NotImplementedError
	assert.ErrorAs(t, err, &notImpl)
}

func TestInferPipelineTypes_MatchAndProject(t *testing.T) {
	ctx := NewPipelineTypeContext(albumsSchema(), "albums", true, "result", testLogger())
	pipeline := []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "title", Value: "Abbey Road"}}}},
		{{Key: "$project", Value: bson.D{{Key: "title", Value: int32(1)}, {Key: "_id", Value: int32(0)}}}},
	}
	types, err := InferPipelineTypes(ctx, pipeline)
	require.NoError(t, err)

	root := types.ObjectTypes[types.ResultDocumentType]
	names := make(map[string]bool, len(root.Fields))
	for _, f := range root.Fields {
		names[f.Name] = true
	}
	assert.True(t, names["title"])
	assert.False(t, names["_id"], "excluded by $project: {_id: 0}")
	assert.False(t, names["tracks"], "inclusion projection drops unlisted fields")
}

func TestInferPipelineTypes_MatchRejectsUnknownOperator(t *testing.T) {
	ctx := NewPipelineTypeContext(albumsSchema(), "albums", true, "result", testLogger())
	pipeline := []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "$unsupportedOp", Value: 1}}}},
	}
	_, err := InferPipelineTypes(ctx, pipeline)
	require.Error(t, err)
	var unknown *UnknownMatchDocumentOperatorError
	assert.ErrorAs(t, err, &unknown)
}

func TestInferPipelineTypes_UnwindThenGroup(t *testing.T) {
	ctx := NewPipelineTypeContext(albumsSchema(), "albums", true, "result", testLogger())
	pipeline := []bson.D{
		{{Key: "$unwind", Value: "$tracks"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$title"},
			{Key: "trackCount", Value: bson.D{{Key: "$sum", Value: int32(1)}}},
		}}},
	}
	types, err := InferPipelineTypes(ctx, pipeline)
	require.NoError(t, err)

	root := types.ObjectTypes[types.ResultDocumentType]
	names := make(map[string]bool, len(root.Fields))
	for _, f := range root.Fields {
		names[f.Name] = true
	}
	assert.True(t, names["_id"])
	assert.True(t, names["trackCount"])
}

func TestInferPipelineTypes_Lookup(t *testing.T) {
	schema := albumsSchema()
	schema.AddCollection("artists", "artists", "", []ObjectType{
		{Name: "artists", Fields: []ObjectField{
			{Name: "_id", Type: ScalarType(ScalarObjectId)},
			{Name: "name", Type: ScalarType(ScalarString)},
		}},
	})
	ctx := NewPipelineTypeContext(schema, "albums", true, "result", testLogger())
	pipeline := []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "artists"},
			{Key: "localField", Value: "artistId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "artistDocs"},
		}}},
	}
	types, err := InferPipelineTypes(ctx, pipeline)
	require.NoError(t, err)

	root := types.ObjectTypes[types.ResultDocumentType]
	var found bool
	for _, f := range root.Fields {
		if f.Name == "artistDocs" {
			found = true
			assert.Equal(t, KindArrayOf, f.Type.Kind)
		}
	}
	assert.True(t, found, "lookup must add the `as` field")
}

func TestInferPipelineTypes_CountStage(t *testing.T) {
	ctx := NewPipelineTypeContext(albumsSchema(), "albums", true, "result", testLogger())
	pipeline := []bson.D{
		{{Key: "$count", Value: "total"}},
	}
	types, err := InferPipelineTypes(ctx, pipeline)
	require.NoError(t, err)

	root := types.ObjectTypes[types.ResultDocumentType]
	require.Len(t, root.Fields, 1)
	assert.Equal(t, "total", root.Fields[0].Name)
	assert.Equal(t, ScalarType(ScalarInt), root.Fields[0].Type)
}

func TestInferPipelineTypes_NativeQueryVariable(t *testing.T) {
	ctx := NewPipelineTypeContext(albumsSchema(), "albums", true, "result", testLogger())
	pipeline := []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "title", Value: "{{albumTitle|string}}"}}}},
	}
	types, err := InferPipelineTypes(ctx, pipeline)
	require.NoError(t, err)
	assert.Equal(t, ScalarType(ScalarString), types.Parameters["albumTitle"])
}

func TestParseReferenceShorthand(t *testing.T) {
	ref := parseReferenceShorthand("{{albumTitle|String}}")
	assert.Equal(t, shorthandNativeVar, ref.kind)
	assert.Equal(t, "albumTitle", ref.name)
	assert.Equal(t, "String", ref.annotatedType)

	ref = parseReferenceShorthand("{{limit}}")
	assert.Equal(t, shorthandNativeVar, ref.kind)
	assert.Equal(t, "limit", ref.name)
	assert.Equal(t, "", ref.annotatedType)

	ref = parseReferenceShorthand("$$ROOT.title")
	assert.Equal(t, shorthandPipelineVar, ref.kind)
	assert.Equal(t, "ROOT", ref.name)
	assert.Equal(t, []string{"title"}, ref.path)

	ref = parseReferenceShorthand("$artist.name")
	assert.Equal(t, shorthandField, ref.kind)
	assert.Equal(t, []string{"artist", "name"}, ref.path)

	ref = parseReferenceShorthand("plain string literal")
	assert.Equal(t, shorthandOpaque, ref.kind)
}
