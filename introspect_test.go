package querycore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeCollection struct {
	validator   bson.D
	hasSchema   bool
	validateErr error
	samples     []bson.D
	sampleErr   error
}

func (c *fakeCollection) Aggregate(ctx context.Context, pipeline []bson.D) ([]bson.Raw, error) {
	return nil, nil
}

func (c *fakeCollection) Sample(ctx context.Context, size int) ([]bson.Raw, error) {
	if c.sampleErr != nil {
		return nil, c.sampleErr
	}
	n := size
	if n > len(c.samples) {
		n = len(c.samples)
	}
	out := make([]bson.Raw, 0, n)
	for _, d := range c.samples[:n] {
		raw, err := bson.Marshal(d)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *fakeCollection) Validator(ctx context.Context) (bson.D, bool, error) {
	if c.validateErr != nil {
		return nil, false, c.validateErr
	}
	return c.validator, c.hasSchema, nil
}

type fakeDatabase struct {
	collections map[string]*fakeCollection
}

func (d *fakeDatabase) Collection(name string) DatabaseCollection {
	return d.collections[name]
}

func (d *fakeDatabase) RunCommand(ctx context.Context, cmd bson.D) (bson.Raw, error) {
	return nil, nil
}

func (d *fakeDatabase) ListCollectionNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(d.collections))
	for name := range d.collections {
		names = append(names, name)
	}
	sortStrings(names)
	return names, nil
}

func TestIntrospectCollection_PrefersValidatorOverSampling(t *testing.T) {
	coll := &fakeCollection{
		hasSchema: true,
		validator: bson.D{
			{Key: "bsonType", Value: "object"},
			{Key: "required", Value: bson.A{"name"}},
			{Key: "properties", Value: bson.D{
				{Key: "name", Value: bson.D{{Key: "bsonType", Value: "string"}}},
			}},
		},
		samples: []bson.D{{{Key: "name", Value: "unused"}, {Key: "extra", Value: int32(1)}}},
	}

	objectTypes, err := IntrospectCollection(context.Background(), coll, "artists", 5)
	require.NoError(t, err)

	root, ok := findObjectType(objectTypes, "artists")
	require.True(t, ok)
	_, hasExtra := root.FieldType("extra")
	assert.False(t, hasExtra, "sampled-only field must not leak in when a validator is present")
}

func TestIntrospectCollection_FallsBackToSamplingWhenNoValidator(t *testing.T) {
	coll := &fakeCollection{
		samples: []bson.D{
			{{Key: "name", Value: "Alice"}, {Key: "age", Value: int32(30)}},
			{{Key: "name", Value: "Bob"}},
		},
	}

	objectTypes, err := IntrospectCollection(context.Background(), coll, "people", 5)
	require.NoError(t, err)

	root, ok := findObjectType(objectTypes, "people")
	require.True(t, ok)
	ageType, ok := root.FieldType("age")
	require.True(t, ok)
	assert.True(t, ageType.Equal(NullableOf(ScalarType(ScalarInt))), "field missing from one sample becomes nullable")
}

func TestIntrospectCollection_EmptySampleYieldsBareRootType(t *testing.T) {
	coll := &fakeCollection{samples: nil}

	objectTypes, err := IntrospectCollection(context.Background(), coll, "empty", 5)
	require.NoError(t, err)

	root, ok := findObjectType(objectTypes, "empty")
	require.True(t, ok)
	assert.Empty(t, root.Fields)
}

func TestIntrospectCollection_PropagatesUnificationErrors(t *testing.T) {
	coll := &fakeCollection{
		samples: []bson.D{
			{{Key: "value", Value: "a string"}},
			{{Key: "value", Value: true}},
		},
	}

	_, err := IntrospectCollection(context.Background(), coll, "mixed", 5)
	require.Error(t, err)
	var mismatch *ScalarTypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestIntrospectDatabase_BuildsSchemaAcrossCollections(t *testing.T) {
	db := &fakeDatabase{collections: map[string]*fakeCollection{
		"artists": {samples: []bson.D{{{Key: "name", Value: "Alice"}}}},
		"albums": {
			hasSchema: true,
			validator: bson.D{
				{Key: "bsonType", Value: "object"},
				{Key: "required", Value: bson.A{}},
				{Key: "properties", Value: bson.D{
					{Key: "title", Value: bson.D{{Key: "bsonType", Value: "string"}}},
				}},
			},
		},
	}}

	schema, err := IntrospectDatabase(context.Background(), db, 5, nil)
	require.NoError(t, err)

	_, ok := schema.Collections["artists"]
	assert.True(t, ok)
	_, ok = schema.Collections["albums"]
	assert.True(t, ok)

	_, ok = schema.ObjectTypes["artists"].FieldType("name")
	assert.True(t, ok)
	_, ok = schema.ObjectTypes["albums"].FieldType("title")
	assert.True(t, ok)
}

func TestIntrospectDatabase_SkipsCollectionThatFailsToIntrospect(t *testing.T) {
	db := &fakeDatabase{collections: map[string]*fakeCollection{
		"broken": {sampleErr: assert.AnError},
		"fine":   {samples: []bson.D{{{Key: "x", Value: int32(1)}}}},
	}}

	schema, err := IntrospectDatabase(context.Background(), db, 5, nil)
	require.NoError(t, err)

	_, ok := schema.Collections["broken"]
	assert.False(t, ok)
	_, ok = schema.Collections["fine"]
	assert.True(t, ok)
}
