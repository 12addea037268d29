package querycore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/mongo-ndc/querycore"
)

func TestMongoDatabase_ListCollectionNamesAndAggregate(t *testing.T) {
	ctx := context.Background()
	coll := freshCollection(t)
	seedUsers(t, coll)

	db := querycore.NewMongoDatabase(testDB)

	names, err := db.ListCollectionNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, t.Name())

	dbColl := db.Collection(t.Name())
	results, err := dbColl.Aggregate(ctx, []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "active", Value: true}}}},
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestMongoDatabase_Sample(t *testing.T) {
	ctx := context.Background()
	coll := freshCollection(t)
	seedUsers(t, coll)

	db := querycore.NewMongoDatabase(testDB)
	dbColl := db.Collection(t.Name())

	sampled, err := dbColl.Sample(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, sampled, 3)
}

func TestMongoDatabase_ValidatorAbsentWhenCollectionHasNoSchema(t *testing.T) {
	ctx := context.Background()
	coll := freshCollection(t)
	seedUsers(t, coll)

	db := querycore.NewMongoDatabase(testDB)
	dbColl := db.Collection(t.Name())

	_, ok, err := dbColl.Validator(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMongoDatabase_RunCommand(t *testing.T) {
	ctx := context.Background()
	coll := freshCollection(t)
	seedUsers(t, coll)

	db := querycore.NewMongoDatabase(testDB)
	raw, err := db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}})
	require.NoError(t, err)

	var out bson.M
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, float64(1), out["ok"])
}
