package querycore_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tryvium-travels/memongo"

	"github.com/mongo-ndc/querycore"
)

// --- Test fixtures ---

type User struct {
	ID      bson.ObjectID `bson:"_id,omitempty"`
	Name    string        `bson:"name"`
	Age     int           `bson:"age"`
	Email   string        `bson:"email"`
	Country string        `bson:"country"`
	Active  bool          `bson:"active"`
	Tags    []string      `bson:"tags,omitempty"`
}

// Shared across every test in this package that needs a live collection:
// driver_test.go's connector tests and this file's own Aggregate coverage.
var (
	mongoServer *memongo.Server
	testClient  *mongo.Client
	testDB      *mongo.Database
)

func TestMain(m *testing.M) {
	var err error
	mongoServer, err = memongo.StartWithOptions(&memongo.Options{
		MongoVersion: "8.2.5",
	})
	if err != nil {
		log.Fatalf("memongo start: %v", err)
	}

	dbName := memongo.RandomDatabase()
	clientOpts := mongooptions.Client().ApplyURI(mongoServer.URI())
	testClient, err = mongo.Connect(clientOpts)
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}

	testDB = testClient.Database(dbName)

	code := m.Run()

	_ = testClient.Disconnect(context.Background())
	mongoServer.Stop()
	os.Exit(code)
}

// freshCollection drops and returns a clean collection per test.
func freshCollection(t *testing.T) *querycore.Collection[User] {
	t.Helper()
	coll := testDB.Collection(t.Name())
	_ = coll.Drop(context.Background())
	return querycore.Wrap[User](coll)
}

// seedUsers inserts a standard set of test users directly through the
// driver, since Collection[T] no longer exposes write methods of its own.
func seedUsers(t *testing.T, coll *querycore.Collection[User]) {
	t.Helper()
	ctx := context.Background()
	users := []interface{}{
		User{Name: "Alice", Age: 30, Email: "alice@example.com", Country: "US", Active: true, Tags: []string{"admin", "dev"}},
		User{Name: "Bob", Age: 25, Email: "bob@example.com", Country: "UK", Active: true, Tags: []string{"dev"}},
		User{Name: "Charlie", Age: 35, Email: "charlie@example.com", Country: "US", Active: false, Tags: []string{"ops"}},
		User{Name: "Diana", Age: 28, Email: "diana@example.com", Country: "DE", Active: true, Tags: []string{"dev", "ops"}},
		User{Name: "Eve", Age: 22, Email: "eve@example.com", Country: "UK", Active: false},
	}
	_, err := testDB.Collection(t.Name()).InsertMany(ctx, users)
	require.NoError(t, err, "seed users")
	_ = coll
}

// --- Aggregate coverage ---
//
// Collection[T]'s only remaining behavior beyond the raw mongo.Collection
// it wraps is Aggregate, which driver.go relies on for every query plan it
// runs. These tests exercise that path directly against a live server.

func TestIntegration_Aggregate_GroupBy(t *testing.T) {
	coll := freshCollection(t)
	ctx := context.Background()
	seedUsers(t, coll)

	type CountryStats struct {
		Country string `bson:"_id"`
		Count   int    `bson:"count"`
	}

	pipeline := querycore.NewPipeline().
		Group(querycore.GroupSpec("$country",
			querycore.GroupAcc("count", querycore.AccSum(1)),
		)).
		Sort(querycore.Desc("count"))

	stats, err := querycore.Aggregate[CountryStats](coll, ctx, pipeline)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	require.Equal(t, 2, stats[0].Count)
	require.Equal(t, 1, stats[2].Count)
	require.Equal(t, "DE", stats[2].Country)
}

func TestIntegration_Aggregate_MatchAndProject(t *testing.T) {
	coll := freshCollection(t)
	ctx := context.Background()
	seedUsers(t, coll)

	type NameOnly struct {
		Name string `bson:"name"`
	}

	pipeline := querycore.NewPipeline().
		Match(querycore.Eq("active", true)).
		Project(bson.D{
			{Key: "name", Value: 1},
			{Key: "_id", Value: 0},
		}).
		Sort(querycore.Asc("name"))

	names, err := querycore.Aggregate[NameOnly](coll, ctx, pipeline)
	require.NoError(t, err)
	require.Len(t, names, 3)
	require.Equal(t, "Alice", names[0].Name)
	require.Equal(t, "Bob", names[1].Name)
	require.Equal(t, "Diana", names[2].Name)
}

func TestIntegration_Aggregate_Unwind(t *testing.T) {
	coll := freshCollection(t)
	ctx := context.Background()
	seedUsers(t, coll)

	type TagCount struct {
		Tag   string `bson:"_id"`
		Count int    `bson:"count"`
	}

	pipeline := querycore.NewPipeline().
		Unwind("$tags").
		Group(querycore.GroupSpec("$tags",
			querycore.GroupAcc("count", querycore.AccSum(1)),
		)).
		Sort(querycore.Desc("count"))

	tags, err := querycore.Aggregate[TagCount](coll, ctx, pipeline)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	require.Equal(t, "dev", tags[0].Tag)
	require.Equal(t, 3, tags[0].Count)
}

func TestIntegration_Aggregate_EmptyPipelineFails(t *testing.T) {
	coll := freshCollection(t)
	ctx := context.Background()

	_, err := querycore.Aggregate[bson.Raw](coll, ctx, querycore.NewPipeline())
	require.ErrorIs(t, err, querycore.ErrEmptyPipeline)
}
