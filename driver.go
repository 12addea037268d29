package querycore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Database is the narrow execution surface the planner and introspector
// need from a MongoDB connection (§1: the driver itself is out of scope,
// this is the seam behind which any compatible driver or a test double can
// sit). It deliberately omits write operations; native mutations go
// through NativeMutation/NativeProcedure instead.
type Database interface {
	Collection(name string) DatabaseCollection
	RunCommand(ctx context.Context, cmd bson.D) (bson.Raw, error)
	ListCollectionNames(ctx context.Context) ([]string, error)
}

// DatabaseCollection is the per-collection half of Database.
type DatabaseCollection interface {
	// Aggregate runs a compiled pipeline and decodes each result document.
	Aggregate(ctx context.Context, pipeline []bson.D) ([]bson.Raw, error)
	// Sample draws up to size documents for schema introspection (C4).
	Sample(ctx context.Context, size int) ([]bson.Raw, error)
	// Validator returns the collection's $jsonSchema validator, if any,
	// for schema introspection (C5).
	Validator(ctx context.Context) (bson.D, bool, error)
}

// MongoDatabase adapts a real *mongo.Database to Database.
type MongoDatabase struct {
	db *mongo.Database
}

// NewMongoDatabase wraps db for use by the introspector and planner.
func NewMongoDatabase(db *mongo.Database) *MongoDatabase {
	return &MongoDatabase{db: db}
}

func (m *MongoDatabase) Collection(name string) DatabaseCollection {
	coll := m.db.Collection(name)
	return &mongoCollectionAdapter{raw: coll, typed: Wrap[bson.Raw](coll)}
}

func (m *MongoDatabase) RunCommand(ctx context.Context, cmd bson.D) (bson.Raw, error) {
	return m.db.RunCommand(ctx, cmd).Raw()
}

func (m *MongoDatabase) ListCollectionNames(ctx context.Context) ([]string, error) {
	return m.db.ListCollectionNames(ctx, bson.D{})
}

// mongoCollectionAdapter grounds its document-level operations in
// collection.go's generic Collection[T]/Aggregate, instantiated at
// bson.Raw so pipeline output is returned exactly as the server sent it;
// operations collection.go's typed wrapper has no equivalent for
// (listCollections-backed validator lookup, $sample) go through the raw
// *mongo.Collection directly.
type mongoCollectionAdapter struct {
	raw   *mongo.Collection
	typed *Collection[bson.Raw]
}

func (c *mongoCollectionAdapter) Aggregate(ctx context.Context, pipeline []bson.D) ([]bson.Raw, error) {
	p := NewPipeline()
	for _, stage := range pipeline {
		for _, e := range stage {
			p = p.RawStage(e.Key, e.Value)
		}
	}
	return Aggregate[bson.Raw](c.typed, ctx, p)
}

func (c *mongoCollectionAdapter) Sample(ctx context.Context, size int) ([]bson.Raw, error) {
	p := NewPipeline().RawStage("$sample", bson.D{{Key: "size", Value: size}})
	return Aggregate[bson.Raw](c.typed, ctx, p)
}

func (c *mongoCollectionAdapter) Validator(ctx context.Context) (bson.D, bool, error) {
	cursor, err := c.raw.Database().ListCollections(ctx, bson.D{{Key: "name", Value: c.raw.Name()}})
	if err != nil {
		return nil, false, fmt.Errorf("querycore: listing collections for %q: %w", c.raw.Name(), err)
	}
	defer cursor.Close(ctx)
	if !cursor.Next(ctx) {
		return nil, false, nil
	}
	var info struct {
		Options struct {
			Validator bson.D `bson:"validator"`
		} `bson:"options"`
	}
	if err := cursor.Decode(&info); err != nil {
		return nil, false, fmt.Errorf("querycore: decoding collection info for %q: %w", c.raw.Name(), err)
	}
	schema, ok := jsonSchemaOf(info.Options.Validator)
	return schema, ok, nil
}

func jsonSchemaOf(validator bson.D) (bson.D, bool) {
	for _, e := range validator {
		if e.Key == "$jsonSchema" {
			if d, ok := e.Value.(bson.D); ok {
				return d, true
			}
		}
	}
	return nil, false
}
