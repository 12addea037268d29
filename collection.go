package querycore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Collection is a type-safe wrapper around mongo.Collection that decodes
// results into T. driver.go's MongoDatabase instantiates it at bson.Raw so
// the aggregation pipeline it compiles (assemble.go/introspect.go) can run
// through one shared Aggregate implementation instead of each call site
// decoding a *mongo.Cursor by hand.
type Collection[T any] struct {
	coll *mongo.Collection
}

// Wrap creates a typed Collection wrapper around a mongo.Collection.
func Wrap[T any](coll *mongo.Collection) *Collection[T] {
	return &Collection[T]{coll: coll}
}

// Aggregate runs a pipeline built by pipeline.go's builder and decodes each
// result document as R. The type parameter R can differ from the
// collection's T when the pipeline reshapes documents (driver.go always
// instantiates both at bson.Raw, since the caller decodes the raw result
// itself).
func Aggregate[R any, T any](c *Collection[T], ctx context.Context, pipeline Pipeline) ([]R, error) {
	if pipeline.IsEmpty() {
		return nil, fmt.Errorf("%w: Aggregate requires a non-empty pipeline", ErrEmptyPipeline)
	}
	cursor, err := c.coll.Aggregate(ctx, pipeline.BsonD())
	if err != nil {
		return nil, err
	}
	var results []R
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
