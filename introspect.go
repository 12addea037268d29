package querycore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// IntrospectDatabase builds a Schema by examining every collection in db
// (C4/C5): collections that carry a $jsonSchema validator are typed from
// it directly, everything else is typed by sampling up to sampleSize
// documents and unifying the inferred shapes. It never touches a
// previously committed schema; callers that want backward-compatible
// merging should pass the result through UpdateSchema.
func IntrospectDatabase(ctx context.Context, db Database, sampleSize int, logger *zap.SugaredLogger) (*Schema, error) {
	names, err := db.ListCollectionNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("querycore: listing collections: %w", err)
	}

	schema := NewSchema()
	for _, name := range names {
		objectTypes, err := IntrospectCollection(ctx, db.Collection(name), name, sampleSize)
		if err != nil {
			if logger != nil {
				logger.Warnw("skipping collection during introspection", "collection", name, "error", err)
			}
			continue
		}
		schema.AddCollection(name, name, "", objectTypes)
	}
	return schema, nil
}

// IntrospectCollection types a single collection (C4/C5): its validator's
// $jsonSchema is preferred when present, falling back to sampling up to
// sampleSize documents and unifying the shapes found across them. The
// returned []ObjectType always includes the root type named after
// collectionName.
func IntrospectCollection(ctx context.Context, coll DatabaseCollection, collectionName string, sampleSize int) ([]ObjectType, error) {
	jsonSchema, ok, err := coll.Validator(ctx)
	if err != nil {
		return nil, fmt.Errorf("querycore: reading validator for %q: %w", collectionName, err)
	}
	if ok {
		objectTypes, err := InferFromValidator(collectionName, jsonSchema)
		if err != nil {
			return nil, fmt.Errorf("querycore: inferring %q from validator: %w", collectionName, err)
		}
		return objectTypes, nil
	}
	return sampleCollectionSchema(ctx, coll, collectionName, sampleSize)
}

// sampleCollectionSchema draws up to sampleSize documents from coll and
// unifies the object types inferred from each, the same way
// sample_schema_from_collection folds its cursor in the original
// implementation: the first document seeds the result, every later one is
// unified against it so a field missing from one document becomes
// Nullable rather than failing the whole collection.
func sampleCollectionSchema(ctx context.Context, coll DatabaseCollection, collectionName string, sampleSize int) ([]ObjectType, error) {
	raws, err := coll.Sample(ctx, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("querycore: sampling %q: %w", collectionName, err)
	}

	var collected []ObjectType
	for _, raw := range raws {
		var doc bson.D
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("querycore: decoding sampled document from %q: %w", collectionName, err)
		}
		objectTypes, err := InferFromDocument(collectionName, doc)
		if err != nil {
			return nil, fmt.Errorf("querycore: inferring %q from sample: %w", collectionName, err)
		}
		if collected == nil {
			collected = objectTypes
			continue
		}
		collected, err = unifyObjectTypeLists(collected, objectTypes)
		if err != nil {
			return nil, fmt.Errorf("querycore: unifying samples for %q: %w", collectionName, err)
		}
	}

	if collected == nil {
		// No documents to sample from; the collection is still typeable
		// as an empty object so downstream lookups don't fail outright.
		collected = []ObjectType{{Name: collectionName}}
	}
	return collected, nil
}
