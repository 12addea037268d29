package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/mongo-ndc/querycore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "introspect":
		err = runIntrospect(os.Args[2:])
	case "typecheck":
		err = runTypecheck(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: querycore-cli introspect -uri <mongodb uri> -db <name> -schema <path> [-sample 100]")
	fmt.Fprintln(os.Stderr, "       querycore-cli typecheck -schema <path> -collection <name> '<pipeline JSON>' OR echo '<pipeline JSON>' | querycore-cli typecheck -schema <path> -collection <name>")
}

// runIntrospect connects to a database, samples/reads validators for every
// collection, and merges the result backward-compatibly into the schema
// file at -schema, creating it if absent.
func runIntrospect(args []string) error {
	fs := flag.NewFlagSet("introspect", flag.ExitOnError)
	uri := fs.String("uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName := fs.String("db", "", "database name to introspect")
	schemaPath := fs.String("schema", "schema.json", "path to the committed schema file")
	sampleSize := fs.Int("sample", 100, "number of documents to sample per collection")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbName == "" {
		return fmt.Errorf("introspect: -db is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("introspect: building logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	client, err := mongo.Connect(options.Client().ApplyURI(*uri))
	if err != nil {
		return fmt.Errorf("introspect: connecting to %s: %w", *uri, err)
	}
	defer client.Disconnect(ctx)

	db := querycore.NewMongoDatabase(client.Database(*dbName))
	freshlyInferred, err := querycore.IntrospectDatabase(ctx, db, *sampleSize, logger.Sugar())
	if err != nil {
		return fmt.Errorf("introspect: %w", err)
	}

	merged, err := querycore.UpdateSchema(*schemaPath, freshlyInferred)
	if err != nil {
		return fmt.Errorf("introspect: updating %s: %w", *schemaPath, err)
	}

	fmt.Printf("wrote %s: %d collection(s), %d object type(s)\n", *schemaPath, len(merged.Collections), len(merged.ObjectTypes))
	return nil
}

// runTypecheck reads a native MongoDB aggregation pipeline as extended
// JSON (flag or stdin, mirroring the teacher's query-flag-or-stdin idiom),
// infers its parameter and result document types against a committed
// schema, and prints the inferred types as JSON.
func runTypecheck(args []string) error {
	fs := flag.NewFlagSet("typecheck", flag.ExitOnError)
	schemaPath := fs.String("schema", "schema.json", "path to the committed schema file")
	collection := fs.String("collection", "", "input collection name, omitted for a pipeline with no $input")
	pipelineFlag := fs.String("pipeline", "", "aggregation pipeline JSON to typecheck")
	if err := fs.Parse(args); err != nil {
		return err
	}

	jsonStr := *pipelineFlag
	if jsonStr == "" && fs.NArg() > 0 {
		jsonStr = strings.Join(fs.Args(), " ")
	}
	if jsonStr == "" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			bytes, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("typecheck: reading stdin: %w", err)
			}
			jsonStr = string(bytes)
		} else {
			usage()
			return fmt.Errorf("typecheck: no pipeline provided")
		}
	}

	jsonStr = strings.TrimSpace(jsonStr)
	if jsonStr == "" {
		return fmt.Errorf("typecheck: no pipeline provided")
	}

	pipeline, err := parsePipeline(jsonStr)
	if err != nil {
		return fmt.Errorf("typecheck: parsing pipeline: %w", err)
	}

	schema, err := querycore.LoadSchema(*schemaPath)
	if err != nil {
		return fmt.Errorf("typecheck: loading %s: %w", *schemaPath, err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("typecheck: building logger: %w", err)
	}
	defer logger.Sync()

	var inputDocType string
	if *collection != "" {
		inputDocType, err = schema.CollectionDocumentType(*collection)
		if err != nil {
			return fmt.Errorf("typecheck: %w", err)
		}
	}

	ctx := querycore.NewPipelineTypeContext(schema, inputDocType, *collection != "", "Pipeline", logger.Sugar())
	if _, err := querycore.InferPipelineTypes(ctx, pipeline); err != nil {
		return fmt.Errorf("typecheck: %w", err)
	}

	result, err := ctx.IntoTypes()
	if err != nil {
		return fmt.Errorf("typecheck: %w", err)
	}

	out, err := json.MarshalIndent(typesReport{
		ResultDocumentType: result.ResultDocumentType,
		Parameters:         typeNames(result.Parameters),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("typecheck: encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

type typesReport struct {
	ResultDocumentType string            `json:"resultDocumentType"`
	Parameters         map[string]string `json:"parameters"`
}

func typeNames(params map[string]querycore.Type) map[string]string {
	out := make(map[string]string, len(params))
	for name, t := range params {
		out[name] = t.String()
	}
	return out
}

func parsePipeline(jsonStr string) ([]bson.D, error) {
	var raw []bson.D
	if err := bson.UnmarshalExtJSON([]byte(jsonStr), false, &raw); err != nil {
		// Users often paste improperly escaped JSON on the command line.
		if strings.Contains(jsonStr, `\"`) {
			unescaped := strings.ReplaceAll(jsonStr, `\"`, `"`)
			unescaped = strings.ReplaceAll(unescaped, `\\`, `\`)
			if errFallback := bson.UnmarshalExtJSON([]byte(unescaped), false, &raw); errFallback == nil {
				return raw, nil
			}
		}
		return nil, err
	}
	return raw, nil
}
