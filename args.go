package querycore

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ResolveArguments checks a supplied argument map against a declared
// parameter-type map and converts every value to BSON, according to the
// parameter's declared Type. Missing and excess arguments are each reported
// exactly once, as the full set rather than fail-fast on the first name
// found, mirroring the original's BTreeMap-partition approach.
func ResolveArguments(parameters map[string]Type, arguments map[string]Argument, objectTypes ObjectTypeMap) (map[string]bson.D, error) {
	present, err := partitionArguments(parameters, arguments)
	if err != nil {
		return nil, err
	}

	out := make(map[string]bson.D, len(present))
	errs := map[string]*JSONToBSONError{}
	for _, r := range present {
		d, err := argumentToMongoExpression(r.arg, r.typ, objectTypes)
		if err != nil {
			errs[r.name] = toJSONToBSONError(r.name, err)
			continue
		}
		out[r.name] = d
	}
	if len(errs) > 0 {
		return nil, &InvalidArgumentsError{Errors: errs}
	}
	return out, nil
}

// ResolveArgumentValues resolves arguments the same way as ResolveArguments
// (missing/excess detection first), but returns the converted BSON values
// themselves rather than `$literal`-wrapped expression documents. Native
// mutations and procedures (§4.15) interpolate arguments directly into an
// update or command template; there is no enclosing aggregation pipeline to
// bind a "$$var" reference against, so a variable-kind argument has no
// meaning here and is rejected.
func ResolveArgumentValues(parameters map[string]Type, arguments map[string]Argument, objectTypes ObjectTypeMap) (map[string]interface{}, error) {
	present, err := partitionArguments(parameters, arguments)
	if err != nil {
		return nil, err
	}

	out := make(map[string]interface{}, len(present))
	errs := map[string]*JSONToBSONError{}
	for _, r := range present {
		var value interface{}
		var convErr error
		switch r.arg.Kind {
		case ArgumentLiteralKind:
			value, convErr = JSONToBSON(r.typ, r.arg.Value, objectTypes)
		case ArgumentPredicateKind:
			if r.arg.Predicate == nil {
				convErr = &JSONToBSONError{Reason: "predicate argument has no expression"}
				break
			}
			var f Filter
			f, convErr = CompileExpression(*r.arg.Predicate, ExpressionCompileContext{})
			if convErr == nil {
				value = f.BsonD()
			}
		default:
			convErr = &JSONToBSONError{Reason: "variable arguments are not valid outside a query pipeline"}
		}
		if convErr != nil {
			errs[r.name] = toJSONToBSONError(r.name, convErr)
			continue
		}
		out[r.name] = value
	}
	if len(errs) > 0 {
		return nil, &InvalidArgumentsError{Errors: errs}
	}
	return out, nil
}

type presentArgument struct {
	name string
	arg  Argument
	typ  Type
}

// partitionArguments validates there are no excess arguments, then splits
// parameters into present/missing, reporting each set in full rather than
// stopping at the first name found.
func partitionArguments(parameters map[string]Type, arguments map[string]Argument) ([]presentArgument, error) {
	if err := validateNoExcessArguments(parameters, arguments); err != nil {
		return nil, err
	}

	var present []presentArgument
	var missing []string
	for name, typ := range parameters {
		if arg, ok := arguments[name]; ok {
			present = append(present, presentArgument{name: name, arg: arg, typ: typ})
		} else {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingArgumentsError{Names: missing}
	}
	return present, nil
}

func toJSONToBSONError(name string, err error) *JSONToBSONError {
	if e, ok := err.(*JSONToBSONError); ok {
		e.Name = name
		return e
	}
	return &JSONToBSONError{Name: name, Reason: err.Error()}
}

func validateNoExcessArguments(parameters map[string]Type, arguments map[string]Argument) error {
	var excess []string
	for name := range arguments {
		if _, ok := parameters[name]; !ok {
			excess = append(excess, name)
		}
	}
	if len(excess) > 0 {
		sort.Strings(excess)
		return &ExcessArgumentsError{Names: excess}
	}
	return nil
}

// argumentToMongoExpression renders one resolved Argument as a bson.D
// expression document: {"$literal": <converted value>} for a literal or an
// inlined predicate (wrapping in $literal keeps the result usable anywhere
// an aggregation expression is expected), or {"$literal": "$$<var>"} for a
// variable reference, so the caller always gets a document regardless of
// the argument kind.
func argumentToMongoExpression(arg Argument, parameterType Type, objectTypes ObjectTypeMap) (bson.D, error) {
	switch arg.Kind {
	case ArgumentVariableKind:
		varName := QueryVariableName(arg.Name, parameterType)
		return bson.D{{Key: "$literal", Value: "$$" + varName}}, nil
	case ArgumentLiteralKind:
		converted, err := JSONToBSON(parameterType, arg.Value, objectTypes)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$literal", Value: converted}}, nil
	case ArgumentPredicateKind:
		if arg.Predicate == nil {
			return nil, &JSONToBSONError{Name: arg.Name, Reason: "predicate argument has no expression"}
		}
		f, err := CompileExpression(*arg.Predicate, ExpressionCompileContext{})
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$literal", Value: f.BsonD()}}, nil
	default:
		return nil, fmt.Errorf("querycore: unknown argument kind %d", arg.Kind)
	}
}

// JSONToBSON converts a JSON-decoded value (the shapes produced by
// encoding/json.Unmarshal into interface{}: nil, bool, float64, string,
// []interface{}, map[string]interface{}) to the BSON representation its
// declared Type calls for. Scalars that have no natural JSON encoding
// (ObjectId, Date, Decimal128, BinData, Timestamp, Regex) are expected on
// the wire as MongoDB Extended JSON and are round-tripped through
// bson.UnmarshalExtJSON rather than hand-parsed.
func JSONToBSON(t Type, value interface{}, objectTypes ObjectTypeMap) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	switch t.Kind {
	case KindExtendedJSON:
		return value, nil
	case KindScalar:
		return scalarJSONToBSON(t.Scalar, value)
	case KindNullable:
		return JSONToBSON(*t.NullableInner, value, objectTypes)
	case KindArrayOf:
		arr, ok := value.([]interface{})
		if !ok {
			return nil, &JSONToBSONError{Reason: fmt.Sprintf("expected array, got %T", value)}
		}
		out := make(bson.A, len(arr))
		for i, elem := range arr {
			converted, err := JSONToBSON(*t.ArrayElem, elem, objectTypes)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case KindObject:
		obj, ok := value.(map[string]interface{})
		if !ok {
			return nil, &JSONToBSONError{Reason: fmt.Sprintf("expected object, got %T", value)}
		}
		objType, ok := objectTypes[t.ObjectName]
		if !ok {
			return nil, &JSONToBSONError{Reason: fmt.Sprintf("unknown object type %q", t.ObjectName)}
		}
		out := bson.D{}
		for _, field := range objType.Fields {
			fv, present := obj[field.Name]
			if !present {
				continue
			}
			converted, err := JSONToBSON(field.Type, fv, objectTypes)
			if err != nil {
				return nil, err
			}
			out = append(out, bson.E{Key: field.Name, Value: converted})
		}
		return out, nil
	case KindPredicate:
		return nil, &JSONToBSONError{Reason: "predicate type has no literal JSON form"}
	default:
		return nil, &JSONToBSONError{Reason: fmt.Sprintf("unknown type kind %d", t.Kind)}
	}
}

func scalarJSONToBSON(s Scalar, value interface{}) (interface{}, error) {
	switch s {
	case ScalarObjectId, ScalarDate, ScalarTimestamp, ScalarBinData, ScalarDecimal, ScalarRegex:
		return extJSONScalar(s, value)
	case ScalarDouble:
		f, ok := asFloat64(value)
		if !ok {
			return nil, &JSONToBSONError{Reason: fmt.Sprintf("expected number for double, got %T", value)}
		}
		return f, nil
	case ScalarInt:
		f, ok := asFloat64(value)
		if !ok {
			return nil, &JSONToBSONError{Reason: fmt.Sprintf("expected number for int, got %T", value)}
		}
		return int32(f), nil
	case ScalarLong:
		f, ok := asFloat64(value)
		if !ok {
			return nil, &JSONToBSONError{Reason: fmt.Sprintf("expected number for long, got %T", value)}
		}
		return int64(f), nil
	case ScalarString, ScalarJavascript, ScalarSymbol:
		str, ok := value.(string)
		if !ok {
			return nil, &JSONToBSONError{Reason: fmt.Sprintf("expected string, got %T", value)}
		}
		return str, nil
	case ScalarBool:
		b, ok := value.(bool)
		if !ok {
			return nil, &JSONToBSONError{Reason: fmt.Sprintf("expected bool, got %T", value)}
		}
		return b, nil
	case ScalarNull:
		return nil, nil
	case ScalarMinKey:
		return bson.MinKey{}, nil
	case ScalarMaxKey:
		return bson.MaxKey{}, nil
	case ScalarUndefined:
		return bson.Undefined{}, nil
	default:
		return nil, &JSONToBSONError{Reason: fmt.Sprintf("unsupported scalar kind %q", s)}
	}
}

// extJSONScalar round-trips a value with no plain-JSON encoding through
// MongoDB Extended JSON: value is expected to already be the Extended JSON
// shape for scalar kind s (e.g. {"$oid": "..."}, {"$date": "..."}), exactly
// as a client-submitted argument carries it on the wire.
func extJSONScalar(s Scalar, value interface{}) (interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, &JSONToBSONError{Reason: err.Error()}
	}
	var out struct {
		V interface{} `bson:"v"`
	}
	wrapped := append(append([]byte(`{"v":`), raw...), '}')
	if err := bson.UnmarshalExtJSON(wrapped, false, &out); err != nil {
		return nil, &JSONToBSONError{Reason: fmt.Sprintf("invalid %s value: %s", s, err)}
	}
	return out.V, nil
}

func asFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
