package querycore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// InferFromDocument derives one or more ObjectType values from a sample
// document, naming the root type `name` and any nested object types
// `{parent}_{field}` (§4.4). Returns ScalarTypeMismatchError if two sampled
// values at the same field path are incompatible scalars that must not
// widen to ExtendedJSON.
func InferFromDocument(name string, doc bson.D) ([]ObjectType, error) {
	return makeObjectType(name, doc)
}

func makeObjectType(objectTypeName string, doc bson.D) ([]ObjectType, error) {
	typePrefix := objectTypeName + "_"
	var collected []ObjectType
	var fields []ObjectField

	for _, elem := range doc {
		nestedName := typePrefix + elem.Key
		otds, fieldType, err := makeFieldType(nestedName, elem.Key, elem.Value)
		if err != nil {
			return nil, err
		}
		collected = concatObjectTypes(collected, otds)
		fields = append(fields, ObjectField{Name: elem.Key, Type: fieldType})
	}

	collected = append(collected, ObjectType{Name: objectTypeName, Fields: fields})
	return collected, nil
}

// concatObjectTypes simply appends — the source code only unifies when
// merging across array elements (makeFieldType's Array case); across
// sibling fields of the same document, each field owns a disjoint subtree
// and types are just concatenated.
func concatObjectTypes(a, b []ObjectType) []ObjectType {
	return append(a, b...)
}

func makeFieldType(objectTypeName, fieldName string, value interface{}) ([]ObjectType, Type, error) {
	scalar := func(s Scalar) ([]ObjectType, Type, error) {
		return nil, ScalarType(s), nil
	}

	switch v := value.(type) {
	case float64:
		return scalar(ScalarDouble)
	case string:
		return scalar(ScalarString)
	case bson.A:
		var collected []ObjectType
		result := ScalarType(ScalarUndefined)
		for _, elem := range v {
			elemOtds, elemType, err := makeFieldType(objectTypeName, fieldName, elem)
			if err != nil {
				return nil, Type{}, err
			}
			if len(collected) == 0 {
				collected = elemOtds
			} else {
				merged, err := unifyObjectTypeLists(collected, elemOtds)
				if err != nil {
					return nil, Type{}, err
				}
				collected = merged
			}
			unified, err := unifyTyped(objectTypeName, fieldName, result, elemType)
			if err != nil {
				return nil, Type{}, err
			}
			result = unified
		}
		return collected, ArrayOfType(result), nil
	case []interface{}:
		return makeFieldType(objectTypeName, fieldName, bson.A(v))
	case bson.D:
		otds, err := makeObjectType(objectTypeName, v)
		if err != nil {
			return nil, Type{}, err
		}
		return otds, ObjectRef(objectTypeName), nil
	case bson.M:
		d := make(bson.D, 0, len(v))
		for k, vv := range v {
			d = append(d, bson.E{Key: k, Value: vv})
		}
		return makeFieldType(objectTypeName, fieldName, d)
	case bool:
		return scalar(ScalarBool)
	case nil:
		return scalar(ScalarNull)
	case bson.Regex:
		return scalar(ScalarRegex)
	case bson.JavaScript:
		return scalar(ScalarJavascript)
	case bson.CodeWithScope:
		return scalar(ScalarJavascriptWithScope)
	case int32:
		return scalar(ScalarInt)
	case int64:
		return scalar(ScalarLong)
	case int:
		return scalar(ScalarLong)
	case bson.Timestamp:
		return scalar(ScalarTimestamp)
	case bson.Binary:
		return scalar(ScalarBinData)
	case bson.ObjectID:
		return scalar(ScalarObjectId)
	case bson.DateTime:
		return scalar(ScalarDate)
	case bson.Symbol:
		return scalar(ScalarSymbol)
	case bson.Decimal128:
		return scalar(ScalarDecimal)
	case bson.Undefined:
		return scalar(ScalarUndefined)
	case bson.MaxKey:
		return scalar(ScalarMaxKey)
	case bson.MinKey:
		return scalar(ScalarMinKey)
	case bson.DBPointer:
		return scalar(ScalarDbPointer)
	default:
		return nil, Type{}, fmt.Errorf("querycore: unsupported sample value type %T for field %q", value, fieldName)
	}
}

// unifyTyped unifies a and b, failing with ScalarTypeMismatchError (rather
// than silently widening to ExtendedJSON) when both sides are distinct,
// non-widenable scalars — this is what makes scenario 3 (§8) a hard error
// instead of a silent ExtendedJSON fallback.
func unifyTyped(objectTypeName, fieldName string, a, b Type) (Type, error) {
	na, nb := Normalize(a), Normalize(b)
	if na.Kind == KindScalar && nb.Kind == KindScalar && na.Scalar != nb.Scalar {
		if _, ok := ScalarSupertype(na.Scalar, nb.Scalar); !ok {
			if na.Scalar != ScalarUndefined && nb.Scalar != ScalarUndefined &&
				na.Scalar != ScalarNull && nb.Scalar != ScalarNull {
				return Type{}, &ScalarTypeMismatchError{
					Context: objectTypeName + "." + fieldName,
					A:       na.Scalar, B: nb.Scalar,
				}
			}
		}
	}
	return Unify(a, b), nil
}

// unifyObjectTypeLists unifies two lists of ObjectType produced for sibling
// array elements, matching by name (mirrors the source's
// unify_object_types, which merges lists keyed by ObjectType.Name).
func unifyObjectTypeLists(a, b []ObjectType) ([]ObjectType, error) {
	byName := make(map[string]ObjectType, len(a))
	order := make([]string, 0, len(a))
	for _, ot := range a {
		byName[ot.Name] = ot
		order = append(order, ot.Name)
	}
	for _, ot := range b {
		existing, ok := byName[ot.Name]
		if !ok {
			byName[ot.Name] = ot
			order = append(order, ot.Name)
			continue
		}
		merged, err := unifyObjectTypeFields(existing, ot)
		if err != nil {
			return nil, err
		}
		byName[ot.Name] = merged
	}
	out := make([]ObjectType, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

func unifyObjectTypeFields(a, b ObjectType) (ObjectType, error) {
	out := ObjectType{Name: a.Name, Description: a.Description}
	bFields := make(map[string]ObjectField, len(b.Fields))
	for _, f := range b.Fields {
		bFields[f.Name] = f
	}
	seen := make(map[string]bool, len(a.Fields))
	for _, fa := range a.Fields {
		seen[fa.Name] = true
		fb, ok := bFields[fa.Name]
		if !ok {
			out.Fields = append(out.Fields, ObjectField{Name: fa.Name, Type: MakeNullable(fa.Type)})
			continue
		}
		t, err := unifyTyped(a.Name, fa.Name, fa.Type, fb.Type)
		if err != nil {
			return ObjectType{}, err
		}
		out.Fields = append(out.Fields, ObjectField{Name: fa.Name, Type: t})
	}
	for _, fb := range b.Fields {
		if seen[fb.Name] {
			continue
		}
		out.Fields = append(out.Fields, ObjectField{Name: fb.Name, Type: MakeNullable(fb.Type)})
	}
	return out, nil
}
