package querycore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// InferFromValidator translates a MongoDB $jsonSchema validator document
// into the type model (§4.5). An `_id` field of type ObjectId with
// description "primary key _id" is synthesized if the validator omits it.
// Fields not listed in `required` become Nullable. Returns the collection's
// object types: the root type, named `collectionName`, and nested types
// named `{parent}_{field}`.
func InferFromValidator(collectionName string, jsonSchema bson.D) ([]ObjectType, error) {
	root, err := parseValidatorProperty(jsonSchema)
	if err != nil {
		return nil, err
	}
	if root.kind != propObject {
		return nil, fmt.Errorf("querycore: $jsonSchema root for collection %q must be an object schema", collectionName)
	}

	typePrefix := collectionName + "_"
	var collected []ObjectType
	var fields []ObjectField
	hasID := false

	for _, p := range root.properties {
		objectTypeName := typePrefix + p.name
		otds, fieldType, err := makeValidatorFieldType(objectTypeName, p.prop)
		if err != nil {
			return nil, err
		}
		collected = append(collected, otds...)
		if p.name == "_id" {
			hasID = true
		}
		nullable := !containsString(root.required, p.name)
		t := fieldType
		if nullable {
			t = MakeNullable(fieldType)
		}
		fields = append(fields, ObjectField{Name: p.name, Type: t, Description: p.prop.description})
	}
	if !hasID {
		fields = append(fields, ObjectField{
			Name: "_id", Type: ScalarType(ScalarObjectId), Description: "primary key _id",
		})
	}

	collected = append(collected, ObjectType{
		Name:        collectionName,
		Description: fmt.Sprintf("Object type for collection %s", collectionName),
		Fields:      fields,
	})
	return collected, nil
}

type validatorPropKind int

const (
	propScalar validatorPropKind = iota
	propObject
	propArray
)

type namedValidatorProperty struct {
	name string
	prop validatorProperty
}

// validatorProperty is the parsed form of one $jsonSchema node.
type validatorProperty struct {
	kind        validatorPropKind
	bsonType    Scalar
	properties  []namedValidatorProperty
	required    []string
	hasProps    bool
	items       *validatorProperty
	description string
}

func containsString(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

// parseValidatorProperty interprets one node of a $jsonSchema document: an
// object node (bsonType "object" or no bsonType, with/without "properties"),
// an array node ("bsonType": "array", with "items"), or a scalar leaf
// ("bsonType": <name>).
func parseValidatorProperty(doc bson.D) (validatorProperty, error) {
	m := docToMap(doc)

	bsonTypeRaw, hasBsonType := m["bsonType"]
	bsonTypeName, _ := bsonTypeRaw.(string)
	description, _ := m["description"].(string)

	if bsonTypeName == "array" {
		itemsRaw, ok := m["items"]
		if !ok {
			return validatorProperty{}, fmt.Errorf("querycore: $jsonSchema array node missing \"items\"")
		}
		itemsDoc, err := asDoc(itemsRaw)
		if err != nil {
			return validatorProperty{}, err
		}
		items, err := parseValidatorProperty(itemsDoc)
		if err != nil {
			return validatorProperty{}, err
		}
		return validatorProperty{kind: propArray, items: &items, description: description}, nil
	}

	propsRaw, hasProps := m["properties"]
	if !hasBsonType || bsonTypeName == "object" || hasProps {
		if !hasProps {
			return validatorProperty{kind: propObject, hasProps: false, description: description}, nil
		}
		propsDoc, err := asDoc(propsRaw)
		if err != nil {
			return validatorProperty{}, err
		}
		requiredRaw := m["required"]
		required := toStringSlice(requiredRaw)

		var named []namedValidatorProperty
		for _, e := range propsDoc {
			sub, err := asDoc(e.Value)
			if err != nil {
				return validatorProperty{}, err
			}
			parsed, err := parseValidatorProperty(sub)
			if err != nil {
				return validatorProperty{}, err
			}
			named = append(named, namedValidatorProperty{name: e.Key, prop: parsed})
		}
		return validatorProperty{
			kind: propObject, hasProps: true, properties: named, required: required, description: description,
		}, nil
	}

	scalar, ok := ScalarFromBsonName(bsonTypeName)
	if !ok {
		return validatorProperty{}, fmt.Errorf("querycore: unknown bsonType %q", bsonTypeName)
	}
	return validatorProperty{kind: propScalar, bsonType: scalar, description: description}, nil
}

// makeValidatorFieldType mirrors make_field_type in validation_schema.rs:
// an object without "properties" becomes ExtendedJSON (§4.5); an object
// with properties recurses, emitting a nested named object type; an array
// recurses into its element schema; a scalar is a leaf.
func makeValidatorFieldType(objectTypeName string, p validatorProperty) ([]ObjectType, Type, error) {
	switch p.kind {
	case propObject:
		if !p.hasProps {
			return nil, ExtendedJSON(), nil
		}
		typePrefix := objectTypeName + "_"
		var collected []ObjectType
		var fields []ObjectField
		for _, np := range p.properties {
			nested := typePrefix + np.name
			otds, ft, err := makeValidatorFieldType(nested, np.prop)
			if err != nil {
				return nil, Type{}, err
			}
			collected = append(collected, otds...)
			if !containsString(p.required, np.name) {
				ft = MakeNullable(ft)
			}
			fields = append(fields, ObjectField{Name: np.name, Type: ft, Description: np.prop.description})
		}
		collected = append(collected, ObjectType{
			Name: objectTypeName, Description: "generated from MongoDB validation schema", Fields: fields,
		})
		return collected, ObjectRef(objectTypeName), nil
	case propArray:
		otds, elemType, err := makeValidatorFieldType(objectTypeName, *p.items)
		if err != nil {
			return nil, Type{}, err
		}
		return otds, ArrayOfType(elemType), nil
	default:
		return nil, ScalarType(p.bsonType), nil
	}
}

func docToMap(doc bson.D) map[string]interface{} {
	m := make(map[string]interface{}, len(doc))
	for _, e := range doc {
		m[e.Key] = e.Value
	}
	return m
}

func asDoc(v interface{}) (bson.D, error) {
	switch d := v.(type) {
	case bson.D:
		return d, nil
	case bson.M:
		out := make(bson.D, 0, len(d))
		for k, vv := range d {
			out = append(out, bson.E{Key: k, Value: vv})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("querycore: expected a document, got %T", v)
	}
}

func toStringSlice(v interface{}) []string {
	arr, ok := v.(bson.A)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
