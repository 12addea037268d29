package querycore

import (
	"encoding/json"
	"fmt"
)

// CollectionSchema is one entry of a committed Schema's `collections` map
// (§6): the document type backing a collection, plus an optional
// human-readable description.
type CollectionSchema struct {
	Type        Type
	Description string
}

// Schema is the persisted introspection result (§6): a map of collections
// to their document type, and a map of named object types reachable from
// those collections (or from native queries layered on top of them).
type Schema struct {
	Collections map[string]CollectionSchema
	ObjectTypes ObjectTypeMap
}

// NewSchema returns an empty schema, ready to be populated by introspection
// (C4/C5) or merged against a previous one (C6).
func NewSchema() *Schema {
	return &Schema{Collections: map[string]CollectionSchema{}, ObjectTypes: ObjectTypeMap{}}
}

// AddCollection registers one collection's document type and the object
// types discovered for it. objectTypes must include the root type named
// after documentTypeName.
func (s *Schema) AddCollection(name, documentTypeName, description string, objectTypes []ObjectType) {
	s.Collections[name] = CollectionSchema{Type: ObjectRef(documentTypeName), Description: description}
	for _, ot := range objectTypes {
		s.ObjectTypes[ot.Name] = ot
	}
}

// wireCollectionSchema is the JSON shape of one `collections` map entry.
type wireCollectionSchema struct {
	Type        Type   `json:"type"`
	Description string `json:"description,omitempty"`
}

// wireObjectField is the JSON shape of one object type's field entry.
type wireObjectField struct {
	Type        Type   `json:"type"`
	Description string `json:"description,omitempty"`
}

// wireObjectType is the JSON shape of one `object_types` map entry.
type wireObjectType struct {
	Fields      map[string]wireObjectField `json:"fields"`
	Description string                     `json:"description,omitempty"`
}

type wireSchema struct {
	Collections map[string]wireCollectionSchema `json:"collections"`
	ObjectTypes map[string]wireObjectType       `json:"object_types"`
}

// MarshalJSON renders the schema in the committed wire format (§6): two
// maps, `collections` and `object_types`.
func (s Schema) MarshalJSON() ([]byte, error) {
	w := wireSchema{
		Collections: make(map[string]wireCollectionSchema, len(s.Collections)),
		ObjectTypes: make(map[string]wireObjectType, len(s.ObjectTypes)),
	}
	for name, c := range s.Collections {
		w.Collections[name] = wireCollectionSchema{Type: c.Type, Description: c.Description}
	}
	for name, ot := range s.ObjectTypes {
		fields := make(map[string]wireObjectField, len(ot.Fields))
		for _, f := range ot.Fields {
			fields[f.Name] = wireObjectField{Type: f.Type, Description: f.Description}
		}
		w.ObjectTypes[name] = wireObjectType{Fields: fields, Description: ot.Description}
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the committed wire format (§6). Object-type field
// order is not part of the wire format, so fields are sorted by name for
// determinism.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var w wireSchema
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Collections = make(map[string]CollectionSchema, len(w.Collections))
	for name, c := range w.Collections {
		s.Collections[name] = CollectionSchema{Type: c.Type, Description: c.Description}
	}
	s.ObjectTypes = make(ObjectTypeMap, len(w.ObjectTypes))
	for name, ot := range w.ObjectTypes {
		fieldNames := make([]string, 0, len(ot.Fields))
		for fn := range ot.Fields {
			fieldNames = append(fieldNames, fn)
		}
		sortStrings(fieldNames)
		fields := make([]ObjectField, 0, len(fieldNames))
		for _, fn := range fieldNames {
			wf := ot.Fields[fn]
			fields = append(fields, ObjectField{Name: fn, Type: wf.Type, Description: wf.Description})
		}
		s.ObjectTypes[name] = ObjectType{Name: name, Description: ot.Description, Fields: fields}
	}
	return nil
}

func sortStrings(xs []string) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// ResolveField looks up a field on a named object type, returning
// UnknownObjectTypeError if the type is absent and
// UnknownObjectTypeFieldError if the field is absent.
func (s *Schema) ResolveField(objectTypeName, fieldName string) (Type, error) {
	ot, ok := s.ObjectTypes[objectTypeName]
	if !ok {
		return Type{}, &UnknownObjectTypeError{Name: objectTypeName}
	}
	t, ok := ot.FieldType(fieldName)
	if !ok {
		return Type{}, &UnknownObjectTypeFieldError{ObjectType: objectTypeName, Field: fieldName}
	}
	return t, nil
}

// CollectionDocumentType returns the object-type name backing a
// collection, i.e. the Type.ObjectName of its Collections entry.
func (s *Schema) CollectionDocumentType(name string) (string, error) {
	c, ok := s.Collections[name]
	if !ok {
		return "", &UnknownCollectionError{Name: name}
	}
	if c.Type.Kind != KindObject {
		return "", fmt.Errorf("querycore: collection %q has a non-object document type", name)
	}
	return c.Type.ObjectName, nil
}
