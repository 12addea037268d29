package querycore

import (
	"encoding/json"
	"fmt"
)

// TypeKind discriminates the Type sum type.
type TypeKind int

const (
	KindExtendedJSON TypeKind = iota
	KindScalar
	KindObject
	KindArrayOf
	KindNullable
	KindPredicate
)

// Type is the core type-model sum: a BSON scalar, a named object reference,
// an array, a nullable wrapper, a predicate-over-object-type, or the top
// type ExtendedJSON. Named object references carry only the name; the
// object's fields live in the enclosing schema's object-type table.
type Type struct {
	Kind            TypeKind
	Scalar          Scalar
	ObjectName      string
	ArrayElem       *Type
	NullableInner   *Type
	PredicateObject string
}

// ExtendedJSON is the top of the lattice.
func ExtendedJSON() Type { return Type{Kind: KindExtendedJSON} }

// ScalarType builds a scalar leaf type.
func ScalarType(s Scalar) Type { return Type{Kind: KindScalar, Scalar: s} }

// ObjectRef builds a named-object reference.
func ObjectRef(name string) Type { return Type{Kind: KindObject, ObjectName: name} }

// ArrayOfType builds an array type.
func ArrayOfType(elem Type) Type { return Type{Kind: KindArrayOf, ArrayElem: &elem} }

// NullableOf builds a raw nullable wrapper without normalizing; callers that
// want the idempotent, collapsing behavior should use MakeNullable.
func NullableOf(inner Type) Type { return Type{Kind: KindNullable, NullableInner: &inner} }

// PredicateOver builds a predicate-over-object-type-name type.
func PredicateOver(objectTypeName string) Type {
	return Type{Kind: KindPredicate, PredicateObject: objectTypeName}
}

// MakeNullable wraps t in Nullable, idempotently: ExtendedJSON, Null, and an
// already-nullable type are all fixed points.
func MakeNullable(t Type) Type {
	switch t.Kind {
	case KindExtendedJSON:
		return t
	case KindNullable:
		return t
	case KindScalar:
		if t.Scalar == ScalarNull {
			return t
		}
	}
	return NullableOf(t)
}

// IsNullable reports whether t is ExtendedJSON, Nullable(_), or Scalar(Null) —
// the three cases §4.2 calls "nullable".
func IsNullable(t Type) bool {
	switch t.Kind {
	case KindExtendedJSON, KindNullable:
		return true
	case KindScalar:
		return t.Scalar == ScalarNull
	default:
		return false
	}
}

// Normalize removes nested nullables and pushes normalization into arrays,
// enforcing the three post-normalization invariants: no Nullable(Nullable(_)),
// no Nullable(ExtendedJSON), no Nullable(Scalar(Null)).
func Normalize(t Type) Type {
	switch t.Kind {
	case KindArrayOf:
		elem := Normalize(*t.ArrayElem)
		return ArrayOfType(elem)
	case KindNullable:
		inner := Normalize(*t.NullableInner)
		switch {
		case inner.Kind == KindNullable:
			return inner
		case inner.Kind == KindExtendedJSON:
			return inner
		case inner.Kind == KindScalar && inner.Scalar == ScalarNull:
			return inner
		default:
			return NullableOf(inner)
		}
	default:
		return t
	}
}

// Equal reports structural equality between two Type values (after
// normalization is the caller's responsibility; Equal itself is exact).
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindExtendedJSON:
		return true
	case KindScalar:
		return t.Scalar == o.Scalar
	case KindObject:
		return t.ObjectName == o.ObjectName
	case KindArrayOf:
		return t.ArrayElem.Equal(*o.ArrayElem)
	case KindNullable:
		return t.NullableInner.Equal(*o.NullableInner)
	case KindPredicate:
		return t.PredicateObject == o.PredicateObject
	default:
		return false
	}
}

func (t Type) String() string {
	switch t.Kind {
	case KindExtendedJSON:
		return "ExtendedJSON"
	case KindScalar:
		return string(t.Scalar)
	case KindObject:
		return "Object(" + t.ObjectName + ")"
	case KindArrayOf:
		return "ArrayOf(" + t.ArrayElem.String() + ")"
	case KindNullable:
		return "Nullable(" + t.NullableInner.String() + ")"
	case KindPredicate:
		return "Predicate(" + t.PredicateObject + ")"
	default:
		return "?"
	}
}

// wireType is the JSON-on-the-wire shape from spec §6. Nested Type values go
// through json.RawMessage so a nested ExtendedJSON (a bare string) and a
// nested tagged object both round-trip via the same Type.(Un)MarshalJSON.
type wireType struct {
	Scalar          *string         `json:"scalar,omitempty"`
	Object          *string         `json:"object,omitempty"`
	ArrayOf         json.RawMessage `json:"arrayOf,omitempty"`
	Nullable        json.RawMessage `json:"nullable,omitempty"`
	PredicateObject *struct {
		ObjectTypeName string `json:"objectTypeName"`
	} `json:"predicate,omitempty"`
}

// MarshalJSON encodes Type per spec §6: "ExtendedJSON" as a bare string, and
// every other variant as a single-key tagged object.
func (t Type) MarshalJSON() ([]byte, error) {
	if t.Kind == KindExtendedJSON {
		return json.Marshal("ExtendedJSON")
	}
	var w wireType
	switch t.Kind {
	case KindScalar:
		name := t.Scalar.BsonName()
		w.Scalar = &name
	case KindObject:
		name := t.ObjectName
		w.Object = &name
	case KindArrayOf:
		elem, err := t.ArrayElem.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.ArrayOf = elem
	case KindNullable:
		inner, err := t.NullableInner.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.Nullable = inner
	case KindPredicate:
		w.PredicateObject = &struct {
			ObjectTypeName string `json:"objectTypeName"`
		}{ObjectTypeName: t.PredicateObject}
	default:
		return nil, fmt.Errorf("querycore: unknown type kind %d", t.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire shape from spec §6 back into a Type.
func (t *Type) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		if bare != "ExtendedJSON" {
			return fmt.Errorf("querycore: unknown bare type tag %q", bare)
		}
		*t = ExtendedJSON()
		return nil
	}
	var w wireType
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Scalar != nil:
		s, ok := ScalarFromBsonName(*w.Scalar)
		if !ok {
			return fmt.Errorf("querycore: unknown scalar name %q", *w.Scalar)
		}
		*t = ScalarType(s)
	case w.Object != nil:
		*t = ObjectRef(*w.Object)
	case w.ArrayOf != nil:
		var elem Type
		if err := elem.UnmarshalJSON(w.ArrayOf); err != nil {
			return err
		}
		*t = ArrayOfType(elem)
	case w.Nullable != nil:
		var inner Type
		if err := inner.UnmarshalJSON(w.Nullable); err != nil {
			return err
		}
		*t = NullableOf(inner)
	case w.PredicateObject != nil:
		*t = PredicateOver(w.PredicateObject.ObjectTypeName)
	default:
		return fmt.Errorf("querycore: empty type object")
	}
	return nil
}

// ObjectField is one field of an ObjectType: its type and an optional
// description. Order of ObjectType.Fields is insertion order, preserved for
// reproducible output but never semantically significant.
type ObjectField struct {
	Name        string
	Type        Type
	Description string
}

// ObjectType is a named record: an optional source name plus an
// insertion-ordered set of fields.
type ObjectType struct {
	Name        string
	Description string
	Fields      []ObjectField
}

// FieldType looks up a field's type by name; ok is false if absent.
func (o ObjectType) FieldType(name string) (Type, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return Type{}, false
}

// WithField returns a copy of o with field `name` set to t (replacing any
// existing field of that name, otherwise appended).
func (o ObjectType) WithField(name string, t Type, description string) ObjectType {
	out := ObjectType{Name: o.Name, Description: o.Description}
	out.Fields = make([]ObjectField, 0, len(o.Fields)+1)
	replaced := false
	for _, f := range o.Fields {
		if f.Name == name {
			out.Fields = append(out.Fields, ObjectField{Name: name, Type: t, Description: description})
			replaced = true
			continue
		}
		out.Fields = append(out.Fields, f)
	}
	if !replaced {
		out.Fields = append(out.Fields, ObjectField{Name: name, Type: t, Description: description})
	}
	return out
}

// ObjectTypeMap is a name -> ObjectType table, globally unique within a
// Schema.
type ObjectTypeMap map[string]ObjectType

// Clone returns a shallow copy of m (field slices are not deep-copied but are
// never mutated in place by this package).
func (m ObjectTypeMap) Clone() ObjectTypeMap {
	out := make(ObjectTypeMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
