package querycore

import (
	"fmt"
	"sort"
	"strings"
)

// Variance controls which direction a type variable may be widened during
// solving (§4.8). Covariant variables accept joins of their evidence,
// contravariant accept meets, invariant require every piece of evidence to
// agree exactly.
type Variance int

const (
	Covariant Variance = iota
	Contravariant
	Invariant
)

// TypeVariable names one unknown type in a native-query's parameter or
// intermediate-stage type graph.
type TypeVariable struct {
	ID       uint32
	Variance Variance
}

func (v TypeVariable) String() string {
	return fmt.Sprintf("v%d", v.ID)
}

// ConstraintKind tags the variant of a TypeConstraint (§3, §4.8). Unlike
// Type (C2), there is no explicit Nullable constructor here: a nullable
// constraint is Union(t, Scalar(Null)), matching the source's own
// TypeConstraint enum.
type ConstraintKind int

const (
	ConstraintExtendedJSON ConstraintKind = iota
	ConstraintScalar
	ConstraintObject
	ConstraintArrayOf
	ConstraintPredicate
	ConstraintUnion
	ConstraintOneOf
	ConstraintVariable
	ConstraintElementOf
	ConstraintFieldOf
	ConstraintWithFieldOverrides
)

// TypeConstraint is one node of the constraint language the solver works
// over. Only the fields relevant to Kind are populated.
type TypeConstraint struct {
	Kind ConstraintKind

	Scalar     Scalar   // ConstraintScalar
	ObjectName string   // ConstraintObject, ConstraintPredicate
	Elem       *TypeConstraint // ConstraintArrayOf, ConstraintElementOf
	Members    []TypeConstraint // ConstraintUnion, ConstraintOneOf (canonicalized: sorted, deduped)
	Variable   TypeVariable     // ConstraintVariable

	FieldTarget *TypeConstraint // ConstraintFieldOf
	FieldPath   []string        // ConstraintFieldOf, non-empty

	AugmentedName  string                     // ConstraintWithFieldOverrides
	OverrideTarget *TypeConstraint             // ConstraintWithFieldOverrides
	OverrideFields map[string]*TypeConstraint  // ConstraintWithFieldOverrides; nil value means "remove this field"
}

func ExtendedJSONConstraint() TypeConstraint { return TypeConstraint{Kind: ConstraintExtendedJSON} }
func ScalarConstraint(s Scalar) TypeConstraint {
	return TypeConstraint{Kind: ConstraintScalar, Scalar: s}
}
func ObjectConstraint(name string) TypeConstraint {
	return TypeConstraint{Kind: ConstraintObject, ObjectName: name}
}
func PredicateConstraint(objectTypeName string) TypeConstraint {
	return TypeConstraint{Kind: ConstraintPredicate, ObjectName: objectTypeName}
}
func ArrayOfConstraint(elem TypeConstraint) TypeConstraint {
	return TypeConstraint{Kind: ConstraintArrayOf, Elem: &elem}
}
func ElementOfConstraint(target TypeConstraint) TypeConstraint {
	return TypeConstraint{Kind: ConstraintElementOf, Elem: &target}
}
func VariableConstraint(v TypeVariable) TypeConstraint {
	return TypeConstraint{Kind: ConstraintVariable, Variable: v}
}
func FieldOfConstraint(target TypeConstraint, path []string) TypeConstraint {
	return TypeConstraint{Kind: ConstraintFieldOf, FieldTarget: &target, FieldPath: path}
}
func WithFieldOverridesConstraint(augmentedName string, target TypeConstraint, fields map[string]*TypeConstraint) TypeConstraint {
	return TypeConstraint{
		Kind: ConstraintWithFieldOverrides, AugmentedName: augmentedName,
		OverrideTarget: &target, OverrideFields: fields,
	}
}

// UnionConstraint flattens nested unions and deduplicates members. A
// single-member union collapses to that member.
func UnionConstraint(members ...TypeConstraint) TypeConstraint {
	return buildSet(ConstraintUnion, members)
}

// OneOfConstraint is UnionConstraint's cousin for "one of these, to be
// decided by use" rather than "possibly any of these at once".
func OneOfConstraint(members ...TypeConstraint) TypeConstraint {
	return buildSet(ConstraintOneOf, members)
}

func buildSet(kind ConstraintKind, members []TypeConstraint) TypeConstraint {
	var flat []TypeConstraint
	for _, m := range members {
		if m.Kind == kind {
			flat = append(flat, m.Members...)
		} else {
			flat = append(flat, m)
		}
	}
	byKey := map[string]TypeConstraint{}
	for _, m := range flat {
		byKey[m.Key()] = m
	}
	if len(byKey) == 1 {
		for _, m := range byKey {
			return m
		}
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]TypeConstraint, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return TypeConstraint{Kind: kind, Members: out}
}

// Key returns a canonical string identity for c, used to deduplicate
// constraint sets (a stand-in for the source's HashSet<TypeConstraint>).
func (c TypeConstraint) Key() string {
	switch c.Kind {
	case ConstraintExtendedJSON:
		return "ExtendedJSON"
	case ConstraintScalar:
		return "Scalar:" + string(c.Scalar)
	case ConstraintObject:
		return "Object:" + c.ObjectName
	case ConstraintPredicate:
		return "Predicate:" + c.ObjectName
	case ConstraintArrayOf:
		return "ArrayOf(" + c.Elem.Key() + ")"
	case ConstraintElementOf:
		return "ElementOf(" + c.Elem.Key() + ")"
	case ConstraintVariable:
		return "Variable:" + c.Variable.String()
	case ConstraintFieldOf:
		return "FieldOf(" + c.FieldTarget.Key() + "," + strings.Join(c.FieldPath, ".") + ")"
	case ConstraintUnion, ConstraintOneOf:
		parts := make([]string, len(c.Members))
		for i, m := range c.Members {
			parts[i] = m.Key()
		}
		tag := "Union"
		if c.Kind == ConstraintOneOf {
			tag = "OneOf"
		}
		return tag + "{" + strings.Join(parts, ",") + "}"
	case ConstraintWithFieldOverrides:
		names := make([]string, 0, len(c.OverrideFields))
		for n := range c.OverrideFields {
			names = append(names, n)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			f := c.OverrideFields[n]
			if f == nil {
				parts[i] = n + ":-"
			} else {
				parts[i] = n + ":" + f.Key()
			}
		}
		return "WithFieldOverrides(" + c.AugmentedName + "," + c.OverrideTarget.Key() + ",{" + strings.Join(parts, ",") + "})"
	default:
		return "?"
	}
}

func (c TypeConstraint) Equal(o TypeConstraint) bool { return c.Key() == o.Key() }

// Complexity orders solver work (§4.8): lower solves first.
func (c TypeConstraint) Complexity() int {
	switch c.Kind {
	case ConstraintExtendedJSON, ConstraintScalar:
		return 0
	case ConstraintObject, ConstraintPredicate:
		return 1
	case ConstraintArrayOf:
		return 1 + c.Elem.Complexity()
	case ConstraintUnion, ConstraintOneOf:
		sum := 1
		for _, m := range c.Members {
			sum += m.Complexity()
		}
		return sum
	case ConstraintVariable:
		return 2
	case ConstraintElementOf:
		return 2 + c.Elem.Complexity()
	case ConstraintFieldOf:
		return 2 + c.FieldTarget.Complexity() + len(c.FieldPath)
	case ConstraintWithFieldOverrides:
		sum := 2 + c.OverrideTarget.Complexity()
		for _, f := range c.OverrideFields {
			if f != nil {
				sum += f.Complexity()
			}
		}
		return sum
	default:
		return 0
	}
}

// MakeNullableConstraint wraps c so it additionally accepts Null, unless it already
// does (ExtendedJSON covers anything; Scalar(Null) already is the null
// type).
func MakeNullableConstraint(c TypeConstraint) TypeConstraint {
	if c.Kind == ConstraintExtendedJSON {
		return c
	}
	if c.Kind == ConstraintScalar && c.Scalar == ScalarNull {
		return c
	}
	return UnionConstraint(c, ScalarConstraint(ScalarNull))
}

// IsNullableConstraint reports whether c is a union that admits Null.
func IsNullableConstraint(c TypeConstraint) bool {
	if c.Kind != ConstraintUnion {
		return false
	}
	for _, m := range c.Members {
		if m.Kind == ConstraintScalar && m.Scalar == ScalarNull {
			return true
		}
	}
	return false
}

// nonNullPart returns the non-null remainder of a nullable union constraint.
func nonNullPart(c TypeConstraint) TypeConstraint {
	var rest []TypeConstraint
	for _, m := range c.Members {
		if m.Kind == ConstraintScalar && m.Scalar == ScalarNull {
			continue
		}
		rest = append(rest, m)
	}
	if len(rest) == 1 {
		return rest[0]
	}
	return TypeConstraint{Kind: ConstraintUnion, Members: rest}
}

// MapNullableConstraint applies f to the non-null part of a nullable
// constraint and rewraps the result as nullable; for a non-nullable c it
// just applies f directly.
func MapNullableConstraint(c TypeConstraint, f func(TypeConstraint) TypeConstraint) TypeConstraint {
	if !IsNullableConstraint(c) {
		return f(c)
	}
	return MakeNullableConstraint(f(nonNullPart(c)))
}

func scalarOneOfByPredicate(pred func(Scalar) bool) TypeConstraint {
	var members []TypeConstraint
	for _, s := range AllScalars {
		if pred(s) {
			members = append(members, ScalarConstraint(s))
		}
	}
	return OneOfConstraint(members...)
}

// ComparableConstraint is "one of the scalars that support ordering
// comparisons", used for $lt/$gt-style operator argument constraints.
func ComparableConstraint() TypeConstraint { return scalarOneOfByPredicate(Scalar.IsOrderable) }

// NumericConstraint is "one of the numeric scalars".
func NumericConstraint() TypeConstraint { return scalarOneOfByPredicate(Scalar.IsNumeric) }

// ObjectTypeConstraint is the not-yet-solved analogue of ObjectType: a set
// of field constraints keyed by field name, accumulated while inferring a
// native query's intermediate document shapes.
type ObjectTypeConstraint struct {
	Fields map[string]TypeConstraint
}

func (o ObjectTypeConstraint) Clone() ObjectTypeConstraint {
	fields := make(map[string]TypeConstraint, len(o.Fields))
	for k, v := range o.Fields {
		fields[k] = v
	}
	return ObjectTypeConstraint{Fields: fields}
}

// constraintFromType lifts a committed schema Type (C2) into the
// constraint language (C8), the inverse of constraintToType.
func constraintFromType(t Type) TypeConstraint {
	switch t.Kind {
	case KindExtendedJSON:
		return ExtendedJSONConstraint()
	case KindScalar:
		return ScalarConstraint(t.Scalar)
	case KindObject:
		return ObjectConstraint(t.ObjectName)
	case KindArrayOf:
		return ArrayOfConstraint(constraintFromType(*t.ArrayElem))
	case KindNullable:
		return MakeNullableConstraint(constraintFromType(*t.NullableInner))
	case KindPredicate:
		return PredicateConstraint(t.PredicateObject)
	default:
		return ExtendedJSONConstraint()
	}
}

// constraintToType attempts to materialize c into a concrete committed
// Type, failing (ok=false) for constraints that are not yet concrete
// (Variable, ElementOf, FieldOf, WithFieldOverrides, a multi-member OneOf,
// or Predicate, which has no schema-level representation).
func constraintToType(c TypeConstraint) (Type, bool) {
	switch c.Kind {
	case ConstraintExtendedJSON:
		return ExtendedJSON(), true
	case ConstraintScalar:
		return ScalarType(c.Scalar), true
	case ConstraintObject:
		return ObjectRef(c.ObjectName), true
	case ConstraintArrayOf:
		elem, ok := constraintToType(*c.Elem)
		if !ok {
			return Type{}, false
		}
		return ArrayOfType(elem), true
	case ConstraintUnion:
		if IsNullableConstraint(c) {
			inner, ok := constraintToType(nonNullPart(c))
			if !ok {
				return Type{}, false
			}
			return MakeNullable(inner), true
		}
		if len(c.Members) == 1 {
			return constraintToType(c.Members[0])
		}
		return Type{}, false
	case ConstraintOneOf:
		if len(c.Members) == 1 {
			return constraintToType(c.Members[0])
		}
		return Type{}, false
	default:
		return Type{}, false
	}
}
