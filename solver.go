package querycore

import "sort"

// constraintSet is a stand-in for the source's HashSet<TypeConstraint>,
// keyed by TypeConstraint.Key so membership and dedup are cheap.
type constraintSet map[string]TypeConstraint

func newConstraintSet(cs ...TypeConstraint) constraintSet {
	s := constraintSet{}
	for _, c := range cs {
		s[c.Key()] = c
	}
	return s
}

func (s constraintSet) values() []TypeConstraint {
	out := make([]TypeConstraint, 0, len(s))
	for _, c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (s constraintSet) add(c TypeConstraint) { s[c.Key()] = c }

func (s constraintSet) clone() constraintSet {
	out := make(constraintSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// solverState holds the mutable state threaded through one run of Solve:
// every type variable's accumulated constraint set, and the object-type
// constraints collected while inferring a native query's stage types.
type solverState struct {
	objectTypes map[string]ObjectTypeConstraint
	variables   map[TypeVariable]constraintSet
}

// SolveResult is the outcome of running the constraint solver to a fixed
// point (§4.8).
type SolveResult struct {
	Solutions   map[TypeVariable]Type
	ObjectTypes map[string]ObjectType
}

// Solve runs the fixed-point constraint-solving loop described in §4.8:
// simplify every variable's constraint set, materialize singletons into
// concrete types, substitute solved variables into the rest, and repeat
// until every variable in required is solved or no further progress is
// possible (FailedToUnifyError).
func Solve(
	objectTypes map[string]ObjectTypeConstraint,
	variables map[TypeVariable]constraintSet,
	required []TypeVariable,
) (SolveResult, error) {
	state := &solverState{objectTypes: objectTypes, variables: cloneVariableMap(variables)}
	solutions := map[TypeVariable]Type{}

	for {
		prev := snapshotVariables(state.variables)

		for v := range state.variables {
			set, err := simplifyConstraintSet(state, v)
			if err != nil {
				return SolveResult{}, err
			}
			state.variables[v] = set
		}

		for v, set := range state.variables {
			if _, solved := solutions[v]; solved {
				continue
			}
			if len(set) != 1 {
				continue
			}
			only := set.values()[0]
			if t, ok := constraintToType(only); ok {
				solutions[v] = t
			}
		}

		ordered := variablesByComplexity(state.variables)
		for _, v := range ordered {
			set, ok := state.variables[v]
			if !ok || len(set) == 0 {
				continue
			}
			substitute(state.variables, v, set)
		}

		if allSolved(required, solutions) {
			break
		}
		if variablesEqual(prev, state.variables) {
			var unsolved []TypeVariable
			for _, v := range required {
				if _, ok := solutions[v]; !ok {
					unsolved = append(unsolved, v)
				}
			}
			return SolveResult{}, &FailedToUnifyError{UnsolvedVariables: unsolved}
		}
	}

	finalObjectTypes := substituteObjectTypes(state.objectTypes, solutions)
	return SolveResult{Solutions: solutions, ObjectTypes: finalObjectTypes}, nil
}

func allSolved(required []TypeVariable, solutions map[TypeVariable]Type) bool {
	for _, v := range required {
		if _, ok := solutions[v]; !ok {
			return false
		}
	}
	return true
}

func cloneVariableMap(m map[TypeVariable]constraintSet) map[TypeVariable]constraintSet {
	out := make(map[TypeVariable]constraintSet, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

func snapshotVariables(m map[TypeVariable]constraintSet) map[TypeVariable]constraintSet {
	return cloneVariableMap(m)
}

func variablesEqual(a, b map[TypeVariable]constraintSet) bool {
	if len(a) != len(b) {
		return false
	}
	for v, setA := range a {
		setB, ok := b[v]
		if !ok || len(setA) != len(setB) {
			return false
		}
		for k := range setA {
			if _, ok := setB[k]; !ok {
				return false
			}
		}
	}
	return true
}

func variablesByComplexity(m map[TypeVariable]constraintSet) []TypeVariable {
	type entry struct {
		v TypeVariable
		c int
	}
	entries := make([]entry, 0, len(m))
	for v, set := range m {
		sum := 0
		for _, c := range set {
			sum += c.Complexity()
		}
		entries = append(entries, entry{v, sum})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].c != entries[j].c {
			return entries[i].c < entries[j].c
		}
		return entries[i].v.ID < entries[j].v.ID
	})
	out := make([]TypeVariable, len(entries))
	for i, e := range entries {
		out[i] = e.v
	}
	return out
}

// simplifyConstraintSet reduces the constraint set assigned to variable by
// repeated pairwise combination (coalesce, §4.8) until no pair changes.
func simplifyConstraintSet(state *solverState, variable TypeVariable) (constraintSet, error) {
	items := state.variables[variable].values()
	changed := true
	for changed {
		changed = false
		var next []TypeConstraint
		i := 0
		for i < len(items) {
			if i+1 < len(items) {
				newA, newB, reduced, err := simplifyPair(state, items[i], items[i+1])
				if err != nil {
					return nil, err
				}
				if reduced {
					next = append(next, newA)
					i += 2
					changed = true
					continue
				}
				if newA.Key() != items[i].Key() || newB.Key() != items[i+1].Key() {
					next = append(next, newA, newB)
					i += 2
					changed = true
					continue
				}
			}
			next = append(next, items[i])
			i++
		}
		items = next
	}
	return newConstraintSet(items...), nil
}

// simplifyPair implements the selected simplify rules of §4.8. When
// reduced is true, newA alone replaces the pair; otherwise (newA, newB)
// replace (a, b) going forward (possibly rewritten, as with the ElementOf
// and FieldOf resolution rules, possibly unchanged when no rule applies).
func simplifyPair(state *solverState, a, b TypeConstraint) (newA, newB TypeConstraint, reduced bool, err error) {
	if a.Kind == ConstraintExtendedJSON || b.Kind == ConstraintExtendedJSON {
		return ExtendedJSONConstraint(), TypeConstraint{}, true, nil
	}

	// (Variable(v), other) — forward `other` onto v's own constraint set;
	// the local pair collapses to a bare reference to v.
	if a.Kind == ConstraintVariable {
		state.addVariableConstraint(a.Variable, b)
		return a, TypeConstraint{}, true, nil
	}
	if b.Kind == ConstraintVariable {
		state.addVariableConstraint(b.Variable, a)
		return b, TypeConstraint{}, true, nil
	}

	if a.Kind == ConstraintScalar && b.Kind == ConstraintScalar {
		if a.Scalar == b.Scalar || IsSupertype(a.Scalar, b.Scalar) {
			return ScalarConstraint(a.Scalar), TypeConstraint{}, true, nil
		}
		if IsSupertype(b.Scalar, a.Scalar) {
			return ScalarConstraint(b.Scalar), TypeConstraint{}, true, nil
		}
		return TypeConstraint{}, TypeConstraint{}, false, &ScalarTypeMismatchError{
			Context: "constraint solver", A: a.Scalar, B: b.Scalar,
		}
	}

	if IsNullableConstraint(a) {
		inner := nonNullPart(a)
		newInner, newB2, red, e := simplifyPair(state, inner, b)
		if e != nil {
			return TypeConstraint{}, TypeConstraint{}, false, e
		}
		if red {
			return MakeNullableConstraint(newInner), TypeConstraint{}, true, nil
		}
		return MakeNullableConstraint(newInner), newB2, false, nil
	}
	if IsNullableConstraint(b) {
		inner := nonNullPart(b)
		newA2, newInner, red, e := simplifyPair(state, a, inner)
		if e != nil {
			return TypeConstraint{}, TypeConstraint{}, false, e
		}
		if red {
			return MakeNullableConstraint(newA2), TypeConstraint{}, true, nil
		}
		return newA2, MakeNullableConstraint(newInner), false, nil
	}

	// ElementOf(ArrayOf(t)), u) -> (t, u)
	if a.Kind == ConstraintElementOf && a.Elem.Kind == ConstraintArrayOf {
		return simplifyPair(state, *a.Elem.Elem, b)
	}
	if b.Kind == ConstraintElementOf && b.Elem.Kind == ConstraintArrayOf {
		newA2, newB2, red, e := simplifyPair(state, a, *b.Elem.Elem)
		return newA2, newB2, red, e
	}

	// FieldOf{Object(n), [f, ...rest]}, u) -> look up n.f, recurse with rest.
	if a.Kind == ConstraintFieldOf {
		if resolved, ok := resolveFieldOf(state.objectTypes, *a.FieldTarget, a.FieldPath); ok {
			return simplifyPair(state, resolved, b)
		}
	}
	if b.Kind == ConstraintFieldOf {
		if resolved, ok := resolveFieldOf(state.objectTypes, *b.FieldTarget, b.FieldPath); ok {
			return simplifyPair(state, a, resolved)
		}
	}

	if a.Kind == ConstraintUnion {
		return UnionConstraint(a, b), TypeConstraint{}, true, nil
	}
	if b.Kind == ConstraintUnion {
		return UnionConstraint(b, a), TypeConstraint{}, true, nil
	}
	if a.Kind == ConstraintOneOf {
		return OneOfConstraint(a, b), TypeConstraint{}, true, nil
	}
	if b.Kind == ConstraintOneOf {
		return OneOfConstraint(b, a), TypeConstraint{}, true, nil
	}

	if a.Kind == ConstraintArrayOf && b.Kind == ConstraintArrayOf {
		newElem, _, red, e := simplifyPair(state, *a.Elem, *b.Elem)
		if e != nil {
			return TypeConstraint{}, TypeConstraint{}, false, e
		}
		if red {
			return ArrayOfConstraint(newElem), TypeConstraint{}, true, nil
		}
		return ArrayOfConstraint(*a.Elem), ArrayOfConstraint(*b.Elem), false, nil
	}
	if a.Kind == ConstraintObject && b.Kind == ConstraintObject {
		if a.ObjectName == b.ObjectName {
			return a, TypeConstraint{}, true, nil
		}
		return TypeConstraint{}, TypeConstraint{}, false, &ObjectTypeConflictError{A: a.ObjectName, B: b.ObjectName}
	}

	return a, b, false, nil
}

func (s *solverState) addVariableConstraint(v TypeVariable, c TypeConstraint) {
	set, ok := s.variables[v]
	if !ok {
		set = constraintSet{}
		s.variables[v] = set
	}
	set.add(c)
}

func resolveFieldOf(objectTypes map[string]ObjectTypeConstraint, target TypeConstraint, path []string) (TypeConstraint, bool) {
	if target.Kind != ConstraintObject || len(path) == 0 {
		return TypeConstraint{}, false
	}
	ot, ok := objectTypes[target.ObjectName]
	if !ok {
		return TypeConstraint{}, false
	}
	field, ok := ot.Fields[path[0]]
	if !ok {
		return TypeConstraint{}, false
	}
	if len(path) == 1 {
		return field, true
	}
	return FieldOfConstraint(field, path[1:]), true
}

// substitute replaces references to variable throughout the other
// variables' constraint sets, per the source's type_solver::substitute.
func substitute(variables map[TypeVariable]constraintSet, variable TypeVariable, variableConstraints constraintSet) {
	single, hasSingle := soleMember(variableConstraints)
	for v, targetSet := range variables {
		if v == variable {
			continue
		}
		next := constraintSet{}
		for _, tc := range targetSet {
			if tc.Kind == ConstraintVariable && tc.Variable == variable {
				for _, vc := range variableConstraints {
					next.add(vc)
				}
				continue
			}
			next.add(tc)
		}
		if hasSingle {
			rewritten := constraintSet{}
			for _, tc := range next {
				rewritten.add(substituteInConstraint(variable, single, tc))
			}
			next = rewritten
		}
		variables[v] = next
	}
}

func soleMember(set constraintSet) (TypeConstraint, bool) {
	if len(set) != 1 {
		return TypeConstraint{}, false
	}
	for _, c := range set {
		return c, true
	}
	return TypeConstraint{}, false
}

func substituteInConstraint(variable TypeVariable, variableConstraint TypeConstraint, target TypeConstraint) TypeConstraint {
	switch target.Kind {
	case ConstraintVariable:
		if target.Variable == variable {
			return variableConstraint
		}
		return target
	case ConstraintExtendedJSON, ConstraintScalar, ConstraintObject, ConstraintPredicate:
		return target
	case ConstraintArrayOf:
		return ArrayOfConstraint(substituteInConstraint(variable, variableConstraint, *target.Elem))
	case ConstraintElementOf:
		return ElementOfConstraint(substituteInConstraint(variable, variableConstraint, *target.Elem))
	case ConstraintFieldOf:
		newTarget := substituteInConstraint(variable, variableConstraint, *target.FieldTarget)
		return FieldOfConstraint(newTarget, target.FieldPath)
	case ConstraintWithFieldOverrides:
		newTarget := substituteInConstraint(variable, variableConstraint, *target.OverrideTarget)
		return WithFieldOverridesConstraint(target.AugmentedName, newTarget, target.OverrideFields)
	case ConstraintUnion, ConstraintOneOf:
		newMembers := make([]TypeConstraint, len(target.Members))
		for i, m := range target.Members {
			newMembers[i] = substituteInConstraint(variable, variableConstraint, m)
		}
		if target.Kind == ConstraintUnion {
			return UnionConstraint(newMembers...)
		}
		return OneOfConstraint(newMembers...)
	default:
		return target
	}
}

func substituteObjectTypes(objectTypes map[string]ObjectTypeConstraint, solutions map[TypeVariable]Type) map[string]ObjectType {
	out := make(map[string]ObjectType, len(objectTypes))
	for name, otc := range objectTypes {
		ot := ObjectType{Name: name}
		fieldNames := make([]string, 0, len(otc.Fields))
		for f := range otc.Fields {
			fieldNames = append(fieldNames, f)
		}
		sort.Strings(fieldNames)
		for _, f := range fieldNames {
			resolved := resolveVariablesInConstraint(otc.Fields[f], objectTypes, solutions)
			t, ok := constraintToType(resolved)
			if !ok {
				t = ExtendedJSON()
			}
			ot.Fields = append(ot.Fields, ObjectField{Name: f, Type: t})
		}
		out[name] = ot
	}
	return out
}

// resolveVariablesInConstraint replaces solved Variable references with
// their materialized types and resolves any FieldOf/ElementOf that now
// targets a concrete object or array, so a final constraintToType pass can
// concretize structural constraints that remain after the main fixed-point
// loop. The main loop only simplifies pairs within a single variable's
// constraint set (simplifyPair), so a FieldOf/ElementOf value sitting alone
// as an object type's field constraint — never paired with anything — is
// otherwise never reduced; this pass is what resolves it.
func resolveVariablesInConstraint(c TypeConstraint, objectTypes map[string]ObjectTypeConstraint, solutions map[TypeVariable]Type) TypeConstraint {
	switch c.Kind {
	case ConstraintVariable:
		if t, ok := solutions[c.Variable]; ok {
			return resolveVariablesInConstraint(constraintFromType(t), objectTypes, solutions)
		}
		return c
	case ConstraintArrayOf:
		return ArrayOfConstraint(resolveVariablesInConstraint(*c.Elem, objectTypes, solutions))
	case ConstraintElementOf:
		elem := resolveVariablesInConstraint(*c.Elem, objectTypes, solutions)
		if elem.Kind == ConstraintArrayOf {
			return *elem.Elem
		}
		return ElementOfConstraint(elem)
	case ConstraintFieldOf:
		target := resolveVariablesInConstraint(*c.FieldTarget, objectTypes, solutions)
		if resolved, ok := resolveFieldOf(objectTypes, target, c.FieldPath); ok {
			return resolveVariablesInConstraint(resolved, objectTypes, solutions)
		}
		return FieldOfConstraint(target, c.FieldPath)
	case ConstraintWithFieldOverrides:
		target := resolveVariablesInConstraint(*c.OverrideTarget, objectTypes, solutions)
		return WithFieldOverridesConstraint(c.AugmentedName, target, c.OverrideFields)
	case ConstraintUnion:
		members := make([]TypeConstraint, len(c.Members))
		for i, m := range c.Members {
			members[i] = resolveVariablesInConstraint(m, objectTypes, solutions)
		}
		return UnionConstraint(members...)
	case ConstraintOneOf:
		members := make([]TypeConstraint, len(c.Members))
		for i, m := range c.Members {
			members[i] = resolveVariablesInConstraint(m, objectTypes, solutions)
		}
		return OneOfConstraint(members...)
	default:
		return c
	}
}
