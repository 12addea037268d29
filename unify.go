package querycore

// Unify computes the least upper bound of a and b on the type lattice, per
// the table in spec §4.3. ExtendedJSON is top, Undefined is the two-sided
// identity.
func Unify(a, b Type) Type {
	a, b = Normalize(a), Normalize(b)

	if a.Kind == KindExtendedJSON || b.Kind == KindExtendedJSON {
		return ExtendedJSON()
	}
	if isUndefined(a) {
		return b
	}
	if isUndefined(b) {
		return a
	}
	if isNull(a) && isNull(b) {
		return ScalarType(ScalarNull)
	}
	if isNull(a) {
		return MakeNullable(b)
	}
	if isNull(b) {
		return MakeNullable(a)
	}
	if a.Kind == KindNullable && b.Kind == KindNullable {
		return MakeNullable(Unify(*a.NullableInner, *b.NullableInner))
	}
	if a.Kind == KindNullable {
		return MakeNullable(Unify(*a.NullableInner, b))
	}
	if b.Kind == KindNullable {
		return MakeNullable(Unify(a, *b.NullableInner))
	}

	switch {
	case a.Kind == KindScalar && b.Kind == KindScalar:
		if s, ok := ScalarSupertype(a.Scalar, b.Scalar); ok {
			return ScalarType(s)
		}
		return ExtendedJSON()
	case a.Kind == KindObject && b.Kind == KindObject:
		if a.ObjectName == b.ObjectName {
			return a
		}
		return ExtendedJSON()
	case a.Kind == KindArrayOf && b.Kind == KindArrayOf:
		return ArrayOfType(Unify(*a.ArrayElem, *b.ArrayElem))
	default:
		return ExtendedJSON()
	}
}

func isUndefined(t Type) bool {
	return t.Kind == KindScalar && t.Scalar == ScalarUndefined
}

func isNull(t Type) bool {
	return t.Kind == KindScalar && t.Scalar == ScalarNull
}

// UnifyObjectType aligns the two field maps of object types sharing a name:
// shared fields are recursively unified (looking up nested Object(_)
// references in the combined object-type table), fields present on only one
// side are widened to nullable. The name of the result is a's name.
func UnifyObjectType(a, b ObjectType, types ObjectTypeMap) ObjectType {
	out := ObjectType{Name: a.Name, Description: a.Description}
	if out.Description == "" {
		out.Description = b.Description
	}

	bFields := make(map[string]ObjectField, len(b.Fields))
	for _, f := range b.Fields {
		bFields[f.Name] = f
	}
	seen := make(map[string]bool, len(a.Fields))

	for _, fa := range a.Fields {
		seen[fa.Name] = true
		fb, ok := bFields[fa.Name]
		if !ok {
			out.Fields = append(out.Fields, ObjectField{
				Name: fa.Name, Type: MakeNullable(fa.Type), Description: fa.Description,
			})
			continue
		}
		desc := fa.Description
		if desc == "" {
			desc = fb.Description
		}
		out.Fields = append(out.Fields, ObjectField{
			Name: fa.Name, Type: unifyWithTypes(fa.Type, fb.Type, types), Description: desc,
		})
	}
	for _, fb := range b.Fields {
		if seen[fb.Name] {
			continue
		}
		out.Fields = append(out.Fields, ObjectField{
			Name: fb.Name, Type: MakeNullable(fb.Type), Description: fb.Description,
		})
	}
	return out
}

// unifyWithTypes unifies a and b, additionally unifying the named object
// types they reference (when both sides name the same object type) so that
// object unification recurses into the schema's object-type table rather
// than stopping at the leaf Object(name) reference.
func unifyWithTypes(a, b Type, types ObjectTypeMap) Type {
	na, nb := Normalize(a), Normalize(b)
	if na.Kind == KindNullable && nb.Kind == KindNullable {
		return MakeNullable(unifyWithTypes(*na.NullableInner, *nb.NullableInner, types))
	}
	if na.Kind == KindNullable {
		return MakeNullable(unifyWithTypes(*na.NullableInner, nb, types))
	}
	if nb.Kind == KindNullable {
		return MakeNullable(unifyWithTypes(na, *nb.NullableInner, types))
	}
	if na.Kind == KindArrayOf && nb.Kind == KindArrayOf {
		return ArrayOfType(unifyWithTypes(*na.ArrayElem, *nb.ArrayElem, types))
	}
	if na.Kind == KindObject && nb.Kind == KindObject && na.ObjectName == nb.ObjectName && types != nil {
		ota, aok := types[na.ObjectName]
		otb, bok := types[nb.ObjectName]
		if aok && bok {
			merged := UnifyObjectType(ota, otb, types)
			types[na.ObjectName] = merged
		}
		return na
	}
	return Unify(na, nb)
}

// MergeSchemas unions two object-type maps; same-named object types are
// unified pairwise. The result is a new map; neither input is mutated.
func MergeSchemas(left, right ObjectTypeMap) ObjectTypeMap {
	out := left.Clone()
	for name, rt := range right {
		if lt, ok := out[name]; ok {
			out[name] = UnifyObjectType(lt, rt, out)
		} else {
			out[name] = rt
		}
	}
	return out
}
