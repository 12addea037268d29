package querycore

// KeepBackwardCompatibleChanges reconciles a freshly inferred collection
// object-type graph against a previously committed one (§4.6), starting at
// rootTypeName (the collection's document type name). Types reachable only
// from the committed side are kept verbatim; types reachable only from the
// updated side are added. Committed non-nullable fields are never widened
// to nullable.
func KeepBackwardCompatibleChanges(existing, updated ObjectTypeMap, rootTypeName string) ObjectTypeMap {
	previously := existing.Clone()
	fresh := updated.Clone()
	accumulated := ObjectTypeMap{}
	backwardCompatibleHelper(previously, fresh, accumulated, rootTypeName)
	return accumulated
}

func backwardCompatibleHelper(previously, fresh, accumulated ObjectTypeMap, typeName string) {
	if _, done := accumulated[typeName]; done {
		return
	}
	existing, hasExisting := previously[typeName]
	delete(previously, typeName)
	updated, hasUpdated := fresh[typeName]
	delete(fresh, typeName)

	switch {
	case hasExisting && hasUpdated:
		accumulated[typeName] = backwardCompatibleObjectType(previously, fresh, accumulated, existing, updated)
	case hasExisting:
		accumulated[typeName] = existing
	case hasUpdated:
		accumulated[typeName] = updated
	}
}

func backwardCompatibleObjectType(previously, fresh, accumulated ObjectTypeMap, existing, updated ObjectType) ObjectType {
	existingByName := make(map[string]ObjectField, len(existing.Fields))
	for _, f := range existing.Fields {
		existingByName[f.Name] = f
	}
	updatedByName := make(map[string]ObjectField, len(updated.Fields))
	for _, f := range updated.Fields {
		updatedByName[f.Name] = f
	}

	var order []string
	seen := map[string]bool{}
	for _, f := range updated.Fields {
		if !seen[f.Name] {
			seen[f.Name] = true
			order = append(order, f.Name)
		}
	}
	for _, f := range existing.Fields {
		if !seen[f.Name] {
			seen[f.Name] = true
			order = append(order, f.Name)
		}
	}

	out := ObjectType{Name: existing.Name, Description: firstNonEmpty(existing.Description, updated.Description)}
	for _, name := range order {
		ef, hasE := existingByName[name]
		uf, hasU := updatedByName[name]
		switch {
		case hasE && hasU:
			t := reconcileTypes(previously, fresh, accumulated, ef.Type, uf.Type)
			out.Fields = append(out.Fields, ObjectField{
				Name: name, Type: t, Description: firstNonEmpty(ef.Description, uf.Description),
			})
		case hasE:
			// Walk the field's type so object types it references are carried over.
			reconcileTypes(previously, fresh, accumulated, ef.Type, ef.Type)
			out.Fields = append(out.Fields, ef)
		case hasU:
			reconcileTypes(previously, fresh, accumulated, uf.Type, uf.Type)
			out.Fields = append(out.Fields, uf)
		}
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// reconcileTypes applies the six rules of §4.6 (left = existing, right =
// updated).
func reconcileTypes(previously, fresh, accumulated ObjectTypeMap, existing, updated Type) Type {
	switch {
	case existing.Kind == KindNullable && updated.Kind == KindNullable:
		return NullableOf(reconcileTypes(previously, fresh, accumulated, *existing.NullableInner, *updated.NullableInner))
	case existing.Kind == KindNullable:
		return NullableOf(reconcileTypes(previously, fresh, accumulated, *existing.NullableInner, updated))
	case updated.Kind == KindNullable:
		// Do not widen a committed non-nullable field to nullable.
		return reconcileTypes(previously, fresh, accumulated, existing, *updated.NullableInner)
	case existing.Kind == KindArrayOf && updated.Kind == KindArrayOf:
		return ArrayOfType(reconcileTypes(previously, fresh, accumulated, *existing.ArrayElem, *updated.ArrayElem))
	case existing.Kind == KindObject && updated.Kind == KindObject:
		backwardCompatibleHelper(previously, fresh, accumulated, updated.ObjectName)
		return ObjectRef(updated.ObjectName)
	default:
		return existing
	}
}
