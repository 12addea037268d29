package querycore

import (
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// InferPipelineTypes walks a native-query aggregation pipeline stage by
// stage (§4.9), registering constraints and object types on ctx as it goes,
// and returns the finalized PipelineTypes once every stage has run.
func InferPipelineTypes(ctx *PipelineTypeContext, pipeline []bson.D) (PipelineTypes, error) {
	if len(pipeline) == 0 {
		return PipelineTypes{}, ErrEmptyPipeline
	}
	for i, stage := range pipeline {
		if len(stage) != 1 {
			return PipelineTypes{}, &UnknownAggregationStageError{Index: i + 1, Stage: fmt.Sprintf("%v", stage)}
		}
		name, value := stage[0].Key, stage[0].Value
		if err := inferStage(ctx, i+1, name, value); err != nil {
			return PipelineTypes{}, err
		}
	}
	return ctx.IntoTypes()
}

func inferStage(ctx *PipelineTypeContext, index int, name string, value interface{}) error {
	switch name {
	case "$documents":
		return inferDocumentsStage(ctx, value)
	case "$match":
		return inferMatchStage(ctx, value)
	case "$project":
		return inferProjectStage(ctx, value, true)
	case "$addFields", "$set":
		return inferProjectStage(ctx, value, false)
	case "$replaceWith", "$replaceRoot":
		return inferReplaceWithStage(ctx, value)
	case "$unwind":
		return inferUnwindStage(ctx, value)
	case "$group":
		return inferGroupStage(ctx, value)
	case "$unset":
		return inferUnsetStage(ctx, value)
	case "$count":
		return inferCountStage(ctx, value)
	case "$limit", "$skip":
		return nil
	case "$sort":
		return nil
	case "$lookup":
		return inferLookupStage(ctx, value)
	case "$vectorSearch":
		return nil
	default:
		return &UnknownAggregationStageError{Index: index, Stage: name}
	}
}

// --- $documents ---

func inferDocumentsStage(ctx *PipelineTypeContext, value interface{}) error {
	docs, ok := asDocArray(value)
	if !ok {
		ctx.UnknownStageDocType(&ExpectedArrayError{Actual: fmt.Sprintf("%T", value)})
		return nil
	}
	rootName := ctx.UniqueTypeName(ctx.typeNameRoot + "_documents")
	ots, err := inferFromDocumentList(rootName, docs)
	if err != nil {
		return err
	}
	objectTypes := make(map[string]ObjectTypeConstraint, len(ots))
	for _, ot := range ots {
		objectTypes[ot.Name] = objectTypeConstraintFromSchema(ot)
	}
	ctx.SetStageDocType(rootName, objectTypes)
	return nil
}

func inferFromDocumentList(name string, docs []bson.D) ([]ObjectType, error) {
	var merged []ObjectType
	for i, d := range docs {
		ots, err := makeObjectType(name, d)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			merged = ots
			continue
		}
		merged, err = unifyObjectTypeLists(merged, ots)
		if err != nil {
			return nil, err
		}
	}
	if merged == nil {
		merged = []ObjectType{{Name: name}}
	}
	return merged, nil
}

// asDocOK adapts validator.go's asDoc to the boolean-test form the stage
// handlers below want: a failed conversion is routine ("this value wasn't
// shaped like a document"), not an error worth wrapping.
func asDocOK(v interface{}) (bson.D, bool) {
	d, err := asDoc(v)
	return d, err == nil
}

func asDocArray(value interface{}) ([]bson.D, bool) {
	switch v := value.(type) {
	case bson.A:
		out := make([]bson.D, 0, len(v))
		for _, elem := range v {
			d, ok := asDocOK(elem)
			if !ok {
				return nil, false
			}
			out = append(out, d)
		}
		return out, true
	case []interface{}:
		return asDocArray(bson.A(v))
	case []bson.D:
		return v, true
	default:
		return nil, false
	}
}

// --- $match ---

func inferMatchStage(ctx *PipelineTypeContext, value interface{}) error {
	filter, ok := asDocOK(value)
	if !ok {
		return &ExpectedObjectError{Actual: fmt.Sprintf("%T", value)}
	}
	for _, e := range filter {
		if strings.HasPrefix(e.Key, "$") {
			return &UnknownMatchDocumentOperatorError{Name: e.Key}
		}
		if err := checkMatchFieldClause(ctx, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// checkMatchFieldClause validates operator shape ($eq is the only operator
// form a match-document field clause may use; anything else is unsupported)
// and, for a string leaf, registers a native-query parameter reference if
// one is present (§6) so the pipeline's parameter types reflect how they're
// used in predicates, not just in $project/$group expressions.
func checkMatchFieldClause(ctx *PipelineTypeContext, value interface{}) error {
	d, ok := asDocOK(value)
	if !ok {
		if s, ok := value.(string); ok {
			if _, err := shorthandConstraint(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
	for _, e := range d {
		if !strings.HasPrefix(e.Key, "$") {
			continue
		}
		if e.Key != "$eq" {
			return &UnknownMatchDocumentOperatorError{Name: e.Key}
		}
		if s, ok := e.Value.(string); ok {
			if _, err := shorthandConstraint(ctx, s); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- $project / $addFields / $set ---

// inferProjectStage handles both reshaping forms. When inclusive is true,
// integer 1/0 values select existing fields by inclusion/exclusion (§4.9's
// $project); otherwise every value is an expression merged onto the
// existing fields (§4.9's $addFields/$set).
func inferProjectStage(ctx *PipelineTypeContext, value interface{}, inclusive bool) error {
	spec, ok := asDocOK(value)
	if !ok {
		return &ExpectedObjectError{Actual: fmt.Sprintf("%T", value)}
	}
	current := ctx.CurrentFields()
	out := ObjectTypeConstraint{Fields: map[string]TypeConstraint{}}

	if inclusive {
		excluding := isExclusionProjection(spec)
		if excluding {
			for fname, fc := range current.Fields {
				out.Fields[fname] = fc
			}
			for _, e := range spec {
				if isZero(e.Value) {
					delete(out.Fields, e.Key)
				}
			}
		} else {
			for _, e := range spec {
				if e.Key == "_id" && isZero(e.Value) {
					continue // _id:0 alongside inclusions just drops it, per MongoDB's rule
				}
				if isOne(e.Value) {
					if fc, ok := current.Fields[e.Key]; ok {
						out.Fields[e.Key] = fc
						continue
					}
					out.Fields[e.Key] = FieldOfConstraint(ctx.currentTarget(), []string{e.Key})
					continue
				}
				tc, err := exprConstraint(ctx, e.Value)
				if err != nil {
					return err
				}
				out.Fields[e.Key] = tc
			}
		}
	} else {
		for fname, fc := range current.Fields {
			out.Fields[fname] = fc
		}
		for _, e := range spec {
			tc, err := exprConstraint(ctx, e.Value)
			if err != nil {
				return err
			}
			out.Fields[e.Key] = tc
		}
	}

	name := ctx.UniqueTypeName(ctx.typeNameRoot + "_project")
	ctx.SetStageDocType(name, map[string]ObjectTypeConstraint{name: out})
	return nil
}

func isExclusionProjection(spec bson.D) bool {
	for _, e := range spec {
		if e.Key == "_id" {
			continue
		}
		if isZero(e.Value) {
			return true
		}
		return false
	}
	return false
}

func isOne(v interface{}) bool {
	switch n := v.(type) {
	case int32:
		return n == 1
	case int64:
		return n == 1
	case int:
		return n == 1
	case float64:
		return n == 1
	case bool:
		return n
	default:
		return false
	}
}

func isZero(v interface{}) bool {
	switch n := v.(type) {
	case int32:
		return n == 0
	case int64:
		return n == 0
	case int:
		return n == 0
	case float64:
		return n == 0
	case bool:
		return !n
	default:
		return false
	}
}

// --- $replaceWith / $replaceRoot ---

func inferReplaceWithStage(ctx *PipelineTypeContext, value interface{}) error {
	newRoot := value
	if d, ok := asDocOK(value); ok {
		if nr, ok := docField(d, "newRoot"); ok {
			newRoot = nr
		}
	}
	tc, err := exprConstraint(ctx, newRoot)
	if err != nil {
		return err
	}
	if tc.Kind == ConstraintObject {
		ctx.SetStageDocType(tc.ObjectName, ctx.objectTypes)
		return nil
	}
	ctx.UnknownStageDocType(&NotImplementedError{Feature: "$replaceWith of a non-object expression"})
	return nil
}

func docField(d bson.D, key string) (interface{}, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// --- $unwind ---

func inferUnwindStage(ctx *PipelineTypeContext, value interface{}) error {
	path, ok := unwindPath(value)
	if !ok {
		return &ExpectedStringPathError{Value: fmt.Sprintf("%v", value)}
	}
	ref := parseReferenceShorthand(path)
	if ref.kind != shorthandField || len(ref.path) == 0 {
		ctx.UnknownStageDocType(&NotImplementedError{Feature: "$unwind of a non-field-path expression"})
		return nil
	}
	current := ctx.CurrentFields()
	out := ObjectTypeConstraint{Fields: map[string]TypeConstraint{}}
	for fname, fc := range current.Fields {
		out.Fields[fname] = fc
	}
	top := ref.path[0]
	if fc, ok := out.Fields[top]; ok {
		out.Fields[top] = unwindFieldConstraint(fc, ref.path[1:])
	} else {
		out.Fields[top] = ElementOfConstraint(FieldOfConstraint(ctx.currentTarget(), ref.path))
	}
	name := ctx.UniqueTypeName(ctx.typeNameRoot + "_unwind")
	ctx.SetStageDocType(name, map[string]ObjectTypeConstraint{name: out})
	return nil
}

// unwindFieldConstraint reduces an ArrayOf constraint to its element type in
// place; a deeper rest-path is resolved via FieldOf/ElementOf layered on top.
func unwindFieldConstraint(fc TypeConstraint, rest []string) TypeConstraint {
	if len(rest) > 0 {
		return ElementOfConstraint(FieldOfConstraint(fc, rest))
	}
	if fc.Kind == ConstraintArrayOf {
		return *fc.Elem
	}
	return ElementOfConstraint(fc)
}

func unwindPath(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bson.D:
		if p, ok := docField(v, "path"); ok {
			if s, ok := p.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// --- $group ---

func inferGroupStage(ctx *PipelineTypeContext, value interface{}) error {
	spec, ok := asDocOK(value)
	if !ok {
		return &ExpectedObjectError{Actual: fmt.Sprintf("%T", value)}
	}
	out := ObjectTypeConstraint{Fields: map[string]TypeConstraint{}}
	for _, e := range spec {
		if e.Key == "_id" {
			tc, err := exprConstraint(ctx, e.Value)
			if err != nil {
				return err
			}
			out.Fields["_id"] = tc
			continue
		}
		tc, err := accumulatorConstraint(ctx, e.Value)
		if err != nil {
			return err
		}
		out.Fields[e.Key] = tc
	}
	name := ctx.UniqueTypeName(ctx.typeNameRoot + "_group")
	ctx.SetStageDocType(name, map[string]ObjectTypeConstraint{name: out})
	return nil
}

func accumulatorConstraint(ctx *PipelineTypeContext, value interface{}) (TypeConstraint, error) {
	d, ok := asDocOK(value)
	if !ok || len(d) != 1 {
		return TypeConstraint{}, &MultipleExpressionOperatorsError{Document: fmt.Sprintf("%v", value)}
	}
	op, arg := d[0].Key, d[0].Value
	switch op {
	case "$count":
		return ScalarConstraint(ScalarInt), nil
	case "$sum", "$avg":
		return exprConstraint(ctx, arg)
	case "$min", "$max", "$first", "$last":
		return exprConstraint(ctx, arg)
	case "$push", "$addToSet":
		inner, err := exprConstraint(ctx, arg)
		if err != nil {
			return TypeConstraint{}, err
		}
		return ArrayOfConstraint(inner), nil
	default:
		return TypeConstraint{}, &UnknownAggregationOperatorError{Name: op}
	}
}

// --- $unset ---

func inferUnsetStage(ctx *PipelineTypeContext, value interface{}) error {
	var fields []string
	switch v := value.(type) {
	case string:
		fields = []string{v}
	case bson.A:
		for _, e := range v {
			if s, ok := e.(string); ok {
				fields = append(fields, s)
			}
		}
	default:
		return &ExpectedArrayError{Actual: fmt.Sprintf("%T", value)}
	}
	current := ctx.CurrentFields()
	out := ObjectTypeConstraint{Fields: map[string]TypeConstraint{}}
	for fname, fc := range current.Fields {
		out.Fields[fname] = fc
	}
	for _, f := range fields {
		delete(out.Fields, f)
	}
	name := ctx.UniqueTypeName(ctx.typeNameRoot + "_unset")
	ctx.SetStageDocType(name, map[string]ObjectTypeConstraint{name: out})
	return nil
}

// --- $count ---

func inferCountStage(ctx *PipelineTypeContext, value interface{}) error {
	field, ok := value.(string)
	if !ok {
		return &ExpectedStringPathError{Value: fmt.Sprintf("%v", value)}
	}
	name := ctx.UniqueTypeName(ctx.typeNameRoot + "_count")
	out := ObjectTypeConstraint{Fields: map[string]TypeConstraint{field: ScalarConstraint(ScalarInt)}}
	ctx.SetStageDocType(name, map[string]ObjectTypeConstraint{name: out})
	return nil
}

// --- $lookup ---

func inferLookupStage(ctx *PipelineTypeContext, value interface{}) error {
	spec, ok := asDocOK(value)
	if !ok {
		return &ExpectedObjectError{Actual: fmt.Sprintf("%T", value)}
	}
	fromVal, _ := docField(spec, "from")
	asVal, ok := docField(spec, "as")
	asField, ok2 := asVal.(string)
	if !ok || !ok2 {
		return &ExpectedStringPathError{Value: fmt.Sprintf("%v", asVal)}
	}

	elem := ExtendedJSONConstraint()
	if from, ok := fromVal.(string); ok && ctx.schema != nil {
		if docType, err := ctx.schema.CollectionDocumentType(from); err == nil {
			elem = ObjectConstraint(docType)
		}
	}

	current := ctx.CurrentFields()
	out := ObjectTypeConstraint{Fields: map[string]TypeConstraint{}}
	for fname, fc := range current.Fields {
		out.Fields[fname] = fc
	}
	out.Fields[asField] = ArrayOfConstraint(elem)

	name := ctx.UniqueTypeName(ctx.typeNameRoot + "_lookup")
	ctx.SetStageDocType(name, map[string]ObjectTypeConstraint{name: out})
	return nil
}

// currentTarget returns an Object(name) constraint pointing at the current
// input document type, for use as a FieldOf/ElementOf target.
func (c *PipelineTypeContext) currentTarget() TypeConstraint {
	name, ok := c.CurrentDocTypeName()
	if !ok {
		return ExtendedJSONConstraint()
	}
	return ObjectConstraint(name)
}

// --- reference shorthand grammar (§6) ---

type shorthandKind int

const (
	shorthandNativeVar shorthandKind = iota
	shorthandPipelineVar
	shorthandField
	shorthandOpaque
)

type shorthandRef struct {
	kind          shorthandKind
	name          string
	path          []string
	annotatedType string
}

var nativeVarPattern = regexp.MustCompile(`^\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*(\|\s*([A-Za-z_][A-Za-z0-9_]*)\s*)?\}\}$`)

// parseReferenceShorthand classifies a pipeline expression string per §6's
// grammar: `{{name}}`/`{{name|Type}}` native-query variables, `$$name.path`
// pipeline variables, `$name.path` input-document field references, and
// everything else as an opaque string literal.
func parseReferenceShorthand(s string) shorthandRef {
	if m := nativeVarPattern.FindStringSubmatch(s); m != nil {
		return shorthandRef{kind: shorthandNativeVar, name: m[1], annotatedType: m[3]}
	}
	if strings.HasPrefix(s, "$$") {
		parts := strings.Split(s[2:], ".")
		if len(parts) > 0 && parts[0] != "" {
			return shorthandRef{kind: shorthandPipelineVar, name: parts[0], path: parts[1:]}
		}
	}
	if strings.HasPrefix(s, "$") && len(s) > 1 && s[1] != '$' {
		parts := strings.Split(s[1:], ".")
		if len(parts) > 0 && parts[0] != "" {
			return shorthandRef{kind: shorthandField, name: parts[0], path: parts}
		}
	}
	return shorthandRef{kind: shorthandOpaque, name: s}
}

// exprConstraint infers the TypeConstraint of an aggregation expression. A
// single-key document whose key starts with `$` is an operator call, handled
// by operatorConstraint: a handful of operators with a fixed result shape
// (such as $split) map to a known constraint, and any other operator falls
// back to ExtendedJSON with a recorded warning.
func exprConstraint(ctx *PipelineTypeContext, value interface{}) (TypeConstraint, error) {
	switch v := value.(type) {
	case string:
		return shorthandConstraint(ctx, v)
	case bson.D:
		if len(v) == 1 && strings.HasPrefix(v[0].Key, "$") {
			return operatorConstraint(ctx, v[0].Key, v[0].Value)
		}
		return objectLiteralConstraint(ctx, v)
	case bson.A:
		return arrayLiteralConstraint(ctx, v)
	case []interface{}:
		return arrayLiteralConstraint(ctx, bson.A(v))
	case int32, int64, int:
		return ScalarConstraint(ScalarInt), nil
	case float64:
		return ScalarConstraint(ScalarDouble), nil
	case bool:
		return ScalarConstraint(ScalarBool), nil
	case nil:
		return ScalarConstraint(ScalarNull), nil
	default:
		return ExtendedJSONConstraint(), nil
	}
}

func shorthandConstraint(ctx *PipelineTypeContext, s string) (TypeConstraint, error) {
	ref := parseReferenceShorthand(s)
	switch ref.kind {
	case shorthandNativeVar:
		var constraints []TypeConstraint
		if ref.annotatedType != "" {
			if sc, ok := ScalarFromBsonName(ref.annotatedType); ok {
				constraints = append(constraints, ScalarConstraint(sc))
			}
		}
		v := ctx.RegisterParameter(ref.name, constraints...)
		return VariableConstraint(v), nil
	case shorthandPipelineVar:
		return ExtendedJSONConstraint(), nil
	case shorthandField:
		return FieldOfConstraint(ctx.currentTarget(), ref.path), nil
	default:
		return ScalarConstraint(ScalarString), nil
	}
}

func objectLiteralConstraint(ctx *PipelineTypeContext, d bson.D) (TypeConstraint, error) {
	name := ctx.UniqueTypeName(ctx.typeNameRoot + "_object")
	fields := make(map[string]TypeConstraint, len(d))
	for _, e := range d {
		tc, err := exprConstraint(ctx, e.Value)
		if err != nil {
			return TypeConstraint{}, err
		}
		fields[e.Key] = tc
	}
	ctx.InsertObjectType(name, ObjectTypeConstraint{Fields: fields})
	return ObjectConstraint(name), nil
}

func arrayLiteralConstraint(ctx *PipelineTypeContext, a bson.A) (TypeConstraint, error) {
	if len(a) == 0 {
		return ArrayOfConstraint(ExtendedJSONConstraint()), nil
	}
	elem, err := exprConstraint(ctx, a[0])
	if err != nil {
		return TypeConstraint{}, err
	}
	return ArrayOfConstraint(elem), nil
}

func operatorConstraint(ctx *PipelineTypeContext, op string, arg interface{}) (TypeConstraint, error) {
	switch op {
	case "$split":
		return ArrayOfConstraint(ScalarConstraint(ScalarString)), nil
	case "$toUpper", "$toLower", "$concat", "$substr", "$substrCP", "$trim":
		return ScalarConstraint(ScalarString), nil
	case "$toInt":
		return ScalarConstraint(ScalarInt), nil
	case "$toLong":
		return ScalarConstraint(ScalarLong), nil
	case "$toDouble":
		return ScalarConstraint(ScalarDouble), nil
	case "$toBool":
		return ScalarConstraint(ScalarBool), nil
	case "$toDate":
		return ScalarConstraint(ScalarDate), nil
	case "$toString":
		return ScalarConstraint(ScalarString), nil
	case "$size":
		return ScalarConstraint(ScalarInt), nil
	case "$eq", "$ne", "$lt", "$lte", "$gt", "$gte", "$and", "$or", "$not", "$in":
		return ScalarConstraint(ScalarBool), nil
	case "$getField":
		return fieldOfFromGetField(ctx, arg)
	default:
		ctx.warnings = append(ctx.warnings, &UnknownAggregationOperatorError{Name: op})
		return ExtendedJSONConstraint(), nil
	}
}

func fieldOfFromGetField(ctx *PipelineTypeContext, arg interface{}) (TypeConstraint, error) {
	if d, ok := asDocOK(arg); ok {
		if f, ok := docField(d, "field"); ok {
			if fname, ok := f.(string); ok {
				return FieldOfConstraint(ctx.currentTarget(), []string{fname}), nil
			}
		}
	}
	if s, ok := arg.(string); ok {
		return FieldOfConstraint(ctx.currentTarget(), []string{s}), nil
	}
	return ExtendedJSONConstraint(), nil
}
