package querycore

import (
	"sort"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Documents seeds the pipeline with a fixed, literal array of documents
// instead of reading from a collection. The teacher's Pipeline builder had
// no equivalent of this: it always ran against mongo.Collection.Aggregate,
// which only ever starts from the collection's own documents. A batched,
// parameterized query plan (one row per VariableSet) needs to originate
// from those rows instead, which $documents is the only stage that can do.
//
// MongoDB equivalent:
//
//	{ $documents: [ doc1, doc2, ... ] }
//
// See: https://www.mongodb.com/docs/manual/reference/operator/aggregation/documents/
func (p Pipeline) Documents(docs []bson.D) Pipeline {
	arr := make(bson.A, len(docs))
	for i, d := range docs {
		arr[i] = d
	}
	return p.addStage("$documents", arr)
}

// AssembleQueryPipeline compiles a fully-planned QueryPlan into a runnable
// aggregation pipeline. For an unparameterized plan the pipeline runs
// directly against plan.Collection; for a batched plan (any non-empty
// plan.Variables, even a single VariableSet) it opens with a Documents stage
// holding one row per VariableSet and joins back into plan.Collection once
// per row via $lookup, so the query only runs once per batch instead of
// once per row.
func AssembleQueryPipeline(plan *QueryPlan) (Pipeline, error) {
	inner, err := assembleQuery(plan.Query, plan.UnrelatedJoins, true)
	if err != nil {
		return Pipeline{}, err
	}

	if len(plan.Variables) == 0 {
		return inner, nil
	}

	rows := make([]bson.D, len(plan.Variables))
	let := bson.D{}
	seen := map[string]bool{}
	for i, vs := range plan.Variables {
		row := bson.D{}
		for name, value := range vs {
			types := plan.VariableTypes[name]
			t := ExtendedJSON()
			if len(types) > 0 {
				t = types[0]
			}
			varName := QueryVariableName(name, t)
			row = append(row, bson.E{Key: varName, Value: value})
			if !seen[varName] {
				seen[varName] = true
				let = append(let, bson.E{Key: varName, Value: "$$" + varName})
			}
		}
		rows[i] = row
	}
	sort.Slice(let, func(i, j int) bool { return let[i].Key < let[j].Key })

	joined := NewPipeline().
		Documents(rows).
		LookupPipeline(LookupPipelineOpts{
			From:     plan.Collection,
			Let:      variableLet(plan.Variables, plan.VariableTypes),
			Pipeline: inner,
			As:       "__rows",
		})
	return joined, nil
}

// variableLet builds the $lookup "let" binding every variable name observed
// across the batch to its own row value, so the joined sub-pipeline can read
// "$$v_name_type" regardless of which row it is currently evaluating.
func variableLet(variables []VariableSet, variableTypes map[string][]Type) bson.D {
	names := map[string]bool{}
	for _, vs := range variables {
		for name := range vs {
			types := variableTypes[name]
			t := ExtendedJSON()
			if len(types) > 0 {
				t = types[0]
			}
			names[QueryVariableName(name, t)] = true
		}
	}
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	let := make(bson.D, len(keys))
	for i, k := range keys {
		let[i] = bson.E{Key: k, Value: "$" + k}
	}
	return let
}

// assembleQuery compiles one sub-query (root or nested inside a
// relationship/unrelated join) into the stages that produce its rows:
// relationship joins, the match predicate, sort, skip/limit, grouping, and
// finally the requested field/aggregate projection. isRoot is true only for
// the root query, which is the only level that joins in the plan's
// unrelated joins.
func assembleQuery(q *Query, unrelatedJoins map[string]UnrelatedJoin, isRoot bool) (Pipeline, error) {
	p := NewPipeline()

	relNames := make([]string, 0, len(q.Relationships))
	for name := range q.Relationships {
		relNames = append(relNames, name)
	}
	sort.Strings(relNames)
	for _, name := range relNames {
		var err error
		p, err = appendRelationshipLookup(p, name, q.Relationships[name], unrelatedJoins)
		if err != nil {
			return Pipeline{}, err
		}
	}

	if isRoot {
		joinNames := make([]string, 0, len(unrelatedJoins))
		for name := range unrelatedJoins {
			joinNames = append(joinNames, name)
		}
		sort.Strings(joinNames)
		for _, name := range joinNames {
			var err error
			p, err = appendUnrelatedJoinLookup(p, name, unrelatedJoins[name], unrelatedJoins)
			if err != nil {
				return Pipeline{}, err
			}
		}
	}

	if q.Predicate != nil {
		f, err := CompileExpression(*q.Predicate, ExpressionCompileContext{
			Relationships: q.Relationships, UnrelatedJoins: unrelatedJoins,
		})
		if err != nil {
			return Pipeline{}, err
		}
		p = p.Match(f)
	}

	if q.OrderBy != nil {
		spec, err := buildSortSpec(q.OrderBy)
		if err != nil {
			return Pipeline{}, err
		}
		if len(spec) > 0 {
			p = p.Sort(spec)
		}
	}

	if q.Offset != nil && *q.Offset > 0 {
		p = p.Skip(int64(*q.Offset))
	}
	if q.Limit != nil {
		p = p.Limit(int64(*q.Limit))
	}

	if q.Grouping != nil {
		var err error
		p, err = appendGrouping(p, q.Grouping)
		if err != nil {
			return Pipeline{}, err
		}
		return p, nil
	}

	return appendFieldsAndAggregates(p, q)
}

// appendRelationshipLookup joins in one relationship's target collection.
// Object relationships unwind to a single (possibly null) document; array
// relationships keep the $lookup array as-is, since that's what $elemMatch/
// $size-based predicate compilation (exprcompile.go) expects to find.
func appendRelationshipLookup(p Pipeline, name string, rel Relationship, unrelatedJoins map[string]UnrelatedJoin) (Pipeline, error) {
	sub, err := assembleQuery(rel.Query, unrelatedJoins, false)
	if err != nil {
		return Pipeline{}, err
	}
	matchStage := NewPipeline().Match(relationshipMatchFilter(rel.ColumnMapping))
	combined := Pipeline{stages: append(append([]bson.D{}, matchStage.stages...), sub.stages...)}
	p = p.LookupPipeline(LookupPipelineOpts{
		From:     rel.TargetCollection,
		Let:      relationshipLet(rel.ColumnMapping),
		Pipeline: combined,
		As:       name,
	})
	if rel.RelationshipType == RelationshipObject {
		p = p.UnwindWithOpts(UnwindOpts{Path: "$" + name, PreserveNullAndEmptyArrays: true})
	}
	return p, nil
}

// appendUnrelatedJoinLookup joins in a collection with no declared
// relationship to the one being planned, used only to satisfy an Exists
// check against it (§4.10/§4.11's "unrelated" Exists form).
func appendUnrelatedJoinLookup(p Pipeline, name string, join UnrelatedJoin, unrelatedJoins map[string]UnrelatedJoin) (Pipeline, error) {
	sub, err := assembleQuery(join.Query, unrelatedJoins, false)
	if err != nil {
		return Pipeline{}, err
	}
	return p.LookupPipeline(LookupPipelineOpts{
		From:     join.TargetCollection,
		Pipeline: sub,
		As:       name,
	}), nil
}

// relationshipLet binds each local side of the column mapping so the
// sub-pipeline's $match can compare against it via $$name.
func relationshipLet(columnMapping map[string][]string) bson.D {
	keys := make([]string, 0, len(columnMapping))
	for k := range columnMapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	let := make(bson.D, len(keys))
	for i, k := range keys {
		let[i] = bson.E{Key: relationshipLetName(k), Value: "$" + k}
	}
	return let
}

func relationshipLetName(localField string) string {
	return VariableEscape(localField)
}

// relationshipMatchFilter builds the $expr equality filter joining each
// local column (bound via let) to its corresponding field on the foreign
// collection.
func relationshipMatchFilter(columnMapping map[string][]string) Filter {
	keys := make([]string, 0, len(columnMapping))
	for k := range columnMapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	clauses := make(bson.A, len(keys))
	for i, local := range keys {
		foreign := columnMapping[local]
		clauses[i] = bson.D{{Key: "$eq", Value: bson.A{
			"$$" + relationshipLetName(local),
			"$" + joinDotted(foreign),
		}}}
	}
	return Expr(bson.D{{Key: "$and", Value: clauses}})
}

func joinDotted(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}

// appendGrouping adds a $group stage for a GROUP BY sub-query: one
// accumulator per requested aggregate, keyed by the dimension columns, plus
// a HAVING-like predicate, ordering, and limit/offset over the resulting
// groups.
func appendGrouping(p Pipeline, g *Grouping) (Pipeline, error) {
	id := bson.D{}
	for i, dim := range g.Dimensions {
		segments := append([]string{dim.ColumnName}, dim.FieldPath...)
		id = append(id, bson.E{Key: dimensionKey(i), Value: "$" + joinDotted(segments)})
	}

	aggNames := make([]string, 0, len(g.Aggregates))
	for name := range g.Aggregates {
		aggNames = append(aggNames, name)
	}
	sort.Strings(aggNames)
	accs := make([]bson.E, len(aggNames))
	for i, name := range aggNames {
		acc, err := buildAccumulator(g.Aggregates[name])
		if err != nil {
			return Pipeline{}, err
		}
		accs[i] = GroupAcc(name, acc)
	}

	p = p.Group(GroupSpec(id, accs...))

	if g.Predicate != nil {
		f, err := CompileExpression(*g.Predicate, ExpressionCompileContext{})
		if err != nil {
			return Pipeline{}, err
		}
		p = p.Match(f)
	}
	if g.OrderBy != nil {
		spec, err := buildSortSpec(g.OrderBy)
		if err != nil {
			return Pipeline{}, err
		}
		if len(spec) > 0 {
			p = p.Sort(spec)
		}
	}
	if g.Offset != nil && *g.Offset > 0 {
		p = p.Skip(int64(*g.Offset))
	}
	if g.Limit != nil {
		p = p.Limit(int64(*g.Limit))
	}
	return p, nil
}

func dimensionKey(i int) string {
	return "d" + strconv.Itoa(i)
}

func buildAccumulator(agg Aggregate) (bson.D, error) {
	switch agg.Kind {
	case AggregateStarCount:
		return AccCount(), nil
	case AggregateColumnCount:
		field := "$" + agg.Column
		if agg.Distinct {
			return bson.D{{Key: "$addToSet", Value: field}}, nil
		}
		return AccSum(bson.D{{Key: "$cond", Value: bson.D{
			{Key: "if", Value: bson.D{{Key: "$gt", Value: bson.A{field, nil}}}},
			{Key: "then", Value: 1},
			{Key: "else", Value: 0},
		}}}), nil
	case AggregateSingleColumn:
		field := "$" + agg.Column
		switch agg.Function {
		case AggAvg:
			return AccAvg(field), nil
		case AggSum:
			return AccSum(field), nil
		case AggMin:
			return AccMin(field), nil
		case AggMax:
			return AccMax(field), nil
		case AggCount:
			return AccCount(), nil
		default:
			return nil, &UnknownAggregateFunctionError{Function: string(agg.Function)}
		}
	default:
		return nil, &UnknownAggregateFunctionError{Function: "unknown"}
	}
}

// SortField is one $sort key: a dotted field path and its direction (1
// ascending, -1 descending).
type SortField struct {
	Field string
	Order int
}

// SortRule is a convenience constructor for a SortField.
func SortRule(field string, order int) SortField {
	return SortField{Field: field, Order: order}
}

// SortSpec renders a priority-ordered list of SortField as a $sort
// specification.
func SortSpec(fields ...SortField) bson.D {
	d := make(bson.D, len(fields))
	for i, f := range fields {
		d[i] = bson.E{Key: f.Field, Value: f.Order}
	}
	return d
}

// buildSortSpec renders an OrderBy as a $sort specification. Only
// column-targeted sort keys are supported directly; an aggregate sort key
// is expected to already be projected under its own name by an enclosing
// Grouping, and sorts on that name instead.
func buildSortSpec(ob *OrderBy) (bson.D, error) {
	rules := make([]SortField, 0, len(ob.Elements))
	for _, el := range ob.Elements {
		dir := 1
		if el.Direction == OrderDesc {
			dir = -1
		}
		switch el.Target.Kind {
		case OrderByColumnKind:
			segments := append(append([]string{}, el.Target.Path...), el.Target.Name)
			segments = append(segments, el.Target.FieldPath...)
			rules = append(rules, SortRule(joinDotted(segments), dir))
		case OrderByAggregateKind:
			rules = append(rules, SortRule(el.Target.Aggregate.Column, dir))
		}
	}
	return SortSpec(rules...), nil
}

// appendFieldsAndAggregates shapes the query's final output. A query that
// requests only fields projects them directly; a query that requests only
// aggregates reduces to a single summary document; a query that requests
// both runs each independently in a $facet, since fields read un-reduced
// rows and aggregates reduce the same rows to scalars in the same stage.
func appendFieldsAndAggregates(p Pipeline, q *Query) (Pipeline, error) {
	wantsFields := len(q.Fields) > 0
	wantsAggregates := len(q.Aggregates) > 0

	if wantsFields && !wantsAggregates {
		return p.Project(buildFieldProjection(q.Fields)), nil
	}
	if wantsAggregates && !wantsFields {
		return appendAggregateSummary(p, q.Aggregates)
	}
	if !wantsFields && !wantsAggregates {
		return p, nil
	}

	rowsPipeline := NewPipeline().Project(buildFieldProjection(q.Fields))
	aggPipeline, err := appendAggregateSummary(NewPipeline(), q.Aggregates)
	if err != nil {
		return Pipeline{}, err
	}
	return p.Facet(map[string]Pipeline{"rows": rowsPipeline, "aggregates": aggPipeline}), nil
}

func appendAggregateSummary(p Pipeline, aggregates map[string]Aggregate) (Pipeline, error) {
	names := make([]string, 0, len(aggregates))
	for name := range aggregates {
		names = append(names, name)
	}
	sort.Strings(names)
	accs := make([]bson.E, len(names))
	for i, name := range names {
		acc, err := buildAccumulator(aggregates[name])
		if err != nil {
			return Pipeline{}, err
		}
		accs[i] = GroupAcc(name, acc)
	}
	return p.Group(GroupSpec(nil, accs...)), nil
}

// buildFieldProjection renders the requested Fields as a $project spec.
// Plain columns (optionally narrowed by NestedField) project straight
// through; relationship fields project the joined sub-document/array,
// itself reshaped to only the nested fields that were requested. A
// relationship field's Aggregates are not projected.
func buildFieldProjection(fields map[string]Field) bson.D {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	spec := make(bson.D, 0, len(names)+1)
	spec = append(spec, bson.E{Key: "_id", Value: 0})
	for _, name := range names {
		spec = append(spec, bson.E{Key: name, Value: fieldProjectionExpr(fields[name])})
	}
	return spec
}

func fieldProjectionExpr(f Field) interface{} {
	switch f.Kind {
	case FieldRelationship:
		if len(f.Fields) > 0 {
			return buildFieldProjection(f.Fields)
		}
		return 1
	case FieldColumn:
		if f.Nested == nil {
			return 1
		}
		return nestedFieldProjectionExpr("$"+f.ColumnName, f.Nested)
	default:
		return 1
	}
}

func nestedFieldProjectionExpr(ref string, nested *NestedField) interface{} {
	switch nested.Kind {
	case NestedArrayKind:
		return bson.D{{Key: "$map", Value: bson.D{
			{Key: "input", Value: ref},
			{Key: "as", Value: "elem"},
			{Key: "in", Value: nestedFieldProjectionExpr("$$elem", nested.Array)},
		}}}
	default:
		names := make([]string, 0, len(nested.Fields))
		for name := range nested.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		spec := make(bson.D, len(names))
		for i, name := range names {
			spec[i] = bson.E{Key: name, Value: 1}
		}
		return spec
	}
}
