package querycore

import (
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ExpressionCompileContext carries the relationship/unrelated-join bindings
// an Expression's Exists nodes resolve against. Relationships is scoped to
// the sub-query the expression belongs to; UnrelatedJoins is shared across
// the whole plan.
type ExpressionCompileContext struct {
	Relationships  map[string]Relationship
	UnrelatedJoins map[string]UnrelatedJoin
}

// childContext descends into a relationship's own sub-query scope for
// compiling its nested predicate: relationships narrow to the nested
// sub-query's own registrations, unrelated joins stay plan-wide.
func (c ExpressionCompileContext) childContext(relationships map[string]Relationship) ExpressionCompileContext {
	return ExpressionCompileContext{Relationships: relationships, UnrelatedJoins: c.UnrelatedJoins}
}

// CompileExpression turns a planner Expression into a Filter usable as a
// $match stage. It first tries to render the expression as a plain
// match-query document; if any part cannot be expressed that way
// (comparisons against another column or a variable, negation, references
// through a named scope), the whole expression falls back to an aggregation
// expression wrapped in $expr.
func CompileExpression(expr Expression, ctx ExpressionCompileContext) (Filter, error) {
	if d, ok, err := matchCompile(expr, ctx); err != nil {
		return Filter{}, err
	} else if ok {
		return Raw(d), nil
	}
	agg, err := aggCompile(expr, ctx)
	if err != nil {
		return Filter{}, err
	}
	return Expr(agg), nil
}

// matchCompile attempts to render expr as a match-query document. ok is
// false when some part of expr has no match-query form and the caller
// should fall back to CompileExpression's $expr path instead.
func matchCompile(expr Expression, ctx ExpressionCompileContext) (bson.D, bool, error) {
	switch expr.Kind {
	case ExprAnd:
		return matchCompileConjunction(expr.Expressions, ctx, And)
	case ExprOr:
		return matchCompileConjunction(expr.Expressions, ctx, Or)
	case ExprNot:
		// $not only wraps a single operator-expression in match-query form;
		// there's no native way to negate an arbitrary sub-document, so this
		// always falls back to $expr's $not.
		return nil, false, nil
	case ExprUnaryComparison:
		field, ok := matchFieldPath(expr.Target)
		if !ok {
			return nil, false, nil
		}
		switch expr.UnaryOp {
		case UnaryIsNull:
			return Eq(field, nil).BsonD(), true, nil
		default:
			return nil, false, nil
		}
	case ExprBinaryComparison:
		if expr.Value.Kind != ComparisonValueScalar {
			return nil, false, nil
		}
		field, ok := matchFieldPath(expr.Target)
		if !ok {
			return nil, false, nil
		}
		f, err := matchCompileBinaryComparison(field, expr.BinaryOp, expr.Value.Value)
		if err != nil {
			return nil, false, err
		}
		return f.BsonD(), true, nil
	case ExprExists:
		d, err := matchCompileExists(expr.In, expr.Predicate, ctx)
		if err != nil {
			return nil, false, err
		}
		return d, true, nil
	default:
		return nil, false, nil
	}
}

func matchCompileConjunction(exprs []Expression, ctx ExpressionCompileContext, combine func(...Filter) Filter) (bson.D, bool, error) {
	filters := make([]Filter, len(exprs))
	for i, e := range exprs {
		d, ok, err := matchCompile(e, ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		filters[i] = Raw(d)
	}
	return combine(filters...).BsonD(), true, nil
}

func matchCompileBinaryComparison(field string, op ComparisonFunction, value interface{}) (Filter, error) {
	switch op {
	case CmpEqual:
		return Eq(field, value), nil
	case CmpNotEqual:
		return Ne(field, value), nil
	case CmpLessThan:
		return Lt(field, value), nil
	case CmpLessThanOrEqual:
		return Lte(field, value), nil
	case CmpGreaterThan:
		return Gt(field, value), nil
	case CmpGreaterThanOrEqual:
		return Gte(field, value), nil
	case CmpIn:
		return In(field, toInterfaceSlice(value)...), nil
	case CmpNotIn:
		return Nin(field, toInterfaceSlice(value)...), nil
	case CmpRegex:
		pattern, _ := value.(string)
		return Regex(field, pattern, ""), nil
	case CmpIRegex:
		pattern, _ := value.(string)
		return Regex(field, pattern, "i"), nil
	default:
		return Filter{}, &UnknownComparisonOperatorError{Name: string(op)}
	}
}

func toInterfaceSlice(value interface{}) []interface{} {
	if vs, ok := value.([]interface{}); ok {
		return vs
	}
	return []interface{}{value}
}

// matchFieldPath renders a ComparisonTarget as a dotted match-query field
// path. It reports ok=false when the target cannot be expressed that way:
// a path segment containing a literal "." or "$" (would be misread as
// MongoDB path/operator syntax).
func matchFieldPath(target ComparisonTarget) (string, bool) {
	segments := append([]string{target.Name}, target.FieldPath...)
	if needsGetField(segments) {
		return "", false
	}
	return strings.Join(segments, "."), true
}

func needsGetField(segments []string) bool {
	for _, s := range segments {
		if strings.ContainsAny(s, ".$") {
			return true
		}
	}
	return false
}

// matchCompileExists renders an Exists predicate. A related collection
// reaches the matched document as an array field named after the
// relationship (populated by an earlier $lookup stage in the assembled
// pipeline); quantifying over it is therefore a $elemMatch over that field,
// or a bare existence check on its first element when there's no further
// predicate. An unrelated join behaves the same way once wired through its
// own $lookup-produced field.
func matchCompileExists(in ExistsIn, predicate *Expression, ctx ExpressionCompileContext) (bson.D, error) {
	var field string
	var nested map[string]Relationship

	switch in.Kind {
	case ExistsRelated:
		rel, ok := ctx.Relationships[in.Relationship]
		if !ok {
			return nil, &UnknownRelationshipError{Name: in.Relationship, Path: []string{in.Relationship}}
		}
		field = in.Relationship
		if rel.Query != nil {
			nested = rel.Query.Relationships
		}
	case ExistsUnrelated:
		key, join, ok := lookupUnrelatedJoin(ctx.UnrelatedJoins, in.UnrelatedCollection)
		if !ok {
			return nil, &UnknownCollectionError{Name: in.UnrelatedCollection}
		}
		field = key
		if join.Query != nil {
			nested = join.Query.Relationships
		}
	}

	if predicate == nil {
		return Exists(field+".0", true).BsonD(), nil
	}

	inner, err := CompileExpression(*predicate, ctx.childContext(nested))
	if err != nil {
		return nil, err
	}
	return ElemMatch(field, inner).BsonD(), nil
}

// lookupUnrelatedJoin finds the registered join targeting collection. Join
// keys are generated as "__join_<collection>_<n>" with a shared counter; ties are
// broken by picking the lexicographically first key so lookups are
// deterministic.
func lookupUnrelatedJoin(joins map[string]UnrelatedJoin, collection string) (string, UnrelatedJoin, bool) {
	var bestKey string
	var best UnrelatedJoin
	found := false
	for key, join := range joins {
		if join.TargetCollection != collection {
			continue
		}
		if !found || key < bestKey {
			bestKey, best, found = key, join, true
		}
	}
	return bestKey, best, found
}

// aggCompile renders expr as a MongoDB aggregation expression, usable
// inside $expr, $addFields, or $project. Unlike matchCompile this never
// falls back further: every Expression shape has an aggregation-expression
// form.
func aggCompile(expr Expression, ctx ExpressionCompileContext) (interface{}, error) {
	switch expr.Kind {
	case ExprAnd:
		parts, err := aggCompileAll(expr.Expressions, ctx)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$and", Value: parts}}, nil
	case ExprOr:
		parts, err := aggCompileAll(expr.Expressions, ctx)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$or", Value: parts}}, nil
	case ExprNot:
		inner, err := aggCompile(*expr.Inner, ctx)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$not", Value: bson.A{inner}}}, nil
	case ExprUnaryComparison:
		field := aggFieldExpr(expr.Target, RootScope())
		switch expr.UnaryOp {
		case UnaryIsNull:
			return bson.D{{Key: "$eq", Value: bson.A{field, nil}}}, nil
		default:
			return nil, &UnknownComparisonOperatorError{Name: string(expr.UnaryOp)}
		}
	case ExprBinaryComparison:
		return aggCompileBinaryComparison(expr.Target, expr.BinaryOp, expr.Value)
	case ExprExists:
		return aggCompileExists(expr.In, expr.Predicate, ctx)
	default:
		return nil, &UnknownComparisonOperatorError{Name: "unknown expression kind"}
	}
}

func aggCompileAll(exprs []Expression, ctx ExpressionCompileContext) (bson.A, error) {
	out := make(bson.A, len(exprs))
	for i, e := range exprs {
		v, err := aggCompile(e, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func aggCompileBinaryComparison(target ComparisonTarget, op ComparisonFunction, value ComparisonValue) (interface{}, error) {
	lhs := aggFieldExpr(target, RootScope())
	rhs := aggCompileValue(value)

	switch op {
	case CmpEqual:
		return bson.D{{Key: "$eq", Value: bson.A{lhs, rhs}}}, nil
	case CmpNotEqual:
		return bson.D{{Key: "$ne", Value: bson.A{lhs, rhs}}}, nil
	case CmpLessThan:
		return bson.D{{Key: "$lt", Value: bson.A{lhs, rhs}}}, nil
	case CmpLessThanOrEqual:
		return bson.D{{Key: "$lte", Value: bson.A{lhs, rhs}}}, nil
	case CmpGreaterThan:
		return bson.D{{Key: "$gt", Value: bson.A{lhs, rhs}}}, nil
	case CmpGreaterThanOrEqual:
		return bson.D{{Key: "$gte", Value: bson.A{lhs, rhs}}}, nil
	case CmpIn:
		return bson.D{{Key: "$in", Value: bson.A{lhs, rhs}}}, nil
	case CmpNotIn:
		return bson.D{{Key: "$not", Value: bson.A{bson.D{{Key: "$in", Value: bson.A{lhs, rhs}}}}}}, nil
	case CmpRegex:
		return bson.D{{Key: "$regexMatch", Value: bson.D{{Key: "input", Value: lhs}, {Key: "regex", Value: rhs}}}}, nil
	case CmpIRegex:
		return bson.D{{Key: "$regexMatch", Value: bson.D{
			{Key: "input", Value: lhs}, {Key: "regex", Value: rhs}, {Key: "options", Value: "i"},
		}}}, nil
	default:
		return nil, &UnknownComparisonOperatorError{Name: string(op)}
	}
}

func aggCompileValue(value ComparisonValue) interface{} {
	switch value.Kind {
	case ComparisonValueColumn:
		return aggFieldExpr(ComparisonTarget{Name: value.Name, FieldPath: value.FieldPath}, value.Scope)
	case ComparisonValueVariable:
		return "$$" + QueryVariableName(value.Name, value.Type)
	default:
		return value.Value
	}
}

// aggFieldExpr renders a field reference for use inside an aggregation
// expression: "$a.b.c" for the common case, or a chain of $getField calls
// when a path segment contains a literal "." or "$" that dotted notation
// would misread as a path separator or operator. scope names the row the
// reference reads: root is the document the expression is attached to,
// anything else is an outer sub-query's row, reached as a "let"-bound
// aggregation variable.
func aggFieldExpr(target ComparisonTarget, scope Scope) interface{} {
	segments := append([]string{target.Name}, target.FieldPath...)
	prefix := "$"
	root := "$$ROOT"
	if !scope.IsRoot() {
		prefix = "$$" + scope.String() + "."
		root = "$$" + scope.String()
	}
	if !needsGetField(segments) {
		return prefix + strings.Join(segments, ".")
	}
	expr := interface{}(root)
	for _, s := range segments {
		expr = ExprGetField(ExprLiteral(s), expr)
	}
	return expr
}

// aggCompileExists renders an Exists predicate as an aggregation expression
// over the same $lookup-produced array field matchCompileExists uses,
// quantifying with $anyElementTrue/$map (the $expr analogue of $elemMatch).
func aggCompileExists(in ExistsIn, predicate *Expression, ctx ExpressionCompileContext) (interface{}, error) {
	var field string
	var nested map[string]Relationship

	switch in.Kind {
	case ExistsRelated:
		rel, ok := ctx.Relationships[in.Relationship]
		if !ok {
			return nil, &UnknownRelationshipError{Name: in.Relationship, Path: []string{in.Relationship}}
		}
		field = in.Relationship
		if rel.Query != nil {
			nested = rel.Query.Relationships
		}
	case ExistsUnrelated:
		key, join, ok := lookupUnrelatedJoin(ctx.UnrelatedJoins, in.UnrelatedCollection)
		if !ok {
			return nil, &UnknownCollectionError{Name: in.UnrelatedCollection}
		}
		field = key
		if join.Query != nil {
			nested = join.Query.Relationships
		}
	}

	arrayRef := "$" + field
	if predicate == nil {
		return bson.D{{Key: "$gt", Value: bson.A{bson.D{{Key: "$size", Value: arrayRef}}, 0}}}, nil
	}

	innerAgg, err := aggCompile(*predicate, ctx.childContext(nested))
	if err != nil {
		return nil, err
	}
	mapped := bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: arrayRef},
		{Key: "as", Value: "this"},
		{Key: "in", Value: innerAgg},
	}}}
	return ExprAnyElementTrue(mapped), nil
}
