package querycore

// AggregationFunction is one of the scalar-gated aggregate functions a
// native-query $group/$project stage may invoke.
type AggregationFunction string

const (
	AggAvg   AggregationFunction = "avg"
	AggCount AggregationFunction = "count"
	AggMin   AggregationFunction = "min"
	AggMax   AggregationFunction = "max"
	AggSum   AggregationFunction = "sum"
)

// IsCount reports whether f counts rows rather than reducing over a column's
// values; count is the only aggregate available on every scalar kind.
func (f AggregationFunction) IsCount() bool { return f == AggCount }

// ComparisonFunction is one of the scalar-gated binary comparison operators
// exposed in predicates.
type ComparisonFunction string

const (
	CmpEqual              ComparisonFunction = "_eq"
	CmpNotEqual           ComparisonFunction = "_neq"
	CmpLessThan           ComparisonFunction = "_lt"
	CmpLessThanOrEqual    ComparisonFunction = "_lte"
	CmpGreaterThan        ComparisonFunction = "_gt"
	CmpGreaterThanOrEqual ComparisonFunction = "_gte"
	CmpIn                 ComparisonFunction = "_in"
	CmpNotIn              ComparisonFunction = "_nin"
	CmpRegex              ComparisonFunction = "_regex"
	CmpIRegex             ComparisonFunction = "_iregex"
)

// MongoOperator returns the MongoDB match-query operator name this
// comparison compiles to. Regex and IRegex both compile to $regex;
// IRegex additionally sets the "i" option (see matchCompileBinaryComparison
// in exprcompile.go).
func (c ComparisonFunction) MongoOperator() string {
	switch c {
	case CmpLessThan:
		return "$lt"
	case CmpLessThanOrEqual:
		return "$lte"
	case CmpGreaterThan:
		return "$gt"
	case CmpGreaterThanOrEqual:
		return "$gte"
	case CmpEqual:
		return "$eq"
	case CmpNotEqual:
		return "$ne"
	case CmpIn:
		return "$in"
	case CmpNotIn:
		return "$nin"
	case CmpRegex, CmpIRegex:
		return "$regex"
	default:
		return ""
	}
}

// AggregateFunctionsFor enumerates the aggregate functions available on
// scalarType, each paired with the scalar type its result takes: count
// always produces Int; min/max preserve scalarType when it is orderable;
// avg/sum preserve scalarType when it is numeric.
func AggregateFunctionsFor(scalarType Scalar) []struct {
	Function   AggregationFunction
	ResultType Scalar
} {
	out := []struct {
		Function   AggregationFunction
		ResultType Scalar
	}{{AggCount, ScalarInt}}
	if scalarType.IsOrderable() {
		out = append(out,
			struct {
				Function   AggregationFunction
				ResultType Scalar
			}{AggMin, scalarType},
			struct {
				Function   AggregationFunction
				ResultType Scalar
			}{AggMax, scalarType},
		)
	}
	if scalarType.IsNumeric() {
		out = append(out,
			struct {
				Function   AggregationFunction
				ResultType Scalar
			}{AggAvg, scalarType},
			struct {
				Function   AggregationFunction
				ResultType Scalar
			}{AggSum, scalarType},
		)
	}
	return out
}

// ComparisonOperatorsFor enumerates the comparison operators available on
// scalarType that are gated per-scalar-type: equality and list membership
// (_in/_nin) for every comparable scalar, ordering for every orderable
// scalar, and regex matching only for strings.
func ComparisonOperatorsFor(scalarType Scalar) []ComparisonFunction {
	var out []ComparisonFunction
	if scalarType.IsComparable() {
		out = append(out, CmpEqual, CmpNotEqual, CmpIn, CmpNotIn)
	}
	if scalarType.IsOrderable() {
		out = append(out, CmpLessThan, CmpLessThanOrEqual, CmpGreaterThan, CmpGreaterThanOrEqual)
	}
	if scalarType == ScalarString {
		out = append(out, CmpRegex, CmpIRegex)
	}
	return out
}

// ScalarCapabilities describes the operations a scalar type supports, in
// the shape a schema-introspection response reports them: named aggregate
// functions mapped to their result scalar, and named comparison operators
// mapped to the scalar type of their comparison argument (for _in/_nin, the
// type of each list element).
type ScalarCapabilities struct {
	AggregateFunctions   map[AggregationFunction]Scalar
	ComparisonOperators map[ComparisonFunction]Scalar
}

// ScalarTypeCapabilities builds the full scalar-name -> capabilities table,
// one entry per BSON scalar plus one for ExtendedJSON (which supports
// neither aggregates beyond count nor any comparison operator, since it
// carries no fixed underlying scalar kind).
func ScalarTypeCapabilities() map[string]ScalarCapabilities {
	out := make(map[string]ScalarCapabilities, len(AllScalars)+1)
	for _, s := range AllScalars {
		out[s.BsonName()] = capabilitiesFor(s)
	}
	out["ExtendedJSON"] = ScalarCapabilities{
		AggregateFunctions:  map[AggregationFunction]Scalar{AggCount: ScalarInt},
		ComparisonOperators: map[ComparisonFunction]Scalar{},
	}
	return out
}

func capabilitiesFor(s Scalar) ScalarCapabilities {
	aggs := make(map[AggregationFunction]Scalar)
	for _, a := range AggregateFunctionsFor(s) {
		aggs[a.Function] = a.ResultType
	}
	cmps := make(map[ComparisonFunction]Scalar)
	for _, c := range ComparisonOperatorsFor(s) {
		cmps[c] = s
	}
	return ScalarCapabilities{AggregateFunctions: aggs, ComparisonOperators: cmps}
}
