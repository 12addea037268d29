package querycore

import "fmt"

// Scope identifies which enclosing document a field/variable reference
// resolves against: the root collection being queried, or a named scope
// pushed when an Exists predicate descends into a related/unrelated
// collection (§4.10).
type Scope struct {
	named bool
	name  string
}

// RootScope is the default scope: the collection a query plans against.
func RootScope() Scope { return Scope{} }

// NamedScope wraps a generated scope name, pushed by QueryPlanState.NewScope.
func NamedScope(name string) Scope { return Scope{named: true, name: name} }

// IsRoot reports whether s is the root scope.
func (s Scope) IsRoot() bool { return !s.named }

func (s Scope) String() string {
	if !s.named {
		return "root"
	}
	return s.name
}

// RelationshipKind distinguishes a to-one from a to-many join.
type RelationshipKind int

const (
	RelationshipObject RelationshipKind = iota
	RelationshipArray
)

// RelationshipDef is one entry of the collection_relationships map the
// caller passes into the planner: how two collections are joined, keyed by
// relationship name. It is the planner's input, distinct from the
// Relationship value a plan ends up carrying (which also holds the
// compiled sub-query).
type RelationshipDef struct {
	ColumnMapping    map[string][]string
	RelationshipType RelationshipKind
	TargetCollection string
	Arguments        map[string]RelationshipArgument
}

// ArgumentKind discriminates the Argument sum type.
type ArgumentKind int

const (
	ArgumentVariableKind ArgumentKind = iota
	ArgumentLiteralKind
	ArgumentPredicateKind
)

// Argument is a resolved query-plan argument (§3): a variable reference
// carrying its expected type, a literal value carrying its type, or an
// inlined predicate expression.
type Argument struct {
	Kind      ArgumentKind
	Name      string
	Value     interface{}
	Type      Type
	Predicate *Expression
}

func VariableArgument(name string, t Type) Argument {
	return Argument{Kind: ArgumentVariableKind, Name: name, Type: t}
}

func LiteralArgument(value interface{}, t Type) Argument {
	return Argument{Kind: ArgumentLiteralKind, Value: value, Type: t}
}

func PredicateArgument(predicate Expression) Argument {
	return Argument{Kind: ArgumentPredicateKind, Predicate: &predicate}
}

// RelationshipArgumentKind discriminates the RelationshipArgument sum type.
type RelationshipArgumentKind int

const (
	RelationshipArgumentVariableKind RelationshipArgumentKind = iota
	RelationshipArgumentLiteralKind
	RelationshipArgumentColumnKind
	RelationshipArgumentPredicateKind
)

// RelationshipArgument is an argument supplied to a relationship's target
// collection. It adds a Column variant over Argument: a value taken from a
// column of the source document, used when a relationship argument must
// vary per source row.
type RelationshipArgument struct {
	Kind      RelationshipArgumentKind
	Name      string
	Value     interface{}
	Type      Type
	Predicate *Expression
}

func VariableRelationshipArgument(name string, t Type) RelationshipArgument {
	return RelationshipArgument{Kind: RelationshipArgumentVariableKind, Name: name, Type: t}
}

func LiteralRelationshipArgument(value interface{}, t Type) RelationshipArgument {
	return RelationshipArgument{Kind: RelationshipArgumentLiteralKind, Value: value, Type: t}
}

func ColumnRelationshipArgument(name string, t Type) RelationshipArgument {
	return RelationshipArgument{Kind: RelationshipArgumentColumnKind, Name: name, Type: t}
}

func PredicateRelationshipArgument(predicate Expression) RelationshipArgument {
	return RelationshipArgument{Kind: RelationshipArgumentPredicateKind, Predicate: &predicate}
}

// ExpressionKind discriminates the Expression sum type (§4.11's planner-side
// predicate tree, compiled to a match document or aggregation expression by
// the expression compiler).
type ExpressionKind int

const (
	ExprAnd ExpressionKind = iota
	ExprOr
	ExprNot
	ExprUnaryComparison
	ExprBinaryComparison
	ExprExists
)

// UnaryComparisonOperator is a comparison that takes no right-hand value.
type UnaryComparisonOperator string

const UnaryIsNull UnaryComparisonOperator = "is_null"

// ComparisonTarget names the column (optionally nested) a comparison reads.
type ComparisonTarget struct {
	Name      string
	FieldPath []string
	FieldType Type
}

func ColumnTarget(name string, t Type) ComparisonTarget {
	return ComparisonTarget{Name: name, FieldType: t}
}

// ComparisonValueKind discriminates the ComparisonValue sum type.
type ComparisonValueKind int

const (
	ComparisonValueColumn ComparisonValueKind = iota
	ComparisonValueScalar
	ComparisonValueVariable
)

// ComparisonValue is the right-hand side of a binary comparison: another
// column (possibly through a relationship path and a different scope), a
// literal scalar, or a named variable.
type ComparisonValue struct {
	Kind      ComparisonValueKind
	Path      []string
	Name      string
	FieldPath []string
	Type      Type
	Value     interface{}
	Scope     Scope
}

func ColumnValue(name string, t Type) ComparisonValue {
	return ComparisonValue{Kind: ComparisonValueColumn, Name: name, Type: t, Scope: RootScope()}
}

func ScalarValue(value interface{}, t Type) ComparisonValue {
	return ComparisonValue{Kind: ComparisonValueScalar, Value: value, Type: t}
}

func VariableValue(name string, t Type) ComparisonValue {
	return ComparisonValue{Kind: ComparisonValueVariable, Name: name, Type: t}
}

// ExistsInKind discriminates ExistsIn.
type ExistsInKind int

const (
	ExistsRelated ExistsInKind = iota
	ExistsUnrelated
)

// ExistsIn names the source of rows an Exists predicate quantifies over:
// a relationship registered on the enclosing sub-query, or an unrelated
// collection registered on the root plan.
type ExistsIn struct {
	Kind                ExistsInKind
	Relationship        string
	UnrelatedCollection string
}

func RelatedExists(relationship string) ExistsIn {
	return ExistsIn{Kind: ExistsRelated, Relationship: relationship}
}

func UnrelatedExists(collection string) ExistsIn {
	return ExistsIn{Kind: ExistsUnrelated, UnrelatedCollection: collection}
}

// Expression is the planner's predicate tree (§4.10/§4.11).
type Expression struct {
	Kind        ExpressionKind
	Expressions []Expression
	Inner       *Expression
	Target      ComparisonTarget
	UnaryOp     UnaryComparisonOperator
	BinaryOp    ComparisonFunction
	Value       ComparisonValue
	In          ExistsIn
	Predicate   *Expression
}

func AndExpr(exprs ...Expression) Expression { return Expression{Kind: ExprAnd, Expressions: exprs} }
func OrExpr(exprs ...Expression) Expression  { return Expression{Kind: ExprOr, Expressions: exprs} }

func NotExpr(e Expression) Expression { return Expression{Kind: ExprNot, Inner: &e} }

func UnaryComparisonExpr(target ComparisonTarget, op UnaryComparisonOperator) Expression {
	return Expression{Kind: ExprUnaryComparison, Target: target, UnaryOp: op}
}

func BinaryComparisonExpr(target ComparisonTarget, op ComparisonFunction, value ComparisonValue) Expression {
	return Expression{Kind: ExprBinaryComparison, Target: target, BinaryOp: op, Value: value}
}

// ExistsExpr builds an Exists predicate; predicate is nil for a bare
// existence check ("at least one related row").
func ExistsExpr(in ExistsIn, predicate *Expression) Expression {
	return Expression{Kind: ExprExists, In: in, Predicate: predicate}
}

// FieldKind discriminates the Field sum type.
type FieldKind int

const (
	FieldColumn FieldKind = iota
	FieldRelationship
)

// NestedFieldKind discriminates NestedField.
type NestedFieldKind int

const (
	NestedObjectKind NestedFieldKind = iota
	NestedArrayKind
)

// NestedField narrows a requested object or array column to a subset of its
// data: an object's named fields, or an array's element shape.
type NestedField struct {
	Kind   NestedFieldKind
	Fields map[string]Field
	Array  *NestedField
}

// Field is one requested output column: a plain (possibly nested) column of
// the current document, or the result of following a relationship.
type Field struct {
	Kind         FieldKind
	ColumnName   string
	ColumnType   Type
	Nested       *NestedField
	Relationship string
	Aggregates   map[string]Aggregate
	Fields       map[string]Field
}

func ColumnField(name string, t Type) Field {
	return Field{Kind: FieldColumn, ColumnName: name, ColumnType: t}
}

func NestedColumnField(name string, t Type, nested NestedField) Field {
	return Field{Kind: FieldColumn, ColumnName: name, ColumnType: t, Nested: &nested}
}

func RelationshipField(relationship string, fields map[string]Field, aggregates map[string]Aggregate) Field {
	return Field{Kind: FieldRelationship, Relationship: relationship, Fields: fields, Aggregates: aggregates}
}

// AggregateKind discriminates the Aggregate sum type.
type AggregateKind int

const (
	AggregateColumnCount AggregateKind = iota
	AggregateSingleColumn
	AggregateStarCount
)

// Aggregate is one requested aggregate value: a per-column count (optionally
// distinct), a scalar-gated reducing function over one column, or a count
// of every row regardless of column.
type Aggregate struct {
	Kind       AggregateKind
	Column     string
	Distinct   bool
	Function   AggregationFunction
	ResultType Type
}

func ColumnCountAggregate(column string, distinct bool) Aggregate {
	return Aggregate{Kind: AggregateColumnCount, Column: column, Distinct: distinct}
}

func SingleColumnAggregate(column string, fn AggregationFunction, resultType Type) Aggregate {
	return Aggregate{Kind: AggregateSingleColumn, Column: column, Function: fn, ResultType: resultType}
}

func StarCountAggregate() Aggregate { return Aggregate{Kind: AggregateStarCount} }

// OrderDirection is ascending or descending sort order.
type OrderDirection int

const (
	OrderAsc OrderDirection = iota
	OrderDesc
)

// OrderByTargetKind discriminates OrderByTarget.
type OrderByTargetKind int

const (
	OrderByColumnKind OrderByTargetKind = iota
	OrderByAggregateKind
)

// OrderByTarget names what one sort key reads: a column reached via zero or
// more relationship hops, or an aggregate over a related collection.
type OrderByTarget struct {
	Kind      OrderByTargetKind
	Path      []string
	Name      string
	FieldPath []string
	Aggregate Aggregate
}

type OrderByElement struct {
	Direction OrderDirection
	Target    OrderByTarget
}

// OrderBy is a priority-ordered list of sort keys.
type OrderBy struct {
	Elements []OrderByElement
}

// Dimension is one GROUP BY key (a column, possibly reached through a
// relationship path).
type Dimension struct {
	Path      []string
	ColumnName string
	FieldPath []string
	FieldType Type
}

// Grouping holds a `$group`-shaped request: dimensions to group by, the
// aggregates computed per group, an optional group-level predicate (a
// HAVING clause), ordering over the resulting groups, and pagination over
// those groups.
type Grouping struct {
	Dimensions []Dimension
	Aggregates map[string]Aggregate
	Predicate  *Expression
	OrderBy    *OrderBy
	Limit      *int
	Offset     *int
}

// QueryState is one stage of a sub-query's planning lifecycle (§4.10).
type QueryState int

const (
	QueryFresh QueryState = iota
	QueryFieldsResolved
	QueryPredicateResolved
	QueryOrderByResolved
	QueryGroupingResolved
	QueryFinalized
)

func (s QueryState) String() string {
	switch s {
	case QueryFresh:
		return "Fresh"
	case QueryFieldsResolved:
		return "FieldsResolved"
	case QueryPredicateResolved:
		return "PredicateResolved"
	case QueryOrderByResolved:
		return "OrderByResolved"
	case QueryGroupingResolved:
		return "GroupingResolved"
	case QueryFinalized:
		return "Finalized"
	default:
		return "?"
	}
}

// QueryStateTransitionError reports an attempt to resolve a sub-query stage
// out of order, or to re-open one already closed.
type QueryStateTransitionError struct {
	Operation string
	State     QueryState
}

func (e *QueryStateTransitionError) Error() string {
	return fmt.Sprintf("querycore: cannot %s: sub-query is past that stage (currently %s)", e.Operation, e.State)
}

// Query is one sub-query node of a QueryPlan (§3/§4.10): what to select
// (fields/aggregates), an optional predicate/order-by/grouping/limit/offset,
// the relationships registered while planning it, and the scope current-
// document references resolve against. Its fields only become readable one
// stage at a time, via the Resolve* transitions below; Fresh → ... →
// Finalized, monotonically, mirrors the state machine in §4.10.
type Query struct {
	state QueryState

	Aggregates    map[string]Aggregate
	Fields        map[string]Field
	Predicate     *Expression
	OrderBy       *OrderBy
	Grouping      *Grouping
	Limit         *int
	Offset        *int
	Relationships map[string]Relationship
	Scope         Scope
}

// NewQuery starts a sub-query in the Fresh state, scoped to the root
// collection until Finalize says otherwise.
func NewQuery() *Query {
	return &Query{state: QueryFresh, Relationships: map[string]Relationship{}, Scope: RootScope()}
}

// State reports the sub-query's current lifecycle stage.
func (q *Query) State() QueryState { return q.state }

func (q *Query) ResolveFields(fields map[string]Field, aggregates map[string]Aggregate) error {
	if q.state != QueryFresh {
		return &QueryStateTransitionError{Operation: "resolve fields", State: q.state}
	}
	q.Fields = fields
	q.Aggregates = aggregates
	q.state = QueryFieldsResolved
	return nil
}

func (q *Query) ResolvePredicate(predicate *Expression) error {
	if q.state != QueryFieldsResolved {
		return &QueryStateTransitionError{Operation: "resolve predicate", State: q.state}
	}
	q.Predicate = predicate
	q.state = QueryPredicateResolved
	return nil
}

func (q *Query) ResolveOrderBy(orderBy *OrderBy) error {
	if q.state != QueryPredicateResolved {
		return &QueryStateTransitionError{Operation: "resolve order-by", State: q.state}
	}
	q.OrderBy = orderBy
	q.state = QueryOrderByResolved
	return nil
}

func (q *Query) ResolveGrouping(grouping *Grouping) error {
	if q.state != QueryOrderByResolved {
		return &QueryStateTransitionError{Operation: "resolve grouping", State: q.state}
	}
	q.Grouping = grouping
	q.state = QueryGroupingResolved
	return nil
}

// Finalize closes the sub-query, recording its limit/offset and the scope
// its field references resolved against.
func (q *Query) Finalize(limit, offset *int, scope Scope) error {
	if q.state != QueryGroupingResolved {
		return &QueryStateTransitionError{Operation: "finalize", State: q.state}
	}
	q.Limit = limit
	q.Offset = offset
	q.Scope = scope
	q.state = QueryFinalized
	return nil
}

// Relationship is a compiled join: the column mapping and target collection
// inherited from the caller's RelationshipDef, resolved relationship
// arguments, and the fully planned sub-query against the target collection.
type Relationship struct {
	ColumnMapping    map[string][]string
	RelationshipType RelationshipKind
	TargetCollection string
	Arguments        map[string]RelationshipArgument
	Query            *Query
}

// UnrelatedJoin is a reference to a collection with no declared relationship
// to the one being planned (typically an Exists over an unrelated
// collection). Scoped to the whole QueryPlan, not to any one sub-query.
type UnrelatedJoin struct {
	TargetCollection string
	Arguments        map[string]RelationshipArgument
	Query            *Query
}

// VariableSet is one binding of variable name to value, used to evaluate
// the same query plan once per row of a parameterized batch.
type VariableSet map[string]interface{}

// QueryPlan is the fully compiled query (§3/§4.10): the target collection,
// its root Query, resolved arguments, the variable sets (if this is a
// batched/parameterized query), the set of types each variable was observed
// at, and the unrelated-collection joins gathered while planning.
type QueryPlan struct {
	Collection     string
	Query          *Query
	Arguments      map[string]Argument
	Variables      []VariableSet
	VariableTypes  map[string][]Type
	UnrelatedJoins map[string]UnrelatedJoin
}

// QueryPlanInfo is the state accumulated across an entire plan compilation,
// extracted once at the top level (§4.9's ownership note: a QueryPlanState
// lives only for the duration of one compilation).
type QueryPlanInfo struct {
	UnrelatedJoins map[string]UnrelatedJoin
	VariableTypes  map[string][]Type
}

// QueryPlanState accumulates relationship and unrelated-join registrations,
// and variable-type observations, while one sub-query is planned (§4.10).
// Relationships are scoped per sub-query (a fresh QueryPlanState.relationships
// map per call to StateForSubquery); unrelated joins, variable types, and
// both uniquing counters are shared with the whole plan via pointers into
// the root state, matching the source's Rc<RefCell<_>> sharing.
type QueryPlanState struct {
	schema                   *Schema
	collectionRelationships  map[string]RelationshipDef
	scope                    Scope
	relationships            map[string]Relationship
	unrelatedJoins           *map[string]UnrelatedJoin
	relationshipNameCounter  *int
	scopeNameCounter         *int
	variableTypes            *map[string][]Type
}

// NewQueryPlanState starts planning against schema, with relationship names
// resolved through collectionRelationships.
func NewQueryPlanState(schema *Schema, collectionRelationships map[string]RelationshipDef) *QueryPlanState {
	joins := map[string]UnrelatedJoin{}
	varTypes := map[string][]Type{}
	relCounter := 0
	scopeCounter := 0
	return &QueryPlanState{
		schema:                  schema,
		collectionRelationships: collectionRelationships,
		scope:                   RootScope(),
		relationships:           map[string]Relationship{},
		unrelatedJoins:          &joins,
		relationshipNameCounter: &relCounter,
		scopeNameCounter:        &scopeCounter,
		variableTypes:           &varTypes,
	}
}

// StateForSubquery returns a scratch-pad for planning a nested sub-query:
// its own relationship registry, sharing everything else with s.
func (s *QueryPlanState) StateForSubquery() *QueryPlanState {
	return &QueryPlanState{
		schema:                  s.schema,
		collectionRelationships: s.collectionRelationships,
		scope:                   s.scope,
		relationships:           map[string]Relationship{},
		unrelatedJoins:          s.unrelatedJoins,
		relationshipNameCounter: s.relationshipNameCounter,
		scopeNameCounter:        s.scopeNameCounter,
		variableTypes:           s.variableTypes,
	}
}

// NewScope pushes a fresh named scope, used when entering the predicate of
// an Exists so inner field references can still reach the outer document.
func (s *QueryPlanState) NewScope() {
	s.scope = NamedScope(s.uniqueScopeName())
}

func (s *QueryPlanState) uniqueScopeName() string {
	n := *s.scopeNameCounter
	*s.scopeNameCounter = n + 1
	return fmt.Sprintf("scope_%d", n)
}

func (s *QueryPlanState) uniqueRelationshipName(base string) string {
	n := *s.relationshipNameCounter
	*s.relationshipNameCounter = n + 1
	return fmt.Sprintf("%s_%d", base, n)
}

// RegisterRelationship records a relationship reference, returning the
// alias other parts of the sub-query use to refer to the joined collection.
// Two registrations under the same relationship name are unified if their
// sub-queries are structurally compatible (§4.10 step 5); otherwise the
// second is registered under a uniqued alias and both survive independently.
func (s *QueryPlanState) RegisterRelationship(name string, arguments map[string]RelationshipArgument, query *Query) (string, error) {
	def, ok := s.collectionRelationships[name]
	if !ok {
		return "", &UnspecifiedRelationError{Name: name}
	}
	relationship := Relationship{
		ColumnMapping:    def.ColumnMapping,
		RelationshipType: def.RelationshipType,
		TargetCollection: def.TargetCollection,
		Arguments:        arguments,
		Query:            query,
	}

	key := name
	if existing, ok := s.relationships[name]; ok {
		if unified, ok := unifyRelationships(existing, relationship); ok {
			relationship = unified
		} else {
			key = s.uniqueRelationshipName(name)
		}
	}
	s.relationships[key] = relationship
	return key, nil
}

// RegisterUnrelatedJoin records a reference to target_collection with no
// declared relationship, returning a generated alias.
func (s *QueryPlanState) RegisterUnrelatedJoin(targetCollection string, arguments map[string]RelationshipArgument, query *Query) string {
	key := s.uniqueRelationshipName("__join_" + targetCollection)
	(*s.unrelatedJoins)[key] = UnrelatedJoin{TargetCollection: targetCollection, Arguments: arguments, Query: query}
	return key
}

// RegisterVariableUse records that variableName was observed with
// expectedType somewhere in the plan, so the compiled QueryPlan can report
// the set of types each variable must satisfy for stable encoding.
func (s *QueryPlanState) RegisterVariableUse(variableName string, expectedType Type) {
	types := *s.variableTypes
	for _, t := range types[variableName] {
		if t.Equal(expectedType) {
			return
		}
	}
	types[variableName] = append(types[variableName], expectedType)
}

// IntoRelationships hands back this sub-query's relationship registry.
func (s *QueryPlanState) IntoRelationships() map[string]Relationship { return s.relationships }

// IntoScope hands back the scope this sub-query's field references resolved
// against.
func (s *QueryPlanState) IntoScope() Scope { return s.scope }

// IntoQueryPlanInfo extracts the plan-wide state accumulated through every
// StateForSubquery descendant of the root state; call this once, on the
// root, after planning finishes.
func (s *QueryPlanState) IntoQueryPlanInfo() QueryPlanInfo {
	return QueryPlanInfo{UnrelatedJoins: *s.unrelatedJoins, VariableTypes: *s.variableTypes}
}

// RelationshipPathElement is one hop of a relationship path (e.g. one
// `Albums.Tracks` segment): the relationship to follow, arguments to supply
// to its target collection, and an optional predicate restricting it.
type RelationshipPathElement struct {
	Relationship string
	Arguments    map[string]RelationshipArgument
	Predicate    *Expression
}

// PlanForRelationshipPath compiles a relationship path into the list of
// relationship aliases to traverse (root to leaf) plus the object type of
// the final collection in the path (§4.10):
//
//  1. Reverse the path.
//  2. For each element, look up the named relationship; fail with
//     UnspecifiedRelation if missing.
//  3. Recurse first to produce the inner sub-query, then wrap outward.
//  4. The innermost sub-query gets the requested output fields; outer
//     sub-queries carry only the nested relationship registrations (no
//     fields of their own).
//  5. Same-named relationship registrations unify when structurally
//     compatible (RegisterRelationship), else the second gets a suffixed
//     alias.
func PlanForRelationshipPath(planState *QueryPlanState, relationshipPath []RelationshipPathElement, requestedColumns []string, fallbackObjectType *ObjectType) ([]string, *ObjectType, error) {
	var endObjectType *ObjectType
	if len(relationshipPath) > 0 {
		last := relationshipPath[len(relationshipPath)-1]
		ot, err := planState.relationshipTargetType(last.Relationship)
		if err != nil {
			return nil, nil, err
		}
		endObjectType = ot
	} else {
		endObjectType = fallbackObjectType
	}

	reversed := make([]RelationshipPathElement, len(relationshipPath))
	for i, e := range relationshipPath {
		reversed[len(relationshipPath)-1-i] = e
	}

	aliases, err := planForRelationshipPathHelper(planState, reversed, requestedColumns)
	if err != nil {
		return nil, nil, err
	}
	return aliases, endObjectType, nil
}

func (s *QueryPlanState) relationshipTargetType(relationshipName string) (*ObjectType, error) {
	def, ok := s.collectionRelationships[relationshipName]
	if !ok {
		return nil, &UnspecifiedRelationError{Name: relationshipName}
	}
	docTypeName, err := s.schema.CollectionDocumentType(def.TargetCollection)
	if err != nil {
		return nil, err
	}
	ot, ok := s.schema.ObjectTypes[docTypeName]
	if !ok {
		return nil, &UnknownObjectTypeError{Name: docTypeName}
	}
	return &ot, nil
}

func planForRelationshipPathHelper(planState *QueryPlanState, reversedPath []RelationshipPathElement, requestedColumns []string) ([]string, error) {
	if len(reversedPath) == 0 {
		return nil, nil
	}

	head := reversedPath[len(reversedPath)-1]
	tail := reversedPath[:len(reversedPath)-1]
	isLast := len(tail) == 0

	relatedCollectionType, err := planState.relationshipTargetType(head.Relationship)
	if err != nil {
		return nil, err
	}

	nestedState := planState.StateForSubquery()

	var restPath []string
	var fields map[string]Field
	if isLast {
		fields = make(map[string]Field, len(requestedColumns))
		for _, col := range requestedColumns {
			ft, ok := relatedCollectionType.FieldType(col)
			if !ok {
				return nil, &UnknownObjectTypeFieldError{ObjectType: relatedCollectionType.Name, Field: col}
			}
			fields[col] = ColumnField(col, ft)
		}
	} else {
		restPath, err = planForRelationshipPathHelper(nestedState, tail, requestedColumns)
		if err != nil {
			return nil, err
		}
	}

	relationshipQuery := NewQuery()
	if err := relationshipQuery.ResolveFields(fields, nil); err != nil {
		return nil, err
	}
	if err := relationshipQuery.ResolvePredicate(head.Predicate); err != nil {
		return nil, err
	}
	if err := relationshipQuery.ResolveOrderBy(nil); err != nil {
		return nil, err
	}
	if err := relationshipQuery.ResolveGrouping(nil); err != nil {
		return nil, err
	}
	relationshipQuery.Relationships = nestedState.IntoRelationships()
	if err := relationshipQuery.Finalize(nil, nil, nestedState.IntoScope()); err != nil {
		return nil, err
	}

	relationKey, err := planState.RegisterRelationship(head.Relationship, head.Arguments, relationshipQuery)
	if err != nil {
		return nil, err
	}

	return append([]string{relationKey}, restPath...), nil
}

// unifyRelationships reports whether a and b can be registered under the
// same alias: same column mapping, kind, target collection, arguments, and
// structurally equal compiled sub-queries. On success it returns the
// (arbitrarily chosen) survivor; on failure the caller must keep both under
// separate aliases.
func unifyRelationships(a, b Relationship) (Relationship, bool) {
	if a.RelationshipType != b.RelationshipType || a.TargetCollection != b.TargetCollection {
		return Relationship{}, false
	}
	if !stringSliceMapEqual(a.ColumnMapping, b.ColumnMapping) {
		return Relationship{}, false
	}
	if !relationshipArgumentsEqual(a.Arguments, b.Arguments) {
		return Relationship{}, false
	}
	if !queriesEqual(a.Query, b.Query) {
		return Relationship{}, false
	}
	return a, true
}

func stringSliceMapEqual(a, b map[string][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}

func relationshipArgumentsEqual(a, b map[string]RelationshipArgument) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || av.Kind != bv.Kind || av.Name != bv.Name || !av.Type.Equal(bv.Type) {
			return false
		}
		if (av.Predicate == nil) != (bv.Predicate == nil) {
			return false
		}
		if av.Predicate != nil && !expressionEqual(*av.Predicate, *bv.Predicate) {
			return false
		}
	}
	return true
}

func queriesEqual(a, b *Query) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !fieldsEqual(a.Fields, b.Fields) || !aggregatesEqual(a.Aggregates, b.Aggregates) {
		return false
	}
	if (a.Predicate == nil) != (b.Predicate == nil) {
		return false
	}
	if a.Predicate != nil && !expressionEqual(*a.Predicate, *b.Predicate) {
		return false
	}
	if len(a.Relationships) != len(b.Relationships) {
		return false
	}
	for k, av := range a.Relationships {
		bv, ok := b.Relationships[k]
		if !ok {
			return false
		}
		if _, ok := unifyRelationships(av, bv); !ok {
			return false
		}
	}
	return true
}

func fieldsEqual(a, b map[string]Field) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !fieldEqual(av, bv) {
			return false
		}
	}
	return true
}

func fieldEqual(a, b Field) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case FieldColumn:
		return a.ColumnName == b.ColumnName && a.ColumnType.Equal(b.ColumnType)
	case FieldRelationship:
		return a.Relationship == b.Relationship && fieldsEqual(a.Fields, b.Fields) && aggregatesEqual(a.Aggregates, b.Aggregates)
	default:
		return false
	}
}

func aggregatesEqual(a, b map[string]Aggregate) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || av.Kind != bv.Kind || av.Column != bv.Column || av.Distinct != bv.Distinct || av.Function != bv.Function || !av.ResultType.Equal(bv.ResultType) {
			return false
		}
	}
	return true
}

func expressionEqual(a, b Expression) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ExprAnd, ExprOr:
		if len(a.Expressions) != len(b.Expressions) {
			return false
		}
		for i := range a.Expressions {
			if !expressionEqual(a.Expressions[i], b.Expressions[i]) {
				return false
			}
		}
		return true
	case ExprNot:
		return expressionEqual(*a.Inner, *b.Inner)
	case ExprUnaryComparison:
		return comparisonTargetEqual(a.Target, b.Target) && a.UnaryOp == b.UnaryOp
	case ExprBinaryComparison:
		return comparisonTargetEqual(a.Target, b.Target) && a.BinaryOp == b.BinaryOp && comparisonValueEqual(a.Value, b.Value)
	case ExprExists:
		if a.In != b.In {
			return false
		}
		if (a.Predicate == nil) != (b.Predicate == nil) {
			return false
		}
		return a.Predicate == nil || expressionEqual(*a.Predicate, *b.Predicate)
	default:
		return false
	}
}

func comparisonValueEqual(a, b ComparisonValue) bool {
	return a.Kind == b.Kind && a.Name == b.Name && a.Type.Equal(b.Type) && a.Scope == b.Scope
}

func comparisonTargetEqual(a, b ComparisonTarget) bool {
	if a.Name != b.Name || len(a.FieldPath) != len(b.FieldPath) {
		return false
	}
	for i := range a.FieldPath {
		if a.FieldPath[i] != b.FieldPath[i] {
			return false
		}
	}
	return a.FieldType.Equal(b.FieldType)
}
