package querycore

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidField is returned when a field path cannot be resolved against
	// an object type.
	ErrInvalidField = errors.New("querycore: invalid field path")

	// ErrEmptyPipeline is returned when an empty pipeline is passed.
	ErrEmptyPipeline = errors.New("querycore: empty pipeline")

	// ErrIncompletePipeline is returned when a native-query pipeline ends
	// without a stage that fixes the result document type.
	ErrIncompletePipeline = errors.New("querycore: incomplete pipeline")
)

// ScalarTypeMismatchError reports two incompatible scalars unified at a path
// where widening to ExtendedJSON is not acceptable.
type ScalarTypeMismatchError struct {
	Context string
	A, B    Scalar
}

func (e *ScalarTypeMismatchError) Error() string {
	return fmt.Sprintf("querycore: scalar type mismatch at %s: %s vs %s", e.Context, e.A, e.B)
}

// FailedToUnifyError reports that the constraint solver's fixed-point loop
// made no progress while variables remained unsolved.
type FailedToUnifyError struct {
	UnsolvedVariables []TypeVariable
}

func (e *FailedToUnifyError) Error() string {
	ids := make([]string, len(e.UnsolvedVariables))
	for i, v := range e.UnsolvedVariables {
		ids[i] = fmt.Sprintf("v%d", v.ID)
	}
	return fmt.Sprintf("querycore: failed to unify: unsolved variables [%s]", strings.Join(ids, ", "))
}

// UnableToInferTypesError reports parameters whose type could not be solved,
// with a suggested annotation syntax.
type UnableToInferTypesError struct {
	ProblemParameters       []string
	CouldNotInferReturnType bool
}

func (e *UnableToInferTypesError) Error() string {
	msg := fmt.Sprintf("querycore: unable to infer types for parameters [%s]; annotate with {{name|Type!}}",
		strings.Join(e.ProblemParameters, ", "))
	if e.CouldNotInferReturnType {
		msg += "; could not infer return type"
	}
	return msg
}

// UnknownAggregationStageError names the 1-based stage index and the raw
// stage document.
type UnknownAggregationStageError struct {
	Index int
	Stage string
}

func (e *UnknownAggregationStageError) Error() string {
	return fmt.Sprintf("querycore: unknown aggregation stage at index %d: %s", e.Index, e.Stage)
}

// UnknownAggregationOperatorError names an unrecognized aggregation operator.
type UnknownAggregationOperatorError struct{ Name string }

func (e *UnknownAggregationOperatorError) Error() string {
	return fmt.Sprintf("querycore: unknown aggregation operator %q", e.Name)
}

// UnknownMatchDocumentOperatorError names an unrecognized $match operator.
type UnknownMatchDocumentOperatorError struct{ Name string }

func (e *UnknownMatchDocumentOperatorError) Error() string {
	return fmt.Sprintf("querycore: unknown match document operator %q", e.Name)
}

// ExpectedArrayError reports a type mismatch where an array was required.
type ExpectedArrayError struct{ Actual string }

func (e *ExpectedArrayError) Error() string {
	return fmt.Sprintf("querycore: expected array, got %s", e.Actual)
}

// ExpectedObjectError reports a type mismatch where an object was required.
type ExpectedObjectError struct{ Actual string }

func (e *ExpectedObjectError) Error() string {
	return fmt.Sprintf("querycore: expected object, got %s", e.Actual)
}

// ExpectedStringPathError reports a non-string value where a field path
// string was required.
type ExpectedStringPathError struct{ Value string }

func (e *ExpectedStringPathError) Error() string {
	return fmt.Sprintf("querycore: expected string path, got %s", e.Value)
}

// ObjectMissingFieldError names an object type and a field absent from it.
type ObjectMissingFieldError struct {
	ObjectType string
	Field      string
}

func (e *ObjectMissingFieldError) Error() string {
	return fmt.Sprintf("querycore: object type %q has no field %q", e.ObjectType, e.Field)
}

// MultipleExpressionOperatorsError reports a stage document that names more
// than one top-level operator key where exactly one is allowed.
type MultipleExpressionOperatorsError struct{ Document string }

func (e *MultipleExpressionOperatorsError) Error() string {
	return fmt.Sprintf("querycore: multiple expression operators in %s", e.Document)
}

// UnableToParseReferenceShorthandError reports a string that matched none of
// the reference-shorthand grammar productions.
type UnableToParseReferenceShorthandError struct{ Input string }

func (e *UnableToParseReferenceShorthandError) Error() string {
	return fmt.Sprintf("querycore: unable to parse reference shorthand %q", e.Input)
}

// UnknownCollectionError names a collection absent from the schema.
type UnknownCollectionError struct{ Name string }

func (e *UnknownCollectionError) Error() string {
	return fmt.Sprintf("querycore: unknown collection %q", e.Name)
}

// UnknownObjectTypeError names an object type absent from the schema.
type UnknownObjectTypeError struct{ Name string }

func (e *UnknownObjectTypeError) Error() string {
	return fmt.Sprintf("querycore: unknown object type %q", e.Name)
}

// UnknownObjectTypeFieldError names an object type and a field it lacks.
type UnknownObjectTypeFieldError struct {
	ObjectType string
	Field      string
}

func (e *UnknownObjectTypeFieldError) Error() string {
	return fmt.Sprintf("querycore: object type %q has no field %q", e.ObjectType, e.Field)
}

// UnknownRelationshipError names a relationship reference and the path it
// appeared in.
type UnknownRelationshipError struct {
	Name string
	Path []string
}

func (e *UnknownRelationshipError) Error() string {
	return fmt.Sprintf("querycore: unknown relationship %q in path %s", e.Name, strings.Join(e.Path, "."))
}

// UnspecifiedRelationError names a relationship absent from the
// collection_relationships map passed to the planner.
type UnspecifiedRelationError struct{ Name string }

func (e *UnspecifiedRelationError) Error() string {
	return fmt.Sprintf("querycore: unspecified relation %q", e.Name)
}

// UnknownAggregateFunctionError names a scalar and a requested aggregate
// function it does not support.
type UnknownAggregateFunctionError struct {
	Scalar   Scalar
	Function string
}

func (e *UnknownAggregateFunctionError) Error() string {
	return fmt.Sprintf("querycore: unknown aggregate function %q for scalar %s", e.Function, e.Scalar)
}

// ObjectTypeConflictError reports two distinctly-named object-type
// constraints forced to unify at the same position.
type ObjectTypeConflictError struct{ A, B string }

func (e *ObjectTypeConflictError) Error() string {
	return fmt.Sprintf("querycore: conflicting object types %q and %q", e.A, e.B)
}

// UnknownComparisonOperatorError names an unsupported comparison operator.
type UnknownComparisonOperatorError struct{ Name string }

func (e *UnknownComparisonOperatorError) Error() string {
	return fmt.Sprintf("querycore: unknown comparison operator %q", e.Name)
}

// NotImplementedError names a feature this core deliberately does not
// implement (including constraint-solver simplify combinations with no
// general rule per spec §9's open question).
type NotImplementedError struct{ Feature string }

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("querycore: not implemented: %s", e.Feature)
}

// MissingArgumentsError names every declared parameter absent from an
// argument map, exactly once.
type MissingArgumentsError struct{ Names []string }

func (e *MissingArgumentsError) Error() string {
	return fmt.Sprintf("querycore: missing arguments: %s", strings.Join(e.Names, ", "))
}

// ExcessArgumentsError names every argument supplied but not declared.
type ExcessArgumentsError struct{ Names []string }

func (e *ExcessArgumentsError) Error() string {
	return fmt.Sprintf("querycore: excess arguments: %s", strings.Join(e.Names, ", "))
}

// JSONToBSONError reports a single argument's conversion failure.
type JSONToBSONError struct {
	Name   string
	Reason string
}

func (e *JSONToBSONError) Error() string {
	return fmt.Sprintf("querycore: argument %q: %s", e.Name, e.Reason)
}

// InvalidArgumentsError carries one JSONToBSONError per malformed argument.
type InvalidArgumentsError struct {
	Errors map[string]*JSONToBSONError
}

func (e *InvalidArgumentsError) Error() string {
	names := make([]string, 0, len(e.Errors))
	for name := range e.Errors {
		names = append(names, name)
	}
	return fmt.Sprintf("querycore: invalid arguments: %s", strings.Join(names, ", "))
}

// NonStringKeyError reports that interpolating a placeholder into a
// document key produced a non-string value, which cannot serve as a key.
type NonStringKeyError struct{ Value interface{} }

func (e *NonStringKeyError) Error() string {
	return fmt.Sprintf("querycore: interpolated document key is not a string: %v", e.Value)
}

// NonStringInStringContextError reports that a placeholder embedded inside
// a larger string (not the string's entire content) resolved to a
// non-string argument value, which cannot be concatenated into text.
type NonStringInStringContextError struct{ Parameter string }

func (e *NonStringInStringContextError) Error() string {
	return fmt.Sprintf("querycore: argument %q used inside a string must be a string value", e.Parameter)
}

// MissingInterpolationArgumentError names a `{{placeholder}}` referencing an
// argument absent from the resolved argument map.
type MissingInterpolationArgumentError struct{ Name string }

func (e *MissingInterpolationArgumentError) Error() string {
	return fmt.Sprintf("querycore: missing argument for placeholder %q", e.Name)
}
