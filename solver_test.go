package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolve_SingletonConstraintSolvesDirectly(t *testing.T) {
	v := TypeVariable{ID: 1}
	variables := map[TypeVariable]constraintSet{
		v: newConstraintSet(ScalarConstraint(ScalarInt)),
	}
	result, err := Solve(nil, variables, []TypeVariable{v})
	require.NoError(t, err)
	assert.True(t, result.Solutions[v].Equal(ScalarType(ScalarInt)))
}

func TestSolve_ScalarWideningAcrossMultipleConstraints(t *testing.T) {
	v := TypeVariable{ID: 1}
	variables := map[TypeVariable]constraintSet{
		v: newConstraintSet(ScalarConstraint(ScalarInt), ScalarConstraint(ScalarDouble)),
	}
	result, err := Solve(nil, variables, []TypeVariable{v})
	require.NoError(t, err)
	assert.True(t, result.Solutions[v].Equal(ScalarType(ScalarDouble)))
}

func TestSolve_ConflictingScalarsReturnsScalarTypeMismatch(t *testing.T) {
	v := TypeVariable{ID: 1}
	variables := map[TypeVariable]constraintSet{
		v: newConstraintSet(ScalarConstraint(ScalarString), ScalarConstraint(ScalarBool)),
	}
	_, err := Solve(nil, variables, []TypeVariable{v})
	require.Error(t, err)
	var mismatch *ScalarTypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestSolve_VariableForwardingUnifiesTwoVariables(t *testing.T) {
	v1 := TypeVariable{ID: 1}
	v2 := TypeVariable{ID: 2}
	variables := map[TypeVariable]constraintSet{
		v1: newConstraintSet(VariableConstraint(v2), ScalarConstraint(ScalarInt)),
		v2: newConstraintSet(ScalarConstraint(ScalarLong)),
	}
	result, err := Solve(nil, variables, []TypeVariable{v1, v2})
	require.NoError(t, err)
	assert.True(t, result.Solutions[v2].Equal(ScalarType(ScalarLong)))
	assert.True(t, result.Solutions[v1].Equal(ScalarType(ScalarLong)))
}

func TestSolve_NullableUnionResolvesToNullableScalar(t *testing.T) {
	v := TypeVariable{ID: 1}
	variables := map[TypeVariable]constraintSet{
		v: newConstraintSet(MakeNullableConstraint(ScalarConstraint(ScalarString))),
	}
	result, err := Solve(nil, variables, []TypeVariable{v})
	require.NoError(t, err)
	assert.True(t, result.Solutions[v].Equal(NullableOf(ScalarType(ScalarString))))
}

func TestSolve_ElementOfArrayOfResolvesToElementType(t *testing.T) {
	v := TypeVariable{ID: 1}
	variables := map[TypeVariable]constraintSet{
		v: newConstraintSet(
			ElementOfConstraint(ArrayOfConstraint(ScalarConstraint(ScalarInt))),
			ScalarConstraint(ScalarLong),
		),
	}
	result, err := Solve(nil, variables, []TypeVariable{v})
	require.NoError(t, err)
	assert.True(t, result.Solutions[v].Equal(ScalarType(ScalarLong)))
}

func TestSolve_FieldOfObjectResolvesToFieldType(t *testing.T) {
	objectTypes := map[string]ObjectTypeConstraint{
		"Artist": {Fields: map[string]TypeConstraint{
			"Founded": ScalarConstraint(ScalarInt),
		}},
	}
	v := TypeVariable{ID: 1}
	variables := map[TypeVariable]constraintSet{
		v: newConstraintSet(
			FieldOfConstraint(ObjectConstraint("Artist"), []string{"Founded"}),
			ScalarConstraint(ScalarLong),
		),
	}
	result, err := Solve(objectTypes, variables, []TypeVariable{v})
	require.NoError(t, err)
	assert.True(t, result.Solutions[v].Equal(ScalarType(ScalarLong)))
}

func TestSolve_ObjectTypeConflictReturnsError(t *testing.T) {
	v := TypeVariable{ID: 1}
	variables := map[TypeVariable]constraintSet{
		v: newConstraintSet(ObjectConstraint("Artist"), ObjectConstraint("Album")),
	}
	_, err := Solve(nil, variables, []TypeVariable{v})
	require.Error(t, err)
	var conflict *ObjectTypeConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestSolve_ExtendedJSONAbsorbsOtherConstraints(t *testing.T) {
	v := TypeVariable{ID: 1}
	variables := map[TypeVariable]constraintSet{
		v: newConstraintSet(ExtendedJSONConstraint(), ScalarConstraint(ScalarInt)),
	}
	result, err := Solve(nil, variables, []TypeVariable{v})
	require.NoError(t, err)
	assert.True(t, result.Solutions[v].Equal(ExtendedJSON()))
}

func TestSolve_UnsolvedRequiredVariableReportsUnsolvedList(t *testing.T) {
	v1 := TypeVariable{ID: 1}
	v2 := TypeVariable{ID: 2}
	variables := map[TypeVariable]constraintSet{
		v1: newConstraintSet(ScalarConstraint(ScalarInt)),
		v2: newConstraintSet(VariableConstraint(TypeVariable{ID: 99})),
	}
	_, err := Solve(nil, variables, []TypeVariable{v1, v2})
	require.Error(t, err)
	var failed *FailedToUnifyError
	require.ErrorAs(t, err, &failed)
	assert.Contains(t, failed.UnsolvedVariables, v2)
}

func TestSolve_ObjectTypesSubstitutedFromSolvedVariables(t *testing.T) {
	v := TypeVariable{ID: 1}
	objectTypes := map[string]ObjectTypeConstraint{
		"Artist": {Fields: map[string]TypeConstraint{
			"Name": VariableConstraint(v),
		}},
	}
	variables := map[TypeVariable]constraintSet{
		v: newConstraintSet(ScalarConstraint(ScalarString)),
	}
	result, err := Solve(objectTypes, variables, []TypeVariable{v})
	require.NoError(t, err)
	artist, ok := result.ObjectTypes["Artist"]
	require.True(t, ok)
	nameType, ok := artist.FieldType("Name")
	require.True(t, ok)
	assert.True(t, nameType.Equal(ScalarType(ScalarString)))
}
