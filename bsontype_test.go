package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScalar_BsonNameRoundTrips(t *testing.T) {
	for _, s := range AllScalars {
		name := s.BsonName()
		parsed, ok := ScalarFromBsonName(name)
		assert.True(t, ok, "scalar %q should round-trip", s)
		assert.Equal(t, s, parsed)
	}
}

func TestScalarFromBsonName_UnknownReturnsFalse(t *testing.T) {
	_, ok := ScalarFromBsonName("not-a-real-type")
	assert.False(t, ok)
}

func TestScalar_IsNumeric(t *testing.T) {
	assert.True(t, ScalarInt.IsNumeric())
	assert.True(t, ScalarLong.IsNumeric())
	assert.True(t, ScalarDouble.IsNumeric())
	assert.True(t, ScalarDecimal.IsNumeric())
	assert.False(t, ScalarString.IsNumeric())
	assert.False(t, ScalarBool.IsNumeric())
}

func TestScalar_IsOrderable(t *testing.T) {
	assert.True(t, ScalarString.IsOrderable())
	assert.True(t, ScalarDate.IsOrderable())
	assert.False(t, ScalarRegex.IsOrderable())
	assert.False(t, ScalarJavascript.IsOrderable())
}

func TestScalar_IsComparable(t *testing.T) {
	assert.False(t, ScalarMinKey.IsComparable())
	assert.False(t, ScalarMaxKey.IsComparable())
	assert.False(t, ScalarUndefined.IsComparable())
	assert.True(t, ScalarString.IsComparable())
}

func TestIsSupertype_NumericWidening(t *testing.T) {
	assert.True(t, IsSupertype(ScalarLong, ScalarInt))
	assert.True(t, IsSupertype(ScalarDouble, ScalarLong))
	assert.True(t, IsSupertype(ScalarDecimal, ScalarDouble))
	assert.False(t, IsSupertype(ScalarInt, ScalarLong))
	assert.True(t, IsSupertype(ScalarString, ScalarString))
}

func TestIsSupertype_IncomparablePair(t *testing.T) {
	assert.False(t, IsSupertype(ScalarString, ScalarBool))
	assert.False(t, IsSupertype(ScalarBool, ScalarString))
}

func TestScalarSupertype_WidensToNarrowestCommonType(t *testing.T) {
	s, ok := ScalarSupertype(ScalarInt, ScalarLong)
	require := assert.New(t)
	require.True(ok)
	require.Equal(ScalarLong, s)

	s2, ok2 := ScalarSupertype(ScalarDouble, ScalarInt)
	require.True(ok2)
	require.Equal(ScalarDouble, s2)
}

func TestScalarSupertype_NoCommonTypeForNonNumerics(t *testing.T) {
	_, ok := ScalarSupertype(ScalarString, ScalarBool)
	assert.False(t, ok)
}
