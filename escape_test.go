package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraphQLEscape_DotAndDollar(t *testing.T) {
	assert.Equal(t, "a__dot__b", GraphQLEscape("a.b"))
	assert.Equal(t, "a__dollar__b", GraphQLEscape("a$b"))
}

func TestGraphQLEscape_RoundTrips(t *testing.T) {
	names := []string{"plain", "a.b.c", "$match", "weird__name", "____", "1stField", "spaced name"}
	for _, name := range names {
		escaped := GraphQLEscape(name)
		assert.Equal(t, name, GraphQLUnescape(escaped), "round trip for %q", name)
	}
}

func TestGraphQLEscape_ValidIdentifierCharset(t *testing.T) {
	escaped := GraphQLEscape("my.field$name 1")
	for i, r := range escaped {
		valid := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if i == 0 {
			valid = r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		}
		assert.True(t, valid, "invalid rune %q at position %d in %q", r, i, escaped)
	}
}

func TestVariableEscape_RoundTrips(t *testing.T) {
	names := []string{"minAge", "some.field", "with$dollar", "1leadingDigit", "·alreadyEscaped", ""}
	for _, name := range names {
		escaped := VariableEscape(name)
		assert.Equal(t, name, VariableUnescape(escaped), "round trip for %q", name)
	}
}

func TestVariableEscape_HasSafePrefix(t *testing.T) {
	escaped := VariableEscape("123abc")
	assert.Equal(t, "v_", escaped[:2])
}

func TestQueryVariableName_DistinctForDifferentTypes(t *testing.T) {
	intName := QueryVariableName("minAge", ScalarType(ScalarInt))
	stringName := QueryVariableName("minAge", ScalarType(ScalarString))
	assert.NotEqual(t, intName, stringName)
}

func TestQueryVariableName_ReproducibleForSamePair(t *testing.T) {
	a := QueryVariableName("minAge", ScalarType(ScalarInt))
	b := QueryVariableName("minAge", ScalarType(ScalarInt))
	assert.Equal(t, a, b)
}

func TestQueryVariableName_ObjectTaggedBySchemaName(t *testing.T) {
	a := QueryVariableName("filter", ObjectRef("Artist"))
	b := QueryVariableName("filter", ObjectRef("Album"))
	assert.NotEqual(t, a, b)
}
