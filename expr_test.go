package querycore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// --- Accumulators ---

func TestAccSum(t *testing.T) {
	assert.Equal(t, "$sum", AccSum(1)[0].Key)
}

func TestAccAvg(t *testing.T) {
	assert.Equal(t, "$avg", AccAvg("$score")[0].Key)
}

func TestAccMin(t *testing.T) {
	assert.Equal(t, "$min", AccMin("$score")[0].Key)
}

func TestAccMax(t *testing.T) {
	assert.Equal(t, "$max", AccMax("$score")[0].Key)
}

func TestAccFirst(t *testing.T) {
	assert.Equal(t, "$first", AccFirst("$name")[0].Key)
}

func TestAccPush(t *testing.T) {
	assert.Equal(t, "$push", AccPush("$item")[0].Key)
}

func TestAccCount(t *testing.T) {
	assert.Equal(t, "$count", AccCount()[0].Key)
}

func TestAccTop(t *testing.T) {
	assert.Equal(t, "$top", AccTop(bson.D{{Key: "score", Value: -1}}, "$name")[0].Key)
}

// --- Set Operators ---

func TestExprSetEquals(t *testing.T) {
	assert.Equal(t, "$setEquals", ExprSetEquals("$a", "$b")[0].Key)
}

func TestExprSetUnion(t *testing.T) {
	assert.Equal(t, "$setUnion", ExprSetUnion("$a", "$b")[0].Key)
}

func TestExprAnyElementTrue(t *testing.T) {
	assert.Equal(t, "$anyElementTrue", ExprAnyElementTrue("$flags")[0].Key)
}

// --- Object Operators ---

func TestExprMergeObjects(t *testing.T) {
	assert.Equal(t, "$mergeObjects", ExprMergeObjects("$defaults", "$overrides")[0].Key)
}

func TestExprGetField(t *testing.T) {
	assert.Equal(t, "$getField", ExprGetField("name", "$$ROOT")[0].Key)
}

// --- Miscellaneous ---

func TestExprLiteral(t *testing.T) {
	assert.Equal(t, "$literal", ExprLiteral("$notAField")[0].Key)
}

func TestExprRand(t *testing.T) {
	assert.Equal(t, "$rand", ExprRand()[0].Key)
}

func TestExprLet(t *testing.T) {
	assert.Equal(t, "$let", ExprLet(bson.D{{Key: "total", Value: AccSum("$price")}}, "$$total")[0].Key)
}
