package querycore

// Scalar is one of the fixed BSON primitive kinds. The set is closed; callers
// must not invent new values.
type Scalar string

const (
	ScalarDouble              Scalar = "double"
	ScalarDecimal             Scalar = "decimal"
	ScalarInt                 Scalar = "int"
	ScalarLong                Scalar = "long"
	ScalarString              Scalar = "string"
	ScalarDate                Scalar = "date"
	ScalarTimestamp           Scalar = "timestamp"
	ScalarBinData             Scalar = "binData"
	ScalarObjectId            Scalar = "objectId"
	ScalarBool                Scalar = "bool"
	ScalarNull                Scalar = "null"
	ScalarRegex               Scalar = "regex"
	ScalarJavascript          Scalar = "javascript"
	ScalarJavascriptWithScope Scalar = "javascriptWithScope"
	ScalarMinKey              Scalar = "minKey"
	ScalarMaxKey              Scalar = "maxKey"
	ScalarUndefined           Scalar = "undefined"
	ScalarDbPointer           Scalar = "dbPointer"
	ScalarSymbol              Scalar = "symbol"
)

// AllScalars enumerates every BSON scalar kind, in the canonical order used
// to build total maps (scalar capabilities, leaf inference).
var AllScalars = []Scalar{
	ScalarDouble, ScalarDecimal, ScalarInt, ScalarLong, ScalarString,
	ScalarDate, ScalarTimestamp, ScalarBinData, ScalarObjectId, ScalarBool,
	ScalarNull, ScalarRegex, ScalarJavascript, ScalarJavascriptWithScope,
	ScalarMinKey, ScalarMaxKey, ScalarUndefined, ScalarDbPointer, ScalarSymbol,
}

// BsonName returns the canonical BSON type name for the scalar, matching the
// names MongoDB's $type operator and $jsonSchema bsonType use.
func (s Scalar) BsonName() string {
	return string(s)
}

// ScalarFromBsonName parses a canonical BSON type name back into a Scalar.
func ScalarFromBsonName(name string) (Scalar, bool) {
	for _, s := range AllScalars {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// numericRank gives the widening order Int <= Long <= Double <= Decimal.
// Only numerics participate; everything else is incomparable.
var numericRank = map[Scalar]int{
	ScalarInt:     0,
	ScalarLong:    1,
	ScalarDouble:  2,
	ScalarDecimal: 3,
}

// IsNumeric reports whether s is one of Double, Decimal, Int, Long.
func (s Scalar) IsNumeric() bool {
	_, ok := numericRank[s]
	return ok
}

// IsOrderable reports whether values of this scalar kind admit a total order
// usable for $sort and range comparisons.
func (s Scalar) IsOrderable() bool {
	switch s {
	case ScalarDouble, ScalarDecimal, ScalarInt, ScalarLong,
		ScalarString, ScalarDate, ScalarTimestamp, ScalarObjectId, ScalarBool:
		return true
	default:
		return false
	}
}

// IsComparable reports whether values of this scalar kind support equality
// comparison operators (_eq, _neq, _in, _nin).
func (s Scalar) IsComparable() bool {
	switch s {
	case ScalarMinKey, ScalarMaxKey, ScalarUndefined:
		return false
	default:
		return true
	}
}

// IsSupertype reports whether a accepts every value that b accepts. Only
// numeric widening is non-trivial; every other pair of distinct scalars is
// incomparable (is_supertype(a, b) is false unless a == b).
func IsSupertype(a, b Scalar) bool {
	if a == b {
		return true
	}
	ra, aok := numericRank[a]
	rb, bok := numericRank[b]
	if aok && bok {
		return ra >= rb
	}
	return false
}

// ScalarSupertype returns the narrowest scalar that is a supertype of both a
// and b, if one exists on the lattice (used by the constraint solver's
// Scalar x Scalar simplification rule).
func ScalarSupertype(a, b Scalar) (Scalar, bool) {
	if a == b {
		return a, true
	}
	ra, aok := numericRank[a]
	rb, bok := numericRank[b]
	if !aok || !bok {
		return "", false
	}
	if ra >= rb {
		return a, true
	}
	return b, true
}
