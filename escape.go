package querycore

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// graphqlEscapeSequences maps each specially-handled invalid rune to its
// GraphQL-safe replacement sequence. Changes to this table are wire-format
// breaking: every persisted GraphQL-facing name depends on it.
var graphqlEscapeSequences = []struct {
	Char rune
	Seq  string
}{
	{'.', "__dot__"},
	{'$', "__dollar__"},
}

// GraphQLEscape makes name safe to use as a GraphQL identifier
// ([_A-Za-z][_0-9A-Za-z]*), reversible via GraphQLUnescape. `.` and `$`
// become `__dot__`/`__dollar__`; any other invalid character becomes
// `__u<HEX>__`; runs of `__` become `____` so the escape prefix stays
// unambiguous.
func GraphQLEscape(name string) string {
	var b strings.Builder
	runes := []rune(name)
	i := 0
	for i < len(runes) {
		if runes[i] == '_' && i+1 < len(runes) && runes[i+1] == '_' {
			b.WriteString("____")
			i += 2
			continue
		}
		r := runes[i]
		valid := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if i == 0 {
			valid = r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		}
		if valid {
			b.WriteRune(r)
			i++
			continue
		}
		if seq, ok := graphqlSeqFor(r); ok {
			b.WriteString(seq)
		} else {
			fmt.Fprintf(&b, "__u%X__", r)
		}
		i++
	}
	return b.String()
}

func graphqlSeqFor(r rune) (string, bool) {
	for _, e := range graphqlEscapeSequences {
		if e.Char == r {
			return e.Seq, true
		}
	}
	return "", false
}

func graphqlCharFor(seq string) (rune, bool) {
	for _, e := range graphqlEscapeSequences {
		if e.Seq == seq {
			return e.Char, true
		}
	}
	return 0, false
}

// GraphQLUnescape reverses GraphQLEscape.
func GraphQLUnescape(escaped string) string {
	var b strings.Builder
	i := 0
	for i < len(escaped) {
		if strings.HasPrefix(escaped[i:], "____") {
			b.WriteString("__")
			i += 4
			continue
		}
		if strings.HasPrefix(escaped[i:], "__u") {
			rest := escaped[i+3:]
			end := strings.Index(rest, "__")
			if end > 0 {
				hex := rest[:end]
				if code, err := strconv.ParseUint(hex, 16, 32); err == nil {
					b.WriteRune(rune(code))
					i += 3 + end + 2
					continue
				}
			}
		}
		matched := false
		for _, e := range graphqlEscapeSequences {
			if strings.HasPrefix(escaped[i:], e.Seq) {
				b.WriteRune(e.Char)
				i += len(e.Seq)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		r, size := utf8.DecodeRuneInString(escaped[i:])
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

// escapeChar is the MongoDB-variable-safe sentinel. It must be a valid
// MongoDB variable-name character (non-ASCII) and must not collide with the
// lowercase hex digits it is followed by.
const escapeChar = '·'

// escapeCharEscapeSequence is the reserved two-hex-digit code for an
// occurrence of the sentinel character itself in the input; 0xff lies above
// the ASCII range (0x00-0x7f) so it can never be confused with an escaped
// ASCII byte.
const escapeCharEscapeSequence = 0xff

// VariableEscape maps an arbitrary string to a name matching
// `^[a-z\P{ASCII}][_a-zA-Z0-9\P{ASCII}]*$` by escaping every invalid ASCII
// byte (and the sentinel character itself) as the sentinel followed by a
// two-hex-digit code, then prefixing with "v_" so the result never begins
// with a digit or underscore.
func VariableEscape(name string) string {
	var b strings.Builder
	b.WriteString("v_")
	for _, r := range name {
		switch {
		case r == escapeChar:
			pushEncoded(&b, escapeCharEscapeSequence)
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r <= 127:
			pushEncoded(&b, uint32(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func pushEncoded(b *strings.Builder, code uint32) {
	b.WriteRune(escapeChar)
	fmt.Fprintf(b, "%02x", code)
}

// QueryVariableName maps a query-request variable name and the type it's
// used at to a name safe for use as a MongoDB aggregation pipeline
// variable. The type is folded into the name because the same request
// variable can appear in more than one type context across a query plan,
// and each context may need its own JSON-to-BSON conversion; folding the
// type into the name keeps those contexts from colliding. Reproducible for
// the same (name, type) pair, and distinct whenever the name or the type
// differs.
func QueryVariableName(name string, t Type) string {
	return VariableEscape(name + "_" + typeTag(t))
}

// typeTag renders a Type as a short, stable tag string for QueryVariableName.
// Object types are tagged by their schema name rather than an inline field
// listing: a named object reference already uniquely identifies its shape
// within one Schema, so there's no need to walk its fields here.
func typeTag(t Type) string {
	switch t.Kind {
	case KindScalar:
		return t.Scalar.BsonName()
	case KindObject:
		return t.ObjectName
	case KindArrayOf:
		return "[" + typeTag(*t.ArrayElem) + "]"
	case KindNullable:
		return "nullable(" + typeTag(*t.NullableInner) + ")"
	case KindPredicate:
		return "predicate(" + t.PredicateObject + ")"
	default:
		return "unknown"
	}
}

// VariableUnescape reverses VariableEscape, including the "v_" prefix.
func VariableUnescape(escaped string) string {
	escaped = strings.TrimPrefix(escaped, "v_")
	var b strings.Builder
	runes := []rune(escaped)
	i := 0
	for i < len(runes) {
		if runes[i] == escapeChar && i+2 < len(runes) {
			hex := string(runes[i+1 : i+3])
			if code, err := strconv.ParseUint(hex, 16, 32); err == nil {
				if uint32(code) == escapeCharEscapeSequence {
					b.WriteRune(escapeChar)
				} else {
					b.WriteRune(rune(code))
				}
				i += 3
				continue
			}
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}
