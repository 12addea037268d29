package querycore

import (
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// NativeProcedure is an arbitrary runCommand invocation (§4.15): a parameter-
// typed command template run verbatim through the database's runCommand
// API, with `{{paramName}}` placeholders substituted from resolved
// arguments. Keys and values may each carry placeholders.
type NativeProcedure struct {
	ResultType  Type
	Parameters  map[string]Type
	ObjectTypes ObjectTypeMap

	Command bson.D

	Description string
}

// Compile resolves arguments against the procedure's declared parameter
// types and interpolates them into the command template, returning a
// ready-to-run command document.
func (p NativeProcedure) Compile(arguments map[string]Argument) (bson.D, error) {
	values, err := ResolveArgumentValues(p.Parameters, arguments, p.ObjectTypes)
	if err != nil {
		return nil, err
	}
	return interpolateDocument(p.Command, values)
}

// interpolateDocument substitutes `{{paramName}}` placeholders throughout a
// bson.D template: in every key, and recursively through every value
// (documents, arrays, and strings). A value whose entire content is a
// single placeholder is replaced by the argument's value directly (so a
// string leaf consisting only of `{{documents}}` can expand to an array
// argument);
// a placeholder embedded within a larger string must resolve to a string
// argument, since non-string values can't be concatenated into text.
func interpolateDocument(doc bson.D, arguments map[string]interface{}) (bson.D, error) {
	out := make(bson.D, 0, len(doc))
	for _, e := range doc {
		interpolatedValue, err := interpolateValue(e.Value, arguments)
		if err != nil {
			return nil, err
		}
		interpolatedKey, err := interpolateString(e.Key, arguments)
		if err != nil {
			return nil, err
		}
		keyStr, ok := interpolatedKey.(string)
		if !ok {
			return nil, &NonStringKeyError{Value: interpolatedKey}
		}
		out = append(out, bson.E{Key: keyStr, Value: interpolatedValue})
	}
	return out, nil
}

func interpolateValue(value interface{}, arguments map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bson.D:
		return interpolateDocument(v, arguments)
	case bson.A:
		out := make(bson.A, len(v))
		for i, elem := range v {
			interpolated, err := interpolateValue(elem, arguments)
			if err != nil {
				return nil, err
			}
			out[i] = interpolated
		}
		return out, nil
	case []interface{}:
		out := make(bson.A, len(v))
		for i, elem := range v {
			interpolated, err := interpolateValue(elem, arguments)
			if err != nil {
				return nil, err
			}
			out[i] = interpolated
		}
		return out, nil
	case string:
		return interpolateString(v, arguments)
	default:
		return value, nil
	}
}

// nativeQueryPart is one piece of a parsed template string: literal text or
// a `{{name}}` placeholder.
type nativeQueryPart struct {
	text      string
	parameter string
	isParam   bool
}

func interpolateString(s string, arguments map[string]interface{}) (interface{}, error) {
	parts := parseNativeQueryParts(s)
	if len(parts) == 1 && parts[0].isParam {
		return resolveTemplateArgument(parts[0].parameter, arguments)
	}

	var b strings.Builder
	for _, part := range parts {
		if !part.isParam {
			b.WriteString(part.text)
			continue
		}
		value, err := resolveTemplateArgument(part.parameter, arguments)
		if err != nil {
			return nil, err
		}
		str, ok := value.(string)
		if !ok {
			return nil, &NonStringInStringContextError{Parameter: part.parameter}
		}
		b.WriteString(str)
	}
	return b.String(), nil
}

func resolveTemplateArgument(name string, arguments map[string]interface{}) (interface{}, error) {
	value, ok := arguments[name]
	if !ok {
		return nil, &MissingInterpolationArgumentError{Name: name}
	}
	return value, nil
}

// parseNativeQueryParts splits a template string on `{{` / `}}` delimiters
// into literal-text and placeholder parts, in order.
func parseNativeQueryParts(s string) []nativeQueryPart {
	var parts []nativeQueryPart
	for _, chunk := range strings.Split(s, "{{") {
		if chunk == "" {
			continue
		}
		varName, text, found := strings.Cut(chunk, "}}")
		if !found {
			parts = append(parts, nativeQueryPart{text: chunk})
			continue
		}
		parts = append(parts, nativeQueryPart{parameter: strings.TrimSpace(varName), isParam: true})
		if text != "" {
			parts = append(parts, nativeQueryPart{text: text})
		}
	}
	return parts
}
