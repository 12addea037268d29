package querycore

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// NativeMutation is a parameter-typed update template (§4.15): a filter and
// an update document, each written with `{{paramName}}` placeholders, run
// against a fixed collection. Unlike a native query's pipeline, a native
// mutation executes as a single MongoDB update rather than an aggregation,
// so it compiles directly to the teacher's Updater/Filter builders instead
// of through the query planner.
type NativeMutation struct {
	Collection  string
	ResultType  Type
	Parameters  map[string]Type
	ObjectTypes ObjectTypeMap

	// FilterTemplate and UpdateTemplate are bson.D documents whose string
	// leaf values may contain `{{paramName}}` placeholders, resolved the
	// same way as a native procedure's command template (§4.15,
	// nativeprocedure.go).
	FilterTemplate bson.D
	UpdateTemplate bson.D

	Description string
}

// Compile resolves arguments against the mutation's declared parameter
// types and interpolates them into the filter/update templates, returning
// ready-to-run Filter and Updater values.
func (m NativeMutation) Compile(arguments map[string]Argument) (Filter, Updater, error) {
	values, err := ResolveArgumentValues(m.Parameters, arguments, m.ObjectTypes)
	if err != nil {
		return Filter{}, Updater{}, err
	}

	filterDoc, err := interpolateDocument(m.FilterTemplate, values)
	if err != nil {
		return Filter{}, Updater{}, err
	}
	updateDoc, err := interpolateDocument(m.UpdateTemplate, values)
	if err != nil {
		return Filter{}, Updater{}, err
	}
	return Raw(filterDoc), RawUpdate(updateDoc), nil
}
