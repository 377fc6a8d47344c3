// ABOUTME: Tool argument validation against compiled JSON Schemas
// ABOUTME: Required fields enforced, types checked, unknown fields rejected

package registry

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"

	"github.com/stackmesh/infragate/internal/fault"
)

// Validate checks arguments against a registered tool's schema. Every
// required field must be present, every present field must match its
// declared type, and unknown fields are rejected. The returned fault
// names the first offending field.
func (r *Registry) Validate(name string, arguments json.RawMessage) error {
	e, ok := r.entries[name]
	if !ok {
		return fault.Newf(fault.KindNotFound, "unknown tool %q", name)
	}

	if len(arguments) == 0 || string(arguments) == "null" {
		arguments = json.RawMessage(`{}`)
	}

	result, err := e.schema.Validate(gojsonschema.NewBytesLoader(arguments))
	if err != nil {
		// Arguments that are not valid JSON at all
		return fault.New(fault.KindValidation, "arguments are not a JSON object").
			WithDetail(err.Error())
	}

	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	return fault.Newf(fault.KindValidation, "invalid argument %q: %s",
		fieldName(first), first.Description())
}

// fieldName extracts the offending field from a schema validation error.
// Required-field and additional-property errors report the property name
// in details rather than the field path.
func fieldName(e gojsonschema.ResultError) string {
	if prop, ok := e.Details()["property"].(string); ok && prop != "" {
		return prop
	}
	return e.Field()
}
