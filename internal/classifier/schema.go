package classifier

import "github.com/xeipuuv/gojsonschema"

// analysisSchemaJSON checks structure and field types only. Enum membership
// is enforced by coercion, not by the schema, so an unknown intent still
// yields a usable verdict.
const analysisSchemaJSON = `{
  "type": "object",
  "properties": {
    "intent":              {"type": ["string", "null"]},
    "priority":            {"type": ["string", "null"]},
    "routeTo":             {"type": ["string", "null"]},
    "suggestedResponse":   {"type": ["string", "null"]},
    "requiresHumanReview": {"type": ["boolean", "null"]},
    "extractedData":       {"type": ["object", "null"]}
  }
}`

var analysisSchema = mustSchema(analysisSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return s
}
