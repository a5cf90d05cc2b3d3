package grouping

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// envelopeSchema validates the structural contract of saved classification
// results before grouping runs: pages must be objects carrying an integer
// page_num. Payload contents stay unconstrained since their shape is
// unpredictable by design.
const envelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["pages"],
  "properties": {
    "file_name": { "type": "string" },
    "pages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["page_num"],
        "properties": {
          "page_num": { "type": "integer", "minimum": 1 }
        }
      }
    }
  }
}`

var compiledEnvelopeSchema = jsonschema.MustCompileString("envelope.json", envelopeSchema)

// ValidateEnvelope checks saved classification results against the envelope
// schema. It returns a structural error for fundamentally malformed input;
// silent misclassification of patient data is a safety risk, so bad input is
// rejected before any grouping heuristics see it.
func ValidateEnvelope(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("classification results are not valid JSON: %w", err)
	}
	if err := compiledEnvelopeSchema.Validate(doc); err != nil {
		return fmt.Errorf("classification results failed validation: %w", err)
	}
	return nil
}
