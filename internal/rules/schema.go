package rules

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ruleFileSchema is the JSON Schema every rule file must satisfy before any
// rule is trusted.
const ruleFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["schema_version", "rules"],
  "properties": {
    "schema_version": {"type": "string"},
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "signature", "strategy"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "scope": {
            "type": "object",
            "properties": {
              "site": {"type": "string"},
              "form_kind": {"type": "string"},
              "locale": {"type": "array", "items": {"type": "string"}}
            }
          },
          "signature": {
            "type": "object",
            "required": ["field_kind", "q_pattern"],
            "properties": {
              "field_kind": {"type": "string", "minLength": 1},
              "q_pattern": {"type": "string"},
              "options_fingerprint": {"type": "string"}
            }
          },
          "strategy": {
            "type": "object",
            "required": ["kind"],
            "properties": {
              "kind": {"type": "string", "minLength": 1},
              "params": {"type": "object"}
            }
          },
          "meta": {
            "type": "object",
            "properties": {
              "source": {"type": "string"},
              "confidence": {"type": "number", "minimum": 0, "maximum": 1},
              "hits": {"type": "integer", "minimum": 0}
            }
          }
        }
      }
    }
  }
}`

// validateRuleFile checks a decoded rule file document against the schema.
func validateRuleFile(doc any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(ruleFileSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("rule file does not match schema: %s", errs[0])
		}
		return fmt.Errorf("rule file does not match schema")
	}
	return nil
}
