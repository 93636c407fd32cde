// internal/pos/planner/schema.go
package planner

import "pos-interpreter/internal/common/validation"

const SchemaName = "planner_actions"

// ActionsSchema is the response format requested from the model.
func ActionsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"actions": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"action": map[string]interface{}{"type": "string"},
						"params": map[string]interface{}{"type": "object"},
					},
					"required":             []interface{}{"action"},
					"additionalProperties": true,
				},
			},
		},
		"required":             []interface{}{"actions"},
		"additionalProperties": false,
	}
}

// envelopeSchema is what a reply must satisfy locally. Individual items are
// left to the guardrails so one bad candidate never costs the batch.
var envelopeSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"actions": map[string]interface{}{"type": "array"},
	},
	"required": []interface{}{"actions"},
}

var envelopeValidator = validation.MustValidator(envelopeSchema)
