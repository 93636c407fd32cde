// internal/workers/pos/interpret-command/models.go
package interpretcommand

import (
	"encoding/json"

	"pos-interpreter/internal/models"
)

type Input struct {
	Text    string                   `json:"text"`
	State   models.ConversationState `json:"state"`
	Catalog json.RawMessage          `json:"catalog,omitempty"`
	TraceID string                   `json:"traceId,omitempty"`
}

type Output struct {
	Actions           []models.Action `json:"actions"`
	TraceID           string          `json:"traceId"`
	FastPath          bool            `json:"fastPath"`
	PromptFingerprint string          `json:"promptFingerprint,omitempty"`
}
