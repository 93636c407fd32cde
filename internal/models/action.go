// internal/models/action.go
package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Action vocabulary shared with the POS front end.
const (
	ActionSetMode           = "set_mode"
	ActionSearch            = "search"
	ActionSelectIndex       = "select_index"
	ActionSetQty            = "set_qty"
	ActionAddToCart         = "add_to_cart"
	ActionSetGlobalDiscount = "set_global_discount"
	ActionSetCustomer       = "set_customer"
	ActionSetPayment        = "set_payment"
	ActionConfirmDocument   = "confirm_document"
	ActionClearCart         = "clear_cart"
	ActionRepeat            = "repeat"
	ActionAskUser           = "ask_user"
	ActionRemoveFromCart    = "remove_from_cart"
	ActionRemoveLastItem    = "remove_last_item"
)

// DefaultActions is substituted when a caller sends no usable catalog.
var DefaultActions = []string{
	ActionSetMode, ActionSearch, ActionSelectIndex, ActionSetQty, ActionAddToCart,
	ActionSetGlobalDiscount, ActionSetCustomer, ActionSetPayment,
	ActionConfirmDocument, ActionClearCart, ActionRepeat, ActionAskUser,
	ActionRemoveFromCart, ActionRemoveLastItem,
}

// Params holds action parameters. After guardrails every value is a JSON
// primitive or nil.
type Params map[string]interface{}

// Action is a single UI operation plus its parameters.
type Action struct {
	Action string `json:"action"`
	Params Params `json:"params"`
}

func NewAction(name string, params Params) Action {
	if params == nil {
		params = Params{}
	}
	return Action{Action: name, Params: params}
}

// AskUser builds the clarification action.
func AskUser(question string) Action {
	return NewAction(ActionAskUser, Params{"question": question})
}

// MarshalJSON always emits params as an object.
func (a Action) MarshalJSON() ([]byte, error) {
	type wire struct {
		Action string `json:"action"`
		Params Params `json:"params"`
	}
	p := a.Params
	if p == nil {
		p = Params{}
	}
	return json.Marshal(wire{Action: a.Action, Params: p})
}

// Clone returns a copy whose params map can be mutated freely.
func (a Action) Clone() Action {
	return Action{Action: a.Action, Params: a.Params.Clone()}
}

func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Int reads an integer parameter, accepting numeric strings and floats.
func (p Params) Int(key string) (int, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	return ToInt(v)
}

// String reads a non-empty string parameter.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// ToInt converts loosely typed JSON values to int.
func ToInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case float32:
		return ToInt(float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return ToInt(f)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// CandidatesFromJSON converts a decoded "actions" array into candidate
// actions. Entries that are not objects are skipped; a non-string action
// name yields an empty name so the whitelist drops it.
func CandidatesFromJSON(items []interface{}) []Action {
	out := make([]Action, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := obj["action"].(string)
		params, _ := obj["params"].(map[string]interface{})
		out = append(out, NewAction(name, Params(params)))
	}
	return out
}

// ActionNames lists the action names in order, handy for logs and metrics.
func ActionNames(actions []Action) []string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.Action
	}
	return names
}

// InterpretRequest is the body accepted by the bridge and the interpret worker.
type InterpretRequest struct {
	Text    string            `json:"text"`
	State   ConversationState `json:"state"`
	Catalog json.RawMessage   `json:"catalog,omitempty"`
}

// InterpretResponse is the only shape the front end receives.
type InterpretResponse struct {
	Actions []Action `json:"actions"`
}
