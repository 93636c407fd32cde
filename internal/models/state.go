// internal/models/state.go
package models

import (
	"encoding/json"
	"strings"
)

// Document modes.
const (
	ModePresupuesto = "PRESUPUESTO"
	ModeFactura     = "FACTURA"
	ModeRemito      = "REMITO"
)

// ConversationState is the caller's snapshot of the POS screen. Decoding is
// lenient: values of the wrong type are treated as absent, unknown keys are
// kept so they can be echoed back to the planner.
type ConversationState struct {
	Mode          string
	Results       []map[string]interface{}
	SelectedIndex *int
	QtyHint       *int
	Cart          []map[string]interface{}
	Payments      []interface{}

	extra map[string]interface{}
}

var knownStateKeys = map[string]bool{
	"mode": true, "results": true, "selected_index": true,
	"qty_hint": true, "cart": true, "payments": true,
}

// StateFromMap builds a state from a decoded JSON object.
func StateFromMap(raw map[string]interface{}) ConversationState {
	var s ConversationState
	if raw == nil {
		return s
	}
	if m, ok := raw["mode"].(string); ok {
		s.Mode = m
	}
	s.Results = rows(raw["results"])
	s.Cart = rows(raw["cart"])
	if v, ok := raw["selected_index"]; ok && v != nil {
		if i, ok := ToInt(v); ok {
			s.SelectedIndex = &i
		}
	}
	if v, ok := raw["qty_hint"]; ok && v != nil {
		if i, ok := ToInt(v); ok {
			s.QtyHint = &i
		}
	}
	switch p := raw["payments"].(type) {
	case []interface{}:
		s.Payments = p
	case map[string]interface{}:
		if len(p) > 0 {
			s.Payments = []interface{}{p}
		}
	}
	for k, v := range raw {
		if !knownStateKeys[k] {
			if s.extra == nil {
				s.extra = make(map[string]interface{})
			}
			s.extra[k] = v
		}
	}
	return s
}

// rows keeps the list length intact: non-object entries become empty rows
// so 1-based positions and bounds stay meaningful.
func rows(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, len(list))
	for i, it := range list {
		if m, ok := it.(map[string]interface{}); ok {
			out[i] = m
		} else {
			out[i] = map[string]interface{}{}
		}
	}
	return out
}

func (s *ConversationState) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = StateFromMap(raw)
	return nil
}

func (s ConversationState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToMap())
}

// ToMap renders the state the way the planner prompt expects it.
func (s ConversationState) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(s.extra)+6)
	for k, v := range s.extra {
		out[k] = v
	}
	if s.Mode != "" {
		out["mode"] = s.Mode
	}
	results := s.Results
	if results == nil {
		results = []map[string]interface{}{}
	}
	out["results"] = results
	if s.SelectedIndex != nil {
		out["selected_index"] = *s.SelectedIndex
	} else {
		out["selected_index"] = nil
	}
	out["qty_hint"] = s.QtyHintOrDefault()
	if s.Cart != nil {
		out["cart"] = s.Cart
	}
	if s.Payments != nil {
		out["payments"] = s.Payments
	}
	return out
}

// IsFactura reports whether the document being built is an invoice.
func (s ConversationState) IsFactura() bool {
	return strings.EqualFold(strings.TrimSpace(s.Mode), ModeFactura)
}

func (s ConversationState) HasPayments() bool {
	return len(s.Payments) > 0
}

// NeedsPaymentFirst is true for invoices without a registered payment.
func (s ConversationState) NeedsPaymentFirst() bool {
	return s.IsFactura() && !s.HasPayments()
}

// Selected returns the selected 1-based index when one is set.
func (s ConversationState) Selected() (int, bool) {
	if s.SelectedIndex == nil || *s.SelectedIndex <= 0 {
		return 0, false
	}
	return *s.SelectedIndex, true
}

// QtyHintOrDefault returns the global quantity hint, 1 when unset or invalid.
func (s ConversationState) QtyHintOrDefault() int {
	if s.QtyHint == nil || *s.QtyHint <= 0 {
		return 1
	}
	return *s.QtyHint
}

// ResultCode returns the item identity of the i-th (1-based) search result.
func (s ConversationState) ResultCode(i int) (string, bool) {
	if i < 1 || i > len(s.Results) {
		return "", false
	}
	code := rowCode(s.Results[i-1])
	return code, code != ""
}

// CartQtyFor returns the quantity already in the cart for an item code.
func (s ConversationState) CartQtyFor(code string) (int, bool) {
	if code == "" {
		return 0, false
	}
	for _, line := range s.Cart {
		if rowCode(line) != code {
			continue
		}
		if q, ok := line["qty"]; ok && q != nil {
			return ToInt(q)
		}
	}
	return 0, false
}

func rowCode(row map[string]interface{}) string {
	for _, k := range []string{"item_code", "code", "name"} {
		if v, ok := row[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
