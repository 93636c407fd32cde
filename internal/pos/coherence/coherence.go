// internal/pos/coherence/coherence.go

// Package coherence puts the final touches on a safe action list: payment
// before invoicing, a predictable select/qty/add order and no duplicates.
package coherence

import (
	"encoding/json"
	"strings"

	"github.com/gowebpki/jcs"

	"pos-interpreter/internal/models"
)

// DefaultPaymentChoices is listed when no enabled method is known.
const DefaultPaymentChoices = "efectivo, débito, crédito, transferencia, QR"

// PaymentQuestion builds the question asked before an invoice without payment.
func PaymentQuestion(methods []string) string {
	choices := DefaultPaymentChoices
	if names := nonBlank(methods); len(names) > 0 {
		choices = strings.Join(names, ", ")
	}
	return "¿Cómo vas a pagar? Indicá el modo de pago (" + choices + ")."
}

var trioRank = map[string]int{
	models.ActionSelectIndex: 0,
	models.ActionSetQty:      1,
	models.ActionAddToCart:   2,
}

// Apply runs the three passes. methods are the enabled payment method names
// used to phrase the payment question. Apply is idempotent.
func Apply(state models.ConversationState, actions []models.Action, methods []string) []models.Action {
	out := PaymentFirst(state, actions, methods)
	out = Reorder(out)
	return Dedup(out)
}

// PaymentFirst drops confirm_document on an invoice without payment and asks
// for a method unless a set_payment is already planned.
func PaymentFirst(state models.ConversationState, actions []models.Action, methods []string) []models.Action {
	if !state.NeedsPaymentFirst() || !contains(actions, models.ActionConfirmDocument) {
		return actions
	}
	out := make([]models.Action, 0, len(actions)+1)
	if !contains(actions, models.ActionSetPayment) {
		out = append(out, models.AskUser(PaymentQuestion(methods)))
	}
	for _, a := range actions {
		if a.Action != models.ActionConfirmDocument {
			out = append(out, a)
		}
	}
	return out
}

// Reorder sorts select_index, set_qty and add_to_cart into that relative
// order within the positions they already occupy. Other actions keep their
// place.
func Reorder(actions []models.Action) []models.Action {
	var slots []int
	var trio []models.Action
	for i, a := range actions {
		if _, ok := trioRank[a.Action]; ok {
			slots = append(slots, i)
			trio = append(trio, a)
		}
	}
	if len(trio) < 2 {
		return actions
	}

	sorted := make([]models.Action, 0, len(trio))
	for rank := 0; rank < 3; rank++ {
		for _, a := range trio {
			if trioRank[a.Action] == rank {
				sorted = append(sorted, a)
			}
		}
	}

	out := make([]models.Action, len(actions))
	copy(out, actions)
	for i, slot := range slots {
		out[slot] = sorted[i]
	}
	return out
}

// Dedup removes actions equal to an earlier one. Equality is byte equality
// of the RFC 8785 canonical JSON form, so key order and number spelling do
// not matter.
func Dedup(actions []models.Action) []models.Action {
	seen := make(map[string]struct{}, len(actions))
	out := make([]models.Action, 0, len(actions))
	for _, a := range actions {
		key, err := CanonicalKey(a)
		if err != nil {
			out = append(out, a)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// CanonicalKey is the canonical JSON encoding of an action.
func CanonicalKey(a models.Action) (string, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	return string(canon), nil
}

func contains(actions []models.Action, name string) bool {
	for _, a := range actions {
		if a.Action == name {
			return true
		}
	}
	return false
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
