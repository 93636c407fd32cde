// internal/pos/planner/prompt.go
package planner

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"pos-interpreter/internal/common/llm"
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/catalog"
)

// Actions rendered as name() in the whitelist; all others take name(...).
var noArgActions = map[string]bool{
	"add_to_cart":      true,
	"confirm_document": true,
	"clear_cart":       true,
	"repeat":           true,
}

const systemHeader = `Sos un PLANIFICADOR de acciones para una UI POS. Tu ÚNICA salida es JSON válido:
{"actions":[{"action":"<nombre>","params":{...}} , ...]}

Reglas:
- No hablás con el usuario y no devolvés texto libre ni Markdown, SOLO JSON con "actions".
- Usás EXCLUSIVAMENTE la whitelist (catálogo) que te doy.
- Si falta un dato, NO inventes: devolvé una única acción ask_user con la mínima pregunta necesaria.
- Entendés español coloquial (es-AR). Frases como “ítem 1 agregar 3”, “modo factura”, “cantidad 2”, “buscar caño 3/4” mapean a acciones.
- Índices que nombra el usuario son 1-based (1 = primer resultado).
- confirm_document, clear_cart y set_payment solo con intención explícita del usuario.
- Si el modo es FACTURA y no hay pago seleccionado, primero set_payment({mop, account?}) y después confirm_document().

Whitelist permitida:
`

const systemConventions = `
Convenciones:
- "results" viene numerado (index 1..N). Usalo para “ítem N”.
- "selected_index" puede venir null. Si agregan sin index, usá el seleccionado; si no hay, preguntá.
- "qty_hint" es la cantidad “global” si el usuario no dijo otra.
- Para “ítem 1 agregar 3”: select_index(1), set_qty(3), add_to_cart().
- Para “cantidad 3”: set_qty(3) (no agregues todavía).
- “sumale 2”, “sacale 1” son deltas sobre el ítem seleccionado.
- Para “agregar ítem”: add_to_cart() sobre el seleccionado; si no hay, preguntá.

Devolvé SIEMPRE un objeto JSON EXACTO con la forma {"actions":[...]}.`

// WhitelistLines renders one "- name()" or "- name(...)" line per action.
func WhitelistLines(allowed catalog.AllowedActionSet) string {
	lines := make([]string, 0, allowed.Len())
	for _, name := range allowed.Names() {
		if noArgActions[name] {
			lines = append(lines, fmt.Sprintf("- %s()", name))
		} else {
			lines = append(lines, fmt.Sprintf("- %s(...)", name))
		}
	}
	return strings.Join(lines, "\n")
}

// PaymentRule is appended to the system prompt when an invoice has no
// payment yet.
func PaymentRule(methods []string) string {
	if methods == nil {
		methods = []string{}
	}
	return "Si el modo actual es FACTURA y el estado no registra un pago seleccionado, " +
		"primero debes emitir la acción set_payment con params {\"mop\":\"<uno de estos métodos>\", \"account\":\"<opcional>\"} " +
		"usando uno de: " + mustJSON(methods) + " y SOLO después confirm_document."
}

// SystemPrompt builds the planner instructions. extraRule may be empty.
func SystemPrompt(allowed catalog.AllowedActionSet, extraRule string) string {
	var b strings.Builder
	b.WriteString(systemHeader)
	b.WriteString(WhitelistLines(allowed))
	b.WriteString("\n")
	b.WriteString(systemConventions)
	if extraRule != "" {
		b.WriteString("\n")
		b.WriteString(extraRule)
	}
	return strings.TrimSpace(b.String())
}

// Fingerprint identifies a system prompt in logs: 8 hex chars of its SHA-256.
func Fingerprint(systemPrompt string) string {
	sum := sha256.Sum256([]byte(systemPrompt))
	return hex.EncodeToString(sum[:])[:8]
}

type userPayload struct {
	Text    string                 `json:"text"`
	State   map[string]interface{} `json:"state"`
	Catalog []string               `json:"catalog,omitempty"`
}

// UserTurn renders the INPUT block sent after the few-shots.
func UserTurn(text string, state models.ConversationState, allowed catalog.AllowedActionSet) string {
	return "INPUT:\n" + mustJSON(userPayload{
		Text:    text,
		State:   state.ToMap(),
		Catalog: allowed.Names(),
	})
}

type shot struct {
	text    string
	state   map[string]interface{}
	catalog bool
	answer  string
}

var fewShots = []shot{
	{
		text:   "modo factura",
		state:  map[string]interface{}{"mode": "PRESUPUESTO", "results": []interface{}{}, "selected_index": nil, "qty_hint": 1},
		answer: `{"actions":[{"action":"set_mode","params":{"mode":"FACTURA"}}]}`,
	},
	{
		text: "ítem 1 agregar 3",
		state: map[string]interface{}{
			"mode":           "PRESUPUESTO",
			"results":        []interface{}{map[string]interface{}{"index": 1, "item_code": "X", "item_name": "Caño 3/4"}},
			"selected_index": nil,
			"qty_hint":       1,
		},
		answer: `{"actions":[{"action":"select_index","params":{"index":1}},{"action":"set_qty","params":{"qty":3}},{"action":"add_to_cart","params":{}}]}`,
	},
	{
		text:   "cañon 20 mm poneme dos",
		state:  map[string]interface{}{"mode": "PRESUPUESTO", "results": []interface{}{}, "selected_index": nil, "qty_hint": 1},
		answer: `{"actions":[{"action":"search","params":{"term":"caño 20 mm"}},{"action":"set_qty","params":{"qty":2}},{"action":"add_to_cart","params":{}}]}`,
	},
	{
		text: "borrá el último del carrito",
		state: map[string]interface{}{
			"cart":           []interface{}{map[string]interface{}{"item_code": "X", "qty": 1}},
			"results":        []interface{}{},
			"selected_index": nil,
			"qty_hint":       1,
		},
		catalog: true,
		answer:  `{"actions":[{"action":"remove_last_item","params":{}}]}`,
	},
	{
		text: "sacá el tercero del carrito",
		state: map[string]interface{}{
			"cart": []interface{}{
				map[string]interface{}{"item_code": "A"},
				map[string]interface{}{"item_code": "B"},
				map[string]interface{}{"item_code": "C"},
			},
			"results":        []interface{}{},
			"selected_index": nil,
			"qty_hint":       1,
		},
		catalog: true,
		answer:  `{"actions":[{"action":"remove_from_cart","params":{"index":3}}]}`,
	},
}

// FewShots returns the example exchanges as alternating user/assistant turns.
func FewShots(allowed catalog.AllowedActionSet) []llm.Message {
	msgs := make([]llm.Message, 0, len(fewShots)*2)
	for _, s := range fewShots {
		p := userPayload{Text: s.text, State: s.state}
		if s.catalog {
			p.Catalog = allowed.Names()
		}
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: "INPUT:\n" + mustJSON(p)},
			llm.Message{Role: llm.RoleAssistant, Content: s.answer},
		)
	}
	return msgs
}

// BuildMessages assembles system prompt, few-shots and the user turn. It
// also returns the system prompt so callers can fingerprint it.
func BuildMessages(text string, state models.ConversationState, allowed catalog.AllowedActionSet, extraRule string) ([]llm.Message, string) {
	system := SystemPrompt(allowed, extraRule)
	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	msgs = append(msgs, FewShots(allowed)...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: UserTurn(text, state, allowed)})
	return msgs, system
}

// mustJSON encodes without HTML escaping so accents and quotes stay readable.
func mustJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}
