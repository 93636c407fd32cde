// internal/pos/fastpath/fastpath.go

// Package fastpath answers common POS commands with deterministic rules so
// the planner is only consulted for the rest.
package fastpath

import (
	"regexp"
	"strings"

	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/catalog"
	"pos-interpreter/internal/pos/normalize"
)

// AskTargetQuestion is asked when a relative quantity change has no item.
const AskTargetQuestion = "¿Sobre qué ítem aplico el cambio de cantidad?"

// Payment method names as known by the ERP.
const (
	MopCash       = "Cash"
	MopBankDraft  = "Bank Draft"
	MopCreditCard = "Credit Card"
	MopDebitCard  = "Debit Card"
)

var (
	reConfirm = regexp.MustCompile(`\b(confirm(ar|o|ado|ame|emos)?|factur(a|ar)|cerr(ar|a)\s*venta)\b`)
	reMode    = regexp.MustCompile(`\bmodo\s+(presupuesto|factura|remito)\b`)
	reSearch  = regexp.MustCompile(`\b(busca(r)?|buscame|mostra(r)?|mostrame)\b`)
	reSearchV = regexp.MustCompile(`^\s*(buscame|buscar|busca|mostrame|mostrar|mostra)\b\s*[:,-]?\s*`)
	reLast    = regexp.MustCompile(`\b(ultimo|final)\b`)
	reCart    = regexp.MustCompile(`\bcarrito\b`)
	reRmName  = regexp.MustCompile(`\b(?:borra(?:r)?|saca(?:r)?|quita(?:r)?)\s+(?:el|la)?\s*(.+)\s+del\s+carrito\b`)
	reAddVerb = regexp.MustCompile(`\b(agrega(?:r)?|agregado|sumar|agregame|anadir|poner)\b`)

	payments = []struct {
		re  *regexp.Regexp
		mop string
	}{
		{regexp.MustCompile(`\b(efectivo|cash)\b`), MopCash},
		{regexp.MustCompile(`\btransferenc(ia|ias)\b`), MopBankDraft},
		{regexp.MustCompile(`\btarjeta\s+credito\b`), MopCreditCard},
		{regexp.MustCompile(`\btarjeta\s+debito\b`), MopDebitCard},
	}
)

// input carries what every rule needs, parsed once.
type input struct {
	text    string
	state   models.ConversationState
	allowed catalog.AllowedActionSet
	index   *int
	qty     QtyOps
}

type rule struct {
	name  string
	apply func(in *input) ([]models.Action, bool)
}

// Rules are tried in order; the first one that produces a plan wins.
var rules = []rule{
	{"confirm", confirmRule},
	{"payment", paymentRule},
	{"mode", modeRule},
	{"search", searchRule},
	{"remove_last", removeLastRule},
	{"remove", removeRule},
	{"selection_qty", selectionQtyRule},
}

// Match normalizes rawText and runs the rule chain. ok is false when no rule
// produced a plan or when a rule panicked.
func Match(rawText string, state models.ConversationState, allowed catalog.AllowedActionSet) ([]models.Action, bool) {
	actions, _, ok := MatchRule(rawText, state, allowed)
	return actions, ok
}

// MatchRule is Match that also reports the name of the rule that answered.
func MatchRule(rawText string, state models.ConversationState, allowed catalog.AllowedActionSet) (actions []models.Action, name string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			actions, name, ok = nil, "", false
		}
	}()

	text := normalize.Text(rawText)
	in := &input{
		text:    text,
		state:   state,
		allowed: allowed,
		index:   ParseIndex(text),
		qty:     ParseQtyOps(text),
	}
	for _, r := range rules {
		if out, matched := r.apply(in); matched {
			return out, r.name, true
		}
	}
	return nil, "", false
}

func confirmRule(in *input) ([]models.Action, bool) {
	if !in.allowed.Has(models.ActionConfirmDocument) {
		return nil, false
	}
	// "modo factura" names a mode, not an invoice to emit.
	text := reMode.ReplaceAllString(in.text, " ")
	if !reConfirm.MatchString(text) {
		return nil, false
	}
	return []models.Action{models.NewAction(models.ActionConfirmDocument, nil)}, true
}

func paymentRule(in *input) ([]models.Action, bool) {
	if !in.allowed.Has(models.ActionSetPayment) {
		return nil, false
	}
	for _, p := range payments {
		if p.re.MatchString(in.text) {
			return []models.Action{models.NewAction(models.ActionSetPayment, models.Params{"mop": p.mop})}, true
		}
	}
	return nil, false
}

func modeRule(in *input) ([]models.Action, bool) {
	if !in.allowed.Has(models.ActionSetMode) {
		return nil, false
	}
	m := reMode.FindStringSubmatch(in.text)
	if m == nil {
		return nil, false
	}
	return []models.Action{models.NewAction(models.ActionSetMode, models.Params{"mode": strings.ToUpper(m[1])})}, true
}

func searchRule(in *input) ([]models.Action, bool) {
	if !in.allowed.Has(models.ActionSearch) || !reSearch.MatchString(in.text) {
		return nil, false
	}
	term := strings.TrimSpace(reSearchV.ReplaceAllString(in.text, ""))
	if term == "" {
		return nil, false
	}
	return []models.Action{models.NewAction(models.ActionSearch, models.Params{"term": term})}, true
}

func removeLastRule(in *input) ([]models.Action, bool) {
	if !in.allowed.Has(models.ActionRemoveLastItem) || !reCart.MatchString(in.text) || !reLast.MatchString(in.text) {
		return nil, false
	}
	return []models.Action{models.NewAction(models.ActionRemoveLastItem, nil)}, true
}

func removeRule(in *input) ([]models.Action, bool) {
	if !in.allowed.Has(models.ActionRemoveFromCart) || !reCart.MatchString(in.text) {
		return nil, false
	}
	if in.index != nil && *in.index >= 1 && *in.index <= len(in.state.Cart) {
		return []models.Action{models.NewAction(models.ActionRemoveFromCart, models.Params{"index": *in.index})}, true
	}
	if m := reRmName.FindStringSubmatch(in.text); m != nil {
		if name := strings.TrimSpace(m[1]); len([]rune(name)) >= 2 {
			return []models.Action{models.NewAction(models.ActionRemoveFromCart, models.Params{"name": name})}, true
		}
	}
	return nil, false
}

func selectionQtyRule(in *input) ([]models.Action, bool) {
	var out []models.Action
	emit := func(name string, params models.Params) {
		if in.allowed.Has(name) {
			out = append(out, models.NewAction(name, params))
		}
	}

	if in.index != nil {
		emit(models.ActionSelectIndex, models.Params{"index": *in.index})
	}

	if in.qty.Abs != nil {
		emit(models.ActionSetQty, models.Params{"qty": *in.qty.Abs})
		if reAddVerb.MatchString(in.text) {
			emit(models.ActionAddToCart, nil)
		}
		return out, len(out) > 0
	}

	if !in.qty.HasDelta() {
		return nil, false
	}

	target, fromState := 0, false
	if in.index != nil && *in.index != 0 {
		target = *in.index
	} else if sel, ok := in.state.Selected(); ok {
		target, fromState = sel, in.index == nil
	}
	if target == 0 {
		if in.allowed.Has(models.ActionAskUser) {
			return []models.Action{models.AskUser(AskTargetQuestion)}, true
		}
		return nil, false
	}

	if !in.allowed.Has(models.ActionSetQty) {
		return nil, false
	}

	base, ok := 0, false
	if code, has := in.state.ResultCode(target); has {
		base, ok = in.state.CartQtyFor(code)
	}
	if !ok {
		base = in.state.QtyHintOrDefault()
	}
	newQty := base + in.qty.Plus() - in.qty.Minus()
	if newQty < 0 {
		newQty = 0
	}

	if fromState {
		emit(models.ActionSelectIndex, models.Params{"index": target})
	}
	emit(models.ActionSetQty, models.Params{"qty": newQty})
	return out, true
}
