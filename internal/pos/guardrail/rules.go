// internal/pos/guardrail/rules.go
package guardrail

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pos-interpreter/internal/models"
)

// Questions emitted when a cart removal cannot be applied as is.
const (
	AskCartRangeFormat = "¿Qué ítem del carrito querés borrar? Decime un número del 1 al %d."
	AskCartTarget      = "¿Cuál ítem del carrito querés borrar? Decime un índice (1..N) o el nombre."
)

var (
	reConfirmIntent = regexp.MustCompile(`\b(confirm(ar|o|ado|ame|emos)?|factur(a|ar)|emit(ir|i)\s+(la\s+)?(factura|comprobante)|cerr(ar|a)\s+venta)\b`)
	reClearIntent   = regexp.MustCompile(`\b(vacia(?:r)?|limpia(?:r)?|borra(?:r)?)\b.*\bcarrito\b`)
	reRemoveIntent  = regexp.MustCompile(`\b(borra(?:r)?|elimina(?:r)?|saca(?:r)?|quita(?:r)?)\b.*\b(item|producto|articulo|carrito)\b`)
	reLastIntent    = regexp.MustCompile(`\b(ultim[oa]?|lo\s+ultimo|final)\b`)
	reSearchOnly    = regexp.MustCompile(`\b(busca(?:r|me)?|buscame|mostra(?:r|me)?|mostrame|quiero ver)\b`)
	reModeIntent    = regexp.MustCompile(`\bmodo\s+(factura|presupuesto|remito)\b|\b(pasar|pon(e|er)|cambiar)\s+a\s+modo\s+(factura|presupuesto|remito)\b`)
	rePayIntent     = regexp.MustCompile(`\b(pag(a|ar|ame)|cobr(a|ar|ame)|efectivo|tarjeta|debito|credito|transferencia|qr|mercado\s*pago|mp|pago)\b`)

	reCartWord  = regexp.MustCompile(`\bcarrito\b`)
	reTextIndex = regexp.MustCompile(`\b(?:i?tem|numero|num|el)\s+(\d{1,3})\b`)
	reBareIndex = regexp.MustCompile(`\b(\d{1,3})\b`)

	reTermCourtesy = regexp.MustCompile(`(?i)\b(por\s*fa(?:vor)?|porfis)\b`)
	reTermPunct    = regexp.MustCompile(`[^\p{L}\p{N}_\s/"]+`)
	reTermArticles = regexp.MustCompile(`(?i)^\s*((a|al|la|el)\s+)+`)
	reTermSpaces   = regexp.MustCompile(`\s+`)
)

// DefaultRules is the production chain, in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "whitelist", Apply: whitelist},
		{Name: "confirm_intent", Apply: intentGate(models.ActionConfirmDocument, reConfirmIntent)},
		{Name: "add_to_cart_precondition", Apply: addToCartPrecondition},
		{Name: "clear_cart_intent", Apply: intentGate(models.ActionClearCart, reClearIntent)},
		{Name: "remove_intent", Apply: intentGate(models.ActionRemoveFromCart, reRemoveIntent)},
		{Name: "remove_last_intent", Apply: intentGate(models.ActionRemoveLastItem, reLastIntent)},
		{Name: "search_only", Apply: searchOnly},
		{Name: "mode_intent", Apply: intentGate(models.ActionSetMode, reModeIntent)},
		{Name: "payment_intent", Apply: intentGate(models.ActionSetPayment, rePayIntent)},
		{Name: "cart_index_override", Apply: cartIndexOverride},
		{Name: "cart_bounds", Apply: cartBounds},
	}
}

// whitelist keeps allowed actions and coerces their params. A candidate that
// panics while being coerced is skipped.
func whitelist(ctx Context, actions []models.Action) []models.Action {
	out := make([]models.Action, 0, len(actions))
	for _, a := range actions {
		if safe, ok := sanitize(ctx, a); ok {
			out = append(out, safe)
		}
	}
	return out
}

func sanitize(ctx Context, a models.Action) (safe models.Action, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	if a.Action == "" || !ctx.Allowed.Has(a.Action) {
		return models.Action{}, false
	}
	params := models.Params(CoerceParams(a.Params))
	if a.Action == models.ActionSearch {
		if q, has := params["query"]; has {
			if _, hasTerm := params["term"]; !hasTerm {
				params["term"] = q
				delete(params, "query")
			}
		}
	}
	return models.NewAction(a.Action, params), true
}

// intentGate removes every instance of action unless the text matches re.
func intentGate(action string, re *regexp.Regexp) func(Context, []models.Action) []models.Action {
	return func(ctx Context, actions []models.Action) []models.Action {
		if re.MatchString(ctx.Text) {
			return actions
		}
		return without(actions, action)
	}
}

// addToCartPrecondition needs a selection (a select_index in this batch or a
// selected_index in state) that points inside the results list.
func addToCartPrecondition(ctx Context, actions []models.Action) []models.Action {
	if !has(actions, models.ActionAddToCart) {
		return actions
	}

	idx, ok := 0, false
	if sel := first(actions, models.ActionSelectIndex); sel != nil {
		idx, ok = sel.Params.Int("index")
	}
	if !ok {
		idx, ok = ctx.State.Selected()
	}
	if ok && idx >= 1 && idx <= len(ctx.State.Results) {
		return actions
	}
	return without(actions, models.ActionAddToCart)
}

// searchOnly keeps only search actions when the user asked to look something
// up, and tidies their terms.
func searchOnly(ctx Context, actions []models.Action) []models.Action {
	if !reSearchOnly.MatchString(ctx.Text) {
		return actions
	}
	out := make([]models.Action, 0, len(actions))
	for _, a := range actions {
		if a.Action != models.ActionSearch {
			continue
		}
		c := a.Clone()
		c.Params["term"] = CleanSearchTerm(termOf(c.Params))
		delete(c.Params, "query")
		out = append(out, c)
	}
	return out
}

func termOf(p models.Params) string {
	v, ok := p["term"]
	if !ok || v == nil {
		v = p["query"]
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// CleanSearchTerm drops courtesy words, punctuation other than / and ", and
// leading articles.
func CleanSearchTerm(term string) string {
	term = reTermCourtesy.ReplaceAllString(term, " ")
	term = reTermPunct.ReplaceAllString(term, " ")
	term = strings.TrimSpace(reTermSpaces.ReplaceAllString(term, " "))
	return strings.TrimSpace(reTermArticles.ReplaceAllString(term, ""))
}

// TextIndex finds an explicit item index in normalized text: "item N",
// "numero N", "el N", or any bare number when the text mentions the cart.
func TextIndex(text string) (int, bool) {
	if m := reTextIndex.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	if reCartWord.MatchString(text) {
		if m := reBareIndex.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// cartIndexOverride lets the index the user spoke win over the model's.
func cartIndexOverride(ctx Context, actions []models.Action) []models.Action {
	if !reCartWord.MatchString(ctx.Text) {
		return actions
	}
	idx, ok := TextIndex(ctx.Text)
	if !ok || idx == 0 {
		return actions
	}
	out := make([]models.Action, len(actions))
	for i, a := range actions {
		if a.Action == models.ActionRemoveFromCart {
			a = a.Clone()
			a.Params["index"] = idx
		}
		out[i] = a
	}
	return out
}

// cartBounds replaces removals that cannot be applied with a question. When
// ask_user is not allowed the removal is dropped instead.
func cartBounds(ctx Context, actions []models.Action) []models.Action {
	cartLen := len(ctx.State.Cart)
	canAsk := ctx.Allowed.Has(models.ActionAskUser)

	out := make([]models.Action, 0, len(actions))
	for _, a := range actions {
		if a.Action != models.ActionRemoveFromCart {
			out = append(out, a)
			continue
		}

		question := AskCartTarget
		idx, indexed := a.Params.Int("index")
		_, named := a.Params.String("name")
		switch {
		case indexed && idx >= 1 && idx <= cartLen:
			if v, _ := a.Params["index"].(int); v != idx {
				a = a.Clone()
				a.Params["index"] = idx
			}
			out = append(out, a)
			continue
		case indexed && cartLen > 0:
			question = fmt.Sprintf(AskCartRangeFormat, cartLen)
		case named:
			// an empty cart leaves the name as the only usable target
			out = append(out, a)
			continue
		}

		if canAsk {
			out = append(out, models.AskUser(question))
		}
	}
	return out
}

func has(actions []models.Action, name string) bool {
	return first(actions, name) != nil
}

func first(actions []models.Action, name string) *models.Action {
	for i := range actions {
		if actions[i].Action == name {
			return &actions[i]
		}
	}
	return nil
}

func without(actions []models.Action, name string) []models.Action {
	if !has(actions, name) {
		return actions
	}
	out := make([]models.Action, 0, len(actions))
	for _, a := range actions {
		if a.Action != name {
			out = append(out, a)
		}
	}
	return out
}
