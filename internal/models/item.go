// internal/models/item.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Item is a catalog row as returned by the ERP or the search index.
type Item map[string]interface{}

// Code returns the item identity (item_code, falling back to name).
func (it Item) Code() string {
	for _, k := range []string{"item_code", "name"} {
		if v, ok := it[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// IndexFields returns the raw text the resolver compares against, in a
// fixed field order.
func (it Item) IndexFields() []string {
	parts := []string{
		it.Code(),
		it.str("item_name"),
		it.str("description"),
		it.str("item_group"),
		it.str("brand"),
		it.str("attributes"),
		it.str("item_attributes"),
	}
	if codes, ok := it["item_barcode"].([]interface{}); ok {
		for _, c := range codes {
			parts = append(parts, fmt.Sprint(c))
		}
	}
	return parts
}

func (it Item) str(key string) string {
	switch v := it[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ScoredItem is a resolver candidate. It serialises flat, with the score
// next to the item fields.
type ScoredItem struct {
	Score float64
	Item  Item
}

func (s ScoredItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Item)+1)
	for k, v := range s.Item {
		out[k] = v
	}
	out["score"] = s.Score
	return json.Marshal(out)
}

// ResolutionResult is the outcome of fuzzy item resolution.
type ResolutionResult struct {
	Best                 Item         `json:"best"`
	Candidates           []ScoredItem `json:"candidates"`
	ResolutionConfidence float64      `json:"resolution_confidence"`
}

// Units holds measurements extracted from an utterance.
type Units struct {
	MM *int     `json:"mm"`
	In *float64 `json:"in"`
}

// NormalizedUtterance is the canonical form of one command.
type NormalizedUtterance struct {
	Text   string   `json:"text"`
	Tokens []string `json:"tokens"`
	Units  Units    `json:"units"`
}

// PaymentMethod is an enabled ERP mode of payment.
type PaymentMethod struct {
	Name     string           `json:"name"`
	Accounts []PaymentAccount `json:"accounts"`
}

type PaymentAccount struct {
	Company string `json:"company"`
	Account string `json:"account"`
}

// PaymentMethodNames flattens a list of methods to their names.
func PaymentMethodNames(methods []PaymentMethod) []string {
	names := make([]string, 0, len(methods))
	for _, m := range methods {
		if n := strings.TrimSpace(m.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}
