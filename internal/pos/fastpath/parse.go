// internal/pos/fastpath/parse.go
package fastpath

import (
	"regexp"
	"strconv"
)

var (
	reItemIndex = regexp.MustCompile(`\bitems?\s*(?:numero\s*)?(\d+)\b`)
	reElIndex   = regexp.MustCompile(`\bel\s*(\d+)\b`)

	reQtyAbs   = regexp.MustCompile(`\b(?:cantidad|dejalo en|deja en|poner cantidad|pone cantidad|pone en|ajusta a|ajustar a)\s*(\d+)\b`)
	reQtySet   = regexp.MustCompile(`\b(?:agregado|agrega(?:r|do)?|puesto|pone(?:r|do)?)\s*a\s*(\d+)\b`)
	reQtyUnits = regexp.MustCompile(`\ba\s*(\d+)\s*unidades?\b`)
	reQtyPlus  = regexp.MustCompile(`\b(?:sumale|agregale|aumenta|subi|subile|sumar|agregar)\s*(\d+)\b`)
	reQtyMinus = regexp.MustCompile(`\b(?:sacale|quitale|disminui|baja|bajale|restale|restar)\s*(\d+)\b`)
	reQtyAdd   = regexp.MustCompile(`\b(?:agrega|agregar|pone|poner|sumar)\b.*\b(\d+)\b`)
)

// QtyOps is the quantity intent found in an utterance.
type QtyOps struct {
	Abs        *int
	DeltaPlus  *int
	DeltaMinus *int
}

func (q QtyOps) HasDelta() bool {
	return (q.DeltaPlus != nil && *q.DeltaPlus != 0) || (q.DeltaMinus != nil && *q.DeltaMinus != 0)
}

func (q QtyOps) Plus() int  { return deref(q.DeltaPlus) }
func (q QtyOps) Minus() int { return deref(q.DeltaMinus) }

// ParseIndex extracts a 1-based selection index from normalized text:
// "item N", "item numero N", then "el N".
func ParseIndex(text string) *int {
	for _, re := range []*regexp.Regexp{reItemIndex, reElIndex} {
		if n, ok := firstInt(re, text); ok {
			return &n
		}
	}
	return nil
}

// ParseQtyOps extracts an absolute quantity and relative deltas from
// normalized text.
func ParseQtyOps(text string) QtyOps {
	var q QtyOps
	for _, re := range []*regexp.Regexp{reQtyAbs, reQtySet, reQtyUnits} {
		if n, ok := firstInt(re, text); ok {
			q.Abs = &n
			break
		}
	}
	if n, ok := firstInt(reQtyPlus, text); ok {
		q.DeltaPlus = &n
	}
	if n, ok := firstInt(reQtyMinus, text); ok {
		q.DeltaMinus = &n
	}
	// "agregar ... N" reads as an absolute quantity when nothing else did.
	if q.Abs == nil {
		if n, ok := firstInt(reQtyAdd, text); ok {
			q.Abs = &n
		}
	}
	return q
}

func firstInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
