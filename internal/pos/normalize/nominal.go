// internal/pos/normalize/nominal.go
package normalize

import (
	"math"
	"sort"
	"strconv"
)

// NominalTable maps an inch measure to the nominal pipe size in millimetres.
type NominalTable map[float64]int

// DefaultNominalTable is the table used when configuration does not set one.
func DefaultNominalTable() NominalTable {
	return NominalTable{
		0.25: 16,
		0.5:  20,
		0.75: 25,
		1:    32,
		1.25: 40,
		1.5:  50,
		2:    63,
		2.5:  75,
		3:    90,
	}
}

// NominalTableFromStrings builds a table from config keys such as "0.5" or "1/2".
// Keys that do not parse are ignored.
func NominalTableFromStrings(raw map[string]int) NominalTable {
	t := make(NominalTable, len(raw))
	for k, v := range raw {
		if f, ok := fractions[k]; ok {
			t[f] = v
			continue
		}
		if f, err := strconv.ParseFloat(k, 64); err == nil && f > 0 {
			t[f] = v
		}
	}
	return t
}

// MM returns the nominal size for an inch value.
func (t NominalTable) MM(inches float64) (int, bool) {
	for in, mm := range t {
		if math.Abs(in-inches) < 1e-9 {
			return mm, true
		}
	}
	return 0, false
}

// NominalMM looks inches up in the default table.
func NominalMM(inches float64) (int, bool) {
	return DefaultNominalTable().MM(inches)
}

// Inches lists the table keys in ascending order.
func (t NominalTable) Inches() []float64 {
	keys := make([]float64, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	return keys
}
