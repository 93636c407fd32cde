//go:build property

// internal/pos/normalize/normalize_property_test.go
package normalize

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var vocabulary = []string{
	"dos", "tres", "cuartos", "un", "cuarto", "media", "medio", "pulgada",
	"treinta", "y", "cinco", "cañon", "canyo", "cano", "ítem", "número",
	"el", "tercero", "carrito", "½", "”", "°", "¡", "!", ",", "mm", "20",
	"1/2", "borrá", "último", "Agregá",
}

func TestNormalize_IdempotentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("normalize is idempotent on arbitrary text", prop.ForAll(
		func(s string) bool {
			first := Normalize(s)
			return cmp.Equal(first, Normalize(first.Text))
		},
		gen.AnyString(),
	))

	properties.Property("normalize is idempotent on domain phrases", prop.ForAll(
		func(picks []int) bool {
			words := make([]string, len(picks))
			for i, p := range picks {
				words[i] = vocabulary[p]
			}
			first := Normalize(strings.Join(words, " "))
			return cmp.Equal(first, Normalize(first.Text))
		},
		gen.SliceOf(gen.IntRange(0, len(vocabulary)-1)),
	))

	properties.TestingRun(t)
}
