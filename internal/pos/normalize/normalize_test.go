// internal/pos/normalize/normalize_test.go
package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestNormalize_Text(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "blank", in: "   \t ", want: ""},
		{name: "accents and case", in: "Modo FACTURA", want: "modo factura"},
		{name: "item with accent", in: "Ítem 1 agregar 3", want: "item 1 agregar 3"},
		{name: "asr correction", in: "cañon 20 mm poneme dos", want: "caño 20 mm poneme 2"},
		{name: "canyo", in: "canyo de agua", want: "caño de agua"},
		{name: "cano", in: "CANO 25", want: "caño 25"},
		{name: "spelled units", in: "dos codos", want: "2 codos"},
		{name: "teens", in: "dieciséis tornillos", want: "16 tornillos"},
		{name: "decade and unit", in: "treinta y cinco metros", want: "35 metros"},
		{name: "bare decade", in: "cuarenta", want: "40"},
		{name: "ordinal", in: "sacá el tercero del carrito", want: "saca el 3 del carrito"},
		{name: "tres cuartos", in: "llave de tres cuartos", want: "llave de 3/4"},
		{name: "un cuarto", in: "un cuarto de pulgada", want: "1/4 de pulgada"},
		{name: "media pulgada", in: "caño de media pulgada", want: "caño de 1/2 in"},
		{name: "medio alone", in: "medio metro", want: "0.5 metro"},
		{name: "fraction glyph", in: "Codo ½”", want: `codo 1/2"`},
		{name: "degree sign", in: "curva 90°", want: "curva 90"},
		{name: "punctuation", in: "¡Agregá dos, por favor!", want: "agrega 2 por favor"},
		{name: "glued punctuation", in: "tres,cuartos", want: "3/4"},
		{name: "keeps hyphen and dot", in: "PVC-3.2 mm", want: "pvc-3.2 mm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in).Text)
		})
	}
}

func TestNormalize_Units(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		wantMM *int
		wantIn *float64
	}{
		{name: "no units", in: "agregar 3", wantMM: nil, wantIn: nil},
		{name: "mm spaced", in: "caño 20 mm", wantMM: intPtr(20)},
		{name: "mm glued", in: "codo 32mm", wantMM: intPtr(32)},
		{name: "fraction", in: "llave 3/4", wantIn: floatPtr(0.75)},
		{name: "spelled fraction", in: "media pulgada", wantIn: floatPtr(0.5)},
		{name: "decimal inches", in: "caño 2.5 pulgadas", wantIn: floatPtr(2.5)},
		{name: "single pulgada", in: "una pulgada", wantIn: floatPtr(1)},
		{name: "pulg", in: "rosca 2 pulg", wantIn: floatPtr(2)},
		{name: "in", in: "1.25 in", wantIn: floatPtr(1.25)},
		{name: "quote", in: `niple 1"`, wantIn: floatPtr(1)},
		{name: "both", in: "reduccion 1/2 a 20 mm", wantMM: intPtr(20), wantIn: floatPtr(0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Normalize(tt.in).Units
			assert.Equal(t, tt.wantMM, u.MM)
			assert.Equal(t, tt.wantIn, u.In)
		})
	}
}

func TestNormalize_Tokens(t *testing.T) {
	got := Normalize("  Ítem   uno  ")
	assert.Equal(t, []string{"item", "1"}, got.Tokens)

	empty := Normalize("")
	require.NotNil(t, empty.Tokens)
	assert.Empty(t, empty.Tokens)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"cañon 20 mm poneme dos",
		"¡Agregá dos!",
		"Caño ½” x 3 metros",
		"borrá el último del carrito",
		"treinta y un cuarto",
		"medio, pulgada",
		"canon canyo cano",
		"°º”“″′",
	}
	for _, in := range inputs {
		first := Normalize(in)
		second := Normalize(first.Text)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Normalize(%q) not idempotent (-first +second):\n%s", in, diff)
		}
	}
}

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "aeiou n u", StripAccents("áéíóú ñ ü"))
	assert.Equal(t, "plain", StripAccents("plain"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "cano pvc", Fold("  Caño PVC "))
}

func TestNominalTable(t *testing.T) {
	tbl := DefaultNominalTable()

	mm, ok := tbl.MM(1)
	assert.True(t, ok)
	assert.Equal(t, 32, mm)

	mm, ok = NominalMM(0.5)
	assert.True(t, ok)
	assert.Equal(t, 20, mm)

	_, ok = tbl.MM(7)
	assert.False(t, ok)

	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 2, 2.5, 3}, tbl.Inches())
}

func TestNominalTableFromStrings(t *testing.T) {
	tbl := NominalTableFromStrings(map[string]int{
		"1/2": 20,
		"1":   32,
		"bad": 99,
		"-1":  10,
	})
	assert.Len(t, tbl, 2)

	mm, ok := tbl.MM(0.5)
	assert.True(t, ok)
	assert.Equal(t, 20, mm)
}
