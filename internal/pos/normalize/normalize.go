// internal/pos/normalize/normalize.go

// Package normalize turns a raw Spanish (es-AR) POS utterance into its
// canonical form: accent-free, lower-case, numbers as digits, domain units
// and common speech-recognition slips corrected.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pos-interpreter/internal/models"
)

var glyphs = strings.NewReplacer(
	"½", "1/2",
	"¼", "1/4",
	"¾", "3/4",
	"”", `"`,
	"“", `"`,
	"″", `"`,
	"′", "'",
	"º", "",
	"°", "",
)

var numberWords = map[string]float64{
	"cero": 0, "uno": 1, "una": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10, "once": 11,
	"doce": 12, "trece": 13, "catorce": 14, "quince": 15, "dieciseis": 16,
	"diecisiete": 17, "dieciocho": 18, "diecinueve": 19, "veinte": 20,
	"veintiuno": 21, "veintidos": 22, "veintitres": 23, "veinticuatro": 24,
	"veinticinco": 25, "veintiseis": 26, "veintisiete": 27, "veintiocho": 28,
	"veintinueve": 29,
	"treinta": 30, "cuarenta": 40, "cincuenta": 50, "sesenta": 60,
	"setenta": 70, "ochenta": 80, "noventa": 90,
	"media": 0.5, "medio": 0.5,
}

var ordinalWords = map[string]string{
	"primero": "1", "segundo": "2", "tercero": "3", "cuarto": "4", "quinto": "5",
}

// phonetic maps frequent ASR mistakes to the intended domain term.
var phonetic = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`\bcanon\b`), "caño"},
	{regexp.MustCompile(`\bcanyo\b`), "caño"},
	{regexp.MustCompile(`\bcano\b`), "caño"},
}

var (
	reTresCuartos  = regexp.MustCompile(`\btres\s+cuartos\b`)
	reUnCuarto     = regexp.MustCompile(`\bun\s+cuarto\b`)
	reMediaPulgada = regexp.MustCompile(`\b(?:media|medio)\s+pulgadas?\b`)
	reOrdinal      = regexp.MustCompile(`\b(primero|segundo|tercero|cuarto|quinto)\b`)
	reDecadeUnit   = regexp.MustCompile(`\b(treinta|cuarenta|cincuenta|sesenta|setenta|ochenta|noventa)\s+y\s+(uno|una|dos|tres|cuatro|cinco|seis|siete|ocho|nueve)\b`)
	reOutside      = regexp.MustCompile(`[^a-z0-9/.\s"'-]`)
	reSpaces       = regexp.MustCompile(`\s+`)

	reMM       = regexp.MustCompile(`\b(\d{1,3})\s*mm\b`)
	reFraction = regexp.MustCompile(`\b(1/4|1/2|3/4)\b`)
	reInch     = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(?:in\b|pulgadas?\b|pulg\b|")`)
)

var fractions = map[string]float64{"1/4": 0.25, "1/2": 0.5, "3/4": 0.75}

// Normalize is pure and idempotent on its own output text.
func Normalize(text string) models.NormalizedUtterance {
	if strings.TrimSpace(text) == "" {
		return models.NormalizedUtterance{Tokens: []string{}}
	}

	s := glyphs.Replace(text)
	s = strings.ToLower(StripAccents(s))
	// Punctuation glued to a number word ("dos!") would otherwise only be
	// separated after conversion, leaving work for a second pass.
	s = filter(s)
	s = replaceSpelledNumbers(s)
	s = filter(s)

	for _, p := range phonetic {
		s = p.re.ReplaceAllString(s, p.with)
	}
	s = collapse(s)

	return models.NormalizedUtterance{
		Text:   s,
		Tokens: tokens(s),
		Units:  extractUnits(s),
	}
}

// Text is a shorthand for Normalize(text).Text.
func Text(text string) string {
	return Normalize(text).Text
}

// StripAccents removes combining marks after NFKD decomposition.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold is the light normalisation applied to catalog text: accents
// stripped, lower-cased, trimmed.
func Fold(s string) string {
	return strings.TrimSpace(strings.ToLower(StripAccents(s)))
}

func replaceSpelledNumbers(text string) string {
	s := " " + text + " "
	s = reTresCuartos.ReplaceAllString(s, " 3/4 ")
	s = reUnCuarto.ReplaceAllString(s, " 1/4 ")
	s = reMediaPulgada.ReplaceAllString(s, " 1/2 in ")

	s = reOrdinal.ReplaceAllStringFunc(s, func(w string) string {
		return " " + ordinalWords[w] + " "
	})

	s = reDecadeUnit.ReplaceAllStringFunc(s, func(m string) string {
		parts := reDecadeUnit.FindStringSubmatch(m)
		return " " + strconv.Itoa(int(numberWords[parts[1]]+numberWords[parts[2]])) + " "
	})

	fields := strings.Fields(s)
	for i, tok := range fields {
		if v, ok := numberWords[tok]; ok {
			fields[i] = formatNumber(v)
		}
	}
	return strings.Join(fields, " ")
}

func formatNumber(v float64) string {
	if v == float64(int(v)) {
		return strconv.Itoa(int(v))
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func filter(s string) string {
	return collapse(reOutside.ReplaceAllString(s, " "))
}

func collapse(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

func tokens(s string) []string {
	out := strings.Fields(s)
	if out == nil {
		return []string{}
	}
	return out
}

func extractUnits(s string) models.Units {
	var u models.Units
	if m := reMM.FindStringSubmatch(s); m != nil {
		if mm, err := strconv.Atoi(m[1]); err == nil {
			u.MM = &mm
		}
	}
	if m := reFraction.FindStringSubmatch(s); m != nil {
		in := fractions[m[1]]
		u.In = &in
	} else if m := reInch.FindStringSubmatch(s); m != nil {
		if in, err := strconv.ParseFloat(m[1], 64); err == nil {
			u.In = &in
		}
	}
	return u
}
