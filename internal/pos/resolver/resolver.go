// internal/pos/resolver/resolver.go

// Package resolver ranks catalog items against a free-text query and blends
// its confidence with the planner's.
package resolver

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/normalize"
)

// Config holds the tunable scoring parameters.
type Config struct {
	MaxCandidates int
	MMBonus       float64
	FractionBonus float64
	Nominal       normalize.NominalTable
}

func DefaultConfig() Config {
	return Config{
		MaxCandidates: 5,
		MMBonus:       0.08,
		FractionBonus: 0.06,
		Nominal:       normalize.DefaultNominalTable(),
	}
}

// Resolver scores candidates. It holds only immutable configuration.
type Resolver struct {
	cfg Config
}

func New(cfg Config) *Resolver {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultConfig().MaxCandidates
	}
	return &Resolver{cfg: cfg}
}

var reFractionToken = regexp.MustCompile(`\b(1/4|1/2|3/4)\b`)

// Resolve ranks candidates with the default configuration.
func Resolve(query string, candidates []models.Item) models.ResolutionResult {
	return New(DefaultConfig()).Resolve(query, candidates)
}

// Resolve ranks candidates by token-sort similarity plus measurement
// bonuses. The sort is stable, so equal scores keep catalog order.
func (r *Resolver) Resolve(query string, candidates []models.Item) models.ResolutionResult {
	if len(candidates) == 0 {
		return models.ResolutionResult{Candidates: []models.ScoredItem{}}
	}

	nq := normalize.Normalize(query)
	q := normalize.StripAccents(nq.Text)
	mmRes := mmPatterns(r.wantedMM(nq.Units))
	var fracPattern *regexp.Regexp
	if frac := reFractionToken.FindString(q); frac != "" {
		fracPattern = regexp.MustCompile(`\b` + regexp.QuoteMeta(frac) + `\b`)
	}

	ranked := make([]models.ScoredItem, 0, len(candidates))
	for _, it := range candidates {
		text := IndexText(it)
		score := TokenSortRatio(q, text)
		if matchesAny(text, mmRes) {
			score += r.cfg.MMBonus
		}
		if fracPattern != nil && fracPattern.MatchString(text) {
			score += r.cfg.FractionBonus
		}
		ranked = append(ranked, models.ScoredItem{Score: score, Item: it})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	best := ranked[0]
	n := r.cfg.MaxCandidates
	if n > len(ranked) {
		n = len(ranked)
	}
	top := make([]models.ScoredItem, n)
	for i := 0; i < n; i++ {
		top[i] = models.ScoredItem{Score: round3(ranked[i].Score), Item: ranked[i].Item}
	}

	return models.ResolutionResult{
		Best:                 best.Item,
		Candidates:           top,
		ResolutionConfidence: clamp01(best.Score),
	}
}

// wantedMM lists the millimetre values that earn the bonus: the one spoken
// and the nominal size of a spoken inch measure.
func (r *Resolver) wantedMM(u models.Units) []int {
	var out []int
	if u.MM != nil {
		out = append(out, *u.MM)
	}
	if u.In != nil && r.cfg.Nominal != nil {
		if mm, ok := r.cfg.Nominal.MM(*u.In); ok && (u.MM == nil || *u.MM != mm) {
			out = append(out, mm)
		}
	}
	return out
}

func mmPatterns(values []int) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(values))
	for i, v := range values {
		out[i] = regexp.MustCompile(`\b` + strconv.Itoa(v) + `\s*mm\b`)
	}
	return out
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// IndexText is the folded text a candidate is compared on.
func IndexText(it models.Item) string {
	return normalize.Fold(strings.Join(it.IndexFields(), " "))
}

// TokenSortRatio compares two strings after sorting their tokens. The result
// is 1 - levenshtein/maxlen, in [0,1].
func TokenSortRatio(a, b string) float64 {
	sa, sb := sortTokens(a), sortTokens(b)
	if sa == "" && sb == "" {
		return 1
	}
	maxLen := utf8.RuneCountInString(sa)
	if l := utf8.RuneCountInString(sb); l > maxLen {
		maxLen = l
	}
	d := levenshtein.ComputeDistance(sa, sb)
	return 1 - float64(d)/float64(maxLen)
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
