package resolve

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// suffixMultipliers maps magnitude suffixes to multipliers, including the
// Indian-numbering lakh/crore forms.
var suffixMultipliers = map[string]float64{
	"k":     1_000,
	"m":     1_000_000,
	"b":     1_000_000_000,
	"bn":    1_000_000_000,
	"l":     100_000,
	"lac":   100_000,
	"lakh":  100_000,
	"cr":    10_000_000,
	"crore": 10_000_000,
}

// amountRx tolerates currency symbols, grouping separators (1,20,000 style
// included), decimals, and magnitude suffixes, with an optional trailing
// currency code.
var amountRx = regexp.MustCompile(
	`(?i)(?:[$₹€£]\s*)?` +
		`(\d{1,3}(?:[,\s]?\d{2,3})+|\d+(?:\.\d+)?)` +
		`\s*(k|m|bn|b|l|lac|lakh|cr|crore)?\b` +
		`(?:\s*(usd|inr|eur|gbp))?`)

// normalizeNumber renders a float as a plain decimal string: no scientific
// notation, no trailing fractional part on integral values.
func normalizeNumber(x float64) string {
	if x == math.Trunc(x) && math.Abs(x) < 1e15 {
		return strconv.FormatInt(int64(x), 10)
	}
	s := strconv.FormatFloat(x, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" {
		return "0"
	}
	return s
}

// AmountResolver parses a monetary amount (e.g. annual contract value) from
// free text. When several numbers appear it prefers the one nearest a
// context keyword, else the largest. Currency markers are stripped; the
// downstream treats amounts as USD.
type AmountResolver struct {
	contextRx *regexp.Regexp
}

func NewAmountResolver(contextKeywords ...string) *AmountResolver {
	if len(contextKeywords) == 0 {
		contextKeywords = []string{"acv", "annual", "contract", "deal", "oppty", "opportunity", "value", "revenue"}
	}
	return &AmountResolver{
		contextRx: regexp.MustCompile(`(?i)\b(` + strings.Join(contextKeywords, "|") + `)\b`),
	}
}

func (r *AmountResolver) Resolve(_ context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, nil
	}

	type hit struct {
		value float64
		pos   int
	}
	var hits []hit

	for _, m := range amountRx.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[2]:m[3]]
		raw = strings.Map(func(r rune) rune {
			if r == ',' || r == ' ' {
				return -1
			}
			return r
		}, raw)
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if m[4] >= 0 {
			suffix := strings.ToLower(text[m[4]:m[5]])
			if mult, ok := suffixMultipliers[suffix]; ok {
				val *= mult
			}
		}
		hits = append(hits, hit{value: val, pos: m[0]})
	}

	if len(hits) == 0 {
		return Result{}, nil
	}

	ctxPositions := []int{}
	for _, m := range r.contextRx.FindAllStringIndex(text, -1) {
		ctxPositions = append(ctxPositions, m[0])
	}

	chosen := hits[0]
	if len(ctxPositions) > 0 {
		bestDist := math.MaxInt
		for _, h := range hits {
			dist := math.MaxInt
			for _, cp := range ctxPositions {
				if d := abs(h.pos - cp); d < dist {
					dist = d
				}
			}
			if dist < bestDist || (dist == bestDist && h.value > chosen.value) {
				bestDist = dist
				chosen = h
			}
		}
	} else {
		for _, h := range hits {
			if h.value > chosen.value {
				chosen = h
			}
		}
	}

	return Result{Value: normalizeNumber(chosen.value)}, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

var hoursRx = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours)\b`)

// DurationResolver parses an hour count. An explicit unit token is
// required; when several appear, the last mention wins.
type DurationResolver struct{}

func NewDurationResolver() *DurationResolver {
	return &DurationResolver{}
}

func (r *DurationResolver) Resolve(_ context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, nil
	}

	matches := hoursRx.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return Result{}, nil
	}

	last := matches[len(matches)-1][1]
	val, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return Result{}, nil
	}
	return Result{Value: normalizeNumber(val)}, nil
}
