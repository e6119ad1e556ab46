package resolve

import (
	"context"
	"regexp"
)

// advisoryScore is attached to the full enum set when nothing matched, so
// the disambiguation UI can still offer the options.
const advisoryScore = 92

// EnumResolver canonicalizes small fixed enums: synonym phrases first, then
// regex fallback, then identity for already-canonical input. No fuzzy
// scoring. When unresolved, the candidate list is the whole enum at an
// advisory score.
type EnumResolver struct {
	values   []string
	synonyms SynonymTable
	patterns []enumPattern
}

type enumPattern struct {
	rx    *regexp.Regexp
	value string
}

func NewEnumResolver(values []string, synonyms SynonymTable) *EnumResolver {
	return &EnumResolver{values: values, synonyms: synonyms}
}

// WithPattern adds a regex fallback mapping to a canonical value. Patterns
// run in registration order after synonym matching.
func (r *EnumResolver) WithPattern(pattern, value string) *EnumResolver {
	r.patterns = append(r.patterns, enumPattern{rx: regexp.MustCompile(pattern), value: value})
	return r
}

func (r *EnumResolver) Resolve(_ context.Context, text string) (Result, error) {
	t := clean(text)
	if t == "" {
		return Result{Candidates: r.fullSet()}, nil
	}

	// 1) synonym phrases (containment either direction)
	if hits := synonymHits(t, r.synonyms, SynonymScores{Exact: 100, Contains: 98, TokenSubset: 95}); len(hits) > 0 {
		ranked := rankUnique(hits, 0)
		if ranked[0].Score >= 95 && (len(ranked) == 1 || ranked[0].Score > ranked[1].Score) {
			return Result{Value: ranked[0].Value, Candidates: []Candidate{{Value: ranked[0].Value, Score: 100}}}, nil
		}
	}

	// 2) regex fallback
	for _, p := range r.patterns {
		if p.rx.MatchString(t) {
			return Result{Value: p.value, Candidates: []Candidate{{Value: p.value, Score: 100}}}, nil
		}
	}

	// 3) already canonical
	for _, v := range r.values {
		if t == v {
			return Result{Value: v, Candidates: []Candidate{{Value: v, Score: 100}}}, nil
		}
	}

	return Result{Candidates: r.fullSet()}, nil
}

func (r *EnumResolver) fullSet() []Candidate {
	out := make([]Candidate, 0, len(r.values))
	for _, v := range r.values {
		out = append(out, Candidate{Value: v, Score: advisoryScore})
	}
	return out
}

// Canonical enum domains for the incentive catalog.
var (
	IncentiveTypes = []string{"pre_sales", "csp_transaction"}
	Segments       = []string{"enterprise", "smec"}
)

// NewIncentiveTypeResolver detects pre-sales vs CSP-transaction phrasing.
func NewIncentiveTypeResolver() *EnumResolver {
	return NewEnumResolver(IncentiveTypes, SynonymTable{
		"pre_sales": {
			"funded", "funded engagement", "funded program", "funded offer",
			"workshop", "immersion", "immersion workshop", "briefing",
			"envisioning", "assessment", "readiness assessment",
			"discovery", "scoping session", "poc", "proof of concept", "pilot",
		},
		"csp_transaction": {
			"csp", "cloud solution provider", "csp transaction",
			"csp billed", "csp revenue", "csp sale",
		},
	}).
		WithPattern(`\b(pre[\s\-]?sales?|presales?)\b`, "pre_sales").
		WithPattern(`\bcsp\b`, "csp_transaction")
}

// NewSegmentResolver detects the enterprise vs small/midsize segment.
func NewSegmentResolver() *EnumResolver {
	return NewEnumResolver(Segments, SynonymTable{}).
		WithPattern(`\b(ent|enterprise|large)\b`, "enterprise").
		WithPattern(`\b(smb|sme|smec|mid|midsize|small|medium)\b`, "smec")
}
