// Package resolve turns raw user text into canonical field values with
// confidence scoring. Each field is served by one of four strategies:
// catalog-fuzzy, enum-canonical, numeric-with-suffix, or external-validated.
package resolve

import (
	"regexp"
	"sort"
	"strings"
)

// Candidate is a scored guess produced before the accept/reject decision.
type Candidate struct {
	Value string `json:"value"`
	Score int    `json:"score"`
}

// Result is the outcome of a single resolution attempt. An empty Value with
// a non-empty candidate list means "ambiguous, ask the user to pick".
type Result struct {
	Value      string      `json:"value,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

var (
	nonAlnumRx    = regexp.MustCompile(`[^a-z0-9]+`)
	multiSpaceRx  = regexp.MustCompile(`\s+`)
	punctReplacer = strings.NewReplacer(
		"&", " and ",
		"–", "-", // en dash
		"—", "-", // em dash
		"’", "'",
		"“", `"`,
		"”", `"`,
	)
)

// clean lowercases and normalizes common punctuation variants so synonym
// and fuzzy comparisons see uniform text.
func clean(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = punctReplacer.Replace(s)
	return multiSpaceRx.ReplaceAllString(s, " ")
}

func tokens(s string) []string {
	parts := nonAlnumRx.Split(clean(s), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, t := range tokens(s) {
		set[t] = true
	}
	return set
}

func isSubset(sub, super map[string]bool) bool {
	if len(sub) == 0 {
		return false
	}
	for t := range sub {
		if !super[t] {
			return false
		}
	}
	return true
}

// rankUnique sorts candidates by descending score, deduplicates by value
// keeping the maximum score, and truncates to top.
func rankUnique(pairs []Candidate, top int) []Candidate {
	best := map[string]int{}
	order := make([]string, 0, len(pairs))
	for _, c := range pairs {
		if prev, ok := best[c.Value]; !ok {
			best[c.Value] = c.Score
			order = append(order, c.Value)
		} else if c.Score > prev {
			best[c.Value] = c.Score
		}
	}

	out := make([]Candidate, 0, len(order))
	for _, v := range order {
		out = append(out, Candidate{Value: v, Score: best[v]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}
