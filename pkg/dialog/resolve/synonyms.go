package resolve

import "strings"

// SynonymTable maps canonical values to their accepted phrasings.
type SynonymTable map[string][]string

// SynonymScores are the descending tiers awarded by synonym matching.
type SynonymScores struct {
	Exact       int // message equals the canonical or a synonym
	Contains    int // containment in either direction
	TokenSubset int // token set of one side is a subset of the other
}

// DefaultSynonymScores matches catalog names and workloads.
func DefaultSynonymScores() SynonymScores {
	return SynonymScores{Exact: 100, Contains: 96, TokenSubset: 93}
}

// synonymHits generates (canonical, score) candidates from a synonym table.
// Tiers, best first: exact clean match, containment either direction, token
// subset either direction. Containment both ways handles prefix/suffix
// phrasings; subset handles reordered partials.
func synonymHits(msg string, table SynonymTable, scores SynonymScores) []Candidate {
	if msg == "" || len(table) == 0 {
		return nil
	}
	msgClean := clean(msg)
	msgTokens := tokenSet(msg)

	var out []Candidate
	for canon, alts := range table {
		canonClean := clean(canon)
		if msgClean == canonClean {
			out = append(out, Candidate{Value: canon, Score: scores.Exact})
			continue
		}

		for _, alt := range alts {
			altClean := clean(alt)
			if altClean == "" {
				continue
			}
			if msgClean == altClean {
				out = append(out, Candidate{Value: canon, Score: scores.Exact})
				break
			}
			if strings.Contains(altClean, msgClean) || strings.Contains(msgClean, altClean) {
				out = append(out, Candidate{Value: canon, Score: scores.Contains})
				break
			}
			altTokens := tokenSet(alt)
			if isSubset(altTokens, msgTokens) || isSubset(msgTokens, altTokens) {
				out = append(out, Candidate{Value: canon, Score: scores.TokenSubset})
				break
			}
		}
	}
	return out
}
