package resolve

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

const (
	fuzzyCutoff = 60 // candidates scoring below this are not worth surfacing
	fuzzyLimit  = 8
)

// fuzzyHits scores the message against each canonical choice with two
// complementary scorers and keeps the better of the two per choice:
// token-set ratio handles word reordering, partial ratio handles substring
// matches ("envisioning workshop" inside a longer catalog name).
func fuzzyHits(msg string, choices []string) []Candidate {
	if msg == "" || len(choices) == 0 {
		return nil
	}
	msgClean := clean(msg)

	var out []Candidate
	for _, choice := range choices {
		choiceClean := clean(choice)
		if choiceClean == "" {
			continue
		}
		score := fuzzy.TokenSetRatio(msgClean, choiceClean)
		if partial := fuzzy.PartialRatio(msgClean, choiceClean); partial > score {
			score = partial
		}
		if score >= fuzzyCutoff {
			out = append(out, Candidate{Value: choice, Score: score})
		}
	}

	return rankUnique(out, fuzzyLimit)
}
