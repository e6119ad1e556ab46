package resolve

import (
	"context"
)

// ChoiceSource supplies the canonical value list and synonym table for a
// catalog-backed field. Lists come from the catalog cache so a refresh is
// picked up without restarting.
type ChoiceSource interface {
	Choices(ctx context.Context) ([]string, error)
	Synonyms(ctx context.Context) (SynonymTable, error)
}

// CatalogFuzzyResolver resolves proper-name and category fields: synonym
// tiers first, then the two fuzzy scorers over the canonical list, merged,
// deduplicated by max score, and pushed through the confidence bands.
type CatalogFuzzyResolver struct {
	source     ChoiceSource
	thresholds Thresholds
	synScores  SynonymScores
}

func NewCatalogFuzzyResolver(source ChoiceSource, thresholds Thresholds) *CatalogFuzzyResolver {
	return &CatalogFuzzyResolver{
		source:     source,
		thresholds: thresholds,
		synScores:  DefaultSynonymScores(),
	}
}

func (r *CatalogFuzzyResolver) Resolve(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, nil
	}

	synonyms, err := r.source.Synonyms(ctx)
	if err != nil {
		return Result{}, err
	}
	choices, err := r.source.Choices(ctx)
	if err != nil {
		return Result{}, err
	}

	// Synonym keys extend the choice list so a canonical known only to the
	// synonym table still surfaces.
	seen := map[string]bool{}
	for _, c := range choices {
		seen[c] = true
	}
	for canon := range synonyms {
		if !seen[canon] {
			choices = append(choices, canon)
		}
	}

	pairs := synonymHits(text, synonyms, r.synScores)
	pairs = append(pairs, fuzzyHits(text, choices)...)
	cands := rankUnique(pairs, fuzzyLimit)

	return Decide(cands, r.thresholds), nil
}
