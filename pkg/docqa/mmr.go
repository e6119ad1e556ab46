package docqa

import "math"

func cosine(u, v []float32) float64 {
	if len(u) == 0 || len(v) == 0 {
		return 0
	}
	n := len(u)
	if len(v) < n {
		n = len(v)
	}
	var num, du, dv float64
	for i := 0; i < n; i++ {
		num += float64(u[i]) * float64(v[i])
		du += float64(u[i]) * float64(u[i])
		dv += float64(v[i]) * float64(v[i])
	}
	if du == 0 || dv == 0 {
		return 0
	}
	return num / math.Sqrt(du*dv)
}

// mmrSelect picks k passages by Maximal Marginal Relevance: each step
// takes the candidate maximizing lambda*sim(query) - (1-lambda)*max
// similarity to anything already selected.
func mmrSelect(qEmb []float32, embs [][]float32, hits []Passage, k int, lambda float64) []Passage {
	if len(hits) == 0 {
		return nil
	}
	if k > len(hits) {
		k = len(hits)
	}

	simToQuery := make([]float64, len(hits))
	for i := range hits {
		simToQuery[i] = cosine(qEmb, embs[i])
	}

	selected := make([]int, 0, k)
	remaining := map[int]bool{}
	for i := range hits {
		remaining[i] = true
	}

	// First pick: highest similarity to the query.
	first := 0
	for i := range hits {
		if simToQuery[i] > simToQuery[first] {
			first = i
		}
	}
	selected = append(selected, first)
	delete(remaining, first)

	for len(selected) < k {
		bestID := -1
		bestScore := math.Inf(-1)
		for i := range remaining {
			simToSelected := 0.0
			for _, j := range selected {
				if s := cosine(embs[i], embs[j]); s > simToSelected {
					simToSelected = s
				}
			}
			score := lambda*simToQuery[i] - (1-lambda)*simToSelected
			if score > bestScore || (score == bestScore && (bestID == -1 || i < bestID)) {
				bestScore = score
				bestID = i
			}
		}
		if bestID < 0 {
			break
		}
		selected = append(selected, bestID)
		delete(remaining, bestID)
	}

	out := make([]Passage, 0, len(selected))
	for _, i := range selected {
		out = append(out, hits[i])
	}
	return out
}
