package resolve

// Thresholds are the per-field decision bands for catalog-fuzzy
// resolution. They are configuration carried by each resolver instance, not
// shared constants.
type Thresholds struct {
	High           int // auto-accept band floor
	Accept         int // medium band floor; below this the top candidate is rejected
	NearTieDelta   int // candidates within this delta of the top form a tie cluster
	PlausibleFloor int // score counted toward the plausible cluster
	PlausibleLimit int // plausible-cluster size that forces disambiguation
	TopK           int // candidates surfaced for disambiguation
}

// DefaultThresholds is the baseline band configuration; individual fields
// override Accept (names are looser than categories).
func DefaultThresholds() Thresholds {
	return Thresholds{
		High:           90,
		Accept:         80,
		NearTieDelta:   5,
		PlausibleFloor: 80,
		PlausibleLimit: 3,
		TopK:           5,
	}
}

// Decide applies the confidence bands to a ranked candidate list.
//
// The tie guard runs before any accept band: a top score flanked by
// near-equal rivals (within NearTieDelta), or a plausible cluster of
// PlausibleLimit-or-more candidates at PlausibleFloor+, forces
// disambiguation no matter how high the top score is. This is what stops
// generic terms like "dynamics" from silently auto-selecting one of several
// overlapping families.
func Decide(cands []Candidate, th Thresholds) Result {
	if len(cands) == 0 {
		return Result{}
	}

	top := cands[0]

	nearTies := 0
	plausible := 0
	for _, c := range cands {
		if top.Score-c.Score <= th.NearTieDelta {
			nearTies++
		}
		if c.Score >= th.PlausibleFloor {
			plausible++
		}
	}
	if nearTies >= 2 || plausible >= th.PlausibleLimit {
		return Result{Candidates: topK(cands, th.TopK)}
	}

	if top.Score >= th.High {
		return Result{Value: top.Value, Candidates: cands}
	}
	if top.Score >= th.Accept {
		return Result{Value: top.Value, Candidates: cands}
	}

	return Result{Candidates: topK(cands, th.TopK)}
}

func topK(cands []Candidate, k int) []Candidate {
	if k > 0 && len(cands) > k {
		return cands[:k]
	}
	return cands
}
