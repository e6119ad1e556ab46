package grammar

// SelectorConfig controls the branch selector's tie-break policy.
//
// DefaultToCategoryPair keeps the historical behavior: when neither the
// single-field branch nor the pair branch is backed by evidence from the
// current message, the pair branch is still picked as the default, on the
// assumption that users filter by category more often than by exact name.
// It is configuration, not a constant, because the alternative (asking the
// user "by name or by category?") is a legitimate product choice.
type SelectorConfig struct {
	DefaultToCategoryPair bool
}

// SelectBranch picks exactly one active branch given the fields the current
// message resolved. The priority order is fixed:
//
//  1. a single-field branch whose field the message resolved
//  2. a two-field branch where the message resolved both fields
//  3. the first two-field branch as default (when configured)
//  4. the first declared branch
//
// Selection is deterministic for identical (branches, resolved) inputs
// regardless of how the rules interleave with declaration order: each
// priority class is scanned over all branches before the next class is
// considered, and declaration order only breaks ties within a class.
func SelectBranch(branches []Branch, resolved map[string]bool, cfg SelectorConfig) Branch {
	if len(branches) == 0 {
		return nil
	}

	// Rule 1: decisive single-field branch.
	for _, b := range branches {
		if len(b) == 1 && resolved[b[0]] {
			return b
		}
	}

	// Rule 2: pair branch with both fields resolved.
	for _, b := range branches {
		if len(b) == 2 && resolved[b[0]] && resolved[b[1]] {
			return b
		}
	}

	// Rule 3: pair branch as documented default.
	if cfg.DefaultToCategoryPair {
		for _, b := range branches {
			if len(b) == 2 {
				return b
			}
		}
	}

	// Rule 4: first declared branch.
	return branches[0]
}
