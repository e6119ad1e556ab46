package grammar

import (
	"math/rand"
	"testing"
)

func TestParseExpression(t *testing.T) {
	tests := []struct {
		name         string
		expr         string
		wantBranches []Branch
	}{
		{
			name:         "single field",
			expr:         "name",
			wantBranches: []Branch{{"name"}},
		},
		{
			name:         "alternation with group",
			expr:         "name | (workload,incentive_type)",
			wantBranches: []Branch{{"name"}, {"workload", "incentive_type"}},
		},
		{
			name:         "parenthesized single alternative",
			expr:         "(a,b)",
			wantBranches: []Branch{{"a", "b"}},
		},
		{
			name:         "comma group without parens",
			expr:         "workload, incentive_type",
			wantBranches: []Branch{{"workload", "incentive_type"}},
		},
		{
			name:         "whitespace insignificant",
			expr:         "  name |  ( workload , incentive_type ) ",
			wantBranches: []Branch{{"name"}, {"workload", "incentive_type"}},
		},
		{
			name:         "unbalanced parens degrade to best effort",
			expr:         "(workload,incentive_type",
			wantBranches: []Branch{{"workload", "incentive_type"}},
		},
		{
			name:         "empty expression",
			expr:         "",
			wantBranches: nil,
		},
		{
			name:         "triple alternation",
			expr:         "a | b | (c,d)",
			wantBranches: []Branch{{"a"}, {"b"}, {"c", "d"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseExpression(tt.expr)
			if len(got) != len(tt.wantBranches) {
				t.Fatalf("branch count = %d, want %d (%v)", len(got), len(tt.wantBranches), got)
			}
			for i, b := range got {
				if !b.Equal(tt.wantBranches[i]) {
					t.Errorf("branch %d = %v, want %v", i, b, tt.wantBranches[i])
				}
			}
		})
	}
}

func TestParseRule(t *testing.T) {
	rule := ParseRule([]string{"name | (workload,incentive_type)", "country", " acv ", ""})

	if len(rule.Branches) != 2 {
		t.Fatalf("branches = %v, want 2", rule.Branches)
	}
	if !rule.Branches[0].Equal(Branch{"name"}) {
		t.Errorf("first branch = %v", rule.Branches[0])
	}
	if !rule.Branches[1].Equal(Branch{"workload", "incentive_type"}) {
		t.Errorf("second branch = %v", rule.Branches[1])
	}

	wantTrailing := []string{"country", "acv"}
	if len(rule.Trailing) != len(wantTrailing) {
		t.Fatalf("trailing = %v, want %v", rule.Trailing, wantTrailing)
	}
	for i, f := range wantTrailing {
		if rule.Trailing[i] != f {
			t.Errorf("trailing[%d] = %q, want %q", i, rule.Trailing[i], f)
		}
	}
}

func TestParseRuleEmpty(t *testing.T) {
	rule := ParseRule(nil)
	if rule.Branches != nil || rule.Trailing != nil {
		t.Errorf("empty rule = %+v", rule)
	}
}

func TestSelectBranch(t *testing.T) {
	branches := []Branch{{"name"}, {"workload", "incentive_type"}}
	cfg := SelectorConfig{DefaultToCategoryPair: true}

	tests := []struct {
		name     string
		resolved map[string]bool
		want     Branch
	}{
		{
			name:     "name resolved picks name branch",
			resolved: map[string]bool{"name": true},
			want:     Branch{"name"},
		},
		{
			name:     "pair resolved picks pair branch",
			resolved: map[string]bool{"workload": true, "incentive_type": true},
			want:     Branch{"workload", "incentive_type"},
		},
		{
			name:     "nothing resolved defaults to pair",
			resolved: map[string]bool{},
			want:     Branch{"workload", "incentive_type"},
		},
		{
			name:     "half pair resolved still defaults to pair",
			resolved: map[string]bool{"workload": true},
			want:     Branch{"workload", "incentive_type"},
		},
		{
			name:     "name wins even when pair also resolved",
			resolved: map[string]bool{"name": true, "workload": true, "incentive_type": true},
			want:     Branch{"name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectBranch(branches, tt.resolved, cfg)
			if !got.Equal(tt.want) {
				t.Errorf("SelectBranch = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectBranchNoDefaultPair(t *testing.T) {
	branches := []Branch{{"name"}, {"workload", "incentive_type"}}
	cfg := SelectorConfig{DefaultToCategoryPair: false}

	got := SelectBranch(branches, map[string]bool{}, cfg)
	if !got.Equal(Branch{"name"}) {
		t.Errorf("without default pair, expected first declared branch, got %v", got)
	}
}

// Branch selection must depend on priority rules, not on declaration order.
func TestSelectBranchDeterministicUnderShuffle(t *testing.T) {
	base := []Branch{{"name"}, {"workload", "incentive_type"}, {"segment"}}
	resolved := map[string]bool{"workload": true, "incentive_type": true}
	cfg := SelectorConfig{DefaultToCategoryPair: true}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		shuffled := make([]Branch, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := SelectBranch(shuffled, resolved, cfg)
		if !got.Equal(Branch{"workload", "incentive_type"}) {
			t.Fatalf("iteration %d: order %v selected %v", i, shuffled, got)
		}
	}
}

func TestSelectBranchEmpty(t *testing.T) {
	if got := SelectBranch(nil, map[string]bool{"name": true}, SelectorConfig{}); got != nil {
		t.Errorf("empty branches should select nil, got %v", got)
	}
}
