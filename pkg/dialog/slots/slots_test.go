package slots

import (
	"testing"
)

func TestResolveAndGet(t *testing.T) {
	s := NewState()
	s.Resolve("workload", "Business Central")

	v, ok := s.Get("workload")
	if !ok || v != "Business Central" {
		t.Fatalf("Get = (%q, %v)", v, ok)
	}
	if _, ok := s.Get("country"); ok {
		t.Error("unknown field reported as resolved")
	}
}

func TestResolveIdempotent(t *testing.T) {
	a := NewState()
	a.Resolve("name", "ERP Envisioning Workshop")

	b := NewState()
	b.Resolve("name", "ERP Envisioning Workshop")
	b.Resolve("name", "ERP Envisioning Workshop")

	av, _ := a.Get("name")
	bv, _ := b.Get("name")
	if av != bv {
		t.Errorf("repeated identical resolution changed value: %q vs %q", av, bv)
	}
	if len(a.Order) != len(b.Order) {
		t.Errorf("repeated resolution changed tracked order: %v vs %v", a.Order, b.Order)
	}
}

func TestEmptyResolutionNeverErases(t *testing.T) {
	s := NewState()
	s.Resolve("country", "United States")
	s.Resolve("country", "")

	v, ok := s.Get("country")
	if !ok || v != "United States" {
		t.Errorf("empty resolution erased value: (%q, %v)", v, ok)
	}
}

func TestMergeNonErasure(t *testing.T) {
	s := NewState()
	s.Resolve("workload", "D365 Customer Engagement")
	s.Resolve("incentive_type", "pre_sales")

	// New turn resolved nothing for workload (ambiguous) but found country.
	turn := NewState()
	turn.Track("workload")
	turn.Resolve("country", "Germany")

	s.Merge(turn)

	if v, _ := s.Get("workload"); v != "D365 Customer Engagement" {
		t.Errorf("merge erased workload: %q", v)
	}
	if v, _ := s.Get("country"); v != "Germany" {
		t.Errorf("merge dropped new resolution: %q", v)
	}
}

func TestMergeOverwrite(t *testing.T) {
	s := NewState()
	s.Resolve("hours", "8")

	turn := NewState()
	turn.Resolve("hours", "10")
	s.Merge(turn)

	if v, _ := s.Get("hours"); v != "10" {
		t.Errorf("non-empty resolution should replace old value, got %q", v)
	}
}

func TestComplete(t *testing.T) {
	s := NewState()
	s.Resolve("name", "CRM Envisioning Workshop")
	s.Resolve("country", "United States")

	if !s.Complete([]string{"name", "country"}) {
		t.Error("all fields resolved but Complete = false")
	}
	if s.Complete([]string{"name", "country", "acv"}) {
		t.Error("acv unresolved but Complete = true")
	}
	if s.Complete(nil) {
		t.Error("empty field list should not be complete")
	}
}

func TestNextMissingOrder(t *testing.T) {
	s := NewState()
	s.Resolve("name", "CRM Envisioning Workshop")
	s.Track("country")
	s.Track("acv")
	s.Track("hours")

	branch := []string{"name"}
	trailing := []string{"country", "acv", "hours"}

	if got := s.NextMissing(branch, trailing); got != "country" {
		t.Errorf("NextMissing = %q, want country", got)
	}

	s.Resolve("country", "United States")
	if got := s.NextMissing(branch, trailing); got != "acv" {
		t.Errorf("NextMissing = %q, want acv", got)
	}

	s.Resolve("acv", "10000")
	s.Resolve("hours", "8")
	if got := s.NextMissing(branch, trailing); got != "" {
		t.Errorf("NextMissing = %q, want empty", got)
	}
}

func TestNextMissingFallbackSweep(t *testing.T) {
	s := NewState()
	s.Resolve("name", "CRM Envisioning Workshop")
	// Tracked outside the declared order, e.g. added by a later intent.
	s.Track("segment")

	if got := s.NextMissing([]string{"name"}, nil); got != "segment" {
		t.Errorf("fallback sweep returned %q, want segment", got)
	}
}

func TestResolvedSnapshot(t *testing.T) {
	s := NewState()
	s.Resolve("workload", "Business Central")
	s.Track("country")

	got := s.Resolved()
	if len(got) != 1 || got["workload"] != "Business Central" {
		t.Errorf("Resolved = %v", got)
	}
}
