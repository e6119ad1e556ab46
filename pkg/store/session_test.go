package store

import (
	"reflect"
	"testing"
)

func TestResultNamesHonorsLimit(t *testing.T) {
	s := New("s1", "recommend something")
	s.LastResult = []map[string]any{
		{"name": "Business Central Workshop"},
		{"name": "Business Central Briefing"},
		{"goal": "Adoption"}, // no name, skipped
		{"name": "CRM Envisioning Workshop"},
	}

	got := s.ResultNames(2)
	want := []string{"Business Central Workshop", "Business Central Briefing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResultNames(2) = %v, want %v", got, want)
	}

	if got := s.ResultNames(10); len(got) != 3 {
		t.Errorf("ResultNames(10) = %v, want all three named rows", got)
	}
	if got := s.ResultNames(0); len(got) != 0 {
		t.Errorf("ResultNames(0) = %v, want empty", got)
	}
}

func TestBackfillInitializesNilCollections(t *testing.T) {
	s := &Session{ID: "s2"}
	s.Backfill()

	if s.Messages == nil || s.IntentTopics == nil || s.AskedLog == nil ||
		s.Candidates == nil || s.LastResult == nil || s.Slots == nil {
		t.Fatalf("Backfill left nil collections: %+v", s)
	}

	s.RecordAsk("workload", "Which workload?")
	if entry := s.AskedLog["workload"]; entry.Count != 1 {
		t.Errorf("AskedLog entry = %+v", entry)
	}
}
