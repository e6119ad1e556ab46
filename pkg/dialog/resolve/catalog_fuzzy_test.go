package resolve

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
)

type stubSource struct {
	choices  []string
	synonyms SynonymTable
	err      error
}

func (s stubSource) Choices(context.Context) ([]string, error) {
	return s.choices, s.err
}

func (s stubSource) Synonyms(context.Context) (SynonymTable, error) {
	return s.synonyms, s.err
}

func TestCatalogFuzzyResolvesPartialName(t *testing.T) {
	src := stubSource{
		choices: []string{
			"Dynamics 365 CRM Envisioning Workshop",
			"Azure Migration Assessment",
			"Business Central Implementation Briefing",
		},
	}
	r := NewCatalogFuzzyResolver(src, DefaultThresholds())

	res, err := r.Resolve(context.Background(), "CRM envisioning workshop")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Value != "Dynamics 365 CRM Envisioning Workshop" {
		t.Errorf("Resolve = %q, candidates %v", res.Value, res.Candidates)
	}
}

func TestCatalogFuzzySynonymBeatsFuzzy(t *testing.T) {
	src := stubSource{
		choices: []string{"ERP Envisioning Workshop", "CRM Envisioning Workshop"},
		synonyms: SynonymTable{
			"ERP Envisioning Workshop": {"erp workshop"},
		},
	}
	r := NewCatalogFuzzyResolver(src, DefaultThresholds())

	res, err := r.Resolve(context.Background(), "erp workshop")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Value != "ERP Envisioning Workshop" {
		t.Errorf("Resolve = %q, candidates %v", res.Value, res.Candidates)
	}
}

func TestCatalogFuzzyGenericTermStaysAmbiguous(t *testing.T) {
	src := stubSource{
		choices: []string{
			"Dynamics 365 Sales",
			"Dynamics 365 Finance",
			"Dynamics 365 Field Service",
			"Business Central",
		},
	}
	r := NewCatalogFuzzyResolver(src, DefaultThresholds())

	res, err := r.Resolve(context.Background(), "dynamics")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Value != "" {
		t.Fatalf("generic term auto-accepted %q", res.Value)
	}
	if len(res.Candidates) < 2 {
		t.Fatalf("expected multiple candidates, got %v", res.Candidates)
	}
	for _, c := range res.Candidates[:2] {
		if !strings.Contains(c.Value, "Dynamics") {
			t.Errorf("unexpected top candidate %q", c.Value)
		}
	}
}

func TestCatalogFuzzyUnrelatedTextRejected(t *testing.T) {
	src := stubSource{
		choices: []string{"Dynamics 365 Sales", "Business Central"},
	}
	r := NewCatalogFuzzyResolver(src, DefaultThresholds())

	res, err := r.Resolve(context.Background(), "qqqq zzzz")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Value != "" {
		t.Errorf("unrelated text resolved to %q", res.Value)
	}
}

func TestCatalogFuzzySynonymOnlyCanonicalSurfaces(t *testing.T) {
	// A canonical known only to the synonym table is still resolvable.
	src := stubSource{
		choices: []string{"Business Central"},
		synonyms: SynonymTable{
			"Power Platform Hackathon": {"power hack"},
		},
	}
	r := NewCatalogFuzzyResolver(src, DefaultThresholds())

	res, err := r.Resolve(context.Background(), "power hack")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Value != "Power Platform Hackathon" {
		t.Errorf("Resolve = %q, candidates %v", res.Value, res.Candidates)
	}
}

func TestCatalogFuzzySourceFailure(t *testing.T) {
	r := NewCatalogFuzzyResolver(stubSource{err: errors.New("db down")}, DefaultThresholds())
	if _, err := r.Resolve(context.Background(), "anything"); err == nil {
		t.Error("source failure not propagated")
	}
}

func TestRegistryUnknownFieldAndFailure(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	reg := NewRegistry(logger)
	reg.Register("name", NewCatalogFuzzyResolver(stubSource{err: errors.New("down")}, DefaultThresholds()))

	if res := reg.Resolve(context.Background(), "nope", "text"); res.Value != "" {
		t.Errorf("unknown field resolved to %q", res.Value)
	}
	if res := reg.Resolve(context.Background(), "name", "text"); res.Value != "" || len(res.Candidates) != 0 {
		t.Errorf("failing resolver leaked %+v", res)
	}
}
