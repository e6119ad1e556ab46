package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/biter777/countries"

	"incentive-agent-be/pkg/llm"
	"incentive-agent-be/pkg/retry"
)

// Authority validates a raw country mention against an authoritative
// sovereign-state list and returns the canonical English short name.
type Authority interface {
	Validate(value string) (string, bool)
}

// Extractor pulls at most one candidate value for a field kind out of free
// text. The LLM-backed implementation lives here; tests substitute fakes.
type Extractor interface {
	Extract(ctx context.Context, text string) (string, error)
}

// ISOAuthority validates against ISO 3166-1. Sub-national regions and
// multi-country blocs must never validate, even when an upstream extractor
// proposes them.
type ISOAuthority struct{}

// notSovereign lists frequent non-sovereign mentions that either resolve in
// the ISO dataset (as territories) or are blocs users commonly name.
var notSovereign = map[string]bool{
	"england": true, "scotland": true, "wales": true, "northern ireland": true,
	"eu": true, "european union": true, "emea": true, "apac": true,
	"latam": true, "mea": true, "asean": true, "nordics": true,
	"benelux": true, "dach": true, "middle east": true, "africa": true,
	"europe": true, "asia": true, "americas": true,
}

func (ISOAuthority) Validate(value string) (string, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", false
	}
	if notSovereign[strings.ToLower(v)] {
		return "", false
	}

	code := countries.ByName(v)
	if code == countries.Unknown || !code.IsValid() {
		return "", false
	}
	return code.Info().Name, true
}

const countrySystemPrompt = `Extract exactly one sovereign country (ISO 3166-1 English short name). ` +
	`If none is present, return {"country": null}. ` +
	`Output STRICT JSON only: {"country": "<Name or ISO code>" | null}`

// LLMCountryExtractor asks the classifier for a single country mention.
type LLMCountryExtractor struct {
	provider llm.LLMProvider
	policy   retry.Policy
}

func NewLLMCountryExtractor(provider llm.LLMProvider, policy retry.Policy) *LLMCountryExtractor {
	return &LLMCountryExtractor{provider: provider, policy: policy}
}

func (e *LLMCountryExtractor) Extract(ctx context.Context, text string) (string, error) {
	resp, err := retry.DoWithData(ctx, e.policy, func() (string, error) {
		return e.provider.Chat(ctx, []llm.Message{
			{Role: "system", Content: countrySystemPrompt},
			{Role: "user", Content: text},
		}, llm.WithTemperature(0))
	})
	if err != nil {
		return "", fmt.Errorf("country extraction: %w", err)
	}

	var parsed struct {
		Country *string `json:"country"`
	}
	if err := json.Unmarshal([]byte(salvageJSON(resp)), &parsed); err != nil {
		return "", fmt.Errorf("country extraction parse: %w", err)
	}
	if parsed.Country == nil {
		return "", nil
	}
	return strings.TrimSpace(*parsed.Country), nil
}

// CountryResolver is the external-validated strategy: delegate extraction
// of one candidate, then validate it against the authority. No candidate
// list is surfaced for this strategy.
type CountryResolver struct {
	extractor Extractor
	authority Authority
	logger    *log.Logger
}

func NewCountryResolver(extractor Extractor, authority Authority, logger *log.Logger) *CountryResolver {
	return &CountryResolver{extractor: extractor, authority: authority, logger: logger}
}

func (r *CountryResolver) Resolve(ctx context.Context, text string) (Result, error) {
	raw, err := r.extractor.Extract(ctx, text)
	if err != nil {
		return Result{}, err
	}
	if raw == "" {
		return Result{}, nil
	}

	canonical, ok := r.authority.Validate(raw)
	if !ok {
		r.logger.Printf("[RESOLVE] country %q rejected by authority", raw)
		return Result{}, nil
	}
	return Result{Value: canonical}, nil
}

var jsonObjectRx = regexp.MustCompile(`(?s)\{.*\}`)

// salvageJSON extracts the outermost JSON object from a possibly wrapped
// model response.
func salvageJSON(s string) string {
	if m := jsonObjectRx.FindString(s); m != "" {
		return m
	}
	return s
}
