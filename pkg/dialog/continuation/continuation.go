// Package continuation decides whether a new message can be answered from
// a cached prior result, or whether the full resolution flow must rerun.
package continuation

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"incentive-agent-be/pkg/llm"
	"incentive-agent-be/pkg/retry"
)

// Detector reports whether the message continues the current thread.
type Detector interface {
	Detect(ctx context.Context, userMessage string, sess Session) bool
}

// Session is the slice of session state the detector consumes.
type Session struct {
	LastTopic   string
	ResultNames []string // engagement names from the cached result rows
	Tail        []Message
}

// Message mirrors one history entry, trimmed for the classifier payload.
type Message struct {
	Role  string `json:"role"`
	Text  string `json:"text"`
	Field string `json:"field_name,omitempty"`
}

// Family is a configurable product-family synonym group. A message naming
// a family absent from the cached result is a topic switch, not a
// continuation.
type Family struct {
	Name  string
	Terms []string
}

// DefaultFamilies covers the product families that appear in engagement
// names.
func DefaultFamilies() []Family {
	return []Family{
		{Name: "business_central", Terms: []string{"business central", "bc erp"}},
		{Name: "finance_scm", Terms: []string{"finance", "supply chain", "f&o", "fno", "erp"}},
		{Name: "customer_engagement", Terms: []string{"customer engagement", "crm", "sales", "field service", "customer service"}},
		{Name: "power_platform", Terms: []string{"power platform", "power apps", "power automate", "power bi"}},
		{Name: "azure", Terms: []string{"azure"}},
	}
}

var resetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bnew (request|topic|question)\b`),
	regexp.MustCompile(`\bstart over\b`),
	regexp.MustCompile(`\breset\b`),
	regexp.MustCompile(`\b(another|different) (engagement|workload|topic|customer)\b`),
	regexp.MustCompile(`\bchange (workload|incentive|topic)\b`),
	regexp.MustCompile(`\bcompare\b`),
	regexp.MustCompile(`\bvs\.?\b`),
	regexp.MustCompile(`\binstead\b`),
}

var followupHints = []string{
	"more detail", "details", "qualification", "qualifications",
	"activity requirement", "requirements", "modules", "module", "goal",
	"goals", "acv", "proof of execution", "market", "market band", "rate",
	"earning", "hours", "duration", "scope", "deliverable", "deliverables",
	"summary", "summarize", "what about", "this workshop", "that workshop",
	"the workshop", "the engagement", "above", "those", "it", "can you",
	"how much", "what is", "what are",
}

// heuristic returns (decision, decided). Undecided cases fall through to
// the classifier.
func heuristic(msg string, sess Session, families []Family) (bool, bool) {
	m := strings.ToLower(strings.TrimSpace(msg))

	// No cached result, nothing to continue from.
	if len(sess.ResultNames) == 0 {
		return false, true
	}

	for _, rx := range resetPatterns {
		if rx.MatchString(m) {
			return false, true
		}
	}

	mentioned := familiesIn(m, families)
	cached := map[string]bool{}
	for _, name := range sess.ResultNames {
		for f := range familiesIn(strings.ToLower(name), families) {
			cached[f] = true
		}
	}
	if len(mentioned) > 0 {
		conflict := true
		for f := range mentioned {
			if cached[f] {
				conflict = false
				break
			}
		}
		if conflict {
			return false, true
		}
	}

	for _, h := range followupHints {
		if strings.Contains(m, h) {
			return true, true
		}
	}

	return false, false
}

func familiesIn(text string, families []Family) map[string]bool {
	out := map[string]bool{}
	for _, f := range families {
		for _, term := range f.Terms {
			if strings.Contains(text, term) {
				out[f.Name] = true
				break
			}
		}
	}
	return out
}

const continuationSystemPrompt = `You are a continuation detector for a conversational assistant.

Decide if the NEW_USER_MESSAGE is a follow-up to the existing session
context, answerable from the already-computed LAST_RESULT without
re-running intent detection or collecting new required fields.

- Return true for clarifications, details, or next steps about the
  engagements in LAST_RESULT (qualifications, modules, goals, activity
  requirements, rates, markets).
- Return true when the message references "this/that workshop", "the
  above", "the engagement", or otherwise relies on prior context.
- Return false when the message introduces a new topic or different
  filters, or asks about a task outside the current result.
- If LAST_RESULT is empty or missing, return false.

Output STRICT JSON only: {"is_continuation": true|false}
No extra text.`

const resultNamesCap = 5

// TwoStageDetector runs the cheap heuristic first and only consults the
// classifier when the heuristic is inconclusive. Classifier failure means
// false: restarting the full flow beats answering from stale context.
type TwoStageDetector struct {
	provider llm.LLMProvider
	policy   retry.Policy
	families []Family
	logger   *log.Logger
}

func NewTwoStageDetector(provider llm.LLMProvider, policy retry.Policy, families []Family, logger *log.Logger) *TwoStageDetector {
	if len(families) == 0 {
		families = DefaultFamilies()
	}
	return &TwoStageDetector{provider: provider, policy: policy, families: families, logger: logger}
}

func (d *TwoStageDetector) Detect(ctx context.Context, userMessage string, sess Session) bool {
	if decision, decided := heuristic(userMessage, sess, d.families); decided {
		return decision
	}

	names := sess.ResultNames
	if len(names) > resultNamesCap {
		names = names[:resultNamesCap]
	}
	tail := sess.Tail
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	payload, _ := json.Marshal(map[string]any{
		"last_intent_topic": sess.LastTopic,
		"last_result_names": names,
		"messages_tail":     tail,
		"new_user_message":  userMessage,
	})

	resp, err := retry.DoWithData(ctx, d.policy, func() (string, error) {
		return d.provider.Chat(ctx, []llm.Message{
			{Role: "system", Content: continuationSystemPrompt},
			{Role: "user", Content: string(payload)},
		}, llm.WithTemperature(0))
	})
	if err != nil {
		d.logger.Printf("[CONTINUATION] classifier failed, assuming fresh flow: %v", err)
		return false
	}

	var parsed struct {
		IsContinuation bool `json:"is_continuation"`
	}
	if err := json.Unmarshal([]byte(salvageObject(resp)), &parsed); err != nil {
		d.logger.Printf("[CONTINUATION] unparseable response %q, assuming fresh flow", resp)
		return false
	}
	return parsed.IsContinuation
}

var objectRx = regexp.MustCompile(`(?s)\{.*\}`)

func salvageObject(s string) string {
	if m := objectRx.FindString(s); m != "" {
		return m
	}
	return s
}
