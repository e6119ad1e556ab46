// Package route decides which of the two conversation modes handles a
// turn: the structured incentive lookup or the document QA branch.
package route

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"incentive-agent-be/pkg/llm"
	"incentive-agent-be/pkg/retry"
)

const (
	RouteStructured = "incentive_lookup"
	RouteDocQA      = "doc_qa"
)

// TailMessage is one trimmed entry of the recent conversation passed to
// the classifier.
type TailMessage struct {
	Role  string `json:"role"`
	Text  string `json:"text"`
	Field string `json:"field,omitempty"`
}

// Context is the compact conversation summary the classifier sees. The
// carry-over signals (last route, pending field) are encoded here so the
// classifier can honor them; the classifier always decides.
type Context struct {
	LastRoute       string        `json:"last_path"`
	IntentTopic     string        `json:"intent_topic"`
	PickedBranch    []string      `json:"picked_set"`
	FilledFields    []string      `json:"filled_fields"`
	PendingField    string        `json:"pending_followup_field"`
	HaveDocsContext bool          `json:"have_docs_context"`
	HaveTableRows   bool          `json:"have_table_rows"`
	RecentMessages  []TailMessage `json:"recent_messages"`
}

// Decision is the classifier outcome.
type Decision struct {
	Route      string  `json:"route"`
	Rationale  string  `json:"why"`
	Confidence float64 `json:"confidence"`
}

// Classifier picks the route for a message.
type Classifier interface {
	Classify(ctx context.Context, userMessage string, conv Context) Decision
}

const routerSystemPrompt = `You are a deterministic ROUTER. Decide which single route best answers the NEW_USER_MESSAGE,
using both the new text and the CONVERSATION_CONTEXT.

ROUTES
- "incentive_lookup": engagements/workshops and business terms (funding, incentives, payouts, rates/%, caps, eligibility/qualification, segments, Market A|B|C, CSP transaction; pre/post sales when asking about money/eligibility).
- "doc_qa": guides/process/policies, POE/deliverables/artifacts/templates/evidence, where-to-submit, timelines, SLA/TAT, approvals/exceptions.

CONTEXT RULES
- If last_path is "doc_qa" AND the new message is a short continuation (e.g., "POE", "template", "where to submit"), keep doc_qa.
- If there is a pending_followup_field, prefer the route implied by that field (usually incentive_lookup).
- If both themes appear: "requirements/required" + (poe/deliverables/documentation/submit/evidence/template) means doc_qa; otherwise choose the dominant theme.
- Be decisive. Do NOT ask clarifying questions.

OUTPUT (STRICT JSON ONLY)
{"route":"incentive_lookup"|"doc_qa","why":"<one sentence>","confidence":0.0-1.0}`

// LLMClassifier routes via the classifier collaborator. Invalid or failed
// output defaults to the structured route.
type LLMClassifier struct {
	provider llm.LLMProvider
	policy   retry.Policy
	logger   *log.Logger
}

func NewLLMClassifier(provider llm.LLMProvider, policy retry.Policy, logger *log.Logger) *LLMClassifier {
	return &LLMClassifier{provider: provider, policy: policy, logger: logger}
}

func (c *LLMClassifier) Classify(ctx context.Context, userMessage string, conv Context) Decision {
	payload, _ := json.Marshal(map[string]any{
		"NEW_USER_MESSAGE":     userMessage,
		"CONVERSATION_CONTEXT": conv,
	})

	resp, err := retry.DoWithData(ctx, c.policy, func() (string, error) {
		return c.provider.Chat(ctx, []llm.Message{
			{Role: "system", Content: routerSystemPrompt},
			{Role: "user", Content: string(payload)},
		}, llm.WithTemperature(0))
	})
	if err != nil {
		c.logger.Printf("[ROUTE] classifier failed, defaulting to %s: %v", RouteStructured, err)
		return Decision{Route: RouteStructured, Rationale: "classifier unavailable"}
	}

	var d Decision
	if err := json.Unmarshal([]byte(salvageObject(resp)), &d); err != nil {
		c.logger.Printf("[ROUTE] unparseable response %q, defaulting to %s", resp, RouteStructured)
		return Decision{Route: RouteStructured, Rationale: "unparseable classifier output"}
	}
	if d.Route != RouteStructured && d.Route != RouteDocQA {
		c.logger.Printf("[ROUTE] invalid route %q, defaulting to %s", d.Route, RouteStructured)
		d.Route = RouteStructured
		if d.Rationale == "" {
			d.Rationale = "defaulted due to invalid route"
		}
		d.Confidence = 0
	}
	return d
}

// TrimTail shortens message history for the classifier payload: last n
// entries, text capped at 280 runes.
func TrimTail(messages []TailMessage, n int) []TailMessage {
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	out := make([]TailMessage, 0, len(messages))
	for _, m := range messages {
		text := strings.ReplaceAll(strings.TrimSpace(m.Text), "\n", " ")
		if r := []rune(text); len(r) > 280 {
			text = string(r[:277]) + "..."
		}
		role := m.Role
		if role == "" {
			role = "user"
		}
		field := m.Field
		if r := []rune(field); len(r) > 64 {
			field = string(r[:64])
		}
		out = append(out, TailMessage{Role: role, Text: text, Field: field})
	}
	return out
}

var objectRx = regexp.MustCompile(`(?s)\{.*\}`)

func salvageObject(s string) string {
	if m := objectRx.FindString(s); m != "" {
		return m
	}
	return s
}
