package intent

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"incentive-agent-be/pkg/llm"
	"incentive-agent-be/pkg/retry"
)

// Detector picks the topic a message is about.
type Detector interface {
	Detect(ctx context.Context, userText string) (Intent, bool)
}

const detectorSystemPrompt = `You are an intent detector for partner incentive questions.

OUTPUT: Return STRICT JSON only:
{"topic":"<one-of-intents>"}

RULES:
1) Pick EXACTLY ONE topic from INTENTS.
2) Prefer CALC intents ONLY when the user explicitly asks to compute/estimate/payout math.
3) Apply the following PRIORITY order:

   A. calc_presales_workshop_payout
      Trigger if any of: ("calculate"|"calc"|"compute"|"estimate"|"how much will we earn")
      AND mentions ("workshop"|"immersion"|hours|acv|rate).
   B. calc_presales_briefing_payout
      Trigger if: explicit calc/estimate AND mentions ("briefing"|"envisioning") without hours/acv.
   C. earning_amount
      Trigger if asking payout/rate/amount/cap/percentage ("how much", "rate", "market A/B/C", "cap", "maximum"),
      with NO explicit math request.
   D. activity_requirement
      Trigger if asking activities, requirements, scope, deliverables, min hours.
   E. partner_qualification
      Trigger if eligibility of the PARTNER is asked/implied:
      mentions "we/us/our company/partner/designation/specialization/solution partner".
   F. customer_qualification
      Trigger if eligibility of the CUSTOMER is asked/implied:
      mentions "customer/client/tenant/end customer".
   G. recommend_engagement
      Fallback when the user asks which program/what to do/recommendations.

4) Disambiguation:
   - If both partner and customer eligibility are referenced, prefer partner_qualification.
   - If both requirements and payout are referenced, prefer earning_amount unless explicit math, then calc_*.
   - If both calc_* fit, pick the one whose artifact is named (workshop vs briefing);
     if neither is named and hours/acv are present, workshop; else briefing.

5) Calc gating: choose calc_* only when the user explicitly asks to
   calculate/compute/estimate OR mentions numeric inputs (hours/acv).
   Otherwise NEVER pick calc_*.

Return ONLY the JSON object. No extra text.`

// LLMDetector classifies the message against the catalog topics. Any
// failure (transport, parse, off-catalog topic) falls back to unknown so
// the turn engine can degrade rather than abort.
type LLMDetector struct {
	provider llm.LLMProvider
	policy   retry.Policy
	logger   *log.Logger
}

func NewLLMDetector(provider llm.LLMProvider, policy retry.Policy, logger *log.Logger) *LLMDetector {
	return &LLMDetector{provider: provider, policy: policy, logger: logger}
}

func (d *LLMDetector) Detect(ctx context.Context, userText string) (Intent, bool) {
	topics, _ := json.Marshal(Topics())
	system := detectorSystemPrompt + "\nINTENTS:\n" + string(topics)

	resp, err := retry.DoWithData(ctx, d.policy, func() (string, error) {
		return d.provider.Chat(ctx, []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: userText},
		}, llm.WithTemperature(0))
	})
	if err != nil {
		d.logger.Printf("[INTENT] detection failed, topic=unknown: %v", err)
		return Intent{}, false
	}

	var parsed struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal([]byte(salvageObject(resp)), &parsed); err != nil {
		d.logger.Printf("[INTENT] unparseable response %q, topic=unknown", resp)
		return Intent{}, false
	}

	it, ok := ByTopic(strings.TrimSpace(parsed.Topic))
	if !ok {
		d.logger.Printf("[INTENT] off-catalog topic %q, topic=unknown", parsed.Topic)
		return Intent{}, false
	}
	return it, true
}

var objectRx = regexp.MustCompile(`(?s)\{.*\}`)

func salvageObject(s string) string {
	if m := objectRx.FindString(s); m != "" {
		return m
	}
	return s
}
