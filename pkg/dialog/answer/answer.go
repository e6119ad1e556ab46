// Package answer composes the final user-facing answer from catalog rows,
// plus at least three "Can you ..." guidance questions.
package answer

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"incentive-agent-be/pkg/llm"
	"incentive-agent-be/pkg/retry"
)

// Row is one catalog result row as loosely typed column data.
type Row map[string]any

// Output is the composed answer. Recommendations are user-guidance
// questions the caller surfaces but never appends to message history.
type Output struct {
	Text            string   `json:"answer_text"`
	Recommendations []string `json:"recommendations"`
}

// Generator composes the final answer; it must always return something
// presentable.
type Generator interface {
	Generate(ctx context.Context, originalMessage string, resolvedFields map[string]string, rows []Row) Output
}

const answerSystemPrompt = `You are a final-answer generator for partner incentive lookups.

Rules:
- Use ONLY the provided FILTER_RESULT_ROWS. Do NOT invent or infer beyond those rows.
- If a detail is not present in FILTER_RESULT_ROWS, omit it.
- Write in short, plain language, suitable for a partner/customer.
- Recommendations must be USER-GUIDANCE QUESTIONS phrased for the user to ask the agent, starting with "Can you ...".
- Do NOT offer to perform tasks (avoid "I can ...").

Output STRICT JSON with EXACT keys:
{"answer_text": "<plain short answer>", "recommendations": ["<question>", "<question>", "<question>"]}

Requirements:
- "recommendations" MUST include at least 3 items.
- If FILTER_RESULT_ROWS is empty, say no matching engagement was found and suggest input refinements.
- If exactly 1 row, summarize it by name with its most relevant highlights.
- If multiple rows, briefly compare the top 1-3 matches by name.
- No extra text or keys.`

const (
	minRecommendations = 3
	maxRecommendations = 5
)

var padRecommendations = []string{
	"Can you confirm the exact workload or a close variant you want to target?",
	"Can you confirm which incentive type applies here?",
	"Can you tell me if any specific engagement name should be considered?",
}

var (
	iCanRx     = regexp.MustCompile(`(?i)^\s*i\s+can\s+`)
	leadWordRx = regexp.MustCompile(`(?i)^(can you|would you|do you)\b`)
)

// toQuestion rewrites a recommendation into "Can you ..." user phrasing.
func toQuestion(text string) string {
	t := strings.TrimRight(strings.TrimSpace(text), ".")
	if t == "" {
		return ""
	}

	if iCanRx.MatchString(t) {
		t = iCanRx.ReplaceAllString(t, "")
		t = flipPronouns(t)
		t = "Can you " + t
	}
	if !strings.HasSuffix(t, "?") {
		t += "?"
	}
	if !leadWordRx.MatchString(t) {
		if len(t) > 1 {
			t = strings.ToLower(t[:1]) + t[1:]
		}
		t = "Can you " + t
	}
	return t
}

var pronounSwaps = []struct {
	rx   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?i)\byour\b`), "my"},
	{regexp.MustCompile(`(?i)\byours\b`), "mine"},
	{regexp.MustCompile(`(?i)\byou\b`), "me"},
}

func flipPronouns(text string) string {
	for _, s := range pronounSwaps {
		text = s.rx.ReplaceAllString(text, s.with)
	}
	return text
}

// normalizeRecommendations enforces question phrasing, deduplicates, and
// pads to the minimum count.
func normalizeRecommendations(recs []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		q := toQuestion(r)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if !seen[key] {
			seen[key] = true
			out = append(out, q)
		}
	}

	for _, pad := range padRecommendations {
		if len(out) >= minRecommendations {
			break
		}
		if !seen[strings.ToLower(pad)] {
			seen[strings.ToLower(pad)] = true
			out = append(out, pad)
		}
	}

	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

func rowString(r Row, key string) string {
	if v, ok := r[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// fallback is the deterministic answer used whenever the model output is
// unusable, covering the empty / single / multiple row cases.
func fallback(rows []Row) Output {
	if len(rows) == 0 {
		return Output{
			Text: "No matching engagement was found based on the current filters.",
			Recommendations: []string{
				"Can you clarify the exact workload name or try a related workload?",
				"Can you confirm which incentive type you want to use?",
				"Can you share any part of the engagement name you have in mind?",
			},
		}
	}

	if len(rows) == 1 {
		row := rows[0]
		name := rowString(row, "name")
		if name == "" {
			name = "this engagement"
		}
		var recs []string
		if rowString(row, "customer_qualification") != "" {
			recs = append(recs, "Can you confirm the opportunity meets the customer qualifications (e.g., ACV and stage)?")
		}
		if rowString(row, "incentive_market_a") != "" || rowString(row, "incentive_market_b") != "" || rowString(row, "incentive_market_c") != "" {
			recs = append(recs, "Can you tell me which market band applies to your customer (A, B, or C)?")
		}
		if rowString(row, "activity_requirement") != "" {
			recs = append(recs, "Can you walk me through the activity requirements for this engagement?")
		}
		for len(recs) < minRecommendations {
			recs = append(recs, "Can you confirm if you want a concise outline to brief your customer on this engagement?")
		}
		return Output{
			Text:            name + " appears to fit your inputs based on the catalog entry.",
			Recommendations: recs,
		}
	}

	names := make([]string, 0, 3)
	for _, r := range rows {
		if n := rowString(r, "name"); n != "" {
			names = append(names, n)
		}
		if len(names) == 3 {
			break
		}
	}
	joined := "multiple options"
	if len(names) > 0 {
		joined = strings.Join(names, "; ")
	}
	return Output{
		Text: "I found " + joined + " that align with your inputs.",
		Recommendations: []string{
			"Can you tell me which option best maps to your immediate goal?",
			"Can you confirm whether you prefer a workload-specific focus or a broader envisioning approach?",
			"Can you confirm any prerequisites listed (e.g., opportunity stage or size) to narrow the choices?",
		},
	}
}

// LLMGenerator composes via the model, falling back deterministically.
type LLMGenerator struct {
	provider llm.LLMProvider
	policy   retry.Policy
	logger   *log.Logger
}

func NewLLMGenerator(provider llm.LLMProvider, policy retry.Policy, logger *log.Logger) *LLMGenerator {
	return &LLMGenerator{provider: provider, policy: policy, logger: logger}
}

func (g *LLMGenerator) Generate(ctx context.Context, originalMessage string, resolvedFields map[string]string, rows []Row) Output {
	fieldsJSON, _ := json.MarshalIndent(resolvedFields, "", "  ")
	rowsJSON, _ := json.MarshalIndent(rows, "", "  ")

	user := "ORIGINAL_USER_MESSAGE:\n" + originalMessage +
		"\n\nREQUIRED_FIELDS (fully resolved):\n" + string(fieldsJSON) +
		"\n\nFILTER_RESULT_ROWS (use ONLY these):\n" + string(rowsJSON)

	resp, err := retry.DoWithData(ctx, g.policy, func() (string, error) {
		return g.provider.Chat(ctx, []llm.Message{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: user},
		}, llm.WithTemperature(0))
	})
	if err != nil {
		g.logger.Printf("[ANSWER] generation failed, using fallback: %v", err)
		out := fallback(rows)
		out.Recommendations = normalizeRecommendations(out.Recommendations)
		return out
	}

	var parsed Output
	if jerr := json.Unmarshal([]byte(salvageObject(resp)), &parsed); jerr != nil || strings.TrimSpace(parsed.Text) == "" {
		g.logger.Printf("[ANSWER] unusable response %q, using fallback", resp)
		out := fallback(rows)
		out.Recommendations = normalizeRecommendations(out.Recommendations)
		return out
	}

	recs := parsed.Recommendations
	if len(recs) == 0 {
		recs = fallback(rows).Recommendations
	}
	return Output{
		Text:            strings.TrimSpace(parsed.Text),
		Recommendations: normalizeRecommendations(recs),
	}
}

var objectRx = regexp.MustCompile(`(?s)\{.*\}`)

func salvageObject(s string) string {
	if m := objectRx.FindString(s); m != "" {
		return m
	}
	return s
}
