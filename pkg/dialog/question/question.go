// Package question generates the single follow-up question for one
// missing field. Canonical snake_case values never reach the user.
package question

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"incentive-agent-be/pkg/llm"
	"incentive-agent-be/pkg/retry"
)

// Request carries everything the generator needs for one ask.
type Request struct {
	FieldName    string
	IntentTopic  string
	Attempt      int      // 1 for first ask, incremented on re-asks
	LastQuestion string   // previous question for this field, to avoid repeats
	Options      []string // disambiguation values to embed briefly
	CurrentValue string
}

// Generator produces the question text. Implementations must always
// return something askable.
type Generator interface {
	Generate(ctx context.Context, req Request) string
}

const questionSystemPrompt = `You generate ONE short question to collect a SINGLE missing field.

Hard rules:
- Ask ONLY for the field named in FIELD_NAME.
- 15 words or fewer, exactly ONE sentence, must end with a question mark.
- No explanations, no multi-sentence text, no bullets.
- No promises like "I can ..." or "I'll ...".
- If OPTIONS are provided, you MAY append a very brief "Options: a, b, c" inline, kept concise.

Re-ask behavior:
- If ATTEMPT_COUNT > 1, REPHRASE the question (do not reuse the same wording).
- If ATTEMPT_COUNT > 2, add a micro-nudge like "to match the catalog" within the same sentence.

Output STRICT JSON: {"question":"<string>"} — nothing else.`

var decanonReplacements = []struct {
	rx   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?i)\bpre_sales\b`), "pre-sales"},
	{regexp.MustCompile(`(?i)\bcsp_transaction\b`), "CSP transaction"},
	{regexp.MustCompile(`(?i)\bsmec\b`), "SMEC"},
}

var snakeTokenRx = regexp.MustCompile(`\b[a-z]+_[a-z_]+\b`)

// Humanize maps an internal canonical token to its user-facing form.
func Humanize(v string) string {
	out := strings.TrimSpace(v)
	for _, r := range decanonReplacements {
		out = r.rx.ReplaceAllString(out, r.with)
	}
	return snakeTokenRx.ReplaceAllStringFunc(out, func(tok string) string {
		return strings.ReplaceAll(tok, "_", " ")
	})
}

func humanizeAll(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if h := Humanize(v); h != "" {
			out = append(out, h)
		}
	}
	return out
}

const maxWords = 15

var (
	iCanRx     = regexp.MustCompile(`(?i)^\s*i\s+can\s+`)
	iWillRx    = regexp.MustCompile(`(?i)^\s*i(?:'|’)ll\s+`)
	canYouRx   = regexp.MustCompile(`(?i)^can you `)
	trimCutset = " \n\r\t\"'` "
)

// postprocess enforces the single-sentence contract: humanized tokens, a
// trailing question mark, no promise phrasing, no verbatim repetition of
// the previous ask, and a best-effort word cap.
func postprocess(q, lastQuestion string) string {
	txt := strings.Trim(strings.TrimSpace(q), trimCutset)
	if txt == "" {
		return ""
	}

	txt = Humanize(txt)

	if !strings.HasSuffix(txt, "?") {
		txt += "?"
	}

	txt = iCanRx.ReplaceAllString(txt, "")
	txt = iWillRx.ReplaceAllString(txt, "")

	if lastQuestion != "" && strings.EqualFold(strings.TrimSpace(txt), strings.TrimSpace(lastQuestion)) {
		if canYouRx.MatchString(txt) {
			txt = canYouRx.ReplaceAllString(txt, "Could you ")
		} else {
			txt = "Could you " + strings.ToLower(txt[:1]) + txt[1:]
		}
		if !strings.HasSuffix(txt, "?") {
			txt += "?"
		}
	}

	if words := strings.Fields(txt); len(words) > maxWords {
		kept := words[:0]
		for _, w := range words {
			lw := strings.ToLower(strings.Trim(w, ",."))
			if lw == "please" || lw == "kindly" {
				continue
			}
			kept = append(kept, w)
		}
		txt = strings.Join(kept, " ")
		if !strings.HasSuffix(txt, "?") {
			txt += "?"
		}
	}

	return txt
}

// LLMGenerator asks the model for the question. Garbage output falls back
// to a minimal deterministic prompt.
type LLMGenerator struct {
	provider llm.LLMProvider
	policy   retry.Policy
	logger   *log.Logger
}

func NewLLMGenerator(provider llm.LLMProvider, policy retry.Policy, logger *log.Logger) *LLMGenerator {
	return &LLMGenerator{provider: provider, policy: policy, logger: logger}
}

func (g *LLMGenerator) Generate(ctx context.Context, req Request) string {
	hints := map[string]any{}
	if len(req.Options) > 0 {
		opts := req.Options
		if len(opts) > 5 {
			opts = opts[:5]
		}
		hints["options"] = humanizeAll(opts)
	}
	if req.CurrentValue != "" {
		hints["current_value"] = Humanize(req.CurrentValue)
	}

	payload, _ := json.Marshal(map[string]any{
		"FIELD_NAME":         req.FieldName,
		"INTENT_TOPIC":       req.IntentTopic,
		"ATTEMPT_COUNT":      req.Attempt,
		"LAST_QUESTION_TEXT": req.LastQuestion,
		"HINTS":              hints,
	})

	resp, err := retry.DoWithData(ctx, g.policy, func() (string, error) {
		return g.provider.Chat(ctx, []llm.Message{
			{Role: "system", Content: questionSystemPrompt},
			{Role: "user", Content: "JSON_CONTEXT=\n" + string(payload)},
		}, llm.WithTemperature(0))
	})
	if err == nil {
		var parsed struct {
			Question string `json:"question"`
		}
		if jerr := json.Unmarshal([]byte(salvageObject(resp)), &parsed); jerr == nil {
			if q := postprocess(parsed.Question, req.LastQuestion); q != "" {
				return q
			}
		}
	} else {
		g.logger.Printf("[QUESTION] generation failed for %s, using fallback: %v", req.FieldName, err)
	}

	return postprocess("Please provide "+Humanize(req.FieldName), req.LastQuestion)
}

var objectRx = regexp.MustCompile(`(?s)\{.*\}`)

func salvageObject(s string) string {
	if m := objectRx.FindString(s); m != "" {
		return m
	}
	return s
}
