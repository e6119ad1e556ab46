// Package docqa answers policy/process questions from the document index:
// vector retrieval, MMR rerank for diversity, then grounded synthesis.
package docqa

import (
	"context"
	"fmt"
	"log"
	"strings"

	"incentive-agent-be/pkg/embedding"
	"incentive-agent-be/pkg/llm"
	"incentive-agent-be/pkg/retry"
)

const (
	// Inner-product score is 1 + cosine, in [0, 2].
	HardAccept = 1.60
	SoftAccept = 1.50

	FirstStageK = 12 // fetch more to allow reranking/diversity
	MaxContext  = 5  // passages fed to the model
	MMRKeep     = 5
	MMRLambda   = 0.7
)

// Passage is one retrieved document chunk.
type Passage struct {
	File    string  `json:"file"`
	Section string  `json:"section,omitempty"`
	Page    int     `json:"page,omitempty"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// Retriever runs the first-stage vector search.
type Retriever interface {
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]Passage, error)
}

// Result is the synthesized document answer.
type Result struct {
	Text     string    `json:"answer_text"`
	Sources  []Passage `json:"sources"`
	TopScore float64   `json:"top_score"`
}

// Citation renders a passage source as "[file — section p.N]".
func Citation(p Passage) string {
	sec := strings.TrimSpace(p.Section)
	if sec == "" {
		sec = "Section"
	}
	base := fmt.Sprintf("%s — %s", p.File, sec)
	if p.Page > 0 {
		return fmt.Sprintf("[%s p.%d]", base, p.Page)
	}
	return "[" + base + "]"
}

const docSystemPrompt = "You are a precise partner-guide assistant that must answer only from the provided passages.\n" +
	"Rules:\n" +
	"- If the passages don't contain the answer, say so explicitly.\n" +
	"- Keep answers concise (max ~6 lines). Use bullet points only if steps are asked."

// Agent glues retrieval, rerank, and synthesis. Embedding and chat calls
// retry under the policy; retrieval fails fast.
type Agent struct {
	embedder  embedding.Provider
	retriever Retriever
	provider  llm.LLMProvider
	policy    retry.Policy
	logger    *log.Logger
}

func NewAgent(embedder embedding.Provider, retriever Retriever, provider llm.LLMProvider, policy retry.Policy, logger *log.Logger) *Agent {
	return &Agent{
		embedder:  embedder,
		retriever: retriever,
		provider:  provider,
		policy:    policy,
		logger:    logger,
	}
}

// Answer runs the full document-QA turn. It never returns an error: index
// or model failures degrade to an apologetic answer with no sources.
func (a *Agent) Answer(ctx context.Context, question string) Result {
	qEmb, err := retry.DoWithData(ctx, a.policy, func() ([]float32, error) {
		return a.embedder.Embed(ctx, question)
	})
	if err != nil {
		a.logger.Printf("[DOCQA] query embedding failed: %v", err)
		return Result{Text: "Sorry, I couldn't query the document index right now."}
	}

	hits, err := a.retriever.Search(ctx, qEmb, FirstStageK)
	if err != nil {
		a.logger.Printf("[DOCQA] retrieval failed: %v", err)
		return Result{Text: "Sorry, I couldn't query the document index right now."}
	}
	if len(hits) == 0 {
		return Result{Text: "I don't have enough policy context to answer that yet."}
	}

	topScore := hits[0].Score

	ctxHits := a.rerank(ctx, question, qEmb, hits)
	if len(ctxHits) > MaxContext {
		ctxHits = ctxHits[:MaxContext]
	}

	text := a.synthesize(ctx, question, ctxHits)

	sources := ctxHits
	if len(sources) > 3 {
		sources = sources[:3]
	}
	return Result{Text: text, Sources: sources, TopScore: topScore}
}

func (a *Agent) rerank(ctx context.Context, question string, qEmb []float32, hits []Passage) []Passage {
	embs := make([][]float32, len(hits))
	for i, h := range hits {
		emb, err := retry.DoWithData(ctx, a.policy, func() ([]float32, error) {
			return a.embedder.Embed(ctx, h.Text)
		})
		if err != nil {
			// Fall back to first-stage order when candidate embedding fails.
			a.logger.Printf("[DOCQA] candidate embedding failed, keeping first-stage order: %v", err)
			if len(hits) > MMRKeep {
				return hits[:MMRKeep]
			}
			return hits
		}
		embs[i] = emb
	}
	return mmrSelect(qEmb, embs, hits, MMRKeep, MMRLambda)
}

func (a *Agent) synthesize(ctx context.Context, question string, hits []Passage) string {
	var b strings.Builder
	b.WriteString("User question:\n" + question + "\n\n")
	b.WriteString("Answer using the passages below. If the passages do not contain the answer, say so.\n")
	for i, h := range hits {
		fmt.Fprintf(&b, "\n### Passage %d\nSource: %s\n\n%s\n", i+1, Citation(h), h.Text)
	}

	resp, err := retry.DoWithData(ctx, a.policy, func() (string, error) {
		return a.provider.Chat(ctx, []llm.Message{
			{Role: "system", Content: docSystemPrompt},
			{Role: "user", Content: b.String()},
		}, llm.WithTemperature(0))
	})
	if err != nil {
		a.logger.Printf("[DOCQA] synthesis failed: %v", err)
		return "I couldn't generate a response from the provided passages."
	}
	if text := strings.TrimSpace(resp); text != "" {
		return text
	}
	return "I couldn't generate a response from the provided passages."
}
