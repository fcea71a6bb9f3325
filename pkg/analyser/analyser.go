// Package analyser implements the Failure Analyser (C4, spec.md §4.4):
// invoked once a step has exhausted retries (and Selector Resolver auto-heal,
// if applicable), it produces a structured FailureAnalysis via the Knowledge
// Store and an LLM client. It never throws — any collaborator failure
// degrades to understood=false with the error recorded as the sole
// PossibleCauses entry.
package analyser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/llmclient"
	"github.com/webqa/autoheal/pkg/plan"
)

// ContextK bounds how many prior failures the analyser retrieves for
// context (spec.md §4.4 step 1).
const ContextK = 3

// LLMTimeout bounds a single analysis call (spec.md §5 budgets).
const LLMTimeout = 20 * time.Second

// Input carries everything C5 has in hand about a terminally failed step.
type Input struct {
	TestID        string
	Step          plan.Step
	ErrorKind     plan.ErrorKind
	ErrorMessage  string
	CurrentURL    string
	PageTitle     string
}

// Analyser ties the Knowledge Store to an LLM client.
type Analyser struct {
	Store knowledge.Store
	Embed llmclient.EmbeddingClient
	LLM   llmclient.Client
}

func New(store knowledge.Store, embed llmclient.EmbeddingClient, llm llmclient.Client) *Analyser {
	return &Analyser{Store: store, Embed: embed, LLM: llm}
}

type llmAnalysisResponse struct {
	Understood     bool     `json:"understood"`
	Intent         string   `json:"intent"`
	PossibleCauses []string `json:"possibleCauses"`
	SuggestedFixes []string `json:"suggestedFixes"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
}

const analysisSchema = `{
  "type": "object",
  "required": ["understood", "confidence"],
  "properties": {
    "understood": {"type": "boolean"},
    "intent": {"type": "string"},
    "possibleCauses": {"type": "array", "items": {"type": "string"}},
    "suggestedFixes": {"type": "array", "items": {"type": "string"}},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "reasoning": {"type": "string"}
  }
}`

// Analyse never returns an error: failures become an unresolved
// FailureAnalysis whose RawModelLog decision line and single PossibleCauses
// entry record what went wrong.
func (a *Analyser) Analyse(ctx context.Context, in Input) *plan.FailureAnalysis {
	log := []string{fmt.Sprintf("start: analysing step %d (%s) of test %s", in.Step.Ordinal, in.Step.Kind, in.TestID)}

	log = append(log, fmt.Sprintf("intent extraction: %s", in.Step.Description))

	priorHits := a.contextHits(ctx, in)
	log = append(log, fmt.Sprintf("cache lookup: %d prior failure(s) retrieved", len(priorHits)))

	log = append(log, "model invocation: requesting structured diagnosis")
	resp, err := a.invoke(ctx, in, priorHits)
	if err != nil {
		log = append(log, fmt.Sprintf("decision: model invocation failed (%v); understood=false", err))
		analysis := &plan.FailureAnalysis{
			Understood:     false,
			Intent:         in.Step.Description,
			PossibleCauses: []string{err.Error()},
			Confidence:     0,
		}
		a.persist(ctx, in, analysis)
		log = append(log, "store: persisted degraded analysis to knowledge store")
		analysis.RawModelLog = log
		return analysis
	}

	decision := "decision: model diagnosis accepted"
	if !resp.Understood {
		decision = "decision: model reported insufficient context; understood=false"
	}
	log = append(log, decision)

	analysis := &plan.FailureAnalysis{
		Understood:     resp.Understood,
		Intent:         resp.Intent,
		PossibleCauses: resp.PossibleCauses,
		SuggestedFixes: resp.SuggestedFixes,
		Confidence:     resp.Confidence,
	}

	a.persist(ctx, in, analysis)
	log = append(log, "store: persisted analysis to knowledge store")
	analysis.RawModelLog = log
	return analysis
}

func (a *Analyser) contextHits(ctx context.Context, in Input) []knowledge.Hit {
	if a.Store == nil || a.Embed == nil {
		return nil
	}
	query := fmt.Sprintf("failure: %s %s", in.Step.Description, in.ErrorMessage)
	emb, err := a.Embed.Embed(ctx, query)
	if err != nil {
		return nil
	}
	hits, err := a.Store.Query(ctx, emb, ContextK, map[string]knowledge.Scalar{"type": "failure_analysis"}, "")
	if err != nil {
		return nil
	}
	return hits
}

func (a *Analyser) invoke(ctx context.Context, in Input, priorHits []knowledge.Hit) (*llmAnalysisResponse, error) {
	if a.LLM == nil {
		return nil, fmt.Errorf("no llm client configured")
	}
	ctx, cancel := context.WithTimeout(ctx, LLMTimeout)
	defer cancel()

	prompt := buildAnalysisPrompt(in, priorHits)

	var raw []byte
	err := llmclient.WithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = a.LLM.CompleteJSON(ctx, llmclient.Request{
			SystemPrompt: "You diagnose why a browser automation step failed. Respond with a single JSON object.",
			UserPrompt:   prompt,
			Timeout:      LLMTimeout,
		}, []byte(analysisSchema))
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var resp llmAnalysisResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal llm response: %w", err)
	}
	return &resp, nil
}

func buildAnalysisPrompt(in Input, priorHits []knowledge.Hit) string {
	prompt := fmt.Sprintf(
		"Step %d (%s) failed.\nDescription: %s\nTarget: %s\nErrorKind: %s\nErrorMessage: %s\nCurrent URL: %s\nPage title: %s\nPrior similar failures: %d\n",
		in.Step.Ordinal, in.Step.Kind, in.Step.Description, in.Step.Target,
		in.ErrorKind, in.ErrorMessage, in.CurrentURL, in.PageTitle, len(priorHits),
	)
	for _, h := range priorHits {
		prompt += fmt.Sprintf("- %s (similarity %.2f)\n", h.Document, h.Similarity)
	}
	prompt += `Return JSON: {"understood": bool, "intent": string, "possibleCauses": [string], "suggestedFixes": [string], "confidence": 0..1, "reasoning": string}`
	return prompt
}

func (a *Analyser) persist(ctx context.Context, in Input, analysis *plan.FailureAnalysis) {
	if a.Store == nil || a.Embed == nil {
		return
	}
	doc := fmt.Sprintf("failure: %s %s", in.Step.Description, in.ErrorMessage)
	emb, err := a.Embed.Embed(ctx, doc)
	if err != nil {
		return
	}
	id := fmt.Sprintf("failure_analysis:%s:%d:%d", in.TestID, in.Step.Ordinal, time.Now().UnixNano())
	_ = a.Store.Store(ctx, id, doc, emb, map[string]knowledge.Scalar{
		"type":        "failure_analysis",
		"testId":      in.TestID,
		"stepOrdinal": in.Step.Ordinal,
		"errorKind":   string(in.ErrorKind),
		"understood":  analysis.Understood,
		"confidence":  analysis.Confidence,
	})
}
