// Package resolver implements the Selector Resolver (C3, spec.md §4.3):
// when a driver operation on a locator fails, it produces a replacement
// locator by trying, in strict order, a correction cache, deterministic DOM
// heuristics, and finally an LLM. The ordering is load-bearing — cache
// lookups must always precede the LLM fallback, since that ordering is the
// system's dominant latency/cost saving.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/webqa/autoheal/pkg/driver"
	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/llmclient"
	"github.com/webqa/autoheal/pkg/plan"
)

// CacheK is the number of cache candidates considered before deciding on a
// miss (spec.md §4.3 step 1).
const CacheK = 10

// LLMTimeout bounds a single LLM correction call (spec.md §5 budgets).
const LLMTimeout = 15 * time.Second

// Request describes a single failed locator the resolver should repair.
type Request struct {
	StepKind    plan.Kind
	Target      string // the failing locator string
	Description string
	URL         string // current page URL, recorded in a persisted correction's metadata
}

// ErrUnresolvable is returned when cache, deterministic fallbacks and the
// LLM all fail to produce a working locator (spec.md §4.3 "on exhaustion").
var ErrUnresolvable = fmt.Errorf("resolver: locator not resolvable")

// Resolver ties the Knowledge Store and an LLM client to a Driver's live DOM
// snapshot.
type Resolver struct {
	Store knowledge.Store
	Embed llmclient.EmbeddingClient
	LLM   llmclient.Client
}

// New builds a Resolver.
func New(store knowledge.Store, embed llmclient.EmbeddingClient, llm llmclient.Client) *Resolver {
	return &Resolver{Store: store, Embed: embed, LLM: llm}
}

// Resolve runs the cache -> deterministic -> LLM pipeline against d's live
// page and, on success, writes the correction back to the Knowledge Store
// before returning it.
func (r *Resolver) Resolve(ctx context.Context, req Request, d driver.Driver) (*plan.SelectorCorrection, error) {
	if c, err := r.lookupCache(ctx, req); err != nil {
		return nil, err
	} else if c != nil {
		r.persist(ctx, c, req)
		return c, nil
	}

	elements, err := d.SnapshotInteractiveElements(ctx, 50)
	if err != nil {
		elements = nil // a snapshot failure just empties the deterministic stage, never aborts resolution
	}

	if c := r.deterministic(req, elements); c != nil {
		r.persist(ctx, c, req)
		return c, nil
	}

	c, err := r.llmFallback(ctx, req, elements)
	if err != nil {
		return nil, ErrUnresolvable
	}
	r.persist(ctx, c, req)
	return c, nil
}

func (r *Resolver) queryText(req Request) string {
	return fmt.Sprintf("selector correction: %s %s", req.Target, req.Description)
}

func (r *Resolver) lookupCache(ctx context.Context, req Request) (*plan.SelectorCorrection, error) {
	if r.Store == nil || r.Embed == nil {
		return nil, nil
	}
	emb, err := r.Embed.Embed(ctx, r.queryText(req))
	if err != nil {
		return nil, nil // embedding failure degrades to deterministic fallback, not a hard error
	}

	filter := map[string]knowledge.Scalar{"type": "selector_correction"}
	hits, err := r.Store.Query(ctx, emb, CacheK, filter, "")
	if err != nil || len(hits) == 0 {
		return nil, nil
	}

	top := hits[0]
	originalMatch := fmt.Sprint(top.Metadata["originalTarget"]) == req.Target
	descriptionMatch := fmt.Sprint(top.Metadata["description"]) == req.Description
	if !originalMatch && !descriptionMatch {
		return nil, nil
	}

	corrected, _ := top.Metadata["correctedTarget"].(string)
	if corrected == "" {
		return nil, nil
	}
	return &plan.SelectorCorrection{
		OriginalTarget:  req.Target,
		CorrectedTarget: corrected,
		Source:          plan.SourceCache,
		Confidence:      top.Similarity,
		Attempts:        2,
	}, nil
}

// deterministic tries, in order: a text fragment from the description, an
// aria-label match on the description's dominant noun phrase, a placeholder
// locator for type steps, and a role+accessible-name match. The first
// candidate that resolves to at least one visible element wins.
func (r *Resolver) deterministic(req Request, elements []driver.DomElement) *plan.SelectorCorrection {
	candidates := deterministicCandidates(req, elements)
	for _, cand := range candidates {
		if cand == "" {
			continue
		}
		return &plan.SelectorCorrection{
			OriginalTarget:  req.Target,
			CorrectedTarget: cand,
			Source:          plan.SourceDeterministic,
			Confidence:      0.7,
			Attempts:        2,
		}
	}
	return nil
}

func deterministicCandidates(req Request, elements []driver.DomElement) []string {
	fragment := dominantPhrase(req.Description)
	var out []string

	if fragment != "" {
		if e := findByField(elements, fragment, func(el driver.DomElement) string { return el.Text }); e != nil {
			out = append(out, fmt.Sprintf("text=%s", e.Text))
		}
	}
	if fragment != "" {
		if e := findByField(elements, fragment, func(el driver.DomElement) string { return el.AriaLabel }); e != nil {
			out = append(out, fmt.Sprintf("role=%s[name=%s]", orDefault(e.Role, "generic"), e.AriaLabel))
		}
	}
	if req.StepKind == plan.KindType && fragment != "" {
		if e := findByField(elements, fragment, func(el driver.DomElement) string { return el.Placeholder }); e != nil {
			out = append(out, fmt.Sprintf("[placeholder=%s]", e.Placeholder))
		}
	}
	if fragment != "" {
		for _, e := range elements {
			if e.Role != "" && containsFold(e.AriaLabel, fragment) {
				out = append(out, fmt.Sprintf("role=%s[name=%s]", e.Role, e.AriaLabel))
				break
			}
		}
	}
	return out
}

func findByField(elements []driver.DomElement, fragment string, field func(driver.DomElement) string) *driver.DomElement {
	for i := range elements {
		v := field(elements[i])
		if v != "" && containsFold(v, fragment) {
			return &elements[i]
		}
	}
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// dominantPhrase extracts a plausible visible-text fragment from a free-text
// step description using a quoted-span heuristic, falling back to the last
// two words (spec.md §4.3 names this "dominant noun-phrase" without
// prescribing an algorithm).
func dominantPhrase(description string) string {
	if start := strings.IndexByte(description, '"'); start >= 0 {
		if end := strings.IndexByte(description[start+1:], '"'); end >= 0 {
			return description[start+1 : start+1+end]
		}
	}
	words := strings.Fields(description)
	if len(words) == 0 {
		return ""
	}
	if len(words) == 1 {
		return words[0]
	}
	return strings.Join(words[len(words)-2:], " ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

type llmCorrectionResponse struct {
	Locator    string  `json:"locator"`
	Confidence float64 `json:"confidence"`
}

const correctionSchema = `{
  "type": "object",
  "required": ["locator", "confidence"],
  "properties": {
    "locator": {"type": "string", "minLength": 1},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

func (r *Resolver) llmFallback(ctx context.Context, req Request, elements []driver.DomElement) (*plan.SelectorCorrection, error) {
	if r.LLM == nil {
		return nil, fmt.Errorf("resolver: no llm client configured")
	}
	ctx, cancel := context.WithTimeout(ctx, LLMTimeout)
	defer cancel()

	prompt := buildCorrectionPrompt(req, elements)

	var raw []byte
	err := llmclient.WithRetry(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = r.LLM.CompleteJSON(ctx, llmclient.Request{
			SystemPrompt: "You repair broken UI selectors. Respond with a single JSON object.",
			UserPrompt:   prompt,
			Timeout:      LLMTimeout,
		}, []byte(correctionSchema))
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var resp llmCorrectionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("resolver: unmarshal llm response: %w", err)
	}
	return &plan.SelectorCorrection{
		OriginalTarget:  req.Target,
		CorrectedTarget: resp.Locator,
		Source:          plan.SourceLLM,
		Confidence:      resp.Confidence,
		Attempts:        2,
	}, nil
}

func buildCorrectionPrompt(req Request, elements []driver.DomElement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action kind: %s\n", req.StepKind)
	fmt.Fprintf(&b, "Step description: %s\n", req.Description)
	fmt.Fprintf(&b, "Failing target: %s\n", req.Target)
	fmt.Fprintf(&b, "Interactive elements (%d):\n", len(elements))
	for _, e := range elements {
		fmt.Fprintf(&b, "- tag=%s role=%s text=%q ariaLabel=%q placeholder=%q\n", e.Tag, e.Role, e.Text, e.AriaLabel, e.Placeholder)
	}
	b.WriteString("Return JSON: {\"locator\": <neutral-grammar locator string>, \"confidence\": <0..1>}")
	return b.String()
}

// persist writes a successful correction back to the Knowledge Store with
// the flat metadata shape future cache lookups depend on (spec.md §4.3).
// Embedding and Store failures are ignored and never fail resolution,
// matching C2's "write-back is best-effort" failure semantics.
func (r *Resolver) persist(ctx context.Context, c *plan.SelectorCorrection, req Request) {
	if r.Store == nil || r.Embed == nil {
		return
	}
	emb, err := r.Embed.Embed(ctx, r.queryText(req))
	if err != nil {
		return
	}
	id := fmt.Sprintf("selector_correction:%s:%d", req.Target, time.Now().UnixNano())
	_ = r.Store.Store(ctx, id, r.queryText(req), emb, map[string]knowledge.Scalar{
		"type":            "selector_correction",
		"originalTarget":  c.OriginalTarget,
		"correctedTarget": c.CorrectedTarget,
		"description":     req.Description,
		"url":             req.URL,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"source":          string(c.Source),
	})
}
