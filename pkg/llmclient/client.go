// Package llmclient defines the pluggable LLM and embedding client
// interfaces the core depends on (spec.md §1: "depend on a pluggable LLM
// client and embedding client — not on any specific provider"), mirroring
// how pkg/agent.LLMClient is the teacher's seam onto its Python LLM service.
package llmclient

import (
	"context"
	"time"
)

// Client is the neutral interface onto a structured-JSON-capable LLM
// provider. The core never imports a provider SDK directly.
type Client interface {
	// Complete sends a prompt and returns the raw response text. Used where
	// no structured schema applies (e.g. free-text reasoning embedded in a
	// larger JSON field).
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteJSON sends a prompt that must produce a JSON object, validates
	// it against schema, and returns the raw validated JSON bytes. Callers
	// unmarshal into their own typed struct. A schema violation returns
	// ErrSchema; callers may re-prompt once per spec.md §7's llm.schema
	// recovery policy.
	CompleteJSON(ctx context.Context, req Request, schema []byte) ([]byte, error)
}

// Request is the provider-neutral prompt envelope.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Timeout      time.Duration
	MaxTokens    int
}

// EmbeddingClient produces fixed-dimensionality vectors for the Knowledge
// Store (spec.md §4.2). Dimensionality is fixed at store-initialization time.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}
