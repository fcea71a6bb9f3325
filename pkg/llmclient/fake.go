package llmclient

import (
	"context"
	"math"
)

// Fake is a scripted Client + EmbeddingClient used by tests. Responses are
// consumed in order; once exhausted, Complete/CompleteJSON return
// ErrTransient so tests can exercise retry exhaustion.
type Fake struct {
	Responses []string
	JSONCalls int
	Calls     int

	// EmbedFunc, when set, overrides the default deterministic embedding.
	EmbedFunc func(text string) []float64
	Dims      int
}

func NewFake(responses ...string) *Fake {
	return &Fake{Responses: responses, Dims: 8}
}

func (f *Fake) Complete(_ context.Context, _ Request) (string, error) {
	f.Calls++
	if f.Calls > len(f.Responses) {
		return "", ErrTransient
	}
	return f.Responses[f.Calls-1], nil
}

func (f *Fake) CompleteJSON(ctx context.Context, req Request, schema []byte) ([]byte, error) {
	resp, err := f.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	f.JSONCalls++
	raw := []byte(resp)
	if err := ValidateJSON(raw, schema); err != nil {
		return nil, err
	}
	return raw, nil
}

func (f *Fake) Embed(_ context.Context, text string) ([]float64, error) {
	if f.EmbedFunc != nil {
		return f.EmbedFunc(text), nil
	}
	return deterministicEmbedding(text, f.Dimensions()), nil
}

func (f *Fake) Dimensions() int {
	if f.Dims == 0 {
		return 8
	}
	return f.Dims
}

// deterministicEmbedding derives a stable pseudo-embedding from text so
// Fake-backed tests get reproducible similarity without a real model.
func deterministicEmbedding(text string, dims int) []float64 {
	v := make([]float64, dims)
	h := uint32(2166136261)
	for i := 0; i < len(text); i++ {
		h ^= uint32(text[i])
		h *= 16777619
		v[i%dims] += float64(h%997) / 997.0
	}
	return normalize(v)
}

func normalize(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
