package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

type record struct {
	id        string
	document  string
	embedding []float64
	metadata  map[string]Scalar
}

// Memory is an in-process Store backed by a full cosine-similarity scan.
// No vector-database client appears anywhere in the reference corpus this
// module was grounded on, so the index is hand-rolled; a Postgres-backed
// Store (see postgres.go) provides durability for the same interface.
type Memory struct {
	mu   sync.RWMutex
	dims int
	recs map[string]*record
	// order preserves insertion order for deterministic Aggregate iteration.
	order []string
}

// NewMemory creates an empty store fixed at dims embedding dimensions
// (spec.md §4.2: "dimensionality is fixed at store-initialization time").
func NewMemory(dims int) *Memory {
	return &Memory{dims: dims, recs: make(map[string]*record)}
}

func (m *Memory) Store(_ context.Context, id, document string, embedding []float64, metadata map[string]Scalar) error {
	if len(embedding) != m.dims {
		return fmt.Errorf("knowledge: embedding has %d dimensions, store fixed at %d", len(embedding), m.dims)
	}
	md := make(map[string]Scalar, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	emb := make([]float64, len(embedding))
	copy(emb, embedding)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.recs[id]; !exists {
		m.order = append(m.order, id)
	}
	m.recs[id] = &record{id: id, document: document, embedding: emb, metadata: md}
	return nil
}

func (m *Memory) Query(_ context.Context, embedding []float64, k int, scalarFilter map[string]Scalar, textFilter string) ([]Hit, error) {
	if len(embedding) != m.dims {
		return nil, fmt.Errorf("knowledge: query embedding has %d dimensions, store fixed at %d", len(embedding), m.dims)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, len(m.recs))
	for _, r := range m.recs {
		if !matchesFilter(r.metadata, scalarFilter) {
			continue
		}
		if textFilter != "" && !strings.Contains(r.document, textFilter) {
			continue
		}
		hits = append(hits, Hit{
			ID:         r.id,
			Document:   r.document,
			Metadata:   copyMetadata(r.metadata),
			Similarity: cosineSimilarity(embedding, r.embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID // stable tie-break
	})

	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Memory) Get(_ context.Context, id string) (string, map[string]Scalar, []float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recs[id]
	if !ok {
		return "", nil, nil, ErrNotFound
	}
	emb := make([]float64, len(r.embedding))
	copy(emb, r.embedding)
	return r.document, copyMetadata(r.metadata), emb, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recs), nil
}

func (m *Memory) Aggregate(_ context.Context, groupBy []string) (Aggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agg := Aggregate{CountByField: make(map[string]map[string]int)}
	for _, f := range groupBy {
		agg.CountByField[f] = make(map[string]int)
	}

	var totalDuration float64
	var durationCount int

	for _, id := range m.order {
		r, ok := m.recs[id]
		if !ok {
			continue
		}
		agg.Total++
		for _, f := range groupBy {
			v, ok := r.metadata[f]
			if !ok {
				continue
			}
			agg.CountByField[f][fmt.Sprint(v)]++
		}
		if success, ok := r.metadata["success"]; ok {
			if b, ok := success.(bool); ok {
				if b {
					agg.TotalPassed++
				} else {
					agg.TotalFailed++
				}
			}
		}
		if d, ok := r.metadata["durationMs"]; ok {
			if dv, ok := toFloat(d); ok {
				totalDuration += dv
				durationCount++
			}
		}
	}
	if durationCount > 0 {
		agg.AverageDurationMs = totalDuration / float64(durationCount)
	}
	return agg, nil
}

func matchesFilter(metadata, filter map[string]Scalar) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func copyMetadata(m map[string]Scalar) map[string]Scalar {
	out := make(map[string]Scalar, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toFloat(v Scalar) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// cosineSimilarity derives similarity from cosine distance as 1 - distance
// (spec.md §4.2), returning 0 for a zero-norm vector rather than NaN.
func cosineSimilarity(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	distance := 1 - cos
	return 1 - distance
}
