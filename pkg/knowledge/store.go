// Package knowledge implements the Knowledge Store (C2, spec.md §4.2): a
// vector index over text documents with a metadata side-channel for scalar
// filters. Two implementations ship: Memory (cosine similarity over an
// in-process slice, grounded on no external vector-database client existing
// anywhere in the reference corpus) and Postgres (durable, pgx/v5-backed).
package knowledge

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no document exists for the given id.
var ErrNotFound = errors.New("knowledge: document not found")

// Scalar is one of string, int64, float64 or bool — the metadata value
// types spec.md §4.2 allows.
type Scalar = any

// Hit is one ranked query result.
type Hit struct {
	ID         string
	Document   string
	Metadata   map[string]Scalar
	Similarity float64
}

// Aggregate summarizes the store's contents for impact analysis and
// dashboards (spec.md §4.2 aggregate()).
type Aggregate struct {
	Total          int
	CountByField   map[string]map[string]int // field name -> value -> count
	TotalPassed    int
	TotalFailed    int
	AverageDurationMs float64
}

// Store is the Knowledge Store's public contract. All methods must be safe
// for concurrent callers; a single Store call is atomic per id.
type Store interface {
	// Store upserts document/embedding/metadata under id. Implementations
	// must preserve every caller-supplied metadata field verbatim — the
	// store has no fixed schema.
	Store(ctx context.Context, id, document string, embedding []float64, metadata map[string]Scalar) error

	// Query returns up to k hits ordered by descending similarity.
	// scalarFilter, when non-nil, restricts to documents whose metadata
	// matches every given field exactly. textFilter, when non-empty,
	// restricts to documents whose text contains it as a substring.
	Query(ctx context.Context, embedding []float64, k int, scalarFilter map[string]Scalar, textFilter string) ([]Hit, error)

	// Get returns the document, metadata and embedding stored under id, or
	// ErrNotFound.
	Get(ctx context.Context, id string) (document string, metadata map[string]Scalar, embedding []float64, err error)

	// Count returns the number of documents currently stored.
	Count(ctx context.Context) (int, error)

	// Aggregate computes counts and duration statistics across the whole
	// store, grouped by the fields named in groupBy (e.g. "testType",
	// "browser", "success").
	Aggregate(ctx context.Context, groupBy []string) (Aggregate, error)
}
