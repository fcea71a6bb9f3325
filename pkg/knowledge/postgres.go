package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a durable Store backed directly by pgx/v5 (no ORM — the
// generated Ent client this repo's migrations layer once assumed is
// unavailable without running codegen, so queries here are hand-written,
// following pkg/database/client.go's direct-driver connection setup).
// Similarity ranking still happens in Go: no pgvector extension appears
// anywhere in the reference corpus, so Query fetches candidate rows
// filtered by scalarFilter/textFilter in SQL and ranks them by cosine
// similarity in memory.
type Postgres struct {
	pool *pgxpool.Pool
	dims int
}

// NewPostgres wraps an existing pool. Callers run migrations (see
// migrations/) before first use.
func NewPostgres(pool *pgxpool.Pool, dims int) *Postgres {
	return &Postgres{pool: pool, dims: dims}
}

func (p *Postgres) Store(ctx context.Context, id, document string, embedding []float64, metadata map[string]Scalar) error {
	if len(embedding) != p.dims {
		return fmt.Errorf("knowledge: embedding has %d dimensions, store fixed at %d", len(embedding), p.dims)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("knowledge: marshal metadata: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO knowledge_documents (id, document, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = now()
	`, id, document, embedding, metaJSON)
	if err != nil {
		return fmt.Errorf("knowledge: store %q: %w", id, err)
	}
	return nil
}

func (p *Postgres) Query(ctx context.Context, embedding []float64, k int, scalarFilter map[string]Scalar, textFilter string) ([]Hit, error) {
	if len(embedding) != p.dims {
		return nil, fmt.Errorf("knowledge: query embedding has %d dimensions, store fixed at %d", len(embedding), p.dims)
	}

	query := `SELECT id, document, embedding, metadata FROM knowledge_documents WHERE 1=1`
	args := []any{}
	argN := 0
	for field, want := range scalarFilter {
		argN++
		query += fmt.Sprintf(" AND metadata->>%s = $%d", quoteLiteral(field), argN)
		_ = field
		args = append(args, fmt.Sprint(want))
	}
	if textFilter != "" {
		argN++
		query += fmt.Sprintf(" AND document LIKE $%d", argN)
		args = append(args, "%"+textFilter+"%")
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("knowledge: query: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id, document string
		var emb []float64
		var metaJSON []byte
		if err := rows.Scan(&id, &document, &emb, &metaJSON); err != nil {
			return nil, fmt.Errorf("knowledge: scan row: %w", err)
		}
		var metadata map[string]Scalar
		if err := json.Unmarshal(metaJSON, &metadata); err != nil {
			return nil, fmt.Errorf("knowledge: unmarshal metadata for %q: %w", id, err)
		}
		hits = append(hits, Hit{
			ID:         id,
			Document:   document,
			Metadata:   metadata,
			Similarity: cosineSimilarity(embedding, emb),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: row iteration: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (string, map[string]Scalar, []float64, error) {
	var document string
	var embedding []float64
	var metaJSON []byte
	err := p.pool.QueryRow(ctx, `SELECT document, embedding, metadata FROM knowledge_documents WHERE id = $1`, id).
		Scan(&document, &embedding, &metaJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil, nil, ErrNotFound
		}
		return "", nil, nil, fmt.Errorf("knowledge: get %q: %w", id, err)
	}
	var metadata map[string]Scalar
	if err := json.Unmarshal(metaJSON, &metadata); err != nil {
		return "", nil, nil, fmt.Errorf("knowledge: unmarshal metadata for %q: %w", id, err)
	}
	return document, metadata, embedding, nil
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM knowledge_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("knowledge: count: %w", err)
	}
	return n, nil
}

func (p *Postgres) Aggregate(ctx context.Context, groupBy []string) (Aggregate, error) {
	agg := Aggregate{CountByField: make(map[string]map[string]int)}

	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM knowledge_documents`).Scan(&agg.Total); err != nil {
		return Aggregate{}, fmt.Errorf("knowledge: aggregate total: %w", err)
	}

	for _, field := range groupBy {
		counts := make(map[string]int)
		col := quoteLiteral(field)
		rows, err := p.pool.Query(ctx, fmt.Sprintf(
			`SELECT metadata->>%s AS v, count(*) FROM knowledge_documents WHERE metadata ? %s GROUP BY v`, col, quoteLiteral(field)))
		if err != nil {
			return Aggregate{}, fmt.Errorf("knowledge: aggregate field %q: %w", field, err)
		}
		for rows.Next() {
			var v string
			var n int
			if err := rows.Scan(&v, &n); err != nil {
				rows.Close()
				return Aggregate{}, fmt.Errorf("knowledge: scan aggregate field %q: %w", field, err)
			}
			counts[v] = n
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return Aggregate{}, fmt.Errorf("knowledge: aggregate field %q rows: %w", field, err)
		}
		agg.CountByField[field] = counts
	}

	err := p.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE (metadata->>'success')::boolean IS TRUE),
			count(*) FILTER (WHERE (metadata->>'success')::boolean IS FALSE),
			coalesce(avg((metadata->>'durationMs')::double precision), 0)
		FROM knowledge_documents
	`).Scan(&agg.TotalPassed, &agg.TotalFailed, &agg.AverageDurationMs)
	if err != nil {
		return Aggregate{}, fmt.Errorf("knowledge: aggregate pass/fail/duration: %w", err)
	}
	return agg, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
