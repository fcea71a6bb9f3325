package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/webqa/autoheal/pkg/impact"
)

// knowledgeStoreHandler handles POST /knowledge/store (spec.md §4.2). If the
// caller doesn't supply a pre-computed embedding, one is derived from the
// document text via the configured embedding client.
func (s *Server) knowledgeStoreHandler(c *echo.Context) error {
	var req knowledgeStoreRequest
	if err := c.Bind(&req); err != nil {
		return mapError(validationErr(err))
	}
	if req.ID == "" || req.Document == "" {
		return mapError(validationErr(errMissingIDOrDocument))
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	embedding := req.Embedding
	if len(embedding) == 0 {
		if s.embed == nil {
			return mapError(validationErr(errNoEmbeddingClient))
		}
		emb, err := s.embed.Embed(ctx, req.Document)
		if err != nil {
			return mapError(err)
		}
		embedding = emb
	}

	if err := s.knowledge.Store(ctx, req.ID, req.Document, embedding, req.Metadata); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// knowledgeQueryHandler handles POST /knowledge/query (spec.md §4.2).
func (s *Server) knowledgeQueryHandler(c *echo.Context) error {
	var req knowledgeQueryRequest
	if err := c.Bind(&req); err != nil {
		return mapError(validationErr(err))
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	embedding := req.Embedding
	if len(embedding) == 0 {
		if req.Query == "" {
			return mapError(validationErr(errMissingQueryOrEmbedding))
		}
		if s.embed == nil {
			return mapError(validationErr(errNoEmbeddingClient))
		}
		emb, err := s.embed.Embed(ctx, req.Query)
		if err != nil {
			return mapError(err)
		}
		embedding = emb
	}

	k := req.K
	if k <= 0 {
		k = 10
	}
	hits, err := s.knowledge.Query(ctx, embedding, k, req.ScalarFilter, req.TextFilter)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, &knowledgeQueryResponse{Hits: hits})
}

// knowledgeSimilarHandler handles GET /knowledge/similar/:runId: queries the
// store using a stored document's own embedding, excluding the document
// itself is left to the caller (spec.md §4.2 names no self-exclusion rule).
func (s *Server) knowledgeSimilarHandler(c *echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	_, _, embedding, err := s.knowledge.Get(ctx, c.Param("runId"))
	if err != nil {
		return mapError(err)
	}

	k := 10
	if kp := c.QueryParam("k"); kp != "" {
		if n, err := parsePositiveInt(kp); err == nil {
			k = n
		}
	}

	hits, err := s.knowledge.Query(ctx, embedding, k, nil, "")
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, &knowledgeQueryResponse{Hits: hits})
}

// knowledgeImpactHandler handles POST /knowledge/impact (spec.md §4.8). The
// Impact Analyser never errors — a collaborator failure degrades to a
// baseline-only recommendation, so this handler has no error path of its own
// beyond request validation.
func (s *Server) knowledgeImpactHandler(c *echo.Context) error {
	var req knowledgeImpactRequest
	if err := c.Bind(&req); err != nil {
		return mapError(validationErr(err))
	}
	if len(req.ChangedFiles) == 0 {
		return mapError(validationErr(errMissingChangedFiles))
	}
	if s.impact == nil {
		return mapError(validationErr(errNoImpactAnalyser))
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	rec := s.impact.Analyse(ctx, impact.ChangeSet{
		ChangedFiles:  req.ChangedFiles,
		CommitMessage: req.CommitMessage,
	})
	return c.JSON(http.StatusOK, &rec)
}
