// Package retrieval answers search queries by fusing two independent
// rankings over the same chunks: keyword (BM25) and vector similarity.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"notebase/internal/chunk"
	"notebase/internal/middleware"
	"notebase/internal/rank"
)

// Hit is one entry of a single index's ranked result list. Rank is the
// 1-based position within that index's own ordering.
type Hit struct {
	ChunkID   string
	EntityID  string
	Title     string
	Content   string
	Scope     string
	ProjectID string
	Rank      int
}

// Result is a fused search hit returned to the client.
type Result struct {
	ChunkID   string  `json:"chunkId"`
	EntityID  string  `json:"entityId"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Scope     string  `json:"scope"`
	ProjectID string  `json:"projectId,omitempty"`
	Score     float64 `json:"score"`
}

// Filter narrows both index lookups to a chunk metadata subset.
type Filter struct {
	Scope     string
	ProjectID string
}

type SearchOptions struct {
	Filter Filter
	Limit  int
}

const defaultLimit = 10

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type FullTextIndex interface {
	SearchBM25(ctx context.Context, query string, limit int, f Filter) ([]Hit, error)
}

type VectorIndex interface {
	SearchVector(ctx context.Context, vector []float32, limit int, f Filter) ([]Hit, error)
}

type Service struct {
	embedder Embedder
	fullText FullTextIndex
	vectors  VectorIndex
	logger   *QueryLogger
}

func NewService(embedder Embedder, fullText FullTextIndex, vectors VectorIndex, logger *QueryLogger) *Service {
	return &Service{embedder: embedder, fullText: fullText, vectors: vectors, logger: logger}
}

// Search runs the keyword and vector lookups in parallel and fuses their
// rankings with RRF. When the query embedding fails the vector side is
// skipped and keyword results are returned alone; results are only an
// error when both sides fail.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	start := time.Now()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		wg      sync.WaitGroup
		ftHits  []Hit
		vecHits []Hit
		ftErr   error
		vecErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		ftHits, ftErr = s.fullText.SearchBM25(ctx, query, limit, opts.Filter)
	}()
	go func() {
		defer wg.Done()
		vector, err := s.embedder.Embed(ctx, query)
		if err != nil {
			vecErr = fmt.Errorf("embed query: %w", err)
			return
		}
		vecHits, vecErr = s.vectors.SearchVector(ctx, vector, limit, opts.Filter)
	}()
	wg.Wait()

	if ftErr != nil && vecErr != nil {
		return nil, fmt.Errorf("search: fulltext=%v, vector=%w", ftErr, vecErr)
	}
	if ftErr != nil {
		slog.WarnContext(ctx, "full-text search failed, using vector results only", "error", ftErr)
	}
	if vecErr != nil {
		slog.WarnContext(ctx, "vector search unavailable, using keyword results only", "error", vecErr)
	}

	merged := rank.MergeRRF(toRanked(ftHits), toRanked(vecHits), rank.DefaultK)
	if len(merged) > limit {
		merged = merged[:limit]
	}

	byID := make(map[string]Hit, len(ftHits)+len(vecHits))
	for _, h := range vecHits {
		byID[h.ChunkID] = h
	}
	for _, h := range ftHits {
		byID[h.ChunkID] = h
	}

	results := make([]Result, 0, len(merged))
	for _, m := range merged {
		h, ok := byID[m.ID]
		if !ok {
			continue
		}
		results = append(results, Result{
			ChunkID:   h.ChunkID,
			EntityID:  h.EntityID,
			Title:     h.Title,
			Snippet:   chunk.Truncate(h.Content),
			Scope:     h.Scope,
			ProjectID: h.ProjectID,
			Score:     m.Score,
		})
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         query,
			NumResults:    len(results),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	return results, nil
}

func toRanked(hits []Hit) []rank.Hit {
	ranked := make([]rank.Hit, 0, len(hits))
	for _, h := range hits {
		ranked = append(ranked, rank.Hit{ID: h.ChunkID, Rank: h.Rank})
	}
	return ranked
}
