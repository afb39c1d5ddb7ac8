package ingest

import (
	"context"

	"notebase/features/retryqueue"
	"notebase/internal/chunk"
)

// IndexableEntity is the slice of a knowledge entity the index pipeline
// needs: identity, display text and the chunk filter metadata.
type IndexableEntity struct {
	ID      string
	Title   string
	Content string
	Meta    chunk.Metadata
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores chunk vectors keyed by chunk id. There is no native
// delete-by-prefix, so entity-wide deletion goes through ChunkIDsByEntity
// followed by DeleteByIDs.
type VectorIndex interface {
	Upsert(ctx context.Context, c chunk.Chunk, vector []float32) error
	DeleteByIDs(ctx context.Context, chunkIDs []string) error
	ChunkIDsByEntity(ctx context.Context, entityID string) ([]string, error)
}

// RetryStore is the durable queue the pipeline degrades into on failure.
type RetryStore interface {
	Enqueue(ctx context.Context, entityID string, op retryqueue.Operation, errMsg string, maxAttempts int, deadLetter bool) (*retryqueue.Item, error)
	ListPending(ctx context.Context, limit int) ([]retryqueue.Item, error)
	TryClaim(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, id, errMsg string, permanent bool) (retryqueue.Status, error)
	Resolve(ctx context.Context, id string) error
}

// EntitySource re-reads current entity content when a queued operation is
// re-attempted. Implementations return ErrEntityNotFound for entities that
// have been deleted since the failure was recorded.
type EntitySource interface {
	GetForIndexing(ctx context.Context, id string) (*IndexableEntity, error)
}
