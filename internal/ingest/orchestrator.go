// Package ingest keeps the vector index eventually consistent with entity
// content. The write path (chunk, embed, upsert) runs synchronously with
// the entity mutation but its failures never propagate to the caller: they
// are recorded on a durable retry queue swept in the background.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"notebase/features/retryqueue"
	"notebase/internal/chunk"
)

type Orchestrator struct {
	embedder     Embedder
	index        VectorIndex
	retries      RetryStore
	maxAttempts  int
	embedTimeout time.Duration
}

func NewOrchestrator(embedder Embedder, index VectorIndex, retries RetryStore, maxAttempts int, embedTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		embedder:     embedder,
		index:        index,
		retries:      retries,
		maxAttempts:  maxAttempts,
		embedTimeout: embedTimeout,
	}
}

// EntityUpserted reindexes an entity after a create or update. Index and
// provider failures degrade to a retry item; the entity write has already
// succeeded and must stay that way.
func (o *Orchestrator) EntityUpserted(ctx context.Context, ent IndexableEntity, op retryqueue.Operation) {
	if err := o.reindex(ctx, ent); err != nil {
		o.enqueue(ctx, ent.ID, op, err)
		return
	}
	slog.InfoContext(ctx, "entity indexed", "entity_id", ent.ID, "operation", op)
}

// EntityDeleted removes all of an entity's chunks from the vector index.
func (o *Orchestrator) EntityDeleted(ctx context.Context, entityID string) {
	if err := o.deindex(ctx, entityID); err != nil {
		o.enqueue(ctx, entityID, retryqueue.OpDelete, err)
		return
	}
	slog.InfoContext(ctx, "entity deindexed", "entity_id", entityID)
}

// reindex replaces the entity's chunk set wholesale: new chunks are
// upserted under their stable ids, then ids left over from a previous,
// longer version are removed.
func (o *Orchestrator) reindex(ctx context.Context, ent IndexableEntity) error {
	if strings.TrimSpace(ent.Title) == "" && strings.TrimSpace(ent.Content) == "" {
		return Permanent(fmt.Errorf("entity %s has no embeddable content", ent.ID))
	}

	existing, err := o.index.ChunkIDsByEntity(ctx, ent.ID)
	if err != nil {
		return fmt.Errorf("list existing chunks for %s: %w", ent.ID, err)
	}

	chunks := chunk.Split(ent.ID, ent.Title, ent.Content, ent.Meta)
	current := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		vector, err := o.embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("embed %s: %w", c.ChunkID, err)
		}
		if err := o.index.Upsert(ctx, c, vector); err != nil {
			return fmt.Errorf("upsert %s: %w", c.ChunkID, err)
		}
		current[c.ChunkID] = true
	}

	var stale []string
	for _, id := range existing {
		if !current[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := o.index.DeleteByIDs(ctx, stale); err != nil {
			return fmt.Errorf("prune stale chunks for %s: %w", ent.ID, err)
		}
	}
	return nil
}

// deindex deletes by querying the entity's chunk ids first; the vector
// index has no delete-by-prefix.
func (o *Orchestrator) deindex(ctx context.Context, entityID string) error {
	ids, err := o.index.ChunkIDsByEntity(ctx, entityID)
	if err != nil {
		return fmt.Errorf("list chunks for %s: %w", entityID, err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := o.index.DeleteByIDs(ctx, ids); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", entityID, err)
	}
	return nil
}

// embed calls the provider under a bounded per-attempt timeout. A timeout
// is a transient failure and follows the normal retry path.
func (o *Orchestrator) embed(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, o.embedTimeout)
	defer cancel()

	vector, err := o.embedder.Embed(embedCtx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding timed out after %s: %w", o.embedTimeout, err)
		}
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("provider returned an empty vector")
	}
	return vector, nil
}

func (o *Orchestrator) enqueue(ctx context.Context, entityID string, op retryqueue.Operation, cause error) {
	item, err := o.retries.Enqueue(ctx, entityID, op, cause.Error(), o.maxAttempts, IsPermanent(cause))
	if err != nil {
		// Both the index and the queue are down. Nothing durable is left to
		// record, so log loudly; search stays stale until the next mutation.
		slog.ErrorContext(ctx, "failed to enqueue retry item", "entity_id", entityID,
			"operation", op, "cause", cause, "error", err)
		return
	}
	slog.WarnContext(ctx, "indexing failed, queued for retry", "entity_id", entityID,
		"operation", op, "item_id", item.ID, "status", item.Status, "error", cause)
}
