package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"notebase/features/retryqueue"
)

// Sweeper periodically drains pending retry items through a bounded worker
// pool. Multiple sweepers may run against the same store: the conditional
// pending -> retrying claim guarantees each item is processed once.
type Sweeper struct {
	store       RetryStore
	orch        *Orchestrator
	entities    EntitySource
	interval    time.Duration
	batchSize   int
	concurrency int
}

func NewSweeper(store RetryStore, orch *Orchestrator, entities EntitySource, interval time.Duration, batchSize, concurrency int) *Sweeper {
	if batchSize <= 0 {
		batchSize = 50
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Sweeper{
		store:       store,
		orch:        orch,
		entities:    entities,
		interval:    interval,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("retry sweeper started", "interval", s.interval, "concurrency", s.concurrency)
	for {
		select {
		case <-ctx.Done():
			slog.Info("retry sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep processes one batch of pending items.
func (s *Sweeper) Sweep(ctx context.Context) {
	items, err := s.store.ListPending(ctx, s.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list pending retry items", "error", err)
		return
	}
	if len(items) == 0 {
		return
	}
	slog.InfoContext(ctx, "sweeping retry queue", "pending", len(items))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(item retryqueue.Item) {
			defer wg.Done()
			defer func() { <-sem }()
			s.process(ctx, item)
		}(item)
	}
	wg.Wait()
}

func (s *Sweeper) process(ctx context.Context, item retryqueue.Item) {
	claimed, err := s.store.TryClaim(ctx, item.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to claim retry item", "item_id", item.ID, "error", err)
		return
	}
	if !claimed {
		// Another sweeper got there first.
		return
	}

	opErr := s.attempt(ctx, item)
	if opErr == nil {
		if err := s.store.Resolve(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "failed to resolve retry item", "item_id", item.ID, "error", err)
		} else {
			slog.InfoContext(ctx, "retry item resolved", "item_id", item.ID,
				"entity_id", item.EntityID, "operation", item.Operation)
		}
		return
	}

	if errors.Is(opErr, ErrEntityNotFound) {
		// The entity was deleted while the item waited; nothing left to
		// reconcile.
		if err := s.store.Resolve(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "failed to resolve orphaned retry item", "item_id", item.ID, "error", err)
		} else {
			slog.InfoContext(ctx, "retry item resolved, entity gone", "item_id", item.ID, "entity_id", item.EntityID)
		}
		return
	}

	status, err := s.store.Fail(ctx, item.ID, opErr.Error(), IsPermanent(opErr))
	if err != nil {
		slog.ErrorContext(ctx, "failed to record retry failure", "item_id", item.ID, "error", err)
		return
	}
	if status == retryqueue.StatusDeadLetter {
		slog.WarnContext(ctx, "retry item promoted to dead letter", "item_id", item.ID,
			"entity_id", item.EntityID, "operation", item.Operation, "error", opErr)
	} else {
		slog.InfoContext(ctx, "retry attempt failed, item requeued", "item_id", item.ID,
			"entity_id", item.EntityID, "operation", item.Operation, "error", opErr)
	}
}

func (s *Sweeper) attempt(ctx context.Context, item retryqueue.Item) error {
	if item.Operation == retryqueue.OpDelete {
		return s.orch.deindex(ctx, item.EntityID)
	}

	ent, err := s.entities.GetForIndexing(ctx, item.EntityID)
	if err != nil {
		return err
	}
	return s.orch.reindex(ctx, *ent)
}
