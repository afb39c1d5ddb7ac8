// Package entity is the knowledge base proper: work notes, people,
// departments, projects and todos stored as scoped entities. Every write
// drives the index pipeline, but index health never decides the outcome of
// a write.
package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notebase/features/retryqueue"
	"notebase/internal/chunk"
	"notebase/internal/ingest"
)

var (
	ErrNotFound     = errors.New("entity not found")
	ErrInvalidScope = errors.New("invalid entity scope")
)

type Entity struct {
	ID        string      `json:"id"`
	Scope     chunk.Scope `json:"scope"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	ProjectID string      `json:"projectId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type Repository interface {
	Save(ctx context.Context, ent *Entity) error
	Get(ctx context.Context, id string) (*Entity, error)
	List(ctx context.Context, scope chunk.Scope) ([]Entity, error)
	Update(ctx context.Context, ent *Entity) error
	SoftDelete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Indexer is the ingestion pipeline boundary. Its methods do not return
// errors: indexing failures are queued for retry inside the pipeline.
type Indexer interface {
	EntityUpserted(ctx context.Context, ent ingest.IndexableEntity, op retryqueue.Operation)
	EntityDeleted(ctx context.Context, entityID string)
}

type Service struct {
	repo    Repository
	indexer Indexer
}

func NewService(repo Repository, indexer Indexer) *Service {
	return &Service{repo: repo, indexer: indexer}
}

func (s *Service) Create(ctx context.Context, ent *Entity) error {
	if err := validateScope(ent.Scope); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, ent); err != nil {
		return err
	}
	s.indexer.EntityUpserted(ctx, toIndexable(ent), retryqueue.OpCreate)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Entity, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, scope chunk.Scope) ([]Entity, error) {
	if scope != "" {
		if err := validateScope(scope); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, scope)
}

func (s *Service) Update(ctx context.Context, ent *Entity) error {
	current, err := s.repo.Get(ctx, ent.ID)
	if err != nil {
		return err
	}
	// Scope is fixed at creation; content, title and project may move.
	ent.Scope = current.Scope
	if err := s.repo.Update(ctx, ent); err != nil {
		return err
	}
	s.indexer.EntityUpserted(ctx, toIndexable(ent), retryqueue.OpUpdate)
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.indexer.EntityDeleted(ctx, id)
	return nil
}

// GetForIndexing satisfies the sweeper's EntitySource contract: it re-reads
// current content for a queued re-attempt, reporting deleted entities with
// the pipeline's sentinel.
func (s *Service) GetForIndexing(ctx context.Context, id string) (*ingest.IndexableEntity, error) {
	ent, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ingest.ErrEntityNotFound)
	}
	if err != nil {
		return nil, err
	}
	idx := toIndexable(ent)
	return &idx, nil
}

func toIndexable(ent *Entity) ingest.IndexableEntity {
	return ingest.IndexableEntity{
		ID:      ent.ID,
		Title:   ent.Title,
		Content: ent.Content,
		Meta: chunk.Metadata{
			Scope:     ent.Scope,
			ProjectID: ent.ProjectID,
		},
	}
}

func validateScope(scope chunk.Scope) error {
	switch scope {
	case chunk.ScopeWork, chunk.ScopeProject, chunk.ScopePerson, chunk.ScopeDepartment:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidScope, scope)
}
