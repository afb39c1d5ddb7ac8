package retryqueue

import (
	"context"
	"errors"
	"fmt"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListDeadLetter returns one page of dead-letter items plus the total count
// of the full matching set, independent of the page bounds.
func (s *Service) ListDeadLetter(ctx context.Context, limit, offset int) ([]Item, int, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListDeadLetter(ctx, limit, offset)
}

// ResetToPending applies the operator-triggered dead_letter -> pending
// transition. The attempt count restarts at zero: a manual reset grants a
// fresh retry budget. Returns the item's resulting status; on an
// ErrInvalidState failure the returned status is the item's current one and
// the row is left untouched.
func (s *Service) ResetToPending(ctx context.Context, id string) (Status, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if item.Status != StatusDeadLetter {
		return item.Status, fmt.Errorf("reset %s from %q: %w", id, item.Status, ErrInvalidState)
	}

	if err := s.repo.ResetToPending(ctx, id); err != nil {
		if errors.Is(err, ErrInvalidState) {
			// Lost a race with a concurrent reset; report the live status.
			if current, getErr := s.repo.Get(ctx, id); getErr == nil {
				return current.Status, fmt.Errorf("reset %s: %w", id, ErrInvalidState)
			}
		}
		return "", err
	}
	return StatusPending, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.CountDeadLetter(ctx)
}
