package retryqueue

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a retry item.
//
//	pending    -> eligible for the background sweep
//	retrying   -> exclusively claimed by an in-progress sweep attempt
//	dead_letter -> terminal, waiting for an operator reset
type Status string

const (
	StatusPending    Status = "pending"
	StatusRetrying   Status = "retrying"
	StatusDeadLetter Status = "dead_letter"
)

// Operation is the entity mutation whose index update failed.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

var (
	ErrNotFound     = errors.New("retry item not found")
	ErrInvalidState = errors.New("retry item is not in a resettable state")
)

// Item is one durable record of a failed embedding operation. At most one
// live (non-dead-letter) item exists per (EntityID, Operation) pair.
type Item struct {
	ID           string     `json:"id"`
	EntityID     string     `json:"entityId"`
	EntityTitle  string     `json:"entityTitle"`
	Operation    Operation  `json:"operationType"`
	AttemptCount int        `json:"attemptCount"`
	MaxAttempts  int        `json:"maxAttempts"`
	Status       Status     `json:"status"`
	ErrorMessage string     `json:"errorMessage"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeadLetterAt *time.Time `json:"deadLetterAt"`
}
