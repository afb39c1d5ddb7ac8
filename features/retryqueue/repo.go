package retryqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	// Enqueue records a failed operation. A live item for the same
	// (entityID, operation) pair is updated in place instead of duplicated.
	// deadLetter short-circuits straight to the terminal state, used for
	// permanent validation failures; an existing live item for the pair is
	// escalated rather than left behind.
	Enqueue(ctx context.Context, entityID string, op Operation, errMsg string, maxAttempts int, deadLetter bool) (*Item, error)

	ListPending(ctx context.Context, limit int) ([]Item, error)

	// TryClaim atomically moves an item from pending to retrying. Exactly
	// one concurrent claimant succeeds.
	TryClaim(ctx context.Context, id string) (bool, error)

	// Fail records a failed re-attempt on a claimed item: the attempt count
	// is incremented and the item returns to pending, or is promoted to
	// dead_letter once the count reaches maxAttempts (immediately when
	// permanent is set). Returns the resulting status.
	Fail(ctx context.Context, id, errMsg string, permanent bool) (Status, error)

	// Resolve removes an item whose operation finally succeeded (or whose
	// entity no longer exists).
	Resolve(ctx context.Context, id string) error

	Get(ctx context.Context, id string) (*Item, error)
	ListDeadLetter(ctx context.Context, limit, offset int) ([]Item, int, error)

	// ResetToPending is the operator-triggered dead_letter -> pending
	// transition. It clears deadLetterAt and grants a fresh attempt budget.
	ResetToPending(ctx context.Context, id string) error

	CountDeadLetter(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const itemColumns = `id, entity_id, operation_type, attempt_count, max_attempts, status, COALESCE(error_message, ''), created_at, updated_at, dead_letter_at`

func (r *PostgresRepo) Enqueue(ctx context.Context, entityID string, op Operation, errMsg string, maxAttempts int, deadLetter bool) (*Item, error) {
	if deadLetter {
		return r.enqueueDeadLetter(ctx, entityID, op, errMsg, maxAttempts)
	}

	query := `
		INSERT INTO embedding_retry_queue (entity_id, operation_type, error_message, max_attempts, status)
		VALUES ($1, $2, $3, $4, 'pending')
		ON CONFLICT (entity_id, operation_type) WHERE status <> 'dead_letter'
		DO UPDATE SET error_message = EXCLUDED.error_message, updated_at = NOW()
		RETURNING ` + itemColumns

	row := r.db.QueryRowContext(ctx, query, entityID, string(op), errMsg, maxAttempts)
	return scanItem(row)
}

// enqueueDeadLetter escalates an existing live item for the pair when there
// is one. The unique index only arbitrates live rows, so a plain insert with
// status dead_letter would land next to the live item instead of replacing
// it.
func (r *PostgresRepo) enqueueDeadLetter(ctx context.Context, entityID string, op Operation, errMsg string, maxAttempts int) (*Item, error) {
	promote := `UPDATE embedding_retry_queue
		SET status = 'dead_letter', error_message = $3, dead_letter_at = NOW(), updated_at = NOW()
		WHERE entity_id = $1 AND operation_type = $2 AND status <> 'dead_letter'
		RETURNING ` + itemColumns

	item, err := scanItem(r.db.QueryRowContext(ctx, promote, entityID, string(op), errMsg))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	insert := `
		INSERT INTO embedding_retry_queue (entity_id, operation_type, error_message, max_attempts, status, dead_letter_at)
		VALUES ($1, $2, $3, $4, 'dead_letter', NOW())
		RETURNING ` + itemColumns

	return scanItem(r.db.QueryRowContext(ctx, insert, entityID, string(op), errMsg, maxAttempts))
}

func (r *PostgresRepo) ListPending(ctx context.Context, limit int) ([]Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM embedding_retry_queue
		WHERE status = 'pending'
		ORDER BY updated_at ASC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *PostgresRepo) TryClaim(ctx context.Context, id string) (bool, error) {
	query := `UPDATE embedding_retry_queue
		SET status = 'retrying', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepo) Fail(ctx context.Context, id, errMsg string, permanent bool) (Status, error) {
	query := `UPDATE embedding_retry_queue
		SET attempt_count = attempt_count + 1,
		    error_message = $2,
		    status = CASE WHEN $3 OR attempt_count + 1 >= max_attempts THEN 'dead_letter' ELSE 'pending' END,
		    dead_letter_at = CASE WHEN $3 OR attempt_count + 1 >= max_attempts THEN NOW() ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'retrying'
		RETURNING status`

	var status Status
	err := r.db.QueryRowContext(ctx, query, id, errMsg, permanent).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("fail %s: %w", id, ErrInvalidState)
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

func (r *PostgresRepo) Resolve(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM embedding_retry_queue WHERE id = $1`, id)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM embedding_retry_queue WHERE id = $1`
	return scanItem(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) ListDeadLetter(ctx context.Context, limit, offset int) ([]Item, int, error) {
	query := `SELECT q.id, q.entity_id, COALESCE(e.title, ''), q.operation_type, q.attempt_count, q.max_attempts,
			q.status, COALESCE(q.error_message, ''), q.created_at, q.updated_at, q.dead_letter_at
		FROM embedding_retry_queue q
		LEFT JOIN entities e ON e.id = q.entity_id
		WHERE q.status = 'dead_letter'
		ORDER BY q.dead_letter_at DESC, q.id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.EntityID, &it.EntityTitle, &it.Operation, &it.AttemptCount, &it.MaxAttempts,
			&it.Status, &it.ErrorMessage, &it.CreatedAt, &it.UpdatedAt, &it.DeadLetterAt); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	total, err := r.CountDeadLetter(ctx)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PostgresRepo) ResetToPending(ctx context.Context, id string) error {
	query := `UPDATE embedding_retry_queue
		SET status = 'pending', dead_letter_at = NULL, attempt_count = 0, updated_at = NOW()
		WHERE id = $1 AND status = 'dead_letter'`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidState
	}
	return nil
}

func (r *PostgresRepo) CountDeadLetter(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_retry_queue WHERE status = 'dead_letter'`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.EntityID, &it.Operation, &it.AttemptCount, &it.MaxAttempts,
		&it.Status, &it.ErrorMessage, &it.CreatedAt, &it.UpdatedAt, &it.DeadLetterAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.EntityID, &it.Operation, &it.AttemptCount, &it.MaxAttempts,
			&it.Status, &it.ErrorMessage, &it.CreatedAt, &it.UpdatedAt, &it.DeadLetterAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
