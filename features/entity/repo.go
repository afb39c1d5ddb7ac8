package entity

import (
	"context"
	"database/sql"
	"errors"

	"notebase/internal/chunk"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, ent *Entity) error {
	query := `INSERT INTO entities (scope, title, content, project_id)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, string(ent.Scope), ent.Title, ent.Content, ent.ProjectID).
		Scan(&ent.ID, &ent.CreatedAt, &ent.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Entity, error) {
	ent := &Entity{}
	var projectID sql.NullString
	query := `SELECT id, scope, title, content, project_id, created_at, updated_at
		FROM entities WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&ent.ID, &ent.Scope, &ent.Title, &ent.Content, &projectID, &ent.CreatedAt, &ent.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ent.ProjectID = projectID.String
	return ent, nil
}

func (r *PostgresRepo) List(ctx context.Context, scope chunk.Scope) ([]Entity, error) {
	query := `SELECT id, scope, title, content, project_id, created_at, updated_at
		FROM entities
		WHERE deleted_at IS NULL AND ($1 = '' OR scope = $1)
		ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, string(scope))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var ent Entity
		var projectID sql.NullString
		if err := rows.Scan(&ent.ID, &ent.Scope, &ent.Title, &ent.Content, &projectID, &ent.CreatedAt, &ent.UpdatedAt); err != nil {
			return nil, err
		}
		ent.ProjectID = projectID.String
		entities = append(entities, ent)
	}
	return entities, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, ent *Entity) error {
	query := `UPDATE entities
		SET title = $2, content = $3, project_id = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, ent.ID, ent.Title, ent.Content, ent.ProjectID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE entities SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE deleted_at IS NULL`).Scan(&count)
	return count, err
}
