package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const ownerColumns = `id, role, deleted, created_at`

// OwnerPostgres is a PostgreSQL implementation of repository.OwnerRepository.
type OwnerPostgres struct {
	db *sql.DB
}

// NewOwnerPostgres creates a new OwnerPostgres repository.
func NewOwnerPostgres(db *sql.DB) *OwnerPostgres {
	return &OwnerPostgres{db: db}
}

var _ repository.OwnerRepository = (*OwnerPostgres)(nil)

func scanOwner(s rowScanner) (*model.Owner, error) {
	var o model.Owner
	if err := s.Scan(&o.ID, &o.Role, &o.Deleted, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// Ensure inserts the owner on first sight and returns the stored row.
func (r *OwnerPostgres) Ensure(ctx context.Context, id string) (*model.Owner, error) {
	const q = `
		INSERT INTO owners (id) VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING ` + ownerColumns
	return scanOwner(r.db.QueryRowContext(ctx, q, id))
}

func (r *OwnerPostgres) FindByID(ctx context.Context, id string) (*model.Owner, error) {
	const q = `SELECT ` + ownerColumns + ` FROM owners WHERE id = $1`
	return scanOwner(r.db.QueryRowContext(ctx, q, id))
}

// List returns owners newest first, deleted ones included.
func (r *OwnerPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Owner], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM owners`).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `SELECT ` + ownerColumns + ` FROM owners ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Owner, 0)
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Owner]{Items: items, Total: total}, nil
}

func (r *OwnerPostgres) SetRole(ctx context.Context, id string, role model.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE owners SET role = $2 WHERE id = $1`, id, string(role))
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// SetDeletedCascade flips the owner flag and bulk-updates the owner's documents
// inside one transaction. It returns the number of documents touched.
func (r *OwnerPostgres) SetDeletedCascade(ctx context.Context, id string, deleted bool) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE owners SET deleted = $2 WHERE id = $1 AND deleted <> $2`, id, deleted)
	if err != nil {
		return 0, fmt.Errorf("update owner: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return 0, err
	}

	res, err = tx.ExecContext(ctx, `UPDATE documents SET deleted = $2 WHERE owner_id = $1`, id, deleted)
	if err != nil {
		return 0, fmt.Errorf("update owner documents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

// DeleteCascade removes the owner with its documents and version counters in one
// transaction. It returns the number of documents removed.
func (r *OwnerPostgres) DeleteCascade(ctx context.Context, id string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE owner_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete owner documents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_version_counters WHERE owner_id = $1`, id); err != nil {
		return 0, fmt.Errorf("delete version counters: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM owners WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete owner: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
