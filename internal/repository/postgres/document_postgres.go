package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const documentColumns = `id, owner_id, filename, filetype, size, description, version, content_address, sha256, uploaded_at, deleted`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*model.Document, error) {
	var (
		d    model.Document
		desc sql.NullString
	)
	if err := s.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Filename,
		&d.Filetype,
		&d.Size,
		&desc,
		&d.Version,
		&d.ContentAddress,
		&d.Digest,
		&d.UploadedAt,
		&d.Deleted,
	); err != nil {
		return nil, err
	}
	if desc.Valid {
		d.Description = &desc.String
	}
	return &d, nil
}

// versionFloor is the highest version any row of ($1, $2) can claim: the number of
// rows under that name, or the largest version among them when renames and content
// edits pushed it higher.
const versionFloor = `(SELECT GREATEST(COUNT(*), COALESCE(MAX(version), 0))
		FROM documents WHERE owner_id = $1 AND filename = $2)`

// CreateVersioned reserves the next version from the per-(owner, filename) counter and
// inserts the row in one transaction. The counter row is locked until commit, so
// concurrent ingests of the same pair get distinct versions. The counter never falls
// below versionFloor, deleted rows included.
func (r *DocumentPostgres) CreateVersioned(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const qVersion = `
		INSERT INTO document_version_counters (owner_id, filename, last_version)
		VALUES ($1, $2, ` + versionFloor + ` + 1)
		ON CONFLICT (owner_id, filename)
		DO UPDATE SET last_version = GREATEST(document_version_counters.last_version + 1, EXCLUDED.last_version)
		RETURNING last_version
	`
	const qInsert = `
		INSERT INTO documents (id, owner_id, filename, filetype, size, description, version, content_address, sha256, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + documentColumns

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var version int
	if err := tx.QueryRowContext(ctx, qVersion, doc.OwnerID, doc.Filename).Scan(&version); err != nil {
		return nil, fmt.Errorf("next version: %w", err)
	}

	out, err := scanDocument(tx.QueryRowContext(ctx, qInsert,
		doc.ID,
		doc.OwnerID,
		doc.Filename,
		doc.Filetype,
		doc.Size,
		doc.Description,
		version,
		doc.ContentAddress,
		doc.Digest,
		doc.UploadedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns documents newest first using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, dq repository.DocumentQuery) (*repository.PageResult[model.Document], error) {
	where, args := documentFilter(dq)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := fmt.Sprintf(`SELECT %s FROM documents%s ORDER BY uploaded_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		documentColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, dq.Limit, dq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// ListByOwner returns all documents of an owner, deleted ones included.
func (r *DocumentPostgres) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = $1 ORDER BY uploaded_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// Revise writes new content fields and increments the version of an active document.
// The counter of the row's (possibly new) filename is raised to cover the revised
// version in the same transaction, so a later ingest of that name cannot reuse it.
func (r *DocumentPostgres) Revise(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const qUpdate = `
		UPDATE documents
		SET filename = $2, filetype = $3, size = $4, content_address = $5, sha256 = $6,
		    uploaded_at = $7, version = version + 1
		WHERE id = $1 AND deleted = false
		RETURNING ` + documentColumns
	const qCounter = `
		INSERT INTO document_version_counters (owner_id, filename, last_version)
		VALUES ($1, $2, ` + versionFloor + `)
		ON CONFLICT (owner_id, filename)
		DO UPDATE SET last_version = GREATEST(document_version_counters.last_version, EXCLUDED.last_version)
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	out, err := scanDocument(tx.QueryRowContext(ctx, qUpdate,
		doc.ID,
		doc.Filename,
		doc.Filetype,
		doc.Size,
		doc.ContentAddress,
		doc.Digest,
		doc.UploadedAt,
	))
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, qCounter, out.OwnerID, out.Filename); err != nil {
		return nil, fmt.Errorf("sync version counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// SetDescription replaces the description of an active document; nil clears it.
func (r *DocumentPostgres) SetDescription(ctx context.Context, id string, description *string) (*model.Document, error) {
	const q = `
		UPDATE documents SET description = $2
		WHERE id = $1 AND deleted = false
		RETURNING ` + documentColumns
	return scanDocument(r.db.QueryRowContext(ctx, q, id, description))
}

// SetDeleted flips the deleted flag when the row is in the opposite state.
func (r *DocumentPostgres) SetDeleted(ctx context.Context, id string, deleted bool) error {
	const q = `UPDATE documents SET deleted = $2 WHERE id = $1 AND deleted <> $2`
	res, err := r.db.ExecContext(ctx, q, id, deleted)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// CountByContentAddress counts all rows pointing at addr.
func (r *DocumentPostgres) CountByContentAddress(ctx context.Context, addr string) (int, error) {
	const q = `SELECT COUNT(*) FROM documents WHERE content_address = $1`
	var n int
	if err := r.db.QueryRowContext(ctx, q, addr).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func collectDocuments(rows *sql.Rows) ([]model.Document, error) {
	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// documentFilter builds the WHERE clause shared by the count and page queries.
func documentFilter(dq repository.DocumentQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if dq.OwnerID != "" {
		args = append(args, dq.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if !dq.IncludeDeleted {
		conds = append(conds, "deleted = false")
	}
	if s := strings.TrimSpace(dq.Search); s != "" {
		args = append(args, "%"+likeEscaper.Replace(s)+"%")
		conds = append(conds, fmt.Sprintf("filename ILIKE $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
