// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.
package repository

import (
	"context"

	"docvault/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// Methods that find a single row return sql.ErrNoRows when nothing matches.
type DocumentRepository interface {
	// CreateVersioned reserves the next version for (doc.OwnerID, doc.Filename) and
	// inserts the row in the same transaction. The returned record carries the version.
	CreateVersioned(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID regardless of its deleted flag.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a filtered, paginated list of documents and the total match count.
	List(ctx context.Context, q DocumentQuery) (*PageResult[model.Document], error)

	// ListByOwner returns every document of an owner, deleted or not.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error)

	// Revise overwrites the content-bearing fields of an active document and bumps
	// its version by one.
	Revise(ctx context.Context, doc *model.Document) (*model.Document, error)

	// SetDescription replaces the description of an active document.
	SetDescription(ctx context.Context, id string, description *string) (*model.Document, error)

	// SetDeleted flips the deleted flag. It returns sql.ErrNoRows unless the row
	// exists and is currently in the opposite state.
	SetDeleted(ctx context.Context, id string, deleted bool) error

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error

	// CountByContentAddress counts rows referencing addr, deleted or not.
	CountByContentAddress(ctx context.Context, addr string) (int, error)
}

// OwnerRepository defines data access for owners. Multi-row cascades run in a
// single transaction.
type OwnerRepository interface {
	// Ensure returns the owner, creating it with the user role if it does not exist.
	Ensure(ctx context.Context, id string) (*model.Owner, error)

	FindByID(ctx context.Context, id string) (*model.Owner, error)

	List(ctx context.Context, pq PageQuery) (*PageResult[model.Owner], error)

	SetRole(ctx context.Context, id string, role model.Role) error

	// SetDeletedCascade flips the owner's deleted flag and applies the same flag to
	// all of its documents. It returns sql.ErrNoRows unless the owner exists and is
	// currently in the opposite state; in that case nothing is changed.
	SetDeletedCascade(ctx context.Context, id string, deleted bool) (int64, error)

	// DeleteCascade removes the owner, its documents and its version counters.
	DeleteCascade(ctx context.Context, id string) (int64, error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// DocumentQuery filters a document listing. An empty OwnerID lists every owner.
// Search is a case-insensitive substring match on the filename.
type DocumentQuery struct {
	PageQuery
	OwnerID        string
	Search         string
	IncludeDeleted bool
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
