package service

import (
	"context"
	"fmt"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// LifecycleService coordinates soft delete, restore and purge for documents and
// owners. Document transitions follow Active -> SoftDeleted -> {Active, Purged}
// and Active -> Purged; Purged is terminal because the row no longer exists.
type LifecycleService interface {
	// SoftDeleteDocument hides an active document. Its content stays pinned.
	SoftDeleteDocument(ctx context.Context, p model.Principal, id string) error

	// RestoreDocument makes a soft-deleted document visible again.
	RestoreDocument(ctx context.Context, p model.Principal, id string) error

	// PurgeDocument releases the content (best-effort) and removes the row.
	PurgeDocument(ctx context.Context, p model.Principal, id string) error

	// SoftDeleteOwner flags the owner and all of its documents in one transaction.
	// It returns the number of documents flagged. Admin only.
	SoftDeleteOwner(ctx context.Context, p model.Principal, ownerID string) (int64, error)

	// RestoreOwner clears the flag on the owner and all of its documents. Admin only.
	RestoreOwner(ctx context.Context, p model.Principal, ownerID string) (int64, error)

	// PurgeOwner releases all owned content (best-effort) and removes the owner
	// with its documents. Admin only.
	PurgeOwner(ctx context.Context, p model.Principal, ownerID string) (int64, error)
}

type lifecycleService struct {
	docs     repository.DocumentRepository
	owners   repository.OwnerRepository
	releaser releaser
	opts     options
}

// NewLifecycleService constructs a new LifecycleService.
func NewLifecycleService(store storage.ContentStore, docs repository.DocumentRepository, owners repository.OwnerRepository, opts ...Option) LifecycleService {
	o := newOptions(opts)
	o.logger = o.logger.With().Str("component", "lifecycle").Logger()
	return &lifecycleService{
		docs:     docs,
		owners:   owners,
		releaser: releaser{store: store, docs: docs, logger: o.logger},
		opts:     o,
	}
}

func (s *lifecycleService) SoftDeleteDocument(ctx context.Context, p model.Principal, id string) error {
	return s.setDocumentDeleted(ctx, p, id, true)
}

func (s *lifecycleService) RestoreDocument(ctx context.Context, p model.Principal, id string) error {
	return s.setDocumentDeleted(ctx, p, id, false)
}

func (s *lifecycleService) setDocumentDeleted(ctx context.Context, p model.Principal, id string, deleted bool) error {
	doc, err := findVisible(ctx, s.docs, p, id)
	if err != nil {
		return err
	}
	if doc.Deleted == deleted {
		return ErrNotFound
	}
	if err := s.docs.SetDeleted(ctx, id, deleted); err != nil {
		return notFound(err)
	}
	s.opts.logger.Info().
		Str("document_id", id).
		Str("actor", p.OwnerID).
		Bool("deleted", deleted).
		Msg("document visibility changed")
	return nil
}

func (s *lifecycleService) PurgeDocument(ctx context.Context, p model.Principal, id string) error {
	ctx, span := tracer.Start(ctx, "LifecycleService.PurgeDocument")
	defer span.End()

	doc, err := findVisible(ctx, s.docs, p, id)
	if err != nil {
		return err
	}

	s.releaser.release(ctx, map[string]int{doc.ContentAddress: 1})

	if err := s.docs.Delete(ctx, id); err != nil {
		return spanError(span, fmt.Errorf("delete document: %w", err))
	}
	s.opts.logger.Info().
		Str("document_id", id).
		Str("owner_id", doc.OwnerID).
		Str("actor", p.OwnerID).
		Msg("document purged")
	return nil
}

func (s *lifecycleService) SoftDeleteOwner(ctx context.Context, p model.Principal, ownerID string) (int64, error) {
	return s.setOwnerDeleted(ctx, p, ownerID, true)
}

func (s *lifecycleService) RestoreOwner(ctx context.Context, p model.Principal, ownerID string) (int64, error) {
	return s.setOwnerDeleted(ctx, p, ownerID, false)
}

func (s *lifecycleService) setOwnerDeleted(ctx context.Context, p model.Principal, ownerID string, deleted bool) (int64, error) {
	if err := requireAdminOver(p, ownerID); err != nil {
		return 0, err
	}
	n, err := s.owners.SetDeletedCascade(ctx, ownerID, deleted)
	if err != nil {
		return 0, notFound(err)
	}
	s.opts.logger.Info().
		Str("owner_id", ownerID).
		Str("actor", p.OwnerID).
		Bool("deleted", deleted).
		Int64("documents", n).
		Msg("owner visibility changed")
	return n, nil
}

func (s *lifecycleService) PurgeOwner(ctx context.Context, p model.Principal, ownerID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "LifecycleService.PurgeOwner")
	defer span.End()

	if err := requireAdminOver(p, ownerID); err != nil {
		return 0, err
	}
	if _, err := s.owners.FindByID(ctx, ownerID); err != nil {
		return 0, notFound(err)
	}

	docs, err := s.docs.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, spanError(span, fmt.Errorf("list owner documents: %w", err))
	}
	held := make(map[string]int, len(docs))
	for _, d := range docs {
		held[d.ContentAddress]++
	}
	s.releaser.release(ctx, held)

	n, err := s.owners.DeleteCascade(ctx, ownerID)
	if err != nil {
		return 0, spanError(span, notFound(err))
	}
	s.opts.logger.Info().
		Str("owner_id", ownerID).
		Str("actor", p.OwnerID).
		Int64("documents", n).
		Msg("owner purged")
	return n, nil
}

// requireAdminOver checks that p may run an owner-level action on ownerID.
// Admins cannot target themselves.
func requireAdminOver(p model.Principal, ownerID string) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	if ownerID == "" {
		return ErrIDRequired
	}
	if ownerID == p.OwnerID {
		return ErrInvalidState
	}
	return nil
}
