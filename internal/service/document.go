package service

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docvault/internal/integrity"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

var tracer = otel.Tracer("docvault/internal/service")

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// ListQuery is a filename search plus limit/offset pagination.
type ListQuery struct {
	Search string
	Limit  int
	Offset int
}

// Download is verified content ready to be streamed. The caller must Close it,
// which also deletes the local copy.
type Download struct {
	*storage.Handle
	Document    *model.Document
	ContentType string
}

// DocumentService defines the use cases for handling document content and metadata.
// Non-admin principals only see their own active documents; anything else is ErrNotFound.
type DocumentService interface {
	// Ingest stores the bytes, pins them and commits a new record with the next
	// version for (owner, filename). Nothing is committed if the store fails.
	Ingest(ctx context.Context, p model.Principal, filename string, r io.Reader) (*model.Document, error)

	// Fetch resolves the document's content and verifies it against the recorded digest.
	Fetch(ctx context.Context, p model.Principal, id string) (*Download, error)

	// Get returns a single active document by its ID.
	Get(ctx context.Context, p model.Principal, id string) (*model.Document, error)

	// List returns the caller's active documents, newest first.
	List(ctx context.Context, p model.Principal, q ListQuery) (*DocumentListResult, error)

	// ListAll returns every document including deleted ones. Admin only.
	ListAll(ctx context.Context, p model.Principal, q ListQuery) (*DocumentListResult, error)

	// Rename changes the filename, bumps the version and the upload time. Content is untouched.
	Rename(ctx context.Context, p model.Principal, id, newFilename string) (*model.Document, error)

	// SetDescription replaces the description without a version change; nil or empty clears it.
	SetDescription(ctx context.Context, p model.Principal, id string, text *string) (*model.Document, error)

	// ReplaceContent stores new bytes, releases the old content and bumps the version.
	// An empty newFilename keeps the current name.
	ReplaceContent(ctx context.Context, p model.Principal, id string, r io.Reader, newFilename string) (*model.Document, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store    storage.ContentStore
	repo     repository.DocumentRepository
	releaser releaser
	opts     options
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.ContentStore, repo repository.DocumentRepository, opts ...Option) DocumentService {
	o := newOptions(opts)
	o.logger = o.logger.With().Str("component", "documents").Logger()
	return &documentService{
		store:    store,
		repo:     repo,
		releaser: releaser{store: store, docs: repo, logger: o.logger},
		opts:     o,
	}
}

func (s *documentService) Ingest(ctx context.Context, p model.Principal, filename string, r io.Reader) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Ingest")
	defer span.End()

	if r == nil {
		return nil, ErrReaderNil
	}
	if p.OwnerID == "" {
		return nil, ErrForbidden
	}
	name, err := normalizeFilename(filename)
	if err != nil {
		return nil, err
	}

	content, err := s.storeContent(ctx, name, r)
	if err != nil {
		return nil, spanError(span, err)
	}

	doc := BuildRecord(p.OwnerID, name, content, s.opts.now())
	stored, err := s.repo.CreateVersioned(ctx, doc)
	if err != nil {
		s.opts.logger.Error().Err(err).
			Str("owner_id", p.OwnerID).
			Str("cid", content.Address).
			Msg("metadata commit failed, stored content left pinned")
		return nil, spanError(span, fmt.Errorf("save document: %w", err))
	}

	span.SetAttributes(
		attribute.String("document.id", stored.ID),
		attribute.Int("document.version", stored.Version),
		attribute.String("document.cid", stored.ContentAddress),
	)
	s.opts.logger.Info().
		Str("document_id", stored.ID).
		Str("owner_id", stored.OwnerID).
		Int("version", stored.Version).
		Int64("size", stored.Size).
		Msg("document ingested")
	return stored, nil
}

func (s *documentService) Fetch(ctx context.Context, p model.Principal, id string) (*Download, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Fetch", trace.WithAttributes(attribute.String("document.id", id)))
	defer span.End()

	doc, err := s.findActive(ctx, p, id)
	if err != nil {
		return nil, err
	}

	h, err := s.store.Fetch(ctx, doc.ContentAddress, doc.Filename)
	if err != nil {
		return nil, spanError(span, storeError(err))
	}

	ok, err := integrity.Verify(doc.Digest, h)
	if err != nil {
		_ = h.Close()
		return nil, spanError(span, fmt.Errorf("verify content: %w", err))
	}
	if !ok {
		_ = h.Close()
		s.opts.logger.Error().
			Str("document_id", doc.ID).
			Str("cid", doc.ContentAddress).
			Msg("digest mismatch, local copy discarded")
		return nil, spanError(span, ErrIntegrityMismatch)
	}
	if err := h.Rewind(); err != nil {
		_ = h.Close()
		return nil, spanError(span, err)
	}

	return &Download{Handle: h, Document: doc, ContentType: ContentType(doc.Filetype)}, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, p model.Principal, id string) (*model.Document, error) {
	return s.findActive(ctx, p, id)
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, p model.Principal, q ListQuery) (*DocumentListResult, error) {
	if p.OwnerID == "" {
		return nil, ErrForbidden
	}
	return s.list(ctx, repository.DocumentQuery{OwnerID: p.OwnerID, Search: q.Search}, q)
}

func (s *documentService) ListAll(ctx context.Context, p model.Principal, q ListQuery) (*DocumentListResult, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.list(ctx, repository.DocumentQuery{IncludeDeleted: true, Search: q.Search}, q)
}

func (s *documentService) list(ctx context.Context, dq repository.DocumentQuery, q ListQuery) (*DocumentListResult, error) {
	dq.PageQuery = page(q.Limit, q.Offset)
	res, err := s.repo.List(ctx, dq)
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) Rename(ctx context.Context, p model.Principal, id, newFilename string) (*model.Document, error) {
	name, err := normalizeFilename(newFilename)
	if err != nil {
		return nil, err
	}
	doc, err := s.findActive(ctx, p, id)
	if err != nil {
		return nil, err
	}

	doc.Filename = name
	doc.UploadedAt = s.opts.now().UTC()
	out, err := s.repo.Revise(ctx, doc)
	if err != nil {
		return nil, notFound(err)
	}
	return out, nil
}

func (s *documentService) SetDescription(ctx context.Context, p model.Principal, id string, text *string) (*model.Document, error) {
	if _, err := s.findActive(ctx, p, id); err != nil {
		return nil, err
	}
	if text != nil && *text == "" {
		text = nil
	}
	out, err := s.repo.SetDescription(ctx, id, text)
	if err != nil {
		return nil, notFound(err)
	}
	return out, nil
}

func (s *documentService) ReplaceContent(ctx context.Context, p model.Principal, id string, r io.Reader, newFilename string) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.ReplaceContent", trace.WithAttributes(attribute.String("document.id", id)))
	defer span.End()

	if r == nil {
		return nil, ErrReaderNil
	}
	doc, err := s.findActive(ctx, p, id)
	if err != nil {
		return nil, err
	}
	name := doc.Filename
	if newFilename != "" {
		if name, err = normalizeFilename(newFilename); err != nil {
			return nil, err
		}
	}

	content, err := s.storeContent(ctx, name, r)
	if err != nil {
		return nil, spanError(span, err)
	}

	previous := doc.ContentAddress
	if content.Address != previous {
		s.releaser.release(ctx, map[string]int{previous: 1})
	}

	doc.Filename = name
	doc.Filetype = Filetype(name)
	doc.Size = content.Size
	doc.ContentAddress = content.Address
	doc.Digest = content.Digest
	doc.UploadedAt = s.opts.now().UTC()

	out, err := s.repo.Revise(ctx, doc)
	if err != nil {
		s.opts.logger.Error().Err(err).
			Str("document_id", doc.ID).
			Str("cid", content.Address).
			Str("previous_cid", previous).
			Msg("metadata commit failed after content replacement")
		return nil, spanError(span, notFound(err))
	}
	span.SetAttributes(attribute.Int("document.version", out.Version))
	return out, nil
}

// storeContent spools r locally, digests it and hands it to the content store.
// The store call happens only once the digest is known.
func (s *documentService) storeContent(ctx context.Context, name string, r io.Reader) (StoredContent, error) {
	h, err := storage.Spool(s.opts.tempDir, name, r)
	if err != nil {
		return StoredContent{}, fmt.Errorf("spool upload: %w", err)
	}
	defer h.Close()

	digest, err := integrity.Digest(h)
	if err != nil {
		return StoredContent{}, fmt.Errorf("digest upload: %w", err)
	}
	if err := h.Rewind(); err != nil {
		return StoredContent{}, err
	}

	addr, err := s.store.Store(ctx, h, h.Size())
	if err != nil {
		return StoredContent{}, storeError(err)
	}
	return StoredContent{Address: addr, Digest: digest, Size: h.Size()}, nil
}

// findActive loads a non-deleted document the principal may see.
func (s *documentService) findActive(ctx context.Context, p model.Principal, id string) (*model.Document, error) {
	doc, err := findVisible(ctx, s.repo, p, id)
	if err != nil {
		return nil, err
	}
	if doc.Deleted {
		return nil, ErrNotFound
	}
	return doc, nil
}

// findVisible loads a document in any state, hiding other owners' rows from non-admins.
func findVisible(ctx context.Context, repo repository.DocumentRepository, p model.Principal, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !p.IsAdmin() && doc.OwnerID != p.OwnerID {
		return nil, ErrNotFound
	}
	return doc, nil
}

func page(limit, offset int) repository.PageQuery {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.PageQuery{Limit: limit, Offset: offset}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
