package handler

import (
	"context"
	"mime"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

type renameRequest struct {
	Filename string `json:"filename"`
}

type descriptionRequest struct {
	Description *string `json:"description"`
}

// principal returns the caller verified by middleware.Auth.
func principal(c *fiber.Ctx) (model.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return model.Principal{}, fiber.ErrUnauthorized
	}
	return p, nil
}

// ListDocuments lists the caller's active documents, newest first.
//
// @Summary  List documents
// @Tags     documents
// @Produce  json
// @Security BearerAuth
// @Param    search query string false "case-insensitive filename filter"
// @Param    limit  query int    false "page size (max 100)" default(10)
// @Param    offset query int    false "rows to skip"        default(0)
// @Success  200 {object} service.DocumentListResult
// @Failure  400 {object} errorPayload
// @Router   /documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return listDocuments(svc.List)
}

// ListAllDocuments lists every document including soft-deleted ones.
//
// @Summary  List all documents (admin)
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Param    search query string false "case-insensitive filename filter"
// @Param    limit  query int    false "page size (max 100)" default(10)
// @Param    offset query int    false "rows to skip"        default(0)
// @Success  200 {object} service.DocumentListResult
// @Failure  403 {object} errorPayload
// @Router   /admin/documents [get]
func ListAllDocuments(svc service.DocumentService) fiber.Handler {
	return listDocuments(svc.ListAll)
}

type listFunc func(ctx context.Context, p model.Principal, q service.ListQuery) (*service.DocumentListResult, error)

func listDocuments(list listFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := list(c.UserContext(), p, service.ListQuery{
			Search: c.Query("search"),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument ingests a new document (multipart/form-data, field name: file).
//
// @Summary  Upload a document
// @Tags     documents
// @Accept   multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param    file formData file true "document content"
// @Success  201 {object} model.Document
// @Failure  400 {object} errorPayload
// @Failure  503 {object} errorPayload
// @Router   /documents [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.Ingest(c.UserContext(), p, fh.Filename, f)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns document metadata.
//
// @Summary  Get document metadata
// @Tags     documents
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  200 {object} model.Document
// @Failure  404 {object} errorPayload
// @Router   /documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), p, id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument streams verified content as an attachment.
//
// @Summary  Download document content
// @Tags     documents
// @Produce  octet-stream
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  200 {file} file
// @Failure  404 {object} errorPayload
// @Failure  502 {object} errorPayload
// @Failure  503 {object} errorPayload
// @Router   /documents/{id}/download [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return sendContent(svc, "attachment")
}

// PreviewDocument streams verified content for inline display.
//
// @Summary  Preview document content
// @Tags     documents
// @Produce  octet-stream
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  200 {file} file
// @Failure  404 {object} errorPayload
// @Failure  502 {object} errorPayload
// @Router   /documents/{id}/preview [get]
func PreviewDocument(svc service.DocumentService) fiber.Handler {
	return sendContent(svc, "inline")
}

func sendContent(svc service.DocumentService, disposition string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		dl, err := svc.Fetch(c.UserContext(), p, id)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set(fiber.HeaderContentType, dl.ContentType)
		c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType(disposition, map[string]string{"filename": dl.Document.Filename}))
		c.Set(fiber.HeaderETag, strconv.Quote(dl.Document.ContentAddress))
		c.Set("X-Content-SHA256", dl.Document.Digest)
		// The response writer closes the stream once sent, which removes the local copy.
		return c.SendStream(dl, int(dl.Size()))
	}
}

// RenameDocument changes the filename and bumps the version.
//
// @Summary  Rename a document
// @Tags     documents
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id   path string        true "document id"
// @Param    body body renameRequest true "new filename"
// @Success  200 {object} model.Document
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /documents/{id}/rename [put]
func RenameDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req renameRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		doc, err := svc.Rename(c.UserContext(), p, id, req.Filename)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// SetDescription replaces or clears the description. The version is unchanged.
//
// @Summary  Set document description
// @Tags     documents
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id   path string             true "document id"
// @Param    body body descriptionRequest true "description, null or empty clears it"
// @Success  200 {object} model.Document
// @Failure  404 {object} errorPayload
// @Router   /documents/{id}/description [put]
func SetDescription(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req descriptionRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		doc, err := svc.SetDescription(c.UserContext(), p, id, req.Description)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// ReplaceContent uploads new bytes for an existing document.
//
// @Summary  Replace document content
// @Tags     documents
// @Accept   multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param    id       path     string true  "document id"
// @Param    file     formData file   true  "new content"
// @Param    filename formData string false "new filename, defaults to the current one"
// @Success  200 {object} model.Document
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Failure  503 {object} errorPayload
// @Router   /documents/{id}/content [put]
func ReplaceContent(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.ReplaceContent(c.UserContext(), p, id, f, c.FormValue("filename"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// SoftDeleteDocument hides a document; it can be restored later.
//
// @Summary  Soft delete a document
// @Tags     documents
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /documents/{id} [delete]
func SoftDeleteDocument(svc service.LifecycleService) fiber.Handler {
	return documentTransition(svc.SoftDeleteDocument)
}

// RestoreDocument makes a soft-deleted document visible again.
//
// @Summary  Restore a document
// @Tags     documents
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /documents/{id}/restore [post]
func RestoreDocument(svc service.LifecycleService) fiber.Handler {
	return documentTransition(svc.RestoreDocument)
}

// PurgeDocument removes a document for good and releases its content.
//
// @Summary  Permanently delete a document
// @Tags     documents
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /documents/{id}/permanent [delete]
func PurgeDocument(svc service.LifecycleService) fiber.Handler {
	return documentTransition(svc.PurgeDocument)
}

func documentTransition(apply func(ctx context.Context, p model.Principal, id string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := apply(c.UserContext(), p, id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
