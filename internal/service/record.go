package service

import (
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/model"
)

// UnknownFiletype is recorded for filenames without an extension.
const UnknownFiletype = "unknown"

// StoredContent describes bytes that the content store has accepted and pinned.
type StoredContent struct {
	Address string
	Digest  string
	Size    int64
}

// BuildRecord assembles a new document row. The version is left to the repository,
// which assigns it in the same transaction as the insert.
func BuildRecord(ownerID, filename string, content StoredContent, at time.Time) *model.Document {
	return &model.Document{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Filename:       filename,
		Filetype:       Filetype(filename),
		Size:           content.Size,
		ContentAddress: content.Address,
		Digest:         content.Digest,
		UploadedAt:     at.UTC(),
	}
}

// Filetype returns the lower-cased extension of filename without the dot, or
// UnknownFiletype. Leading dots do not start an extension (".env" has none).
func Filetype(filename string) string {
	base := strings.TrimLeft(filepath.Base(filename), ".")
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if ext == "" {
		return UnknownFiletype
	}
	return strings.ToLower(ext)
}

// ContentType guesses a MIME type from a recorded filetype.
func ContentType(filetype string) string {
	if filetype != "" && filetype != UnknownFiletype {
		if ct := mime.TypeByExtension("." + filetype); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

// normalizeFilename strips any directory part and surrounding space.
func normalizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrFilenameRequired
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return "", ErrFilenameRequired
	}
	return name, nil
}
