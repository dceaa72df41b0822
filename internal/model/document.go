package model

import "time"

// Document represents a stored file in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
//
// ContentAddress identifies the bytes in the content store and Digest is the
// SHA-256 of those exact bytes; both change together, only on a content edit.
type Document struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Filename       string    `json:"filename"`
	Filetype       string    `json:"filetype"`
	Size           int64     `json:"size"`
	Description    *string   `json:"description,omitempty"`
	Version        int       `json:"version"`
	ContentAddress string    `json:"content_address"`
	Digest         string    `json:"sha256"`
	UploadedAt     time.Time `json:"uploaded_at"`
	Deleted        bool      `json:"deleted"`
}
