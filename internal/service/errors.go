package service

import (
	"database/sql"
	"errors"
	"fmt"

	"docvault/internal/storage"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrFilenameRequired = errors.New("filename is required")
	ErrReaderNil        = errors.New("reader is nil")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidState     = errors.New("invalid state")

	// ErrStoreUnavailable means neither the content store nor its fallback could serve the call.
	ErrStoreUnavailable = errors.New("content store unavailable")
	// ErrIntegrityMismatch means fetched bytes did not hash to the recorded digest.
	ErrIntegrityMismatch = errors.New("content integrity mismatch")
)

// notFound maps a repository miss to ErrNotFound and passes anything else through.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func storeError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
