// Package storage contains the content-addressable store abstraction and its backends.
// Content is identified by a CID derived from the bytes; callers never choose keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/rs/zerolog"

	"docvault/internal/config"
)

var (
	// ErrNotFound is returned when no backend path can locate the content.
	ErrNotFound = errors.New("content not found")
	// ErrUnavailable is returned when the store (and any fallback) could not be reached.
	ErrUnavailable = errors.New("content store unavailable")
	// ErrInvalidAddress is returned for content addresses that are not valid CIDs.
	ErrInvalidAddress = errors.New("invalid content address")
)

// ContentStore is the capability set the document core needs from a
// content-addressable backend. Implementations are safe for concurrent use.
type ContentStore interface {
	// Store adds the bytes read from r, pins them and returns their content address.
	// size is the exact length when known, or -1.
	Store(ctx context.Context, r io.Reader, size int64) (string, error)

	// Fetch resolves addr into a local handle named displayName. The caller owns
	// the handle and must Close it.
	Fetch(ctx context.Context, addr, displayName string) (*Handle, error)

	// Unpin releases the pin on addr. Unpinning content that is not pinned, or
	// not present at all, is not an error.
	Unpin(ctx context.Context, addr string) error

	// GC runs a store-wide garbage collection pass and returns the addresses it reclaimed.
	GC(ctx context.Context) ([]string, error)
}

// ParseAddress validates addr as a CID and returns its canonical string form.
func ParseAddress(addr string) (string, error) {
	c, err := cid.Decode(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return c.String(), nil
}

// AddressForDigest returns the CIDv1 (raw codec) for a hex SHA-256 digest. It matches
// what an IPFS node reports for a single-block file added with raw leaves.
func AddressForDigest(hexDigest string) (string, error) {
	mh, err := multihash.FromHexString("1220" + hexDigest)
	if err != nil {
		return "", fmt.Errorf("encode multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// Open builds the content store selected by cfg.ContentStore.Backend.
func Open(cfg *config.AppConfig, logger zerolog.Logger) (ContentStore, error) {
	if err := cfg.ContentStore.Validate(); err != nil {
		return nil, err
	}
	switch cfg.ContentStore.Backend {
	case config.BackendS3:
		return NewMinIO(cfg.MinIO, cfg.ContentStore, logger)
	default:
		return NewIPFS(cfg.ContentStore, logger)
	}
}
