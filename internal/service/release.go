package service

import (
	"context"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"docvault/internal/repository"
	"docvault/internal/storage"
)

// releaser drops pins on content that no remaining document needs and runs a
// single GC pass. Every failure is logged and swallowed.
type releaser struct {
	store  storage.ContentStore
	docs   repository.DocumentRepository
	logger zerolog.Logger
}

// release takes addr -> number of references held by the rows about to change.
// An address whose total reference count is higher stays pinned.
func (r releaser) release(ctx context.Context, held map[string]int) {
	var unpinned []string
	for _, addr := range slices.Sorted(maps.Keys(held)) {
		if addr == "" {
			continue
		}
		total, err := r.docs.CountByContentAddress(ctx, addr)
		if err != nil {
			r.logger.Warn().Err(err).Str("cid", addr).Msg("count references failed, keeping pin")
			continue
		}
		if total > held[addr] {
			r.logger.Debug().Str("cid", addr).Int("references", total).Msg("content still referenced, keeping pin")
			continue
		}
		if err := r.store.Unpin(ctx, addr); err != nil {
			r.logger.Warn().Err(err).Str("cid", addr).Msg("unpin failed")
			continue
		}
		unpinned = append(unpinned, addr)
	}
	if len(unpinned) == 0 {
		return
	}

	removed, err := r.store.GC(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("content store gc reported errors")
	}
	for _, addr := range unpinned {
		r.logger.Info().
			Str("cid", addr).
			Bool("reclaimed", slices.Contains(removed, addr)).
			Msg("content unpinned")
	}
}
