package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"docvault/internal/model"
	repoMocks "docvault/internal/repository/mocks"
	storeMocks "docvault/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_SoftDeleteReversibility(t *testing.T) {
	store := newMemStore(t.TempDir())
	docs := newMemDocs()
	owners := new(repoMocks.MockOwnerRepository)
	svc := NewDocumentService(store, docs, WithTempDir(t.TempDir()), WithClock(tickingClock()))
	lc := NewLifecycleService(store, docs, owners)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, alice, "plan.txt", strings.NewReader("v1"))
	require.NoError(t, err)
	before, err := svc.Get(ctx, alice, doc.ID)
	require.NoError(t, err)

	require.NoError(t, lc.SoftDeleteDocument(ctx, alice, doc.ID))
	_, err = svc.Get(ctx, alice, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	listed, err := svc.List(ctx, alice, ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, listed.Total)
	assert.True(t, store.isPinned(doc.ContentAddress), "soft delete leaves content pinned")

	assert.ErrorIs(t, lc.SoftDeleteDocument(ctx, alice, doc.ID), ErrNotFound)

	require.NoError(t, lc.RestoreDocument(ctx, alice, doc.ID))
	after, err := svc.Get(ctx, alice, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.ErrorIs(t, lc.RestoreDocument(ctx, alice, doc.ID), ErrNotFound)
}

func TestLifecycle_PurgeIrreversibility(t *testing.T) {
	store := newMemStore(t.TempDir())
	docs := newMemDocs()
	svc := NewDocumentService(store, docs, WithTempDir(t.TempDir()))
	lc := NewLifecycleService(store, docs, new(repoMocks.MockOwnerRepository))
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, alice, "gone.txt", strings.NewReader("bye"))
	require.NoError(t, err)
	require.NoError(t, lc.SoftDeleteDocument(ctx, alice, doc.ID))

	assert.ErrorIs(t, lc.PurgeDocument(ctx, bob, doc.ID), ErrNotFound)
	require.NoError(t, lc.PurgeDocument(ctx, alice, doc.ID))

	assert.False(t, store.has(doc.ContentAddress))
	_, err = svc.Fetch(ctx, alice, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, lc.RestoreDocument(ctx, alice, doc.ID), ErrNotFound)
	assert.ErrorIs(t, lc.PurgeDocument(ctx, alice, doc.ID), ErrNotFound)

	again, err := svc.Ingest(ctx, alice, "gone.txt", strings.NewReader("back"))
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version, "versions are never reused after a purge")
}

func TestLifecycle_PurgeDocumentActiveByAdmin(t *testing.T) {
	store := newMemStore(t.TempDir())
	docs := newMemDocs()
	svc := NewDocumentService(store, docs, WithTempDir(t.TempDir()))
	lc := NewLifecycleService(store, docs, new(repoMocks.MockOwnerRepository))
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, alice, "a.txt", strings.NewReader("a"))
	require.NoError(t, err)
	dup, err := svc.Ingest(ctx, bob, "b.txt", strings.NewReader("a"))
	require.NoError(t, err)

	require.NoError(t, lc.PurgeDocument(ctx, root, doc.ID))
	assert.True(t, store.isPinned(dup.ContentAddress), "shared content stays pinned")

	dl, err := svc.Fetch(ctx, bob, dup.ID)
	require.NoError(t, err)
	assert.NoError(t, dl.Close())
}

func TestLifecycle_PurgeDocumentBestEffortRelease(t *testing.T) {
	doc := &model.Document{ID: "doc-1", OwnerID: "alice", ContentAddress: helloCID}

	tests := []struct {
		name       string
		setupMocks func(mStore *storeMocks.MockContentStore, mRepo *repoMocks.MockDocumentRepository)
	}{
		{
			name: "unpin failure",
			setupMocks: func(mStore *storeMocks.MockContentStore, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("CountByContentAddress", mock.Anything, helloCID).Return(1, nil)
				mStore.On("Unpin", mock.Anything, helloCID).Return(errors.New("daemon down"))
			},
		},
		{
			name: "gc failure",
			setupMocks: func(mStore *storeMocks.MockContentStore, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("CountByContentAddress", mock.Anything, helloCID).Return(1, nil)
				mStore.On("Unpin", mock.Anything, helloCID).Return(nil)
				mStore.On("GC", mock.Anything).Return(nil, errors.New("gc interrupted"))
			},
		},
		{
			name: "reference count failure",
			setupMocks: func(mStore *storeMocks.MockContentStore, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("CountByContentAddress", mock.Anything, helloCID).Return(0, errors.New("timeout"))
			},
		},
		{
			name: "clean release",
			setupMocks: func(mStore *storeMocks.MockContentStore, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("CountByContentAddress", mock.Anything, helloCID).Return(1, nil)
				mStore.On("Unpin", mock.Anything, helloCID).Return(nil)
				mStore.On("GC", mock.Anything).Return([]string{helloCID}, nil)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockContentStore)
			mRepo := new(repoMocks.MockDocumentRepository)
			mRepo.On("FindByID", mock.Anything, "doc-1").Return(doc, nil)
			tt.setupMocks(mStore, mRepo)
			mRepo.On("Delete", mock.Anything, "doc-1").Return(nil)

			lc := NewLifecycleService(mStore, mRepo, new(repoMocks.MockOwnerRepository))
			err := lc.PurgeDocument(context.Background(), alice, "doc-1")

			assert.NoError(t, err)
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestLifecycle_OwnerCascades(t *testing.T) {
	tests := []struct {
		name       string
		principal  model.Principal
		ownerID    string
		call       func(lc LifecycleService, p model.Principal, id string) (int64, error)
		setupMocks func(mOwners *repoMocks.MockOwnerRepository)
		wantN      int64
		wantErr    error
		wantErrMsg string
	}{
		{
			name:      "soft delete cascades",
			principal: root,
			ownerID:   "alice",
			call:      softDeleteOwner,
			setupMocks: func(mOwners *repoMocks.MockOwnerRepository) {
				mOwners.On("SetDeletedCascade", mock.Anything, "alice", true).Return(int64(4), nil)
			},
			wantN: 4,
		},
		{
			name:      "restore cascades",
			principal: root,
			ownerID:   "alice",
			call:      restoreOwner,
			setupMocks: func(mOwners *repoMocks.MockOwnerRepository) {
				mOwners.On("SetDeletedCascade", mock.Anything, "alice", false).Return(int64(4), nil)
			},
			wantN: 4,
		},
		{
			name:      "owner missing or already in state",
			principal: root,
			ownerID:   "ghost",
			call:      softDeleteOwner,
			setupMocks: func(mOwners *repoMocks.MockOwnerRepository) {
				mOwners.On("SetDeletedCascade", mock.Anything, "ghost", true).Return(int64(0), sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name:      "rolled back cascade surfaces the error",
			principal: root,
			ownerID:   "alice",
			call:      softDeleteOwner,
			setupMocks: func(mOwners *repoMocks.MockOwnerRepository) {
				mOwners.On("SetDeletedCascade", mock.Anything, "alice", true).Return(int64(0), errors.New("update owner documents: deadlock"))
			},
			wantErrMsg: "update owner documents: deadlock",
		},
		{
			name:       "non admin",
			principal:  alice,
			ownerID:    "bob",
			call:       softDeleteOwner,
			setupMocks: func(*repoMocks.MockOwnerRepository) {},
			wantErr:    ErrForbidden,
		},
		{
			name:       "admin cannot target self",
			principal:  root,
			ownerID:    "root",
			call:       restoreOwner,
			setupMocks: func(*repoMocks.MockOwnerRepository) {},
			wantErr:    ErrInvalidState,
		},
		{
			name:       "missing id",
			principal:  root,
			call:       softDeleteOwner,
			setupMocks: func(*repoMocks.MockOwnerRepository) {},
			wantErr:    ErrIDRequired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mOwners := new(repoMocks.MockOwnerRepository)
			tt.setupMocks(mOwners)
			lc := NewLifecycleService(new(storeMocks.MockContentStore), new(repoMocks.MockDocumentRepository), mOwners)

			n, err := tt.call(lc, tt.principal, tt.ownerID)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantN, n)
			}
			mOwners.AssertExpectations(t)
		})
	}
}

func softDeleteOwner(lc LifecycleService, p model.Principal, id string) (int64, error) {
	return lc.SoftDeleteOwner(context.Background(), p, id)
}

func restoreOwner(lc LifecycleService, p model.Principal, id string) (int64, error) {
	return lc.RestoreOwner(context.Background(), p, id)
}

func TestLifecycle_PurgeOwner(t *testing.T) {
	const (
		cidOwned  = "bafkreiowned"
		cidShared = "bafkreishared"
		cidDup    = "bafkreidup"
	)

	t.Run("releases unshared content with one gc then deletes", func(t *testing.T) {
		mStore := new(storeMocks.MockContentStore)
		mDocs := new(repoMocks.MockDocumentRepository)
		mOwners := new(repoMocks.MockOwnerRepository)

		mOwners.On("FindByID", mock.Anything, "alice").Return(&model.Owner{ID: "alice"}, nil)
		mDocs.On("ListByOwner", mock.Anything, "alice").Return([]model.Document{
			{ID: "1", ContentAddress: cidOwned},
			{ID: "2", ContentAddress: cidShared, Deleted: true},
			{ID: "3", ContentAddress: cidDup},
			{ID: "4", ContentAddress: cidDup},
		}, nil)
		mDocs.On("CountByContentAddress", mock.Anything, cidOwned).Return(1, nil)
		mDocs.On("CountByContentAddress", mock.Anything, cidShared).Return(2, nil)
		mDocs.On("CountByContentAddress", mock.Anything, cidDup).Return(2, nil)
		mStore.On("Unpin", mock.Anything, cidOwned).Return(nil)
		mStore.On("Unpin", mock.Anything, cidDup).Return(nil)
		mStore.On("GC", mock.Anything).Return([]string{cidOwned}, nil).Once()
		mOwners.On("DeleteCascade", mock.Anything, "alice").Return(int64(4), nil)

		lc := NewLifecycleService(mStore, mDocs, mOwners)
		n, err := lc.PurgeOwner(context.Background(), root, "alice")

		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
		mStore.AssertNotCalled(t, "Unpin", mock.Anything, cidShared)
		mStore.AssertNumberOfCalls(t, "GC", 1)
		mStore.AssertExpectations(t)
		mDocs.AssertExpectations(t)
		mOwners.AssertExpectations(t)
	})

	t.Run("unknown owner", func(t *testing.T) {
		mOwners := new(repoMocks.MockOwnerRepository)
		mOwners.On("FindByID", mock.Anything, "ghost").Return(nil, sql.ErrNoRows)

		lc := NewLifecycleService(new(storeMocks.MockContentStore), new(repoMocks.MockDocumentRepository), mOwners)
		_, err := lc.PurgeOwner(context.Background(), root, "ghost")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("owner without documents skips gc", func(t *testing.T) {
		mStore := new(storeMocks.MockContentStore)
		mDocs := new(repoMocks.MockDocumentRepository)
		mOwners := new(repoMocks.MockOwnerRepository)
		mOwners.On("FindByID", mock.Anything, "empty").Return(&model.Owner{ID: "empty"}, nil)
		mDocs.On("ListByOwner", mock.Anything, "empty").Return([]model.Document{}, nil)
		mOwners.On("DeleteCascade", mock.Anything, "empty").Return(int64(0), nil)

		lc := NewLifecycleService(mStore, mDocs, mOwners)
		n, err := lc.PurgeOwner(context.Background(), root, "empty")

		require.NoError(t, err)
		assert.Zero(t, n)
		mStore.AssertNotCalled(t, "GC", mock.Anything)
	})

	t.Run("non admin", func(t *testing.T) {
		lc := NewLifecycleService(new(storeMocks.MockContentStore), new(repoMocks.MockDocumentRepository), new(repoMocks.MockOwnerRepository))
		_, err := lc.PurgeOwner(context.Background(), bob, "alice")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}
