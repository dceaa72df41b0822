package storage_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/storage"
	"docvault/internal/storage/mocks"
)

func TestInstrumented_CountsOutcomes(t *testing.T) {
	next := new(mocks.MockContentStore)
	reg := prometheus.NewRegistry()

	s, err := storage.NewInstrumented(next, "ipfs", reg)
	require.NoError(t, err)

	ctx := context.Background()
	next.On("Store", ctx, mock.Anything, int64(3)).Return("bafkcid", nil).Once()
	next.On("Fetch", ctx, "missing", "a.txt").Return(nil, storage.ErrNotFound).Once()
	next.On("Unpin", ctx, "bafkcid").Return(storage.ErrUnavailable).Once()
	next.On("GC", ctx).Return(nil, errors.New("weird")).Once()

	addr, err := s.Store(ctx, strings.NewReader("abc"), 3)
	require.NoError(t, err)
	assert.Equal(t, "bafkcid", addr)

	_, err = s.Fetch(ctx, "missing", "a.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Unpin(ctx, "bafkcid"), storage.ErrUnavailable)
	_, err = s.GC(ctx)
	assert.Error(t, err)

	expected := `
# HELP content_store_operations_total Content store operations by backend, operation and outcome.
# TYPE content_store_operations_total counter
content_store_operations_total{backend="ipfs",operation="fetch",outcome="not_found"} 1
content_store_operations_total{backend="ipfs",operation="gc",outcome="error"} 1
content_store_operations_total{backend="ipfs",operation="store",outcome="ok"} 1
content_store_operations_total{backend="ipfs",operation="unpin",outcome="unavailable"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "content_store_operations_total"))
	n, err := testutil.GatherAndCount(reg, "content_store_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	next.AssertExpectations(t)
}

func TestInstrumented_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := storage.NewInstrumented(new(mocks.MockContentStore), "ipfs", reg)
	require.NoError(t, err)

	_, err = storage.NewInstrumented(new(mocks.MockContentStore), "ipfs", reg)
	assert.Error(t, err)
}
