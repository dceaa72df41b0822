package mocks

import (
	"context"
	"io"

	"docvault/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockContentStore struct {
	mock.Mock
}

func (m *MockContentStore) Store(ctx context.Context, r io.Reader, size int64) (string, error) {
	args := m.Called(ctx, r, size)
	if f, ok := args.Get(0).(func(context.Context, io.Reader, int64) string); ok {
		return f(ctx, r, size), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

func (m *MockContentStore) Fetch(ctx context.Context, addr, displayName string) (*storage.Handle, error) {
	args := m.Called(ctx, addr, displayName)
	if f, ok := args.Get(0).(func(context.Context, string, string) *storage.Handle); ok {
		return f(ctx, addr, displayName), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Handle), args.Error(1)
}

func (m *MockContentStore) Unpin(ctx context.Context, addr string) error {
	args := m.Called(ctx, addr)
	return args.Error(0)
}

func (m *MockContentStore) GC(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
