package mocks

import (
	"context"

	"docvault/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) SoftDeleteDocument(ctx context.Context, p model.Principal, id string) error {
	return m.Called(ctx, p, id).Error(0)
}

func (m *MockLifecycleService) RestoreDocument(ctx context.Context, p model.Principal, id string) error {
	return m.Called(ctx, p, id).Error(0)
}

func (m *MockLifecycleService) PurgeDocument(ctx context.Context, p model.Principal, id string) error {
	return m.Called(ctx, p, id).Error(0)
}

func (m *MockLifecycleService) SoftDeleteOwner(ctx context.Context, p model.Principal, ownerID string) (int64, error) {
	args := m.Called(ctx, p, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLifecycleService) RestoreOwner(ctx context.Context, p model.Principal, ownerID string) (int64, error) {
	args := m.Called(ctx, p, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLifecycleService) PurgeOwner(ctx context.Context, p model.Principal, ownerID string) (int64, error) {
	args := m.Called(ctx, p, ownerID)
	return args.Get(0).(int64), args.Error(1)
}
