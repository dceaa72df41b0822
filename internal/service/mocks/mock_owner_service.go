package mocks

import (
	"context"

	"docvault/internal/model"
	"docvault/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockOwnerService struct {
	mock.Mock
}

func (m *MockOwnerService) Identify(ctx context.Context, ownerID string) (model.Principal, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(model.Principal), args.Error(1)
}

func (m *MockOwnerService) List(ctx context.Context, p model.Principal, limit, offset int) (*service.OwnerListResult, error) {
	args := m.Called(ctx, p, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.OwnerListResult), args.Error(1)
}

func (m *MockOwnerService) Promote(ctx context.Context, p model.Principal, ownerID string) (*model.Owner, error) {
	args := m.Called(ctx, p, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Owner), args.Error(1)
}

func (m *MockOwnerService) Demote(ctx context.Context, p model.Principal, ownerID string) (*model.Owner, error) {
	args := m.Called(ctx, p, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Owner), args.Error(1)
}

func (m *MockOwnerService) Grant(ctx context.Context, ownerID string, role model.Role) (*model.Owner, error) {
	args := m.Called(ctx, ownerID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Owner), args.Error(1)
}
