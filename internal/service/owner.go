package service

import (
	"context"
	"fmt"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// OwnerListResult is the service-level DTO for paginated owners.
type OwnerListResult struct {
	Items []model.Owner `json:"data"`
	Total int           `json:"total"`
}

// OwnerService resolves principals and manages owner roles.
type OwnerService interface {
	// Identify returns the principal for a verified owner id, registering the owner
	// on first sight. Soft-deleted owners get ErrForbidden.
	Identify(ctx context.Context, ownerID string) (model.Principal, error)

	// List returns all owners including deleted ones. Admin only.
	List(ctx context.Context, p model.Principal, limit, offset int) (*OwnerListResult, error)

	// Promote grants the admin role. ErrInvalidState if the owner already has it.
	Promote(ctx context.Context, p model.Principal, ownerID string) (*model.Owner, error)

	// Demote revokes the admin role. ErrInvalidState if the owner does not have it.
	Demote(ctx context.Context, p model.Principal, ownerID string) (*model.Owner, error)

	// Grant sets a role without a calling principal. Used to bootstrap the first admin.
	Grant(ctx context.Context, ownerID string, role model.Role) (*model.Owner, error)
}

type ownerService struct {
	owners repository.OwnerRepository
	opts   options
}

// NewOwnerService constructs a new OwnerService.
func NewOwnerService(owners repository.OwnerRepository, opts ...Option) OwnerService {
	o := newOptions(opts)
	o.logger = o.logger.With().Str("component", "owners").Logger()
	return &ownerService{owners: owners, opts: o}
}

func (s *ownerService) Identify(ctx context.Context, ownerID string) (model.Principal, error) {
	if ownerID == "" {
		return model.Principal{}, ErrIDRequired
	}
	o, err := s.owners.Ensure(ctx, ownerID)
	if err != nil {
		return model.Principal{}, fmt.Errorf("ensure owner: %w", err)
	}
	if o.Deleted {
		return model.Principal{}, ErrForbidden
	}
	return model.Principal{OwnerID: o.ID, Role: o.Role}, nil
}

func (s *ownerService) List(ctx context.Context, p model.Principal, limit, offset int) (*OwnerListResult, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	res, err := s.owners.List(ctx, page(limit, offset))
	if err != nil {
		return nil, err
	}
	return &OwnerListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *ownerService) Promote(ctx context.Context, p model.Principal, ownerID string) (*model.Owner, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.changeRole(ctx, p, ownerID, model.RoleAdmin)
}

func (s *ownerService) Demote(ctx context.Context, p model.Principal, ownerID string) (*model.Owner, error) {
	if err := requireAdminOver(p, ownerID); err != nil {
		return nil, err
	}
	return s.changeRole(ctx, p, ownerID, model.RoleUser)
}

func (s *ownerService) changeRole(ctx context.Context, p model.Principal, ownerID string, role model.Role) (*model.Owner, error) {
	if ownerID == "" {
		return nil, ErrIDRequired
	}
	o, err := s.owners.FindByID(ctx, ownerID)
	if err != nil {
		return nil, notFound(err)
	}
	if o.Deleted {
		return nil, ErrNotFound
	}
	if o.Role == role {
		return nil, fmt.Errorf("%w: owner already has role %s", ErrInvalidState, role)
	}
	if err := s.owners.SetRole(ctx, ownerID, role); err != nil {
		return nil, notFound(err)
	}
	o.Role = role
	s.opts.logger.Info().
		Str("owner_id", ownerID).
		Str("actor", p.OwnerID).
		Str("role", string(role)).
		Msg("owner role changed")
	return o, nil
}

func (s *ownerService) Grant(ctx context.Context, ownerID string, role model.Role) (*model.Owner, error) {
	if ownerID == "" {
		return nil, ErrIDRequired
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidState, role)
	}
	o, err := s.owners.Ensure(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ensure owner: %w", err)
	}
	if o.Role == role {
		return o, nil
	}
	if err := s.owners.SetRole(ctx, ownerID, role); err != nil {
		return nil, err
	}
	o.Role = role
	s.opts.logger.Info().Str("owner_id", ownerID).Str("role", string(role)).Msg("role granted")
	return o, nil
}
