package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
	"docvault/internal/service"
)

// ownerCascadeResponse reports how many documents an owner-level action touched.
type ownerCascadeResponse struct {
	OwnerID   string `json:"owner_id"`
	Documents int64  `json:"documents"`
}

// ListOwners lists all owners including soft-deleted ones.
//
// @Summary  List owners (admin)
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Param    limit  query int false "page size (max 100)" default(10)
// @Param    offset query int false "rows to skip"        default(0)
// @Success  200 {object} service.OwnerListResult
// @Failure  403 {object} errorPayload
// @Router   /admin/owners [get]
func ListOwners(svc service.OwnerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), p, limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// PromoteOwner grants the admin role.
//
// @Summary  Promote owner to admin
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "owner id"
// @Success  200 {object} model.Owner
// @Failure  404 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /admin/owners/{id}/promote [put]
func PromoteOwner(svc service.OwnerService) fiber.Handler {
	return roleChange(svc.Promote)
}

// DemoteOwner revokes the admin role.
//
// @Summary  Demote admin to user
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "owner id"
// @Success  200 {object} model.Owner
// @Failure  404 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /admin/owners/{id}/demote [put]
func DemoteOwner(svc service.OwnerService) fiber.Handler {
	return roleChange(svc.Demote)
}

func roleChange(apply func(ctx context.Context, p model.Principal, ownerID string) (*model.Owner, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		o, err := apply(c.UserContext(), p, c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(o)
	}
}

// SoftDeleteOwner hides an owner together with all of its documents.
//
// @Summary  Soft delete owner (admin)
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "owner id"
// @Success  200 {object} ownerCascadeResponse
// @Failure  404 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /admin/owners/{id}/soft_delete [put]
func SoftDeleteOwner(svc service.LifecycleService) fiber.Handler {
	return ownerCascade(svc.SoftDeleteOwner)
}

// RestoreOwner restores an owner together with all of its documents.
//
// @Summary  Restore owner (admin)
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "owner id"
// @Success  200 {object} ownerCascadeResponse
// @Failure  404 {object} errorPayload
// @Router   /admin/owners/{id}/restore [put]
func RestoreOwner(svc service.LifecycleService) fiber.Handler {
	return ownerCascade(svc.RestoreOwner)
}

// PurgeOwner removes an owner and all of its documents for good.
//
// @Summary  Permanently delete owner (admin)
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "owner id"
// @Success  200 {object} ownerCascadeResponse
// @Failure  404 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /admin/owners/{id}/permanent [delete]
func PurgeOwner(svc service.LifecycleService) fiber.Handler {
	return ownerCascade(svc.PurgeOwner)
}

func ownerCascade(apply func(ctx context.Context, p model.Principal, ownerID string) (int64, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return err
		}
		ownerID := c.Params("id")
		n, err := apply(c.UserContext(), p, ownerID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(ownerCascadeResponse{OwnerID: ownerID, Documents: n})
	}
}
