package controllers

import (
	"github.com/cubbyhq/cubby/internal/domain"
	"github.com/cubbyhq/cubby/internal/middlewares"

	"github.com/gofiber/fiber/v3"
)

type PermissionController struct {
	permissionService domain.PermissionService
	accessService     domain.AccessService
}

type PermissionControllerDependencies struct {
	PermissionService domain.PermissionService
	AccessService     domain.AccessService
}

func NewPermissionController(deps PermissionControllerDependencies) *PermissionController {
	return &PermissionController{
		permissionService: deps.PermissionService,
		accessService:     deps.AccessService,
	}
}

type GrantPermissionRequest struct {
	UserID       string               `json:"user_id"`
	TargetID     string               `json:"target_id"`
	TargetType   domain.TargetType    `json:"target_type"`
	AccessLevels []domain.AccessLevel `json:"access_levels"`
}

// GrantPermission grants a resource-scoped access-level set to a user. For
// folder targets the grant is propagated onto every descendant. Managing
// grants on a resource takes the owner level on it; the resource's recorded
// owner passes that check without any grant.
func (c *PermissionController) GrantPermission(ctx fiber.Ctx) error {
	var req GrantPermissionRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if !req.TargetType.Valid() {
		return respondError(ctx, domain.ErrInvalidTargetType)
	}

	err := c.accessService.CanAccess(ctx.RequestCtx(), domain.CanAccessParams{
		UserID:      middlewares.UserIDFromContext(ctx),
		TargetID:    req.TargetID,
		TargetType:  req.TargetType,
		Level:       domain.AccessLevelOwner,
		WorkspaceID: ctx.Params("workspaceID"),
	})
	if err != nil {
		return respondError(ctx, err)
	}

	permission, err := c.permissionService.GrantSpecific(ctx.RequestCtx(), domain.GrantSpecificParams{
		UserID:       req.UserID,
		TargetID:     req.TargetID,
		TargetType:   req.TargetType,
		AccessLevels: req.AccessLevels,
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(permission)
}

type GrantGlobalPermissionRequest struct {
	UserID       string               `json:"user_id"`
	AccessLevels []domain.AccessLevel `json:"access_levels"`
}

// GrantGlobalPermission replaces a user's global access-level set. Which
// callers may hand out global grants is the fronting layer's policy; this
// endpoint only requires authentication.
func (c *PermissionController) GrantGlobalPermission(ctx fiber.Ctx) error {
	var req GrantGlobalPermissionRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	permission, err := c.permissionService.GrantGlobal(ctx.RequestCtx(), domain.GrantGlobalParams{
		UserID:       req.UserID,
		AccessLevels: req.AccessLevels,
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(permission)
}

// RevokePermission deletes one grant by id. Revoking a folder grant does not
// touch the records an earlier propagation created for its descendants.
// Resource-scoped grants take the owner level on their target to revoke;
// global grants can be shed by their own holder.
func (c *PermissionController) RevokePermission(ctx fiber.Ctx) error {
	permissionID := ctx.Params("permissionID")
	userID := middlewares.UserIDFromContext(ctx)

	permission, err := c.permissionService.GetPermission(ctx.RequestCtx(), permissionID)
	if err != nil {
		return respondError(ctx, err)
	}

	if permission.IsGlobal {
		if permission.UserID != userID {
			return respondError(ctx, domain.ErrAccessDenied)
		}
	} else {
		err := c.accessService.CanAccess(ctx.RequestCtx(), domain.CanAccessParams{
			UserID:      userID,
			TargetID:    permission.Target.ID,
			TargetType:  permission.Target.Type,
			Level:       domain.AccessLevelOwner,
			WorkspaceID: ctx.Params("workspaceID"),
		})
		if err != nil {
			return respondError(ctx, err)
		}
	}

	if err := c.permissionService.Revoke(ctx.RequestCtx(), permissionID); err != nil {
		return respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"revoked": true,
	})
}

// ListPermissions enumerates grants for ?user_id= or for a
// ?target_id=&target_type= pair. Users see their own grants; a target's
// grants are visible to whoever holds the owner level on it.
func (c *PermissionController) ListPermissions(ctx fiber.Ctx) error {
	userID := middlewares.UserIDFromContext(ctx)

	if targetID := ctx.Query("target_id"); targetID != "" {
		target := domain.PermissionTarget{
			Type: domain.TargetType(ctx.Query("target_type")),
			ID:   targetID,
		}

		if !target.Type.Valid() {
			return respondError(ctx, domain.ErrInvalidTargetType)
		}

		err := c.accessService.CanAccess(ctx.RequestCtx(), domain.CanAccessParams{
			UserID:      userID,
			TargetID:    target.ID,
			TargetType:  target.Type,
			Level:       domain.AccessLevelOwner,
			WorkspaceID: ctx.Params("workspaceID"),
		})
		if err != nil {
			return respondError(ctx, err)
		}

		permissions, err := c.permissionService.ListForTarget(ctx.RequestCtx(), target)
		if err != nil {
			return respondError(ctx, err)
		}

		return ctx.JSON(fiber.Map{
			"permissions": permissions,
		})
	}

	requestedUserID := ctx.Query("user_id", userID)
	if requestedUserID != userID {
		return respondError(ctx, domain.ErrAccessDenied)
	}

	permissions, err := c.permissionService.ListForUser(ctx.RequestCtx(), requestedUserID)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"permissions": permissions,
	})
}
