package controllers

import (
	"github.com/cubbyhq/cubby/internal/domain"
	"github.com/cubbyhq/cubby/internal/middlewares"

	"github.com/gofiber/fiber/v3"
)

type FolderController struct {
	folderService domain.FolderService
	accessService domain.AccessService
}

type FolderControllerDependencies struct {
	FolderService domain.FolderService
	AccessService domain.AccessService
}

func NewFolderController(deps FolderControllerDependencies) *FolderController {
	return &FolderController{
		folderService: deps.FolderService,
		accessService: deps.AccessService,
	}
}

type CreateFolderRequest struct {
	Name           string  `json:"name"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"`
}

// CreateFolder creates a folder owned by the caller. The parent folder id
// arrives in the body, so the create gate runs here instead of in the route
// middleware.
func (c *FolderController) CreateFolder(ctx fiber.Ctx) error {
	var req CreateFolderRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	workspaceID := ctx.Params("workspaceID")
	userID := middlewares.UserIDFromContext(ctx)

	if req.ParentFolderID != nil {
		err := c.accessService.CanAccess(ctx.RequestCtx(), domain.CanAccessParams{
			UserID:      userID,
			TargetID:    *req.ParentFolderID,
			TargetType:  domain.TargetTypeFolder,
			Level:       domain.AccessLevelCreate,
			WorkspaceID: workspaceID,
		})
		if err != nil {
			return respondError(ctx, err)
		}
	}

	folder, err := c.folderService.CreateFolder(ctx.RequestCtx(), domain.CreateFolderParams{
		WorkspaceID:    workspaceID,
		OwnerID:        userID,
		Name:           req.Name,
		ParentFolderID: req.ParentFolderID,
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(folder)
}

func (c *FolderController) GetFolder(ctx fiber.Ctx) error {
	folder, err := c.folderService.GetFolder(ctx.RequestCtx(), ctx.Params("workspaceID"), ctx.Params("folderID"))
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(folder)
}

// ListFolders lists the workspace's folders, restricted to one parent when
// ?parent_folder_id is given and to the root level when ?root is set.
func (c *FolderController) ListFolders(ctx fiber.Ctx) error {
	params := domain.ListFoldersParams{
		WorkspaceID: ctx.Params("workspaceID"),
		AllFolders:  true,
	}

	if parentFolderID := ctx.Query("parent_folder_id"); parentFolderID != "" {
		params.ParentFolderID = &parentFolderID
		params.AllFolders = false
	} else if ctx.Query("root") == "true" {
		params.AllFolders = false
	}

	result, err := c.folderService.ListFolders(ctx.RequestCtx(), params)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(result)
}

type UpdateFolderRequest struct {
	Name *string `json:"name,omitempty"`
}

// UpdateFolder renames a folder. The storage prefix is not part of the
// request shape and cannot be changed through any update path.
func (c *FolderController) UpdateFolder(ctx fiber.Ctx) error {
	var req UpdateFolderRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	folder, err := c.folderService.UpdateFolder(ctx.RequestCtx(), domain.UpdateFolderParams{
		WorkspaceID: ctx.Params("workspaceID"),
		FolderID:    ctx.Params("folderID"),
		Name:        req.Name,
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(folder)
}

func (c *FolderController) DeleteFolder(ctx fiber.Ctx) error {
	err := c.folderService.DeleteFolder(ctx.RequestCtx(), ctx.Params("workspaceID"), ctx.Params("folderID"))
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"deleted": true,
	})
}
