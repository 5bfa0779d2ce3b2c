package controllers

import (
	"github.com/cubbyhq/cubby/internal/domain"
	"github.com/cubbyhq/cubby/internal/middlewares"

	"github.com/gofiber/fiber/v3"
)

type FileController struct {
	fileService   domain.FileService
	accessService domain.AccessService
}

type FileControllerDependencies struct {
	FileService   domain.FileService
	AccessService domain.AccessService
}

func NewFileController(deps FileControllerDependencies) *FileController {
	return &FileController{
		fileService:   deps.FileService,
		accessService: deps.AccessService,
	}
}

type StartUploadRequest struct {
	FileName    string  `json:"file_name"`
	SizeInBytes int64   `json:"size_in_bytes"`
	ContentType string  `json:"content_type,omitempty"`
	FolderID    *string `json:"folder_id,omitempty"`
}

// StartUpload reserves an upload and returns a presigned write URL. The
// destination folder id arrives in the body, so the create gate runs here
// instead of in the route middleware.
func (c *FileController) StartUpload(ctx fiber.Ctx) error {
	var req StartUploadRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	workspaceID := ctx.Params("workspaceID")
	userID := middlewares.UserIDFromContext(ctx)

	if req.FolderID != nil {
		err := c.accessService.CanAccess(ctx.RequestCtx(), domain.CanAccessParams{
			UserID:      userID,
			TargetID:    *req.FolderID,
			TargetType:  domain.TargetTypeFolder,
			Level:       domain.AccessLevelCreate,
			WorkspaceID: workspaceID,
		})
		if err != nil {
			return respondError(ctx, err)
		}
	}

	result, err := c.fileService.StartUpload(ctx.RequestCtx(), domain.StartUploadParams{
		WorkspaceID: workspaceID,
		OwnerID:     userID,
		FolderID:    req.FolderID,
		FileName:    req.FileName,
		SizeInBytes: req.SizeInBytes,
		ContentType: req.ContentType,
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(result)
}

// CompleteUpload persists the file record for a pending upload. Sessions are
// only completable by the user who opened them; the service resolves
// everyone else's attempts as an unknown upload.
func (c *FileController) CompleteUpload(ctx fiber.Ctx) error {
	file, err := c.fileService.CompleteUpload(ctx.RequestCtx(), domain.CompleteUploadParams{
		WorkspaceID: ctx.Params("workspaceID"),
		UserID:      middlewares.UserIDFromContext(ctx),
		UploadID:    ctx.Params("uploadID"),
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(file)
}

func (c *FileController) GetFile(ctx fiber.Ctx) error {
	file, err := c.fileService.GetFile(ctx.RequestCtx(), ctx.Params("workspaceID"), ctx.Params("fileID"))
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(file)
}

// ListFiles lists files at the workspace root, or inside ?folder_id, with
// cursor pagination.
func (c *FileController) ListFiles(ctx fiber.Ctx) error {
	params := domain.ListFilesParams{
		WorkspaceID: ctx.Params("workspaceID"),
		Cursor:      ctx.Query("cursor"),
		Limit:       fiber.Query[int](ctx, "limit"),
	}

	if folderID := ctx.Query("folder_id"); folderID != "" {
		params.FolderID = &folderID
	}

	result, err := c.fileService.ListFiles(ctx.RequestCtx(), params)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(result)
}

func (c *FileController) DownloadURL(ctx fiber.Ctx) error {
	result, err := c.fileService.DownloadURL(ctx.RequestCtx(), ctx.Params("workspaceID"), ctx.Params("fileID"))
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(result)
}

type UpdateFileRequest struct {
	Name *string `json:"name,omitempty"`
}

// UpdateFile renames a file. The object key keeps the name the file was
// uploaded under; only metadata changes.
func (c *FileController) UpdateFile(ctx fiber.Ctx) error {
	var req UpdateFileRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	file, err := c.fileService.UpdateFile(ctx.RequestCtx(), domain.UpdateFileParams{
		WorkspaceID: ctx.Params("workspaceID"),
		FileID:      ctx.Params("fileID"),
		Name:        req.Name,
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(file)
}

type CopyFileRequest struct {
	DestFolderID *string `json:"dest_folder_id,omitempty"`
}

// CopyFile duplicates a file the caller can read into a destination folder
// the caller can create in. The route middleware covers the read side; the
// destination arrives in the body and is gated here.
func (c *FileController) CopyFile(ctx fiber.Ctx) error {
	var req CopyFileRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	workspaceID := ctx.Params("workspaceID")
	userID := middlewares.UserIDFromContext(ctx)

	if req.DestFolderID != nil {
		err := c.accessService.CanAccess(ctx.RequestCtx(), domain.CanAccessParams{
			UserID:      userID,
			TargetID:    *req.DestFolderID,
			TargetType:  domain.TargetTypeFolder,
			Level:       domain.AccessLevelCreate,
			WorkspaceID: workspaceID,
		})
		if err != nil {
			return respondError(ctx, err)
		}
	}

	file, err := c.fileService.CopyFile(ctx.RequestCtx(), domain.CopyFileParams{
		WorkspaceID:  workspaceID,
		UserID:       userID,
		FileID:       ctx.Params("fileID"),
		DestFolderID: req.DestFolderID,
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(file)
}

func (c *FileController) DeleteFile(ctx fiber.Ctx) error {
	err := c.fileService.DeleteFile(ctx.RequestCtx(), ctx.Params("workspaceID"), ctx.Params("fileID"))
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"deleted": true,
	})
}
