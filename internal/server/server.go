package server

import (
	"time"

	"github.com/cubbyhq/cubby/internal/controllers"
	"github.com/cubbyhq/cubby/internal/domain"
	"github.com/cubbyhq/cubby/internal/middlewares"
	"github.com/cubbyhq/cubby/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type HTTPServerDependencies struct {
	AuthMiddleware       fiber.Handler
	PermissionMiddleware *middlewares.PermissionMiddleware
	FolderController     *controllers.FolderController
	FileController       *controllers.FileController
	PermissionController *controllers.PermissionController
}

// NewHTTPServer wires the API. Routes whose target id is a path parameter
// are gated by the permission middleware at the level the method implies:
// read for gets and downloads, write for renames, delete for deletes, owner
// for grant management. Targets that arrive in request bodies (upload and
// copy destinations, grant targets) are gated inside the controllers.
func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "cubby",
	})

	router.Use(cors.New())
	router.Use(logger.New())

	// Health check endpoint (no authentication required)
	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "cubby",
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/v1")
	v1.Use(deps.AuthMiddleware)

	workspace := v1.Group("/workspaces/:workspaceID")
	perm := deps.PermissionMiddleware

	folders := workspace.Group("/folders")
	folders.Post("/", deps.FolderController.CreateFolder)
	folders.Get("/", deps.FolderController.ListFolders)
	folders.Get("/:folderID", deps.FolderController.GetFolder, perm.RequireFolderAccess(domain.AccessLevelRead))
	folders.Patch("/:folderID", deps.FolderController.UpdateFolder, perm.RequireFolderAccess(domain.AccessLevelWrite))
	folders.Delete("/:folderID", deps.FolderController.DeleteFolder, perm.RequireFolderAccess(domain.AccessLevelDelete))

	uploads := workspace.Group("/uploads")
	uploads.Post("/", deps.FileController.StartUpload)
	uploads.Post("/:uploadID/complete", deps.FileController.CompleteUpload)

	files := workspace.Group("/files")
	files.Get("/", deps.FileController.ListFiles)
	files.Get("/:fileID", deps.FileController.GetFile, perm.RequireFileAccess(domain.AccessLevelRead))
	files.Get("/:fileID/download", deps.FileController.DownloadURL, perm.RequireFileAccess(domain.AccessLevelRead))
	files.Patch("/:fileID", deps.FileController.UpdateFile, perm.RequireFileAccess(domain.AccessLevelWrite))
	files.Post("/:fileID/copy", deps.FileController.CopyFile, perm.RequireFileAccess(domain.AccessLevelRead))
	files.Delete("/:fileID", deps.FileController.DeleteFile, perm.RequireFileAccess(domain.AccessLevelDelete))

	permissions := workspace.Group("/permissions")
	permissions.Post("/", deps.PermissionController.GrantPermission)
	permissions.Post("/global", deps.PermissionController.GrantGlobalPermission)
	permissions.Get("/", deps.PermissionController.ListPermissions)
	permissions.Delete("/:permissionID", deps.PermissionController.RevokePermission)

	return router
}
