package middlewares

import (
	"errors"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// PermissionMiddleware gates routes whose target resource id is a path
// parameter. Gates that depend on the request body live in the controllers.
type PermissionMiddleware struct {
	accessService domain.AccessService
}

type PermissionMiddlewareDependencies struct {
	AccessService domain.AccessService
}

func NewPermissionMiddleware(deps PermissionMiddlewareDependencies) *PermissionMiddleware {
	return &PermissionMiddleware{
		accessService: deps.AccessService,
	}
}

func (m *PermissionMiddleware) RequireFolderAccess(level domain.AccessLevel) fiber.Handler {
	return m.requireAccess(domain.TargetTypeFolder, "folderID", level)
}

func (m *PermissionMiddleware) RequireFileAccess(level domain.AccessLevel) fiber.Handler {
	return m.requireAccess(domain.TargetTypeFile, "fileID", level)
}

func (m *PermissionMiddleware) requireAccess(targetType domain.TargetType, paramName string, level domain.AccessLevel) fiber.Handler {
	return func(c fiber.Ctx) error {
		err := m.accessService.CanAccess(c.RequestCtx(), domain.CanAccessParams{
			UserID:      UserIDFromContext(c),
			TargetID:    c.Params(paramName),
			TargetType:  targetType,
			Level:       level,
			WorkspaceID: c.Params("workspaceID"),
		})
		if err == nil {
			return c.Next()
		}

		switch {
		case errors.Is(err, domain.ErrInvalidResourceID):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid resource id",
			})
		case errors.Is(err, domain.ErrFolderNotFound), errors.Is(err, domain.ErrFileNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Resource not found",
			})
		case errors.Is(err, domain.ErrAccessDenied):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied",
			})
		}

		log.Error().Err(err).Str("path", c.Path()).Msg("Failed to resolve access")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resolve access",
		})
	}
}
