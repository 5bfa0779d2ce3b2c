package controllers

import (
	"errors"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// respondError translates service errors into HTTP responses: validation
// failures are 400, missing resources 404, denials 403, sibling-name
// collisions 409. Anything else is a store or blob dependency failure,
// logged here and reported as 500; retrying is the caller's decision.
//
// Not-found and denied stay distinct status codes. Whether a client-facing
// layer masks 403 as 404 to hide resource existence is its call, not ours.
func respondError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidResourceID),
		errors.Is(err, domain.ErrInvalidFileSize),
		errors.Is(err, domain.ErrInvalidTargetType),
		errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidAccessLevel),
		errors.Is(err, domain.ErrEmptyAccessLevels):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})

	case errors.Is(err, domain.ErrFolderNotFound),
		errors.Is(err, domain.ErrFileNotFound),
		errors.Is(err, domain.ErrUploadNotFound),
		errors.Is(err, domain.ErrPermissionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})

	case errors.Is(err, domain.ErrAccessDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})

	case errors.Is(err, domain.ErrFolderAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}
