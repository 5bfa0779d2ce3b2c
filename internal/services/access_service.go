package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cubbyhq/cubby/internal/domain"
)

type accessService struct {
	permissions domain.PermissionRepository
	folders     domain.FolderRepository
	files       domain.FileRepository
}

type AccessServiceDependencies struct {
	PermissionRepository domain.PermissionRepository
	FolderRepository     domain.FolderRepository
	FileRepository       domain.FileRepository
}

func NewAccessService(deps AccessServiceDependencies) domain.AccessService {
	return &accessService{
		permissions: deps.PermissionRepository,
		folders:     deps.FolderRepository,
		files:       deps.FileRepository,
	}
}

// CanAccess resolves authorization in fixed order: ownership, then the
// user's global grant, then the grant scoped to this resource. A tier whose
// grant exists but lacks the level falls through to the next one; denial is
// only reached after all three missed.
func (s *accessService) CanAccess(ctx context.Context, params domain.CanAccessParams) error {
	if !params.Level.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAccessLevel, params.Level)
	}

	if !params.TargetType.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTargetType, params.TargetType)
	}

	if err := domain.ValidateResourceID(params.TargetID); err != nil {
		return err
	}

	if params.UserID == "" {
		return domain.ErrAccessDenied
	}

	ownerID, err := s.resolveOwner(ctx, params)
	if err != nil {
		return err
	}

	if ownerID == params.UserID {
		return nil
	}

	global, err := s.permissions.GetGlobalForUser(ctx, params.UserID)
	if err != nil && !errors.Is(err, domain.ErrPermissionNotFound) {
		return err
	}

	if global != nil && global.Allows(params.Level) {
		return nil
	}

	target := domain.PermissionTarget{Type: params.TargetType, ID: params.TargetID}

	specific, err := s.permissions.GetForUserAndTarget(ctx, params.UserID, target)
	if err != nil && !errors.Is(err, domain.ErrPermissionNotFound) {
		return err
	}

	if specific != nil && specific.Allows(params.Level) {
		return nil
	}

	return domain.ErrAccessDenied
}

// resolveOwner loads the resource and returns its owner, so existence is
// settled before any permission tier runs: a missing resource is not found,
// never access denied.
func (s *accessService) resolveOwner(ctx context.Context, params domain.CanAccessParams) (string, error) {
	switch params.TargetType {
	case domain.TargetTypeFolder:
		folder, err := s.folders.Get(ctx, params.TargetID)
		if err != nil {
			return "", err
		}

		if params.WorkspaceID != "" && folder.WorkspaceID != params.WorkspaceID {
			return "", domain.ErrFolderNotFound
		}

		return folder.OwnerID, nil

	case domain.TargetTypeFile:
		file, err := s.files.Get(ctx, params.TargetID)
		if err != nil {
			return "", err
		}

		if params.WorkspaceID != "" && file.WorkspaceID != params.WorkspaceID {
			return "", domain.ErrFileNotFound
		}

		return file.OwnerID, nil
	}

	return "", fmt.Errorf("%w: %q", domain.ErrInvalidTargetType, params.TargetType)
}
