package services

import (
	"context"
	"fmt"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type permissionService struct {
	permissions domain.PermissionRepository
	folders     domain.FolderRepository
	files       domain.FileRepository
}

type PermissionServiceDependencies struct {
	PermissionRepository domain.PermissionRepository
	FolderRepository     domain.FolderRepository
	FileRepository       domain.FileRepository
}

func NewPermissionService(deps PermissionServiceDependencies) domain.PermissionService {
	return &permissionService{
		permissions: deps.PermissionRepository,
		folders:     deps.FolderRepository,
		files:       deps.FileRepository,
	}
}

func (s *permissionService) GrantGlobal(ctx context.Context, params domain.GrantGlobalParams) (*domain.Permission, error) {
	if params.UserID == "" {
		return nil, domain.ErrInvalidUserID
	}

	if err := domain.ValidateAccessLevels(params.AccessLevels); err != nil {
		return nil, err
	}

	permission, err := s.permissions.UpsertGlobal(ctx, params.UserID, dedupeLevels(params.AccessLevels))
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", params.UserID).
		Str("permission_id", permission.ID).
		Msg("Granted global permission")

	return permission, nil
}

// GrantSpecific grants the level set on one target. For folder targets the
// set is then pushed onto every descendant: each descendant's record for the
// user ends up with exactly this set, whether one existed before or not.
// Resources outside the subtree are never touched.
func (s *permissionService) GrantSpecific(ctx context.Context, params domain.GrantSpecificParams) (*domain.Permission, error) {
	if params.UserID == "" {
		return nil, domain.ErrInvalidUserID
	}

	if !params.TargetType.Valid() {
		return nil, domain.ErrInvalidTargetType
	}

	if err := domain.ValidateResourceID(params.TargetID); err != nil {
		return nil, err
	}

	if err := domain.ValidateAccessLevels(params.AccessLevels); err != nil {
		return nil, err
	}

	levels := dedupeLevels(params.AccessLevels)
	target := domain.PermissionTarget{Type: params.TargetType, ID: params.TargetID}

	var descendants []domain.PermissionTarget

	switch params.TargetType {
	case domain.TargetTypeFile:
		if _, err := s.files.Get(ctx, params.TargetID); err != nil {
			return nil, err
		}

	case domain.TargetTypeFolder:
		folder, err := s.folders.Get(ctx, params.TargetID)
		if err != nil {
			return nil, err
		}

		descendants, err = s.collectDescendantTargets(ctx, folder)
		if err != nil {
			return nil, err
		}
	}

	permission, err := s.permissions.UpsertForTarget(ctx, params.UserID, target, levels)
	if err != nil {
		return nil, err
	}

	if len(descendants) > 0 {
		if err := s.permissions.BulkUpsertForTargets(ctx, params.UserID, descendants, levels); err != nil {
			return nil, fmt.Errorf("failed to propagate permission to descendants: %w", err)
		}
	}

	log.Info().
		Str("user_id", params.UserID).
		Str("target_type", string(params.TargetType)).
		Str("target_id", params.TargetID).
		Int("propagated", len(descendants)).
		Msg("Granted permission")

	return permission, nil
}

// collectDescendantTargets walks the subtree under root and returns one
// target per descendant folder plus one per file living anywhere in the
// subtree, including files directly inside root.
func (s *permissionService) collectDescendantTargets(ctx context.Context, root *domain.Folder) ([]domain.PermissionTarget, error) {
	var targets []domain.PermissionTarget

	err := forEachFolderInSubtree(ctx, s.folders, root, func(folder *domain.Folder) error {
		if folder.ID != root.ID {
			targets = append(targets, domain.PermissionTarget{
				Type: domain.TargetTypeFolder,
				ID:   folder.ID,
			})
		}

		fileIDs, err := s.files.ListIDsByFolder(ctx, folder.ID)
		if err != nil {
			return err
		}

		for _, fileID := range fileIDs {
			targets = append(targets, domain.PermissionTarget{
				Type: domain.TargetTypeFile,
				ID:   fileID,
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return targets, nil
}

// Revoke deletes one grant by id. Propagated descendant grants are separate
// records and survive; revoking access to a whole subtree means revoking
// each record.
func (s *permissionService) Revoke(ctx context.Context, permissionID string) error {
	if err := validatePermissionID(permissionID); err != nil {
		return err
	}

	if err := s.permissions.Delete(ctx, permissionID); err != nil {
		return err
	}

	log.Info().Str("permission_id", permissionID).Msg("Revoked permission")

	return nil
}

func (s *permissionService) GetPermission(ctx context.Context, permissionID string) (*domain.Permission, error) {
	if err := validatePermissionID(permissionID); err != nil {
		return nil, err
	}

	return s.permissions.Get(ctx, permissionID)
}

func (s *permissionService) ListForUser(ctx context.Context, userID string) ([]domain.Permission, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}

	return s.permissions.ListForUser(ctx, userID)
}

func (s *permissionService) ListForTarget(ctx context.Context, target domain.PermissionTarget) ([]domain.Permission, error) {
	if !target.Type.Valid() {
		return nil, domain.ErrInvalidTargetType
	}

	if err := domain.ValidateResourceID(target.ID); err != nil {
		return nil, err
	}

	return s.permissions.ListForTarget(ctx, target)
}

func (s *permissionService) RevokeAllForUser(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidUserID
	}

	if err := s.permissions.DeleteForUser(ctx, userID); err != nil {
		return err
	}

	log.Info().Str("user_id", userID).Msg("Revoked all permissions for user")

	return nil
}

func validatePermissionID(permissionID string) error {
	if _, err := uuid.Parse(permissionID); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidResourceID, permissionID)
	}

	return nil
}

// dedupeLevels drops repeated levels while keeping first-seen order, so the
// stored set stays canonical regardless of request shape.
func dedupeLevels(levels []domain.AccessLevel) []domain.AccessLevel {
	seen := make(map[domain.AccessLevel]struct{}, len(levels))
	deduped := make([]domain.AccessLevel, 0, len(levels))

	for _, level := range levels {
		if _, ok := seen[level]; ok {
			continue
		}

		seen[level] = struct{}{}
		deduped = append(deduped, level)
	}

	return deduped
}
