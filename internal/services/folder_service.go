package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/rs/zerolog/log"
)

type folderService struct {
	folders     domain.FolderRepository
	files       domain.FileRepository
	permissions domain.PermissionRepository
	objects     domain.ObjectStore
}

type FolderServiceDependencies struct {
	FolderRepository     domain.FolderRepository
	FileRepository       domain.FileRepository
	PermissionRepository domain.PermissionRepository
	ObjectStore          domain.ObjectStore
}

func NewFolderService(deps FolderServiceDependencies) domain.FolderService {
	return &folderService{
		folders:     deps.FolderRepository,
		files:       deps.FileRepository,
		permissions: deps.PermissionRepository,
		objects:     deps.ObjectStore,
	}
}

func (s *folderService) CreateFolder(ctx context.Context, params domain.CreateFolderParams) (*domain.Folder, error) {
	nameSlug, err := domain.SanitizeName(params.Name)
	if err != nil {
		return nil, err
	}

	if params.ParentFolderID != nil {
		if _, err := s.getWorkspaceFolder(ctx, params.WorkspaceID, *params.ParentFolderID); err != nil {
			return nil, err
		}
	}

	exists, err := s.folders.ExistsByParentAndSlug(ctx, params.WorkspaceID, params.ParentFolderID, nameSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check sibling folders: %w", err)
	}

	if exists {
		return nil, domain.ErrFolderAlreadyExists
	}

	now := time.Now()

	folder := &domain.Folder{
		ID:             domain.NewResourceID(),
		WorkspaceID:    params.WorkspaceID,
		OwnerID:        params.OwnerID,
		Name:           params.Name,
		NameSlug:       nameSlug,
		ParentFolderID: params.ParentFolderID,
		ChildFileIDs:   []string{},
		ChildFolderIDs: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	folder.StoragePrefix = domain.FolderStoragePrefix(params.WorkspaceID, folder.ID)

	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, err
	}

	if params.ParentFolderID != nil {
		if err := s.folders.AddChildFolder(ctx, *params.ParentFolderID, folder.ID); err != nil {
			// The parent disappeared between the lookup and the link. Remove
			// the record again so no unreachable folder is left behind.
			if deleteErr := s.folders.Delete(ctx, folder.ID); deleteErr != nil {
				log.Error().Err(deleteErr).Str("folder_id", folder.ID).Msg("Failed to remove folder after link failure")
			}

			return nil, fmt.Errorf("failed to link folder to parent: %w", err)
		}
	}

	log.Info().
		Str("folder_id", folder.ID).
		Str("workspace_id", folder.WorkspaceID).
		Msg("Created folder")

	return folder, nil
}

func (s *folderService) GetFolder(ctx context.Context, workspaceID, folderID string) (*domain.Folder, error) {
	return s.getWorkspaceFolder(ctx, workspaceID, folderID)
}

// getWorkspaceFolder validates the id, loads the folder and enforces tenancy.
// A folder that exists in another workspace resolves as not found so resource
// ids do not leak across workspaces.
func (s *folderService) getWorkspaceFolder(ctx context.Context, workspaceID, folderID string) (*domain.Folder, error) {
	if err := domain.ValidateResourceID(folderID); err != nil {
		return nil, err
	}

	folder, err := s.folders.Get(ctx, folderID)
	if err != nil {
		return nil, err
	}

	if folder.WorkspaceID != workspaceID {
		return nil, domain.ErrFolderNotFound
	}

	return folder, nil
}

func (s *folderService) ListFolders(ctx context.Context, params domain.ListFoldersParams) (domain.ListFoldersResult, error) {
	if params.AllFolders {
		folders, err := s.folders.ListByWorkspace(ctx, params.WorkspaceID)
		if err != nil {
			return domain.ListFoldersResult{}, err
		}

		return domain.ListFoldersResult{Folders: folders}, nil
	}

	if params.ParentFolderID != nil {
		if _, err := s.getWorkspaceFolder(ctx, params.WorkspaceID, *params.ParentFolderID); err != nil {
			return domain.ListFoldersResult{}, err
		}
	}

	folders, err := s.folders.ListByParent(ctx, params.WorkspaceID, params.ParentFolderID)
	if err != nil {
		return domain.ListFoldersResult{}, err
	}

	return domain.ListFoldersResult{Folders: folders}, nil
}

func (s *folderService) UpdateFolder(ctx context.Context, params domain.UpdateFolderParams) (*domain.Folder, error) {
	folder, err := s.getWorkspaceFolder(ctx, params.WorkspaceID, params.FolderID)
	if err != nil {
		return nil, err
	}

	if params.Name == nil {
		return folder, nil
	}

	nameSlug, err := domain.SanitizeName(*params.Name)
	if err != nil {
		return nil, err
	}

	// The slug only collides with siblings, not with the folder's own
	// current value, so a pure display-name change skips the check.
	if nameSlug != folder.NameSlug {
		exists, err := s.folders.ExistsByParentAndSlug(ctx, params.WorkspaceID, folder.ParentFolderID, nameSlug)
		if err != nil {
			return nil, fmt.Errorf("failed to check sibling folders: %w", err)
		}

		if exists {
			return nil, domain.ErrFolderAlreadyExists
		}
	}

	if err := s.folders.UpdateName(ctx, folder.ID, *params.Name, nameSlug); err != nil {
		return nil, err
	}

	return s.folders.Get(ctx, folder.ID)
}

// DeleteFolder removes the folder and everything beneath it. Per visited
// folder the order is blobs, then file records, then the folder record; the
// target's own record goes last, after it is unlinked from its parent, so a
// crash mid-walk leaves the target reachable for a retry rather than
// half-orphaned.
func (s *folderService) DeleteFolder(ctx context.Context, workspaceID, folderID string) error {
	target, err := s.getWorkspaceFolder(ctx, workspaceID, folderID)
	if err != nil {
		return err
	}

	var deletedFolderIDs []string
	var deletedFileIDs []string

	err = forEachFolderInSubtree(ctx, s.folders, target, func(folder *domain.Folder) error {
		if err := s.objects.DeleteByPrefix(ctx, folder.StoragePrefix); err != nil {
			return fmt.Errorf("failed to delete blobs for folder %s: %w", folder.ID, err)
		}

		fileIDs, err := s.files.ListIDsByFolder(ctx, folder.ID)
		if err != nil {
			return err
		}

		if err := s.files.DeleteByFolder(ctx, folder.ID); err != nil {
			return err
		}

		deletedFileIDs = append(deletedFileIDs, fileIDs...)

		if folder.ID != target.ID {
			if err := s.folders.Delete(ctx, folder.ID); err != nil {
				return err
			}

			deletedFolderIDs = append(deletedFolderIDs, folder.ID)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if target.ParentFolderID != nil {
		if err := s.folders.RemoveChildFolder(ctx, *target.ParentFolderID, target.ID); err != nil {
			return err
		}
	}

	if err := s.folders.Delete(ctx, target.ID); err != nil {
		return err
	}

	deletedFolderIDs = append(deletedFolderIDs, target.ID)

	s.cleanupPermissions(ctx, deletedFolderIDs, deletedFileIDs)

	log.Info().
		Str("folder_id", target.ID).
		Str("workspace_id", workspaceID).
		Int("deleted_folders", len(deletedFolderIDs)).
		Int("deleted_files", len(deletedFileIDs)).
		Msg("Deleted folder subtree")

	return nil
}

// cleanupPermissions drops grants scoped to resources that no longer exist.
// Best effort: the resources are already gone and a leftover grant cannot
// authorize anything, because access resolution looks the resource up first.
func (s *folderService) cleanupPermissions(ctx context.Context, folderIDs, fileIDs []string) {
	if err := s.permissions.DeleteForTargets(ctx, domain.TargetTypeFolder, folderIDs); err != nil && !errors.Is(err, domain.ErrPermissionNotFound) {
		log.Error().Err(err).Msg("Failed to clean up folder permissions after delete")
	}

	if err := s.permissions.DeleteForTargets(ctx, domain.TargetTypeFile, fileIDs); err != nil && !errors.Is(err, domain.ErrPermissionNotFound) {
		log.Error().Err(err).Msg("Failed to clean up file permissions after delete")
	}
}
