package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/rs/zerolog/log"
)

type fileService struct {
	files       domain.FileRepository
	folders     domain.FolderRepository
	permissions domain.PermissionRepository
	sessions    domain.UploadSessionStore
	objects     domain.ObjectStore
	presignTTL  time.Duration
}

type FileServiceDependencies struct {
	FileRepository       domain.FileRepository
	FolderRepository     domain.FolderRepository
	PermissionRepository domain.PermissionRepository
	UploadSessionStore   domain.UploadSessionStore
	ObjectStore          domain.ObjectStore

	// PresignTTL bounds upload and download URLs and with them the lifetime
	// of pending upload sessions.
	PresignTTL time.Duration
}

func NewFileService(deps FileServiceDependencies) domain.FileService {
	presignTTL := deps.PresignTTL
	if presignTTL <= 0 || presignTTL > domain.MaxPresignTTL {
		presignTTL = domain.MaxPresignTTL
	}

	return &fileService{
		files:       deps.FileRepository,
		folders:     deps.FolderRepository,
		permissions: deps.PermissionRepository,
		sessions:    deps.UploadSessionStore,
		objects:     deps.ObjectStore,
		presignTTL:  presignTTL,
	}
}

// StartUpload reserves an id and an object key, presigns a write URL and
// parks the reservation in the session store. Nothing is persisted to the
// file store yet; a client that walks away leaves no metadata behind.
func (s *fileService) StartUpload(ctx context.Context, params domain.StartUploadParams) (domain.StartUploadResult, error) {
	sanitizedName, err := domain.SanitizeName(params.FileName)
	if err != nil {
		return domain.StartUploadResult{}, err
	}

	if params.SizeInBytes < 0 {
		return domain.StartUploadResult{}, domain.ErrInvalidFileSize
	}

	storagePrefix := domain.RootStoragePrefix(params.WorkspaceID)

	if params.FolderID != nil {
		folder, err := s.getWorkspaceFolder(ctx, params.WorkspaceID, *params.FolderID)
		if err != nil {
			return domain.StartUploadResult{}, err
		}

		storagePrefix = folder.StoragePrefix
	}

	fileID := domain.NewResourceID()
	objectKey := domain.FileStorageKey(storagePrefix, fileID, sanitizedName)

	uploadURL, err := s.objects.PresignUpload(ctx, domain.PresignUploadParams{
		Key:         objectKey,
		ContentType: params.ContentType,
		TTL:         s.presignTTL,
	})
	if err != nil {
		return domain.StartUploadResult{}, err
	}

	now := time.Now()

	session := &domain.UploadSession{
		ID:          domain.NewResourceID(),
		WorkspaceID: params.WorkspaceID,
		OwnerID:     params.OwnerID,
		FolderID:    params.FolderID,
		FileID:      fileID,
		FileName:    params.FileName,
		SizeInBytes: params.SizeInBytes,
		ContentType: params.ContentType,
		ObjectKey:   objectKey,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.presignTTL),
	}

	if err := s.sessions.Put(ctx, session, s.presignTTL); err != nil {
		return domain.StartUploadResult{}, err
	}

	log.Info().
		Str("upload_id", session.ID).
		Str("workspace_id", params.WorkspaceID).
		Str("object_key", objectKey).
		Msg("Started upload")

	return domain.StartUploadResult{
		UploadID:  session.ID,
		ObjectKey: objectKey,
		UploadURL: uploadURL,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// CompleteUpload turns a pending session into a persisted file record and
// links it into its folder. The session is single-use: completing it again,
// or after expiry, resolves as an unknown upload.
func (s *fileService) CompleteUpload(ctx context.Context, params domain.CompleteUploadParams) (*domain.WorkspaceFile, error) {
	if err := domain.ValidateResourceID(params.UploadID); err != nil {
		return nil, err
	}

	session, err := s.sessions.Get(ctx, params.UploadID)
	if err != nil {
		return nil, err
	}

	// Sessions are private to the workspace and user that opened them.
	if session.WorkspaceID != params.WorkspaceID || session.OwnerID != params.UserID {
		return nil, domain.ErrUploadNotFound
	}

	now := time.Now()

	file := &domain.WorkspaceFile{
		ID:          session.FileID,
		WorkspaceID: session.WorkspaceID,
		OwnerID:     session.OwnerID,
		Name:        session.FileName,
		FolderID:    session.FolderID,
		SizeInBytes: session.SizeInBytes,
		ContentType: session.ContentType,
		ObjectKey:   session.ObjectKey,
		UploadedAt:  now,
		UpdatedAt:   now,
	}

	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	if session.FolderID != nil {
		if err := s.folders.AddChildFile(ctx, *session.FolderID, file.ID); err != nil {
			// The folder was deleted while the upload was in flight. Undo
			// the record and the stray blob instead of keeping an orphan.
			s.discardFile(ctx, file)

			return nil, fmt.Errorf("failed to link file to folder: %w", err)
		}
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		log.Warn().Err(err).Str("upload_id", session.ID).Msg("Failed to delete completed upload session")
	}

	log.Info().
		Str("file_id", file.ID).
		Str("workspace_id", file.WorkspaceID).
		Int64("size_in_bytes", file.SizeInBytes).
		Msg("Completed upload")

	return file, nil
}

func (s *fileService) GetFile(ctx context.Context, workspaceID, fileID string) (*domain.WorkspaceFile, error) {
	if err := domain.ValidateResourceID(fileID); err != nil {
		return nil, err
	}

	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if file.WorkspaceID != workspaceID {
		return nil, domain.ErrFileNotFound
	}

	return file, nil
}

func (s *fileService) ListFiles(ctx context.Context, params domain.ListFilesParams) (domain.ListFilesResult, error) {
	if params.FolderID != nil {
		if _, err := s.getWorkspaceFolder(ctx, params.WorkspaceID, *params.FolderID); err != nil {
			return domain.ListFilesResult{}, err
		}
	}

	return s.files.List(ctx, params)
}

func (s *fileService) DownloadURL(ctx context.Context, workspaceID, fileID string) (domain.DownloadURLResult, error) {
	file, err := s.GetFile(ctx, workspaceID, fileID)
	if err != nil {
		return domain.DownloadURLResult{}, err
	}

	url, err := s.objects.PresignDownload(ctx, file.ObjectKey, s.presignTTL)
	if err != nil {
		return domain.DownloadURLResult{}, err
	}

	return domain.DownloadURLResult{
		URL:       url,
		ExpiresAt: time.Now().Add(s.presignTTL),
	}, nil
}

// UpdateFile renames the file. The object key keeps the name the file was
// uploaded under; only the display name changes.
func (s *fileService) UpdateFile(ctx context.Context, params domain.UpdateFileParams) (*domain.WorkspaceFile, error) {
	file, err := s.GetFile(ctx, params.WorkspaceID, params.FileID)
	if err != nil {
		return nil, err
	}

	if params.Name == nil {
		return file, nil
	}

	if _, err := domain.SanitizeName(*params.Name); err != nil {
		return nil, err
	}

	if err := s.files.UpdateName(ctx, file.ID, *params.Name); err != nil {
		return nil, err
	}

	return s.files.Get(ctx, file.ID)
}

// CopyFile duplicates blob and metadata under a fresh id and key. The caller
// becomes the owner of the copy.
func (s *fileService) CopyFile(ctx context.Context, params domain.CopyFileParams) (*domain.WorkspaceFile, error) {
	source, err := s.GetFile(ctx, params.WorkspaceID, params.FileID)
	if err != nil {
		return nil, err
	}

	storagePrefix := domain.RootStoragePrefix(params.WorkspaceID)

	if params.DestFolderID != nil {
		folder, err := s.getWorkspaceFolder(ctx, params.WorkspaceID, *params.DestFolderID)
		if err != nil {
			return nil, err
		}

		storagePrefix = folder.StoragePrefix
	}

	sanitizedName, err := domain.SanitizeName(source.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	copiedID := domain.NewResourceID()

	copied := &domain.WorkspaceFile{
		ID:          copiedID,
		WorkspaceID: params.WorkspaceID,
		OwnerID:     params.UserID,
		Name:        source.Name,
		FolderID:    params.DestFolderID,
		SizeInBytes: source.SizeInBytes,
		ContentType: source.ContentType,
		ObjectKey:   domain.FileStorageKey(storagePrefix, copiedID, sanitizedName),
		UploadedAt:  now,
		UpdatedAt:   now,
	}

	if err := s.objects.CopyObject(ctx, source.ObjectKey, copied.ObjectKey); err != nil {
		return nil, err
	}

	if err := s.files.Create(ctx, copied); err != nil {
		if deleteErr := s.objects.DeleteObject(ctx, copied.ObjectKey); deleteErr != nil {
			log.Error().Err(deleteErr).Str("object_key", copied.ObjectKey).Msg("Failed to remove blob after copy failure")
		}

		return nil, err
	}

	if params.DestFolderID != nil {
		if err := s.folders.AddChildFile(ctx, *params.DestFolderID, copied.ID); err != nil {
			s.discardFile(ctx, copied)

			return nil, fmt.Errorf("failed to link file to folder: %w", err)
		}
	}

	log.Info().
		Str("file_id", copied.ID).
		Str("source_file_id", source.ID).
		Str("workspace_id", params.WorkspaceID).
		Msg("Copied file")

	return copied, nil
}

// DeleteFile unlinks the record from its folder, deletes the blob, then the
// record itself. A second delete of the same id resolves as not found at the
// initial lookup.
func (s *fileService) DeleteFile(ctx context.Context, workspaceID, fileID string) error {
	file, err := s.GetFile(ctx, workspaceID, fileID)
	if err != nil {
		return err
	}

	if file.FolderID != nil {
		if err := s.folders.RemoveChildFile(ctx, *file.FolderID, file.ID); err != nil {
			return err
		}
	}

	if err := s.objects.DeleteObject(ctx, file.ObjectKey); err != nil {
		return err
	}

	if err := s.files.Delete(ctx, file.ID); err != nil {
		return err
	}

	target := domain.PermissionTarget{Type: domain.TargetTypeFile, ID: file.ID}
	if err := s.permissions.DeleteForTarget(ctx, target); err != nil && !errors.Is(err, domain.ErrPermissionNotFound) {
		log.Error().Err(err).Str("file_id", file.ID).Msg("Failed to clean up file permissions after delete")
	}

	log.Info().
		Str("file_id", file.ID).
		Str("workspace_id", workspaceID).
		Msg("Deleted file")

	return nil
}

func (s *fileService) getWorkspaceFolder(ctx context.Context, workspaceID, folderID string) (*domain.Folder, error) {
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

// discardFile rolls a half-created file back out of the stores. Both halves
// are best effort; anything that survives is logged for manual cleanup.
func (s *fileService) discardFile(ctx context.Context, file *domain.WorkspaceFile) {
	if err := s.files.Delete(ctx, file.ID); err != nil {
		log.Error().Err(err).Str("file_id", file.ID).Msg("Failed to remove file record during rollback")
	}

	if err := s.objects.DeleteObject(ctx, file.ObjectKey); err != nil {
		log.Error().Err(err).Str("object_key", file.ObjectKey).Msg("Failed to remove blob during rollback")
	}
}
