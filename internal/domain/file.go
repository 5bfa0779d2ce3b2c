package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrUploadNotFound  = errors.New("upload not found")
	ErrInvalidFileSize = errors.New("file size must not be negative")
)

// WorkspaceFile is the metadata record for one stored object. The object key
// is derived once at upload start and never changes afterwards; renames and
// copies touch metadata only (a copy allocates a fresh key for the new file).
type WorkspaceFile struct {
	ID          string  `json:"id" bson:"id"`
	WorkspaceID string  `json:"workspace_id" bson:"workspace_id"`
	OwnerID     string  `json:"owner_id" bson:"owner_id"`
	Name        string  `json:"name" bson:"name"`
	FolderID    *string `json:"folder_id,omitempty" bson:"folder_id,omitempty"`
	SizeInBytes int64   `json:"size_in_bytes" bson:"size_in_bytes"`
	ContentType string  `json:"content_type,omitempty" bson:"content_type,omitempty"`
	ObjectKey   string  `json:"object_key" bson:"object_key"`

	UploadedAt time.Time `json:"uploaded_at" bson:"uploaded_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// UploadSession is the transient reservation between StartUpload and
// CompleteUpload. Nothing is persisted to the file store until the client
// confirms the blob write; abandoned sessions expire with their write URL.
type UploadSession struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	OwnerID     string    `json:"owner_id"`
	FolderID    *string   `json:"folder_id,omitempty"`

	// FileID is allocated at upload start so the object key can embed it;
	// the persisted record reuses it at completion.
	FileID      string    `json:"file_id"`
	FileName    string    `json:"file_name"`
	SizeInBytes int64     `json:"size_in_bytes"`
	ContentType string    `json:"content_type,omitempty"`
	ObjectKey   string    `json:"object_key"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type StartUploadParams struct {
	WorkspaceID string
	OwnerID     string
	FolderID    *string
	FileName    string
	SizeInBytes int64
	ContentType string
}

type StartUploadResult struct {
	UploadID  string    `json:"upload_id"`
	ObjectKey string    `json:"object_key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CompleteUploadParams struct {
	WorkspaceID string
	UserID      string
	UploadID    string
}

type ListFilesParams struct {
	WorkspaceID string
	// FolderID nil lists root-level files.
	FolderID *string
	Cursor   string
	Limit    int
}

type ListFilesResult struct {
	Files      []WorkspaceFile `json:"files"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type UpdateFileParams struct {
	WorkspaceID string
	FileID      string
	Name        *string
}

type CopyFileParams struct {
	WorkspaceID  string
	UserID       string
	FileID       string
	DestFolderID *string
}

type DownloadURLResult struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileService owns the file lifecycle. Uploads are two-phase: StartUpload
// allocates the id, key and a time-boxed write URL without persisting
// metadata; CompleteUpload persists the record once the caller confirms the
// blob write succeeded.
type FileService interface {
	StartUpload(ctx context.Context, params StartUploadParams) (StartUploadResult, error)
	CompleteUpload(ctx context.Context, params CompleteUploadParams) (*WorkspaceFile, error)

	GetFile(ctx context.Context, workspaceID, fileID string) (*WorkspaceFile, error)
	ListFiles(ctx context.Context, params ListFilesParams) (ListFilesResult, error)
	DownloadURL(ctx context.Context, workspaceID, fileID string) (DownloadURLResult, error)
	UpdateFile(ctx context.Context, params UpdateFileParams) (*WorkspaceFile, error)
	CopyFile(ctx context.Context, params CopyFileParams) (*WorkspaceFile, error)

	// DeleteFile unlinks the file from its folder, deletes the blob, then
	// deletes the metadata record, in that order. Deleting an id that is
	// already gone returns ErrFileNotFound.
	DeleteFile(ctx context.Context, workspaceID, fileID string) error
}

// FileRepository is the persistence boundary for file metadata.
type FileRepository interface {
	Create(ctx context.Context, file *WorkspaceFile) error
	Get(ctx context.Context, id string) (*WorkspaceFile, error)
	List(ctx context.Context, params ListFilesParams) (ListFilesResult, error)

	// ListIDsByFolder returns the ids of every file directly inside the
	// folder. Used by subtree deletion to clean up dependent records.
	ListIDsByFolder(ctx context.Context, folderID string) ([]string, error)

	UpdateName(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	DeleteByFolder(ctx context.Context, folderID string) error
}

// UploadSessionStore parks pending uploads between the two phases. Entries
// expire on their own after the write URL's TTL.
type UploadSessionStore interface {
	Put(ctx context.Context, session *UploadSession, ttl time.Duration) error

	// Get returns ErrUploadNotFound for ids that are absent or expired.
	Get(ctx context.Context, id string) (*UploadSession, error)

	Delete(ctx context.Context, id string) error
}
