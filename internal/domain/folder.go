package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrFolderNotFound      = errors.New("folder not found")
	ErrFolderAlreadyExists = errors.New("folder with the same name already exists")
)

// Folder is one node of a workspace's hierarchy. Children are tracked by id
// on the node itself and every traversal goes through id lookups against the
// store; nodes never hold in-memory references to each other.
type Folder struct {
	ID          string `json:"id" bson:"id"`
	WorkspaceID string `json:"workspace_id" bson:"workspace_id"`
	OwnerID     string `json:"owner_id" bson:"owner_id"`
	Name        string `json:"name" bson:"name"`

	// NameSlug is the sanitized form of Name, used for sibling uniqueness.
	NameSlug string `json:"-" bson:"name_slug"`

	// ParentFolderID is nil for root-level folders.
	ParentFolderID *string `json:"parent_folder_id,omitempty" bson:"parent_folder_id,omitempty"`

	// StoragePrefix addresses every blob belonging to this folder. Set at
	// creation, never updated.
	StoragePrefix string `json:"storage_prefix" bson:"storage_prefix"`

	ChildFileIDs   []string `json:"child_file_ids" bson:"child_file_ids"`
	ChildFolderIDs []string `json:"child_folder_ids" bson:"child_folder_ids"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (f *Folder) IsRoot() bool {
	return f.ParentFolderID == nil
}

type CreateFolderParams struct {
	WorkspaceID    string
	OwnerID        string
	Name           string
	ParentFolderID *string
}

type UpdateFolderParams struct {
	WorkspaceID string
	FolderID    string

	// Name is the only mutable attribute. The storage prefix cannot be
	// changed through any update path.
	Name *string
}

type ListFoldersParams struct {
	WorkspaceID    string
	ParentFolderID *string

	// AllFolders ignores ParentFolderID and returns the whole workspace.
	AllFolders bool
}

type ListFoldersResult struct {
	Folders []Folder
}

// FolderService owns the folder lifecycle: creation with sibling-uniqueness,
// renames, and recursive subtree deletion.
type FolderService interface {
	CreateFolder(ctx context.Context, params CreateFolderParams) (*Folder, error)
	GetFolder(ctx context.Context, workspaceID, folderID string) (*Folder, error)
	ListFolders(ctx context.Context, params ListFoldersParams) (ListFoldersResult, error)
	UpdateFolder(ctx context.Context, params UpdateFolderParams) (*Folder, error)

	// DeleteFolder removes the folder and everything beneath it: blobs by
	// prefix first, then file records, then folder records, walking the
	// subtree with an explicit work stack. Already-missing children are
	// skipped, not errors.
	DeleteFolder(ctx context.Context, workspaceID, folderID string) error
}

// FolderRepository is the persistence boundary for folder nodes. Child-set
// mutations must be atomic set operations on the stored document so
// concurrent links to the same folder cannot lose updates.
type FolderRepository interface {
	// Create persists a new folder. It returns ErrFolderAlreadyExists when a
	// sibling with the same name slug exists in the workspace.
	Create(ctx context.Context, folder *Folder) error

	Get(ctx context.Context, id string) (*Folder, error)
	ListByParent(ctx context.Context, workspaceID string, parentFolderID *string) ([]Folder, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]Folder, error)

	// ExistsByParentAndSlug reports whether a sibling with the given name
	// slug already exists under the parent (nil parent = workspace root).
	ExistsByParentAndSlug(ctx context.Context, workspaceID string, parentFolderID *string, nameSlug string) (bool, error)

	// UpdateName changes the display name and slug. No other field is
	// touched; in particular the storage prefix is not writable here.
	UpdateName(ctx context.Context, id, name, nameSlug string) error

	AddChildFolder(ctx context.Context, folderID, childFolderID string) error
	RemoveChildFolder(ctx context.Context, folderID, childFolderID string) error
	AddChildFile(ctx context.Context, folderID, fileID string) error
	RemoveChildFile(ctx context.Context, folderID, fileID string) error

	Delete(ctx context.Context, id string) error
}
