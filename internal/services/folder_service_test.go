package services

import (
	"context"
	"strings"
	"testing"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFolder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	folder, err := env.folderService.CreateFolder(ctx, domain.CreateFolderParams{
		WorkspaceID: "w1",
		OwnerID:     "u1",
		Name:        "Reports",
	})
	require.NoError(t, err)

	assert.NoError(t, domain.ValidateResourceID(folder.ID))
	assert.Equal(t, "w1", folder.WorkspaceID)
	assert.Equal(t, "u1", folder.OwnerID)
	assert.Equal(t, "Reports", folder.Name)
	assert.Equal(t, "reports", folder.NameSlug)
	assert.Nil(t, folder.ParentFolderID)
	assert.Equal(t, "w1/folders/"+folder.ID+"/", folder.StoragePrefix)
	assert.Empty(t, folder.ChildFolderIDs)
	assert.Empty(t, folder.ChildFileIDs)
}

func TestCreateFolder_LinksIntoParent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	parent := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)
	child := env.mustCreateFolder(t, "w1", "u1", "2024", &parent.ID)

	require.NotNil(t, child.ParentFolderID)
	assert.Equal(t, parent.ID, *child.ParentFolderID)

	reloaded, err := env.folderService.GetFolder(ctx, "w1", parent.ID)
	require.NoError(t, err)
	assert.Contains(t, reloaded.ChildFolderIDs, child.ID)
}

func TestCreateFolder_SiblingNameConflict(t *testing.T) {
	tests := []struct {
		name       string
		firstName  string
		secondName string
		wantErr    error
	}{
		{
			name:       "exact duplicate",
			firstName:  "Reports",
			secondName: "Reports",
			wantErr:    domain.ErrFolderAlreadyExists,
		},
		{
			name:       "collides after sanitization",
			firstName:  "Q1 Report",
			secondName: "q1-report",
			wantErr:    domain.ErrFolderAlreadyExists,
		},
		{
			name:       "case-insensitive collision",
			firstName:  "reports",
			secondName: "REPORTS",
			wantErr:    domain.ErrFolderAlreadyExists,
		},
		{
			name:       "distinct names coexist",
			firstName:  "Reports",
			secondName: "Invoices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			ctx := context.Background()

			_, err := env.folderService.CreateFolder(ctx, domain.CreateFolderParams{
				WorkspaceID: "w1",
				OwnerID:     "u1",
				Name:        tt.firstName,
			})
			require.NoError(t, err)

			_, err = env.folderService.CreateFolder(ctx, domain.CreateFolderParams{
				WorkspaceID: "w1",
				OwnerID:     "u1",
				Name:        tt.secondName,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateFolder_SameNameDifferentScope(t *testing.T) {
	env := newTestEnv()

	a := env.mustCreateFolder(t, "w1", "u1", "A", nil)
	b := env.mustCreateFolder(t, "w1", "u1", "B", nil)

	// Uniqueness is per parent, not per workspace.
	env.mustCreateFolder(t, "w1", "u1", "Shared", &a.ID)
	env.mustCreateFolder(t, "w1", "u1", "Shared", &b.ID)

	// And per workspace at the root.
	env.mustCreateFolder(t, "w1", "u1", "Inbox", nil)
	env.mustCreateFolder(t, "w2", "u1", "Inbox", nil)
}

func TestCreateFolder_InvalidName(t *testing.T) {
	tests := []struct {
		name       string
		folderName string
	}{
		{name: "empty", folderName: ""},
		{name: "whitespace only", folderName: "   "},
		{name: "sanitizes to nothing", folderName: "###"},
		{name: "too long", folderName: strings.Repeat("a", domain.MaxNameLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()

			_, err := env.folderService.CreateFolder(context.Background(), domain.CreateFolderParams{
				WorkspaceID: "w1",
				OwnerID:     "u1",
				Name:        tt.folderName,
			})

			assert.ErrorIs(t, err, domain.ErrInvalidName)
		})
	}
}

func TestCreateFolder_ParentErrors(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	otherWorkspace := env.mustCreateFolder(t, "w2", "u1", "Elsewhere", nil)

	tests := []struct {
		name     string
		parentID string
		wantErr  error
	}{
		{name: "malformed parent id", parentID: "not-an-id", wantErr: domain.ErrInvalidResourceID},
		{name: "parent does not exist", parentID: domain.NewResourceID(), wantErr: domain.ErrFolderNotFound},
		{name: "parent in another workspace", parentID: otherWorkspace.ID, wantErr: domain.ErrFolderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.folderService.CreateFolder(ctx, domain.CreateFolderParams{
				WorkspaceID:    "w1",
				OwnerID:        "u1",
				Name:           "Child",
				ParentFolderID: &tt.parentID,
			})

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateFolder_Rename(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	folder := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)
	originalPrefix := folder.StoragePrefix

	updated, err := env.folderService.UpdateFolder(ctx, domain.UpdateFolderParams{
		WorkspaceID: "w1",
		FolderID:    folder.ID,
		Name:        strPtr("Archive"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Archive", updated.Name)
	assert.Equal(t, "archive", updated.NameSlug)

	// A rename never moves blobs: the prefix assigned at creation stays.
	assert.Equal(t, originalPrefix, updated.StoragePrefix)
}

func TestUpdateFolder_SiblingConflict(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.mustCreateFolder(t, "w1", "u1", "Reports", nil)
	invoices := env.mustCreateFolder(t, "w1", "u1", "Invoices", nil)

	_, err := env.folderService.UpdateFolder(ctx, domain.UpdateFolderParams{
		WorkspaceID: "w1",
		FolderID:    invoices.ID,
		Name:        strPtr("Reports"),
	})
	assert.ErrorIs(t, err, domain.ErrFolderAlreadyExists)

	// Changing only the display form of the folder's own name is not a
	// conflict with itself.
	updated, err := env.folderService.UpdateFolder(ctx, domain.UpdateFolderParams{
		WorkspaceID: "w1",
		FolderID:    invoices.ID,
		Name:        strPtr("INVOICES"),
	})
	require.NoError(t, err)
	assert.Equal(t, "INVOICES", updated.Name)
	assert.Equal(t, "invoices", updated.NameSlug)
}

func TestUpdateFolder_NoChanges(t *testing.T) {
	env := newTestEnv()

	folder := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)

	updated, err := env.folderService.UpdateFolder(context.Background(), domain.UpdateFolderParams{
		WorkspaceID: "w1",
		FolderID:    folder.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Reports", updated.Name)
}

func TestListFolders(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a := env.mustCreateFolder(t, "w1", "u1", "A", nil)
	env.mustCreateFolder(t, "w1", "u1", "B", nil)
	child := env.mustCreateFolder(t, "w1", "u1", "Child", &a.ID)
	env.mustCreateFolder(t, "w2", "u1", "Other", nil)

	root, err := env.folderService.ListFolders(ctx, domain.ListFoldersParams{WorkspaceID: "w1"})
	require.NoError(t, err)
	assert.Len(t, root.Folders, 2)

	children, err := env.folderService.ListFolders(ctx, domain.ListFoldersParams{
		WorkspaceID:    "w1",
		ParentFolderID: &a.ID,
	})
	require.NoError(t, err)
	require.Len(t, children.Folders, 1)
	assert.Equal(t, child.ID, children.Folders[0].ID)

	all, err := env.folderService.ListFolders(ctx, domain.ListFoldersParams{
		WorkspaceID: "w1",
		AllFolders:  true,
	})
	require.NoError(t, err)
	assert.Len(t, all.Folders, 3)

	missingParent := domain.NewResourceID()
	_, err = env.folderService.ListFolders(ctx, domain.ListFoldersParams{
		WorkspaceID:    "w1",
		ParentFolderID: &missingParent,
	})
	assert.ErrorIs(t, err, domain.ErrFolderNotFound)
}

func TestDeleteFolder_RemovesEntireSubtree(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	root := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)
	mid := env.mustCreateFolder(t, "w1", "u1", "2024", &root.ID)
	leaf := env.mustCreateFolder(t, "w1", "u1", "Q1", &mid.ID)

	rootFile := env.mustUploadFile(t, "w1", "u1", "summary.pdf", &root.ID)
	leafFile := env.mustUploadFile(t, "w1", "u1", "q1.pdf", &leaf.ID)

	require.NoError(t, env.folderService.DeleteFolder(ctx, "w1", root.ID))

	for _, folderID := range []string{root.ID, mid.ID, leaf.ID} {
		_, err := env.folderService.GetFolder(ctx, "w1", folderID)
		assert.ErrorIs(t, err, domain.ErrFolderNotFound)
	}

	for _, fileID := range []string{rootFile.ID, leafFile.ID} {
		_, err := env.fileService.GetFile(ctx, "w1", fileID)
		assert.ErrorIs(t, err, domain.ErrFileNotFound)
	}

	for _, prefix := range []string{root.StoragePrefix, mid.StoragePrefix, leaf.StoragePrefix} {
		assert.Zero(t, env.objects.countPrefix(prefix))
	}
}

func TestDeleteFolder_UnlinksFromParent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	parent := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)
	target := env.mustCreateFolder(t, "w1", "u1", "2024", &parent.ID)
	env.mustCreateFolder(t, "w1", "u1", "Q1", &target.ID)

	require.NoError(t, env.folderService.DeleteFolder(ctx, "w1", target.ID))

	reloaded, err := env.folderService.GetFolder(ctx, "w1", parent.ID)
	require.NoError(t, err)
	assert.NotContains(t, reloaded.ChildFolderIDs, target.ID)
}

func TestDeleteFolder_CleansUpPermissions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	root := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)
	child := env.mustCreateFolder(t, "w1", "u1", "2024", &root.ID)
	env.mustUploadFile(t, "w1", "u1", "q1.pdf", &child.ID)
	outside := env.mustCreateFolder(t, "w1", "u1", "Keep", nil)

	// Propagates onto the child folder and the file.
	env.mustGrant(t, "u2", domain.PermissionTarget{Type: domain.TargetTypeFolder, ID: root.ID}, domain.AccessLevelRead)
	env.mustGrant(t, "u2", domain.PermissionTarget{Type: domain.TargetTypeFolder, ID: outside.ID}, domain.AccessLevelWrite)

	require.NoError(t, env.folderService.DeleteFolder(ctx, "w1", root.ID))

	remaining, err := env.permissionService.ListForUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, outside.ID, remaining[0].Target.ID)
}

func TestDeleteFolder_SkipsMissingChildren(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	parent := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)
	child := env.mustCreateFolder(t, "w1", "u1", "2024", &parent.ID)

	// Drop the child record directly, leaving a dangling id in the parent's
	// child list, as a concurrent delete would.
	require.NoError(t, env.folders.Delete(ctx, child.ID))

	require.NoError(t, env.folderService.DeleteFolder(ctx, "w1", parent.ID))

	_, err := env.folderService.GetFolder(ctx, "w1", parent.ID)
	assert.ErrorIs(t, err, domain.ErrFolderNotFound)
}

func TestDeleteFolder_SecondDeleteNotFound(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	folder := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)

	require.NoError(t, env.folderService.DeleteFolder(ctx, "w1", folder.ID))
	assert.ErrorIs(t, env.folderService.DeleteFolder(ctx, "w1", folder.ID), domain.ErrFolderNotFound)
}

func TestDeleteFolder_BlobFailureKeepsMetadata(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	folder := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)
	file := env.mustUploadFile(t, "w1", "u1", "q1.pdf", &folder.ID)

	env.objects.failDeletePrefix = folder.StoragePrefix

	require.Error(t, env.folderService.DeleteFolder(ctx, "w1", folder.ID))

	// Blobs go before metadata, so a blob-store failure leaves the records
	// intact for a retry.
	_, err := env.folderService.GetFolder(ctx, "w1", folder.ID)
	assert.NoError(t, err)

	_, err = env.fileService.GetFile(ctx, "w1", file.ID)
	assert.NoError(t, err)
}

func TestDeleteFolder_WorkspaceMismatch(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	folder := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)

	assert.ErrorIs(t, env.folderService.DeleteFolder(ctx, "w2", folder.ID), domain.ErrFolderNotFound)

	_, err := env.folderService.GetFolder(ctx, "w1", folder.ID)
	assert.NoError(t, err)
}

func TestGetFolder_Errors(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	folder := env.mustCreateFolder(t, "w1", "u1", "Reports", nil)

	tests := []struct {
		name        string
		workspaceID string
		folderID    string
		wantErr     error
	}{
		{name: "malformed id", workspaceID: "w1", folderID: "nope", wantErr: domain.ErrInvalidResourceID},
		{name: "unknown id", workspaceID: "w1", folderID: domain.NewResourceID(), wantErr: domain.ErrFolderNotFound},
		{name: "wrong workspace", workspaceID: "w2", folderID: folder.ID, wantErr: domain.ErrFolderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.folderService.GetFolder(ctx, tt.workspaceID, tt.folderID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
