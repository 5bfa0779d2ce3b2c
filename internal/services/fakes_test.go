package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/google/uuid"
)

// The fakes below mirror the store semantics the services lean on: lookups
// return fresh copies (a decoded document, not a shared pointer), child-set
// mutations are set operations, permission upserts are keyed on (user,
// scope), and deletes of absent records behave exactly like their mongo
// counterparts.

type fakeFolderRepository struct {
	folders map[string]*domain.Folder
}

func newFakeFolderRepository() *fakeFolderRepository {
	return &fakeFolderRepository{folders: map[string]*domain.Folder{}}
}

func copyFolder(f *domain.Folder) *domain.Folder {
	c := *f
	c.ChildFileIDs = append([]string{}, f.ChildFileIDs...)
	c.ChildFolderIDs = append([]string{}, f.ChildFolderIDs...)

	if f.ParentFolderID != nil {
		parentID := *f.ParentFolderID
		c.ParentFolderID = &parentID
	}

	return &c
}

func (r *fakeFolderRepository) Create(_ context.Context, folder *domain.Folder) error {
	for _, existing := range r.folders {
		if existing.WorkspaceID == folder.WorkspaceID &&
			sameParent(existing.ParentFolderID, folder.ParentFolderID) &&
			existing.NameSlug == folder.NameSlug {
			return domain.ErrFolderAlreadyExists
		}
	}

	r.folders[folder.ID] = copyFolder(folder)

	return nil
}

func (r *fakeFolderRepository) Get(_ context.Context, id string) (*domain.Folder, error) {
	folder, ok := r.folders[id]
	if !ok {
		return nil, domain.ErrFolderNotFound
	}

	return copyFolder(folder), nil
}

func (r *fakeFolderRepository) ListByParent(_ context.Context, workspaceID string, parentFolderID *string) ([]domain.Folder, error) {
	var out []domain.Folder

	for _, folder := range r.folders {
		if folder.WorkspaceID == workspaceID && sameParent(folder.ParentFolderID, parentFolderID) {
			out = append(out, *copyFolder(folder))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].NameSlug < out[j].NameSlug })

	return out, nil
}

func (r *fakeFolderRepository) ListByWorkspace(_ context.Context, workspaceID string) ([]domain.Folder, error) {
	var out []domain.Folder

	for _, folder := range r.folders {
		if folder.WorkspaceID == workspaceID {
			out = append(out, *copyFolder(folder))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].NameSlug < out[j].NameSlug })

	return out, nil
}

func (r *fakeFolderRepository) ExistsByParentAndSlug(_ context.Context, workspaceID string, parentFolderID *string, nameSlug string) (bool, error) {
	for _, folder := range r.folders {
		if folder.WorkspaceID == workspaceID && sameParent(folder.ParentFolderID, parentFolderID) && folder.NameSlug == nameSlug {
			return true, nil
		}
	}

	return false, nil
}

func (r *fakeFolderRepository) UpdateName(_ context.Context, id, name, nameSlug string) error {
	folder, ok := r.folders[id]
	if !ok {
		return domain.ErrFolderNotFound
	}

	folder.Name = name
	folder.NameSlug = nameSlug
	folder.UpdatedAt = time.Now()

	return nil
}

func (r *fakeFolderRepository) AddChildFolder(_ context.Context, folderID, childFolderID string) error {
	return r.addChild(folderID, childFolderID, false)
}

func (r *fakeFolderRepository) RemoveChildFolder(_ context.Context, folderID, childFolderID string) error {
	r.removeChild(folderID, childFolderID, false)
	return nil
}

func (r *fakeFolderRepository) AddChildFile(_ context.Context, folderID, fileID string) error {
	return r.addChild(folderID, fileID, true)
}

func (r *fakeFolderRepository) RemoveChildFile(_ context.Context, folderID, fileID string) error {
	r.removeChild(folderID, fileID, true)
	return nil
}

func (r *fakeFolderRepository) addChild(folderID, childID string, file bool) error {
	folder, ok := r.folders[folderID]
	if !ok {
		return domain.ErrFolderNotFound
	}

	ids := &folder.ChildFolderIDs
	if file {
		ids = &folder.ChildFileIDs
	}

	for _, id := range *ids {
		if id == childID {
			return nil
		}
	}

	*ids = append(*ids, childID)

	return nil
}

func (r *fakeFolderRepository) removeChild(folderID, childID string, file bool) {
	folder, ok := r.folders[folderID]
	if !ok {
		return
	}

	ids := &folder.ChildFolderIDs
	if file {
		ids = &folder.ChildFileIDs
	}

	kept := (*ids)[:0]
	for _, id := range *ids {
		if id != childID {
			kept = append(kept, id)
		}
	}

	*ids = kept
}

func (r *fakeFolderRepository) Delete(_ context.Context, id string) error {
	delete(r.folders, id)
	return nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}

type fakeFileRepository struct {
	files map[string]*domain.WorkspaceFile
}

func newFakeFileRepository() *fakeFileRepository {
	return &fakeFileRepository{files: map[string]*domain.WorkspaceFile{}}
}

func copyFile(f *domain.WorkspaceFile) *domain.WorkspaceFile {
	c := *f

	if f.FolderID != nil {
		folderID := *f.FolderID
		c.FolderID = &folderID
	}

	return &c
}

func (r *fakeFileRepository) Create(_ context.Context, file *domain.WorkspaceFile) error {
	r.files[file.ID] = copyFile(file)
	return nil
}

func (r *fakeFileRepository) Get(_ context.Context, id string) (*domain.WorkspaceFile, error) {
	file, ok := r.files[id]
	if !ok {
		return nil, domain.ErrFileNotFound
	}

	return copyFile(file), nil
}

func (r *fakeFileRepository) List(_ context.Context, params domain.ListFilesParams) (domain.ListFilesResult, error) {
	var matched []domain.WorkspaceFile

	for _, file := range r.files {
		if file.WorkspaceID != params.WorkspaceID || !sameParent(file.FolderID, params.FolderID) {
			continue
		}

		if params.Cursor != "" && file.ID <= params.Cursor {
			continue
		}

		matched = append(matched, *copyFile(file))
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	result := domain.ListFilesResult{Files: matched}

	if len(matched) > limit {
		result.Files = matched[:limit]
		result.NextCursor = matched[limit-1].ID
	}

	return result, nil
}

func (r *fakeFileRepository) ListIDsByFolder(_ context.Context, folderID string) ([]string, error) {
	var ids []string

	for _, file := range r.files {
		if file.FolderID != nil && *file.FolderID == folderID {
			ids = append(ids, file.ID)
		}
	}

	sort.Strings(ids)

	return ids, nil
}

func (r *fakeFileRepository) UpdateName(_ context.Context, id, name string) error {
	file, ok := r.files[id]
	if !ok {
		return domain.ErrFileNotFound
	}

	file.Name = name
	file.UpdatedAt = time.Now()

	return nil
}

func (r *fakeFileRepository) Delete(_ context.Context, id string) error {
	delete(r.files, id)
	return nil
}

func (r *fakeFileRepository) DeleteByFolder(_ context.Context, folderID string) error {
	for id, file := range r.files {
		if file.FolderID != nil && *file.FolderID == folderID {
			delete(r.files, id)
		}
	}

	return nil
}

type fakePermissionRepository struct {
	permissions map[string]*domain.Permission
}

func newFakePermissionRepository() *fakePermissionRepository {
	return &fakePermissionRepository{permissions: map[string]*domain.Permission{}}
}

func copyPermission(p *domain.Permission) *domain.Permission {
	c := *p
	c.AccessLevels = append([]domain.AccessLevel{}, p.AccessLevels...)

	if p.Target != nil {
		target := *p.Target
		c.Target = &target
	}

	return &c
}

func (r *fakePermissionRepository) UpsertGlobal(_ context.Context, userID string, levels []domain.AccessLevel) (*domain.Permission, error) {
	for _, p := range r.permissions {
		if p.UserID == userID && p.IsGlobal {
			p.AccessLevels = append([]domain.AccessLevel{}, levels...)
			p.UpdatedAt = time.Now()

			return copyPermission(p), nil
		}
	}

	now := time.Now()
	p := &domain.Permission{
		ID:           uuid.NewString(),
		UserID:       userID,
		IsGlobal:     true,
		AccessLevels: append([]domain.AccessLevel{}, levels...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.permissions[p.ID] = p

	return copyPermission(p), nil
}

func (r *fakePermissionRepository) UpsertForTarget(_ context.Context, userID string, target domain.PermissionTarget, levels []domain.AccessLevel) (*domain.Permission, error) {
	for _, p := range r.permissions {
		if p.UserID == userID && p.Target != nil && *p.Target == target {
			p.AccessLevels = append([]domain.AccessLevel{}, levels...)
			p.UpdatedAt = time.Now()

			return copyPermission(p), nil
		}
	}

	now := time.Now()
	p := &domain.Permission{
		ID:           uuid.NewString(),
		UserID:       userID,
		Target:       &target,
		AccessLevels: append([]domain.AccessLevel{}, levels...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.permissions[p.ID] = p

	return copyPermission(p), nil
}

func (r *fakePermissionRepository) BulkUpsertForTargets(ctx context.Context, userID string, targets []domain.PermissionTarget, levels []domain.AccessLevel) error {
	for _, target := range targets {
		if _, err := r.UpsertForTarget(ctx, userID, target, levels); err != nil {
			return err
		}
	}

	return nil
}

func (r *fakePermissionRepository) Get(_ context.Context, id string) (*domain.Permission, error) {
	p, ok := r.permissions[id]
	if !ok {
		return nil, domain.ErrPermissionNotFound
	}

	return copyPermission(p), nil
}

func (r *fakePermissionRepository) GetGlobalForUser(_ context.Context, userID string) (*domain.Permission, error) {
	for _, p := range r.permissions {
		if p.UserID == userID && p.IsGlobal {
			return copyPermission(p), nil
		}
	}

	return nil, domain.ErrPermissionNotFound
}

func (r *fakePermissionRepository) GetForUserAndTarget(_ context.Context, userID string, target domain.PermissionTarget) (*domain.Permission, error) {
	for _, p := range r.permissions {
		if p.UserID == userID && p.Target != nil && *p.Target == target {
			return copyPermission(p), nil
		}
	}

	return nil, domain.ErrPermissionNotFound
}

func (r *fakePermissionRepository) ListForUser(_ context.Context, userID string) ([]domain.Permission, error) {
	var out []domain.Permission

	for _, p := range r.permissions {
		if p.UserID == userID {
			out = append(out, *copyPermission(p))
		}
	}

	return out, nil
}

func (r *fakePermissionRepository) ListForTarget(_ context.Context, target domain.PermissionTarget) ([]domain.Permission, error) {
	var out []domain.Permission

	for _, p := range r.permissions {
		if p.Target != nil && *p.Target == target {
			out = append(out, *copyPermission(p))
		}
	}

	return out, nil
}

func (r *fakePermissionRepository) Delete(_ context.Context, id string) error {
	if _, ok := r.permissions[id]; !ok {
		return domain.ErrPermissionNotFound
	}

	delete(r.permissions, id)

	return nil
}

func (r *fakePermissionRepository) DeleteForTarget(_ context.Context, target domain.PermissionTarget) error {
	for id, p := range r.permissions {
		if p.Target != nil && *p.Target == target {
			delete(r.permissions, id)
		}
	}

	return nil
}

func (r *fakePermissionRepository) DeleteForTargets(_ context.Context, targetType domain.TargetType, targetIDs []string) error {
	ids := map[string]struct{}{}
	for _, id := range targetIDs {
		ids[id] = struct{}{}
	}

	for id, p := range r.permissions {
		if p.Target == nil || p.Target.Type != targetType {
			continue
		}

		if _, ok := ids[p.Target.ID]; ok {
			delete(r.permissions, id)
		}
	}

	return nil
}

func (r *fakePermissionRepository) DeleteForUser(_ context.Context, userID string) error {
	for id, p := range r.permissions {
		if p.UserID == userID {
			delete(r.permissions, id)
		}
	}

	return nil
}

type fakeUploadSessionStore struct {
	sessions map[string]*domain.UploadSession
}

func newFakeUploadSessionStore() *fakeUploadSessionStore {
	return &fakeUploadSessionStore{sessions: map[string]*domain.UploadSession{}}
}

func (s *fakeUploadSessionStore) Put(_ context.Context, session *domain.UploadSession, _ time.Duration) error {
	stored := *session
	s.sessions[session.ID] = &stored

	return nil
}

func (s *fakeUploadSessionStore) Get(_ context.Context, id string) (*domain.UploadSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}

	found := *session

	return &found, nil
}

func (s *fakeUploadSessionStore) Delete(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

// fakeObjectStore tracks which keys hold an object. Tests seed objects with
// put to stand in for the client's presigned PUT, which never goes through
// this service.
type fakeObjectStore struct {
	objects map[string]struct{}

	// failDeletePrefix makes DeleteByPrefix fail for one prefix, to test
	// that metadata survives when blob deletion does not complete.
	failDeletePrefix string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string]struct{}{}}
}

func (s *fakeObjectStore) put(key string) {
	s.objects[key] = struct{}{}
}

func (s *fakeObjectStore) has(key string) bool {
	_, ok := s.objects[key]
	return ok
}

func (s *fakeObjectStore) countPrefix(prefix string) int {
	count := 0

	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			count++
		}
	}

	return count
}

func (s *fakeObjectStore) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://blobs.local/%s?mode=download", key), nil
}

func (s *fakeObjectStore) PresignUpload(_ context.Context, params domain.PresignUploadParams) (string, error) {
	return fmt.Sprintf("https://blobs.local/%s?mode=upload", params.Key), nil
}

func (s *fakeObjectStore) DeleteObject(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *fakeObjectStore) DeleteByPrefix(_ context.Context, prefix string) error {
	if s.failDeletePrefix != "" && prefix == s.failDeletePrefix {
		return fmt.Errorf("simulated blob store outage for prefix %q", prefix)
	}

	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}

	return nil
}

func (s *fakeObjectStore) CopyObject(_ context.Context, srcKey, dstKey string) error {
	if _, ok := s.objects[srcKey]; !ok {
		return fmt.Errorf("source object %q does not exist", srcKey)
	}

	s.objects[dstKey] = struct{}{}

	return nil
}
