package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const foldersCollection = "folders"

type mongoFolderRepository struct {
	database *mongo.Database
}

type MongoFolderRepositoryDependencies struct {
	Database *mongo.Database
}

func NewMongoFolderRepository(deps MongoFolderRepositoryDependencies) domain.FolderRepository {
	repo := &mongoFolderRepository{
		database: deps.Database,
	}

	repo.ensureIndexes()

	return repo
}

func (r *mongoFolderRepository) collection() *mongo.Collection {
	return r.database.Collection(foldersCollection)
}

func (r *mongoFolderRepository) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Sibling names are unique on the sanitized slug. Root-level
			// folders store no parent_folder_id and therefore collide with
			// each other on the missing value, which is the root namespace.
			Keys: bson.D{
				{Key: "workspace_id", Value: 1},
				{Key: "parent_folder_id", Value: 1},
				{Key: "name_slug", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "workspace_id", Value: 1},
				{Key: "parent_folder_id", Value: 1},
			},
		},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create indexes for folders collection")
	}
}

func (r *mongoFolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	_, err := r.collection().InsertOne(ctx, folder)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrFolderAlreadyExists
		}

		return fmt.Errorf("failed to insert folder: %w", err)
	}

	return nil
}

func (r *mongoFolderRepository) Get(ctx context.Context, id string) (*domain.Folder, error) {
	var folder domain.Folder

	err := r.collection().FindOne(ctx, bson.M{"id": id}).Decode(&folder)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrFolderNotFound
		}

		return nil, fmt.Errorf("failed to find folder: %w", err)
	}

	return &folder, nil
}

func (r *mongoFolderRepository) ListByParent(ctx context.Context, workspaceID string, parentFolderID *string) ([]domain.Folder, error) {
	filter := bson.M{
		"workspace_id":     workspaceID,
		"parent_folder_id": parentFolderValue(parentFolderID),
	}

	return r.find(ctx, filter)
}

func (r *mongoFolderRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Folder, error) {
	return r.find(ctx, bson.M{"workspace_id": workspaceID})
}

func (r *mongoFolderRepository) find(ctx context.Context, filter bson.M) ([]domain.Folder, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "name_slug", Value: 1}})

	cursor, err := r.collection().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find folders: %w", err)
	}
	defer cursor.Close(ctx)

	var folders []domain.Folder
	if err := cursor.All(ctx, &folders); err != nil {
		return nil, fmt.Errorf("failed to decode folders: %w", err)
	}

	return folders, nil
}

func (r *mongoFolderRepository) ExistsByParentAndSlug(ctx context.Context, workspaceID string, parentFolderID *string, nameSlug string) (bool, error) {
	filter := bson.M{
		"workspace_id":     workspaceID,
		"parent_folder_id": parentFolderValue(parentFolderID),
		"name_slug":        nameSlug,
	}

	count, err := r.collection().CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count folders: %w", err)
	}

	return count > 0, nil
}

func (r *mongoFolderRepository) UpdateName(ctx context.Context, id, name, nameSlug string) error {
	update := bson.M{
		"$set": bson.M{
			"name":       name,
			"name_slug":  nameSlug,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection().UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrFolderAlreadyExists
		}

		return fmt.Errorf("failed to update folder name: %w", err)
	}

	if result.MatchedCount == 0 {
		return domain.ErrFolderNotFound
	}

	return nil
}

func (r *mongoFolderRepository) AddChildFolder(ctx context.Context, folderID, childFolderID string) error {
	return r.addChild(ctx, folderID, "child_folder_ids", childFolderID)
}

func (r *mongoFolderRepository) RemoveChildFolder(ctx context.Context, folderID, childFolderID string) error {
	return r.removeChild(ctx, folderID, "child_folder_ids", childFolderID)
}

func (r *mongoFolderRepository) AddChildFile(ctx context.Context, folderID, fileID string) error {
	return r.addChild(ctx, folderID, "child_file_ids", fileID)
}

func (r *mongoFolderRepository) RemoveChildFile(ctx context.Context, folderID, fileID string) error {
	return r.removeChild(ctx, folderID, "child_file_ids", fileID)
}

// addChild links a child id with $addToSet so concurrent links to the same
// parent cannot lose each other and relinking is a no-op.
func (r *mongoFolderRepository) addChild(ctx context.Context, folderID, field, childID string) error {
	update := bson.M{
		"$addToSet": bson.M{field: childID},
		"$set":      bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection().UpdateOne(ctx, bson.M{"id": folderID}, update)
	if err != nil {
		return fmt.Errorf("failed to add child to folder: %w", err)
	}

	if result.MatchedCount == 0 {
		return domain.ErrFolderNotFound
	}

	return nil
}

// removeChild unlinks with $pull. Unlinking an id that is not present, or
// from a folder that is already gone, is a no-op.
func (r *mongoFolderRepository) removeChild(ctx context.Context, folderID, field, childID string) error {
	update := bson.M{
		"$pull": bson.M{field: childID},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	_, err := r.collection().UpdateOne(ctx, bson.M{"id": folderID}, update)
	if err != nil {
		return fmt.Errorf("failed to remove child from folder: %w", err)
	}

	return nil
}

// Delete removes the folder record. Deleting an id that is already gone is
// not an error; existence checks belong to the caller.
func (r *mongoFolderRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection().DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	return nil
}

// parentFolderValue maps a nil parent to the null/missing field value so
// root-level queries match documents that omit parent_folder_id.
func parentFolderValue(parentFolderID *string) any {
	if parentFolderID == nil {
		return nil
	}

	return *parentFolderID
}
