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

const filesCollection = "files"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type mongoFileRepository struct {
	database *mongo.Database
}

type MongoFileRepositoryDependencies struct {
	Database *mongo.Database
}

func NewMongoFileRepository(deps MongoFileRepositoryDependencies) domain.FileRepository {
	repo := &mongoFileRepository{
		database: deps.Database,
	}

	repo.ensureIndexes()

	return repo
}

func (r *mongoFileRepository) collection() *mongo.Collection {
	return r.database.Collection(filesCollection)
}

func (r *mongoFileRepository) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Serves cursor pagination: ids are time-sortable, so listing
			// sorted by id within (workspace, folder) walks insertion order.
			Keys: bson.D{
				{Key: "workspace_id", Value: 1},
				{Key: "folder_id", Value: 1},
				{Key: "id", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "folder_id", Value: 1}},
		},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create indexes for files collection")
	}
}

func (r *mongoFileRepository) Create(ctx context.Context, file *domain.WorkspaceFile) error {
	_, err := r.collection().InsertOne(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	return nil
}

func (r *mongoFileRepository) Get(ctx context.Context, id string) (*domain.WorkspaceFile, error) {
	var file domain.WorkspaceFile

	err := r.collection().FindOne(ctx, bson.M{"id": id}).Decode(&file)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrFileNotFound
		}

		return nil, fmt.Errorf("failed to find file: %w", err)
	}

	return &file, nil
}

func (r *mongoFileRepository) List(ctx context.Context, params domain.ListFilesParams) (domain.ListFilesResult, error) {
	filter := bson.M{
		"workspace_id": params.WorkspaceID,
		"folder_id":    parentFolderValue(params.FolderID),
	}

	if params.Cursor != "" {
		filter["id"] = bson.M{"$gt": params.Cursor}
	}

	limit := params.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "id", Value: 1}})
	findOptions.SetLimit(int64(limit + 1))

	cursor, err := r.collection().Find(ctx, filter, findOptions)
	if err != nil {
		return domain.ListFilesResult{}, fmt.Errorf("failed to find files: %w", err)
	}
	defer cursor.Close(ctx)

	var files []domain.WorkspaceFile
	if err := cursor.All(ctx, &files); err != nil {
		return domain.ListFilesResult{}, fmt.Errorf("failed to decode files: %w", err)
	}

	result := domain.ListFilesResult{Files: files}

	// One extra document was requested to detect whether a next page exists.
	if len(files) > limit {
		result.Files = files[:limit]
		result.NextCursor = files[limit-1].ID
	}

	return result, nil
}

func (r *mongoFileRepository) ListIDsByFolder(ctx context.Context, folderID string) ([]string, error) {
	findOptions := options.Find()
	findOptions.SetProjection(bson.M{"id": 1})

	cursor, err := r.collection().Find(ctx, bson.M{"folder_id": folderID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find files by folder: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID string `bson:"id"`
	}

	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode file ids: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}

	return ids, nil
}

// UpdateName changes the display name only. The object key is derived from
// the name once at upload start and is not writable here.
func (r *mongoFileRepository) UpdateName(ctx context.Context, id, name string) error {
	update := bson.M{
		"$set": bson.M{
			"name":       name,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection().UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update file name: %w", err)
	}

	if result.MatchedCount == 0 {
		return domain.ErrFileNotFound
	}

	return nil
}

// Delete removes the file record. Deleting an id that is already gone is not
// an error; existence checks belong to the caller.
func (r *mongoFileRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection().DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (r *mongoFileRepository) DeleteByFolder(ctx context.Context, folderID string) error {
	_, err := r.collection().DeleteMany(ctx, bson.M{"folder_id": folderID})
	if err != nil {
		return fmt.Errorf("failed to delete files by folder: %w", err)
	}

	return nil
}
