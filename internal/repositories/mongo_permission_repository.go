package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const permissionsCollection = "permissions"

type mongoPermissionRepository struct {
	database *mongo.Database
}

type MongoPermissionRepositoryDependencies struct {
	Database *mongo.Database
}

func NewMongoPermissionRepository(deps MongoPermissionRepositoryDependencies) domain.PermissionRepository {
	repo := &mongoPermissionRepository{
		database: deps.Database,
	}

	repo.ensureIndexes()

	return repo
}

func (r *mongoPermissionRepository) collection() *mongo.Collection {
	return r.database.Collection(permissionsCollection)
}

func (r *mongoPermissionRepository) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// One global grant per user.
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_global": true}),
		},
		{
			// One grant per (user, target).
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "target.type", Value: 1},
				{Key: "target.id", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"target": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{
				{Key: "target.type", Value: 1},
				{Key: "target.id", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create indexes for permissions collection")
	}
}

// UpsertGlobal finds or creates the user's single global grant atomically and
// replaces its level set. The inserted document inherits user_id and
// is_global from the filter.
func (r *mongoPermissionRepository) UpsertGlobal(ctx context.Context, userID string, levels []domain.AccessLevel) (*domain.Permission, error) {
	filter := bson.M{
		"user_id":   userID,
		"is_global": true,
	}

	permission, err := r.upsert(ctx, filter, levels)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert global permission: %w", err)
	}

	return permission, nil
}

func (r *mongoPermissionRepository) UpsertForTarget(ctx context.Context, userID string, target domain.PermissionTarget, levels []domain.AccessLevel) (*domain.Permission, error) {
	filter := bson.M{
		"user_id":     userID,
		"target.type": target.Type,
		"target.id":   target.ID,
	}

	permission, err := r.upsert(ctx, filter, levels)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert permission for target: %w", err)
	}

	return permission, nil
}

func (r *mongoPermissionRepository) upsert(ctx context.Context, filter bson.M, levels []domain.AccessLevel) (*domain.Permission, error) {
	now := time.Now()

	update := bson.M{
		"$set": bson.M{
			"access_levels": levels,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"id":         uuid.NewString(),
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var permission domain.Permission
	if err := r.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&permission); err != nil {
		return nil, err
	}

	return &permission, nil
}

// BulkUpsertForTargets applies the same level set to every target for one
// user in a single unordered bulk write. Each entry is its own atomic
// find-or-create, so rerunning the batch converges instead of duplicating.
func (r *mongoPermissionRepository) BulkUpsertForTargets(ctx context.Context, userID string, targets []domain.PermissionTarget, levels []domain.AccessLevel) error {
	if len(targets) == 0 {
		return nil
	}

	now := time.Now()

	models := make([]mongo.WriteModel, 0, len(targets))

	for _, target := range targets {
		filter := bson.M{
			"user_id":     userID,
			"target.type": target.Type,
			"target.id":   target.ID,
		}

		update := bson.M{
			"$set": bson.M{
				"access_levels": levels,
				"updated_at":    now,
			},
			"$setOnInsert": bson.M{
				"id":         uuid.NewString(),
				"created_at": now,
			},
		}

		model := mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(update).
			SetUpsert(true)

		models = append(models, model)
	}

	_, err := r.collection().BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("failed to bulk upsert permissions: %w", err)
	}

	return nil
}

func (r *mongoPermissionRepository) Get(ctx context.Context, id string) (*domain.Permission, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *mongoPermissionRepository) GetGlobalForUser(ctx context.Context, userID string) (*domain.Permission, error) {
	filter := bson.M{
		"user_id":   userID,
		"is_global": true,
	}

	return r.findOne(ctx, filter)
}

func (r *mongoPermissionRepository) GetForUserAndTarget(ctx context.Context, userID string, target domain.PermissionTarget) (*domain.Permission, error) {
	filter := bson.M{
		"user_id":     userID,
		"target.type": target.Type,
		"target.id":   target.ID,
	}

	return r.findOne(ctx, filter)
}

func (r *mongoPermissionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Permission, error) {
	var permission domain.Permission

	err := r.collection().FindOne(ctx, filter).Decode(&permission)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrPermissionNotFound
		}

		return nil, fmt.Errorf("failed to find permission: %w", err)
	}

	return &permission, nil
}

func (r *mongoPermissionRepository) ListForUser(ctx context.Context, userID string) ([]domain.Permission, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *mongoPermissionRepository) ListForTarget(ctx context.Context, target domain.PermissionTarget) ([]domain.Permission, error) {
	filter := bson.M{
		"target.type": target.Type,
		"target.id":   target.ID,
	}

	return r.find(ctx, filter)
}

func (r *mongoPermissionRepository) find(ctx context.Context, filter bson.M) ([]domain.Permission, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find permissions: %w", err)
	}
	defer cursor.Close(ctx)

	var permissions []domain.Permission
	if err := cursor.All(ctx, &permissions); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}

	return permissions, nil
}

func (r *mongoPermissionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection().DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	if result.DeletedCount == 0 {
		return domain.ErrPermissionNotFound
	}

	return nil
}

func (r *mongoPermissionRepository) DeleteForTarget(ctx context.Context, target domain.PermissionTarget) error {
	filter := bson.M{
		"target.type": target.Type,
		"target.id":   target.ID,
	}

	_, err := r.collection().DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete permissions for target: %w", err)
	}

	return nil
}

func (r *mongoPermissionRepository) DeleteForTargets(ctx context.Context, targetType domain.TargetType, targetIDs []string) error {
	if len(targetIDs) == 0 {
		return nil
	}

	filter := bson.M{
		"target.type": targetType,
		"target.id":   bson.M{"$in": targetIDs},
	}

	_, err := r.collection().DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete permissions for targets: %w", err)
	}

	return nil
}

func (r *mongoPermissionRepository) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.collection().DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete permissions for user: %w", err)
	}

	return nil
}
