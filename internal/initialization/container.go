package initialization

import (
	"context"
	"fmt"

	"github.com/cubbyhq/cubby/internal/controllers"
	"github.com/cubbyhq/cubby/internal/middlewares"
	"github.com/cubbyhq/cubby/internal/repositories"
	"github.com/cubbyhq/cubby/internal/services"
	"github.com/cubbyhq/cubby/internal/storage"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// AppDependencies is the wired object graph the server runs on. Everything
// is constructed once here and handed down by reference; nothing reaches for
// a global client.
type AppDependencies struct {
	AuthMiddleware       fiber.Handler
	PermissionMiddleware *middlewares.PermissionMiddleware
	FolderController     *controllers.FolderController
	FileController       *controllers.FileController
	PermissionController *controllers.PermissionController

	mongoClient *mongo.Client
	redisClient *redis.Client
}

// BuildAppDependencies connects the backing stores and wires repositories,
// services, controllers and middlewares together.
func BuildAppDependencies(ctx context.Context, config *Config) (*AppDependencies, error) {
	log.Info().Msg("Building application dependencies")

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(config.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	database := mongoClient.Database(config.MongoDatabase)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	objectStore, err := storage.NewS3ObjectStore(storage.S3ObjectStoreDependencies{
		Region:          config.S3Region,
		Endpoint:        config.S3Endpoint,
		AccessKeyID:     config.S3AccessKeyID,
		SecretAccessKey: config.S3SecretAccessKey,
		Bucket:          config.S3Bucket,
		ForcePathStyle:  config.S3ForcePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	folderRepository := repositories.NewMongoFolderRepository(repositories.MongoFolderRepositoryDependencies{
		Database: database,
	})
	fileRepository := repositories.NewMongoFileRepository(repositories.MongoFileRepositoryDependencies{
		Database: database,
	})
	permissionRepository := repositories.NewMongoPermissionRepository(repositories.MongoPermissionRepositoryDependencies{
		Database: database,
	})
	uploadSessionStore := repositories.NewRedisUploadSessionStore(repositories.RedisUploadSessionStoreDependencies{
		Client: redisClient,
	})

	folderService := services.NewFolderService(services.FolderServiceDependencies{
		FolderRepository:     folderRepository,
		FileRepository:       fileRepository,
		PermissionRepository: permissionRepository,
		ObjectStore:          objectStore,
	})

	fileService := services.NewFileService(services.FileServiceDependencies{
		FileRepository:       fileRepository,
		FolderRepository:     folderRepository,
		PermissionRepository: permissionRepository,
		UploadSessionStore:   uploadSessionStore,
		ObjectStore:          objectStore,
		PresignTTL:           config.PresignTTL(),
	})

	permissionService := services.NewPermissionService(services.PermissionServiceDependencies{
		PermissionRepository: permissionRepository,
		FolderRepository:     folderRepository,
		FileRepository:       fileRepository,
	})

	accessService := services.NewAccessService(services.AccessServiceDependencies{
		PermissionRepository: permissionRepository,
		FolderRepository:     folderRepository,
		FileRepository:       fileRepository,
	})

	deps := &AppDependencies{
		AuthMiddleware: middlewares.NewAuthMiddleware(middlewares.AuthMiddlewareDependencies{
			JWTSecret: config.JWTSecret,
		}),
		PermissionMiddleware: middlewares.NewPermissionMiddleware(middlewares.PermissionMiddlewareDependencies{
			AccessService: accessService,
		}),
		FolderController: controllers.NewFolderController(controllers.FolderControllerDependencies{
			FolderService: folderService,
			AccessService: accessService,
		}),
		FileController: controllers.NewFileController(controllers.FileControllerDependencies{
			FileService:   fileService,
			AccessService: accessService,
		}),
		PermissionController: controllers.NewPermissionController(controllers.PermissionControllerDependencies{
			PermissionService: permissionService,
			AccessService:     accessService,
		}),

		mongoClient: mongoClient,
		redisClient: redisClient,
	}

	log.Info().Msg("Application dependencies built successfully")

	return deps, nil
}

// Close releases the store connections. Called once on shutdown.
func (d *AppDependencies) Close(ctx context.Context) {
	if err := d.mongoClient.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to disconnect from mongodb")
	}

	if err := d.redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close redis client")
	}
}
