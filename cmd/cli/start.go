package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cubbyhq/cubby/internal/initialization"
	"github.com/cubbyhq/cubby/internal/server"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the cubby API server",
		Long:  `Start the cubby API server. Configuration is read from cubby_config.yaml and CUBBY_* environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart()
		},
	}

	return cmd
}

func runStart() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("Starting cubby")

	config, err := initialization.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	deps, err := initialization.BuildAppDependencies(ctx, config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build application dependencies")
	}

	app := server.NewHTTPServer(server.HTTPServerDependencies{
		AuthMiddleware:       deps.AuthMiddleware,
		PermissionMiddleware: deps.PermissionMiddleware,
		FolderController:     deps.FolderController,
		FileController:       deps.FileController,
		PermissionController: deps.PermissionController,
	})

	log.Info().Str("address", config.HTTPAddress).Msg("Listening")

	if err := app.Listen(config.HTTPAddress, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	}); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	deps.Close(shutdownCtx)

	log.Info().Msg("Cubby stopped")

	return nil
}
