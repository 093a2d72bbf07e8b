package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"recordpipeline/internal/config"
	"recordpipeline/internal/config/di"
	"recordpipeline/internal/handlers"
	appError "recordpipeline/internal/shared/error"
	logger "recordpipeline/internal/shared/log"
	"recordpipeline/internal/shared/middleware"
)

// stage is one long-running component of the pipeline.
type stage func(ctx context.Context, c *di.Container) error

func main() {
	root := &cobra.Command{
		Use:          "record-pipeline",
		Short:        "Ingest, validate and transform JSON records",
		SilenceUsage: true,
	}

	root.AddCommand(
		stageCommand("gateway", "Serve the HTTP ingestion endpoint", runGateway),
		stageCommand("validator", "Validate new raw objects and publish validated events", runValidator),
		stageCommand("transformer", "Transform validated records into processed, catalog and archive", runTransformer),
		stageCommand("all", "Run gateway, validator and transformer in one process", runGateway, runValidator, runTransformer),
	)

	if err := root.Execute(); err != nil {
		logger.Fatal(context.Background(), err, "record-pipeline exited with an error")
	}
}

func stageCommand(name, short string, stages ...stage) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), stages...)
		},
	}
}

func run(parent context.Context, stages ...stage) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	container, err := di.InitContainer(cfg)
	if err != nil {
		logger.Error(parent, err, "Failed to initialize container")
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range stages {
		s := s
		g.Go(func() error { return s(gctx, container) })
	}
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if shutdownErr := container.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error(shutdownCtx, shutdownErr, "Error during container shutdown")
	}

	return err
}

func runGateway(ctx context.Context, container *di.Container) error {
	app := fiber.New(fiber.Config{
		ErrorHandler: appError.ErrorHandler(),
		BodyLimit:    container.Config.MaxBodyBytes,
	})

	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "record-pipeline"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.RegisterRoutes(app, container)

	port := container.Config.Port
	logger.Infof(ctx, "Starting ingestion gateway on port %s", port)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(":" + port)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("gateway server: %w", err)
	case <-ctx.Done():
	}

	logger.Info(ctx, "Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error(ctx, err, "Server forced to shutdown")
		return err
	}
	logger.Info(ctx, "Server shutdown complete")
	return ctx.Err()
}

func runValidator(ctx context.Context, container *di.Container) error {
	listener := handlers.NewValidatorListener(container.Notifier, container.Storage, container.ValidatorService, handlers.ValidatorListenerConfig{
		RawBucket:      container.Config.RawBucket,
		RescanInterval: container.Config.ValidatorRescanInterval,
		ReconnectDelay: container.Config.ValidatorReconnectDelay,
	})
	return listener.Run(ctx)
}

func runTransformer(ctx context.Context, container *di.Container) error {
	consumer, err := container.OpenConsumer()
	if err != nil {
		return err
	}
	listener := handlers.NewTransformerListener(consumer, container.TransformerService, container.EventTag())
	return listener.Run(ctx)
}
