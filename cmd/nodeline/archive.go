package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hilthontt/nodeline/internal/infrastructure/configs"
	"github.com/hilthontt/nodeline/internal/infrastructure/events"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/messaging"
	"github.com/hilthontt/nodeline/internal/persistence/db"
	"github.com/hilthontt/nodeline/internal/persistence/repository"
	"github.com/spf13/cobra"
)

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Consume published activity events into MongoDB",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runArchive(ctx, cfg)
		},
	}
}

func runArchive(ctx context.Context, cfg *configs.Config) error {
	if cfg.RabbitMQ.URI == "" {
		return errors.New("archive requires rabbitmq.uri")
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})
	defer logger.Sync()

	store, err := db.ConnectMongo(ctx, db.MongoConfig{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(closeCtx)
	}()

	archive := repository.NewActivityEventRepository(store.Database())
	if err := archive.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure activity indexes: %w", err)
	}

	rmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI)
	if err != nil {
		return err
	}
	defer rmq.Close()

	consumer := events.NewActivityConsumer(rmq, archive, logger)
	if err := consumer.Listen(ctx); err != nil {
		return err
	}

	logger.Info(logging.Audit, logging.Consume, "archiving activity events", map[logging.ExtraKey]any{
		"Queue": messaging.AuditQueue,
	})

	<-ctx.Done()

	logger.Info(logging.Audit, logging.Shutdown, "archiver stopped", nil)
	return nil
}
