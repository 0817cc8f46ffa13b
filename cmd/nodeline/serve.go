package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hilthontt/nodeline/internal/dependency"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket hub and idle reaper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			container, err := dependency.NewContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := container.Close(closeCtx); err != nil {
					container.Logger.Error(logging.General, logging.Shutdown, "error closing dependencies", map[logging.ExtraKey]any{
						logging.ErrorMessage: err.Error(),
					})
				}
			}()

			container.Start(ctx)

			return container.App.Run(ctx, container.App.Mount())
		},
	}
}
