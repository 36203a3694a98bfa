package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/relocation-backend/internal/app"
	"github.com/yungbote/relocation-backend/internal/data/db"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relocation",
		Short:         "Relocation profile service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(serveCmd(), migrateCmd())
	return root
}

func serveCmd() *cobra.Command {
	var shutdownTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background extraction workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			a, err := app.New(log)
			if err != nil {
				log.Error("App init failed", "error", err)
				log.Sync()
				return err
			}
			a.Start()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- a.Run() }()

			var runErr error
			select {
			case <-ctx.Done():
				log.Info("Shutdown signal received")
			case runErr = <-errCh:
				if runErr != nil {
					log.Error("Server failed", "error", runErr)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := a.Shutdown(shutdownCtx); err != nil {
				log.Warn("Shutdown incomplete", "error", err)
			}
			return runErr
		},
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 20*time.Second, "time allowed to drain requests and queued turns")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the profile tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			pg, err := db.NewPostgresService(log)
			if err != nil {
				return fmt.Errorf("init postgres: %w", err)
			}
			defer pg.Close()
			if err := db.Migrate(pg.DB()); err != nil {
				return err
			}
			log.Info("Migration complete")
			return nil
		},
	}
}
