// Package main is the entry point for the game library server.
//
// The main package stays small. It reads configuration, builds the
// logger and the media host, and hands everything to internal/server.
//
//	gamelibrary serve [--port 8080] [--db data/gamelibrary.db]
//	gamelibrary migrate up|down [--db ...]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/game-library/internal/config"
	"github.com/sakif/game-library/internal/media"
	sqliteRepo "github.com/sakif/game-library/internal/repository/sqlite"
	"github.com/sakif/game-library/internal/server"
	"github.com/sakif/game-library/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:          "gamelibrary",
		Short:        "Game library API server and utilities",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv()
		},
	}
	root.PersistentFlags().String("db", "", "SQLite database path (env "+config.KeyDBPath+")")
	v.BindPFlag(config.KeyDBPath, root.PersistentFlags().Lookup("db"))

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}
	serve.Flags().Int("port", 0, "HTTP port (env "+config.KeyPort+")")
	v.BindPFlag(config.KeyPort, serve.Flags().Lookup("port"))

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(v, (*sqliteRepo.DB).MigrateUp)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all applied migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(v, (*sqliteRepo.DB).MigrateDown)
			},
		},
	)

	root.AddCommand(serve, migrate)
	return root
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	if err := ensureDir(cfg.DBPath); err != nil {
		return err
	}

	// Without a bucket the server still starts; media routes answer 502.
	var host service.MediaHost = media.Unavailable{}
	if cfg.MediaEnabled() {
		s3Host, err := media.NewS3Host(ctx, cfg.Media)
		if err != nil {
			return fmt.Errorf("creating media host: %w", err)
		}
		host = s3Host
	} else {
		logger.Warn("S3_BUCKET not set, media uploads and deletes are disabled")
	}

	srv, err := server.New(cfg, host, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

func runMigrate(v *viper.Viper, step func(*sqliteRepo.DB) error) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	if err := ensureDir(cfg.DBPath); err != nil {
		return err
	}

	db, err := sqliteRepo.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := step(db); err != nil {
		return err
	}
	logger.Info("migrations complete", slog.String("database", cfg.DBPath))
	return nil
}

// ensureDir creates the directory holding the database file.
func ensureDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}
