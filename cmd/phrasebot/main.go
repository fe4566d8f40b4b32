package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/internal/history"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/postgres"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "phrasebot",
	Short:         "phrasebot learns phrases from chat and splices them into replies",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/development.yaml", "path to config file")
	rootCmd.AddCommand(newServeCmd(), newCompactCmd(), newBabbleCmd(), newLoadtestCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "phrasebot: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// openHistory opens the configured history backend. The returned postgres
// client is nil for the file backend; close calls release everything.
func openHistory(ctx context.Context, cfg *config.Config) (history.Store, *postgres.Client, func(), error) {
	switch cfg.History.Backend {
	case config.HistoryBackendPostgres:
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		store := history.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		slog.Info("history backend ready", "backend", "postgres", "database", cfg.Postgres.Database)
		return store, db, func() {
			store.Close()
			db.Close()
		}, nil
	default:
		store, err := history.NewFileStore(cfg.History.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("history backend ready", "backend", "file", "path", cfg.History.Path)
		return store, nil, func() { store.Close() }, nil
	}
}
