package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"proposals/api/internal/config"
	"proposals/api/internal/logging"
	"proposals/api/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runtime is the configuration and logger shared by every subcommand.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:           "proposals-api",
		Short:         "Proposal generation, editing and budget reconciliation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newServeCmd(rt),
		newMigrateCmd(rt),
		newReconcileCmd(rt),
		newGenerateCmd(rt),
		newPlanCmd(rt),
		newReindexCmd(rt),
	)
	return root
}

func (rt *runtime) migrations() fs.FS {
	if dir := strings.TrimSpace(rt.cfg.MigrationsDir); dir != "" {
		return os.DirFS(dir)
	}
	return store.Migrations()
}

// openDatabase connects to Postgres and brings the schema up to date.
func (rt *runtime) openDatabase(ctx context.Context) (*sql.DB, error) {
	if strings.TrimSpace(rt.cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := store.Open(ctx, rt.cfg.DatabaseURL, store.PoolOptions{MaxOpenConns: rt.cfg.DBMaxConns})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	applied, err := store.ApplyMigrations(ctx, db, rt.migrations())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	if len(applied) > 0 {
		rt.logger.Info("migrations applied", zap.Strings("versions", applied))
	}
	return db, nil
}
