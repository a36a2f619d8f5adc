package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/collabtext/core/internal/config"
	"github.com/collabtext/core/pkg/logger"
	"github.com/collabtext/core/pkg/store"
)

// migrateCmd applies pending store migrations and exits. Grounded on
// zfogg-sidechain's cmd/migrate/main.go (godotenv.Load, a single "up"
// path run against the configured database, then exit) — here there is
// no separate migration runner because pkg/store's constructors already
// apply every embedded migration on open, so "migrate" just opens and
// closes the configured store.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var st store.Store
		switch {
		case cfg.PostgresDSN != "":
			logger.Info("applying migrations to postgres")
			st, err = store.NewPostgresStore(cfg.PostgresDSN)
		case cfg.SQLitePath != "":
			logger.Info("applying migrations to sqlite (%s)", cfg.SQLitePath)
			st, err = store.NewSQLiteStore(cfg.SQLitePath)
		default:
			return fmt.Errorf("migrate: no POSTGRES_DSN or SQLITE_URI configured")
		}
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		fmt.Println("migrations applied")
		return st.Close()
	},
}
