package store

import (
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/collabtext/core/pkg/logger"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// applyMigrations runs every pending migration under dir (in
// alphabetical order), tracking progress in a schema_migrations table.
// Lifted from the teacher's pkg/database/migrations.go, generalized to
// run against either the Postgres or SQLite embedded migration set.
// insertPlaceholders is "$1,$2,$3" for Postgres or "?,?,?" for SQLite.
func applyMigrations(db *sql.DB, migrations embed.FS, dir string, insertPlaceholders string) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			filename   TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	_ = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)

	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	applied := 0
	for i, entry := range entries {
		version := i + 1
		if version <= currentVersion {
			continue
		}

		filename := entry.Name()
		logger.Info("applying migration %d: %s", version, filename)

		content, err := migrations.ReadFile(path.Join(dir, filename))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("migration %s: %w", filename, err)
		}

		query := fmt.Sprintf("INSERT INTO schema_migrations (version, filename, applied_at) VALUES (%s)", insertPlaceholders)
		if _, err := db.Exec(query, version, filename, time.Now().Unix()); err != nil {
			return fmt.Errorf("record migration %s: %w", filename, err)
		}

		applied++
	}

	if applied > 0 {
		logger.Info("applied %d migration(s)", applied)
	} else {
		logger.Debug("schema is up to date (version %d)", currentVersion)
	}

	return nil
}
