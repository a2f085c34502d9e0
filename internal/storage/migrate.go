package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"

	"goa.design/clue/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations executes every embedded migration in name order. Migrations
// are written to be idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		log.Debugf(ctx, "migration: %s", name)
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}

	return nil
}
