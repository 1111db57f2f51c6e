// Package migration creates the contacts schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cardapi/internal/jsonlog"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is checked to decide whether the schema exists.
const sentinelTable = "public.contacts"

var steps = []migrationStep{
	{
		Name: "create_table_contacts",
		SQL: `CREATE TABLE IF NOT EXISTS contacts (
  id           UUID        PRIMARY KEY,
  full_name    TEXT        NOT NULL CHECK (full_name <> ''),
  given_name   TEXT        NOT NULL DEFAULT '',
  family_name  TEXT        NOT NULL DEFAULT '',
  title        TEXT        NOT NULL DEFAULT '',
  phone        TEXT        NOT NULL DEFAULT '',
  email        TEXT        NOT NULL DEFAULT '',
  work_url     TEXT        NOT NULL DEFAULT '',
  profile_urls JSONB       NOT NULL DEFAULT '[]'::jsonb,
  photo_ref    TEXT        NOT NULL DEFAULT '',
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_contacts_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_contacts_created_at ON contacts (created_at DESC, id DESC);`,
	},
	{
		Name: "create_index_contacts_email",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts (lower(email));`,
	},
}

// EnsureMigrated creates the contacts schema unless the sentinel table already exists.
// All steps run in one transaction, so a failed run leaves no sentinel behind.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *jsonlog.Logger, dbHost string) error {
	start := time.Now()

	log.Log(map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists); err != nil {
		log.Log(map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Log(map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			log.Log(map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Log(map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	log.Log(map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}
