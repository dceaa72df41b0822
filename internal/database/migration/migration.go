package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created by the last step; its presence means the schema is complete.
const sentinelTable = "public.document_version_counters"

var steps = []migrationStep{
	{
		Name: "create_table_owners",
		SQL: `CREATE TABLE IF NOT EXISTS owners (
  id         TEXT        PRIMARY KEY,
  role       TEXT        NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
  deleted    BOOLEAN     NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id              UUID        PRIMARY KEY,
  owner_id        TEXT        NOT NULL REFERENCES owners (id),
  filename        TEXT        NOT NULL,
  filetype        TEXT        NOT NULL,
  size            BIGINT      NOT NULL CHECK (size >= 0),
  description     TEXT,
  version         INTEGER     NOT NULL CHECK (version >= 1),
  content_address TEXT        NOT NULL,
  sha256          CHAR(64)    NOT NULL,
  uploaded_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  deleted         BOOLEAN     NOT NULL DEFAULT false
);`,
	},
	{
		Name: "create_index_documents_owner_filename",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_filename ON documents (owner_id, filename);`,
	},
	{
		Name: "create_index_documents_owner_listing",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_listing ON documents (owner_id, deleted, uploaded_at DESC);`,
	},
	{
		Name: "create_index_documents_content_address",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_content_address ON documents (content_address);`,
	},
	{
		Name: "create_table_document_version_counters",
		SQL: `CREATE TABLE IF NOT EXISTS document_version_counters (
  owner_id     TEXT    NOT NULL REFERENCES owners (id),
  filename     TEXT    NOT NULL,
  last_version INTEGER NOT NULL,
  PRIMARY KEY (owner_id, filename)
);`,
	},
}

// EnsureMigrated checks for the sentinel table and runs the bootstrap steps if it is missing.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger zerolog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Msg("checking schema")

	var exists bool
	query := fmt.Sprintf("SELECT to_regclass('%s') IS NOT NULL", sentinelTable)
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().Err(err).
			Str("event", "db_migration_failed").
			Dur("duration", time.Since(start)).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Dur("duration", time.Since(start)).
			Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("event", "db_migration_start").Int("steps", len(steps)).Msg("applying schema")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().Err(err).
				Str("event", "db_migration_failed").
				Str("migration_step", step.Name).
				Dur("duration", time.Since(start)).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Debug().
			Str("event", "db_migration_step").
			Str("migration_step", step.Name).
			Dur("step_duration", time.Since(stepStart)).
			Msg("migration step applied")
	}

	log.Info().
		Str("event", "db_migration_success").
		Dur("duration", time.Since(start)).
		Msg("schema migrated")

	return nil
}
