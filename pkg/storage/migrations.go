package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					uid VARCHAR(128) PRIMARY KEY,
					email VARCHAR(255) UNIQUE NOT NULL,
					is_admin BOOLEAN NOT NULL DEFAULT FALSE,
					token_hash VARCHAR(64) UNIQUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_users_token_hash ON users(token_hash);
			`,
		},
		{
			Version:     2,
			Description: "Create ciphers table",
			SQL: `
				CREATE TABLE IF NOT EXISTS ciphers (
					id VARCHAR(128) PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					owner_uid VARCHAR(128) REFERENCES users(uid) ON DELETE SET NULL,
					share_code VARCHAR(64) UNIQUE,
					download_count BIGINT NOT NULL DEFAULT 0 CHECK (download_count >= 0),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_ciphers_download_count ON ciphers(download_count DESC);
				CREATE INDEX IF NOT EXISTS idx_ciphers_share_code ON ciphers(share_code);
			`,
		},
		{
			Version:     3,
			Description: "Create analytics_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS analytics_events (
					id BIGSERIAL PRIMARY KEY,
					event_name VARCHAR(128) NOT NULL,
					event_date DATE NOT NULL,
					params JSONB NOT NULL DEFAULT '{}',
					recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_analytics_events_name_date
					ON analytics_events(event_name, event_date);
			`,
		},
		{
			Version:     4,
			Description: "Create cipher_collaborators table",
			SQL: `
				CREATE TABLE IF NOT EXISTS cipher_collaborators (
					cipher_id VARCHAR(128) NOT NULL REFERENCES ciphers(id) ON DELETE CASCADE,
					user_uid VARCHAR(128) NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
					joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (cipher_id, user_uid)
				);
			`,
		},
		{
			Version:     5,
			Description: "Create profiles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS profiles (
					uid VARCHAR(128) PRIMARY KEY REFERENCES users(uid) ON DELETE CASCADE,
					display_name VARCHAR(255) NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     6,
			Description: "Create popularity_view table",
			SQL: `
				CREATE TABLE IF NOT EXISTS popularity_view (
					id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
					ciphers JSONB NOT NULL DEFAULT '[]',
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     7,
			Description: "Add cipher visibility and create cipher_index table",
			SQL: `
				ALTER TABLE ciphers ADD COLUMN IF NOT EXISTS is_public BOOLEAN NOT NULL DEFAULT FALSE;
				CREATE INDEX IF NOT EXISTS idx_ciphers_is_public ON ciphers(is_public) WHERE is_public;

				CREATE TABLE IF NOT EXISTS cipher_index (
					id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
					ciphers JSONB NOT NULL DEFAULT '[]',
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
	}
}

// RunMigrations applies all pending migrations in a schema_migrations ledger
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, m := range GetMigrations() {
		var exists bool
		err := db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if exists {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
