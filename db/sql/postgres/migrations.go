package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates every table the stores use. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                  UUID PRIMARY KEY,
		email               TEXT NOT NULL UNIQUE,
		verified            BOOLEAN NOT NULL DEFAULT TRUE,
		plan                TEXT NOT NULL DEFAULT 'free',
		credits             INTEGER NOT NULL DEFAULT 1,
		subscription_id     TEXT NOT NULL DEFAULT '',
		subscription_status TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		email       TEXT NOT NULL DEFAULT '',
		service     TEXT NOT NULL DEFAULT '',
		budget      TEXT NOT NULL DEFAULT '',
		message     TEXT NOT NULL DEFAULT '',
		type        TEXT NOT NULL DEFAULT 'contact',
		fingerprint TEXT NOT NULL DEFAULT '',
		details     JSONB,
		location    JSONB,
		status      TEXT NOT NULL DEFAULT 'new',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS leads_fingerprint_idx ON leads (type, fingerprint, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS leads_created_idx ON leads (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS resumes (
		id            UUID PRIMARY KEY,
		user_id       UUID REFERENCES users (id) ON DELETE SET NULL,
		original_name TEXT NOT NULL,
		mime_type     TEXT NOT NULL DEFAULT '',
		size          BIGINT NOT NULL DEFAULT 0,
		parsed_text   TEXT NOT NULL DEFAULT '',
		analysis      JSONB,
		analysis_type TEXT NOT NULL DEFAULT 'text',
		metadata      JSONB,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS resumes_user_idx ON resumes (user_id, created_at DESC)`,
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	return ApplyMigrations(ctx, db, Schema...)
}

// ApplyMigrations executes the provided SQL statements in order within the given context.
func ApplyMigrations(ctx context.Context, db *sql.DB, statements ...string) error {
	if db == nil {
		return fmt.Errorf("postgres: db is nil")
	}
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}
