// Package repository persists submissions and follow-ups in PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"github.com/cvintake/cvintake-backend/pkg/database"
	"github.com/jmoiron/sqlx"
)

const schema = `
	CREATE TABLE IF NOT EXISTS submissions (
		id UUID PRIMARY KEY,
		applicant_name VARCHAR(255) NOT NULL,
		applicant_email VARCHAR(255) NOT NULL,
		applicant_phone VARCHAR(50) NOT NULL DEFAULT '',
		filename VARCHAR(255) NOT NULL,
		format VARCHAR(10) NOT NULL CONSTRAINT submissions_format_check CHECK (format IN ('pdf', 'docx')),
		size_bytes BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL CONSTRAINT submissions_status_check
			CHECK (status IN ('received', 'completed', 'partial', 'failed')),
		public_url TEXT NOT NULL DEFAULT '',
		warnings TEXT[] NOT NULL DEFAULT '{}',
		error TEXT,
		extracted JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_applicant_email ON submissions(applicant_email);
	CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at DESC);

	CREATE TABLE IF NOT EXISTS follow_ups (
		id UUID PRIMARY KEY,
		submission_id UUID REFERENCES submissions(id) ON DELETE SET NULL,
		email VARCHAR(255) NOT NULL,
		due_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ,
		attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_follow_ups_email ON follow_ups(email);
	CREATE INDEX IF NOT EXISTS idx_follow_ups_due ON follow_ups(due_at) WHERE sent_at IS NULL;
`

// Migrate creates the intake tables and indexes if they do not exist
func Migrate(ctx context.Context, db *database.DB) error {
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to migrate intake schema: %w", err)
		}
		return nil
	})
}
