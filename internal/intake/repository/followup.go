package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/pkg/database"
	apperrors "github.com/cvintake/cvintake-backend/pkg/errors"
	"github.com/google/uuid"
)

// FollowUpRepository handles follow-up persistence
type FollowUpRepository struct {
	db *database.DB
}

// NewFollowUpRepository creates a new follow-up repository
func NewFollowUpRepository(db *database.DB) *FollowUpRepository {
	return &FollowUpRepository{db: db}
}

// Create inserts a follow-up unless one already exists for the email.
// created is false when the email already had a follow-up.
func (r *FollowUpRepository) Create(ctx context.Context, f *domain.FollowUp) (created bool, err error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}

	query := `
		INSERT INTO follow_ups (id, submission_id, email, due_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING created_at
	`

	err = r.db.QueryRowxContext(ctx, query, f.ID, f.SubmissionID, f.Email, f.DueAt).Scan(&f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create follow-up: %w", err)
	}
	return true, nil
}

// ListDue returns unsent follow-ups due at or before now that have been
// attempted fewer than maxAttempts times, oldest first
func (r *FollowUpRepository) ListDue(ctx context.Context, now time.Time, limit, maxAttempts int) ([]*domain.FollowUp, error) {
	query := `
		SELECT id, submission_id, email, due_at, sent_at, attempts, last_error, created_at
		FROM follow_ups
		WHERE sent_at IS NULL AND due_at <= $1 AND attempts < $2
		ORDER BY due_at
		LIMIT $3
	`

	var due []*domain.FollowUp
	if err := r.db.SelectContext(ctx, &due, query, now, maxAttempts, limit); err != nil {
		return nil, fmt.Errorf("failed to list due follow-ups: %w", err)
	}
	return due, nil
}

// MarkSent records the delivery time
func (r *FollowUpRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	query := `UPDATE follow_ups SET sent_at = $2, attempts = attempts + 1, last_error = NULL WHERE id = $1`
	return r.exec(ctx, query, id, sentAt)
}

// MarkFailed counts a failed attempt and keeps its error
func (r *FollowUpRepository) MarkFailed(ctx context.Context, id string, cause string) error {
	query := `UPDATE follow_ups SET attempts = attempts + 1, last_error = $2 WHERE id = $1`
	return r.exec(ctx, query, id, cause)
}

func (r *FollowUpRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update follow-up: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("follow_up")
	}
	return nil
}
