package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/pkg/database"
	apperrors "github.com/cvintake/cvintake-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SubmissionRepository handles submission persistence
type SubmissionRepository struct {
	db *database.DB
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *database.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// submissionRow adds the JSONB column that domain.Submission keeps decoded
type submissionRow struct {
	domain.Submission
	Extracted []byte `db:"extracted"`
}

// Create inserts a new submission, assigning an ID when it has none
func (r *SubmissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Warnings == nil {
		s.Warnings = pq.StringArray{}
	}

	query := `
		INSERT INTO submissions (id, applicant_name, applicant_email, applicant_phone,
		                         filename, format, size_bytes, status, public_url, warnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.ID,
		s.ApplicantName,
		s.ApplicantEmail,
		s.ApplicantPhone,
		s.Filename,
		s.Format,
		s.SizeBytes,
		s.Status,
		s.PublicURL,
		s.Warnings,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// GetByID returns a submission with its extracted CV data, or a not-found error
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("submission")
	}

	query := `
		SELECT id, applicant_name, applicant_email, applicant_phone, filename, format,
		       size_bytes, status, public_url, warnings, error, extracted, created_at, updated_at
		FROM submissions
		WHERE id = $1
	`

	var row submissionRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("submission")
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	s := row.Submission
	if len(row.Extracted) > 0 {
		var cv domain.CVData
		if err := json.Unmarshal(row.Extracted, &cv); err != nil {
			return nil, fmt.Errorf("failed to decode extracted data: %w", err)
		}
		s.CVData = &cv
	}
	return &s, nil
}

// UpdateOutcome stores the processing result: status, public link, warnings,
// error message and extracted CV data
func (r *SubmissionRepository) UpdateOutcome(ctx context.Context, s *domain.Submission) error {
	var extracted []byte
	if s.CVData != nil {
		var err error
		if extracted, err = json.Marshal(s.CVData); err != nil {
			return fmt.Errorf("failed to encode extracted data: %w", err)
		}
	}

	warnings := s.Warnings
	if warnings == nil {
		warnings = pq.StringArray{}
	}

	query := `
		UPDATE submissions
		SET status = $2, public_url = $3, warnings = $4, error = $5, extracted = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.ID,
		s.Status,
		s.PublicURL,
		warnings,
		s.Error,
		extracted,
	).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("submission")
		}
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return nil
}
