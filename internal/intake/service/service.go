// Package service runs a CV submission through conversion, storage,
// extraction and the downstream integrations.
package service

import (
	"context"
	"path"
	"time"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/internal/intake/extractor"
	"github.com/cvintake/cvintake-backend/internal/intake/objectstore"
	"github.com/cvintake/cvintake-backend/internal/intake/processor"
	"github.com/cvintake/cvintake-backend/internal/intake/sheets"
	"github.com/cvintake/cvintake-backend/internal/intake/webhook"
	"github.com/cvintake/cvintake-backend/pkg/errors"
	"github.com/cvintake/cvintake-backend/pkg/logger"
)

// SubmissionStore persists submissions
type SubmissionStore interface {
	Create(ctx context.Context, s *domain.Submission) error
	GetByID(ctx context.Context, id string) (*domain.Submission, error)
	UpdateOutcome(ctx context.Context, s *domain.Submission) error
}

// Converter turns an uploaded document into plain text
type Converter interface {
	Convert(ctx context.Context, data []byte, format domain.Format) (string, error)
}

// EventPublisher announces submission lifecycle events
type EventPublisher interface {
	PublishSubmissionReceived(ctx context.Context, s *domain.Submission)
	PublishSubmissionProcessed(ctx context.Context, s *domain.Submission) error
}

// Deps are the service collaborators. Storage, Sheet and Webhook may be nil,
// in which case that step is skipped.
type Deps struct {
	Submissions SubmissionStore
	Converter   Converter
	Extractor   *extractor.Extractor
	Storage     objectstore.Store
	Sheet       sheets.Appender
	Webhook     webhook.Sender
	Events      EventPublisher
}

// SubmitRequest is one applicant form submission
type SubmitRequest struct {
	Name     string
	Email    string
	Phone    string
	Filename string
	Data     []byte
}

// Service orchestrates CV intake: validate → persist → convert → store → extract → forward
type Service struct {
	deps          Deps
	webhookStatus string
	log           *logger.Logger
	now           func() time.Time
}

// NewService creates the intake service. webhookStatus is sent as metadata.status.
func NewService(deps Deps, webhookStatus string, log *logger.Logger) *Service {
	if deps.Extractor == nil {
		deps.Extractor = extractor.New()
	}
	return &Service{
		deps:          deps,
		webhookStatus: webhookStatus,
		log:           log.WithComponent("intake"),
		now:           time.Now,
	}
}

// Submit processes one CV. Only an unusable upload or a failure to record the
// submission is an error; failed integrations become warnings on a partial
// submission.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.Submission, error) {
	format, err := checkUpload(req)
	if err != nil {
		return nil, err
	}
	filename := boundFilename(req.Filename)

	sub := &domain.Submission{
		ApplicantName:  req.Name,
		ApplicantEmail: req.Email,
		ApplicantPhone: req.Phone,
		Filename:       filename,
		Format:         format,
		SizeBytes:      int64(len(req.Data)),
		Status:         domain.StatusReceived,
	}
	if err := s.deps.Submissions.Create(ctx, sub); err != nil {
		return nil, err
	}

	log := s.log.WithSubmissionID(sub.ID)
	log.Info().Str("format", string(format)).Int64("size_bytes", sub.SizeBytes).Msg("submission received")
	s.deps.Events.PublishSubmissionReceived(ctx, sub)

	text, err := s.deps.Converter.Convert(ctx, req.Data, format)
	if err != nil {
		log.Warn().Err(err).Msg("cv could not be converted to text")
		msg := err.Error()
		sub.Status = domain.StatusFailed
		sub.Error = &msg
		if updErr := s.deps.Submissions.UpdateOutcome(ctx, sub); updErr != nil {
			log.Error().Err(updErr).Msg("failed to record failed submission")
		}
		return nil, errors.Unprocessable("errors.unreadable").WithCause(err)
	}

	if s.deps.Storage != nil {
		key := objectstore.ObjectKey(sub.ID, filename)
		url, err := s.deps.Storage.Upload(ctx, key, req.Data, format.ContentType())
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("cv upload failed")
			sub.AddWarning(domain.WarningStorageFailed)
		} else {
			sub.PublicURL = url
		}
	}

	cv := s.deps.Extractor.Extract(text).CVData(sub.PublicURL)
	sub.CVData = &cv

	if s.deps.Sheet != nil {
		if err := s.deps.Sheet.AppendRow(ctx, domain.NewSheetRow(cv)); err != nil {
			log.Error().Err(err).Msg("sheet append failed")
			sub.AddWarning(domain.WarningSheetFailed)
		}
	}

	if s.deps.Webhook != nil {
		payload := webhook.NewPayload(cv, req.Name, req.Email, s.webhookStatus, s.now())
		if err := s.deps.Webhook.Send(ctx, payload); err != nil {
			log.Error().Err(err).Msg("webhook delivery failed")
			sub.AddWarning(domain.WarningWebhookFailed)
		}
	}

	sub.Settle()
	if err := s.deps.Events.PublishSubmissionProcessed(ctx, sub); err != nil {
		sub.AddWarning(domain.WarningFollowUpFailed)
		sub.Settle()
	}

	if err := s.deps.Submissions.UpdateOutcome(ctx, sub); err != nil {
		// the applicant-facing work is done; only the ledger is stale
		log.Error().Err(err).Msg("failed to record submission outcome")
	}

	log.Info().
		Str("status", string(sub.Status)).
		Strs("warnings", sub.Warnings).
		Int("education", len(cv.Education)).
		Int("qualifications", len(cv.Qualifications)).
		Int("projects", len(cv.Projects)).
		Msg("submission processed")

	return sub, nil
}

// Get returns a stored submission
func (s *Service) Get(ctx context.Context, id string) (*domain.Submission, error) {
	return s.deps.Submissions.GetByID(ctx, id)
}

// maxFilenameLength matches the submissions.filename column
const maxFilenameLength = 255

// boundFilename shortens name to maxFilenameLength runes, cutting the stem
// and keeping the extension.
func boundFilename(name string) string {
	runes := []rune(name)
	if len(runes) <= maxFilenameLength {
		return name
	}
	ext := []rune(path.Ext(name))
	if len(ext) > 16 {
		ext = nil
	}
	stem := runes[:maxFilenameLength-len(ext)]
	return string(stem) + string(ext)
}

func checkUpload(req SubmitRequest) (domain.Format, error) {
	if req.Filename == "" || len(req.Data) == 0 {
		return "", errors.BadRequestKey("errors.no_file")
	}

	format, ok := domain.FormatFromFilename(req.Filename)
	if !ok {
		return "", errors.UnsupportedMediaType()
	}

	if detected, ok := processor.DetectFormat(req.Data); !ok || detected != format {
		return "", errors.Unprocessable("errors.content_mismatch")
	}
	return format, nil
}
