// Package events publishes intake events and schedules follow-ups from them.
package events

import (
	"context"
	"fmt"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/pkg/logger"
	"github.com/cvintake/cvintake-backend/pkg/messaging"
)

// ServiceName is the event source and queue prefix
const ServiceName = "intake-service"

// Publisher publishes a typed payload under an event type
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// IntakeEventPublisher publishes submission lifecycle events
type IntakeEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewIntakeEventPublisherWith wraps an existing publisher
func NewIntakeEventPublisherWith(publisher Publisher, log *logger.Logger) *IntakeEventPublisher {
	return &IntakeEventPublisher{publisher: publisher, logger: log}
}

// PublishSubmissionReceived announces an accepted upload. Failures are only logged.
func (p *IntakeEventPublisher) PublishSubmissionReceived(ctx context.Context, s *domain.Submission) {
	data := messaging.SubmissionReceivedEvent{
		SubmissionID: s.ID,
		Email:        s.ApplicantEmail,
		Filename:     s.Filename,
		Format:       string(s.Format),
		SizeBytes:    s.SizeBytes,
	}

	if err := p.publisher.Publish(ctx, messaging.EventSubmissionReceived, data); err != nil {
		p.logger.Error().Err(err).Str("submission_id", s.ID).Msg("failed to publish submission received event")
	}
}

// PublishSubmissionProcessed announces a processed CV. The follow-up email
// hangs off this event, so the error is returned as well as logged.
func (p *IntakeEventPublisher) PublishSubmissionProcessed(ctx context.Context, s *domain.Submission) error {
	data := messaging.SubmissionProcessedEvent{
		SubmissionID: s.ID,
		Email:        s.ApplicantEmail,
		Name:         s.ApplicantName,
		Status:       string(s.Status),
		PublicURL:    s.PublicURL,
		Warnings:     s.Warnings,
	}

	if err := p.publisher.Publish(ctx, messaging.EventSubmissionProcessed, data); err != nil {
		p.logger.Error().Err(err).Str("submission_id", s.ID).Msg("failed to publish submission processed event")
		return fmt.Errorf("publish submission processed: %w", err)
	}
	return nil
}
