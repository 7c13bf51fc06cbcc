package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cvintake/cvintake-backend/internal/intake/followup"
	"github.com/cvintake/cvintake-backend/pkg/logger"
	"github.com/cvintake/cvintake-backend/pkg/messaging"
)

// FollowUpQueue receives processed-submission events for follow-up scheduling
const FollowUpQueue = ServiceName + ".followups"

// Scheduler registers a follow-up for an applicant
type Scheduler interface {
	Schedule(ctx context.Context, email, submissionID string) (time.Time, error)
}

// FollowUpHandler turns processed submissions into scheduled follow-ups (testable without RabbitMQ)
type FollowUpHandler struct {
	scheduler Scheduler
	logger    *logger.Logger
}

// NewFollowUpHandler creates a new handler
func NewFollowUpHandler(scheduler Scheduler, log *logger.Logger) *FollowUpHandler {
	return &FollowUpHandler{scheduler: scheduler, logger: log}
}

// HandleSubmissionProcessed schedules the follow-up for the event's applicant.
// Duplicates and events without an address are acknowledged; other errors
// are returned so the delivery is retried.
func (h *FollowUpHandler) HandleSubmissionProcessed(ctx context.Context, event *messaging.Event) error {
	var data messaging.SubmissionProcessedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("failed to unmarshal submission processed event: %w", err)
	}

	log := h.logger.WithSubmissionID(data.SubmissionID).WithCorrelationID(messaging.CorrelationID(ctx))

	due, err := h.scheduler.Schedule(ctx, data.Email, data.SubmissionID)
	switch {
	case errors.Is(err, followup.ErrAlreadyScheduled):
		log.Info().Str("email", data.Email).Msg("follow-up already scheduled for applicant")
		return nil
	case errors.Is(err, followup.ErrNoEmail):
		log.Warn().Msg("submission processed without applicant email")
		return nil
	case err != nil:
		return err
	}

	log.Debug().Time("due_at", due).Msg("follow-up scheduled from event")
	return nil
}

// FollowUpConsumer consumes processed-submission events
type FollowUpConsumer struct {
	consumer *messaging.Consumer
	handler  *FollowUpHandler
}

// NewFollowUpConsumer declares the follow-up queue and binds it to the intake exchange
func NewFollowUpConsumer(rmq *messaging.RabbitMQ, scheduler Scheduler, log *logger.Logger) (*FollowUpConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, FollowUpQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeIntakeEvents, messaging.EventSubmissionProcessed); err != nil {
		return nil, err
	}

	handler := NewFollowUpHandler(scheduler, log)
	consumer.RegisterHandler(messaging.EventSubmissionProcessed, handler.HandleSubmissionProcessed)

	return &FollowUpConsumer{consumer: consumer, handler: handler}, nil
}

// Start starts consuming messages
func (c *FollowUpConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}
