// Package followup sends each applicant a single "CV under review" email at a
// fixed hour on the day after submission.
package followup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/pkg/config"
	"github.com/cvintake/cvintake-backend/pkg/logger"
	"github.com/cvintake/cvintake-backend/pkg/messaging"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyScheduled is returned when the email already has a follow-up
	ErrAlreadyScheduled = errors.New("follow-up already scheduled")
	// ErrNoEmail is returned for a blank recipient
	ErrNoEmail = errors.New("follow-up email address is empty")
)

// guardGrace keeps the guard key alive past the due time so late retries stay suppressed
const guardGrace = 24 * time.Hour

// NextSendTime returns hour:00 UTC on the day after now
func NextSendTime(now time.Time, hour int) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// Store persists follow-ups
type Store interface {
	Create(ctx context.Context, f *domain.FollowUp) (bool, error)
	ListDue(ctx context.Context, now time.Time, limit, maxAttempts int) ([]*domain.FollowUp, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, cause string) error
}

// Mailer delivers the follow-up email
type Mailer interface {
	Send(ctx context.Context, to string) error
}

// Publisher publishes domain events
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// Scheduler registers follow-ups and delivers them when due
type Scheduler struct {
	store     Store
	guard     Guard
	mailer    Mailer
	publisher Publisher
	cfg       config.FollowUpConfig
	logger    *logger.Logger
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. A nil guard falls back to the store's
// one-row-per-email constraint alone.
func NewScheduler(store Store, guard Guard, mailer Mailer, publisher Publisher, cfg config.FollowUpConfig, log *logger.Logger) *Scheduler {
	if guard == nil {
		guard = NopGuard{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Scheduler{
		store:     store,
		guard:     guard,
		mailer:    mailer,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithComponent("followup"),
		now:       time.Now,
	}
}

// Schedule registers the follow-up for email and returns when it will be sent.
// Each address gets at most one follow-up; repeats return ErrAlreadyScheduled.
func (s *Scheduler) Schedule(ctx context.Context, email, submissionID string) (time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return time.Time{}, ErrNoEmail
	}

	now := s.now()
	due := NextSendTime(now, s.cfg.SendHourUTC)

	acquired, err := s.guard.Acquire(ctx, email, due.Sub(now)+guardGrace)
	if err != nil {
		// the unique email index still prevents duplicates
		s.logger.Warn().Err(err).Str("email", email).Msg("follow-up guard unavailable")
		acquired = true
	}
	if !acquired {
		return time.Time{}, ErrAlreadyScheduled
	}

	f := &domain.FollowUp{Email: email, DueAt: due}
	if submissionID != "" {
		f.SubmissionID = &submissionID
	}

	created, err := s.store.Create(ctx, f)
	if err != nil {
		if relErr := s.guard.Release(ctx, email); relErr != nil {
			s.logger.Warn().Err(relErr).Str("email", email).Msg("failed to release follow-up guard")
		}
		return time.Time{}, fmt.Errorf("failed to store follow-up: %w", err)
	}
	if !created {
		return time.Time{}, ErrAlreadyScheduled
	}

	s.logger.Info().
		Str("follow_up_id", f.ID).
		Str("email", email).
		Time("due_at", due).
		Msg("follow-up scheduled")

	return due, nil
}

// Start polls for due follow-ups in a background goroutine until Stop or ctx is done
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info().Dur("interval", s.cfg.PollInterval).Msg("follow-up scheduler started")

		s.runCycle(ctx)

		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("follow-up scheduler stopped")
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()
}

// Stop stops the polling goroutine and waits for the current cycle to finish
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// runCycle sends every follow-up that is due and returns how many went out
func (s *Scheduler) runCycle(ctx context.Context) int {
	due, err := s.store.ListDue(ctx, s.now().UTC(), s.cfg.BatchSize, s.cfg.MaxAttempts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load due follow-ups")
		return 0
	}

	sent := 0
	for _, f := range due {
		if ctx.Err() != nil {
			break
		}
		if s.deliver(ctx, f) {
			sent++
		}
	}

	if len(due) > 0 {
		s.logger.Info().Int("due", len(due)).Int("sent", sent).Msg("follow-up cycle completed")
	}
	return sent
}

func (s *Scheduler) deliver(ctx context.Context, f *domain.FollowUp) bool {
	log := s.logger.With().Str("follow_up_id", f.ID).Str("email", f.Email).Logger()

	if err := s.mailer.Send(ctx, f.Email); err != nil {
		attempt := f.Attempts + 1
		level := zerolog.WarnLevel
		if attempt >= s.cfg.MaxAttempts {
			level = zerolog.ErrorLevel
		}
		log.WithLevel(level).Err(err).Int("attempt", attempt).Int("max_attempts", s.cfg.MaxAttempts).Msg("follow-up email failed")

		if markErr := s.store.MarkFailed(ctx, f.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Msg("failed to record follow-up failure")
		}
		return false
	}

	sentAt := s.now().UTC()
	if err := s.store.MarkSent(ctx, f.ID, sentAt); err != nil {
		// the email is out; a resend on the next cycle is the lesser evil
		log.Error().Err(err).Msg("failed to mark follow-up sent")
	}

	if err := s.publisher.Publish(ctx, messaging.EventFollowUpSent, messaging.FollowUpSentEvent{
		FollowUpID: f.ID,
		Email:      f.Email,
		SentAt:     sentAt,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to publish follow-up sent event")
	}

	log.Info().Msg("follow-up email sent")
	return true
}
