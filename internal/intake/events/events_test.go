package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/internal/intake/followup"
	"github.com/cvintake/cvintake-backend/pkg/logger"
	"github.com/cvintake/cvintake-backend/pkg/messaging"
	"github.com/cvintake/cvintake-backend/pkg/testutil"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSubmission() *domain.Submission {
	return &domain.Submission{
		ID:             "sub-1",
		ApplicantName:  "Jane Doe",
		ApplicantEmail: "jane@example.com",
		Filename:       "cv.pdf",
		Format:         domain.FormatPDF,
		SizeBytes:      1234,
		Status:         domain.StatusPartial,
		PublicURL:      "https://cvs.s3.amazonaws.com/sub-1/cv.pdf",
		Warnings:       pq.StringArray{"sheet_failed"},
	}
}

func TestIntakeEventPublisher(t *testing.T) {
	pub := testutil.NewMockPublisher()
	p := NewIntakeEventPublisherWith(pub, logger.Nop())
	ctx := context.Background()

	p.PublishSubmissionReceived(ctx, sampleSubmission())
	require.NoError(t, p.PublishSubmissionProcessed(ctx, sampleSubmission()))

	received, ok := pub.Find(messaging.EventSubmissionReceived)
	require.True(t, ok)
	assert.Equal(t, messaging.SubmissionReceivedEvent{
		SubmissionID: "sub-1", Email: "jane@example.com", Filename: "cv.pdf", Format: "pdf", SizeBytes: 1234,
	}, received.Payload)

	processed, ok := pub.Find(messaging.EventSubmissionProcessed)
	require.True(t, ok)
	data := processed.Payload.(messaging.SubmissionProcessedEvent)
	assert.Equal(t, "jane@example.com", data.Email)
	assert.Equal(t, "partial", data.Status)
	assert.Equal(t, []string{"sheet_failed"}, data.Warnings)
}

func TestIntakeEventPublisher_Failure(t *testing.T) {
	pub := testutil.NewMockPublisher()
	pub.Err = errors.New("channel closed")
	p := NewIntakeEventPublisherWith(pub, logger.Nop())

	assert.NotPanics(t, func() { p.PublishSubmissionReceived(context.Background(), sampleSubmission()) })
	assert.ErrorContains(t, p.PublishSubmissionProcessed(context.Background(), sampleSubmission()), "channel closed")
}

type fakeScheduler struct {
	email, submissionID string
	err                 error
}

func (f *fakeScheduler) Schedule(ctx context.Context, email, submissionID string) (time.Time, error) {
	f.email, f.submissionID = email, submissionID
	return time.Now().Add(time.Hour), f.err
}

func processedEvent(t *testing.T, email string) *messaging.Event {
	t.Helper()
	ev, err := messaging.NewEvent(messaging.EventSubmissionProcessed, ServiceName, "corr-1",
		messaging.SubmissionProcessedEvent{SubmissionID: "sub-1", Email: email, Status: "completed"})
	require.NoError(t, err)
	return ev
}

func TestFollowUpHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("schedules for the applicant", func(t *testing.T) {
		s := &fakeScheduler{}
		h := NewFollowUpHandler(s, logger.Nop())

		require.NoError(t, h.HandleSubmissionProcessed(ctx, processedEvent(t, "jane@example.com")))
		assert.Equal(t, "jane@example.com", s.email)
		assert.Equal(t, "sub-1", s.submissionID)
	})

	t.Run("duplicates and blank emails are acknowledged", func(t *testing.T) {
		for _, err := range []error{followup.ErrAlreadyScheduled, followup.ErrNoEmail} {
			h := NewFollowUpHandler(&fakeScheduler{err: err}, logger.Nop())
			assert.NoError(t, h.HandleSubmissionProcessed(ctx, processedEvent(t, "jane@example.com")))
		}
	})

	t.Run("storage errors are retried", func(t *testing.T) {
		h := NewFollowUpHandler(&fakeScheduler{err: errors.New("db down")}, logger.Nop())
		assert.ErrorContains(t, h.HandleSubmissionProcessed(ctx, processedEvent(t, "jane@example.com")), "db down")
	})

	t.Run("malformed payload", func(t *testing.T) {
		h := NewFollowUpHandler(&fakeScheduler{}, logger.Nop())
		ev := &messaging.Event{Type: messaging.EventSubmissionProcessed, Data: []byte(`"nope"`)}
		assert.Error(t, h.HandleSubmissionProcessed(ctx, ev))
	})
}
