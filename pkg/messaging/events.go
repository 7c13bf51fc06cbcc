package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventSubmissionReceived  = "intake.submission.received"
	EventSubmissionProcessed = "intake.submission.processed"
	EventFollowUpSent        = "intake.followup.sent"
)

// ExchangeIntakeEvents is the topic exchange all intake events go through
const ExchangeIntakeEvents = "intake.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// SubmissionReceivedEvent is published once an upload is accepted and stored
type SubmissionReceivedEvent struct {
	SubmissionID string `json:"submission_id"`
	Email        string `json:"email"`
	Filename     string `json:"filename"`
	Format       string `json:"format"`
	SizeBytes    int64  `json:"size_bytes"`
}

// SubmissionProcessedEvent is published after extraction and forwarding.
// Email is the applicant address the follow-up goes to.
type SubmissionProcessedEvent struct {
	SubmissionID string   `json:"submission_id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Status       string   `json:"status"`
	PublicURL    string   `json:"public_url,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// FollowUpSentEvent is published when the review email has gone out
type FollowUpSentEvent struct {
	FollowUpID string    `json:"follow_up_id"`
	Email      string    `json:"email"`
	SentAt     time.Time `json:"sent_at"`
}
