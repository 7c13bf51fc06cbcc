package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cvintake/cvintake-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventBody(t *testing.T, eventType string, data interface{}) []byte {
	t.Helper()
	event, err := NewEvent(eventType, "test", "corr-1", data)
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestConsumer_Dispatch(t *testing.T) {
	c := newConsumer(nil, "q", logger.Nop())

	var got SubmissionProcessedEvent
	var gotCorrelation string
	c.RegisterHandler(EventSubmissionProcessed, func(ctx context.Context, e *Event) error {
		gotCorrelation = CorrelationID(ctx)
		return e.UnmarshalData(&got)
	})
	c.RegisterHandler(EventFollowUpSent, func(ctx context.Context, e *Event) error {
		return fmt.Errorf("mailer down")
	})

	body := eventBody(t, EventSubmissionProcessed, SubmissionProcessedEvent{SubmissionID: "s1", Email: "a@b.co"})

	assert.Equal(t, outcomeAck, c.dispatch(context.Background(), body, 0))
	assert.Equal(t, "a@b.co", got.Email)
	assert.Equal(t, "corr-1", gotCorrelation)

	t.Run("unknown type is acked", func(t *testing.T) {
		body := eventBody(t, EventSubmissionReceived, SubmissionReceivedEvent{})
		assert.Equal(t, outcomeAck, c.dispatch(context.Background(), body, 0))
	})

	t.Run("malformed body is dead-lettered", func(t *testing.T) {
		assert.Equal(t, outcomeDeadLetter, c.dispatch(context.Background(), []byte("{"), 0))
	})

	t.Run("handler error requeues until max deliveries", func(t *testing.T) {
		body := eventBody(t, EventFollowUpSent, FollowUpSentEvent{})
		assert.Equal(t, outcomeRequeue, c.dispatch(context.Background(), body, MaxDeliveries-1))
		assert.Equal(t, outcomeDeadLetter, c.dispatch(context.Background(), body, MaxDeliveries))
	})
}

func TestAttempts(t *testing.T) {
	assert.Equal(t, 0, attempts(amqp.Delivery{}))
	assert.Equal(t, MaxDeliveries, attempts(amqp.Delivery{Redelivered: true}))
}

func TestDeathCount(t *testing.T) {
	assert.Equal(t, 0, deathCount(nil))
	assert.Equal(t, 3, deathCount(amqp.Table{
		"x-death": []interface{}{
			amqp.Table{"count": int64(2), "queue": "q"},
			amqp.Table{"count": int64(1), "queue": "dlq.q"},
		},
	}))
}
