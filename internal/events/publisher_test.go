package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"walletwise/internal/models"
	"walletwise/internal/services"
)

// MockKafkaWriter mocks KafkaWriter.
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

var sentAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPublisher(w KafkaWriter) *ActivityPublisher {
	p := newActivityPublisher(w, "activity.events")
	p.now = func() time.Time { return sentAt }
	return p
}

func TestActivityPublisher_RecordUserActivity(t *testing.T) {
	ctx := context.Background()
	activity := services.Activity{
		Kind:          services.ActivityTransactionAdded,
		TransactionID: "tx-1",
		Type:          models.TransactionTypeExpense,
		Amount:        decimal.RequireFromString("150.25"),
		Category:      "food",
		Mood:          models.MoodHappy,
		OccurredAt:    sentAt,
	}

	t.Run("publishes_keyed_by_owner", func(t *testing.T) {
		w := new(MockKafkaWriter)
		w.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != "owner-1" {
				return false
			}
			var event ActivityEvent
			if err := json.Unmarshal(msgs[0].Value, &event); err != nil {
				return false
			}
			return event.OwnerID == "owner-1" &&
				event.EventID != "" &&
				event.SentAt.Equal(sentAt) &&
				event.Activity.TransactionID == "tx-1" &&
				event.Activity.Amount.Equal(decimal.RequireFromString("150.25")) &&
				string(msgs[0].Headers[0].Value) == "transaction_added"
		})).Return(nil).Once()

		err := newTestPublisher(w).RecordUserActivity(ctx, "owner-1", activity)
		require.NoError(t, err)
		w.AssertExpectations(t)
	})

	t.Run("returns_writer_error", func(t *testing.T) {
		w := new(MockKafkaWriter)
		writerErr := errors.New("leader not available")
		w.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerErr).Once()

		err := newTestPublisher(w).RecordUserActivity(ctx, "owner-1", activity)
		require.Error(t, err)
		assert.ErrorIs(t, err, writerErr)
		w.AssertExpectations(t)
	})
}

func TestActivityPublisher_Close(t *testing.T) {
	w := new(MockKafkaWriter)
	w.On("Close").Return(nil).Once()
	require.NoError(t, newTestPublisher(w).Close())
	w.AssertExpectations(t)

	var nilPublisher *ActivityPublisher
	assert.NoError(t, nilPublisher.Close())
}

func TestNewActivityPublisher_Validation(t *testing.T) {
	_, err := NewActivityPublisher(Config{Topic: "activity.events"})
	assert.Error(t, err)

	_, err = NewActivityPublisher(Config{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	p, err := NewActivityPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "activity.events"})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}
