package notify

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/ticketportal/core"
	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/core/ticket"
)

func testEvent() core.Event {
	return core.Event{
		Operation: core.OperationUpdate,
		Ticket: ticket.Ticket{ID: 7, Title: "Login broken", Status: ticket.StatusInProgress,
			Category: ticket.CategoryBug, Priority: ticket.PriorityHigh, Author: "noobMaster", Agent: "agent007"},
		Actor:     "agent007",
		Timestamp: time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	ctx, _ := logger.ContextWithLogger(context.Background())
	ctx, _ = logger.ContextWithLoggerIdentity(ctx, "agent007")

	message, err := Message(ctx, testEvent())
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), message.Key)
	require.Len(t, message.Headers, 1)
	assert.Equal(t, LoggerHeader, message.Headers[0].Key)

	decodedCtx, event, err := Decode(context.Background(), message)
	require.NoError(t, err)
	assert.Equal(t, testEvent(), event)
	assert.Equal(t, logger.RequestIDFromContext(ctx), logger.RequestIDFromContext(decodedCtx))
}

func TestDecode_Invalid(t *testing.T) {
	ctx, _, err := Decode(context.Background(), kafka.Message{Value: []byte("{")})
	assert.Error(t, err)
	assert.NotEmpty(t, logger.RequestIDFromContext(ctx), "a fresh logger without header")
}

func TestNewKafka_Config(t *testing.T) {
	_, err := NewKafka(&KafkaBuilder{Brokers: " , ", Topic: "tickets"})
	assert.Error(t, err)
	_, err = NewKafka(&KafkaBuilder{Brokers: "localhost:9092"})
	assert.Error(t, err)

	k, err := NewKafka(&KafkaBuilder{Brokers: "localhost:9092, localhost:9093", Topic: "tickets"})
	require.NoError(t, err)
	assert.Equal(t, "tickets", k.writer.Topic)
	assert.Equal(t, "localhost:9092,localhost:9093", k.writer.Addr.String())
	assert.NoError(t, k.Close())
}

func TestLog_Notify(t *testing.T) {
	var notifier core.Notifier = Log{}
	assert.NoError(t, notifier.Notify(context.Background(), testEvent()))
}
