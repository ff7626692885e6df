/*
Package notify delivers ticket change events.

Kafka publishes events as JSON messages keyed by ticket id, so that all events
of one ticket land in the same partition in order. The request logger context
travels in a message header, consumers continue to log under the request ID
of the change. Log writes events to the request logger and is used when no
brokers are configured.
*/
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/ticketportal/core"
	"github.com/relabs-tech/ticketportal/core/logger"
)

// LoggerHeader is the message header which carries the serialized logger context
const LoggerHeader = "logger"

// Log is a notifier which writes events to the request logger
type Log struct{}

// Notify implements core.Notifier
func (Log) Notify(ctx context.Context, event core.Event) error {
	logger.FromContext(ctx).WithField("operation", event.Operation).
		Infof("ticket %d %sd by %s", event.Ticket.ID, event.Operation, event.Actor)
	return nil
}

// KafkaBuilder is a builder helper for the Kafka notifier
type KafkaBuilder struct {
	// Brokers is a comma separated list of broker addresses
	Brokers string
	// Topic is the topic to publish to
	Topic string
}

// Kafka is a notifier which publishes events to a Kafka topic
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka returns a Kafka notifier. The topic is created on first use if it does not exist.
func NewKafka(kb *KafkaBuilder) (*Kafka, error) {
	brokers := splitBrokers(kb.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers")
	}
	if kb.Topic == "" {
		return nil, errors.New("no kafka topic")
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  kb.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// Notify implements core.Notifier
func (k *Kafka) Notify(ctx context.Context, event core.Event) error {
	message, err := Message(ctx, event)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("cannot publish event for ticket %d: %w", event.Ticket.ID, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Message encodes an event as Kafka message
func Message(ctx context.Context, event core.Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("cannot marshal event: %w", err)
	}
	return kafka.Message{
		Key:   event.Key(),
		Value: value,
		Headers: []kafka.Header{
			{Key: LoggerHeader, Value: logger.SerializeLoggerContext(ctx)},
		},
	}, nil
}

// Decode decodes a Kafka message into an event. The returned context carries a logger
// with the request ID of the originating request.
func Decode(ctx context.Context, message kafka.Message) (context.Context, core.Event, error) {
	var loggerData []byte
	for _, header := range message.Headers {
		if header.Key == LoggerHeader {
			loggerData = header.Value
		}
	}
	ctx = logger.ContextWithLoggerFromData(ctx, loggerData)
	var event core.Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return ctx, event, fmt.Errorf("cannot unmarshal event at offset %d: %w", message.Offset, err)
	}
	return ctx, event, nil
}

// SubscriberBuilder is a builder helper for Subscribe
type SubscriberBuilder struct {
	// Brokers is a comma separated list of broker addresses
	Brokers string
	// Topic is the topic to consume
	Topic string
	// GroupID is the optional consumer group. Without group the subscriber starts at the newest message.
	GroupID string
}

// Subscribe consumes events until the context is done or handler returns an error.
// Messages which cannot be decoded are logged and skipped.
func Subscribe(ctx context.Context, sb *SubscriberBuilder, handler func(ctx context.Context, event core.Event) error) error {
	brokers := splitBrokers(sb.Brokers)
	if len(brokers) == 0 {
		return errors.New("no kafka brokers")
	}
	config := kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   sb.Topic,
		GroupID: sb.GroupID,
	}
	if sb.GroupID == "" {
		config.StartOffset = kafka.LastOffset
	}
	reader := kafka.NewReader(config)
	defer reader.Close()

	rlog := logger.FromContext(ctx)
	for {
		message, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("cannot read from topic %s: %w", sb.Topic, err)
		}
		msgCtx, event, err := Decode(context.Background(), message)
		if err != nil {
			rlog.WithError(err).Warnln("skipping message")
			continue
		}
		if err := handler(msgCtx, event); err != nil {
			return err
		}
	}
}

func splitBrokers(brokers string) []string {
	var result []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			result = append(result, broker)
		}
	}
	return result
}
