package publish

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"matching-core/internal/logging"
	"matching-core/internal/matching"
	"matching-core/internal/persistence"
)

// Kafka message headers
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

var _ Publisher = (*KafkaPublisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per event, keyed by book id so that a
// book's events stay ordered within a partition
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to topic
func NewKafkaPublisher(brokers []string, topic string, batchTimeout time.Duration, logger *zap.Logger) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: batchTimeout,
	}, logger)
}

func newKafkaPublisher(writer messageWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logging.OrNop(logger)}
}

// Publish writes the events in order in a single call
func (p *KafkaPublisher) Publish(ctx context.Context, bookID matching.BookID, events []matching.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		value, err := persistence.EncodeEvent(bookID, evt)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(bookID),
			Value: value,
			Headers: []kafka.Header{
				{Key: HeaderEventType, Value: []byte(evt.EventType())},
				{Key: HeaderEventID, Value: []byte(strconv.FormatInt(int64(evt.EventID()), 10))},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("failed to publish events",
			zap.String("book_id", string(bookID)),
			zap.Int64("first_event_id", int64(events[0].EventID())),
			zap.Int("count", len(events)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish %d events of %s: %w", len(events), bookID, err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
