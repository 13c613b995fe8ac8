package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the dispatcher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka dispatcher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// KafkaDispatcher publishes notification events to a Kafka topic, keyed by
// order so that one order's events stay ordered within a partition.
type KafkaDispatcher struct {
	writer MessageWriter
	topic  string
	logger *otelzap.Logger
}

// NewKafkaDispatcher creates a dispatcher with a synchronous kafka-go writer.
func NewKafkaDispatcher(cfg KafkaConfig, logger *otelzap.Logger) *KafkaDispatcher {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 10 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return NewKafkaDispatcherWithWriter(w, cfg.Topic, logger)
}

// NewKafkaDispatcherWithWriter creates a dispatcher around an existing writer.
func NewKafkaDispatcherWithWriter(w MessageWriter, topic string, logger *otelzap.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{writer: w, topic: topic, logger: logger}
}

// Dispatch publishes n.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, n Notification) error {
	event, err := NewEvent(n)
	if err != nil {
		return err
	}
	value, err := jsonMarshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}
	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification to %s: %w", d.topic, err)
	}

	d.logger.Ctx(ctx).Debug("Notification published",
		zap.String("topic", d.topic),
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
	)
	return nil
}

// Close flushes and closes the writer.
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

var _ Dispatcher = (*KafkaDispatcher)(nil)
