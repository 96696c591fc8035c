// Package events publishes normalized shipment status changes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// StatusEvent is the message published for every status update.
type StatusEvent struct {
	ID         string               `json:"id"`
	ReceivedAt time.Time            `json:"received_at"`
	Update     shipper.StatusUpdate `json:"update"`
	Terminal   bool                 `json:"terminal"`
}

// NewStatusEvent wraps u with a fresh id.
func NewStatusEvent(u shipper.StatusUpdate, receivedAt time.Time) StatusEvent {
	return StatusEvent{
		ID:         uuid.NewString(),
		ReceivedAt: receivedAt.UTC(),
		Update:     u,
		Terminal:   u.Status.Terminal(),
	}
}

// Key partitions events so one shipment's updates stay ordered.
func (e StatusEvent) Key() string {
	return string(e.Update.Carrier) + ":" + e.Update.TrackingNumber
}

// Publisher delivers status events.
type Publisher interface {
	Publish(ctx context.Context, events ...StatusEvent) error
	Close() error
}

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by carrier and tracking number.
type KafkaPublisher struct {
	writer Writer
	logger *otelzap.Logger
}

// NewKafkaPublisher connects a writer to brokers for topic.
func NewKafkaPublisher(brokers []string, topic string, logger *otelzap.Logger) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, logger)
}

// NewKafkaPublisherWithWriter uses w, typically a fake in tests.
func NewKafkaPublisherWithWriter(w Writer, logger *otelzap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logger}
}

// Publish writes events in one batch.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...StatusEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding status event %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Key()),
			Value: value,
			Headers: []kafka.Header{
				{Key: "carrier", Value: []byte(e.Update.Carrier)},
				{Key: "status", Value: []byte(e.Update.Status)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Ctx(ctx).Error("Failed to publish status events", zap.Int("count", len(msgs)), zap.Error(err))
		return fmt.Errorf("publishing status events: %w", err)
	}
	p.logger.Ctx(ctx).Debug("Published status events", zap.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops events. It is used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, ...StatusEvent) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = Nop{}
)
