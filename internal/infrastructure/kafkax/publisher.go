// Package kafkax publishes order lifecycle events to Kafka. Messages are
// keyed by order id so all events for one order land on the same
// partition and stay ordered.
package kafkax

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"shopcore/internal/domain/order"
	"shopcore/internal/pkg/logging"
)

type envelope struct {
	Event      string    `json:"event"`
	OrderID    string    `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher writes one message per event; the topic is the event name.
type Publisher struct {
	w   *kafka.Writer
	log *zap.Logger
}

func NewPublisher(brokers []string, log *zap.Logger) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		log: log.With(zap.String("component", "kafka_publisher")),
	}
}

func (p *Publisher) Publish(ctx context.Context, e order.Event) error {
	value, err := json.Marshal(envelope{
		Event:      e.EventName(),
		OrderID:    e.Order(),
		OccurredAt: time.Now().UTC(),
		Payload:    e,
	})
	if err != nil {
		return err
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Topic: e.EventName(),
		Key:   []byte(e.Order()),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		logging.FromContext(ctx).Warn("kafka_publish_failed",
			zap.String("event", e.EventName()),
			zap.String("order_id", e.Order()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *Publisher) Close() error { return p.w.Close() }
