package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/gogol-pizza/internal/lib/clock"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the relay uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Relay mirrors every notifier event to a Kafka topic, keyed by order id,
// so that other processes can follow order activity. Publishing is best effort.
type Relay struct {
	log    *slog.Logger
	writer MessageWriter
	clock  clock.Clock
}

type relayMessage struct {
	Event     string    `json:"event"`
	Scope     string    `json:"scope"`
	OrderID   string    `json:"orderId"`
	Data      any       `json:"data"`
	EmittedAt time.Time `json:"emittedAt"`
}

// NewKafkaRelay returns nil when no brokers are configured.
func NewKafkaRelay(log *slog.Logger, brokers []string, topic string) *Relay {
	if len(brokers) == 0 {
		return nil
	}
	log = log.With(slog.String("component", "realtime.Relay"), slog.String("topic", topic))

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("failed to relay events", slog.Int("count", len(messages)), slog.Any("error", err))
			}
		},
	}
	return NewRelay(log, w, clock.NewSystem())
}

func NewRelay(log *slog.Logger, w MessageWriter, clk clock.Clock) *Relay {
	return &Relay{log: log, writer: w, clock: clk}
}

func (r *Relay) Publish(ctx context.Context, orderID string, scope Scope, ev Event) error {
	value, err := json.Marshal(relayMessage{
		Event:     ev.Name,
		Scope:     scope.String(),
		OrderID:   orderID,
		Data:      ev.Data,
		EmittedAt: r.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("relay: failed to encode %s: %w", ev.Name, err)
	}

	msg := kafka.Message{Key: []byte(orderID), Value: value, Time: r.clock.Now()}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("relay: failed to write %s: %w", ev.Name, err)
	}
	return nil
}

func (r *Relay) Close() error {
	return r.writer.Close()
}
