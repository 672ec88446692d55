package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/marketplace/internal/metrics"
	"github.com/fjod/go_cart/marketplace/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
)

const (
	KindOrderConfirmed = "order.confirmed"
	KindShopNewOrder   = "shop.new_order"
	KindOrderStatus    = "order.status_changed"
)

// MessageWriter is the part of *kafka.Writer the notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Notifier publishes post-commit events. It makes exactly one attempt per event.
type Notifier struct {
	writer  MessageWriter
	breaker *circuitbreaker.Breaker
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		MaxAttempts:            1,
	}
}

func NewNotifier(writer MessageWriter, breaker *circuitbreaker.Breaker, m *metrics.Metrics, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{writer: writer, breaker: breaker, metrics: m, timeout: timeout}
}

// Notify writes one event keyed by key so events of one order stay on one partition.
func (n *Notifier) Notify(ctx context.Context, kind, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		n.observe(kind, "error")
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(kind)},
		},
		Time: time.Now().UTC(),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	err = n.breaker.Do(func() error {
		return n.writer.WriteMessages(writeCtx, msg)
	})
	if err != nil {
		n.observe(kind, "error")
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	n.observe(kind, "ok")
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

func (n *Notifier) observe(kind, result string) {
	if n.metrics != nil {
		n.metrics.Notifications.WithLabelValues(kind, result).Inc()
	}
}
