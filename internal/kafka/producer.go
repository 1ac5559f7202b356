package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mkarimov/event-gateway/internal/model"
)

type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration // default 50ms
	WriteTimeout time.Duration // default 5s
}

// Producer is a thin wrapper around segmentio/kafka-go Writer, used as
// an alternative notification sink. The message id is the Kafka key so
// downstream consumers can dedupe duplicate deliveries.
type Producer struct {
	w *kafka.Writer
}

func NewProducerFromConfig(c Config) *Producer {
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 50 * time.Millisecond
	}

	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 5 * time.Second
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        c.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: bt,
		WriteTimeout: wt,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{w: w}
}

func (p *Producer) Name() string { return "kafka" }

// Deliver publishes the rendered notification payload keyed by message id.
func (p *Producer) Deliver(ctx context.Context, msg model.OutboxMessage) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ID),
		Value: msg.Payload,
	})
}

func (p *Producer) Close() error { return p.w.Close() }
