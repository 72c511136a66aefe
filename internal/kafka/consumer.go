package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	defaultHeartbeat = 3 * time.Second
	defaultSession   = 30 * time.Second
)

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
	// Group timing knobs; zero values fall back to the defaults above.
	Heartbeat time.Duration
	Session   time.Duration
}

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if cfg.Session <= 0 {
		cfg.Session = defaultSession
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			Topic:             cfg.Topic,
			HeartbeatInterval: cfg.Heartbeat,
			SessionTimeout:    cfg.Session,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume fetches messages and commits each offset only after the handler
// returns nil, so a crashed worker re-delivers unprocessed notifications.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := handler(ctx, msg); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}
