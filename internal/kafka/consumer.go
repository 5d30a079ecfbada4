package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads notification events until the context is cancelled or the
// handler fails. Malformed messages are logged and skipped rather than
// wedging the consumer group on a poison message.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, NotificationEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		event, err := decodeEvent(msg.Value)
		if err != nil {
			log.Printf("skipping message at offset %d on %s: %v", msg.Offset, msg.Topic, err)
			continue
		}

		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

func decodeEvent(value []byte) (NotificationEvent, error) {
	var event NotificationEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return NotificationEvent{}, fmt.Errorf("decode notification event: %w", err)
	}
	if event.Kind == "" {
		return NotificationEvent{}, fmt.Errorf("notification event has no kind")
	}
	return event, nil
}
