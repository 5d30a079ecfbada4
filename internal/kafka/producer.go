package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type NotificationKind string

const (
	NotificationBookingConfirmed NotificationKind = "booking_confirmed"
	NotificationReminder         NotificationKind = "booking_reminder"
	NotificationCancelled        NotificationKind = "booking_cancelled"
	NotificationRescheduled      NotificationKind = "booking_rescheduled"
	NotificationCompleted        NotificationKind = "session_completed"
)

// NotificationEvent is the tagged variant carried on the notifications
// topic; Kind selects which of the optional fields are meaningful.
type NotificationEvent struct {
	Kind        NotificationKind `json:"kind"`
	BookingID   string           `json:"booking_id"`
	PetName     string           `json:"pet_name"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone,omitempty"`
	Date        time.Time        `json:"date"`
	TimeSlot    string           `json:"time_slot"`
	OldDate     time.Time        `json:"old_date,omitzero"`
	RefundCents int64            `json:"refund_cents,omitempty"`
	MediaURL    string           `json:"media_url,omitempty"`
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := p.Publish(ctx, topic, key, payload)
		if err == nil {
			return nil
		}

		lastErr = err
		log.Printf("publish attempt %d failed: %v", i+1, err)

		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
