// Package publisher hands finished rebooking results to the downstream pipeline.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/metrics"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/retry"
)

//go:generate mockgen -source=publisher.go -destination=mock_publisher.go -package=publisher

// ResultPublisher delivers a run's result. Implementations must be safe for concurrent use.
type ResultPublisher interface {
	Publish(ctx context.Context, event ResultEvent) error
	Close() error
}

// ResultEvent is the message published for every finished run.
type ResultEvent struct {
	BookingID        string               `json:"bookingId"`
	BookingReference string               `json:"bookingReference,omitempty"`
	Result           domain.BookingResult `json:"result"`
	PublishedAt      time.Time            `json:"publishedAt"`
}

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes result events to a Kafka topic keyed by booking ID.
type KafkaPublisher struct {
	writer messageWriter
	retry  retry.Config
	log    *logger.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaPublisher(w, retry.PublishConfig, log)
}

func newKafkaPublisher(w messageWriter, cfg retry.Config, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaPublisher{writer: w, retry: cfg, log: log}
}

// Publish writes the event, retrying transient broker errors with backoff.
func (p *KafkaPublisher) Publish(ctx context.Context, event ResultEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode result event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.BookingID),
		Value: value,
		Time:  event.PublishedAt,
		Headers: []kafka.Header{
			{Key: "run_id", Value: []byte(event.Result.RunID)},
			{Key: "outcome", Value: []byte(metrics.Outcome(event.Result))},
		},
	}

	attempt := 0
	err = retry.Do(ctx, func() error {
		attempt++
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.log.Warn().Err(err).Int("attempt", attempt).Str("booking_id", event.BookingID).Msg("Result publish attempt failed")
			return err
		}
		return nil
	}, p.retry)
	if err != nil {
		return fmt.Errorf("publish result of %s: %w", event.BookingID, err)
	}

	p.log.Debug().Str("booking_id", event.BookingID).Str("run_id", event.Result.RunID).Msg("Result published")
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements ResultPublisher.
func (NopPublisher) Publish(context.Context, ResultEvent) error { return nil }

// Close implements ResultPublisher.
func (NopPublisher) Close() error { return nil }

var (
	_ ResultPublisher = (*KafkaPublisher)(nil)
	_ ResultPublisher = NopPublisher{}
)
