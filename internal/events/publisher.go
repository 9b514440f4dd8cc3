package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

const TopicInvestmentCreated = "investment.created"

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits investment events keyed by user id so one user's events stay ordered.
type KafkaPublisher struct {
	logger *slog.Logger
	writer MessageWriter
	topic  string
}

func NewKafkaPublisher(logger *slog.Logger, writer MessageWriter, topic string) *KafkaPublisher {
	if topic == "" {
		topic = TopicInvestmentCreated
	}
	return &KafkaPublisher{logger: logger, writer: writer, topic: topic}
}

// NewWriter builds a producer for the given brokers.
func NewWriter(brokers []string, maxAttempts int, writeTimeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            maxAttempts,
		WriteTimeout:           writeTimeout,
	}
}

func (p *KafkaPublisher) PublishInvestmentCreated(ctx context.Context, events []entities.InvestmentCreatedEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal investment event %d: %w", e.InvestmentID, err)
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.topic,
			Key:   []byte(strconv.FormatInt(e.UserID, 10)),
			Value: value,
			Time:  e.InvestedAt,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d messages to %s: %w", len(msgs), p.topic, err)
	}

	p.logger.Debug("Investment events published", "topic", p.topic, "count", len(msgs))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher is used when no broker is configured. It only logs.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishInvestmentCreated(ctx context.Context, events []entities.InvestmentCreatedEvent) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, "Investment event",
			"topic", TopicInvestmentCreated,
			"investment_id", e.InvestmentID,
			"user_id", e.UserID,
			"company_id", e.CompanyID)
	}
	return nil
}
