package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKafkaPublisher_PublishInvestmentCreated(t *testing.T) {
	writer := &fakeWriter{}
	p := NewKafkaPublisher(discardLogger(), writer, "")
	at := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	snapshotID := uuid.New()

	err := p.PublishInvestmentCreated(context.Background(), []entities.InvestmentCreatedEvent{
		{InvestmentID: 1, UserID: 7, CompanyID: 101, Amount: decimal.RequireFromString("5000"), SnapshotID: snapshotID, InvestedAt: at},
		{InvestmentID: 2, UserID: 7, CompanyID: 202, Amount: decimal.RequireFromString("2500"), SnapshotID: uuid.New(), InvestedAt: at},
	})
	require.NoError(t, err)
	require.Len(t, writer.msgs, 2)

	msg := writer.msgs[0]
	assert.Equal(t, TopicInvestmentCreated, msg.Topic)
	assert.Equal(t, "7", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded entities.InvestmentCreatedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, int64(1), decoded.InvestmentID)
	assert.Equal(t, snapshotID, decoded.SnapshotID)
	assert.Equal(t, "5000", decoded.Amount.String())

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisher_CustomTopicAndEmptyBatch(t *testing.T) {
	writer := &fakeWriter{}
	p := NewKafkaPublisher(discardLogger(), writer, "custom.topic")

	require.NoError(t, p.PublishInvestmentCreated(context.Background(), nil))
	assert.Empty(t, writer.msgs)

	require.NoError(t, p.PublishInvestmentCreated(context.Background(), []entities.InvestmentCreatedEvent{{InvestmentID: 1}}))
	assert.Equal(t, "custom.topic", writer.msgs[0].Topic)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	broker := errors.New("broker unavailable")
	p := NewKafkaPublisher(discardLogger(), &fakeWriter{err: broker}, "")

	err := p.PublishInvestmentCreated(context.Background(), []entities.InvestmentCreatedEvent{{InvestmentID: 1}})
	assert.ErrorIs(t, err, broker)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(discardLogger())
	assert.NoError(t, p.PublishInvestmentCreated(context.Background(), []entities.InvestmentCreatedEvent{{InvestmentID: 1}}))
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, 5, 3*time.Second)
	assert.Equal(t, 5, w.MaxAttempts)
	assert.Equal(t, 3*time.Second, w.WriteTimeout)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
