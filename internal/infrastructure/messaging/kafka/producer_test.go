package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Catalysis-Ingest/internal/config"
	apperrors "github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:         []string{"localhost:9092"},
		MaxMessageBytes: 64,
	}
}

func newTestProducer(w WriterInterface) *Producer {
	return NewProducerWithWriter(w, newTestProducerConfig(), nil)
}

func TestValidateProducerConfig(t *testing.T) {
	assert.NoError(t, ValidateProducerConfig(newTestProducerConfig()))

	cfg := newTestProducerConfig()
	cfg.Brokers = nil
	assert.Error(t, ValidateProducerConfig(cfg))

	cfg = newTestProducerConfig()
	cfg.MaxRetries = -1
	assert.Error(t, ValidateProducerConfig(cfg))
}

func TestProducerConfigFrom(t *testing.T) {
	cfg := ProducerConfigFrom(config.KafkaConfig{
		Brokers:      []string{"k1:9092", "k2:9092"},
		Acks:         "all",
		Compression:  "zstd",
		BatchTimeout: time.Second,
		MaxRetries:   5,
	})
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, "all", cfg.Acks)
	assert.Equal(t, "zstd", cfg.CompressionCodec)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Acks: "all", CompressionCodec: "gzip"}, nil)
	require.NoError(t, err)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, kafka.Gzip, w.Compression)
	assert.Equal(t, 4, w.MaxAttempts)

	_, err = NewProducer(ProducerConfig{}, nil)
	assert.Error(t, err)
}

func TestPublish_Success(t *testing.T) {
	var captured []kafka.Message
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs
			return nil
		},
	})

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   "catalysis.ingestion.completed",
		Key:     []byte("k"),
		Value:   []byte("v"),
		Headers: map[string]string{"event_type": EventIngestionCompleted},
	})
	require.NoError(t, err)
	require.Len(t, captured, 1)
	assert.Equal(t, "catalysis.ingestion.completed", captured[0].Topic)
	assert.Equal(t, "k", string(captured[0].Key))
	assert.Equal(t, "v", string(captured[0].Value))
	assert.False(t, captured[0].Time.IsZero())
	require.Len(t, captured[0].Headers, 1)
	assert.Equal(t, "event_type", captured[0].Headers[0].Key)
	assert.Equal(t, int64(1), p.Sent())
}

func TestPublish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	ctx := context.Background()

	assert.Error(t, p.Publish(ctx, &ProducerMessage{Value: []byte("v")}))
	assert.Error(t, p.Publish(ctx, &ProducerMessage{Topic: "t"}))
	err := p.Publish(ctx, &ProducerMessage{Topic: "t", Value: make([]byte, 65)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
	assert.Zero(t, p.Sent())
}

func TestPublish_Failure(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("write failed")
		},
	})
	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMessageQueueError))
	assert.Equal(t, int64(1), p.Failed())
}

func TestPublishEvent(t *testing.T) {
	var captured kafka.Message
	p := NewProducerWithWriter(&mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs[0]
			return nil
		},
	}, ProducerConfig{Brokers: []string{"b"}}, nil)

	env, err := NewEventEnvelope(EventIngestionCompleted, EventSource, IngestionPayload{IngestionID: "ing-1", Format: ".csv"})
	require.NoError(t, err)
	require.NoError(t, p.PublishEvent(context.Background(), "topic", "ing-1", env))

	assert.Equal(t, "ing-1", string(captured.Key))
	decoded, err := MessageToEventEnvelope(captured)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)

	var payload IngestionPayload
	require.NoError(t, decoded.DecodePayload(&payload))
	assert.Equal(t, ".csv", payload.Format)
}

func TestClose(t *testing.T) {
	closes := 0
	p := newTestProducer(&mockKafkaWriter{
		closeFunc: func() error {
			closes++
			return nil
		},
	})
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.Equal(t, 1, closes)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.Equal(t, ErrProducerClosed, err)
}

//Personal.AI order the ending
