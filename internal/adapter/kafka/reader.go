package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/cargo-analytics/internal/config"
	"github.com/couchcryptid/cargo-analytics/internal/pipeline"
)

// messageReader is the subset of *kafkago.Reader used here.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Reader consumes shipment records from a Kafka topic as a consumer group
// member. It implements pipeline.BatchExtractor.
type Reader struct {
	reader        messageReader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a consumer for the configured shipment topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     cfg.KafkaGroupID,
		Topic:       cfg.KafkaShipmentTopic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: r, flushInterval: cfg.IngestFlushInterval, logger: logger}
}

// ExtractBatch fetches up to batchSize messages. A partial batch is
// returned once the flush interval elapses.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]pipeline.Message, error) {
	batchCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	msgs := make([]pipeline.Message, 0, batchSize)
	for len(msgs) < batchSize {
		m, err := r.reader.FetchMessage(batchCtx)
		if err != nil {
			if ctx.Err() != nil {
				return msgs, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return msgs, fmt.Errorf("fetch message: %w", err)
		}
		msgs = append(msgs, toPipelineMessage(m))
	}
	return msgs, nil
}

// Commit marks the given messages as processed for the consumer group.
func (r *Reader) Commit(ctx context.Context, msgs []pipeline.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kafkago.Message, len(msgs))
	for i, m := range msgs {
		out[i] = kafkago.Message{Topic: m.Topic, Partition: m.Partition, Offset: m.Offset}
	}
	if err := r.reader.CommitMessages(ctx, out...); err != nil {
		return fmt.Errorf("commit messages: %w", err)
	}
	r.logger.Debug("offsets committed", "messages", len(msgs))
	return nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func toPipelineMessage(m kafkago.Message) pipeline.Message {
	return pipeline.Message{
		Key:       m.Key,
		Value:     m.Value,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
	}
}
