package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/cargo-analytics/internal/config"
	"github.com/couchcryptid/cargo-analytics/internal/domain"
	"github.com/couchcryptid/cargo-analytics/internal/observability"
)

// EventPredictionCreated is the event_type header of prediction messages.
const EventPredictionCreated = "prediction.created"

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes stored prediction records to a Kafka topic.
// It implements dashboard.PredictionPublisher.
type Writer struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured prediction topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaPredictionTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// PublishPrediction writes one prediction record, keyed by its id.
func (w *Writer) PublishPrediction(ctx context.Context, p domain.PredictionRecord) error {
	msg, err := serializeToMessage(p)
	if err != nil {
		w.metrics.PredictionsPublished.WithLabelValues("error").Inc()
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		w.metrics.PredictionsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("write prediction %s: %w", p.ID, err)
	}
	w.metrics.PredictionsPublished.WithLabelValues("success").Inc()
	w.logger.Debug("prediction published", "id", p.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a PredictionRecord into a Kafka message.
func serializeToMessage(p domain.PredictionRecord) (kafkago.Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(p.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventPredictionCreated)},
			{Key: "created_at", Value: []byte(p.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
