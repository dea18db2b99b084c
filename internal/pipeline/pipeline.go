// Package pipeline ingests shipment records from a message stream into the
// record store.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
	"github.com/couchcryptid/cargo-analytics/internal/observability"
)

// Message is one consumed stream message.
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
}

// BatchExtractor reads up to batchSize messages and commits processed ones.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]Message, error)
	Commit(ctx context.Context, msgs []Message) error
}

// RecordLoader writes shipment records to the store.
type RecordLoader interface {
	LoadRecords(ctx context.Context, records []domain.RawRecord) (int, error)
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline runs the extract-decode-load loop.
type Pipeline struct {
	extractor BatchExtractor
	loader    RecordLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
}

// New creates a Pipeline.
func New(e BatchExtractor, l RecordLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Run ingests batches until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("ingest pipeline started", "batch_size", p.batchSize)
	p.metrics.IngestRunning.Set(1)
	defer p.metrics.IngestRunning.Set(0)

	backoff := initialBackoff
	for ctx.Err() == nil {
		if !p.processBatch(ctx, &backoff) {
			break
		}
	}
	p.logger.Info("ingest pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// processBatch runs one extract-decode-load cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	msgs, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	if len(msgs) == 0 {
		return true
	}
	*backoff = initialBackoff
	p.metrics.IngestMessages.WithLabelValues("consumed").Add(float64(len(msgs)))

	records := p.decodeBatch(msgs)
	if len(records) > 0 {
		// A failed load is retried in place; the batch stays uncommitted.
		for {
			n, err := p.loader.LoadRecords(ctx, records)
			if err == nil {
				p.metrics.IngestRecordsLoaded.Add(float64(n))
				break
			}
			p.logger.Error("load records failed", "error", err, "records", len(records))
			if !p.backoffOrStop(ctx, backoff) {
				return false
			}
		}
		*backoff = initialBackoff
	}

	if err := p.extractor.Commit(ctx, msgs); err != nil {
		p.logger.Warn("commit offsets failed", "error", err, "messages", len(msgs))
	}
	p.metrics.IngestBatchDuration.Observe(time.Since(start).Seconds())
	p.logger.Debug("batch ingested", "messages", len(msgs), "records", len(records))
	return true
}

// decodeBatch decodes every message, skipping and counting invalid ones.
func (p *Pipeline) decodeBatch(msgs []Message) []domain.RawRecord {
	records := make([]domain.RawRecord, 0, len(msgs))
	for _, m := range msgs {
		decoded, err := DecodeRecords(m.Value)
		if err != nil {
			p.logger.Warn("invalid shipment message, skipping",
				"error", err,
				"topic", m.Topic,
				"partition", m.Partition,
				"offset", m.Offset,
			)
			p.metrics.IngestMessages.WithLabelValues("invalid").Inc()
			continue
		}
		records = append(records, decoded...)
	}
	return records
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the context ended first.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff)
	return true
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
