// Package dashboard serves the dashboard reports and the prediction workflow.
// Every report fetches a snapshot from the record store, normalizes it once
// and hands the result to the matching assembler in package report.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
	"github.com/couchcryptid/cargo-analytics/internal/observability"
	"github.com/couchcryptid/cargo-analytics/internal/report"
)

// RecordStore reads shipment records.
type RecordStore interface {
	FindRecords(ctx context.Context, filter domain.Filter) ([]domain.RawRecord, error)
	Ping(ctx context.Context) error
}

// PredictionStore keeps the append-only prediction log. InsertPrediction
// assigns the id and creation time.
type PredictionStore interface {
	InsertPrediction(ctx context.Context, p domain.PredictionRecord) (domain.PredictionRecord, error)
	ListPredictions(ctx context.Context) ([]domain.PredictionRecord, error)
}

// PredictionPublisher announces stored predictions.
type PredictionPublisher interface {
	PublishPrediction(ctx context.Context, p domain.PredictionRecord) error
}

// Service builds reports and runs predictions.
type Service struct {
	records     RecordStore
	predictions PredictionStore
	predictor   domain.Predictor
	publisher   PredictionPublisher
	opts        report.Options
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes every stored prediction to p.
func WithPublisher(p PredictionPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// New creates a Service.
func New(records RecordStore, predictions PredictionStore, predictor domain.Predictor, opts report.Options, logger *slog.Logger, metrics *observability.Metrics, options ...Option) *Service {
	s := &Service{
		records:     records,
		predictions: predictions,
		predictor:   predictor,
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Options returns the report defaults in effect.
func (s *Service) Options() report.Options { return s.opts }

// CheckReadiness reports whether the record store is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if err := s.records.Ping(ctx); err != nil {
		return fmt.Errorf("record store: %w", err)
	}
	return nil
}

// build fetches records matching filter, normalizes them and runs fn.
func build[T any](ctx context.Context, s *Service, name string, filter domain.Filter, fn func([]domain.Record) T) (T, error) {
	start := time.Now()
	raws, err := s.records.FindRecords(ctx, filter)
	if err != nil {
		s.metrics.ReportErrors.WithLabelValues(name).Inc()
		var zero T
		return zero, fmt.Errorf("%s: find records: %w", name, err)
	}
	s.metrics.RecordsScanned.WithLabelValues(name).Add(float64(len(raws)))

	out := fn(domain.NormalizeAll(raws))
	elapsed := time.Since(start)
	s.metrics.ReportDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	s.logger.Debug("report built", "report", name, "records", len(raws), "duration", elapsed)
	return out, nil
}

// Summary totals weight by movement type.
func (s *Service) Summary(ctx context.Context) (report.Summary, error) {
	return build(ctx, s, "summary", domain.Filter{}, report.BuildSummary)
}

// TypeTotals lists the total weight of every movement type.
func (s *Service) TypeTotals(ctx context.Context) ([]report.TypeTotal, error) {
	return build(ctx, s, "type_totals", domain.Filter{}, report.BuildTypeTotals)
}

// TopStations lists the heaviest stations.
func (s *Service) TopStations(ctx context.Context) ([]report.StationTotal, error) {
	return build(ctx, s, "top_stations", domain.Filter{}, func(r []domain.Record) []report.StationTotal {
		return report.BuildTopStations(r, s.opts.TopStations)
	})
}

// Yearly totals weight per year, ascending.
func (s *Service) Yearly(ctx context.Context) ([]report.YearTotal, error) {
	return build(ctx, s, "yearly", domain.Filter{}, report.BuildYearly)
}

// Heatmap builds the year by month weight matrix.
func (s *Service) Heatmap(ctx context.Context) (report.Heatmap, error) {
	return build(ctx, s, "heatmap", domain.Filter{}, report.BuildHeatmap)
}

// DailyPattern totals weight per day of week.
func (s *Service) DailyPattern(ctx context.Context) (report.Series, error) {
	return build(ctx, s, "daily_pattern", domain.Filter{}, report.BuildDailyPattern)
}

// YoY builds monthly series for every year in [startYear, endYear],
// optionally for one cargo type. Ranges the assembler would reject are
// answered without touching the store.
func (s *Service) YoY(ctx context.Context, startYear, endYear int, cargoType string) (report.YoY, error) {
	if startYear <= 0 || endYear < startYear || (s.opts.MaxYoYSpan > 0 && endYear-startYear+1 > s.opts.MaxYoYSpan) {
		return report.YoY{Years: []report.YearSeries{}}, nil
	}
	filter := domain.Filter{Type: domain.NormalizeType(cargoType)}
	return build(ctx, s, "yoy", filter, func(r []domain.Record) report.YoY {
		return report.BuildYoY(r, startYear, endYear, s.opts.MaxYoYSpan)
	})
}

// StationShare reports station tonnage for year. Year 0 means the default
// report year.
func (s *Service) StationShare(ctx context.Context, year int) (report.Series, error) {
	year = s.yearOrDefault(year)
	return build(ctx, s, "station_share", domain.Filter{Year: year}, func(r []domain.Record) report.Series {
		return report.BuildStationShare(r, year)
	})
}

// CategoryShare reports cargo category tonnage for year, optionally for one
// station. An empty station or "ALL" covers every station.
func (s *Service) CategoryShare(ctx context.Context, year int, station string) (report.Series, error) {
	year = s.yearOrDefault(year)
	station = strings.TrimSpace(station)
	if station == report.AllFilter {
		station = ""
	}
	filter := domain.Filter{Year: year, Station: station}
	return build(ctx, s, "category_share", filter, func(r []domain.Record) report.Series {
		return report.BuildCategoryShare(r, year, station)
	})
}

// Quarterly splits the latest year into quarters.
func (s *Service) Quarterly(ctx context.Context) (report.Quarterly, error) {
	return build(ctx, s, "quarterly", domain.Filter{}, report.BuildQuarterly)
}

// GrowthDecline compares station totals for year against the year before.
func (s *Service) GrowthDecline(ctx context.Context, year int) (report.Movers, error) {
	if year <= 0 {
		return report.BuildGrowthDecline(nil, year, s.opts.MoversLimit), nil
	}
	return build(ctx, s, "growth_decline", domain.Filter{}, func(r []domain.Record) report.Movers {
		return report.BuildGrowthDecline(r, year, s.opts.MoversLimit)
	})
}

// CargoMix totals weight per type for year and quarter ("Q1".."Q4" or "ALL").
func (s *Service) CargoMix(ctx context.Context, year int, quarter string) (report.Series, error) {
	if year <= 0 {
		return report.BuildCargoMix(nil, year, quarter), nil
	}
	quarter = strings.ToUpper(strings.TrimSpace(quarter))
	return build(ctx, s, "cargo_mix", domain.Filter{Year: year}, func(r []domain.Record) report.Series {
		return report.BuildCargoMix(r, year, quarter)
	})
}

func (s *Service) yearOrDefault(year int) int {
	if year > 0 {
		return year
	}
	return s.opts.DefaultYear
}
