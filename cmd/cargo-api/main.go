package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/cargo-analytics/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/cargo-analytics/internal/adapter/kafka"
	"github.com/couchcryptid/cargo-analytics/internal/adapter/memstore"
	"github.com/couchcryptid/cargo-analytics/internal/adapter/postgres"
	"github.com/couchcryptid/cargo-analytics/internal/adapter/prediction"
	"github.com/couchcryptid/cargo-analytics/internal/config"
	"github.com/couchcryptid/cargo-analytics/internal/dashboard"
	"github.com/couchcryptid/cargo-analytics/internal/observability"
	"github.com/couchcryptid/cargo-analytics/internal/pipeline"
)

// stores is the record and prediction store pair for the configured driver.
type stores interface {
	dashboard.RecordStore
	dashboard.PredictionStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	predictor := prediction.NewClient(prediction.Options{
		URL:         cfg.PredictionURL,
		Timeout:     cfg.PredictionTimeout,
		MaxFailures: cfg.PredictionBreakerFailures,
		OpenTimeout: cfg.PredictionBreakerTimeout,
	}, metrics, logger)

	var opts []dashboard.Option
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, metrics, logger)
		opts = append(opts, dashboard.WithPublisher(writer))
		logger.Info("prediction publishing enabled", "topic", cfg.KafkaPredictionTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("prediction publishing disabled")
	}

	svc := dashboard.New(store, store, predictor, cfg.ReportOptions(), logger, metrics, opts...)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, httpadapter.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PredictRateLimit:   cfg.PredictRateLimit,
	}, metrics, logger)

	var ingest sync.WaitGroup
	var reader *kafkaadapter.Reader
	if cfg.IngestEnabled() {
		loader, ok := store.(pipeline.RecordLoader)
		if !ok {
			logger.Error("store driver does not support ingest", "driver", cfg.StoreDriver)
			os.Exit(1)
		}
		reader = kafkaadapter.NewReader(cfg, logger)
		p := pipeline.New(reader, loader, logger, metrics, cfg.IngestBatchSize)
		ingest.Add(1)
		go func() {
			defer ingest.Done()
			if err := p.Run(ctx); err != nil {
				logger.Error("ingest pipeline error", "error", err)
			}
		}()
		logger.Info("shipment ingest enabled", "topic", cfg.KafkaShipmentTopic, "group", cfg.KafkaGroupID)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	ingest.Wait()
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeStore.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stores, io.Closer, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		s, err := memstore.LoadFile(cfg.FixturePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("serving fixture snapshot", "path", cfg.FixturePath, "records", s.Len())
		return s, closerFunc(func() error { return nil }), nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	s := postgres.New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	version, _, err := s.MigrationVersion(ctx)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("connected to postgres", "schema_version", version)
	return s, db, nil
}
