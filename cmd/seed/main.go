// Command seed loads a shipment export into PostgreSQL. It creates the schema
// when missing and bulk-copies every row in one transaction, leaving values
// in their exported text form for the API to normalize on read.
//
// Usage:
//
//	DATABASE_URL=postgres://localhost:5432/cargo?sslmode=disable \
//	  go run ./cmd/seed -file export.csv
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/cargo-analytics/internal/adapter/memstore"
	"github.com/couchcryptid/cargo-analytics/internal/adapter/postgres"
	"github.com/couchcryptid/cargo-analytics/internal/config"
	"github.com/couchcryptid/cargo-analytics/internal/domain"
	"github.com/couchcryptid/cargo-analytics/internal/observability"
)

// seeder is the part of postgres.Store the command uses.
type seeder interface {
	Migrate(ctx context.Context) error
	LoadRecords(ctx context.Context, records []domain.RawRecord) (int, error)
}

func main() {
	file := flag.String("file", "", "JSON or CSV file of shipment records")
	flag.Parse()
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	n, err := run(ctx, postgres.New(db), *file)
	if err != nil {
		logger.Error("seed failed", "file", *file, "error", err)
		db.Close()
		os.Exit(1)
	}
	logger.Info("seed complete", "file", *file, "rows", n)
}

// run reads file, brings the schema up to date and loads every record.
func run(ctx context.Context, store seeder, file string) (int, error) {
	records, err := memstore.ReadRecords(file)
	if err != nil {
		return 0, err
	}
	if err := store.Migrate(ctx); err != nil {
		return 0, err
	}
	return store.LoadRecords(ctx, records)
}
