// Command report builds one dashboard report from a fixture file and prints
// it as JSON. It runs the same normalization and assembly code as the API.
//
// Usage:
//
//	go run ./cmd/report -fixture data/records.json -report summary
//	go run ./cmd/report -fixture export.csv -report yoy -start 2023 -end 2025 -type IMPORT
//	go run ./cmd/report -fixture export.csv -report cargo-mix -year 2025 -quarter Q2
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/couchcryptid/cargo-analytics/internal/adapter/memstore"
	"github.com/couchcryptid/cargo-analytics/internal/dashboard"
	"github.com/couchcryptid/cargo-analytics/internal/observability"
	"github.com/couchcryptid/cargo-analytics/internal/report"
)

type params struct {
	year       int
	start, end int
	cargoType  string
	station    string
	quarter    string
}

type reportFunc func(ctx context.Context, svc *dashboard.Service, p params) (any, error)

func wrap[T any](fn func(context.Context, *dashboard.Service, params) (T, error)) reportFunc {
	return func(ctx context.Context, svc *dashboard.Service, p params) (any, error) {
		return fn(ctx, svc, p)
	}
}

var reports = map[string]reportFunc{
	"summary": wrap(func(ctx context.Context, s *dashboard.Service, _ params) (report.Summary, error) {
		return s.Summary(ctx)
	}),
	"all": wrap(func(ctx context.Context, s *dashboard.Service, _ params) ([]report.TypeTotal, error) {
		return s.TypeTotals(ctx)
	}),
	"top-stations": wrap(func(ctx context.Context, s *dashboard.Service, _ params) ([]report.StationTotal, error) {
		return s.TopStations(ctx)
	}),
	"yearly": wrap(func(ctx context.Context, s *dashboard.Service, _ params) ([]report.YearTotal, error) {
		return s.Yearly(ctx)
	}),
	"heatmap": wrap(func(ctx context.Context, s *dashboard.Service, _ params) (report.Heatmap, error) {
		return s.Heatmap(ctx)
	}),
	"daily-pattern": wrap(func(ctx context.Context, s *dashboard.Service, _ params) (report.Series, error) {
		return s.DailyPattern(ctx)
	}),
	"yoy": wrap(func(ctx context.Context, s *dashboard.Service, p params) (report.YoY, error) {
		return s.YoY(ctx, p.start, p.end, p.cargoType)
	}),
	"station-share": wrap(func(ctx context.Context, s *dashboard.Service, p params) (report.Series, error) {
		return s.StationShare(ctx, p.year)
	}),
	"cargo-share": wrap(func(ctx context.Context, s *dashboard.Service, p params) (report.Series, error) {
		return s.CategoryShare(ctx, p.year, p.station)
	}),
	"quarterly": wrap(func(ctx context.Context, s *dashboard.Service, _ params) (report.Quarterly, error) {
		return s.Quarterly(ctx)
	}),
	"growth-decline": wrap(func(ctx context.Context, s *dashboard.Service, p params) (report.Movers, error) {
		return s.GrowthDecline(ctx, p.year)
	}),
	"cargo-mix": wrap(func(ctx context.Context, s *dashboard.Service, p params) (report.Series, error) {
		return s.CargoMix(ctx, p.year, p.quarter)
	}),
}

func reportNames() []string {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func main() {
	var p params
	fixture := flag.String("fixture", "", "JSON or CSV file of shipment records")
	name := flag.String("report", "summary", "report to build: "+strings.Join(reportNames(), ", "))
	flag.IntVar(&p.year, "year", 0, "report year (station-share, cargo-share, growth-decline, cargo-mix)")
	flag.IntVar(&p.start, "start", 0, "first year (yoy)")
	flag.IntVar(&p.end, "end", 0, "last year (yoy)")
	flag.StringVar(&p.cargoType, "type", "", "cargo type filter (yoy)")
	flag.StringVar(&p.station, "station", "", "station filter (cargo-share)")
	flag.StringVar(&p.quarter, "quarter", "ALL", "quarter Q1..Q4 or ALL (cargo-mix)")
	flag.Parse()

	if *fixture == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(context.Background(), os.Stdout, *fixture, *name, p); err != nil {
		fmt.Fprintln(os.Stderr, "report:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, fixture, name string, p params) error {
	build, ok := reports[name]
	if !ok {
		return fmt.Errorf("unknown report %q (want one of %s)", name, strings.Join(reportNames(), ", "))
	}

	store, err := memstore.LoadFile(fixture, memstore.WithReadOnly())
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := dashboard.New(store, store, nil, report.DefaultOptions(), logger, observability.NewMetricsForTesting())

	out, err := build(ctx, svc, p)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
