// Package postgres stores shipment records and the prediction log in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultPingTimeout     = 5 * time.Second
)

//go:embed migrations/*.sql
var migrations embed.FS

const shipmentColumns = `year_text, month_short_text, accept_flight_date, station, type,
	tonnages_product_final, main_or_dom, weight_kg`

const predictionColumns = `id, year_text, month_short_text, accept_flight_date, station, type,
	tonnages_product_final, main_or_dom, weight_kg, predicted_weight_kg, created_at`

// yearExpr evaluates year_text the way domain.ParseYear does, yielding NULL
// for text that is not an integral number.
const yearExpr = `CASE WHEN year_text ~ '^\s*[0-9]+(\.0+)?\s*$' THEN substring(year_text from '[0-9]+')::numeric END`

// Open connects to dsn, configures the pool and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Store implements the record and prediction stores over a *sql.DB.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies any pending schema migrations. An up-to-date schema is
// not an error.
func (s *Store) Migrate(ctx context.Context) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	// A dedicated connection keeps m.Close from closing the pool.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	driver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the applied schema version and whether the last
// migration left the schema dirty. Zero means no migration has run.
func (s *Store) MigrationVersion(ctx context.Context) (version uint, dirty bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// FindRecords returns shipment rows matching filter in insertion order.
// Filter values are compared against trimmed columns, and type
// case-insensitively, mirroring the normalizer.
func (s *Store) FindRecords(ctx context.Context, filter domain.Filter) ([]domain.RawRecord, error) {
	query, args := findQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shipments: %w", err)
	}
	defer rows.Close()

	records := make([]domain.RawRecord, 0, 256)
	for rows.Next() {
		var year, month, date, station, typ, category, mainOrDom, weight sql.NullString
		if err := rows.Scan(&year, &month, &date, &station, &typ, &category, &mainOrDom, &weight); err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		r := domain.RawRecord{
			Month:      month.String,
			FlightDate: date.String,
			Station:    station.String,
			Type:       typ.String,
			MainOrDom:  mainOrDom.String,
		}
		if year.Valid {
			r.Year = year.String
		}
		if weight.Valid {
			r.WeightKg = weight.String
		}
		if category.Valid {
			c := category.String
			r.CargoCategory = &c
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipments: %w", err)
	}
	return records, nil
}

func findQuery(filter domain.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, clause+" = $"+strconv.Itoa(len(args)))
	}
	if filter.Year != domain.UnknownYear {
		add(yearExpr, filter.Year)
	}
	if filter.Station != "" {
		add("btrim(station)", filter.Station)
	}
	if filter.Type != "" {
		add("upper(btrim(type))", strings.ToUpper(filter.Type))
	}

	var b strings.Builder
	b.WriteString("SELECT " + shipmentColumns + " FROM shipments")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY id")
	return b.String(), args
}

// LoadRecords bulk-copies shipment rows into the shipments table in one
// transaction, keeping their raw text form. It returns the number of rows
// written.
func (s *Store) LoadRecords(ctx context.Context, records []domain.RawRecord) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("shipments",
		"year_text", "month_short_text", "accept_flight_date", "station", "type",
		"tonnages_product_final", "main_or_dom", "weight_kg"))
	if err != nil {
		return 0, fmt.Errorf("prepare copy: %w", err)
	}
	for i, r := range records {
		var category any
		if r.CargoCategory != nil {
			category = *r.CargoCategory
		}
		if _, err = stmt.ExecContext(ctx,
			rawText(r.Year), r.Month, r.FlightDate, r.Station, r.Type,
			category, r.MainOrDom, rawText(r.WeightKg),
		); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy record %d: %w", i, err)
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("flush copy: %w", err)
	}
	if err = stmt.Close(); err != nil {
		return 0, fmt.Errorf("close copy: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load: %w", err)
	}
	return len(records), nil
}

// rawText renders a loosely typed export value as stored text. nil stays NULL.
func rawText(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// InsertPrediction assigns an id and creation time and appends p to the log.
func (s *Store) InsertPrediction(ctx context.Context, p domain.PredictionRecord) (domain.PredictionRecord, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = domain.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (`+predictionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Year, p.Month, p.FlightDate, p.Station, p.Type,
		p.CargoCategory, p.MainOrDom, p.WeightKg, p.PredictedWeightKg, p.CreatedAt,
	)
	if err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("insert prediction: %w", err)
	}
	return p, nil
}

// ListPredictions returns the prediction log, newest first.
func (s *Store) ListPredictions(ctx context.Context) ([]domain.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+predictionColumns+` FROM predictions ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PredictionRecord, 0, 64)
	for rows.Next() {
		var p domain.PredictionRecord
		if err := rows.Scan(
			&p.ID, &p.Year, &p.Month, &p.FlightDate, &p.Station, &p.Type,
			&p.CargoCategory, &p.MainOrDom, &p.WeightKg, &p.PredictedWeightKg, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.CreatedAt = p.CreatedAt.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return out, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
