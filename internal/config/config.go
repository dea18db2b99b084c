package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/cargo-analytics/internal/report"
	"github.com/joho/godotenv"
)

// Supported STORE_DRIVER values.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

const defaultPredictionURL = "https://prod.smartoperation.in/api/cargo-prediction/predict"

var defaultCORSOrigins = []string{
	"http://localhost:4200",
	"https://cargo-analytics-2e37b.web.app",
	"https://cargo-analytics-2e37b.firebaseapp.com",
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	StoreDriver string
	DatabaseURL string
	FixturePath string

	// Report defaults.
	DefaultReportYear int
	TopStationsLimit  int
	MoversLimit       int
	MaxYoYSpan        int

	// Prediction forwarding.
	PredictionURL             string
	PredictionTimeout         time.Duration
	PredictionBreakerFailures uint32
	PredictionBreakerTimeout  time.Duration
	PredictRateLimit          int // requests per minute per client IP

	// Prediction event publishing. Disabled when KafkaBrokers is empty.
	KafkaBrokers         []string
	KafkaPredictionTopic string

	// Shipment ingest. Disabled when KafkaShipmentTopic is empty.
	KafkaShipmentTopic  string
	KafkaGroupID        string
	IngestBatchSize     int
	IngestFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. Variables from ENV_FILE (default ".env") are loaded first
// without overriding the real environment; a missing file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(envOrDefault("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	predictionTimeout, err := parseDuration("PREDICTION_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	breakerTimeout, err := parseDuration("PREDICTION_BREAKER_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parseDuration("INGEST_FLUSH_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}

	defaultYear, err := parsePositiveInt("DEFAULT_REPORT_YEAR", report.DefaultReportYear)
	if err != nil {
		return nil, err
	}
	topStations, err := parsePositiveInt("TOP_STATIONS_LIMIT", report.DefaultTopStations)
	if err != nil {
		return nil, err
	}
	moversLimit, err := parsePositiveInt("MOVERS_LIMIT", report.DefaultMoversLimit)
	if err != nil {
		return nil, err
	}
	maxYoYSpan, err := parsePositiveInt("MAX_YOY_SPAN", report.DefaultMaxYoYSpan)
	if err != nil {
		return nil, err
	}
	breakerFailures, err := parsePositiveInt("PREDICTION_BREAKER_FAILURES", 5)
	if err != nil {
		return nil, err
	}
	rateLimit, err := parsePositiveInt("PREDICT_RATE_LIMIT", 30)
	if err != nil {
		return nil, err
	}
	batchSize, err := parsePositiveInt("INGEST_BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}

	origins := parseList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = append([]string(nil), defaultCORSOrigins...)
	}

	cfg := &Config{
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":3000"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: origins,

		StoreDriver: envOrDefault("STORE_DRIVER", StoreDriverPostgres),
		DatabaseURL: envOrDefault("DATABASE_URL", "postgres://localhost:5432/cargo?sslmode=disable"),
		FixturePath: os.Getenv("FIXTURE_PATH"),

		DefaultReportYear: defaultYear,
		TopStationsLimit:  topStations,
		MoversLimit:       moversLimit,
		MaxYoYSpan:        maxYoYSpan,

		PredictionURL:             envOrDefault("PREDICTION_API_URL", defaultPredictionURL),
		PredictionTimeout:         predictionTimeout,
		PredictionBreakerFailures: uint32(breakerFailures), //nolint:gosec // bounded by parsePositiveInt
		PredictionBreakerTimeout:  breakerTimeout,
		PredictRateLimit:          rateLimit,

		KafkaBrokers:         parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaPredictionTopic: envOrDefault("KAFKA_PREDICTION_TOPIC", "cargo-predictions"),

		KafkaShipmentTopic:  os.Getenv("KAFKA_SHIPMENT_TOPIC"),
		KafkaGroupID:        envOrDefault("KAFKA_GROUP_ID", "cargo-analytics-ingest"),
		IngestBatchSize:     batchSize,
		IngestFlushInterval: flushInterval,
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreDriverMemory:
		if cfg.FixturePath == "" {
			return nil, errors.New("FIXTURE_PATH is required for the memory store")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.PredictionURL == "" {
		return nil, errors.New("PREDICTION_API_URL is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaPredictionTopic == "" {
		return nil, errors.New("KAFKA_PREDICTION_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.KafkaShipmentTopic != "" {
		if !cfg.KafkaEnabled() {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_SHIPMENT_TOPIC is set")
		}
		if cfg.StoreDriver != StoreDriverPostgres {
			return nil, errors.New("shipment ingest requires STORE_DRIVER=postgres")
		}
	}

	return cfg, nil
}

// KafkaEnabled reports whether prediction events should be published.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// IngestEnabled reports whether shipment records should be consumed from Kafka.
func (c *Config) IngestEnabled() bool { return c.KafkaEnabled() && c.KafkaShipmentTopic != "" }

// ReportOptions returns the report tunables.
func (c *Config) ReportOptions() report.Options {
	return report.Options{
		DefaultYear: c.DefaultReportYear,
		TopStations: c.TopStationsLimit,
		MoversLimit: c.MoversLimit,
		MaxYoYSpan:  c.MaxYoYSpan,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 1_000_000 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// parseList splits a comma-separated value, dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
