// Package prediction forwards prediction requests to the upstream
// prediction API.
package prediction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
	"github.com/couchcryptid/cargo-analytics/internal/observability"
)

var (
	// ErrUpstream is returned when the prediction API cannot be reached or
	// answers with a non-2xx status.
	ErrUpstream = errors.New("prediction upstream error")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("prediction service unavailable")

	// errAbandoned marks requests cut short by the caller's own context.
	errAbandoned = errors.New("prediction request abandoned")
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// Options configures the upstream endpoint and breaker.
type Options struct {
	URL         string
	Timeout     time.Duration
	MaxFailures uint32        // consecutive failures before the breaker opens
	OpenTimeout time.Duration // time spent open before a trial request
}

// Client posts prediction requests to the upstream API through a circuit
// breaker. It implements domain.Predictor.
type Client struct {
	url        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[domain.PredictionResult]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a prediction API client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		url:        opts.URL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		metrics:    metrics,
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[domain.PredictionResult](gobreaker.Settings{
		Name:    "prediction-api",
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			var se *statusError
			// 4xx answers mean the upstream is healthy. Abandoned calls say
			// nothing about it either way.
			return err == nil || errors.Is(err, errAbandoned) ||
				(errors.As(err, &se) && se.code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				metrics.PredictionBreakerOpen.Set(1)
			} else {
				metrics.PredictionBreakerOpen.Set(0)
			}
		},
	})
	return c
}

// Predict forwards body to the upstream API and returns its response.
func (c *Client) Predict(ctx context.Context, body []byte) (domain.PredictionResult, error) {
	res, err := c.breaker.Execute(func() (domain.PredictionResult, error) {
		return c.doRequest(ctx, body)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.PredictionForwards.WithLabelValues("rejected").Inc()
		return domain.PredictionResult{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	case err != nil:
		c.metrics.PredictionForwards.WithLabelValues("error").Inc()
		return domain.PredictionResult{}, err
	}
	c.metrics.PredictionForwards.WithLabelValues("success").Inc()
	return res, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) (domain.PredictionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.PredictionResult{}, fmt.Errorf("%w: %w", errAbandoned, ctxErr)
		}
		return domain.PredictionResult{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.PredictionResult{}, fmt.Errorf("%w: %w", errAbandoned, ctxErr)
		}
		return domain.PredictionResult{}, fmt.Errorf("%w: read response: %w", ErrUpstream, err)
	}
	c.logger.Debug("prediction api response", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PredictionResult{}, &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(data))}
	}

	raw := data
	if !json.Valid(data) {
		// Non-JSON answers are passed through as a JSON string.
		if raw, err = json.Marshal(string(data)); err != nil {
			return domain.PredictionResult{}, fmt.Errorf("encode response: %w", err)
		}
	}
	return domain.PredictionResult{Body: raw, PredictedWeightKg: PredictedWeight(raw)}, nil
}

// statusError reports a non-2xx upstream answer.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("prediction API error: status %d: %s", e.code, e.body)
}

func (e *statusError) Unwrap() error { return ErrUpstream }
