package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/couchcryptid/cargo-analytics/internal/dashboard"
	"github.com/couchcryptid/cargo-analytics/internal/domain"
	"github.com/couchcryptid/cargo-analytics/internal/report"
)

// Dashboard is the report and prediction service behind the API.
type Dashboard interface {
	CheckReadiness(ctx context.Context) error

	Summary(ctx context.Context) (report.Summary, error)
	TypeTotals(ctx context.Context) ([]report.TypeTotal, error)
	TopStations(ctx context.Context) ([]report.StationTotal, error)
	Yearly(ctx context.Context) ([]report.YearTotal, error)
	Heatmap(ctx context.Context) (report.Heatmap, error)
	DailyPattern(ctx context.Context) (report.Series, error)
	YoY(ctx context.Context, startYear, endYear int, cargoType string) (report.YoY, error)
	StationShare(ctx context.Context, year int) (report.Series, error)
	CategoryShare(ctx context.Context, year int, station string) (report.Series, error)
	Quarterly(ctx context.Context) (report.Quarterly, error)
	GrowthDecline(ctx context.Context, year int) (report.Movers, error)
	CargoMix(ctx context.Context, year int, quarter string) (report.Series, error)

	Predict(ctx context.Context, body []byte) (dashboard.PredictResponse, error)
	ListPredictions(ctx context.Context) ([]domain.PredictionRecord, error)
}

// reportRequest is the body of the POST report endpoints. Year may be a
// number or a numeric string.
type reportRequest struct {
	Year    any    `json:"year"`
	Station string `json:"station"`
	Quarter string `json:"quarter"`
}

// respond writes v, or a 500 naming the failed report.
func respond[T any](s *Server, w http.ResponseWriter, r *http.Request, name string, v T, err error) {
	if err != nil {
		s.logger.Error("report failed", "report", name, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: name + " failed"})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.Summary(r.Context())
	respond(s, w, r, "summary", v, err)
}

func (s *Server) handleTypeTotals(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.TypeTotals(r.Context())
	respond(s, w, r, "all", v, err)
}

func (s *Server) handleTopStations(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.TopStations(r.Context())
	respond(s, w, r, "top-stations", v, err)
}

func (s *Server) handleYearly(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.Yearly(r.Context())
	respond(s, w, r, "yearly", v, err)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.Heatmap(r.Context())
	respond(s, w, r, "heatmap", v, err)
}

func (s *Server) handleDailyPattern(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.DailyPattern(r.Context())
	respond(s, w, r, "daily-pattern", v, err)
}

// handleYoY serves one monthly series per year in [startYear, endYear].
// Ranges wider than the configured MAX_YOY_SPAN answer {"years":[]}, the
// same as a missing or reversed range.
func (s *Server) handleYoY(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := s.dashboard.YoY(r.Context(),
		domain.ParseYear(q.Get("startYear")),
		domain.ParseYear(q.Get("endYear")),
		q.Get("cargoType"),
	)
	respond(s, w, r, "yoy", v, err)
}

func (s *Server) handleStationShare(w http.ResponseWriter, r *http.Request) {
	req := decodeBody[reportRequest](w, r)
	v, err := s.dashboard.StationShare(r.Context(), domain.ParseYear(req.Year))
	respond(s, w, r, "station share", v, err)
}

func (s *Server) handleCategoryShare(w http.ResponseWriter, r *http.Request) {
	req := decodeBody[reportRequest](w, r)
	v, err := s.dashboard.CategoryShare(r.Context(), domain.ParseYear(req.Year), req.Station)
	respond(s, w, r, "cargo share", v, err)
}

func (s *Server) handleQuarterly(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.Quarterly(r.Context())
	respond(s, w, r, "quarterly", v, err)
}

func (s *Server) handleGrowthDecline(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.GrowthDecline(r.Context(), domain.ParseYear(r.URL.Query().Get("year")))
	respond(s, w, r, "growth-decline", v, err)
}

func (s *Server) handleCargoMix(w http.ResponseWriter, r *http.Request) {
	req := decodeBody[reportRequest](w, r)
	v, err := s.dashboard.CargoMix(r.Context(), domain.ParseYear(req.Year), req.Quarter)
	respond(s, w, r, "cargo-mix", v, err)
}

type predictError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		status := http.StatusInternalServerError
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.logger.Warn("prediction request body unreadable", "error", err)
		writeJSON(w, status, predictError{
			Status:  "error",
			Message: "Prediction service failed",
			Details: err.Error(),
		})
		return
	}
	res, err := s.dashboard.Predict(r.Context(), body)
	if err != nil {
		s.logger.Error("prediction failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, predictError{
			Status:  "error",
			Message: "Prediction service failed",
			Details: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.ListPredictions(r.Context())
	respond(s, w, r, "getAll", v, err)
}

func handleBanner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Cargo Analytics Backend Running..."))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ts": domain.Now().UnixMilli()})
}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.dashboard.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
