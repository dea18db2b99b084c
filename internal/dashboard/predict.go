package dashboard

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
)

// PredictResponse is returned for a successful prediction.
type PredictResponse struct {
	Status     string          `json:"status"`
	Request    json.RawMessage `json:"request"`
	Prediction json.RawMessage `json:"prediction"`
}

// Predict forwards body to the predictor, stores the outcome in the
// prediction log and publishes it. A body that is not a JSON object is
// forwarded as {}. Publishing failures are logged only.
func (s *Service) Predict(ctx context.Context, body []byte) (PredictResponse, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' || !json.Valid(body) {
		body = []byte("{}")
	}
	var req domain.RawRecord
	if err := json.Unmarshal(body, &req); err != nil {
		// Still forwarded; the log entry just carries fewer fields.
		s.logger.Debug("prediction request fields not recognized", "error", err)
		req = domain.RawRecord{}
	}

	res, err := s.predictor.Predict(ctx, body)
	if err != nil {
		return PredictResponse{}, fmt.Errorf("forward prediction: %w", err)
	}

	stored, err := s.predictions.InsertPrediction(ctx, domain.NewPrediction(req, res.PredictedWeightKg))
	if err != nil {
		return PredictResponse{}, fmt.Errorf("store prediction: %w", err)
	}
	s.logger.Info("prediction stored",
		"id", stored.ID,
		"station", stored.Station,
		"predicted_weight_kg", stored.PredictedWeightKg,
	)

	if s.publisher != nil {
		if err := s.publisher.PublishPrediction(ctx, stored); err != nil {
			s.logger.Warn("publish prediction failed", "id", stored.ID, "error", err)
		}
	}

	prediction := json.RawMessage(res.Body)
	if len(prediction) == 0 {
		prediction = json.RawMessage("null")
	}
	return PredictResponse{
		Status:     "success",
		Request:    json.RawMessage(body),
		Prediction: prediction,
	}, nil
}

// ListPredictions returns the prediction log, newest first.
func (s *Service) ListPredictions(ctx context.Context) ([]domain.PredictionRecord, error) {
	list, err := s.predictions.ListPredictions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	if list == nil {
		list = []domain.PredictionRecord{}
	}
	return list, nil
}
