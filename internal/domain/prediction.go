package domain

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Predictor forwards a prediction request body to the prediction service.
type Predictor interface {
	Predict(ctx context.Context, body []byte) (PredictionResult, error)
}

// PredictionResult is the prediction service's answer.
type PredictionResult struct {
	// Body is the service's JSON response, passed back to callers unchanged.
	Body json.RawMessage
	// PredictedWeightKg is the predicted weight found in Body, or 0.
	PredictedWeightKg float64
}

// PredictionRecord is one forwarded prediction request together with the
// weight the prediction service returned. Records are append-only.
type PredictionRecord struct {
	ID                string    `json:"id"`
	Year              int       `json:"Year Text,omitempty"`
	Month             string    `json:"Month Short Text,omitempty"`
	FlightDate        string    `json:"Accept Flight Date,omitempty"`
	Station           string    `json:"Station,omitempty"`
	Type              string    `json:"TYPE,omitempty"`
	CargoCategory     string    `json:"Tonnages Product Final,omitempty"`
	MainOrDom         string    `json:"Main or DOM,omitempty"`
	WeightKg          float64   `json:"Weight KG"`
	PredictedWeightKg float64   `json:"Predicted Weight KG"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewPrediction builds an unsaved PredictionRecord from the request fields.
// Text fields are kept as sent (trimmed) so the log mirrors the request;
// year and weight go through the same coercion as shipment rows.
func NewPrediction(req RawRecord, predictedWeightKg float64) PredictionRecord {
	var category string
	if req.CargoCategory != nil {
		category = strings.TrimSpace(*req.CargoCategory)
	}
	return PredictionRecord{
		Year:              ParseYear(req.Year),
		Month:             strings.TrimSpace(req.Month),
		FlightDate:        strings.TrimSpace(req.FlightDate),
		Station:           strings.TrimSpace(req.Station),
		Type:              strings.TrimSpace(req.Type),
		CargoCategory:     category,
		MainOrDom:         strings.TrimSpace(req.MainOrDom),
		WeightKg:          ParseWeight(req.WeightKg),
		PredictedWeightKg: predictedWeightKg,
	}
}
