package prediction

import (
	"github.com/goccy/go-json"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
)

// weightKeys lists the response fields checked for the predicted weight, in order.
var weightKeys = []string{"predicted_weight_kg", "predictedWeightKg", "prediction", "predicted_weight"}

// PredictedWeight extracts the predicted weight from an upstream response.
// The response may be a bare number or numeric string, or an object holding
// the value under one of weightKeys, possibly nested one object deep.
// Anything else yields 0.
func PredictedWeight(raw []byte) float64 {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return weightFrom(v, 2)
}

func weightFrom(v any, depth int) float64 {
	switch t := v.(type) {
	case float64, string:
		return domain.ParseWeight(t)
	case map[string]any:
		if depth == 0 {
			return 0
		}
		for _, k := range weightKeys {
			if inner, ok := t[k]; ok && inner != nil {
				return weightFrom(inner, depth-1)
			}
		}
	}
	return 0
}
