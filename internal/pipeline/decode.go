package pipeline

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
)

var errEmptyMessage = errors.New("empty message")

// DecodeRecords decodes a message value holding either one shipment record
// object or an array of them.
func DecodeRecords(value []byte) ([]domain.RawRecord, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return nil, errEmptyMessage
	}
	if value[0] == '[' {
		var records []domain.RawRecord
		if err := json.Unmarshal(value, &records); err != nil {
			return nil, fmt.Errorf("decode record array: %w", err)
		}
		return records, nil
	}
	var r domain.RawRecord
	if err := json.Unmarshal(value, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return []domain.RawRecord{r}, nil
}
