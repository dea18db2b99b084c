package memstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
)

// Export column headers.
const (
	colYear       = "Year Text"
	colMonth      = "Month Short Text"
	colFlightDate = "Accept Flight Date"
	colStation    = "Station"
	colType       = "TYPE"
	colCategory   = "Tonnages Product Final"
	colMainOrDom  = "Main or DOM"
	colWeight     = "Weight KG"
)

// ReadCSV parses a shipment export. The first row names the columns; unknown
// columns are ignored and missing ones leave the field empty. Empty year,
// weight and category cells are treated as null.
func ReadCSV(r io.Reader) ([]domain.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []domain.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var records []domain.RawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cell := func(name string) string {
			if i, ok := index[name]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}
		rec := domain.RawRecord{
			Month:      cell(colMonth),
			FlightDate: cell(colFlightDate),
			Station:    cell(colStation),
			Type:       cell(colType),
			MainOrDom:  cell(colMainOrDom),
		}
		if v := cell(colYear); strings.TrimSpace(v) != "" {
			rec.Year = v
		}
		if v := cell(colWeight); strings.TrimSpace(v) != "" {
			rec.WeightKg = v
		}
		if v := cell(colCategory); strings.TrimSpace(v) != "" {
			rec.CargoCategory = &v
		}
		records = append(records, rec)
	}
	if records == nil {
		records = []domain.RawRecord{}
	}
	return records, nil
}
