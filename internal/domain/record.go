package domain

import "time"

// UnknownLabel is the bucket label for records whose grouping field is blank.
const UnknownLabel = "UNKNOWN"

// UnknownYear marks a record whose year could not be parsed.
const UnknownYear = 0

// Shipment type codes after normalization.
const (
	TypeImport     = "IMPORT"
	TypeExport     = "EXPORT"
	TypeTransitIn  = "TRN IN"
	TypeTransitOut = "TRN OUT"
)

// RawRecord is a shipment row as stored by the export. Year and WeightKg are
// untyped because the export mixes numbers and strings in those columns.
type RawRecord struct {
	Year          any     `json:"Year Text"`
	Month         string  `json:"Month Short Text"`
	FlightDate    string  `json:"Accept Flight Date"`
	Station       string  `json:"Station"`
	Type          string  `json:"TYPE"`
	CargoCategory *string `json:"Tonnages Product Final"`
	MainOrDom     string  `json:"Main or DOM"`
	WeightKg      any     `json:"Weight KG"`
}

// Record is the canonical, aggregation-safe form of a RawRecord.
type Record struct {
	Year       int        // UnknownYear when unparseable
	Month      time.Month // 0 when not one of Jan..Dec
	FlightDate time.Time  // zero when unparseable
	Station    string
	Type       string // upper-cased; empty when missing
	Category   string // empty when null
	MainOrDom  string
	WeightKg   float64
}

// HasYear reports whether the record carries a usable year.
func (r Record) HasYear() bool { return r.Year != UnknownYear }

// HasMonth reports whether the month text matched Jan..Dec.
func (r Record) HasMonth() bool { return r.Month >= time.January && r.Month <= time.December }

// HasFlightDate reports whether the flight date parsed.
func (r Record) HasFlightDate() bool { return !r.FlightDate.IsZero() }

// CategoryLabel returns the category, or UnknownLabel when blank.
func (r Record) CategoryLabel() string {
	if r.Category == "" {
		return UnknownLabel
	}
	return r.Category
}

// TypeLabel returns the type code, or UnknownLabel when blank.
func (r Record) TypeLabel() string {
	if r.Type == "" {
		return UnknownLabel
	}
	return r.Type
}

// Filter narrows a datastore query. Zero values mean "any".
type Filter struct {
	Year    int
	Station string
	Type    string
}

// Matches reports whether a normalized record satisfies the filter. Stores
// that cannot push the filter down use it to filter after normalization.
func (f Filter) Matches(r Record) bool {
	if f.Year != 0 && r.Year != f.Year {
		return false
	}
	if f.Station != "" && r.Station != f.Station {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	return true
}
