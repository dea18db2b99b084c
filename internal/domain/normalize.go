package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FlightDateLayout is the only accepted "Accept Flight Date" layout,
// day-abbreviatedMonth-2digitYear, e.g. "05-Jan-24" or "5-Jan-24".
const FlightDateLayout = "2-Jan-06"

// monthAbbrevs maps the export's month text to calendar months.
var monthAbbrevs = map[string]time.Month{
	"Jan": time.January,
	"Feb": time.February,
	"Mar": time.March,
	"Apr": time.April,
	"May": time.May,
	"Jun": time.June,
	"Jul": time.July,
	"Aug": time.August,
	"Sep": time.September,
	"Oct": time.October,
	"Nov": time.November,
	"Dec": time.December,
}

// MonthLabels lists the month abbreviations in calendar order.
var MonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Normalize coerces a raw export row into a Record. It never fails: fields
// that cannot be parsed fall back to their zero value.
func Normalize(raw RawRecord) Record {
	var category string
	if raw.CargoCategory != nil {
		category = strings.TrimSpace(*raw.CargoCategory)
	}
	return Record{
		Year:       ParseYear(raw.Year),
		Month:      ParseMonth(raw.Month),
		FlightDate: ParseFlightDate(raw.FlightDate),
		Station:    strings.TrimSpace(raw.Station),
		Type:       NormalizeType(raw.Type),
		Category:   category,
		MainOrDom:  strings.TrimSpace(raw.MainOrDom),
		WeightKg:   ParseWeight(raw.WeightKg),
	}
}

// NormalizeAll normalizes a snapshot, preserving order.
func NormalizeAll(raws []RawRecord) []Record {
	out := make([]Record, len(raws))
	for i := range raws {
		out[i] = Normalize(raws[i])
	}
	return out
}

// ParseWeight converts a weight cell to kilograms. Numbers pass through;
// anything else is stringified, stripped of thousands separators and parsed.
// Returns 0 on any failure.
func ParseWeight(v any) float64 {
	switch w := v.(type) {
	case nil:
		return 0
	case float64:
		return finiteOrZero(w)
	case float32:
		return finiteOrZero(float64(w))
	case int:
		return float64(w)
	case int32:
		return float64(w)
	case int64:
		return float64(w)
	case json.Number:
		return parseFloatOrZero(strings.ReplaceAll(w.String(), ",", ""))
	case string:
		return parseFloatOrZero(strings.ReplaceAll(w, ",", ""))
	case []byte:
		return parseFloatOrZero(strings.ReplaceAll(string(w), ",", ""))
	default:
		return parseFloatOrZero(strings.ReplaceAll(fmt.Sprint(w), ",", ""))
	}
}

// yearText is the accepted textual year: digits with an optional all-zero
// fraction. The Postgres store filters with the same pattern.
var yearText = regexp.MustCompile(`^[0-9]+(\.0+)?$`)

// ParseYear converts a year cell to an integer year, or UnknownYear.
// Integral floats (2024.0) are accepted since JSON numbers decode as float64.
// Text must match yearText once trimmed, so "+2024" or "2.024e3" are unknown.
func ParseYear(v any) int {
	switch y := v.(type) {
	case int:
		return validYear(y)
	case int64:
		return validYear(int(y))
	case float64:
		if math.IsNaN(y) || math.IsInf(y, 0) || y != math.Trunc(y) {
			return UnknownYear
		}
		return validYear(int(y))
	case json.Number:
		return parseYearText(y.String())
	case string:
		return parseYearText(y)
	case []byte:
		return parseYearText(string(y))
	default:
		return UnknownYear
	}
}

func parseYearText(s string) int {
	s = strings.TrimSpace(s)
	if !yearText.MatchString(s) {
		return UnknownYear
	}
	digits, _, _ := strings.Cut(s, ".")
	y, err := strconv.Atoi(digits)
	if err != nil {
		return UnknownYear
	}
	return validYear(y)
}

// ParseMonth matches trimmed month text against Jan..Dec, case-sensitively.
// Returns 0 when unmatched.
func ParseMonth(s string) time.Month {
	return monthAbbrevs[strings.TrimSpace(s)]
}

// ParseFlightDate parses s with FlightDateLayout. Empty or mismatching input
// yields the zero time.
func ParseFlightDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(FlightDateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NormalizeType trims and upper-cases a shipment type code.
func NormalizeType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
func parseFloatOrZero(s string) float64 {
	v := parseFloatOrNaN(s)
	if math.IsNaN(v) {
		return 0
	}
	return finiteOrZero(v)
}

func parseFloatOrNaN(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func validYear(y int) int {
	if y <= 0 {
		return UnknownYear
	}
	return y
}
