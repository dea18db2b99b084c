// Package report implements the aggregation primitives and the fixed set of
// dashboard reports built from them. Everything here is pure: functions read
// normalized records and return fresh values, so concurrent callers need no
// coordination.
package report

import (
	"sort"
	"time"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
)

// Totals holds summed weights per key and remembers the order in which keys
// were first seen, which makes ranking ties deterministic.
type Totals[K comparable] struct {
	keys []K
	sums map[K]float64
}

// NewTotals returns an empty Totals.
func NewTotals[K comparable]() *Totals[K] {
	return &Totals[K]{sums: make(map[K]float64)}
}

// Add accumulates v under key.
func (t *Totals[K]) Add(key K, v float64) {
	if _, ok := t.sums[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.sums[key] += v
}

// Get returns the total for key, or 0 when the key was never seen.
func (t *Totals[K]) Get(key K) float64 { return t.sums[key] }

// Has reports whether key was seen.
func (t *Totals[K]) Has(key K) bool {
	_, ok := t.sums[key]
	return ok
}

// Keys returns the keys in first-seen order.
func (t *Totals[K]) Keys() []K {
	out := make([]K, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of distinct keys.
func (t *Totals[K]) Len() int { return len(t.keys) }

// Sum returns the total over all keys.
func (t *Totals[K]) Sum() float64 {
	var s float64
	for _, k := range t.keys {
		s += t.sums[k]
	}
	return s
}

// Entry is one ranked key/value pair.
type Entry[K comparable] struct {
	Key   K
	Value float64
}

// Entries returns all totals in first-seen order.
func (t *Totals[K]) Entries() []Entry[K] {
	out := make([]Entry[K], len(t.keys))
	for i, k := range t.keys {
		out[i] = Entry[K]{Key: k, Value: t.sums[k]}
	}
	return out
}

// GroupSum sums WeightKg per key. keyFn reports false for records that have
// no key; those records are left out of the result rather than zero-filled.
func GroupSum[K comparable](records []domain.Record, keyFn func(domain.Record) (K, bool)) *Totals[K] {
	totals := NewTotals[K]()
	for i := range records {
		key, ok := keyFn(records[i])
		if !ok {
			continue
		}
		totals.Add(key, records[i].WeightKg)
	}
	return totals
}

// TopN ranks totals by value, largest first. Ties keep first-seen order.
// n <= 0 returns every entry.
func TopN[K comparable](totals *Totals[K], n int) []Entry[K] {
	entries := totals.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// QuarterOf maps a month to its quarter, 1..4. Returns 0 for an invalid month.
func QuarterOf(m time.Month) int {
	if m < time.January || m > time.December {
		return 0
	}
	return (int(m)-1)/3 + 1
}

// DayOfWeek returns 1 (Sunday) through 7 (Saturday), or 0 for the zero time.
func DayOfWeek(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	return int(t.Weekday()) + 1
}

// Delta is the growth of a key between two periods.
func Delta(current, previous float64) float64 {
	return current - previous
}

// Key functions shared by the reports.

func byType(r domain.Record) (string, bool) { return r.Type, r.Type != "" }

func byTypeLabel(r domain.Record) (string, bool) { return r.TypeLabel(), true }

func byStation(r domain.Record) (string, bool) { return r.Station, r.Station != "" }

func byCategory(r domain.Record) (string, bool) { return r.CategoryLabel(), true }

func byYear(r domain.Record) (int, bool) { return r.Year, r.HasYear() }

type yearMonth struct {
	year  int
	month time.Month
}

func byYearMonth(r domain.Record) (yearMonth, bool) {
	return yearMonth{year: r.Year, month: r.Month}, r.HasYear() && r.HasMonth()
}

func byDayOfWeek(r domain.Record) (int, bool) {
	d := DayOfWeek(r.FlightDate)
	return d, d != 0
}
