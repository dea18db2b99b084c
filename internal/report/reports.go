package report

import (
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
)

// DayLabels are the day-of-week report labels, Sunday first.
var DayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// QuarterMonths lists the month text belonging to each quarter key accepted
// by the cargo-mix report.
var QuarterMonths = map[string][3]time.Month{
	"Q1": {time.January, time.February, time.March},
	"Q2": {time.April, time.May, time.June},
	"Q3": {time.July, time.August, time.September},
	"Q4": {time.October, time.November, time.December},
}

// AllFilter is the dashboard's "no filter" value for station and quarter selectors.
const AllFilter = "ALL"

// Summary is the headline tonnage card.
type Summary struct {
	Import  float64 `json:"import"`
	Export  float64 `json:"export"`
	Transit float64 `json:"transit"`
	Revenue float64 `json:"revenue"`
}

// TypeTotal is one row of the per-type breakdown.
type TypeTotal struct {
	Type  string  `json:"type"`
	Total float64 `json:"total"`
}

// StationTotal is one row of the station ranking.
type StationTotal struct {
	Station string  `json:"station"`
	Total   float64 `json:"total"`
}

// YearTotal is one row of the yearly series.
type YearTotal struct {
	Year  int     `json:"year"`
	Total float64 `json:"total"`
}

// Heatmap is a years × months grid of summed weight.
type Heatmap struct {
	Years  []int       `json:"years"`
	Months []string    `json:"months"`
	Matrix [][]float64 `json:"matrix"`
	Max    float64     `json:"max"`
}

// Series is a labelled list of values, used by the chart-style reports.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// YearSeries is twelve monthly totals for one year.
type YearSeries struct {
	Year   int       `json:"year"`
	Values []float64 `json:"values"`
}

// YoY holds one monthly series per requested year.
type YoY struct {
	Years []YearSeries `json:"years"`
}

// Quarterly is the quarter split of the most recent year. Year is nil when
// the snapshot has no dated year at all.
type Quarterly struct {
	Year      *int       `json:"year"`
	Quarterly [4]float64 `json:"quarterly"`
}

// Mover is a station's change between a year and the year before.
type Mover struct {
	Station  string  `json:"station"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Delta    float64 `json:"delta"`
}

// Movers lists the biggest gainers and losers for a year.
type Movers struct {
	Year int     `json:"year"`
	Up   []Mover `json:"up"`
	Down []Mover `json:"down"`
}

// BuildSummary totals imports, exports and transit. Revenue tonnage is
// import plus export; transit is TRN IN plus TRN OUT.
func BuildSummary(records []domain.Record) Summary {
	t := GroupSum(records, byType)
	imp := t.Get(domain.TypeImport)
	exp := t.Get(domain.TypeExport)
	return Summary{
		Import:  imp,
		Export:  exp,
		Transit: t.Get(domain.TypeTransitIn) + t.Get(domain.TypeTransitOut),
		Revenue: imp + exp,
	}
}

// BuildTypeTotals sums weight per type code in first-seen order. Blank types
// are reported under domain.UnknownLabel.
func BuildTypeTotals(records []domain.Record) []TypeTotal {
	t := GroupSum(records, byTypeLabel)
	out := make([]TypeTotal, 0, t.Len())
	for _, e := range t.Entries() {
		out = append(out, TypeTotal{Type: e.Key, Total: e.Value})
	}
	return out
}

// BuildTopStations ranks stations by total weight and keeps the first limit.
func BuildTopStations(records []domain.Record, limit int) []StationTotal {
	ranked := TopN(GroupSum(records, byStation), limit)
	out := make([]StationTotal, 0, len(ranked))
	for _, e := range ranked {
		out = append(out, StationTotal{Station: e.Key, Total: e.Value})
	}
	return out
}

// BuildYearly sums weight per year, oldest first. Records without a usable
// year are left out.
func BuildYearly(records []domain.Record) []YearTotal {
	t := GroupSum(records, byYear)
	years := sortedYears(t)
	out := make([]YearTotal, 0, len(years))
	for _, y := range years {
		out = append(out, YearTotal{Year: y, Total: t.Get(y)})
	}
	return out
}

// BuildHeatmap lays out monthly totals as one row per year. Every year with
// at least one record gets a row; absent cells are 0 and count toward Max.
func BuildHeatmap(records []domain.Record) Heatmap {
	cells := GroupSum(records, byYearMonth)
	years := sortedYears(GroupSum(records, byYear))

	matrix := make([][]float64, len(years))
	var peak float64
	for i, y := range years {
		row := make([]float64, 12)
		for m := time.January; m <= time.December; m++ {
			v := cells.Get(yearMonth{year: y, month: m})
			row[m-1] = v
			if v > peak {
				peak = v
			}
		}
		matrix[i] = row
	}

	return Heatmap{
		Years:  years,
		Months: monthLabels(),
		Matrix: matrix,
		Max:    peak,
	}
}

// BuildDailyPattern sums weight per day of week. Records whose flight date
// did not parse contribute nothing to any day.
func BuildDailyPattern(records []domain.Record) Series {
	t := GroupSum(records, byDayOfWeek)
	values := make([]float64, 7)
	for d := 1; d <= 7; d++ {
		values[d-1] = t.Get(d)
	}
	labels := make([]string, len(DayLabels))
	copy(labels, DayLabels[:])
	return Series{Labels: labels, Values: values}
}

// BuildYoY produces a monthly series for each year in [startYear, endYear].
// Years with no records still appear, all zero. A missing or reversed range
// yields no series at all, and so does a range spanning more than maxSpan
// years (DefaultMaxYoYSpan in production) when maxSpan is positive.
func BuildYoY(records []domain.Record, startYear, endYear, maxSpan int) YoY {
	out := YoY{Years: make([]YearSeries, 0)}
	if startYear <= 0 || endYear < startYear {
		return out
	}
	if maxSpan > 0 && endYear-startYear+1 > maxSpan {
		return out
	}

	cells := GroupSum(records, byYearMonth)
	for y := startYear; y <= endYear; y++ {
		values := make([]float64, 12)
		for m := time.January; m <= time.December; m++ {
			values[m-1] = cells.Get(yearMonth{year: y, month: m})
		}
		out.Years = append(out.Years, YearSeries{Year: y, Values: values})
	}
	return out
}

// BuildStationShare reports each station's tonnage for year, largest first.
func BuildStationShare(records []domain.Record, year int) Series {
	return shareSeries(GroupSum(inYear(records, year), byStation))
}

// BuildCategoryShare reports each cargo category's tonnage for year,
// optionally narrowed to one station. Null categories are labelled
// domain.UnknownLabel.
func BuildCategoryShare(records []domain.Record, year int, station string) Series {
	scoped := inYear(records, year)
	if station != "" && station != AllFilter {
		scoped = filter(scoped, func(r domain.Record) bool { return r.Station == station })
	}
	return shareSeries(GroupSum(scoped, byCategory))
}

// BuildQuarterly splits the most recent year's weight into quarters using
// each record's flight date. Undated records are skipped.
func BuildQuarterly(records []domain.Record) Quarterly {
	var out Quarterly
	latest := domain.UnknownYear
	for i := range records {
		if records[i].Year > latest {
			latest = records[i].Year
		}
	}
	if latest == domain.UnknownYear {
		return out
	}
	out.Year = &latest

	t := GroupSum(inYear(records, latest), func(r domain.Record) (int, bool) {
		if !r.HasFlightDate() {
			return 0, false
		}
		return QuarterOf(r.FlightDate.Month()), true
	})
	for q := 1; q <= 4; q++ {
		out.Quarterly[q-1] = t.Get(q)
	}
	return out
}

// BuildGrowthDecline compares station totals for year against year-1. A
// station missing from one of the years counts as 0 there. Up holds the
// largest positive deltas, Down the most negative, each capped at limit.
func BuildGrowthDecline(records []domain.Record, year, limit int) Movers {
	out := Movers{Year: year, Up: make([]Mover, 0), Down: make([]Mover, 0)}
	if year <= 0 {
		return out
	}

	current := GroupSum(inYear(records, year), byStation)
	previous := GroupSum(inYear(records, year-1), byStation)

	stations := current.Keys()
	for _, s := range previous.Keys() {
		if !current.Has(s) {
			stations = append(stations, s)
		}
	}

	deltas := NewTotals[string]()
	for _, s := range stations {
		deltas.Add(s, Delta(current.Get(s), previous.Get(s)))
	}

	mover := func(s string) Mover {
		return Mover{Station: s, Current: current.Get(s), Previous: previous.Get(s), Delta: deltas.Get(s)}
	}

	for _, e := range TopN(deltas, 0) {
		if e.Value > 0 {
			out.Up = append(out.Up, mover(e.Key))
		}
	}
	for _, e := range TopN(negate(deltas), 0) {
		if e.Value > 0 {
			out.Down = append(out.Down, mover(e.Key))
		}
	}

	if limit > 0 {
		out.Up = capMovers(out.Up, limit)
		out.Down = capMovers(out.Down, limit)
	}
	return out
}

// BuildCargoMix sums weight per type for year, optionally restricted to one
// quarter ("Q1".."Q4") by month text. Year 0 yields an empty series.
func BuildCargoMix(records []domain.Record, year int, quarter string) Series {
	if year <= 0 {
		return Series{Labels: make([]string, 0), Values: make([]float64, 0)}
	}
	scoped := inYear(records, year)
	if months, ok := QuarterMonths[quarter]; ok {
		scoped = filter(scoped, func(r domain.Record) bool {
			return r.Month == months[0] || r.Month == months[1] || r.Month == months[2]
		})
	}

	t := GroupSum(scoped, byTypeLabel)
	out := Series{Labels: make([]string, 0, t.Len()), Values: make([]float64, 0, t.Len())}
	for _, e := range t.Entries() {
		out.Labels = append(out.Labels, e.Key)
		out.Values = append(out.Values, e.Value)
	}
	return out
}

// Tonnes converts kilograms to metric tonnes rounded to two decimals.
func Tonnes(kg float64) float64 {
	return math.Round(kg/1000*100) / 100
}

func shareSeries(t *Totals[string]) Series {
	ranked := TopN(t, 0)
	out := Series{Labels: make([]string, 0, len(ranked)), Values: make([]float64, 0, len(ranked))}
	for _, e := range ranked {
		out.Labels = append(out.Labels, e.Key)
		out.Values = append(out.Values, Tonnes(e.Value))
	}
	return out
}

func inYear(records []domain.Record, year int) []domain.Record {
	return filter(records, func(r domain.Record) bool { return r.Year == year })
}

func filter(records []domain.Record, keep func(domain.Record) bool) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for i := range records {
		if keep(records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func negate(t *Totals[string]) *Totals[string] {
	out := NewTotals[string]()
	for _, e := range t.Entries() {
		out.Add(e.Key, -e.Value)
	}
	return out
}

func capMovers(m []Mover, limit int) []Mover {
	if len(m) > limit {
		return m[:limit]
	}
	return m
}

func sortedYears(t *Totals[int]) []int {
	years := t.Keys()
	sort.Ints(years)
	return years
}

func monthLabels() []string {
	out := make([]string, len(domain.MonthLabels))
	copy(out, domain.MonthLabels[:])
	return out
}
