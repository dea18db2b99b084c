package report

import (
	"encoding/json"
	"testing"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// fixture mixes clean rows with the formatting problems seen in the export.
func fixture() []domain.Record {
	return domain.NormalizeAll([]domain.RawRecord{
		{Year: 2024.0, Month: "Jan", FlightDate: "07-Jan-24", Station: "DEL", Type: "IMPORT", CargoCategory: strPtr("GENERAL"), WeightKg: "1,500"},
		{Year: "2024", Month: " Feb ", FlightDate: "08-Feb-24", Station: "BOM", Type: "export", CargoCategory: nil, WeightKg: 700.0},
		{Year: 2024.0, Month: "Apr", FlightDate: "", Station: "DEL", Type: "TRN IN", CargoCategory: strPtr("PERISHABLE"), WeightKg: 300.0},
		{Year: 2023.0, Month: "Dec", FlightDate: "30-Dec-23", Station: "DEL", Type: "TRN OUT", CargoCategory: strPtr("GENERAL"), WeightKg: "200"},
		{Year: 2023.0, Month: "Mar", FlightDate: "bad date", Station: "MAA", Type: "IMPORT", CargoCategory: strPtr("GENERAL"), WeightKg: 400.0},
		{Year: "unknown", Month: "Jan", FlightDate: "10-Jan-24", Station: "CCU", Type: "IMPORT", WeightKg: 50.0},
		{Year: 2024.0, Month: "Oct", FlightDate: "15-Oct-24", Station: "", Type: "", WeightKg: nil},
	})
}

func TestBuildSummary(t *testing.T) {
	got := BuildSummary(fixture())

	assert.InDelta(t, 1950.0, got.Import, 1e-9) // 1500 + 400 + 50
	assert.InDelta(t, 700.0, got.Export, 1e-9)
	assert.InDelta(t, 500.0, got.Transit, 1e-9)
	assert.InDelta(t, 2650.0, got.Revenue, 1e-9)
}

func TestBuildSummary_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, BuildSummary(nil))
}

func TestBuildTypeTotals(t *testing.T) {
	got := BuildTypeTotals(fixture())

	want := []TypeTotal{
		{Type: "IMPORT", Total: 1950},
		{Type: "EXPORT", Total: 700},
		{Type: "TRN IN", Total: 300},
		{Type: "TRN OUT", Total: 200},
		{Type: domain.UnknownLabel, Total: 0},
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestBuildTopStations(t *testing.T) {
	got := BuildTopStations(fixture(), DefaultTopStations)

	want := []StationTotal{
		{Station: "DEL", Total: 2000},
		{Station: "BOM", Total: 700},
		{Station: "MAA", Total: 400},
		{Station: "CCU", Total: 50},
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestBuildTopStations_Limit(t *testing.T) {
	var records []domain.Record
	for i := range 15 {
		records = append(records, domain.Record{Station: string(rune('A' + i)), WeightKg: float64(i)})
	}

	got := BuildTopStations(records, 10)

	require.Len(t, got, 10)
	assert.Equal(t, "O", got[0].Station)
	assert.Equal(t, "F", got[9].Station)
}

func TestBuildYearly(t *testing.T) {
	got := BuildYearly(fixture())

	want := []YearTotal{
		{Year: 2023, Total: 600},
		{Year: 2024, Total: 2500},
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestBuildHeatmap(t *testing.T) {
	got := BuildHeatmap(fixture())

	assert.Equal(t, []int{2023, 2024}, got.Years)
	assert.Equal(t, domain.MonthLabels[:], got.Months)
	require.Len(t, got.Matrix, 2)
	for _, row := range got.Matrix {
		assert.Len(t, row, 12)
	}
	assert.InDelta(t, 400.0, got.Matrix[0][2], 1e-9)  // 2023 Mar
	assert.InDelta(t, 200.0, got.Matrix[0][11], 1e-9) // 2023 Dec
	assert.InDelta(t, 1500.0, got.Matrix[1][0], 1e-9) // 2024 Jan
	assert.InDelta(t, 700.0, got.Matrix[1][1], 1e-9)  // 2024 Feb
	assert.Zero(t, got.Matrix[1][5])
	assert.InDelta(t, 1500.0, got.Max, 1e-9)
}

func TestBuildHeatmap_MaxIncludesZeroCells(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		got := BuildHeatmap(nil)
		assert.Empty(t, got.Years)
		assert.NotNil(t, got.Matrix)
		assert.Zero(t, got.Max)
	})

	t.Run("only zero weights", func(t *testing.T) {
		got := BuildHeatmap([]domain.Record{{Year: 2024, Month: 3}})
		require.Len(t, got.Matrix, 1)
		assert.Zero(t, got.Max)
	})

	t.Run("year without valid month gets zero row", func(t *testing.T) {
		got := BuildHeatmap([]domain.Record{{Year: 2022, WeightKg: 80}})
		assert.Equal(t, []int{2022}, got.Years)
		assert.Equal(t, make([]float64, 12), got.Matrix[0])
		assert.Zero(t, got.Max)
	})
}

func TestBuildDailyPattern_ExcludesUndatedRecords(t *testing.T) {
	records := fixture()

	got := BuildDailyPattern(records)

	assert.Equal(t, DayLabels[:], got.Labels)
	require.Len(t, got.Values, 7)

	var sum, total float64
	for _, v := range got.Values {
		sum += v
	}
	for _, r := range records {
		total += r.WeightKg
	}
	// The empty-date (300) and "bad date" (400) rows are dropped, not zeroed.
	assert.InDelta(t, total-700, sum, 1e-9)
	assert.Less(t, sum, total)

	assert.InDelta(t, 1500.0, got.Values[0], 1e-9) // 07-Jan-24 Sunday
	assert.InDelta(t, 700.0, got.Values[4], 1e-9)  // 08-Feb-24 Thursday
	assert.InDelta(t, 200.0, got.Values[6], 1e-9)  // 30-Dec-23 Saturday
	assert.InDelta(t, 50.0, got.Values[3], 1e-9)   // 10-Jan-24 Wednesday
}

func TestBuildYoY(t *testing.T) {
	t.Run("zero-filled years", func(t *testing.T) {
		got := BuildYoY(nil, 2023, 2024, DefaultMaxYoYSpan)

		want := YoY{Years: []YearSeries{
			{Year: 2023, Values: make([]float64, 12)},
			{Year: 2024, Values: make([]float64, 12)},
		}}
		assert.Empty(t, cmp.Diff(want, got))
	})

	t.Run("monthly values", func(t *testing.T) {
		got := BuildYoY(fixture(), 2023, 2025, DefaultMaxYoYSpan)

		require.Len(t, got.Years, 3)
		assert.InDelta(t, 400.0, got.Years[0].Values[2], 1e-9)
		assert.InDelta(t, 1500.0, got.Years[1].Values[0], 1e-9)
		assert.InDelta(t, 300.0, got.Years[1].Values[3], 1e-9)
		assert.Equal(t, make([]float64, 12), got.Years[2].Values)
	})

	t.Run("invalid ranges are empty", func(t *testing.T) {
		for _, r := range [][2]int{{0, 2024}, {2024, 0}, {2025, 2024}, {1900, 2024}} {
			got := BuildYoY(fixture(), r[0], r[1], DefaultMaxYoYSpan)
			assert.NotNil(t, got.Years)
			assert.Empty(t, got.Years, "range %v", r)
		}
	})
}

func TestBuildStationShare(t *testing.T) {
	got := BuildStationShare(fixture(), 2024)

	assert.Equal(t, []string{"DEL", "BOM"}, got.Labels)
	assert.Equal(t, []float64{1.8, 0.7}, got.Values)
}

func TestBuildCategoryShare(t *testing.T) {
	t.Run("null category is UNKNOWN", func(t *testing.T) {
		got := BuildCategoryShare(fixture(), 2024, "")
		assert.Equal(t, []string{"GENERAL", domain.UnknownLabel, "PERISHABLE"}, got.Labels)
		assert.Equal(t, []float64{1.5, 0.7, 0.3}, got.Values)
	})

	t.Run("station filter", func(t *testing.T) {
		got := BuildCategoryShare(fixture(), 2024, "DEL")
		assert.Equal(t, []string{"GENERAL", "PERISHABLE"}, got.Labels)
		assert.Equal(t, []float64{1.5, 0.3}, got.Values)
	})

	t.Run("ALL means no station filter", func(t *testing.T) {
		assert.Equal(t, BuildCategoryShare(fixture(), 2024, ""), BuildCategoryShare(fixture(), 2024, AllFilter))
	})
}

func TestShare_RoundsToTwoDecimals(t *testing.T) {
	records := []domain.Record{
		{Year: 2025, Station: "DEL", WeightKg: 1234.567},
		{Year: 2025, Station: "BOM", WeightKg: 987.654},
		{Year: 2025, Station: "DEL", WeightKg: 10.001},
	}

	got := BuildStationShare(records, 2025)

	assert.Equal(t, []float64{1.24, 0.99}, got.Values)
	var tonnes, kg float64
	for _, v := range got.Values {
		tonnes += v
	}
	for _, r := range records {
		kg += r.WeightKg
	}
	assert.InDelta(t, kg, tonnes*1000, 0.005*1000*float64(len(got.Values)))
}

func TestBuildQuarterly(t *testing.T) {
	got := BuildQuarterly(fixture())

	require.NotNil(t, got.Year)
	assert.Equal(t, 2024, *got.Year)
	// 2024 rows: Jan 1500, Feb 700, Apr (undated) 300 skipped, Oct 0.
	assert.Equal(t, [4]float64{2200, 0, 0, 0}, got.Quarterly)
}

func TestBuildQuarterly_Empty(t *testing.T) {
	got := BuildQuarterly(nil)

	assert.Nil(t, got.Year)
	assert.Equal(t, [4]float64{}, got.Quarterly)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"year":null,"quarterly":[0,0,0,0]}`, string(data))
}

func TestBuildGrowthDecline(t *testing.T) {
	records := []domain.Record{
		{Year: 2024, Station: "A", WeightKg: 500},
		{Year: 2023, Station: "A", WeightKg: 300},
		{Year: 2023, Station: "B", WeightKg: 400},
		{Year: 2024, Station: "C", WeightKg: 50},
		{Year: 2024, Station: "D", WeightKg: 10},
		{Year: 2023, Station: "D", WeightKg: 10},
		{Year: 2022, Station: "E", WeightKg: 1000},
	}

	got := BuildGrowthDecline(records, 2024, DefaultMoversLimit)

	assert.Equal(t, 2024, got.Year)
	want := []Mover{
		{Station: "A", Current: 500, Previous: 300, Delta: 200},
		{Station: "C", Current: 50, Previous: 0, Delta: 50},
	}
	assert.Empty(t, cmp.Diff(want, got.Up))
	assert.Empty(t, cmp.Diff([]Mover{{Station: "B", Current: 0, Previous: 400, Delta: -400}}, got.Down))
}

func TestBuildGrowthDecline_OrderingAndLimit(t *testing.T) {
	var records []domain.Record
	for i := 1; i <= 7; i++ {
		name := string(rune('A' + i))
		records = append(records,
			domain.Record{Year: 2025, Station: "up" + name, WeightKg: float64(i * 10)},
			domain.Record{Year: 2024, Station: "down" + name, WeightKg: float64(i * 10)},
		)
	}

	got := BuildGrowthDecline(records, 2025, 5)

	require.Len(t, got.Up, 5)
	require.Len(t, got.Down, 5)
	assert.InDelta(t, 70.0, got.Up[0].Delta, 1e-9)
	assert.InDelta(t, 30.0, got.Up[4].Delta, 1e-9)
	assert.InDelta(t, -70.0, got.Down[0].Delta, 1e-9)
	assert.InDelta(t, -30.0, got.Down[4].Delta, 1e-9)
}

func TestBuildGrowthDecline_MissingYear(t *testing.T) {
	got := BuildGrowthDecline(fixture(), 0, DefaultMoversLimit)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"year":0,"up":[],"down":[]}`, string(data))
}

func TestBuildCargoMix(t *testing.T) {
	t.Run("whole year", func(t *testing.T) {
		got := BuildCargoMix(fixture(), 2024, AllFilter)
		assert.Equal(t, []string{"IMPORT", "EXPORT", "TRN IN", domain.UnknownLabel}, got.Labels)
		assert.Equal(t, []float64{1500, 700, 300, 0}, got.Values)
	})

	t.Run("single quarter", func(t *testing.T) {
		got := BuildCargoMix(fixture(), 2024, "Q2")
		assert.Equal(t, []string{"TRN IN"}, got.Labels)
		assert.Equal(t, []float64{300}, got.Values)
	})

	t.Run("missing year", func(t *testing.T) {
		data, err := json.Marshal(BuildCargoMix(fixture(), 0, ""))
		require.NoError(t, err)
		assert.JSONEq(t, `{"labels":[],"values":[]}`, string(data))
	})
}

func TestReports_Idempotent(t *testing.T) {
	records := fixture()

	builders := map[string]func() any{
		"summary":   func() any { return BuildSummary(records) },
		"types":     func() any { return BuildTypeTotals(records) },
		"top":       func() any { return BuildTopStations(records, DefaultTopStations) },
		"yearly":    func() any { return BuildYearly(records) },
		"heatmap":   func() any { return BuildHeatmap(records) },
		"daily":     func() any { return BuildDailyPattern(records) },
		"yoy":       func() any { return BuildYoY(records, 2022, 2025, DefaultMaxYoYSpan) },
		"station":   func() any { return BuildStationShare(records, 2024) },
		"category":  func() any { return BuildCategoryShare(records, 2024, "") },
		"quarterly": func() any { return BuildQuarterly(records) },
		"movers":    func() any { return BuildGrowthDecline(records, 2024, DefaultMoversLimit) },
		"mix":       func() any { return BuildCargoMix(records, 2024, "Q1") },
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			first, err := json.Marshal(build())
			require.NoError(t, err)
			second, err := json.Marshal(build())
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}
