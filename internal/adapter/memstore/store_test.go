package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
)

const fixturePath = "testdata/records.json"

func stations(records []domain.RawRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Station
	}
	return out
}

func TestLoadFile(t *testing.T) {
	s, err := LoadFile(fixturePath)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())

	records, err := s.FindRecords(context.Background(), domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"DEL", " BOM ", "DEL", "MAA"}, stations(records))
	assert.Nil(t, records[1].CargoCategory)
	assert.Equal(t, "1,200", records[0].WeightKg)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("testdata/nope.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read fixture")
}

func TestFindRecords_Filter(t *testing.T) {
	s, err := LoadFile(fixturePath)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter domain.Filter
		want   []string
	}{
		{"year", domain.Filter{Year: 2024}, []string{"DEL", " BOM "}},
		{"station normalized", domain.Filter{Station: "BOM"}, []string{" BOM "}},
		{"type normalized", domain.Filter{Type: "EXPORT"}, []string{" BOM "}},
		{"year and station", domain.Filter{Year: 2023, Station: "DEL"}, []string{"DEL"}},
		{"no match", domain.Filter{Year: 1999}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindRecords(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stations(got))
		})
	}
}

func TestFindRecords_CanceledContext(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.FindRecords(ctx, domain.Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictions_NewestFirst(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })

	s := New(nil)
	ctx := context.Background()

	first, err := s.InsertPrediction(ctx, domain.PredictionRecord{Station: "DEL"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, clock.Now(), first.CreatedAt)

	// Same timestamp: later insert still lists first.
	tie, err := s.InsertPrediction(ctx, domain.PredictionRecord{Station: "BOM"})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	last, err := s.InsertPrediction(ctx, domain.PredictionRecord{Station: "MAA"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, last.ID)

	list, err := s.ListPredictions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{last.ID, tie.ID, first.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestListPredictions_Empty(t *testing.T) {
	list, err := New(nil).ListPredictions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestInsertPrediction_ReadOnly(t *testing.T) {
	s := New(nil, WithReadOnly())
	_, err := s.InsertPrediction(context.Background(), domain.PredictionRecord{})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestNew_CopiesInput(t *testing.T) {
	records := []domain.RawRecord{{Station: "DEL"}}
	s := New(records)
	records[0].Station = "BOM"

	got, err := s.FindRecords(context.Background(), domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "DEL", got[0].Station)
}
