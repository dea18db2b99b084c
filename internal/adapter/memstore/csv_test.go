package memstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
)

func TestReadRecords_CSV(t *testing.T) {
	records, err := ReadRecords("testdata/records.csv")
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "2024", first.Year)
	assert.Equal(t, "1,200", first.WeightKg)
	require.NotNil(t, first.CargoCategory)
	assert.Equal(t, "GENERAL", *first.CargoCategory)

	second := domain.Normalize(records[1])
	assert.Equal(t, "BOM", second.Station)
	assert.Equal(t, "EXPORT", second.Type)
	assert.Nil(t, records[1].CargoCategory)
	assert.InDelta(t, 800, second.WeightKg, 1e-9)

	assert.Nil(t, records[2].Year)
	assert.Zero(t, domain.Normalize(records[2]).WeightKg)
}

func TestReadCSV_Empty(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadCSV_MissingColumns(t *testing.T) {
	records, err := ReadCSV(strings.NewReader("\ufeffStation,Weight KG\nDEL,5\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "DEL", records[0].Station)
	assert.Equal(t, "5", records[0].WeightKg)
	assert.Nil(t, records[0].Year)
	assert.Empty(t, records[0].Type)
}

func TestReadCSV_MalformedQuote(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Station\n\"DEL\n"))
	assert.Error(t, err)
}
