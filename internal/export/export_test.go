package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/buildtrends/internal/model"
)

func sampleRecords() []model.BlockGroupRecord {
	mobility := 0.43
	return []model.BlockGroupRecord{
		{
			GEOID:      "490111255012",
			Name:       "Block Group 2, Census Tract 1255.01",
			CountyFIPS: "49011",
			CountyName: "Davis",
			TractFIPS:  "49011125501",
			Centroid:   model.Centroid{Lat: 41.0, Lon: -111.9},
			Tier:       model.InsufficientDataTier,
		},
		{
			GEOID:         "490351126021",
			Name:          "Block Group 1, Census Tract 1126.02",
			CountyFIPS:    "49035",
			CountyName:    "Salt Lake",
			TractFIPS:     "49035112602",
			Centroid:      model.Centroid{Lat: 40.71, Lon: -111.95},
			MobilityScore: &mobility,
			TotalUnits:    350,
			BuiltRecent:   28,
			PctNew:        8,
			MetricDefined: true,
			PctRenter:     35,
			PctCollege:    25,
			Units10Plus:   20,
			Tier:          model.Tier{Label: "Moderate growth", Min: 1, Max: 15, Color: "#3690C0"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "enriched.csv")
	require.NoError(t, WriteCSV(path, sampleRecords()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, columns, rows[0])

	// Undefined metric and absent mobility render empty, not zero.
	davis := rows[1]
	assert.Equal(t, "490111255012", davis[0])
	assert.Equal(t, "", davis[9], "pct_new_construction")
	assert.Equal(t, model.InsufficientDataTier.Label, davis[10])
	assert.Equal(t, "", davis[14], "mobility_score")

	slc := rows[2]
	assert.Equal(t, "490351126021", slc[0])
	assert.Equal(t, "8", slc[9])
	assert.Equal(t, "Moderate growth", slc[10])
	assert.Equal(t, "0.43", slc[14])
}

func TestWriteCSVDeterministic(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.csv")

	require.NoError(t, WriteCSV(first, sampleRecords()))
	require.NoError(t, WriteCSV(second, sampleRecords()))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.xlsx")
	require.NoError(t, WriteXLSX(path, sampleRecords()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	sheet, ok := f.Sheet["Block Groups"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "geoid", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "490111255012", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Moderate growth", sheet.Rows[2].Cells[10].String())

	units, err := sheet.Rows[2].Cells[7].Float()
	require.NoError(t, err)
	assert.Equal(t, 350.0, units)
}

func TestWriteXLSXKeepsIdentityColumnsVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.xlsx")
	require.NoError(t, WriteXLSX(path, sampleRecords()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet := f.Sheet["Block Groups"]
	require.NotNil(t, sheet)

	// GEOIDs and FIPS prefixes are identity, not quantity: they must never
	// pick up scientific notation or lose leading digits.
	slc := sheet.Rows[2]
	assert.Equal(t, "490351126021", slc.Cells[0].String())
	assert.Equal(t, "49035", slc.Cells[2].String())
	assert.Equal(t, "49035112602", slc.Cells[4].String())
	assert.NotContains(t, slc.Cells[0].String(), "E+")

	// Empty metric cells stay empty rather than becoming zero.
	davis := sheet.Rows[1]
	assert.Equal(t, "", davis.Cells[9].String())
	assert.Equal(t, "", davis.Cells[14].String())
}
