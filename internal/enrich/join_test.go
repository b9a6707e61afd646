package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/buildtrends/internal/census"
	"github.com/sells-group/buildtrends/internal/model"
	"github.com/sells-group/buildtrends/internal/reference"
)

func testRefs(geoids ...string) *reference.Set {
	set := &reference.Set{
		Centroids:   make(map[string]model.Centroid),
		Mobility:    map[string]float64{},
		CountyNames: map[string]string{"49035": "Salt Lake", "49011": "Davis"},
		Counties: map[string]model.CountyBoundary{
			"49035": {FIPS: "49035", Name: "Salt Lake"},
			"49011": {FIPS: "49011", Name: "Davis"},
		},
	}
	for i, g := range geoids {
		set.Centroids[g] = model.Centroid{Lat: 40 + float64(i)*0.1, Lon: -111.9}
	}
	return set
}

func surveyRows(geoids ...string) []census.Row {
	rows := make([]census.Row, 0, len(geoids))
	for _, g := range geoids {
		rows = append(rows, census.Row{
			GEOID:  g,
			Name:   "Block Group " + g,
			Values: map[string]float64{"B25034_001E": 100, "B25034_002E": 8},
		})
	}
	return rows
}

func TestJoinAttachesAllSources(t *testing.T) {
	geoids := []string{"490351126021", "490111255012"}
	refs := testRefs(geoids...)
	refs.Mobility["49035112602"] = 0.43

	records, summary, err := Join(surveyRows(geoids...), refs, "49", 0.05)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, summary.Enriched)
	assert.Equal(t, 0, summary.CentroidMisses)

	// Sorted by GEOID.
	assert.Equal(t, "490111255012", records[0].GEOID)
	assert.Equal(t, "490351126021", records[1].GEOID)

	slc := records[1]
	assert.Equal(t, "49035", slc.CountyFIPS)
	assert.Equal(t, "Salt Lake", slc.CountyName)
	assert.Equal(t, "49035112602", slc.TractFIPS)
	require.NotNil(t, slc.MobilityScore)
	assert.InDelta(t, 0.43, *slc.MobilityScore, 1e-9)
	assert.InDelta(t, 40.0, slc.Centroid.Lat, 1e-9)

	davis := records[0]
	assert.Nil(t, davis.MobilityScore, "tract without published score stays nil")
	assert.Equal(t, 1, summary.MobilityMatched)
}

func TestJoinPrefixInvariants(t *testing.T) {
	geoids := []string{"490351126021", "490111255012"}
	records, _, err := Join(surveyRows(geoids...), testRefs(geoids...), "49", 0.05)
	require.NoError(t, err)

	for _, rec := range records {
		assert.True(t, strings.HasPrefix(rec.GEOID, rec.TractFIPS))
		assert.True(t, strings.HasPrefix(rec.TractFIPS, rec.CountyFIPS))
	}
}

func TestJoinAggregatesCentroidMisses(t *testing.T) {
	// 10 rows, 2 with no centroid, escalation allows up to 25%.
	var geoids []string
	for i := 0; i < 10; i++ {
		geoids = append(geoids, fmt.Sprintf("49035112%03d1", i))
	}
	refs := testRefs(geoids[:8]...)

	records, summary, err := Join(surveyRows(geoids...), refs, "49", 0.25)
	require.NoError(t, err)

	assert.Equal(t, 10, summary.SurveyRows)
	assert.Equal(t, 2, summary.CentroidMisses)
	assert.Len(t, summary.MissingGEOIDs, 2)
	assert.Contains(t, summary.MissingGEOIDs, geoids[8])
	assert.Len(t, records, 8, "exactly N-M enriched records")
}

func TestJoinEscalatesWidespreadMismatch(t *testing.T) {
	geoids := []string{"490351126021", "490351126022", "490351126023", "490351126024"}
	refs := testRefs(geoids[0]) // 3 of 4 miss

	_, _, err := Join(surveyRows(geoids...), refs, "49", 0.05)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 4")
}

func TestJoinDeterministic(t *testing.T) {
	// Same inputs twice yields byte-identical ordered output.
	geoids := []string{"490351126021", "490111255012", "490351126022"}
	refs := testRefs(geoids...)
	refs.Mobility["49035112602"] = 0.43

	first, _, err := Join(surveyRows(geoids...), refs, "49", 0.05)
	require.NoError(t, err)
	second, _, err := Join(surveyRows(geoids...), refs, "49", 0.05)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestJoinRejectsInvalidGEOID(t *testing.T) {
	refs := testRefs("490351126021")
	rows := surveyRows("490351126021")
	rows[0].GEOID = "49035"

	_, _, err := Join(rows, refs, "49", 0.05)
	assert.Error(t, err)
}

func TestJoinMissingCountyBoundary(t *testing.T) {
	geoid := "490571126021" // Weber, not present in testRefs boundary table
	refs := testRefs(geoid)

	_, _, err := Join(surveyRows(geoid), refs, "49", 0.05)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "49057")
}

func TestJoinGEOIDsNeverRewritten(t *testing.T) {
	geoids := []string{"490351126021"}
	records, _, err := Join(surveyRows(geoids...), testRefs(geoids...), "49", 0.05)
	require.NoError(t, err)
	assert.Equal(t, geoids[0], records[0].GEOID)
}
