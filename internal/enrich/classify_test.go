package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/buildtrends/internal/model"
)

func scenarioTiers() []model.Tier {
	return []model.Tier{
		{Label: "low", Min: 0, Max: 5, Color: "#aaa"},
		{Label: "medium", Min: 5, Max: 15, Color: "#bbb"},
		{Label: "high", Min: 15, Max: 100, Color: "#ccc"},
	}
}

func metricVars() MetricVars {
	return MetricVars{
		TotalUnits:  "B25034_001E",
		BuiltRecent: "B25034_002E",
		OwnerOcc:    "B25003_002E",
		RenterOcc:   "B25003_003E",
		Population:  "B01003_001E",
		College:     []string{"B15003_022E"},
		Units10_19:  "B25024_008E",
		Units20_49:  "B25024_009E",
		Units50Plus: "B25024_010E",
	}
}

func recordWith(values map[string]float64) model.BlockGroupRecord {
	return model.BlockGroupRecord{GEOID: "490351126021", Raw: values}
}

func TestClassifyScenario(t *testing.T) {
	records := []model.BlockGroupRecord{
		// 8% new construction -> medium.
		recordWith(map[string]float64{"B25034_001E": 100, "B25034_002E": 8}),
		// Exactly 5% -> medium (inclusive-lower rule).
		recordWith(map[string]float64{"B25034_001E": 200, "B25034_002E": 10}),
		// Zero total units -> insufficient data, not a division failure.
		recordWith(map[string]float64{"B25034_001E": 0, "B25034_002E": 0}),
	}

	summary, err := Classify(records, metricVars(), scenarioTiers())
	require.NoError(t, err)

	assert.Equal(t, "medium", records[0].Tier.Label)
	assert.InDelta(t, 8.0, records[0].PctNew, 1e-9)

	assert.Equal(t, "medium", records[1].Tier.Label)
	assert.InDelta(t, 5.0, records[1].PctNew, 1e-9)

	assert.Equal(t, model.InsufficientDataTier.Label, records[2].Tier.Label)
	assert.False(t, records[2].MetricDefined)

	assert.Equal(t, 1, summary.InsufficientData)
	assert.Equal(t, 2, summary.TierCounts["medium"])
}

func TestClassifySuppressedDenominator(t *testing.T) {
	records := []model.BlockGroupRecord{
		recordWith(map[string]float64{"B25034_001E": -666666666, "B25034_002E": 12}),
	}

	_, err := Classify(records, metricVars(), scenarioTiers())
	require.NoError(t, err)
	assert.Equal(t, model.InsufficientDataTier.Label, records[0].Tier.Label)
	assert.False(t, records[0].MetricDefined)
}

func TestClassifyMissingNumerator(t *testing.T) {
	records := []model.BlockGroupRecord{
		recordWith(map[string]float64{"B25034_001E": 100}),
	}

	_, err := Classify(records, metricVars(), scenarioTiers())
	require.NoError(t, err)
	assert.Equal(t, model.InsufficientDataTier.Label, records[0].Tier.Label)
}

func TestClassifyExactlyOneTierAssigned(t *testing.T) {
	records := []model.BlockGroupRecord{
		recordWith(map[string]float64{"B25034_001E": 100, "B25034_002E": 0}),
		recordWith(map[string]float64{"B25034_001E": 100, "B25034_002E": 100}),
		recordWith(map[string]float64{"B25034_001E": 0, "B25034_002E": 0}),
	}

	summary, err := Classify(records, metricVars(), scenarioTiers())
	require.NoError(t, err)

	for _, rec := range records {
		assert.NotEmpty(t, rec.Tier.Label, "every record gets exactly one tier")
	}
	total := 0
	for _, n := range summary.TierCounts {
		total += n
	}
	assert.Equal(t, len(records), total)
	assert.Equal(t, "high", records[1].Tier.Label, "100% falls into the topmost tier")
}

func TestClassifyStateAverageIsUnitWeighted(t *testing.T) {
	records := []model.BlockGroupRecord{
		recordWith(map[string]float64{"B25034_001E": 900, "B25034_002E": 0}),
		recordWith(map[string]float64{"B25034_001E": 100, "B25034_002E": 100}),
		// Undefined metric contributes nothing to the benchmark.
		recordWith(map[string]float64{"B25034_001E": 0, "B25034_002E": 0}),
	}

	summary, err := Classify(records, metricVars(), scenarioTiers())
	require.NoError(t, err)
	assert.InDelta(t, 10.0, summary.StateAvgPctNew, 1e-9)
}

func TestClassifySupplementaryMetrics(t *testing.T) {
	records := []model.BlockGroupRecord{
		recordWith(map[string]float64{
			"B25034_001E": 100, "B25034_002E": 8,
			"B25003_002E": 60, "B25003_003E": 40,
			"B01003_001E": 1000, "B15003_022E": 250,
			"B25024_008E": 10, "B25024_009E": 5, "B25024_010E": 5,
		}),
	}

	_, err := Classify(records, metricVars(), scenarioTiers())
	require.NoError(t, err)

	rec := records[0]
	assert.InDelta(t, 40.0, rec.PctRenter, 1e-9)
	assert.InDelta(t, 25.0, rec.PctCollege, 1e-9)
	assert.InDelta(t, 20.0, rec.Units10Plus, 1e-9)
}

func TestClassifyRejectsBrokenTiers(t *testing.T) {
	records := []model.BlockGroupRecord{recordWith(map[string]float64{})}
	_, err := Classify(records, metricVars(), []model.Tier{
		{Label: "a", Min: 0, Max: 5},
		{Label: "b", Min: 6, Max: 10},
	})
	assert.Error(t, err)
}
