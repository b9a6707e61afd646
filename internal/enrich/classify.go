package enrich

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/model"
)

// MetricVars names the raw variable codes the derived metrics come from.
// These arrive from configuration: a vintage that restructures a table
// needs an operator update, not a code change.
type MetricVars struct {
	TotalUnits  string
	BuiltRecent string
	OwnerOcc    string
	RenterOcc   string
	Population  string
	College     []string
	Units10_19  string
	Units20_49  string
	Units50Plus string
}

// ClassifySummary reports tier assignment counts and the state benchmark.
type ClassifySummary struct {
	Total            int
	InsufficientData int
	TierCounts       map[string]int

	// StateAvgPctNew is the housing-unit-weighted statewide percent of
	// stock built in the recent window, used as the popup benchmark.
	StateAvgPctNew float64
}

// Classify computes pct_new_construction and the supplementary metrics for
// every record in place, then assigns each a growth tier.
//
// A zero or suppressed total-units denominator leaves the metric undefined
// and assigns the dedicated insufficient-data tier: zero growth and "we
// don't know" are different facts, and neither is an error.
func Classify(records []model.BlockGroupRecord, vars MetricVars, tiers []model.Tier) (*ClassifySummary, error) {
	if err := model.ValidateTiers(tiers); err != nil {
		return nil, eris.Wrap(err, "classify")
	}

	summary := &ClassifySummary{
		Total:      len(records),
		TierCounts: make(map[string]int, len(tiers)+1),
	}

	var stateBuilt, stateUnits float64
	for i := range records {
		rec := &records[i]

		total, totalOK := usableValue(rec.Raw, vars.TotalUnits)
		built, builtOK := usableValue(rec.Raw, vars.BuiltRecent)

		rec.TotalUnits = total
		rec.BuiltRecent = built

		if totalOK && builtOK && total > 0 {
			rec.PctNew = 100 * built / total
			rec.MetricDefined = true
			stateBuilt += built
			stateUnits += total
		}

		computeSupplementary(rec, vars)

		if rec.MetricDefined {
			rec.Tier = model.ClassifyTier(rec.PctNew, tiers)
		} else {
			rec.Tier = model.InsufficientDataTier
		}
		if rec.Tier.Label == model.InsufficientDataTier.Label {
			summary.InsufficientData++
		}
		summary.TierCounts[rec.Tier.Label]++
	}

	if stateUnits > 0 {
		summary.StateAvgPctNew = 100 * stateBuilt / stateUnits
	}

	log := zap.L().With(zap.String("component", "enrich.classify"))
	log.Info("classification complete",
		zap.Int("records", summary.Total),
		zap.Int("insufficient_data", summary.InsufficientData),
		zap.Float64("state_avg_pct_new", summary.StateAvgPctNew),
	)
	for _, t := range tiers {
		log.Info("tier count", zap.String("tier", t.Label), zap.Int("count", summary.TierCounts[t.Label]))
	}

	return summary, nil
}

// computeSupplementary derives the popup context metrics. Missing or
// suppressed inputs count as zero here; these are display aids, not
// classification inputs.
func computeSupplementary(rec *model.BlockGroupRecord, vars MetricVars) {
	owner := zeroUnlessUsable(rec.Raw, vars.OwnerOcc)
	renter := zeroUnlessUsable(rec.Raw, vars.RenterOcc)
	if owner+renter > 0 {
		rec.PctRenter = 100 * renter / (owner + renter)
	}

	pop := zeroUnlessUsable(rec.Raw, vars.Population)
	if pop > 0 {
		var college float64
		for _, code := range vars.College {
			college += zeroUnlessUsable(rec.Raw, code)
		}
		rec.PctCollege = 100 * college / pop
	}

	rec.Units10Plus = zeroUnlessUsable(rec.Raw, vars.Units10_19) +
		zeroUnlessUsable(rec.Raw, vars.Units20_49) +
		zeroUnlessUsable(rec.Raw, vars.Units50Plus)
}

func usableValue(raw map[string]float64, code string) (float64, bool) {
	v, ok := raw[code]
	if !ok || !model.Usable(v) {
		return 0, false
	}
	return v, true
}

func zeroUnlessUsable(raw map[string]float64, code string) float64 {
	v, ok := usableValue(raw, code)
	if !ok {
		return 0
	}
	return v
}
