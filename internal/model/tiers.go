package model

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

// Tier is one growth classification range over pct_new_construction,
// expressed in percent. Ranges are inclusive-lower/exclusive-upper except
// the topmost, which is inclusive on both ends.
type Tier struct {
	Label string  `yaml:"label" mapstructure:"label" json:"label"`
	Min   float64 `yaml:"min" mapstructure:"min" json:"min"`
	Max   float64 `yaml:"max" mapstructure:"max" json:"max"`
	Color string  `yaml:"color" mapstructure:"color" json:"color"`
}

// InsufficientDataTier is assigned when the metric denominator is zero or
// suppressed. Zero growth and "we don't know" are different facts.
var InsufficientDataTier = Tier{Label: "Insufficient data", Color: "#CCCCCC"}

// ValidateTiers checks that the configured tiers partition their domain:
// ordered, non-empty ranges, contiguous with no gaps or overlaps.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return eris.New("tiers: empty threshold list")
	}
	if !sort.SliceIsSorted(tiers, func(i, j int) bool { return tiers[i].Min < tiers[j].Min }) {
		return eris.New("tiers: thresholds not sorted by lower bound")
	}
	for i, t := range tiers {
		if t.Label == "" {
			return eris.Errorf("tiers: range %d has no label", i)
		}
		if math.IsNaN(t.Min) || math.IsNaN(t.Max) || t.Min >= t.Max {
			return eris.Errorf("tiers: %q has invalid bounds [%v, %v)", t.Label, t.Min, t.Max)
		}
		if i > 0 && t.Min != tiers[i-1].Max {
			return eris.Errorf("tiers: gap or overlap between %q (max %v) and %q (min %v)",
				tiers[i-1].Label, tiers[i-1].Max, t.Label, t.Min)
		}
	}
	return nil
}

// ClassifyTier locates the tier containing pct. A value exactly at a
// non-topmost upper bound falls into the next tier; the global maximum
// falls into the topmost tier. Values outside the domain (including NaN)
// get the insufficient-data tier.
func ClassifyTier(pct float64, tiers []Tier) Tier {
	if math.IsNaN(pct) {
		return InsufficientDataTier
	}
	for i, t := range tiers {
		if i == len(tiers)-1 {
			if pct >= t.Min && pct <= t.Max {
				return t
			}
			continue
		}
		if pct >= t.Min && pct < t.Max {
			return t
		}
	}
	return InsufficientDataTier
}
