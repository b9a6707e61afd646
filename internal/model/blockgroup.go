// Package model defines the core record types shared across the pipeline.
package model

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// GEOID component lengths. A block group GEOID is the concatenation of
// state(2) + county(3) + tract(6) + block group(1) FIPS digits.
const (
	GEOIDLen  = 12
	TractLen  = 11
	CountyLen = 5
)

// Census sentinel cutoff. The API encodes suppressed or unavailable
// estimates as large negative sentinels (-666666666, -888888888, ...).
const sentinelCutoff = -111111111

// Centroid is the internal-point coordinate of a block group.
type Centroid struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BlockGroupRecord is one enriched census block group. GEOID is immutable
// identity; joins attach data to it but never rewrite it.
type BlockGroupRecord struct {
	GEOID string
	Name  string

	// Raw holds fetched survey values keyed by variable code. Values the
	// API returned empty are absent; suppressed values keep their sentinel.
	Raw map[string]float64

	Centroid   Centroid
	CountyFIPS string
	CountyName string
	TractFIPS  string

	// MobilityScore is nil when the tract has no published score.
	// A present zero is a real score, not absence.
	MobilityScore *float64

	TotalUnits  float64
	BuiltRecent float64

	// PctNew is the percent of housing stock built in the recent window.
	// Only meaningful when MetricDefined is true.
	PctNew        float64
	MetricDefined bool

	PctRenter   float64
	PctCollege  float64
	Units10Plus float64

	Tier Tier
}

// CountyBoundary is a static county polygon, keyed by 5-digit FIPS.
type CountyBoundary struct {
	FIPS     string
	Name     string
	Geometry geom.T
}

// ValidateGEOID checks that a GEOID is a 12-digit code for the given state.
func ValidateGEOID(geoid, stateFIPS string) error {
	if len(geoid) != GEOIDLen {
		return eris.Errorf("geoid %q is not %d characters", geoid, GEOIDLen)
	}
	for _, r := range geoid {
		if r < '0' || r > '9' {
			return eris.Errorf("geoid %q contains non-digit %q", geoid, r)
		}
	}
	if stateFIPS != "" && geoid[:len(stateFIPS)] != stateFIPS {
		return eris.Errorf("geoid %q is not in state %s", geoid, stateFIPS)
	}
	return nil
}

// CountyFIPS returns the 5-digit county prefix of a block group GEOID.
func CountyFIPS(geoid string) string {
	if len(geoid) < CountyLen {
		return geoid
	}
	return geoid[:CountyLen]
}

// TractFIPS returns the 11-digit tract prefix of a block group GEOID.
func TractFIPS(geoid string) string {
	if len(geoid) < TractLen {
		return geoid
	}
	return geoid[:TractLen]
}

// Usable reports whether a raw survey value is a real estimate, i.e. not
// missing and not a suppression sentinel.
func Usable(v float64) bool {
	return !math.IsNaN(v) && v > sentinelCutoff
}
