package artifact

import (
	"fmt"
	"math"
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/model"
)

// Overlay display names, shown in the layer control.
const (
	BuildingLayerName = "Building Trends (% New Construction)"
	MobilityLayerName = "Upward Mobility (Opportunity Atlas)"
	CountyLayerName   = "County Boundaries"
)

const mobilityNoDataColor = "#F0F0F0"

// buildingTrendsLayer renders one point feature per enriched block group.
// Marker radius is log-scaled by total housing units between the configured
// bounds; color and label come from the assigned tier.
func buildingTrendsLayer(records []model.BlockGroupRecord, stateAvg float64, opts MapOptions) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	for i := range records {
		rec := &records[i]
		radius := markerRadius(rec.TotalUnits, opts.MarkerMinRadius, opts.MarkerMaxRadius)
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       rec.GEOID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{rec.Centroid.Lon, rec.Centroid.Lat}),
			Properties: map[string]interface{}{
				"geoid":   rec.GEOID,
				"county":  rec.CountyName,
				"pct_new": roundTo(rec.PctNew, 2),
				"tier":    rec.Tier.Label,
				"color":   rec.Tier.Color,
				"radius":  roundTo(radius, 2),
				"tooltip": tooltipHTML(rec),
				"popup":   popupHTML(rec, stateAvg),
			},
		})
	}
	return fc
}

// markerRadius maps total units onto a radius between min and max.
func markerRadius(totalUnits, min, max float64) float64 {
	r := math.Log1p(totalUnits) * 1.5
	return math.Max(min, math.Min(max, r))
}

// mobilityLayer renders one polygon per census tract, shaded by upward
// mobility score. The color scale spans the 5th to 95th percentile of
// observed scores so a handful of outlier tracts cannot flatten the ramp.
// Tracts without a published score get a neutral no-data fill.
func mobilityLayer(records []model.BlockGroupRecord, shapes map[string]geom.T, colors []string) *geojson.FeatureCollection {
	scores := tractScores(records)

	vmin, vmax := scoreScale(scores)

	tracts := make([]string, 0, len(shapes))
	for fips := range shapes {
		tracts = append(tracts, fips)
	}
	sort.Strings(tracts)

	fc := &geojson.FeatureCollection{}
	matched := 0
	for _, fips := range tracts {
		props := map[string]interface{}{
			"tract_fips": fips,
			"fill":       mobilityNoDataColor,
			"tooltip":    "Upward Mobility Score: No data",
		}
		if score, ok := scores[fips]; ok {
			matched++
			props["mobility_score"] = roundTo(score, 4)
			props["fill"] = rampColor(score, vmin, vmax, colors)
			props["tooltip"] = fmt.Sprintf("Upward Mobility Score: %.3f", score)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         fips,
			Geometry:   shapes[fips],
			Properties: props,
		})
	}

	zap.L().Info("mobility overlay built",
		zap.Int("tracts", len(tracts)),
		zap.Int("with_scores", matched),
	)
	return fc
}

// countyLayer renders dashed county outlines for geographic context.
func countyLayer(counties map[string]model.CountyBoundary) *geojson.FeatureCollection {
	fipsList := make([]string, 0, len(counties))
	for fips := range counties {
		fipsList = append(fipsList, fips)
	}
	sort.Strings(fipsList)

	fc := &geojson.FeatureCollection{}
	for _, fips := range fipsList {
		c := counties[fips]
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       c.FIPS,
			Geometry: c.Geometry,
			Properties: map[string]interface{}{
				"fips": c.FIPS,
				"name": c.Name,
			},
		})
	}
	return fc
}

// tractScores collects one mobility score per tract. The score is published
// at tract granularity, so every block group in a tract carries the same
// value and the first seen wins.
func tractScores(records []model.BlockGroupRecord) map[string]float64 {
	scores := make(map[string]float64)
	for i := range records {
		rec := &records[i]
		if rec.MobilityScore == nil {
			continue
		}
		if _, ok := scores[rec.TractFIPS]; !ok {
			scores[rec.TractFIPS] = *rec.MobilityScore
		}
	}
	return scores
}

// scoreScale returns the 5th and 95th percentile of the observed scores,
// with a fixed fallback when no scores exist.
func scoreScale(scores map[string]float64) (float64, float64) {
	if len(scores) == 0 {
		return 0.3, 0.6
	}
	sorted := make([]float64, 0, len(scores))
	for _, s := range scores {
		sorted = append(sorted, s)
	}
	sort.Float64s(sorted)
	return quantile(sorted, 0.05), quantile(sorted, 0.95)
}

// quantile linearly interpolates the q-th quantile of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// rampColor maps a score onto the configured color ramp, interpolating
// between adjacent stops.
func rampColor(score, vmin, vmax float64, colors []string) string {
	if len(colors) == 0 {
		return mobilityNoDataColor
	}
	if len(colors) == 1 || vmax <= vmin {
		return colors[len(colors)-1]
	}

	t := (score - vmin) / (vmax - vmin)
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(colors)-1)
	lo := int(math.Floor(pos))
	if lo >= len(colors)-1 {
		return colors[len(colors)-1]
	}
	return lerpHex(colors[lo], colors[lo+1], pos-float64(lo))
}

func lerpHex(a, b string, t float64) string {
	ar, ag, ab, errA := parseHex(a)
	br, bg, bb, errB := parseHex(b)
	if errA != nil || errB != nil {
		return a
	}
	lerp := func(x, y int) int {
		return int(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return fmt.Sprintf("#%02X%02X%02X", lerp(ar, br), lerp(ag, bg), lerp(ab, bb))
}

func parseHex(s string) (r, g, b int, err error) {
	_, err = fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b)
	return r, g, b, err
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
