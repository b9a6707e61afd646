// Package enrich merges fetched survey rows with the reference datasets and
// classifies each block group into a growth tier.
package enrich

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/census"
	"github.com/sells-group/buildtrends/internal/model"
	"github.com/sells-group/buildtrends/internal/reference"
)

// JoinSummary reports the outcome of one join pass. Centroid misses are
// collected rather than raised one at a time, so the operator sees the full
// scope of reference-data drift in a single run.
type JoinSummary struct {
	SurveyRows      int
	Enriched        int
	CentroidMisses  int
	MissingGEOIDs   []string
	MobilityMatched int
}

// Join produces enriched records from survey rows and reference data:
// centroid by exact GEOID match, mobility score by tract prefix, county
// name and boundary by county prefix. Output is sorted by GEOID so repeat
// runs on identical inputs are byte-identical.
//
// A survey row with no centroid is a data-integrity error, aggregated into
// the summary; if misses exceed escalation as a fraction of input rows the
// whole join fails, since widespread mismatch means the reference vintage
// no longer matches the survey vintage.
func Join(rows []census.Row, refs *reference.Set, stateFIPS string, escalation float64) ([]model.BlockGroupRecord, *JoinSummary, error) {
	summary := &JoinSummary{SurveyRows: len(rows)}
	log := zap.L().With(zap.String("component", "enrich.join"))

	var missingCounties []string
	records := make([]model.BlockGroupRecord, 0, len(rows))

	for _, row := range rows {
		if err := model.ValidateGEOID(row.GEOID, stateFIPS); err != nil {
			return nil, nil, eris.Wrap(err, "join: invalid survey geoid")
		}

		centroid, ok := refs.Centroids[row.GEOID]
		if !ok {
			summary.CentroidMisses++
			summary.MissingGEOIDs = append(summary.MissingGEOIDs, row.GEOID)
			continue
		}

		countyFIPS := model.CountyFIPS(row.GEOID)
		if _, ok := refs.Counties[countyFIPS]; !ok {
			missingCounties = append(missingCounties, countyFIPS)
			continue
		}

		rec := model.BlockGroupRecord{
			GEOID:      row.GEOID,
			Name:       row.Name,
			Raw:        row.Values,
			Centroid:   centroid,
			CountyFIPS: countyFIPS,
			CountyName: refs.CountyNames[countyFIPS],
			TractFIPS:  model.TractFIPS(row.GEOID),
		}

		// Mobility coverage is legitimately partial; absence is nil, not zero.
		if score, ok := refs.Mobility[rec.TractFIPS]; ok {
			s := score
			rec.MobilityScore = &s
			summary.MobilityMatched++
		}

		records = append(records, rec)
	}

	if len(missingCounties) > 0 {
		return nil, nil, eris.Errorf(
			"join: %d rows reference counties with no boundary geometry (e.g. %s); refresh the county boundary file",
			len(missingCounties), missingCounties[0])
	}

	if summary.CentroidMisses > 0 {
		allowed := escalation * float64(summary.SurveyRows)
		if float64(summary.CentroidMisses) > allowed {
			return nil, nil, eris.Errorf(
				"join: %d of %d survey rows have no centroid match (threshold %.1f%%); gazetteer and survey vintages are structurally incompatible",
				summary.CentroidMisses, summary.SurveyRows, escalation*100)
		}
		log.Warn("survey rows without centroid match",
			zap.Int("misses", summary.CentroidMisses),
			zap.Int("total", summary.SurveyRows),
			zap.Strings("geoids", summary.MissingGEOIDs),
		)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].GEOID < records[j].GEOID })

	summary.Enriched = len(records)
	log.Info("join complete",
		zap.Int("survey_rows", summary.SurveyRows),
		zap.Int("enriched", summary.Enriched),
		zap.Int("centroid_misses", summary.CentroidMisses),
		zap.Int("mobility_matched", summary.MobilityMatched),
	)
	return records, summary, nil
}
