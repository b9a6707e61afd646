package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/artifact"
	"github.com/sells-group/buildtrends/internal/census"
	"github.com/sells-group/buildtrends/internal/config"
	"github.com/sells-group/buildtrends/internal/enrich"
	"github.com/sells-group/buildtrends/internal/fetcher"
	"github.com/sells-group/buildtrends/internal/model"
	"github.com/sells-group/buildtrends/internal/reference"
	"github.com/sells-group/buildtrends/internal/store"
)

// fetchACS returns the raw survey rows for a vintage, from the local cache
// when present. refresh forces a live fetch and overwrites the cache.
func fetchACS(ctx context.Context, st store.Store, vintage int, refresh bool) ([]census.Row, error) {
	if !refresh {
		rows, ok, err := st.GetCachedACS(ctx, vintage)
		if err != nil {
			return nil, err
		}
		if ok {
			zap.L().Info("using cached ACS data",
				zap.Int("vintage", vintage),
				zap.Int("rows", len(rows)),
			)
			return rows, nil
		}
	}

	client := census.NewClient(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}),
		cfg.Census.BaseURL,
		cfg.Census.APIKey,
	)

	codes := make([]string, 0, len(cfg.Census.Variables))
	for code := range cfg.Census.Variables {
		codes = append(codes, code)
	}

	rows, err := client.FetchBlockGroups(ctx, vintage, cfg.Census.StateFIPS, codes)
	if err != nil {
		return nil, err
	}

	if err := st.SetCachedACS(ctx, vintage, rows); err != nil {
		return nil, eris.Wrap(err, "cache fetched rows")
	}
	return rows, nil
}

// dataset is the fully joined and classified table for one vintage, plus
// the run accounting the summaries carry.
type dataset struct {
	Records  []model.BlockGroupRecord
	Refs     *reference.Set
	Join     *enrich.JoinSummary
	Classify *enrich.ClassifySummary
}

// buildDataset runs the data stages end to end: fetch (or cache), load
// reference files, join, classify.
func buildDataset(ctx context.Context, st store.Store, vintage int, refresh bool) (*dataset, error) {
	rows, err := fetchACS(ctx, st, vintage, refresh)
	if err != nil {
		return nil, err
	}

	refs, err := reference.LoadAll(ctx, referencePaths(cfg.Reference), cfg.Census.StateFIPS)
	if err != nil {
		return nil, err
	}

	records, joinSummary, err := enrich.Join(rows, refs, cfg.Census.StateFIPS, cfg.Pipeline.MismatchEscalation)
	if err != nil {
		return nil, err
	}

	classifySummary, err := enrich.Classify(records, metricVars(cfg.Pipeline.Metrics), cfg.Pipeline.Tiers)
	if err != nil {
		return nil, err
	}

	return &dataset{
		Records:  records,
		Refs:     refs,
		Join:     joinSummary,
		Classify: classifySummary,
	}, nil
}

func referencePaths(rc config.ReferenceConfig) reference.Paths {
	return reference.Paths{
		Gazetteer:      rc.GazetteerPath,
		Mobility:       rc.MobilityPath,
		CountyGeoJSON:  rc.CountyGeoJSONPath,
		CountyLookup:   rc.CountyLookupPath,
		TractShapefile: rc.TractShapefilePath,
	}
}

func metricVars(mc config.MetricVarsConfig) enrich.MetricVars {
	return enrich.MetricVars{
		TotalUnits:  mc.TotalUnits,
		BuiltRecent: mc.BuiltRecent,
		OwnerOcc:    mc.OwnerOcc,
		RenterOcc:   mc.RenterOcc,
		Population:  mc.Population,
		College:     mc.College,
		Units10_19:  mc.Units10_19,
		Units20_49:  mc.Units20_49,
		Units50Plus: mc.Units50Plus,
	}
}

func mapOptions(mc config.MapConfig) artifact.MapOptions {
	return artifact.MapOptions{
		CenterLat:       mc.CenterLat,
		CenterLon:       mc.CenterLon,
		Zoom:            mc.Zoom,
		TileURL:         mc.TileURL,
		TileAttribution: mc.TileAttribution,
		MarkerMinRadius: mc.MarkerMinRadius,
		MarkerMaxRadius: mc.MarkerMaxRadius,
		MobilityColors:  mc.MobilityColors,
	}
}
