package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/artifact"
	"github.com/sells-group/buildtrends/internal/export"
	"github.com/sells-group/buildtrends/internal/store"
)

var (
	buildVintage int
	buildRefresh bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the full pipeline and emit the map artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		vintage := buildVintage
		if vintage == 0 {
			vintage = cfg.Census.Vintage
		}

		run, err := st.CreateRun(ctx, vintage)
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		artifactPath, err := runBuild(ctx, st, run.ID, vintage)
		if err != nil {
			if failErr := st.FailRun(ctx, run.ID, err.Error()); failErr != nil {
				zap.L().Error("record run failure", zap.Error(failErr))
			}
			return err
		}

		zap.L().Info("build complete",
			zap.String("run_id", run.ID),
			zap.Int("vintage", vintage),
			zap.String("artifact", artifactPath),
		)
		return nil
	},
}

// runBuild executes the pipeline stages for one run. Any error aborts
// before the artifact is written; the output path is only ever touched by
// the final atomic rename.
func runBuild(ctx context.Context, st store.Store, runID string, vintage int) (string, error) {
	ds, err := buildDataset(ctx, st, vintage, buildRefresh)
	if err != nil {
		return "", err
	}

	csvPath := filepath.Join(cfg.Output.Dir, cfg.Output.EnrichedCSV)
	if err := export.WriteCSV(csvPath, ds.Records); err != nil {
		return "", err
	}

	html, err := artifact.Generate(artifact.Params{
		Vintage:        vintage,
		Records:        ds.Records,
		StateAvgPctNew: ds.Classify.StateAvgPctNew,
		Tiers:          cfg.Pipeline.Tiers,
		Counties:       ds.Refs.Counties,
		TractShapes:    ds.Refs.TractShapes,
		Map:            mapOptions(cfg.Map),
	})
	if err != nil {
		return "", err
	}

	artifactPath := filepath.Join(cfg.Output.Dir, cfg.Output.ArtifactName)
	if err := artifact.Write(artifactPath, html); err != nil {
		return "", err
	}

	if err := st.CompleteRun(ctx, runID, store.RunResult{
		BlockGroups:  len(ds.Records),
		Mismatches:   ds.Join.CentroidMisses,
		ArtifactPath: artifactPath,
	}); err != nil {
		return "", eris.Wrap(err, "record run completion")
	}

	return artifactPath, nil
}

func init() {
	buildCmd.Flags().IntVar(&buildVintage, "vintage", 0, "ACS vintage year (default from config)")
	buildCmd.Flags().BoolVar(&buildRefresh, "refresh", false, "bypass the local cache and fetch fresh ACS data")
	rootCmd.AddCommand(buildCmd)
}
