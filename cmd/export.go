package main

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/export"
)

var (
	exportVintage int
	exportFormat  string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the enriched block group table as CSV or XLSX",
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

		vintage := exportVintage
		if vintage == 0 {
			vintage = cfg.Census.Vintage
		}

		ds, err := buildDataset(ctx, st, vintage, false)
		if err != nil {
			return err
		}

		out := exportOut
		format := strings.ToLower(exportFormat)
		switch format {
		case "csv":
			if out == "" {
				out = filepath.Join(cfg.Output.Dir, cfg.Output.EnrichedCSV)
			}
			err = export.WriteCSV(out, ds.Records)
		case "xlsx":
			if out == "" {
				out = filepath.Join(cfg.Output.Dir, "block_groups_enriched.xlsx")
			}
			err = export.WriteXLSX(out, ds.Records)
		default:
			return eris.Errorf("unknown export format %q (want csv or xlsx)", exportFormat)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("format", format),
			zap.String("path", out),
			zap.Int("rows", len(ds.Records)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportVintage, "vintage", 0, "ACS vintage year (default from config)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default under the output dir)")
	rootCmd.AddCommand(exportCmd)
}
