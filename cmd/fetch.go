package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fetchVintage int
	fetchRefresh bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch ACS data into the local cache without building the map",
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

		vintage := fetchVintage
		if vintage == 0 {
			vintage = cfg.Census.Vintage
		}

		rows, err := fetchACS(ctx, st, vintage, fetchRefresh)
		if err != nil {
			return err
		}

		zap.L().Info("fetch complete",
			zap.Int("vintage", vintage),
			zap.Int("block_groups", len(rows)),
		)
		return nil
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchVintage, "vintage", 0, "ACS vintage year (default from config)")
	fetchCmd.Flags().BoolVar(&fetchRefresh, "refresh", false, "bypass the local cache and fetch fresh ACS data")
	rootCmd.AddCommand(fetchCmd)
}
