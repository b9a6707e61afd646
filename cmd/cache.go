package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheClearVintage int

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local ACS cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cached ACS vintages",
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

		entries, err := st.CacheStatus(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VINTAGE\tROWS\tFETCHED")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%d\t%s\n", e.Vintage, e.Rows, e.FetchedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached ACS data (all vintages unless --vintage is given)",
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

		n, err := st.ClearACSCache(ctx, cacheClearVintage)
		if err != nil {
			return err
		}

		zap.L().Info("cache cleared",
			zap.Int("vintage", cacheClearVintage),
			zap.Int("entries", n),
		)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().IntVar(&cacheClearVintage, "vintage", 0, "vintage to clear (0 clears all)")
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
