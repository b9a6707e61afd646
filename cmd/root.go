package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/config"
	"github.com/sells-group/buildtrends/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "buildtrends",
	Short: "Utah building trends data pipeline",
	Long:  "Fetches ACS housing data for Utah block groups, joins it with static reference datasets, classifies growth tiers, and emits a self-contained interactive map.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func initStore() (*store.SQLiteStore, error) {
	return store.NewSQLite(cfg.Cache.Path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
