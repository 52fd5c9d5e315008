package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/randunun/bom-pricer/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bom-pricer",
	Short: "Hobby electronics BOM pricing engine",
	Long:  "Parses bill-of-materials text, matches lines against a crawled marketplace catalog, ranks candidate listings, and exports priced results.",
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

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
