package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sinergia/leadquote/internal/config"
	"github.com/sinergia/leadquote/internal/metrics"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadquote",
	Short: "Energy discount simulator and lead capture",
	Long:  "Quotes energy-bill discounts per distributor and consumption band, captures landing-page leads, emails them and forwards them to the CRM.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		metrics.Init()

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
