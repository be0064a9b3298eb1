// Command pricingwizard tunes price regressors on a tabular dataset, persists
// the tuned pipelines and renders the comparison plots.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pricingwizard/pricingwizard/config"
	"github.com/pricingwizard/pricingwizard/pkg/log"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "pricingwizard",
	Short:         "Tune and compare regression models for price prediction",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (env PRICINGWIZARD_* overrides it)")
}

// loadConfig は設定を読み込み、グローバルロガーを初期化する
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.SetupLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	return cfg, nil
}

var (
	okf   = color.New(color.FgGreen).SprintfFunc()
	infof = color.New(color.FgCyan).SprintfFunc()
	errf  = color.New(color.FgRed, color.Bold).SprintfFunc()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errf("error: %v", err))
		os.Exit(1)
	}
}
