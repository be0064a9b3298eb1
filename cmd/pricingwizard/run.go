package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/pkg/log"
	"github.com/pricingwizard/pricingwizard/runner"
	"github.com/pricingwizard/pricingwizard/visualization"
)

var (
	dataPath   string
	targetCol  string
	sheetName  string
	modelsFlag string
	noPlots    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Tune the selected model families, save them and plot the comparison",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		families, err := runner.ParseFamilies(modelsFlag)
		if err != nil {
			return err
		}
		logger := log.GetLoggerWithName("cli")

		X, y, err := dataset.LoadFile(dataPath, sheetName, targetCol)
		if err != nil {
			return err
		}
		logger.Info("Dataset loaded", log.PathKey, dataPath, log.SamplesKey, X.NRows(), log.FeaturesKey, X.NCols())

		split, err := dataset.TrainTestSplit(X, y, cfg.Tuning.TestSize, cfg.Tuning.RandomState)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		r := runner.New(cfg, runner.WithOutput(out))
		bundles := make([]runner.Bundle, 0, len(families))
		for _, f := range families {
			fmt.Fprintln(out, infof("==> %s", f.Label()))
			b, err := r.Run(cmd.Context(), f, split)
			if err != nil {
				return err
			}
			bundles = append(bundles, b)
		}

		if noPlots {
			return nil
		}
		sink := visualization.DirSink{Dir: cfg.Paths.PlotsDir}
		if err := visualization.RenderAll(sink, runner.Collect(bundles...)); err != nil {
			return err
		}
		fmt.Fprintln(out, okf("plots written to %s", cfg.Paths.PlotsDir))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&dataPath, "data", "", "CSV or Excel dataset")
	runCmd.Flags().StringVar(&targetCol, "target", "price", "target column")
	runCmd.Flags().StringVar(&sheetName, "sheet", "", "Excel sheet (default: first sheet)")
	runCmd.Flags().StringVar(&modelsFlag, "models", "rf", "comma-separated families: rf, tree, ridge")
	runCmd.Flags().BoolVar(&noPlots, "no-plots", false, "skip plot rendering")
	_ = runCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(runCmd)
}
