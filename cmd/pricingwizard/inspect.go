package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/tuning"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <artifact.pkl>",
	Short: "Print the summary of a persisted tuning result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := tuning.LoadResult(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, infof("%s (run %s, %s)", res.Label, res.RunID, res.CreatedAt.Format("2006-01-02 15:04:05")))
		fmt.Fprintf(out, "best params:   %s\n", res.Params)
		fmt.Fprintf(out, "random search: %s\n", res.RandomSearchParams)
		fmt.Fprintf(out, "training time: %s\n", res.TrainingTime)
		fmt.Fprintf(out, "cv mse (neg):  %.4f\n", res.MSEMeanCV)
		fmt.Fprintf(out, "test mse:      %.4f\n\n", res.MSETest)

		if _, err := metrics.Summarize(out, res.Label, res.YTest, res.YPred); err != nil {
			return err
		}

		imps := append([]tuning.FeatureImportance(nil), res.FeatureImportances...)
		sort.SliceStable(imps, func(i, j int) bool { return imps[i].Importance > imps[j].Importance })
		fmt.Fprintln(out, "\nfeature importances:")
		for _, fi := range imps {
			fmt.Fprintf(out, "  %-20s %.4f\n", fi.Feature, fi.Importance)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
