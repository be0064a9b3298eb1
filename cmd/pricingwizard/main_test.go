package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/visualization"
)

func writePricingCSV(t *testing.T, path string) {
	t.Helper()
	X, y := dataset.MakePricing(60, 3)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(append(X.Columns(), "price")))
	for i := 0; i < X.NRows(); i++ {
		row := make([]string, 0, X.NCols()+1)
		for j := 0; j < X.NCols(); j++ {
			row = append(row, X.At(i, j))
		}
		row = append(row, fmt.Sprintf("%.2f", y.AtVec(i)))
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())
}

func TestRunAndInspect(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "cars.csv")
	writePricingCSV(t, data)

	models := filepath.Join(dir, "models")
	plots := filepath.Join(dir, "plots")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
logging:
  level: error
tuning:
  n_repeats: 2
paths:
  models_dir: %s
  plots_dir: %s
`, models, plots)), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "--config", cfgPath, "--data", data, "--models", "ridge"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Metric (Ridge Regression)")

	artifact := filepath.Join(models, "prediction_ridge_regression.pkl")
	require.FileExists(t, artifact)
	for _, name := range []string{visualization.ActualPredictedName, visualization.ResidualsName, visualization.FeatureImportancesName} {
		assert.FileExists(t, filepath.Join(plots, name+".png"))
	}

	out.Reset()
	rootCmd.SetArgs([]string{"inspect", artifact})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Ridge Regression")
	assert.Contains(t, out.String(), "best params:")
	assert.Contains(t, out.String(), "feature importances:")
}

func TestRun_UnknownFamily(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"run", "--data", "missing.csv", "--models", "svr"})
	assert.Error(t, rootCmd.Execute())
}
