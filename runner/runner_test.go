package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricingwizard/pricingwizard/config"
	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
	"github.com/pricingwizard/pricingwizard/pkg/log"
	"github.com/pricingwizard/pricingwizard/sklearn/ensemble"
	"github.com/pricingwizard/pricingwizard/tuning"
)

func testSetup(t *testing.T) (*config.Config, *dataset.Split) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ModelsDir = filepath.Join(t.TempDir(), "models", "pickled_models")
	cfg.Tuning.NRepeats = 2

	X, y := dataset.MakePricing(80, 21)
	split, err := dataset.TrainTestSplit(X, y, cfg.Tuning.TestSize, cfg.Tuning.RandomState)
	require.NoError(t, err)
	return cfg, split
}

func testLogger() log.Logger {
	l, _ := log.NewTestLogger(log.LevelInfo)
	return l
}

func TestRunner_RandomForest(t *testing.T) {
	cfg, split := testSetup(t)
	cfg.Tuning.NIter = 2
	var out bytes.Buffer

	bundle, err := New(cfg, WithOutput(&out), WithLogger(testLogger())).RandomForest(context.Background(), split)
	require.NoError(t, err)
	require.Len(t, bundle, 1)
	res := bundle[StandardKey]
	require.NotNil(t, res)
	assert.Equal(t, "Random Forest", res.Label)
	_, ok := res.Model.Regressor.(*ensemble.RandomForestRegressor)
	assert.True(t, ok)

	path := filepath.Join(cfg.Paths.ModelsDir, "prediction_random_forest.pkl")
	_, err = os.Stat(path)
	require.NoError(t, err)
	loaded, err := tuning.LoadResult(path)
	require.NoError(t, err)
	assert.Equal(t, res.Params, loaded.Params)

	assert.Contains(t, out.String(), "Metric (Random Forest)")
	assert.Contains(t, out.String(), "Root Mean Squared Error")
}

func TestRunner_SiblingsAndCollect(t *testing.T) {
	cfg, split := testSetup(t)
	r := New(cfg, WithOutput(&bytes.Buffer{}), WithLogger(testLogger()))

	all, err := r.RunAll(context.Background(), split, DecisionTreeFamily, RidgeFamily)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Decision Tree", all[DecisionTreeFamily][StandardKey].Label)
	assert.Equal(t, "Ridge Regression", all[RidgeFamily][StandardKey].Label)

	for _, name := range []string{"prediction_decision_tree.pkl", "prediction_ridge_regression.pkl"} {
		_, err := os.Stat(filepath.Join(cfg.Paths.ModelsDir, name))
		assert.NoError(t, err, name)
	}

	c := Collect(all[RidgeFamily], all[DecisionTreeFamily])
	assert.Len(t, c, 2)
	assert.Len(t, c["Ridge Regression"], 1)
	flat := c.Flatten()
	assert.Equal(t, "Decision Tree", flat[0].Label)
}

func TestRunner_RerunOverwrites(t *testing.T) {
	cfg, split := testSetup(t)
	r := New(cfg, WithOutput(&bytes.Buffer{}), WithLogger(testLogger()))

	first, err := r.Ridge(context.Background(), split)
	require.NoError(t, err)
	second, err := r.Ridge(context.Background(), split)
	require.NoError(t, err)

	loaded, err := tuning.LoadResult(tuning.ArtifactPath(cfg.Paths.ModelsDir, "Ridge Regression"))
	require.NoError(t, err)
	assert.Equal(t, second[StandardKey].RunID, loaded.RunID)
	assert.NotEqual(t, first[StandardKey].RunID, loaded.RunID)
	assert.Equal(t, first[StandardKey].YPred.RawVector().Data, second[StandardKey].YPred.RawVector().Data)
}

func TestParseFamilies(t *testing.T) {
	fams, err := ParseFamilies("rf, Ridge,tree")
	require.NoError(t, err)
	assert.Equal(t, []Family{RandomForestFamily, RidgeFamily, DecisionTreeFamily}, fams)
	assert.Equal(t, "Random Forest", RandomForestFamily.Label())

	_, err = ParseFamilies("rf,svr")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = ParseFamilies(" , ")
	assert.True(t, errors.As(err, &ve))
}

func TestRunner_UnknownFamily(t *testing.T) {
	cfg, split := testSetup(t)
	_, err := New(cfg, WithLogger(testLogger())).Run(context.Background(), Family("svr"), split)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}
