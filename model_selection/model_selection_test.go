package model_selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/pipeline"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
	"github.com/pricingwizard/pricingwizard/pkg/log"
	"github.com/pricingwizard/pricingwizard/preprocessing"
	"github.com/pricingwizard/pricingwizard/sklearn/linear_model"
	"github.com/pricingwizard/pricingwizard/sklearn/tree"
)

func treePipeline() *pipeline.Pipeline {
	return pipeline.New(preprocessing.NewOneHotEncoder(preprocessing.HandleUnknownIgnore), tree.NewDecisionTreeRegressor())
}

func quietLogger() log.Logger {
	l, _ := log.NewTestLogger(log.LevelInfo)
	return l
}

func TestKFold_Split(t *testing.T) {
	folds, err := NewKFold(5, false, 0).Split(11)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	sizes := []int{}
	next := 0
	for _, f := range folds {
		sizes = append(sizes, len(f.Test))
		assert.Equal(t, 11, len(f.Train)+len(f.Test))
		for _, i := range f.Test {
			assert.Equal(t, next, i)
			next++
		}
		assert.NotContains(t, f.Train, f.Test[0])
	}
	assert.Equal(t, []int{3, 2, 2, 2, 2}, sizes)
}

func TestKFold_Shuffle(t *testing.T) {
	a, err := NewKFold(3, true, 42).Split(9)
	require.NoError(t, err)
	b, err := NewKFold(3, true, 42).Split(9)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	seen := map[int]bool{}
	for _, f := range a {
		for _, i := range f.Test {
			seen[i] = true
		}
	}
	assert.Len(t, seen, 9)
}

func TestKFold_Errors(t *testing.T) {
	_, err := NewKFold(5, false, 0).Split(4)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	_, err = NewKFold(1, false, 0).Split(4)
	var vale *errors.ValidationError
	assert.True(t, errors.As(err, &vale))
}

func TestParameterGrid_Order(t *testing.T) {
	pg, err := NewParameterGrid(Grid{
		"b": {1, 2},
		"a": {"x", nil},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, pg.Len())
	assert.Equal(t, []ParamSet{
		{"a": "x", "b": 1},
		{"a": "x", "b": 2},
		{"a": nil, "b": 1},
		{"a": nil, "b": 2},
	}, pg.All())
}

func TestGrid_Validate(t *testing.T) {
	tests := []struct {
		name    string
		grid    Grid
		wantErr bool
	}{
		{"valid", Grid{"alpha": {0.1, 1.0}}, false},
		{"empty grid", Grid{}, true},
		{"empty list", Grid{"alpha": {}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCollapse(t *testing.T) {
	g := Collapse(ParamSet{"max_depth": nil, "n_estimators": 100})
	assert.Equal(t, Grid{"max_depth": {nil}, "n_estimators": {100}}, g)
	assert.Equal(t, 1, g.Size())
}

func TestParamSet_String(t *testing.T) {
	assert.Equal(t, "{a: None, b: 2}", ParamSet{"b": 2, "a": nil}.String())
}

func TestParameterSampler(t *testing.T) {
	grid := Grid{"a": {1, 2, 3}, "b": {"x", "y", "z"}}

	first, err := ParameterSampler{Grid: grid, NIter: 4, RandomState: 42}.Sample()
	require.NoError(t, err)
	second, err := ParameterSampler{Grid: grid, NIter: 4, RandomState: 42}.Sample()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.Len(t, first, 4)

	seen := map[string]bool{}
	for _, p := range first {
		seen[p.String()] = true
	}
	assert.Len(t, seen, 4, "samples are drawn without replacement")
}

func TestParameterSampler_SmallGridWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	out, err := ParameterSampler{Grid: Grid{"a": {1, 2}}, NIter: 10, RandomState: 42}.Sample()
	require.NoError(t, err)
	assert.Equal(t, []ParamSet{{"a": 1}, {"a": 2}}, out)
	require.Len(t, warnings, 1)
	var sw *errors.SearchSpaceWarning
	require.True(t, errors.As(warnings[0], &sw))
	assert.Equal(t, 2, sw.Available)
}

func TestCrossValScore(t *testing.T) {
	X, y := dataset.MakePricing(120, 1)
	est := pipeline.New(preprocessing.NewOneHotEncoder(preprocessing.HandleUnknownIgnore), linear_model.NewRidge())

	serial, err := CrossValScore(context.Background(), est, X, y, NewKFold(5, false, 0), metrics.NegMeanSquaredError, 1)
	require.NoError(t, err)
	require.Len(t, serial, 5)
	for _, s := range serial {
		assert.Less(t, s, 0.0)
		assert.Greater(t, s, -50.0)
	}

	concurrent, err := CrossValScore(context.Background(), est, X, y, NewKFold(5, false, 0), metrics.NegMeanSquaredError, 4)
	require.NoError(t, err)
	assert.Equal(t, serial, concurrent)
}

func TestCrossValScore_Cancelled(t *testing.T) {
	X, y := dataset.MakePricing(40, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CrossValScore(ctx, treePipeline(), X, y, NewKFold(5, false, 0), metrics.NegMeanSquaredError, 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGridSearchCV(t *testing.T) {
	X, y := dataset.MakePricing(150, 3)
	gs := NewGridSearchCV(treePipeline(), Grid{
		"regressor__max_depth": {1, nil},
	}, WithLogger(quietLogger()))
	require.NoError(t, gs.Fit(context.Background(), X, y))

	assert.Equal(t, ParamSet{"regressor__max_depth": nil}, gs.BestParams)
	assert.Equal(t, 1, gs.BestIndex)
	assert.Equal(t, []int{2, 1}, gs.CVResults.RankTestScore)
	assert.Len(t, gs.CVResults.SplitTestScores[0], 5)
	assert.Equal(t, gs.CVResults.MeanTestScore[1], gs.BestScore)

	pred, err := gs.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, X.NRows(), pred.Len())
}

func TestGridSearchCV_TiesPickFirst(t *testing.T) {
	X, y := dataset.MakePricing(60, 5)
	gs := NewGridSearchCV(treePipeline(), Grid{
		"regressor__random_state": {7, 3},
	}, WithLogger(quietLogger()), WithRefit(false))
	require.NoError(t, gs.Fit(context.Background(), X, y))

	assert.Equal(t, 0, gs.BestIndex)
	assert.Equal(t, []int{1, 1}, gs.CVResults.RankTestScore)
	assert.Nil(t, gs.BestEstimator)
}

func TestGridSearchCV_PropagatesFitErrors(t *testing.T) {
	X, y := dataset.MakePricing(60, 5)
	gs := NewGridSearchCV(treePipeline(), Grid{
		"regressor__min_samples_split": {1},
	}, WithLogger(quietLogger()))
	err := gs.Fit(context.Background(), X, y)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestRandomizedSearchCV(t *testing.T) {
	X, y := dataset.MakePricing(100, 9)
	grid := Grid{
		"regressor__max_depth":        {nil, 2, 4},
		"regressor__min_samples_leaf": {1, 2, 4},
	}
	run := func() *RandomizedSearchCV {
		rs := NewRandomizedSearchCV(treePipeline(), grid, 3, 42, WithLogger(quietLogger()), WithNJobs(2))
		require.NoError(t, rs.Fit(context.Background(), X, y))
		return rs
	}
	a, b := run(), run()
	assert.Len(t, a.CVResults.Params, 3)
	assert.Equal(t, a.CVResults.Params, b.CVResults.Params)
	assert.Equal(t, a.BestParams, b.BestParams)
	assert.Equal(t, a.BestScore, b.BestScore)
	assert.NotNil(t, a.BestEstimator)
}
