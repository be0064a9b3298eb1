package ensemble

import (
	"bytes"
	"encoding/gob"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

func linearData(n int) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(1, 2))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a, b, c := rng.Float64(), rng.Float64(), rng.Float64()
		X.SetRow(i, []float64{a, b, c})
		y.SetVec(i, 10*a+2*b)
	}
	return X, y
}

func TestRandomForestRegressor_FitPredict(t *testing.T) {
	X, y := linearData(200)
	f := NewRandomForestRegressor(WithNEstimators(20), WithRandomState(42))
	require.NoError(t, f.Fit(X, y))
	assert.Len(t, f.Estimators, 20)

	score, err := f.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)

	imp, err := f.FeatureImportances()
	require.NoError(t, err)
	require.Len(t, imp, 3)
	assert.Greater(t, imp[0], imp[1])
	assert.Greater(t, imp[1], imp[2])
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
}

func TestRandomForestRegressor_DeterministicAcrossNJobs(t *testing.T) {
	X, y := linearData(60)
	serial := NewRandomForestRegressor(WithNEstimators(8), WithRandomState(42), WithNJobs(1), WithMaxFeatures("sqrt"))
	concurrent := NewRandomForestRegressor(WithNEstimators(8), WithRandomState(42), WithNJobs(4), WithMaxFeatures("sqrt"))
	require.NoError(t, serial.Fit(X, y))
	require.NoError(t, concurrent.Fit(X, y))

	a, err := serial.Predict(X)
	require.NoError(t, err)
	b, err := concurrent.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))
}

func TestRandomForestRegressor_NoBootstrapMatchesSingleTree(t *testing.T) {
	X, y := linearData(30)
	f := NewRandomForestRegressor(WithNEstimators(3), WithBootstrap(false))
	require.NoError(t, f.Fit(X, y))
	// 全特徴量・全サンプルなので全ての木が同一
	assert.Equal(t, f.Estimators[0].Nodes, f.Estimators[1].Nodes)
	assert.Equal(t, f.Estimators[1].Nodes, f.Estimators[2].Nodes)
}

func TestRandomForestRegressor_Params(t *testing.T) {
	f := NewRandomForestRegressor()
	p := f.GetParams(true)
	assert.Equal(t, 100, p["n_estimators"])
	assert.Nil(t, p["max_depth"])
	assert.Equal(t, true, p["bootstrap"])

	require.NoError(t, f.SetParams(map[string]interface{}{
		"n_estimators": 50,
		"max_depth":    20,
		"max_features": "log2",
		"bootstrap":    false,
	}))
	assert.Equal(t, 50, f.NEstimators)
	assert.Equal(t, 20, f.MaxDepth)
	assert.False(t, f.Bootstrap)

	clone := f.Clone().(*RandomForestRegressor)
	assert.Equal(t, f.GetParams(true), clone.GetParams(true))
	assert.Nil(t, clone.Estimators)

	assert.Error(t, f.SetParams(map[string]interface{}{"n_estimators": 0}))
	assert.Error(t, f.SetParams(map[string]interface{}{"oob_score": true}))
}

func TestRandomForestRegressor_Errors(t *testing.T) {
	X, y := linearData(10)

	_, err := NewRandomForestRegressor().Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = NewRandomForestRegressor(WithNEstimators(0)).Fit(X, y)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	f := NewRandomForestRegressor(WithNEstimators(2))
	require.NoError(t, f.Fit(X, y))
	_, err = f.Predict(mat.NewDense(2, 5, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestRandomForestRegressor_GobRoundTrip(t *testing.T) {
	X, y := linearData(40)
	f := NewRandomForestRegressor(WithNEstimators(5), WithRandomState(3))
	require.NoError(t, f.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(f))
	var loaded RandomForestRegressor
	require.NoError(t, gob.NewDecoder(&buf).Decode(&loaded))

	want, _ := f.Predict(X)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}
