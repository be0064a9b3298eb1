package inspection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/pipeline"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
	"github.com/pricingwizard/pricingwizard/preprocessing"
	"github.com/pricingwizard/pricingwizard/sklearn/tree"
)

// brand だけが価格を決め、colour は無関係
func fittedModel(t *testing.T) (*pipeline.Pipeline, *dataset.Frame, *mat.VecDense) {
	t.Helper()
	brands := []string{"a", "b", "c", "d"}
	colours := []string{"red", "blue", "green"}
	rows := make([][]string, 0, 24)
	y := make([]float64, 0, 24)
	for i := 0; i < 24; i++ {
		b := i % len(brands)
		rows = append(rows, []string{brands[b], colours[(i/4)%len(colours)]})
		y = append(y, float64(10*(b+1)))
	}
	X, err := dataset.NewFrame([]string{"brand", "colour"}, rows)
	require.NoError(t, err)
	yv := mat.NewVecDense(len(y), y)

	p := pipeline.New(preprocessing.NewOneHotEncoder(preprocessing.HandleUnknownIgnore), tree.NewDecisionTreeRegressor())
	require.NoError(t, p.Fit(X, yv))
	return p, X, yv
}

func TestPermutationImportance(t *testing.T) {
	p, X, y := fittedModel(t)

	imp, err := PermutationImportance(context.Background(), p, X, y,
		WithNRepeats(10), WithRandomState(42))
	require.NoError(t, err)
	require.Len(t, imp.Mean, 2)
	require.Len(t, imp.Raw[0], 10)

	assert.Greater(t, imp.Mean[0], 0.5)
	assert.Equal(t, 0.0, imp.Mean[1])
	assert.Equal(t, 0.0, imp.Std[1])
}

func TestPermutationImportance_Deterministic(t *testing.T) {
	p, X, y := fittedModel(t)
	a, err := PermutationImportance(context.Background(), p, X, y,
		WithNRepeats(4), WithRandomState(42), WithNJobs(1))
	require.NoError(t, err)
	b, err := PermutationImportance(context.Background(), p, X, y,
		WithNRepeats(4), WithRandomState(42), WithNJobs(2))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPermutationImportance_CustomScorer(t *testing.T) {
	p, X, y := fittedModel(t)
	imp, err := PermutationImportance(context.Background(), p, X, y,
		WithScorer(metrics.NegMeanSquaredError), WithNRepeats(3))
	require.NoError(t, err)
	// 完全予測なので baseline は 0、低下量は permuted MSE そのもの
	assert.Greater(t, imp.Mean[0], 0.0)
}

func TestPermutationImportance_Errors(t *testing.T) {
	p, X, y := fittedModel(t)

	_, err := PermutationImportance(context.Background(), p, X, mat.NewVecDense(3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = PermutationImportance(context.Background(), p, X, y, WithNRepeats(0))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	unfitted := pipeline.New(preprocessing.NewOneHotEncoder(preprocessing.HandleUnknownIgnore), tree.NewDecisionTreeRegressor())
	_, err = PermutationImportance(context.Background(), unfitted, X, y)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = PermutationImportance(ctx, p, X, y)
	assert.True(t, errors.Is(err, context.Canceled))
}
