package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

func vec(v ...float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{name: "perfect prediction", yTrue: vec(1, 2, 3, 4, 5), yPred: vec(1, 2, 3, 4, 5), want: 0},
		{name: "simple case", yTrue: vec(1, 2, 3, 4), yPred: vec(1.5, 2.5, 2.5, 3.5), want: 0.25},
		{name: "larger errors", yTrue: vec(10, 20, 30), yPred: vec(12, 18, 33), want: 17.0 / 3.0},
		{name: "dimension mismatch", yTrue: vec(1, 2, 3), yPred: vec(1, 2), wantErr: true},
		{name: "empty vectors", yTrue: &mat.VecDense{}, yPred: &mat.VecDense{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestMSEMatrix(t *testing.T) {
	got, err := MSEMatrix(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 1, []float64{1, 2, 5}))
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3.0, got, 1e-12)

	_, err = MSEMatrix(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil))
	assert.Error(t, err)
	_, err = MSEMatrix(mat.NewDense(3, 1, nil), mat.NewDense(2, 1, nil))
	assert.Error(t, err)
}

func TestRMSEAndMAE(t *testing.T) {
	rmse, err := RMSE(vec(1, 2, 3, 4), vec(1.5, 2.5, 2.5, 3.5))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rmse, 1e-12)

	mae, err := MAE(vec(10, 20, 30), vec(12, 18, 33))
	require.NoError(t, err)
	assert.InDelta(t, 7.0/3.0, mae, 1e-12)
}

func TestMSLE(t *testing.T) {
	got, err := MSLE(vec(3, 5, 2.5, 7), vec(2.5, 5, 4, 8))
	require.NoError(t, err)
	// sklearn.metrics.mean_squared_log_error([3,5,2.5,7],[2.5,5,4,8]) = 0.03973...
	assert.InDelta(t, 0.039730, got, 1e-6)

	_, err = MSLE(vec(1, -2), vec(1, 2))
	var ve *errors.ValueError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Message, "negative values")

	_, err = MSLE(vec(1, 2), vec(1, -0.5))
	assert.Error(t, err)
}

func TestMedianAbsoluteError(t *testing.T) {
	odd, err := MedianAbsoluteError(vec(3, -0.5, 2, 7), vec(2.5, 0.0, 2, 8))
	require.NoError(t, err)
	// |errors| = 0.5, 0.5, 0, 1 → median of 4 values = (0.5+0.5)/2
	assert.InDelta(t, 0.5, odd, 1e-12)

	even, err := MedianAbsoluteError(vec(1, 2, 3, 4), vec(1, 2, 4, 6))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, even, 1e-12)

	three, err := MedianAbsoluteError(vec(1, 2, 3), vec(2, 2, 6))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, three, 1e-12)
}

func TestR2Score(t *testing.T) {
	got, err := R2Score(vec(3, -0.5, 2, 7), vec(2.5, 0.0, 2, 8))
	require.NoError(t, err)
	assert.InDelta(t, 0.948608, got, 1e-6)

	perfect, err := R2Score(vec(1, 2, 3), vec(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 1.0, perfect)
}

func TestR2ScoreConstantTarget(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	exact, err := R2Score(vec(2, 2, 2), vec(2, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 1.0, exact)

	off, err := R2Score(vec(2, 2, 2), vec(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 0.0, off)

	single, err := R2Score(vec(1), vec(2))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(single))

	require.Len(t, warned, 3)
	var um *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warned[0], &um))
}

func TestExplainedVarianceScore(t *testing.T) {
	got, err := ExplainedVarianceScore(vec(3, -0.5, 2, 7), vec(2.5, 0.0, 2, 8))
	require.NoError(t, err)
	assert.InDelta(t, 0.957173, got, 1e-6)

	// 一定のバイアスは説明分散に影響しない
	shifted, err := ExplainedVarianceScore(vec(1, 2, 3), vec(2, 3, 4))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, shifted, 1e-12)

	errors.SetWarningHandler(func(error) {})
	constant, err := ExplainedVarianceScore(vec(5, 5), vec(4, 6))
	require.NoError(t, err)
	assert.Equal(t, 0.0, constant)
}

func TestMAPE(t *testing.T) {
	got, err := MAPE(vec(100, 200, 0), vec(110, 180, 5))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got, 1e-12)

	_, err = MAPE(vec(0, 0), vec(1, 1))
	assert.Error(t, err)
}

func TestScorers(t *testing.T) {
	s, err := ScorerByName("neg_mean_squared_error")
	require.NoError(t, err)
	got, err := s(vec(10, 20, 30), vec(12, 18, 33))
	require.NoError(t, err)
	assert.InDelta(t, -17.0/3.0, got, 1e-12)

	for _, name := range []string{"neg_mean_absolute_error", "neg_root_mean_squared_error", "r2", "explained_variance"} {
		_, err := ScorerByName(name)
		assert.NoError(t, err, name)
	}

	_, err = ScorerByName("accuracy")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func BenchmarkMSE(b *testing.B) {
	n := 10000
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, float64(i))
		yPred.SetVec(i, float64(i)+0.5)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MSE(yTrue, yPred)
	}
}
