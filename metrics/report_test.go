package metrics

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

func TestRound4(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.123449, 0.1234},
		{0.12345, 0.1235},
		{2.0, 2.0},
		{-1.00005, -1.0001},
		{123456.789012, 123456.789},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round4(tt.in), "Round4(%v)", tt.in)
	}
	assert.True(t, math.IsNaN(Round4(math.NaN())))
}

func TestSummarize(t *testing.T) {
	var buf bytes.Buffer
	s, err := Summarize(&buf, "Random Forest", vec(3, 5, 2.5, 7), vec(2.5, 5, 4, 8))
	require.NoError(t, err)

	assert.Equal(t, "Random Forest", s.Label)
	assert.Equal(t, 0.875, s.MSE)
	assert.Equal(t, Round4(math.Sqrt(s.MSE)), s.RMSE)
	assert.Equal(t, 0.75, s.MAE)
	assert.Equal(t, 0.0397, s.MSLE)

	out := buf.String()
	assert.Contains(t, out, "Metric (Random Forest)")
	assert.Contains(t, out, "Value")
	assert.Contains(t, out, "0.8750")
	assert.Contains(t, out, "0.9354")

	// 行の順序
	order := []string{"Explained Variance", "Mean Squared Log Error", "R2", "MAE", "MSE", "Median Absolute Error", "Root Mean Squared Error"}
	last := -1
	for _, name := range order {
		idx := strings.Index(out, "| "+name+" ")
		require.GreaterOrEqual(t, idx, 0, name)
		assert.Greater(t, idx, last, name)
		last = idx
	}
}

func TestSummaryRowsAreRounded(t *testing.T) {
	s, err := NewSummary("Ridge", vec(1.123456, 2.654321, 3.999999), vec(1.2, 2.5, 4.1))
	require.NoError(t, err)
	require.Len(t, s.Rows(), 7)
	for _, row := range s.Rows() {
		assert.Equal(t, Round4(row.Value), row.Value, row.Name)
	}
}

func TestSummarizeFailuresWriteNothing(t *testing.T) {
	var buf bytes.Buffer
	_, err := Summarize(&buf, "Random Forest", vec(1, -2, 3), vec(1, 2, 3))
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
	assert.Empty(t, buf.String())

	_, err = Summarize(&buf, "Random Forest", vec(1, 2, 3), vec(1, 2))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
	assert.Empty(t, buf.String())
}
