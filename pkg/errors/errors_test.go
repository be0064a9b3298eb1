package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "pricingwizard: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "pricingwizard: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースにテストファイル名が含まれること
			assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")

			var modelErr *ModelError
			require.True(t, As(err, &modelErr))
			assert.Equal(t, tt.op, modelErr.Op)
		})
	}
}

func TestModelErrorUnwrap(t *testing.T) {
	err := NewModelError("Ridge.Fit", "cholesky failed", ErrSingularMatrix)
	assert.True(t, Is(err, ErrSingularMatrix))
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 7, 1)
	assert.Equal(t, "pricingwizard: Predict: dimension mismatch on axis 1 (features). Expected 10, got 7", err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 10, dimErr.Expected)
	assert.Equal(t, 7, dimErr.Got)
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("RandomForestRegressor", "Predict")
	assert.Contains(t, err.Error(), "not fitted yet")

	var nf *NotFittedError
	require.True(t, As(err, &nf))
	assert.Equal(t, "Predict", nf.Method)
}

func TestNewValueErrorAndValidationError(t *testing.T) {
	err := NewValueError("MSLE", "targets contain negative values")
	var ve *ValueError
	require.True(t, As(err, &ve))
	assert.Equal(t, "MSLE", ve.Op)

	err = NewValidationError("n_estimators", "must be positive", -1)
	var vErr *ValidationError
	require.True(t, As(err, &vErr))
	assert.Equal(t, "n_estimators", vErr.ParamName)
	assert.Equal(t, -1, vErr.Value)
}

func TestWrapKeepsType(t *testing.T) {
	base := NewValueError("Summarize", "bad input")
	wrapped := Wrapf(Wrap(base, "metrics reporter"), "label %s", "Random Forest")

	var ve *ValueError
	assert.True(t, As(wrapped, &ve))
	assert.Contains(t, wrapped.Error(), "label Random Forest")
	assert.Contains(t, wrapped.Error(), "metrics reporter")
}

func TestWarnRoutesToHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { SetWarningHandler(func(error) {}) })

	Warn(NewUndefinedMetricWarning("r2", "constant y_true", 0))
	Warn(&SearchSpaceWarning{Requested: 10, Available: 4})

	require.Len(t, got, 2)
	assert.Contains(t, got[0].Error(), "'r2' is ill-defined")
	assert.Contains(t, got[1].Error(), "smaller than n_iter=10")
}

func TestWarnPrefersZerologFunc(t *testing.T) {
	var handler, zl int
	SetWarningHandler(func(error) { handler++ })
	SetZerologWarnFunc(func(error) { zl++ })
	t.Cleanup(func() {
		SetZerologWarnFunc(nil)
		SetWarningHandler(func(error) {})
	})

	Warn(NewDataConversionWarning("string", "float64", "target column"))
	assert.Equal(t, 0, handler)
	assert.Equal(t, 1, zl)
}

func TestCheckScalar(t *testing.T) {
	assert.NoError(t, CheckScalar("score", 0.5, 0))

	err := CheckScalar("score", nan(), 3)
	var ni *NumericalInstabilityError
	require.True(t, As(err, &ni))
	assert.Equal(t, 3, ni.Iteration)

	assert.Error(t, CheckNumericalStability("scores", []float64{1, 2, inf()}, 0))
	assert.NoError(t, CheckNumericalStability("scores", []float64{1, 2, 3}, 0))
}

func TestGetSafeDetails(t *testing.T) {
	err := NewValueError("op", "msg")
	details := GetSafeDetails(err)
	require.NotEmpty(t, details)
	assert.Contains(t, details[0], "errors_test.go")
}
