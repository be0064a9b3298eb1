package errors

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nan() float64 { return math.NaN() }
func inf() float64 { return math.Inf(1) }

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, As(err, &panicErr))
	assert.Equal(t, "TestOperation", panicErr.Operation)
	assert.Equal(t, "test panic message", panicErr.PanicValue)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Equal(t, "panic in TestOperation: test panic message", panicErr.Error())
	assert.Contains(t, panicErr.String(), "Stack trace:")
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}
	assert.NoError(t, testFunc())
}

func TestRecover_WithExistingError(t *testing.T) {
	original := fmt.Errorf("original")
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		err = original
		panic("boom")
	}

	err := testFunc()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, Is(err, original))
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name    string
		fn      func() error
		wantErr bool
		isPanic bool
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "function error", fn: func() error { return New("failed") }, wantErr: true},
		{name: "panic", fn: func() error {
			var s []int
			_ = s[3]
			return nil
		}, wantErr: true, isPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("op", tt.fn)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var pe *PanicError
			assert.Equal(t, tt.isPanic, As(err, &pe))
		})
	}
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("bench", func() error { return nil })
	}
}
