package model

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

type savedModel struct {
	Name    string
	Weights []float64
	State   *StateManager
}

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("Ridge", "Predict")
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Ridge", nf.ModelName)

	s.SetDimensions(4, 100)
	s.SetFitted()
	assert.NoError(t, s.RequireFitted("Ridge", "Predict"))
	assert.NoError(t, s.RequireFeatures("Predict", 4))

	err = s.RequireFeatures("Predict", 3)
	var de *errors.DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 4, de.Expected)

	s.Reset()
	nf2, ns := s.GetDimensions()
	assert.False(t, s.IsFitted())
	assert.Zero(t, nf2)
	assert.Zero(t, ns)
}

func TestSaveAndLoadModel(t *testing.T) {
	state := NewStateManager()
	state.SetDimensions(2, 10)
	state.SetFitted()
	in := &savedModel{Name: "ridge", Weights: []float64{0.5, -1.25}, State: state}

	path := filepath.Join(t.TempDir(), "nested", "dir", "prediction_ridge.pkl")
	require.NoError(t, SaveModel(in, path))

	// 上書き保存できること
	in.Weights[0] = 0.75
	require.NoError(t, SaveModel(in, path))

	var out savedModel
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, "ridge", out.Name)
	assert.Equal(t, []float64{0.75, -1.25}, out.Weights)
	assert.True(t, out.State.IsFitted())
}

func TestLoadModelErrors(t *testing.T) {
	var out savedModel
	assert.Error(t, LoadModel(&out, filepath.Join(t.TempDir(), "missing.pkl")))

	bad := filepath.Join(t.TempDir(), "bad.pkl")
	require.NoError(t, os.WriteFile(bad, []byte("not gob"), 0o644))
	assert.Error(t, LoadModel(&out, bad))
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(&savedModel{Name: "tree"}, &buf))

	var out savedModel
	require.NoError(t, LoadModelFromReader(&out, &buf))
	assert.Equal(t, "tree", out.Name)
}
