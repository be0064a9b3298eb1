// Package ensemble はバギングによる回帰木アンサンブルを提供します。
package ensemble

import (
	"encoding/gob"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/core/model"
	"github.com/pricingwizard/pricingwizard/core/parallel"
	"github.com/pricingwizard/pricingwizard/core/params"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
	"github.com/pricingwizard/pricingwizard/sklearn/tree"
)

func init() {
	gob.Register(&RandomForestRegressor{})
}

// RandomForestRegressor averages the predictions of decision trees fitted on
// bootstrap samples with per-node feature subsampling.
type RandomForestRegressor struct {
	NEstimators     int
	MaxDepth        int // 0 => 制限なし
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     interface{} // nil => 全特徴量 (sklearn 回帰の既定値 1.0)
	Bootstrap       bool
	RandomState     uint64
	NJobs           int // <= 0 なら GOMAXPROCS

	Estimators []*tree.DecisionTreeRegressor

	State *model.StateManager
}

// Option configures a RandomForestRegressor.
type Option func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(f *RandomForestRegressor) { f.NEstimators = n }
}

// WithMaxDepth sets max_depth for every tree. 0 means unlimited.
func WithMaxDepth(d int) Option { return func(f *RandomForestRegressor) { f.MaxDepth = d } }

// WithMinSamplesSplit sets min_samples_split for every tree.
func WithMinSamplesSplit(n int) Option {
	return func(f *RandomForestRegressor) { f.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets min_samples_leaf for every tree.
func WithMinSamplesLeaf(n int) Option {
	return func(f *RandomForestRegressor) { f.MinSamplesLeaf = n }
}

// WithMaxFeatures sets max_features for every tree.
func WithMaxFeatures(v interface{}) Option {
	return func(f *RandomForestRegressor) { f.MaxFeatures = v }
}

// WithBootstrap toggles bootstrap resampling.
func WithBootstrap(b bool) Option { return func(f *RandomForestRegressor) { f.Bootstrap = b } }

// WithRandomState sets the forest seed.
func WithRandomState(seed uint64) Option {
	return func(f *RandomForestRegressor) { f.RandomState = seed }
}

// WithNJobs sets the number of trees fitted concurrently.
func WithNJobs(n int) Option { return func(f *RandomForestRegressor) { f.NJobs = n } }

// NewRandomForestRegressor creates an unfitted forest with sklearn defaults.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	f := &RandomForestRegressor{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		State:           model.NewStateManager(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit fits NEstimators trees concurrently. Each tree receives its own seed,
// drawn up front from the forest seed, so the result does not depend on NJobs.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", f.NEstimators)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("RandomForestRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	yr, _ := y.Dims()
	if yr != r {
		return errors.NewDimensionError("RandomForestRegressor.Fit", r, yr, 0)
	}

	rng := rand.New(rand.NewPCG(f.RandomState, f.RandomState))
	seeds := make([]uint64, f.NEstimators)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	trees := make([]*tree.DecisionTreeRegressor, f.NEstimators)
	err := parallel.ForEach(f.NEstimators, f.NJobs, "RandomForestRegressor.Fit", func(i int) error {
		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(f.MaxDepth),
			tree.WithMinSamplesSplit(f.MinSamplesSplit),
			tree.WithMinSamplesLeaf(f.MinSamplesLeaf),
			tree.WithMaxFeatures(f.MaxFeatures),
			tree.WithRandomState(seeds[i]),
		)
		sample := make([]int, r)
		if f.Bootstrap {
			local := rand.New(rand.NewPCG(seeds[i], ^seeds[i]))
			for k := range sample {
				sample[k] = local.IntN(r)
			}
		} else {
			for k := range sample {
				sample[k] = k
			}
		}
		if err := t.FitSample(X, y, sample); err != nil {
			return err
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return err
	}

	f.Estimators = trees
	f.state().SetDimensions(c, r)
	f.state().SetFitted()
	return nil
}

// Predict returns the mean prediction over all trees as an n×1 vector.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := f.state().RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := f.state().RequireFeatures("RandomForestRegressor.Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(r, nil)
	for _, t := range f.Estimators {
		p, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		out.AddVec(out, p.(*mat.VecDense))
	}
	out.ScaleVec(1/float64(len(f.Estimators)), out)
	return out, nil
}

// Score returns R² of the predictions on X against y.
func (f *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(metrics.ColumnVector(y), metrics.ColumnVector(pred))
}

// FeatureImportances returns the mean impurity-based importance over trees.
func (f *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if err := f.state().RequireFitted("RandomForestRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	nFeatures, _ := f.state().GetDimensions()
	out := make([]float64, nFeatures)
	for _, t := range f.Estimators {
		imp, err := t.FeatureImportances()
		if err != nil {
			return nil, err
		}
		for j, v := range imp {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(f.Estimators))
	}
	return out, nil
}

// GetParams returns the hyperparameters by sklearn name.
func (f *RandomForestRegressor) GetParams(deep bool) map[string]interface{} {
	var maxDepth interface{}
	if f.MaxDepth > 0 {
		maxDepth = f.MaxDepth
	}
	return map[string]interface{}{
		"n_estimators":      f.NEstimators,
		"max_depth":         maxDepth,
		"min_samples_split": f.MinSamplesSplit,
		"min_samples_leaf":  f.MinSamplesLeaf,
		"max_features":      f.MaxFeatures,
		"bootstrap":         f.Bootstrap,
		"random_state":      f.RandomState,
		"n_jobs":            f.NJobs,
	}
}

// SetParams sets hyperparameters by sklearn name.
func (f *RandomForestRegressor) SetParams(p map[string]interface{}) error {
	for k, v := range p {
		var err error
		switch k {
		case "n_estimators":
			f.NEstimators, err = params.Int(k, v, 1)
		case "max_depth":
			f.MaxDepth, err = params.OptionalInt(k, v, 1)
		case "min_samples_split":
			f.MinSamplesSplit, err = params.Int(k, v, 2)
		case "min_samples_leaf":
			f.MinSamplesLeaf, err = params.Int(k, v, 1)
		case "max_features":
			f.MaxFeatures, err = params.MaxFeatures(v)
		case "bootstrap":
			f.Bootstrap, err = params.Bool(k, v)
		case "random_state":
			f.RandomState, err = params.Uint64(k, v)
		case "n_jobs":
			f.NJobs, err = params.Int(k, v, -1)
		default:
			err = errors.NewValidationError(k, "unknown parameter for RandomForestRegressor", v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted forest with the same hyperparameters.
func (f *RandomForestRegressor) Clone() model.SKLearnCompatible {
	return NewRandomForestRegressor(
		WithNEstimators(f.NEstimators),
		WithMaxDepth(f.MaxDepth),
		WithMinSamplesSplit(f.MinSamplesSplit),
		WithMinSamplesLeaf(f.MinSamplesLeaf),
		WithMaxFeatures(f.MaxFeatures),
		WithBootstrap(f.Bootstrap),
		WithRandomState(f.RandomState),
		WithNJobs(f.NJobs),
	)
}

func (f *RandomForestRegressor) state() *model.StateManager {
	if f.State == nil {
		f.State = model.NewStateManager()
	}
	return f.State
}
