// Package inspection は学習済みモデルの Permutation Importance を計算します。
package inspection

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pricingwizard/pricingwizard/core/parallel"
	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// Predictor はフレームを直接受け取る学習済みモデル
type Predictor interface {
	Predict(X *dataset.Frame) (*mat.VecDense, error)
}

// Importances は列ごとの Permutation Importance。順序は入力列の順序。
type Importances struct {
	Mean []float64
	Std  []float64
	Raw  [][]float64 // [column][repeat]
}

type config struct {
	nRepeats    int
	randomState uint64
	scorer      metrics.Scorer
	nJobs       int
}

// Option configures PermutationImportance.
type Option func(*config)

// WithNRepeats sets how many times each column is shuffled. Default 5.
func WithNRepeats(n int) Option { return func(c *config) { c.nRepeats = n } }

// WithRandomState sets the shuffle seed.
func WithRandomState(seed uint64) Option { return func(c *config) { c.randomState = seed } }

// WithScorer sets the score to degrade. Default R².
func WithScorer(s metrics.Scorer) Option { return func(c *config) { c.scorer = s } }

// WithNJobs sets how many columns are evaluated concurrently.
func WithNJobs(n int) Option { return func(c *config) { c.nJobs = n } }

// PermutationImportance は各列をシャッフルしたときのスコア低下量（baseline - permuted）を返す。
//
// 全列で同じシードから始まるシャッフル列を使うため、結果は並列度に依存しない。
func PermutationImportance(ctx context.Context, est Predictor, X *dataset.Frame, y *mat.VecDense, opts ...Option) (*Importances, error) {
	cfg := config{nRepeats: 5, scorer: metrics.R2Score, nJobs: 1}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.nRepeats < 1 {
		return nil, errors.NewValidationError("n_repeats", "must be >= 1", cfg.nRepeats)
	}
	if X == nil || X.NRows() == 0 || y == nil {
		return nil, errors.NewModelError("PermutationImportance", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != X.NRows() {
		return nil, errors.NewDimensionError("PermutationImportance", X.NRows(), y.Len(), 0)
	}

	baseline, err := score(est, X, y, cfg.scorer)
	if err != nil {
		return nil, errors.Wrap(err, "baseline score")
	}

	seed := rand.New(rand.NewPCG(cfg.randomState, cfg.randomState)).Uint64()
	n := X.NRows()
	raw := make([][]float64, X.NCols())

	err = parallel.ForEach(X.NCols(), cfg.nJobs, "PermutationImportance", func(j int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rng := rand.New(rand.NewPCG(seed, seed))
		col := X.Column(j)
		shuffled := make([]string, n)
		perm := make([]int, n)
		for i := range perm {
			perm[i] = i
		}
		raw[j] = make([]float64, cfg.nRepeats)
		for r := 0; r < cfg.nRepeats; r++ {
			rng.Shuffle(n, func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
			for i, p := range perm {
				shuffled[i] = col[p]
			}
			Xp, err := X.WithColumn(j, shuffled)
			if err != nil {
				return err
			}
			s, err := score(est, Xp, y, cfg.scorer)
			if err != nil {
				return errors.Wrapf(err, "column %q repeat %d", X.Columns()[j], r)
			}
			raw[j][r] = baseline - s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &Importances{
		Mean: make([]float64, len(raw)),
		Std:  make([]float64, len(raw)),
		Raw:  raw,
	}
	for j, r := range raw {
		mean, variance := stat.PopMeanVariance(r, nil)
		out.Mean[j] = mean
		out.Std[j] = math.Sqrt(variance)
	}
	return out, nil
}

func score(est Predictor, X *dataset.Frame, y *mat.VecDense, scorer metrics.Scorer) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return 0, err
	}
	return scorer(y, pred)
}
