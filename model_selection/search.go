package model_selection

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pricingwizard/pricingwizard/core/model"
	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
	"github.com/pricingwizard/pricingwizard/pkg/log"
)

// CVResults は候補ごとの交差検証結果（sklearn の cv_results_ に相当）
type CVResults struct {
	Params          []ParamSet
	MeanTestScore   []float64
	StdTestScore    []float64
	SplitTestScores [][]float64 // [candidate][fold]
	RankTestScore   []int       // 1 が最良。同点は同順位
	MeanFitTime     []time.Duration
}

// SearchOption configures GridSearchCV and RandomizedSearchCV.
type SearchOption func(*searchCV)

// WithCV sets the number of (unshuffled) KFold splits. Default 5.
func WithCV(k int) SearchOption {
	return func(s *searchCV) { s.CV = NewKFold(k, false, 0) }
}

// WithKFold sets an explicit splitter.
func WithKFold(kf *KFold) SearchOption {
	return func(s *searchCV) { s.CV = kf }
}

// WithScoring sets the scorer. Default neg_mean_squared_error.
func WithScoring(scorer metrics.Scorer) SearchOption {
	return func(s *searchCV) { s.Scoring = scorer }
}

// WithNJobs bounds the number of concurrent fits. <= 0 uses every CPU.
func WithNJobs(n int) SearchOption {
	return func(s *searchCV) { s.NJobs = n }
}

// WithRefit toggles refitting the best candidate on the full data. Default true.
func WithRefit(refit bool) SearchOption {
	return func(s *searchCV) { s.Refit = refit }
}

// WithLogger sets the logger for search progress.
func WithLogger(l log.Logger) SearchOption {
	return func(s *searchCV) { s.logger = l }
}

// searchCV は GridSearchCV と RandomizedSearchCV の共通部分
type searchCV struct {
	Estimator model.TabularRegressor
	CV        *KFold
	Scoring   metrics.Scorer
	NJobs     int
	Refit     bool

	// 学習結果
	CVResults     *CVResults
	BestIndex     int
	BestParams    ParamSet
	BestScore     float64
	BestEstimator model.TabularRegressor
	RefitTime     time.Duration

	logger log.Logger
}

func newSearchCV(est model.TabularRegressor, opts []SearchOption) searchCV {
	s := searchCV{
		Estimator: est,
		CV:        NewKFold(5, false, 0),
		Scoring:   metrics.NegMeanSquaredError,
		NJobs:     1,
		Refit:     true,
		BestIndex: -1,
	}
	for _, o := range opts {
		o(&s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("model_selection")
	}
	return s
}

// run は全候補 × 全分割を並列に評価し、最良候補を選んで（必要なら）再学習する。
func (s *searchCV) run(ctx context.Context, phase string, candidates []ParamSet, X *dataset.Frame, y *mat.VecDense) error {
	if err := checkXY("SearchCV.Fit", X, y); err != nil {
		return err
	}
	if len(candidates) == 0 {
		return errors.NewValidationError("candidates", "no parameter candidates to evaluate", 0)
	}
	folds, err := s.CV.Split(X.NRows())
	if err != nil {
		return err
	}
	data := materialize(X, y, folds)

	nc, nf := len(candidates), len(folds)
	s.logger.Info("Fitting candidates",
		log.PhaseKey, phase,
		log.CandidatesKey, nc,
		log.FoldKey, nf,
		log.SamplesKey, X.NRows(),
	)

	scores := make([][]float64, nc)
	fitTimes := make([][]time.Duration, nc)
	for c := range scores {
		scores[c] = make([]float64, nf)
		fitTimes[c] = make([]time.Duration, nf)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(s.NJobs))
	for task := 0; task < nc*nf; task++ {
		c, f := task/nf, task%nf
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return errors.SafeExecute("SearchCV.Fit", func() error {
				start := time.Now()
				sc, err := fitAndScore(s.Estimator, candidates[c], data[f], s.Scoring)
				if err != nil {
					return errors.Wrapf(err, "candidate %d %s, fold %d", c, candidates[c], f)
				}
				scores[c][f] = sc
				fitTimes[c][f] = time.Since(start)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	res := &CVResults{
		Params:          candidates,
		MeanTestScore:   make([]float64, nc),
		StdTestScore:    make([]float64, nc),
		SplitTestScores: scores,
		RankTestScore:   make([]int, nc),
		MeanFitTime:     make([]time.Duration, nc),
	}
	best := -1
	for c := range candidates {
		mean, variance := stat.PopMeanVariance(scores[c], nil)
		if err := errors.CheckScalar("cv_score", mean, c); err != nil {
			return err
		}
		res.MeanTestScore[c] = mean
		res.StdTestScore[c] = math.Sqrt(variance)
		var total time.Duration
		for _, d := range fitTimes[c] {
			total += d
		}
		res.MeanFitTime[c] = total / time.Duration(nf)
		// 同点なら先の候補を優先
		if best < 0 || mean > res.MeanTestScore[best] {
			best = c
		}
	}
	for c := range candidates {
		rank := 1
		for o := range candidates {
			if res.MeanTestScore[o] > res.MeanTestScore[c] {
				rank++
			}
		}
		res.RankTestScore[c] = rank
	}

	s.CVResults = res
	s.BestIndex = best
	s.BestParams = candidates[best].Copy()
	s.BestScore = res.MeanTestScore[best]

	s.logger.Info("Search finished",
		log.PhaseKey, phase,
		log.ScoreKey, s.BestScore,
		log.HyperParamsKey, s.BestParams.String(),
	)

	if !s.Refit {
		return nil
	}
	est := s.Estimator.Clone()
	if err := est.SetParams(s.BestParams); err != nil {
		return err
	}
	start := time.Now()
	if err := est.Fit(X, y); err != nil {
		return errors.Wrap(err, "refit best estimator")
	}
	s.RefitTime = time.Since(start)
	s.BestEstimator = est
	return nil
}

// Predict uses the refitted best estimator.
func (s *searchCV) Predict(X *dataset.Frame) (*mat.VecDense, error) {
	if s.BestEstimator == nil {
		return nil, errors.NewNotFittedError("SearchCV", "Predict")
	}
	return s.BestEstimator.Predict(X)
}

// GridSearchCV は ParamGrid の全組み合わせを交差検証で評価する
type GridSearchCV struct {
	searchCV
	ParamGrid Grid
}

// NewGridSearchCV creates a grid search over est.
func NewGridSearchCV(est model.TabularRegressor, grid Grid, opts ...SearchOption) *GridSearchCV {
	return &GridSearchCV{searchCV: newSearchCV(est, opts), ParamGrid: grid}
}

// Fit evaluates every grid combination and refits the best one on X.
func (g *GridSearchCV) Fit(ctx context.Context, X *dataset.Frame, y *mat.VecDense) error {
	pg, err := NewParameterGrid(g.ParamGrid)
	if err != nil {
		return err
	}
	return g.run(ctx, log.PhaseGridSearch, pg.All(), X, y)
}

// RandomizedSearchCV は ParamDistributions から NIter 個を非復元抽出して評価する
type RandomizedSearchCV struct {
	searchCV
	ParamDistributions Grid
	NIter              int
	RandomState        uint64
}

// NewRandomizedSearchCV creates a randomized search over est.
func NewRandomizedSearchCV(est model.TabularRegressor, grid Grid, nIter int, randomState uint64, opts ...SearchOption) *RandomizedSearchCV {
	return &RandomizedSearchCV{
		searchCV:           newSearchCV(est, opts),
		ParamDistributions: grid,
		NIter:              nIter,
		RandomState:        randomState,
	}
}

// Fit samples NIter combinations, evaluates them and refits the best one on X.
func (r *RandomizedSearchCV) Fit(ctx context.Context, X *dataset.Frame, y *mat.VecDense) error {
	candidates, err := ParameterSampler{
		Grid:        r.ParamDistributions,
		NIter:       r.NIter,
		RandomState: r.RandomState,
	}.Sample()
	if err != nil {
		return err
	}
	return r.run(ctx, log.PhaseRandomizedSearch, candidates, X, y)
}
