// Package tuning は二段階ハイパーパラメータ探索（ランダム探索 → 単一候補グリッド探索）を行い、
// 再学習・交差検証・ホールドアウト評価・Permutation Importance をひとまとめにした Result を返します。
package tuning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pricingwizard/pricingwizard/core/model"
	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/inspection"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/model_selection"
	"github.com/pricingwizard/pricingwizard/pipeline"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
	"github.com/pricingwizard/pricingwizard/pkg/log"
	"github.com/pricingwizard/pricingwizard/preprocessing"
)

// Defaults of the two-step search.
const (
	DefaultNIter       = 10
	DefaultCV          = 5
	DefaultNRepeats    = 10
	DefaultRandomState = 42
)

// FeatureImportance は入力列名と Permutation Importance の平均値の組
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// Result は1回のチューニングの成果物。返却後は変更しない。
type Result struct {
	RunID string
	Label string

	// Params は後半（グリッド探索）の最良パラメータ
	Params model_selection.ParamSet
	// RandomSearchParams は前半（ランダム探索）の最良パラメータ
	RandomSearchParams model_selection.ParamSet

	Model              *pipeline.Pipeline
	FeatureImportances []FeatureImportance // 入力列の順序

	TrainingTime time.Duration
	MSEMeanCV    float64 // 5分割 neg MSE の平均（負の値）
	MSETest      float64

	YPred *mat.VecDense
	YTest *mat.VecDense

	CreatedAt time.Time
}

// WithLabel returns a copy of r carrying label.
func (r *Result) WithLabel(label string) *Result {
	c := *r
	c.Label = label
	return &c
}

type options struct {
	nIter       int
	cv          int
	nRepeats    int
	randomState uint64
	nJobs       int
	logger      log.Logger
}

// Option configures TwoStepTune.
type Option func(*options)

// WithNIter sets the number of randomized-search draws.
func WithNIter(n int) Option { return func(o *options) { o.nIter = n } }

// WithCV sets the number of cross-validation folds.
func WithCV(k int) Option { return func(o *options) { o.cv = k } }

// WithNRepeats sets the permutation-importance repeats.
func WithNRepeats(n int) Option { return func(o *options) { o.nRepeats = n } }

// WithRandomState seeds both the sampler and the importance shuffles.
func WithRandomState(seed uint64) Option { return func(o *options) { o.randomState = seed } }

// WithNJobs bounds concurrent fits. Results do not depend on it.
func WithNJobs(n int) Option { return func(o *options) { o.nJobs = n } }

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option { return func(o *options) { o.logger = l } }

// RouteGrid は step 接頭辞のないキーを regressor ステップに振り向ける
func RouteGrid(grid model_selection.Grid) model_selection.Grid {
	out := make(model_selection.Grid, len(grid))
	for k, v := range grid {
		if !strings.Contains(k, "__") {
			k = pipeline.RegressorStep + "__" + k
		}
		out[k] = v
	}
	return out
}

// TwoStepTune は regressor を one-hot 前処理と組み合わせたパイプラインで二段階探索を行う。
//
//  1. ランダム探索 (n_iter 個, cv 分割, neg MSE, random_state)
//  2. 前半の最良値に固定した単一候補グリッドでのグリッド探索
//  3. 最良モデルの交差検証スコア平均
//  4. 学習データ全体での再学習（所要時間を計測）
//  5. テストデータでの予測と MSE
//  6. テストデータでの Permutation Importance
//
// ライブラリ内部のエラーはそのまま呼び出し元に返す。
func TwoStepTune(ctx context.Context, regressor model.Regressor, split *dataset.Split, grid model_selection.Grid, opts ...Option) (*Result, error) {
	o := options{
		nIter:       DefaultNIter,
		cv:          DefaultCV,
		nRepeats:    DefaultNRepeats,
		randomState: DefaultRandomState,
		nJobs:       1,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("tuning")
	}
	if regressor == nil {
		return nil, errors.NewValueError("TwoStepTune", "regressor must not be nil")
	}
	if split == nil {
		return nil, errors.NewValueError("TwoStepTune", "split must not be nil")
	}
	if err := split.Validate(); err != nil {
		return nil, err
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := o.logger.With(
		log.EstimatorIDKey, runID,
		log.ModelNameKey, modelName(regressor),
		log.RandomSeedKey, o.randomState,
	)

	base := pipeline.New(preprocessing.NewOneHotEncoder(preprocessing.HandleUnknownIgnore), regressor)
	base.SetLogger(logger)
	routed := RouteGrid(grid)
	searchOpts := []model_selection.SearchOption{
		model_selection.WithCV(o.cv),
		model_selection.WithScoring(metrics.NegMeanSquaredError),
		model_selection.WithNJobs(o.nJobs),
		model_selection.WithLogger(logger),
	}

	// 1. ランダム探索
	random := model_selection.NewRandomizedSearchCV(base, routed, o.nIter, o.randomState, searchOpts...)
	if err := random.Fit(ctx, split.XTrain, split.YTrain); err != nil {
		return nil, errors.Wrap(err, "randomized search")
	}

	// 2. 単一候補グリッド探索
	gs := model_selection.NewGridSearchCV(base, model_selection.Collapse(random.BestParams), searchOpts...)
	if err := gs.Fit(ctx, split.XTrain, split.YTrain); err != nil {
		return nil, errors.Wrap(err, "grid search")
	}
	final, ok := gs.BestEstimator.(*pipeline.Pipeline)
	if !ok {
		return nil, errors.NewModelError("TwoStepTune", "unexpected best estimator type", nil)
	}

	// 3. 最良モデルの交差検証
	cvScores, err := model_selection.CrossValScore(ctx, final, split.XTrain, split.YTrain,
		model_selection.NewKFold(o.cv, false, 0), metrics.NegMeanSquaredError, o.nJobs)
	if err != nil {
		return nil, errors.Wrap(err, "cross validation of best estimator")
	}
	mseMeanCV := stat.Mean(cvScores, nil)
	logger.Debug("Cross validation finished", log.PhaseKey, log.PhaseCrossValidation, log.ScoreKey, mseMeanCV)

	// 4. 再学習
	start := time.Now()
	if err := final.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, errors.Wrap(err, "refit")
	}
	trainingTime := time.Since(start)
	logger.Info("Refit finished",
		log.PhaseKey, log.PhaseRefit,
		log.DurationMsKey, trainingTime.Milliseconds(),
		log.SamplesKey, split.XTrain.NRows(),
	)

	// 5. ホールドアウト評価
	yPred, err := final.Predict(split.XTest)
	if err != nil {
		return nil, errors.Wrap(err, "predict held-out partition")
	}
	mseTest, err := metrics.MSE(split.YTest, yPred)
	if err != nil {
		return nil, err
	}

	// 6. Permutation Importance
	imp, err := inspection.PermutationImportance(ctx, final, split.XTest, split.YTest,
		inspection.WithNRepeats(o.nRepeats),
		inspection.WithRandomState(o.randomState),
		inspection.WithNJobs(o.nJobs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "permutation importance")
	}
	columns := split.X.Columns()
	importances := make([]FeatureImportance, len(columns))
	for j, c := range columns {
		importances[j] = FeatureImportance{Feature: c, Importance: imp.Mean[j]}
	}
	logger.Debug("Permutation importance finished", log.PhaseKey, log.PhaseImportance, log.FeaturesKey, len(columns))

	logger.Info("Tuning finished",
		log.HyperParamsKey, gs.BestParams.String(),
		log.MSEKey, mseTest,
		log.ScoreKey, mseMeanCV,
	)

	return &Result{
		RunID:              runID,
		Params:             gs.BestParams.Copy(),
		RandomSearchParams: random.BestParams.Copy(),
		Model:              final,
		FeatureImportances: importances,
		TrainingTime:       trainingTime,
		MSEMeanCV:          mseMeanCV,
		MSETest:            mseTest,
		YPred:              yPred,
		YTest:              mat.VecDenseCopyOf(split.YTest),
		CreatedAt:          time.Now(),
	}, nil
}

func modelName(r model.Regressor) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", r), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
