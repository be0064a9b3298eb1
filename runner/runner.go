// Package runner は推定器ごとの固定グリッドでチューニングを実行し、
// 結果にラベルを付けて保存・要約表示する Model Runner です。
package runner

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pricingwizard/pricingwizard/config"
	"github.com/pricingwizard/pricingwizard/core/model"
	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/model_selection"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
	"github.com/pricingwizard/pricingwizard/pkg/log"
	"github.com/pricingwizard/pricingwizard/sklearn/ensemble"
	"github.com/pricingwizard/pricingwizard/sklearn/linear_model"
	"github.com/pricingwizard/pricingwizard/sklearn/tree"
	"github.com/pricingwizard/pricingwizard/tuning"
	"github.com/pricingwizard/pricingwizard/visualization"
)

// StandardKey is the bundle key every runner fills.
const StandardKey = "standard"

// Bundle は runner の戻り値。キーは StandardKey のみ。
type Bundle map[string]*tuning.Result

// Family identifies a model family on the command line.
type Family string

// Supported families.
const (
	RandomForestFamily Family = "rf"
	DecisionTreeFamily Family = "tree"
	RidgeFamily        Family = "ridge"
)

// AllFamilies lists every supported family in run order.
var AllFamilies = []Family{RandomForestFamily, DecisionTreeFamily, RidgeFamily}

// ParseFamilies parses a comma-separated list such as "rf,ridge".
func ParseFamilies(s string) ([]Family, error) {
	var out []Family
	for _, part := range strings.Split(s, ",") {
		f := Family(strings.TrimSpace(strings.ToLower(part)))
		if f == "" {
			continue
		}
		if _, ok := registry[f]; !ok {
			return nil, errors.NewValidationError("models", "unknown model family", string(f))
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, errors.NewValidationError("models", "at least one model family is required", s)
	}
	return out, nil
}

// familyDef は推定器・探索グリッド・ラベルの組
type familyDef struct {
	label     string
	grid      model_selection.Grid
	regressor func(cfg *config.Config) model.Regressor
}

var registry = map[Family]familyDef{
	RandomForestFamily: {
		label: "Random Forest",
		grid: model_selection.Grid{
			"n_estimators":      {50, 100, 200},
			"max_depth":         {nil, 10, 20},
			"min_samples_split": {2, 5, 10},
			"min_samples_leaf":  {1, 2, 4},
		},
		regressor: func(cfg *config.Config) model.Regressor {
			return ensemble.NewRandomForestRegressor(ensemble.WithRandomState(cfg.Tuning.RandomState))
		},
	},
	DecisionTreeFamily: {
		label: "Decision Tree",
		grid: model_selection.Grid{
			"max_depth":         {nil, 5, 10, 20},
			"min_samples_split": {2, 5, 10},
			"min_samples_leaf":  {1, 2, 4},
		},
		regressor: func(cfg *config.Config) model.Regressor {
			return tree.NewDecisionTreeRegressor(tree.WithRandomState(cfg.Tuning.RandomState))
		},
	},
	RidgeFamily: {
		label: "Ridge Regression",
		grid: model_selection.Grid{
			"alpha":         {0.01, 0.1, 1.0, 10.0, 100.0},
			"fit_intercept": {true},
		},
		regressor: func(*config.Config) model.Regressor {
			return linear_model.NewRidge()
		},
	},
}

// Label returns the human label of f.
func (f Family) Label() string { return registry[f].label }

// Runner executes model families against a dataset split.
type Runner struct {
	cfg    *config.Config
	out    io.Writer
	logger log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where the metrics summary tables are printed. Default os.Stdout.
func WithOutput(w io.Writer) Option { return func(r *Runner) { r.out = w } }

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option { return func(r *Runner) { r.logger = l } }

// New creates a Runner. A nil cfg means config.Default().
func New(cfg *config.Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Runner{cfg: cfg, out: os.Stdout}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("runner")
	}
	return r
}

// RandomForest tunes a RandomForestRegressor over the fixed grid, persists
// the result as prediction_random_forest.pkl and prints its summary.
func (r *Runner) RandomForest(ctx context.Context, split *dataset.Split) (Bundle, error) {
	return r.Run(ctx, RandomForestFamily, split)
}

// DecisionTree is the DecisionTreeRegressor sibling of RandomForest.
func (r *Runner) DecisionTree(ctx context.Context, split *dataset.Split) (Bundle, error) {
	return r.Run(ctx, DecisionTreeFamily, split)
}

// Ridge is the Ridge sibling of RandomForest.
func (r *Runner) Ridge(ctx context.Context, split *dataset.Split) (Bundle, error) {
	return r.Run(ctx, RidgeFamily, split)
}

// Run tunes, labels, persists and summarizes one family.
func (r *Runner) Run(ctx context.Context, family Family, split *dataset.Split) (Bundle, error) {
	def, ok := registry[family]
	if !ok {
		return nil, errors.NewValidationError("family", "unknown model family", string(family))
	}
	logger := r.logger.With(log.ModelLabelKey, def.label)

	res, err := tuning.TwoStepTune(ctx, def.regressor(r.cfg), split, def.grid,
		tuning.WithNIter(r.cfg.Tuning.NIter),
		tuning.WithCV(r.cfg.Tuning.CVFolds),
		tuning.WithNRepeats(r.cfg.Tuning.NRepeats),
		tuning.WithRandomState(r.cfg.Tuning.RandomState),
		tuning.WithNJobs(r.cfg.Tuning.NJobs),
		tuning.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", def.label)
	}
	res = res.WithLabel(def.label)

	path := tuning.ArtifactPath(r.cfg.Paths.ModelsDir, def.label)
	if err := tuning.SaveResult(path, res); err != nil {
		return nil, err
	}
	logger.Info("Model persisted", log.PhaseKey, log.PhasePersist, log.PathKey, path)

	if _, err := metrics.Summarize(r.out, def.label, split.YTest, res.YPred); err != nil {
		return nil, err
	}
	return Bundle{StandardKey: res}, nil
}

// RunAll runs each family in order and returns the bundles keyed by family.
// The first failure stops the run.
func (r *Runner) RunAll(ctx context.Context, split *dataset.Split, families ...Family) (map[Family]Bundle, error) {
	if len(families) == 0 {
		families = AllFamilies
	}
	out := make(map[Family]Bundle, len(families))
	for _, f := range families {
		b, err := r.Run(ctx, f, split)
		if err != nil {
			return nil, err
		}
		out[f] = b
	}
	return out, nil
}

// Collect は bundle 群をラベルごとの Collection にまとめる
func Collect(bundles ...Bundle) visualization.Collection {
	c := visualization.Collection{}
	for _, b := range bundles {
		keys := make([]string, 0, len(b))
		for k := range b {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			res := b[k]
			c[res.Label] = append(c[res.Label], res)
		}
	}
	return c
}
