// Package pipeline chains the one-hot preprocessor with a numeric regressor
// so that the pair can be tuned, cross-validated and persisted as one model.
//
// Parameters are addressed sklearn-style as "<step>__<param>":
//
//	p := pipeline.New(preprocessing.NewOneHotEncoder("ignore"), tree.NewDecisionTreeRegressor())
//	_ = p.SetParams(map[string]interface{}{"regressor__max_depth": 10})
package pipeline

import (
	"encoding/gob"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/core/model"
	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
	"github.com/pricingwizard/pricingwizard/pkg/log"
	"github.com/pricingwizard/pricingwizard/preprocessing"
)

// Step names used as parameter prefixes.
const (
	PreprocessorStep = "preprocessor"
	RegressorStep    = "regressor"
)

func init() {
	gob.Register(&Pipeline{})
}

// Pipeline is a two-step model: categorical frame -> one-hot matrix -> regressor.
type Pipeline struct {
	Preprocessor *preprocessing.OneHotEncoder
	Regressor    model.Regressor

	State *model.StateManager

	logger log.Logger
}

// New creates an unfitted pipeline from its two steps.
func New(pre *preprocessing.OneHotEncoder, reg model.Regressor) *Pipeline {
	return &Pipeline{
		Preprocessor: pre,
		Regressor:    reg,
		State:        model.NewStateManager(),
	}
}

// Fit learns the category vocabulary on X and fits the regressor on the
// encoded matrix.
func (p *Pipeline) Fit(X *dataset.Frame, y mat.Vector) error {
	if p.Preprocessor == nil || p.Regressor == nil {
		return errors.NewValueError("Pipeline.Fit", "pipeline requires both a preprocessor and a regressor")
	}
	if X == nil || X.NRows() == 0 {
		return errors.NewModelError("Pipeline.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != X.NRows() {
		return errors.NewDimensionError("Pipeline.Fit", X.NRows(), y.Len(), 0)
	}

	Xt, err := p.Preprocessor.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "pipeline: preprocessor")
	}
	if err := p.Regressor.Fit(Xt, y); err != nil {
		return errors.Wrap(err, "pipeline: regressor")
	}

	_, cols := Xt.Dims()
	p.getLogger().Debug("Pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, X.NRows(),
		log.FeaturesKey, cols,
	)
	p.state().SetDimensions(X.NCols(), X.NRows())
	p.state().SetFitted()
	return nil
}

// Predict encodes X with the fitted vocabulary and returns the regressor's
// predictions.
func (p *Pipeline) Predict(X *dataset.Frame) (*mat.VecDense, error) {
	if err := p.state().RequireFitted("Pipeline", "Predict"); err != nil {
		return nil, err
	}
	Xt, err := p.Preprocessor.Transform(X)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: preprocessor")
	}
	pred, err := p.Regressor.Predict(Xt)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: regressor")
	}
	return metrics.ColumnVector(pred), nil
}

// Score returns R² of the pipeline's predictions on X.
func (p *Pipeline) Score(X *dataset.Frame, y mat.Vector) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(metrics.ColumnVector(y), pred)
}

// FeatureNamesOut returns the encoded feature names seen by the regressor.
func (p *Pipeline) FeatureNamesOut() ([]string, error) {
	return p.Preprocessor.FeatureNamesOut()
}

// GetParams returns the step parameters under "<step>__<param>" keys.
func (p *Pipeline) GetParams(deep bool) map[string]interface{} {
	out := make(map[string]interface{})
	if p.Preprocessor != nil {
		for k, v := range p.Preprocessor.GetParams(deep) {
			out[PreprocessorStep+"__"+k] = v
		}
	}
	if p.Regressor != nil {
		for k, v := range p.Regressor.GetParams(deep) {
			out[RegressorStep+"__"+k] = v
		}
	}
	return out
}

// SetParams routes "<step>__<param>" keys to the named step.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	preParams := make(map[string]interface{})
	regParams := make(map[string]interface{})
	for key, v := range params {
		step, name, ok := strings.Cut(key, "__")
		if !ok || name == "" {
			return errors.NewValidationError(key, "pipeline parameters must be of the form <step>__<param>", v)
		}
		switch step {
		case PreprocessorStep:
			preParams[name] = v
		case RegressorStep:
			regParams[name] = v
		default:
			return errors.NewValidationError(key, "unknown pipeline step '"+step+"'", v)
		}
	}
	if len(preParams) > 0 {
		if err := p.Preprocessor.SetParams(preParams); err != nil {
			return err
		}
	}
	if len(regParams) > 0 {
		if err := p.Regressor.SetParams(regParams); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted pipeline with cloned steps.
func (p *Pipeline) Clone() model.TabularRegressor {
	return p.ClonePipeline()
}

// ClonePipeline is Clone with the concrete return type.
func (p *Pipeline) ClonePipeline() *Pipeline {
	c := New(p.Preprocessor.Clone(), p.Regressor.Clone().(model.Regressor))
	c.logger = p.logger
	return c
}

// SetLogger overrides the logger used for fit diagnostics.
func (p *Pipeline) SetLogger(l log.Logger) { p.logger = l }

func (p *Pipeline) getLogger() log.Logger {
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("Pipeline")
	}
	return p.logger
}

func (p *Pipeline) state() *model.StateManager {
	if p.State == nil {
		p.State = model.NewStateManager()
	}
	return p.State
}

// Steps returns the step names in order.
func (p *Pipeline) Steps() []string {
	return []string{PreprocessorStep, RegressorStep}
}
