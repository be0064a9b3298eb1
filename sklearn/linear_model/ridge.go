// Package linear_model は L2 正則化付き線形回帰 (Ridge) を提供します。
package linear_model

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/core/model"
	"github.com/pricingwizard/pricingwizard/core/params"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

func init() {
	gob.Register(&Ridge{})
}

// Ridge は ||y - Xw||² + alpha·||w||² を最小化する線形回帰です。
// 切片は正則化しません（入力を中心化してから解く）。
type Ridge struct {
	// Hyperparameters
	Alpha        float64
	FitIntercept bool

	// Learned parameters
	Coef      []float64
	Intercept float64

	State *model.StateManager
}

// RidgeOption は設定オプション
type RidgeOption func(*Ridge)

// WithAlpha は正則化の強さを設定
func WithAlpha(alpha float64) RidgeOption {
	return func(r *Ridge) { r.Alpha = alpha }
}

// WithFitIntercept は切片の学習有無を設定
func WithFitIntercept(fit bool) RidgeOption {
	return func(r *Ridge) { r.FitIntercept = fit }
}

// NewRidge は新しいRidgeモデルを作成 (alpha=1.0, fit_intercept=true)
func NewRidge(options ...RidgeOption) *Ridge {
	r := &Ridge{
		Alpha:        1.0,
		FitIntercept: true,
		State:        model.NewStateManager(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Fit はモデルを訓練データで学習
func (r *Ridge) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	// 入力検証
	if rows == 0 || cols == 0 {
		return errors.NewModelError("Ridge.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("Ridge.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Ridge.Fit", 1, yCols, 1)
	}
	if r.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be >= 0", r.Alpha)
	}

	Xc := mat.DenseCopyOf(X)
	yc := mat.VecDenseCopyOf(metrics.ColumnVector(y))

	// 中心化
	xMean := make([]float64, cols)
	yMean := 0.0
	if r.FitIntercept {
		for j := 0; j < cols; j++ {
			col := mat.Col(nil, j, Xc)
			for _, v := range col {
				xMean[j] += v
			}
			xMean[j] /= float64(rows)
			for i := 0; i < rows; i++ {
				Xc.Set(i, j, Xc.At(i, j)-xMean[j])
			}
		}
		for i := 0; i < rows; i++ {
			yMean += yc.AtVec(i)
		}
		yMean /= float64(rows)
		for i := 0; i < rows; i++ {
			yc.SetVec(i, yc.AtVec(i)-yMean)
		}
	}

	// 正規方程式: (XᵀX + αI) w = Xᵀy
	gram := mat.NewSymDense(cols, nil)
	gram.SymOuterK(1, Xc.T())
	for j := 0; j < cols; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Alpha)
	}
	var xty mat.VecDense
	xty.MulVec(Xc.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return errors.NewModelError("Ridge.Fit", "normal equations are not positive definite", errors.ErrSingularMatrix)
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return errors.NewModelError("Ridge.Fit", "cholesky solve", errors.Wrap(errors.ErrSingularMatrix, err.Error()))
	}

	r.Coef = make([]float64, cols)
	for j := range r.Coef {
		r.Coef[j] = w.AtVec(j)
	}
	r.Intercept = 0
	if r.FitIntercept {
		r.Intercept = yMean - mat.Dot(mat.NewVecDense(cols, xMean), &w)
	}
	if err := errors.CheckNumericalStability("Ridge.Fit", r.Coef, 0); err != nil {
		return err
	}

	r.state().SetDimensions(cols, rows)
	r.state().SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.state().RequireFitted("Ridge", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := r.state().RequireFeatures("Ridge.Predict", cols); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(rows, nil)
	out.MulVec(X, mat.NewVecDense(cols, r.Coef))
	for i := 0; i < rows; i++ {
		out.SetVec(i, out.AtVec(i)+r.Intercept)
	}
	return out, nil
}

// Score は決定係数 R² を返す
func (r *Ridge) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(metrics.ColumnVector(y), metrics.ColumnVector(pred))
}

// GetParams はハイパーパラメータを返す
func (r *Ridge) GetParams(deep bool) map[string]interface{} {
	return map[string]interface{}{
		"alpha":         r.Alpha,
		"fit_intercept": r.FitIntercept,
	}
}

// SetParams はハイパーパラメータを設定する
func (r *Ridge) SetParams(p map[string]interface{}) error {
	for k, v := range p {
		var err error
		switch k {
		case "alpha":
			r.Alpha, err = params.Float(k, v, 0)
		case "fit_intercept":
			r.FitIntercept, err = params.Bool(k, v)
		default:
			err = errors.NewValidationError(k, "unknown parameter for Ridge", v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone は同じパラメータを持つ未学習のモデルを返す
func (r *Ridge) Clone() model.SKLearnCompatible {
	return NewRidge(WithAlpha(r.Alpha), WithFitIntercept(r.FitIntercept))
}

func (r *Ridge) state() *model.StateManager {
	if r.State == nil {
		r.State = model.NewStateManager()
	}
	return r.State
}
