package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// Scorer は「大きいほど良い」スコアを返す関数。探索と Permutation Importance が使う。
type Scorer func(yTrue, yPred *mat.VecDense) (float64, error)

// NegMeanSquaredError は sklearn の "neg_mean_squared_error" に相当する
func NegMeanSquaredError(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return -mse, nil
}

// NegMeanAbsoluteError は sklearn の "neg_mean_absolute_error" に相当する
func NegMeanAbsoluteError(yTrue, yPred *mat.VecDense) (float64, error) {
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return -mae, nil
}

// NegRootMeanSquaredError は sklearn の "neg_root_mean_squared_error" に相当する
func NegRootMeanSquaredError(yTrue, yPred *mat.VecDense) (float64, error) {
	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return -rmse, nil
}

var scorers = map[string]Scorer{
	"neg_mean_squared_error":      NegMeanSquaredError,
	"neg_mean_absolute_error":     NegMeanAbsoluteError,
	"neg_root_mean_squared_error": NegRootMeanSquaredError,
	"r2":                          R2Score,
	"explained_variance":          ExplainedVarianceScore,
}

// ScorerByName はスコアラー名から Scorer を引く
func ScorerByName(name string) (Scorer, error) {
	s, ok := scorers[name]
	if !ok {
		return nil, errors.NewValidationError("scoring", "unknown scorer", name)
	}
	return s, nil
}
