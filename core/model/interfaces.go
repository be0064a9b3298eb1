// Package model は推定器のインターフェース、学習状態の管理、gob による永続化を提供します。
package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/dataset"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う（n×1 の列ベクトル）
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X, y mat.Matrix) (float64, error)
}

// SKLearnCompatible はscikit-learn互換のパラメータ操作インターフェース
type SKLearnCompatible interface {
	// GetParams はモデルのハイパーパラメータを取得
	GetParams(deep bool) map[string]interface{}

	// SetParams はモデルのハイパーパラメータを設定
	SetParams(params map[string]interface{}) error

	// Clone は同じパラメータを持つ未学習の新しいインスタンスを作成
	Clone() SKLearnCompatible
}

// Regressor は数値行列を入力とする回帰器です。パイプラインの最終ステップになります。
type Regressor interface {
	Fitter
	Predictor
	Scorer
	SKLearnCompatible
}

// TabularRegressor はカテゴリ列のフレームを直接受け取る推定器です。
// pipeline.Pipeline が実装し、探索・交差検証・Permutation Importance の対象になります。
type TabularRegressor interface {
	Fit(X *dataset.Frame, y mat.Vector) error
	Predict(X *dataset.Frame) (*mat.VecDense, error)
	GetParams(deep bool) map[string]interface{}
	SetParams(params map[string]interface{}) error
	Clone() TabularRegressor
}

// FeatureImportancer は学習済みの不純度ベース特徴量重要度を返せるモデルです。
type FeatureImportancer interface {
	FeatureImportances() ([]float64, error)
}
