// Package metrics は回帰の評価指標、探索用スコアラー、評価サマリー表を提供します。
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// checkPair は入力の長さを検証し、要素数を返す
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.IsEmpty() {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.IsEmpty() || yPred.Len() != n {
		got := 0
		if !yPred.IsEmpty() {
			got = yPred.Len()
		}
		return 0, errors.NewDimensionError(op, n, got, 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// MSEMatrix は行列形式の入力に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rTrue != rPred || cTrue != cPred {
		return 0, errors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 {
		return 0, errors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}
	return MSE(ColumnVector(yTrue), ColumnVector(yPred))
}

// ColumnVector は n×1 行列を VecDense に変換する（既に VecDense ならそのまま返す）
func ColumnVector(m mat.Matrix) *mat.VecDense {
	if v, ok := m.(*mat.VecDense); ok {
		return v
	}
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// MSLE は平均二乗対数誤差（Mean Squared Logarithmic Error）を計算する
// 負の値を含む場合は対数が定義できないため ValueError を返す
func MSLE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSLE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) < 0 || yPred.AtVec(i) < 0 {
			return 0, errors.NewValueError("MSLE",
				"Mean Squared Logarithmic Error cannot be used when targets contain negative values")
		}
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := math.Log1p(yTrue.AtVec(i)) - math.Log1p(yPred.AtVec(i))
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// MedianAbsoluteError は絶対誤差の中央値を計算する（偶数個なら中央2値の平均）
func MedianAbsoluteError(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MedianAbsoluteError", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	abs := make([]float64, n)
	for i := range abs {
		abs[i] = math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	sort.Float64s(abs)
	if n%2 == 1 {
		return abs[n/2], nil
	}
	return (abs[n/2-1] + abs[n/2]) / 2, nil
}

// R2Score は決定係数（R²）を計算する
//
// y_true が定数の場合は、完全一致なら 1.0、そうでなければ 0.0 を返し
// UndefinedMetricWarning を出す。サンプルが1件だけの場合は NaN。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if n < 2 {
		errors.Warn(errors.NewUndefinedMetricWarning("r2", "less than two samples", math.NaN()))
		return math.NaN(), nil
	}

	yMean := vecMean(yTrue)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}

	if tss == 0 {
		return forceFinite("r2", rss), nil
	}
	return 1 - rss/tss, nil
}

// ExplainedVarianceScore は説明分散スコアを計算する
func ExplainedVarianceScore(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("ExplainedVarianceScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	diff := make([]float64, n)
	for i := range diff {
		diff[i] = yTrue.AtVec(i) - yPred.AtVec(i)
	}
	// 母分散（ddof=0）
	_, varDiff := stat.PopMeanVariance(diff, nil)
	_, varTrue := stat.PopMeanVariance(vecData(yTrue), nil)

	if varTrue == 0 {
		return forceFinite("explained_variance", varDiff), nil
	}
	// 説明分散スコア = 1 - Var(yTrue - yPred) / Var(yTrue)
	return 1 - varDiff/varTrue, nil
}

// MAPE は平均絶対パーセンテージ誤差を計算する（yTrue=0 の要素は除外）
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	validCount := 0
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		if t != 0 {
			sum += math.Abs(t-yPred.AtVec(i)) / math.Abs(t)
			validCount++
		}
	}
	if validCount == 0 {
		return 0, errors.NewValueError("MAPE", "all yTrue values are zero")
	}
	return (sum / float64(validCount)) * 100, nil
}

// forceFinite は分母が0の場合のscikit-learn互換の値を返す
func forceFinite(metric string, numerator float64) float64 {
	result := 0.0
	if numerator == 0 {
		result = 1.0
	}
	errors.Warn(errors.NewUndefinedMetricWarning(metric, "constant y_true", result))
	return result
}

func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func vecMean(v *mat.VecDense) float64 {
	return stat.Mean(vecData(v), nil)
}
