// Package preprocessing はパイプラインの前処理ステップを提供します。
package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/core/model"
	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// handle_unknown の取り得る値
const (
	HandleUnknownIgnore = "ignore"
	HandleUnknownError  = "error"
)

// OneHotEncoder はscikit-learn互換のワンホットエンコーダー
// フレームの全列をカテゴリとして扱い、列ごとの指示変数ブロックに展開する
type OneHotEncoder struct {
	// HandleUnknown は未知カテゴリの扱い ("ignore" なら全0、"error" ならエラー)
	HandleUnknown string

	// Columns は学習時の列名
	Columns []string

	// Categories は列ごとのカテゴリ（辞書順）
	Categories [][]string

	// Offsets は各列ブロックの開始位置、最後の要素は出力幅
	Offsets []int

	State *model.StateManager
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
//
// パラメータ:
//   - handleUnknown: "ignore" または "error"
//
// 使用例:
//
//	enc := preprocessing.NewOneHotEncoder(preprocessing.HandleUnknownIgnore)
//	err := enc.Fit(X)
//	XEncoded, err := enc.Transform(XTest)
func NewOneHotEncoder(handleUnknown string) *OneHotEncoder {
	return &OneHotEncoder{
		HandleUnknown: handleUnknown,
		State:         model.NewStateManager(),
	}
}

// Fit は各列のカテゴリ集合を学習する
func (e *OneHotEncoder) Fit(X *dataset.Frame) error {
	if err := validateHandleUnknown(e.HandleUnknown); err != nil {
		return err
	}
	if X == nil || X.NRows() == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	e.Columns = X.Columns()
	e.Categories = make([][]string, X.NCols())
	e.Offsets = make([]int, X.NCols()+1)
	for j := 0; j < X.NCols(); j++ {
		uniq := make(map[string]struct{})
		for _, v := range X.Column(j) {
			uniq[v] = struct{}{}
		}
		cats := make([]string, 0, len(uniq))
		for v := range uniq {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
		e.Offsets[j+1] = e.Offsets[j] + len(cats)
	}

	e.state().SetDimensions(X.NCols(), X.NRows())
	e.state().SetFitted()
	return nil
}

// Transform は学習済みのカテゴリでフレームを指示変数行列に変換する
//
// 未知カテゴリは HandleUnknown が "ignore" なら該当ブロックを全0にし、
// "error" なら ValueError を返す。
func (e *OneHotEncoder) Transform(X *dataset.Frame) (*mat.Dense, error) {
	if err := e.state().RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	if X == nil || X.NRows() == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}
	if X.NCols() != len(e.Columns) {
		return nil, errors.NewDimensionError("OneHotEncoder.Transform", len(e.Columns), X.NCols(), 1)
	}
	for j, c := range X.Columns() {
		if c != e.Columns[j] {
			return nil, errors.NewValueError("OneHotEncoder.Transform",
				fmt.Sprintf("column %d is %q, expected %q", j, c, e.Columns[j]))
		}
	}

	out := mat.NewDense(X.NRows(), e.Offsets[len(e.Offsets)-1], nil)
	for j := range e.Columns {
		cats := e.Categories[j]
		for i := 0; i < X.NRows(); i++ {
			v := X.At(i, j)
			k := sort.SearchStrings(cats, v)
			if k < len(cats) && cats[k] == v {
				out.Set(i, e.Offsets[j]+k, 1)
				continue
			}
			if e.HandleUnknown == HandleUnknownError {
				return nil, errors.NewValueError("OneHotEncoder.Transform",
					fmt.Sprintf("found unknown category %q in column %q during transform", v, e.Columns[j]))
			}
		}
	}
	return out, nil
}

// FitTransform は学習と変換を同時に実行する
func (e *OneHotEncoder) FitTransform(X *dataset.Frame) (*mat.Dense, error) {
	if err := e.Fit(X); err != nil {
		return nil, err
	}
	return e.Transform(X)
}

// FeatureNamesOut は出力列名 ("列名_カテゴリ") を返す
func (e *OneHotEncoder) FeatureNamesOut() ([]string, error) {
	if err := e.state().RequireFitted("OneHotEncoder", "FeatureNamesOut"); err != nil {
		return nil, err
	}
	names := make([]string, 0, e.Offsets[len(e.Offsets)-1])
	for j, c := range e.Columns {
		for _, v := range e.Categories[j] {
			names = append(names, c+"_"+v)
		}
	}
	return names, nil
}

// GetParams はハイパーパラメータを返す
func (e *OneHotEncoder) GetParams(deep bool) map[string]interface{} {
	return map[string]interface{}{"handle_unknown": e.HandleUnknown}
}

// SetParams はハイパーパラメータを設定する
func (e *OneHotEncoder) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		switch k {
		case "handle_unknown":
			s, ok := v.(string)
			if !ok {
				return errors.NewValidationError(k, "must be a string", v)
			}
			if err := validateHandleUnknown(s); err != nil {
				return err
			}
			e.HandleUnknown = s
		default:
			return errors.NewValidationError(k, "unknown parameter for OneHotEncoder", v)
		}
	}
	return nil
}

// Clone は同じパラメータを持つ未学習のエンコーダーを返す
func (e *OneHotEncoder) Clone() *OneHotEncoder {
	return NewOneHotEncoder(e.HandleUnknown)
}

// IsFitted reports whether Fit has completed.
func (e *OneHotEncoder) IsFitted() bool {
	return e.state().IsFitted()
}

// gob でデコードされた値は State が nil の可能性がある
func (e *OneHotEncoder) state() *model.StateManager {
	if e.State == nil {
		e.State = model.NewStateManager()
	}
	return e.State
}

func validateHandleUnknown(v string) error {
	if v != HandleUnknownIgnore && v != HandleUnknownError {
		return errors.NewValidationError("handle_unknown", "must be \"ignore\" or \"error\"", v)
	}
	return nil
}
