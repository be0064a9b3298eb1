package tuning

import (
	"path/filepath"
	"strings"

	"github.com/pricingwizard/pricingwizard/core/model"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// ArtifactPath は "<dir>/prediction_<label を小文字化し空白を _ にしたもの>.pkl" を返す
func ArtifactPath(dir, label string) string {
	name := strings.Join(strings.Fields(strings.ToLower(label)), "_")
	return filepath.Join(dir, "prediction_"+name+".pkl")
}

// SaveResult は r を gob 形式で path に保存する。ディレクトリは必要なら作成し、既存ファイルは上書きする。
func SaveResult(path string, r *Result) error {
	if r == nil {
		return errors.NewValueError("SaveResult", "result must not be nil")
	}
	return model.SaveModel(r, path)
}

// LoadResult は SaveResult で保存した Result を読み込む
func LoadResult(path string) (*Result, error) {
	var r Result
	if err := model.LoadModel(&r, path); err != nil {
		return nil, err
	}
	return &r, nil
}
