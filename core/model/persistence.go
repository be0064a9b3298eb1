package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// SaveModel はモデルを gob 形式でファイルに保存する。
// 親ディレクトリが無ければ作成し、既存ファイルは上書きする。
//
// インターフェース型のフィールド（pipeline の regressor など）を持つモデルは、
// 具象型を事前に gob.Register しておく必要がある。各推定器パッケージの init で登録済み。
//
//	err := model.SaveModel(result, "models/pickled_models/prediction_random_forest.pkl")
func SaveModel(model interface{}, filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer file.Close()

	if err := SaveModelToWriter(model, file); err != nil {
		return err
	}
	return errors.Wrap(file.Sync(), "failed to flush model file")
}

// LoadModel はファイルからモデルを読み込む。model はポインタであること。
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
