// Package model_selection はハイパーパラメータ探索と交差検証を提供します。
// sklearn.model_selection の KFold / ParameterGrid / ParameterSampler /
// cross_val_score / GridSearchCV / RandomizedSearchCV に対応します。
package model_selection

import (
	"fmt"
	"math/rand/v2"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// Fold は1つの分割の学習・検証インデックス
type Fold struct {
	Train []int
	Test  []int
}

// KFold はK分割交差検証の分割器
type KFold struct {
	NSplits     int
	Shuffle     bool
	RandomState uint64
}

// NewKFold creates a KFold splitter.
func NewKFold(nSplits int, shuffle bool, randomState uint64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomState: randomState}
}

// Split returns NSplits folds over nSamples rows. Test folds are contiguous
// in (optionally shuffled) index order and the first nSamples % NSplits folds
// receive one extra row.
func (kf *KFold) Split(nSamples int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be >= 2", kf.NSplits)
	}
	if kf.NSplits > nSamples {
		return nil, errors.NewValueError("KFold.Split",
			fmt.Sprintf("cannot have number of splits n_splits=%d greater than the number of samples: n_samples=%d", kf.NSplits, nSamples))
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomState, kf.RandomState))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	current := 0
	for i := range folds {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		test := append([]int(nil), indices[current:current+testSize]...)
		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:current]...)
		train = append(train, indices[current+testSize:]...)
		folds[i] = Fold{Train: train, Test: test}
		current += testSize
	}
	return folds, nil
}
