package dataset

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// Split bundles the full feature frame with its train/test partitions.
// X carries the column names used to label feature importances.
type Split struct {
	X      *Frame
	XTrain *Frame
	XTest  *Frame
	YTrain *mat.VecDense
	YTest  *mat.VecDense
}

// Validate checks that the partitions are non-empty, share X's columns,
// have targets of matching length and together cover X.
func (s *Split) Validate() error {
	if s == nil || s.X == nil || s.XTrain == nil || s.XTest == nil || s.YTrain == nil || s.YTest == nil {
		return errors.NewValueError("Split.Validate", "split has missing partitions")
	}
	if s.XTrain.NRows() == 0 || s.XTest.NRows() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "train and test partitions must be non-empty")
	}
	if !s.XTrain.SameColumns(s.X) {
		return errors.NewDimensionError("Split.Validate(XTrain)", s.X.NCols(), s.XTrain.NCols(), 1)
	}
	if !s.XTest.SameColumns(s.X) {
		return errors.NewDimensionError("Split.Validate(XTest)", s.X.NCols(), s.XTest.NCols(), 1)
	}
	if s.YTrain.Len() != s.XTrain.NRows() {
		return errors.NewDimensionError("Split.Validate(YTrain)", s.XTrain.NRows(), s.YTrain.Len(), 0)
	}
	if s.YTest.Len() != s.XTest.NRows() {
		return errors.NewDimensionError("Split.Validate(YTest)", s.XTest.NRows(), s.YTest.Len(), 0)
	}
	if s.XTrain.NRows()+s.XTest.NRows() != s.X.NRows() {
		return errors.NewDimensionError("Split.Validate", s.X.NRows(), s.XTrain.NRows()+s.XTest.NRows(), 0)
	}
	return nil
}

// TrainTestSplit shuffles the rows with a seeded permutation and holds out
// ceil(n*testSize) rows for testing, as sklearn's train_test_split does.
func TrainTestSplit(X *Frame, y *mat.VecDense, testSize float64, seed uint64) (*Split, error) {
	if X == nil || y == nil {
		return nil, errors.NewValueError("TrainTestSplit", "X and y must not be nil")
	}
	n := X.NRows()
	if y.Len() != n {
		return nil, errors.NewDimensionError("TrainTestSplit", n, y.Len(), 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, errors.NewValueError("TrainTestSplit",
			"with the given test_size the resulting train or test partition is empty")
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	return &Split{
		X:      X,
		XTrain: X.Take(trainIdx),
		XTest:  X.Take(testIdx),
		YTrain: TakeVec(y, trainIdx),
		YTest:  TakeVec(y, testIdx),
	}, nil
}

// TakeVec returns the elements of y at indices as a new vector.
// indices must be non-empty.
func TakeVec(y mat.Vector, indices []int) *mat.VecDense {
	out := mat.NewVecDense(len(indices), nil)
	for k, i := range indices {
		out.SetVec(k, y.AtVec(i))
	}
	return out
}
