package model_selection

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/pricingwizard/pricingwizard/core/model"
	"github.com/pricingwizard/pricingwizard/dataset"
	"github.com/pricingwizard/pricingwizard/metrics"
	"github.com/pricingwizard/pricingwizard/pkg/errors"
)

// foldData は1分割分の部分フレームと目的変数
type foldData struct {
	XTrain, XTest *dataset.Frame
	yTrain, yTest *mat.VecDense
}

func materialize(X *dataset.Frame, y *mat.VecDense, folds []Fold) []foldData {
	out := make([]foldData, len(folds))
	for i, f := range folds {
		out[i] = foldData{
			XTrain: X.Take(f.Train),
			XTest:  X.Take(f.Test),
			yTrain: dataset.TakeVec(y, f.Train),
			yTest:  dataset.TakeVec(y, f.Test),
		}
	}
	return out
}

// fitAndScore fits a fresh clone of est with params on one fold and scores it
// on the fold's test rows.
func fitAndScore(est model.TabularRegressor, params ParamSet, fd foldData, scorer metrics.Scorer) (float64, error) {
	e := est.Clone()
	if len(params) > 0 {
		if err := e.SetParams(params); err != nil {
			return 0, err
		}
	}
	if err := e.Fit(fd.XTrain, fd.yTrain); err != nil {
		return 0, err
	}
	pred, err := e.Predict(fd.XTest)
	if err != nil {
		return 0, err
	}
	return scorer(fd.yTest, pred)
}

func checkXY(op string, X *dataset.Frame, y *mat.VecDense) error {
	if X == nil || X.NRows() == 0 || y == nil {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if y.Len() != X.NRows() {
		return errors.NewDimensionError(op, X.NRows(), y.Len(), 0)
	}
	return nil
}

func workers(nJobs int) int {
	if nJobs <= 0 {
		return runtime.NumCPU()
	}
	return nJobs
}

// CrossValScore は cv の各分割で est の複製を学習し、scorer によるスコアを分割順に返す。
// nJobs <= 0 なら CPU 数だけ並列に実行する。
func CrossValScore(ctx context.Context, est model.TabularRegressor, X *dataset.Frame, y *mat.VecDense,
	cv *KFold, scorer metrics.Scorer, nJobs int) ([]float64, error) {
	if err := checkXY("CrossValScore", X, y); err != nil {
		return nil, err
	}
	folds, err := cv.Split(X.NRows())
	if err != nil {
		return nil, err
	}
	data := materialize(X, y, folds)

	scores := make([]float64, len(folds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(nJobs))
	for i := range data {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return errors.SafeExecute("CrossValScore", func() error {
				s, err := fitAndScore(est, nil, data[i], scorer)
				if err != nil {
					return errors.Wrapf(err, "fold %d", i)
				}
				scores[i] = s
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
