// Package pricingwizard tunes, compares and persists regression models that
// predict a price from categorical attributes.
//
// The workflow mirrors the familiar scikit-learn recipe: a one-hot encoder
// and a regressor are chained in a pipeline, tuned in two steps (a randomized
// search followed by a confirmation grid search over the winner), scored by
// 5-fold cross-validation and on a held-out split, and explained with
// permutation importance.
//
// # Quick Start
//
//	X, y, err := dataset.LoadFile("cars.xlsx", "", "price")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	split, err := dataset.TrainTestSplit(X, y, 0.2, 42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := runner.New(config.Default())
//	bundle, err := r.RandomForest(context.Background(), split)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// bundle["standard"] holds the tuned pipeline, its metrics and
//	// models/pickled_models/prediction_random_forest.pkl is written.
//
// # Packages
//
//   - dataset: tabular frames, CSV/Excel loading, train/test split
//   - preprocessing: OneHotEncoder
//   - pipeline: preprocessor + regressor composition
//   - sklearn/tree, sklearn/ensemble, sklearn/linear_model: estimators
//   - model_selection: KFold, ParameterGrid, GridSearchCV, RandomizedSearchCV
//   - inspection: permutation importance
//   - metrics: regression metrics, scorers, summary table
//   - tuning: two-step hyperparameter tuning and result persistence
//   - visualization: comparison plots
//   - runner: per-family tuning runs
//   - config: YAML / environment configuration
//
// The pricingwizard command wraps the runner:
//
//	pricingwizard run --data cars.csv --target price --models rf,ridge
//	pricingwizard inspect models/pickled_models/prediction_random_forest.pkl
package pricingwizard
