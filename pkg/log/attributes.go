package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "RandomForestRegressor".
	ModelNameKey = "model.name"

	// ModelLabelKey is the human label of a run, e.g. "Random Forest".
	ModelLabelKey = "model.label"

	// EstimatorIDKey identifies one tuning run (a UUID).
	EstimatorIDKey = "estimator.id"

	// OperationKey: "fit", "predict", "transform", "score", "search".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey: "randomized_search", "grid_search", "refit", ...
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	PathKey     = "data.path"
)

// Performance and metrics.
const (
	DurationMsKey = "perf.duration_ms"
	ScoreKey      = "metrics.score"
	MSEKey        = "metrics.mse"
	R2ScoreKey    = "metrics.r2_score"

	// IterationKey is the candidate index inside a search.
	IterationKey = "training.iteration"

	// FoldKey is the cross-validation fold index.
	FoldKey = "training.fold"
)

// Hyperparameters and configuration.
const (
	HyperParamsKey = "model.hyperparams"
	RandomSeedKey  = "config.random_seed"
	CandidatesKey  = "search.candidates"
)

// Error context.
const (
	ErrorTypeKey  = "error.type"
	StacktraceKey = "stacktrace"
	ErrAttrKey    = "error"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationSearch    = "search"

	PhaseRandomizedSearch = "randomized_search"
	PhaseGridSearch       = "grid_search"
	PhaseCrossValidation  = "cross_validation"
	PhaseRefit            = "refit"
	PhaseImportance       = "permutation_importance"
	PhasePersist          = "persist"
)
