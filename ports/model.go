package ports

import (
	"datacheck/domain/tabular"
)

// Model is the capability interface every inference source implements,
// whether a real fitted estimator or a static-prediction adapter. Downstream
// checks stay agnostic to which one they hold.
type Model interface {
	// Predict returns one prediction per row of the given feature table
	Predict(rows tabular.FeatureTable) ([]float64, error)
}

// ProbaModel is implemented by models that can emit class probabilities
type ProbaModel interface {
	Model

	// PredictProba returns one probability-per-class row per input row
	PredictProba(rows tabular.FeatureTable) ([][]float64, error)
}

// ClassLister is implemented by models that declare their class list
type ClassLister interface {
	// Classes returns the model's ordered class list
	Classes() []float64
}

// FeatureImportancer is implemented by models with intrinsic per-feature
// importance scores, aligned with the training feature order
type FeatureImportancer interface {
	FeatureImportances() []float64
}
