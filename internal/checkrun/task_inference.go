package checkrun

import (
	"math"
	"sort"

	"datacheck/domain/tabular"
	"datacheck/ports"
)

// maxCategoricalClasses caps how many distinct integral label values still
// count as classes rather than a continuous target
const maxCategoricalClasses = 30

// maxCategoricalRatio is the unique-to-total ratio under which any label
// distribution counts as categorical
const maxCategoricalRatio = 0.05

// allLabels collects the observed label values of train and test, any
// supplied static predictions and, when a model is present, its predictions
// over both datasets. Missing values are dropped.
func allLabels(model ports.Model, train, test ports.Dataset, predTrain, predTest []float64) ([]float64, error) {
	var labels []float64
	appendNonMissing := func(values []float64) {
		for _, v := range values {
			if !tabular.IsMissing(v) {
				labels = append(labels, v)
			}
		}
	}

	for _, ds := range []ports.Dataset{train, test} {
		if ds == nil {
			continue
		}
		if ds.HasLabel() {
			appendNonMissing(ds.Labels())
		}
		if model != nil {
			preds, err := model.Predict(ds.FeatureTable())
			if err != nil {
				return nil, err
			}
			appendNonMissing(preds)
		}
	}
	appendNonMissing(predTrain)
	appendNonMissing(predTest)
	return labels, nil
}

// uniqueSorted returns the distinct values in ascending order
func uniqueSorted(values []float64) []float64 {
	seen := make(map[float64]bool, len(values))
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// taskTypeByClassCount infers the task type from a resolved class list
func taskTypeByClassCount(numClasses int) tabular.TaskType {
	if numClasses == 2 {
		return tabular.TaskBinary
	}
	return tabular.TaskMulticlass
}

// taskTypeByLabels infers the task type from an observed label distribution:
// a categorical union of values is classified by class count, anything
// arbitrary-valued is regression
func taskTypeByLabels(labels []float64) tabular.TaskType {
	if len(labels) == 0 {
		return tabular.TaskRegression
	}
	unique := uniqueSorted(labels)
	if !labelsAreCategorical(labels, unique) {
		return tabular.TaskRegression
	}
	return taskTypeByClassCount(len(unique))
}

// labelsAreCategorical applies the class-like heuristic: a small set of
// integral values, or a unique ratio low enough to rule out a continuous
// target
func labelsAreCategorical(labels, unique []float64) bool {
	if float64(len(unique))/float64(len(labels)) <= maxCategoricalRatio {
		return true
	}
	if len(unique) > maxCategoricalClasses {
		return false
	}
	for _, v := range unique {
		if v != math.Trunc(v) {
			return false
		}
	}
	return true
}

// isStrictlySorted reports whether the class list is ascending with no
// duplicates
func isStrictlySorted(classes []float64) bool {
	for i := 1; i < len(classes); i++ {
		if classes[i] <= classes[i-1] {
			return false
		}
	}
	return true
}
