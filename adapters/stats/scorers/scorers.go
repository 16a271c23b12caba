package scorers

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/ports"
)

// Scorer is a named metric evaluating model predictions against ground truth
type Scorer struct {
	Name    string
	classes []float64
	fn      metricFn
}

type metricFn func(yTrue, yPred []float64, classes []float64) (float64, error)

// Score runs the model on the dataset's feature table and evaluates the metric
// over samples with a non-missing label
func (s Scorer) Score(model ports.Model, ds ports.Dataset) (float64, error) {
	if !ds.HasLabel() {
		return 0, core.NewNotSupportedError("scoring requires a labeled dataset")
	}
	preds, err := model.Predict(ds.FeatureTable())
	if err != nil {
		return 0, err
	}
	labels := ds.Labels()
	if len(preds) != len(labels) {
		return 0, core.NewValueError(fmt.Sprintf("model returned %d predictions for %d labels", len(preds), len(labels)))
	}

	yTrue := make([]float64, 0, len(labels))
	yPred := make([]float64, 0, len(labels))
	for i, label := range labels {
		if tabular.IsMissing(label) {
			continue
		}
		yTrue = append(yTrue, label)
		yPred = append(yPred, preds[i])
	}
	if len(yTrue) == 0 {
		return 0, core.NewValueError("no non-missing labels to score against")
	}
	return s.fn(yTrue, yPred, s.classes)
}

// Registered metric names
const (
	Accuracy       = "accuracy"
	PrecisionMacro = "precision_macro"
	RecallMacro    = "recall_macro"
	F1Macro        = "f1_macro"
	NegRMSE        = "neg_rmse"
	NegMAE         = "neg_mae"
	R2             = "r2"
)

var registry = map[string]metricFn{
	Accuracy:       accuracy,
	PrecisionMacro: precisionMacro,
	RecallMacro:    recallMacro,
	F1Macro:        f1Macro,
	NegRMSE:        negRMSE,
	NegMAE:         negMAE,
	R2:             rSquared,
}

// Defaults returns the task-appropriate default metric names. For
// classification, useAvgDefaults selects averaged metrics over the
// per-class-focused F1 set.
func Defaults(task tabular.TaskType, useAvgDefaults bool) []string {
	if task.IsClassification() {
		if useAvgDefaults {
			return []string{Accuracy, PrecisionMacro, RecallMacro}
		}
		return []string{F1Macro, PrecisionMacro, RecallMacro}
	}
	return []string{NegRMSE, NegMAE, R2}
}

// Get resolves metric names into validated scorers. The class list is needed
// by the macro-averaged classification metrics.
func Get(names []string, classes []float64) ([]Scorer, error) {
	out := make([]Scorer, 0, len(names))
	for _, name := range names {
		fn, ok := registry[name]
		if !ok {
			return nil, core.NewValueError(fmt.Sprintf("unknown scorer %q", name))
		}
		out = append(out, Scorer{Name: name, classes: classes, fn: fn})
	}
	return out, nil
}

func accuracy(yTrue, yPred, _ []float64) (float64, error) {
	hits := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(yTrue)), nil
}

// perClassCounts tallies true positives, false positives and false negatives
// for one class
func perClassCounts(yTrue, yPred []float64, class float64) (tp, fp, fn int) {
	for i := range yTrue {
		predicted := yPred[i] == class
		actual := yTrue[i] == class
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		}
	}
	return tp, fp, fn
}

func macroAverage(yTrue, yPred, classes []float64, perClass func(tp, fp, fn int) float64) (float64, error) {
	if len(classes) == 0 {
		return 0, core.NewValueError("classification metric requires a class list")
	}
	scores := make([]float64, 0, len(classes))
	for _, class := range classes {
		tp, fp, fn := perClassCounts(yTrue, yPred, class)
		scores = append(scores, perClass(tp, fp, fn))
	}
	return stats.Mean(scores)
}

func precisionMacro(yTrue, yPred, classes []float64) (float64, error) {
	return macroAverage(yTrue, yPred, classes, func(tp, fp, _ int) float64 {
		if tp+fp == 0 {
			return 0
		}
		return float64(tp) / float64(tp+fp)
	})
}

func recallMacro(yTrue, yPred, classes []float64) (float64, error) {
	return macroAverage(yTrue, yPred, classes, func(tp, _, fn int) float64 {
		if tp+fn == 0 {
			return 0
		}
		return float64(tp) / float64(tp+fn)
	})
}

func f1Macro(yTrue, yPred, classes []float64) (float64, error) {
	return macroAverage(yTrue, yPred, classes, func(tp, fp, fn int) float64 {
		if 2*tp+fp+fn == 0 {
			return 0
		}
		return 2 * float64(tp) / float64(2*tp+fp+fn)
	})
}

func negRMSE(yTrue, yPred, _ []float64) (float64, error) {
	residuals := make([]float64, len(yTrue))
	floats.SubTo(residuals, yPred, yTrue)
	sumSq := 0.0
	for _, r := range residuals {
		sumSq += r * r
	}
	return -math.Sqrt(sumSq / float64(len(yTrue))), nil
}

func negMAE(yTrue, yPred, _ []float64) (float64, error) {
	sum := 0.0
	for i := range yTrue {
		sum += math.Abs(yPred[i] - yTrue[i])
	}
	return -sum / float64(len(yTrue)), nil
}

func rSquared(yTrue, yPred, _ []float64) (float64, error) {
	return stat.RSquaredFrom(yPred, yTrue, nil), nil
}
