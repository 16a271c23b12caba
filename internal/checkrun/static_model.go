package checkrun

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/ports"
)

// probaTolerance is the slack allowed when checking that a predicted class's
// probability is its row's maximum
const probaTolerance = 1e-9

// validationSampleSize is how many requested rows are sampled before a
// static-prediction lookup
const validationSampleSize = 100

// validationSpotChecks is how many of the sampled rows get their feature
// values compared against the stored reference
const validationSpotChecks = 30

// StaticModelConfig wires user-supplied prediction arrays into a model-like
// object, keyed by dataset row index
type StaticModelConfig struct {
	Train ports.Dataset
	Test  ports.Dataset

	PredTrain []float64
	PredTest  []float64

	ProbaTrain [][]float64
	ProbaTest  [][]float64

	// Classes maps probability columns to class values. Required whenever
	// probabilities are supplied.
	Classes []float64

	// ValidateDataOnPredict spot-checks that inference is requested on
	// previously seen rows. Static predictions cannot generalize.
	ValidateDataOnPredict bool

	// RNG drives the validation sampling; nil falls back to a fixed seed
	RNG ports.RNGPort
}

// StaticModel serves stored predictions by row index, standing in for a real
// estimator when only prediction arrays were supplied
type StaticModel struct {
	featureTables []tabular.FeatureTable
	predictions   map[string]float64
	probas        map[string][]float64
	classes       []float64
	validate      bool
	rng           *rand.Rand
}

var _ ports.ProbaModel = (*StaticModel)(nil)

// NewStaticModel validates the supplied arrays against their datasets and
// builds the adapter. Colliding train/test index spaces are remapped with
// role-qualifying prefixes and a non-fatal warning.
func NewStaticModel(cfg StaticModelConfig) (*StaticModel, error) {
	trainIndex, testIndex := roleIndexes(cfg.Train, cfg.Test)

	m := &StaticModel{
		predictions: make(map[string]float64),
		probas:      make(map[string][]float64),
		classes:     cfg.Classes,
		validate:    cfg.ValidateDataOnPredict,
		rng:         validationStream(cfg.RNG),
	}

	roles := []struct {
		ds    ports.Dataset
		index []string
		pred  []float64
		proba [][]float64
	}{
		{cfg.Train, trainIndex, cfg.PredTrain, cfg.ProbaTrain},
		{cfg.Test, testIndex, cfg.PredTest, cfg.ProbaTest},
	}

	for _, role := range roles {
		if role.ds == nil {
			continue
		}
		ft := role.ds.FeatureTable()
		m.featureTables = append(m.featureTables, tabular.NewFeatureTable(role.index, ft.Columns, ft.Rows))

		pred := role.pred
		if pred == nil && role.proba != nil {
			derived, err := predictionsFromProba(role.proba, cfg.Classes)
			if err != nil {
				return nil, err
			}
			pred = derived
		}
		if pred == nil {
			continue
		}
		if len(pred) != role.ds.NumSamples() {
			return nil, core.NewValueError(fmt.Sprintf("got %d predictions for %d samples", len(pred), role.ds.NumSamples()))
		}
		if role.proba != nil {
			if err := ensurePredictionsProba(role.proba, pred, cfg.Classes); err != nil {
				return nil, err
			}
		}
		for i, label := range role.index {
			m.predictions[label] = pred[i]
			if role.proba != nil {
				m.probas[label] = role.proba[i]
			}
		}
	}

	if len(m.predictions) == 0 {
		return nil, core.NewValueError("static model requires predictions or probabilities for at least one dataset")
	}
	return m, nil
}

// FlattenPredictions converts a single-column prediction matrix into a flat
// array; wider matrices are rejected
func FlattenPredictions(matrix [][]float64) ([]float64, error) {
	out := make([]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != 1 {
			return nil, core.NewValueError(fmt.Sprintf("prediction matrix row %d has %d columns, expected 1", i, len(row)))
		}
		out[i] = row[0]
	}
	return out, nil
}

// Classes returns the class list the probabilities are aligned with
func (m *StaticModel) Classes() []float64 {
	return m.classes
}

// Predict returns the stored predictions for the requested row indexes
func (m *StaticModel) Predict(rows tabular.FeatureTable) ([]float64, error) {
	if err := m.validateData(rows); err != nil {
		return nil, err
	}
	out := make([]float64, len(rows.Index))
	for i, label := range rows.Index {
		pred, ok := m.predictions[label]
		if !ok {
			return nil, core.NewValueError(fmt.Sprintf("no static prediction stored for index %q", label))
		}
		out[i] = pred
	}
	return out, nil
}

// PredictProba returns the stored probability rows for the requested indexes
func (m *StaticModel) PredictProba(rows tabular.FeatureTable) ([][]float64, error) {
	if len(m.probas) == 0 {
		return nil, core.NewNotSupportedError("no probabilities were supplied to the static model")
	}
	if err := m.validateData(rows); err != nil {
		return nil, err
	}
	out := make([][]float64, len(rows.Index))
	for i, label := range rows.Index {
		proba, ok := m.probas[label]
		if !ok {
			return nil, core.NewValueError(fmt.Sprintf("no static probabilities stored for index %q", label))
		}
		out[i] = proba
	}
	return out, nil
}

// validateData samples the requested rows and checks a known feature table
// contains them with matching values. Mismatch means inference on rows the
// static predictions have never seen.
func (m *StaticModel) validateData(rows tabular.FeatureTable) error {
	if !m.validate {
		return nil
	}
	sampled := sampleLabels(m.rng, rows.Index, validationSampleSize)
	for _, ft := range m.featureTables {
		if !ft.Contains(sampled) {
			continue
		}
		// All indices found: spot-check actual values on a sub-sample
		spot := sampleLabels(m.rng, sampled, validationSpotChecks)
		for _, label := range spot {
			stored, _ := ft.Lookup(label)
			requested, _ := rows.Lookup(label)
			if !rowsEqual(stored, requested) {
				return core.ErrUnseenData
			}
		}
		return nil
	}
	return core.ErrUnseenData
}

// roleIndexes returns the index labels per role, prefix-remapped when the two
// datasets collide
func roleIndexes(train, test ports.Dataset) ([]string, []string) {
	var trainIndex, testIndex []string
	if train != nil {
		trainIndex = train.Index()
	}
	if test != nil {
		testIndex = test.Index()
	}
	if train == nil || test == nil || !indexesIntersect(trainIndex, testIndex) {
		return trainIndex, testIndex
	}

	log.Printf("[StaticModel] train and test datasets have common index - adding \"train\"/\"test\" prefixes. " +
		"To avoid that provide datasets with no common indexes or pass the model object instead of the predictions.")
	return prefixIndex("train", trainIndex), prefixIndex("test", testIndex)
}

func indexesIntersect(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, label := range a {
		set[label] = true
	}
	for _, label := range b {
		if set[label] {
			return true
		}
	}
	return false
}

func prefixIndex(role string, index []string) []string {
	out := make([]string, len(index))
	for i, label := range index {
		out[i] = role + "-" + label
	}
	return out
}

// predictionsFromProba derives predictions as the arg-max class per row
func predictionsFromProba(proba [][]float64, classes []float64) ([]float64, error) {
	if len(classes) == 0 {
		return nil, core.NewValueError("probabilities were supplied without a class list")
	}
	out := make([]float64, len(proba))
	for i, row := range proba {
		if len(row) != len(classes) {
			return nil, core.NewValueError(fmt.Sprintf("probability row %d has %d columns for %d classes", i, len(row), len(classes)))
		}
		best := 0
		for j, p := range row {
			if p > row[best] {
				best = j
			}
		}
		out[i] = classes[best]
	}
	return out, nil
}

// ensurePredictionsProba checks the probabilities are consistent with the
// predictions: each predicted class's probability must be its row's maximum
func ensurePredictionsProba(proba [][]float64, pred []float64, classes []float64) error {
	if len(classes) == 0 {
		return core.NewValueError("probabilities were supplied without a class list")
	}
	if len(proba) != len(pred) {
		return core.NewValueError(fmt.Sprintf("got %d probability rows for %d predictions", len(proba), len(pred)))
	}
	classPos := make(map[float64]int, len(classes))
	for j, class := range classes {
		classPos[class] = j
	}
	for i, row := range proba {
		if len(row) != len(classes) {
			return core.NewValueError(fmt.Sprintf("probability row %d has %d columns for %d classes", i, len(row), len(classes)))
		}
		pos, ok := classPos[pred[i]]
		if !ok {
			return core.NewValueError(fmt.Sprintf("prediction %v at row %d is not in the class list", pred[i], i))
		}
		rowMax := math.Inf(-1)
		for _, p := range row {
			rowMax = math.Max(rowMax, p)
		}
		if row[pos] < rowMax-probaTolerance {
			return core.NewValueError(fmt.Sprintf("predictions and probabilities disagree at row %d", i))
		}
	}
	return nil
}

// sampleLabels draws up to k distinct labels, preserving no particular order
func sampleLabels(rng *rand.Rand, labels []string, k int) []string {
	if len(labels) <= k {
		out := make([]string, len(labels))
		copy(out, labels)
		return out
	}
	perm := rng.Perm(len(labels))
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = labels[perm[i]]
	}
	return out
}

func rowsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}
	return true
}

// validationStream resolves the RNG used by predict-time validation. The
// original sampled with an unseeded global source; a named seeded stream
// keeps repeated runs checking the same rows.
func validationStream(rng ports.RNGPort) *rand.Rand {
	if rng != nil {
		return rng.SeededStream("static-model-validation", 0)
	}
	return rand.New(rand.NewSource(0))
}
