package checkrun

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/internal/dataset"
	"datacheck/ports"
)

// newLabeledTable builds a simple labeled dataset with one feature column
func newLabeledTable(t *testing.T, name string, index []string, labels []float64) ports.Dataset {
	t.Helper()
	rows := make([][]float64, len(index))
	for i := range rows {
		rows[i] = []float64{float64(i) * 10}
	}
	table, err := dataset.NewTable(dataset.TableConfig{
		Name:        name,
		Index:       index,
		Features:    []string{"x"},
		FeatureRows: rows,
		LabelName:   "y",
		Labels:      labels,
	})
	require.NoError(t, err)
	return table
}

func sequentialIndex(n int) []string {
	index := make([]string, n)
	for i := range index {
		index[i] = strconv.Itoa(i)
	}
	return index
}

func TestStaticModel_PredictReturnsStoredValues(t *testing.T) {
	n := 40
	labels := make([]float64, n)
	preds := make([]float64, n)
	for i := range preds {
		labels[i] = float64(i % 2)
		preds[i] = float64((i + 1) % 2)
	}
	train := newLabeledTable(t, "Train", sequentialIndex(n), labels)

	model, err := NewStaticModel(StaticModelConfig{
		Train:                 train,
		PredTrain:             preds,
		ValidateDataOnPredict: true,
	})
	require.NoError(t, err)

	// Query a contiguous block of previously seen rows
	ft := train.FeatureTable()
	rows, ok := ft.Select(train.Index()[5:35])
	require.True(t, ok)

	got, err := model.Predict(rows)
	require.NoError(t, err)
	assert.Equal(t, preds[5:35], got)
}

func TestStaticModel_UnseenDataValidation(t *testing.T) {
	n := 20
	train := newLabeledTable(t, "Train", sequentialIndex(n), make([]float64, n))
	preds := make([]float64, n)

	fabricated := tabular.NewFeatureTable(
		[]string{"fabricated-1", "fabricated-2"},
		[]string{"x"},
		[][]float64{{1}, {2}},
	)

	t.Run("validation enabled", func(t *testing.T) {
		model, err := NewStaticModel(StaticModelConfig{
			Train:                 train,
			PredTrain:             preds,
			ValidateDataOnPredict: true,
		})
		require.NoError(t, err)

		_, err = model.Predict(fabricated)
		assert.True(t, core.IsUnseenDataError(err), "expected unseen-data error, got %v", err)
	})

	t.Run("validation disabled", func(t *testing.T) {
		model, err := NewStaticModel(StaticModelConfig{
			Train:                 train,
			PredTrain:             preds,
			ValidateDataOnPredict: false,
		})
		require.NoError(t, err)

		// Lookup still fails for unknown labels, but not with the
		// unseen-data kind
		_, err = model.Predict(fabricated)
		require.Error(t, err)
		assert.False(t, core.IsUnseenDataError(err))
	})
}

func TestStaticModel_TamperedFeatureValues(t *testing.T) {
	n := 20
	train := newLabeledTable(t, "Train", sequentialIndex(n), make([]float64, n))

	model, err := NewStaticModel(StaticModelConfig{
		Train:                 train,
		PredTrain:             make([]float64, n),
		ValidateDataOnPredict: true,
	})
	require.NoError(t, err)

	// Same index labels, different feature values
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{-1}
	}
	tampered := tabular.NewFeatureTable(train.Index(), []string{"x"}, rows)

	_, err = model.Predict(tampered)
	assert.True(t, core.IsUnseenDataError(err), "expected unseen-data error, got %v", err)
}

func TestStaticModel_IndexCollisionRemap(t *testing.T) {
	index := []string{"0", "1", "2"}
	train := newLabeledTable(t, "Train", index, []float64{0, 1, 0})
	test := newLabeledTable(t, "Test", index, []float64{1, 0, 1})

	model, err := NewStaticModel(StaticModelConfig{
		Train:                 train,
		Test:                  test,
		PredTrain:             []float64{0, 1, 0},
		PredTest:              []float64{1, 1, 1},
		ValidateDataOnPredict: true,
	})
	require.NoError(t, err)

	// Predict-by-index works against the prefixed space
	ft := train.FeatureTable()
	prefixed := tabular.NewFeatureTable(
		[]string{"train-0", "train-1", "train-2"}, ft.Columns, ft.Rows)
	got, err := model.Predict(prefixed)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, got)

	testFT := test.FeatureTable()
	prefixedTest := tabular.NewFeatureTable(
		[]string{"test-0", "test-1", "test-2"}, testFT.Columns, testFT.Rows)
	got, err = model.Predict(prefixedTest)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, got)

	// The unprefixed space is gone
	_, err = model.Predict(ft)
	assert.Error(t, err)
}

func TestStaticModel_PredictionsDerivedFromProba(t *testing.T) {
	train := newLabeledTable(t, "Train", []string{"a", "b", "c"}, []float64{0, 1, 2})
	proba := [][]float64{
		{0.7, 0.2, 0.1},
		{0.1, 0.8, 0.1},
		{0.2, 0.3, 0.5},
	}

	model, err := NewStaticModel(StaticModelConfig{
		Train:      train,
		ProbaTrain: proba,
		Classes:    []float64{0, 1, 2},
	})
	require.NoError(t, err)

	got, err := model.Predict(train.FeatureTable())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, got)

	gotProba, err := model.PredictProba(train.FeatureTable())
	require.NoError(t, err)
	assert.Equal(t, proba, gotProba)
}

func TestStaticModel_ProbaWithoutClassesRejected(t *testing.T) {
	train := newLabeledTable(t, "Train", []string{"a", "b"}, []float64{0, 1})

	_, err := NewStaticModel(StaticModelConfig{
		Train:      train,
		ProbaTrain: [][]float64{{0.9, 0.1}, {0.3, 0.7}},
	})
	assert.True(t, core.IsValidationError(err), "expected validation error, got %v", err)
}

func TestStaticModel_InconsistentProbaRejected(t *testing.T) {
	train := newLabeledTable(t, "Train", []string{"a", "b"}, []float64{0, 1})

	// Predicted class 0 but class 1 has the bigger probability
	_, err := NewStaticModel(StaticModelConfig{
		Train:      train,
		PredTrain:  []float64{0, 1},
		ProbaTrain: [][]float64{{0.2, 0.8}, {0.3, 0.7}},
		Classes:    []float64{0, 1},
	})
	assert.True(t, core.IsValidationError(err), "expected validation error, got %v", err)
}

func TestStaticModel_PredictionCountMismatch(t *testing.T) {
	train := newLabeledTable(t, "Train", []string{"a", "b", "c"}, []float64{0, 1, 0})

	_, err := NewStaticModel(StaticModelConfig{
		Train:     train,
		PredTrain: []float64{0, 1},
	})
	assert.True(t, core.IsValidationError(err), "expected validation error, got %v", err)
}

func TestFlattenPredictions(t *testing.T) {
	got, err := FlattenPredictions([][]float64{{1}, {0}, {1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1}, got)

	_, err = FlattenPredictions([][]float64{{1, 0}, {0, 1}})
	assert.Error(t, err)
}
