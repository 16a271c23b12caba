package importance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/internal/dataset"
	"datacheck/ports"
)

// firstFeatureModel predicts the first feature column verbatim
type firstFeatureModel struct {
	importances []float64
}

func (m firstFeatureModel) Predict(rows tabular.FeatureTable) ([]float64, error) {
	out := make([]float64, rows.Len())
	for i, row := range rows.Rows {
		out[i] = row[0]
	}
	return out, nil
}

func (m firstFeatureModel) FeatureImportances() []float64 {
	return m.importances
}

// plainModel has no intrinsic importances
type plainModel struct{}

func (plainModel) Predict(rows tabular.FeatureTable) ([]float64, error) {
	out := make([]float64, rows.Len())
	for i, row := range rows.Rows {
		out[i] = row[0]
	}
	return out, nil
}

func regressionDataset(t *testing.T, n int, labeled bool) ports.Dataset {
	t.Helper()
	rows := make([][]float64, n)
	labels := make([]float64, n)
	for i := range rows {
		rows[i] = []float64{float64(i), 0}
		labels[i] = float64(i)
	}
	cfg := dataset.TableConfig{
		Name:        "reg",
		Features:    []string{"x", "z"},
		FeatureRows: rows,
	}
	if labeled {
		cfg.LabelName = "y"
		cfg.Labels = labels
	}
	table, err := dataset.NewTable(cfg)
	require.NoError(t, err)
	return table
}

func TestCalculateOrNil_IntrinsicImportances(t *testing.T) {
	ds := regressionDataset(t, 10, true)
	model := firstFeatureModel{importances: []float64{3, 1}}

	fi, kind, err := CalculateOrNil(context.Background(), model, ds, tabular.TaskRegression, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, KindIntrinsic, kind)
	assert.InDelta(t, 0.75, fi["x"], 1e-9)
	assert.InDelta(t, 0.25, fi["z"], 1e-9)
}

func TestCalculateOrNil_IntrinsicLengthMismatch(t *testing.T) {
	ds := regressionDataset(t, 10, true)
	model := firstFeatureModel{importances: []float64{1}}

	_, _, err := CalculateOrNil(context.Background(), model, ds, tabular.TaskRegression, nil, DefaultOptions())
	assert.ErrorIs(t, err, core.ErrModelValidation)
}

func TestCalculateOrNil_PermutationImportance(t *testing.T) {
	ds := regressionDataset(t, 20, true)

	fi, kind, err := CalculateOrNil(context.Background(), plainModel{}, ds, tabular.TaskRegression, nil, DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, fi)
	assert.Equal(t, KindPermutation, kind)

	// The model only reads x, so shuffling z never moves the score
	assert.InDelta(t, 1.0, fi["x"], 1e-9)
	assert.InDelta(t, 0.0, fi["z"], 1e-9)
}

func TestCalculateOrNil_ForcePermutationSkipsIntrinsic(t *testing.T) {
	ds := regressionDataset(t, 20, true)
	model := firstFeatureModel{importances: []float64{0, 1}}

	opts := DefaultOptions()
	opts.ForcePermutation = true
	fi, kind, err := CalculateOrNil(context.Background(), model, ds, tabular.TaskRegression, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, KindPermutation, kind)
	assert.InDelta(t, 1.0, fi["x"], 1e-9)
}

func TestCalculateOrNil_UnlabeledDatasetDegradesToNil(t *testing.T) {
	ds := regressionDataset(t, 10, false)

	fi, kind, err := CalculateOrNil(context.Background(), plainModel{}, ds, tabular.TaskRegression, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, fi)
	assert.Empty(t, kind)
}

func TestCalculateOrNil_CanceledContextDegradesToNil(t *testing.T) {
	ds := regressionDataset(t, 20, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Dispatch stops at the first semaphore acquire and the sweep reports
	// itself incomplete
	fi, kind, err := CalculateOrNil(ctx, plainModel{}, ds, tabular.TaskRegression, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, fi)
	assert.Empty(t, kind)
}

func TestCalculateOrNil_BudgetTooSmallDegradesToNil(t *testing.T) {
	ds := regressionDataset(t, 20, true)

	opts := DefaultOptions()
	opts.Timeout = time.Nanosecond
	fi, kind, err := CalculateOrNil(context.Background(), plainModel{}, ds, tabular.TaskRegression, nil, opts)
	require.NoError(t, err)
	assert.Nil(t, fi)
	assert.Empty(t, kind)
}
