package outliers

import (
	"math"
	"testing"

	"datacheck/domain/core"
)

// TestIQRRange_Fences verifies the fence formula against hand-computed quartiles
func TestIQRRange_Fences(t *testing.T) {
	// 12 values, quartiles at 3 and 9 by any reasonable percentile method
	values := []float64{1, 2, 3, 3, 3, 3, 9, 9, 9, 9, 10, 11}

	lower, upper, err := IQRRange(values, [2]float64{25, 75}, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lower >= upper {
		t.Fatalf("expected lower < upper, got [%v, %v]", lower, upper)
	}
	// iqr = 6, so fences are 3 - 9 = -6 and 9 + 9 = 18
	if math.Abs(lower-(-6)) > 1e-9 || math.Abs(upper-18) > 1e-9 {
		t.Errorf("expected fences [-6, 18], got [%v, %v]", lower, upper)
	}
}

// TestIQRRange_FullRangePercentiles covers the widest valid percentile pair,
// where the low quartile is the sample minimum
func TestIQRRange_FullRangePercentiles(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	lower, upper, err := IQRRange(values, [2]float64{0, 100}, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// q0 = 1, q100 = 12, iqr = 11: fences are 1 - 16.5 and 12 + 16.5
	if math.Abs(lower-(-15.5)) > 1e-9 || math.Abs(upper-28.5) > 1e-9 {
		t.Errorf("expected fences [-15.5, 28.5], got [%v, %v]", lower, upper)
	}
}

// TestIQRRange_IgnoresNulls verifies NaN entries do not shift the percentiles
func TestIQRRange_IgnoresNulls(t *testing.T) {
	values := []float64{1, 2, 3, 3, 3, 3, 9, 9, 9, 9, 10, 11}
	withNulls := append([]float64{math.NaN(), math.NaN()}, values...)

	l1, u1, err := IQRRange(values, [2]float64{25, 75}, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l2, u2, err := IQRRange(withNulls, [2]float64{25, 75}, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l1 != l2 || u1 != u2 {
		t.Errorf("nulls changed the fences: [%v, %v] vs [%v, %v]", l1, u1, l2, u2)
	}
}

// TestIQRRange_NotEnoughSamples verifies the distinguishable error kind
func TestIQRRange_NotEnoughSamples(t *testing.T) {
	// 50 entries, only one non-null
	values := make([]float64, 50)
	for i := range values {
		values[i] = math.NaN()
	}
	values[13] = 4.2

	_, _, err := IQRRange(values, [2]float64{25, 75}, 1.5)
	if !core.IsNotEnoughSamples(err) {
		t.Fatalf("expected not-enough-samples error, got %v", err)
	}
}

// TestIQRRange_InvalidArguments rejects bad percentiles and scale
func TestIQRRange_InvalidArguments(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	cases := []struct {
		name        string
		percentiles [2]float64
		scale       float64
	}{
		{"reversed percentiles", [2]float64{75, 25}, 1.5},
		{"equal percentiles", [2]float64{50, 50}, 1.5},
		{"percentile above 100", [2]float64{25, 101}, 1.5},
		{"zero scale", [2]float64{25, 75}, 0},
		{"negative scale", [2]float64{25, 75}, -1},
	}
	for _, tc := range cases {
		if _, _, err := IQRRange(values, tc.percentiles, tc.scale); err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
		}
	}
}
