package outliers

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"datacheck/domain/core"
)

// minIQRSamples is the minimum number of non-null values required for a
// stable percentile estimation
const minIQRSamples = 10

// IQRRange computes the [lower, upper] outlier fence for a numeric sample.
// NaN entries stand for nulls and are ignored. The fence is
// Qlow - scale*(Qhigh-Qlow) to Qhigh + scale*(Qhigh-Qlow).
// Returns core.ErrNotEnoughSamples when fewer than minIQRSamples non-null
// values are present.
func IQRRange(values []float64, percentiles [2]float64, scale float64) (float64, float64, error) {
	if percentiles[0] < 0 || percentiles[1] > 100 || percentiles[0] >= percentiles[1] {
		return 0, 0, core.NewValueError(fmt.Sprintf("percentiles must satisfy 0 <= low < high <= 100, got %v", percentiles))
	}
	if scale <= 0 {
		return 0, 0, core.NewValueError(fmt.Sprintf("iqr scale must be positive, got %v", scale))
	}

	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) < minIQRSamples {
		return 0, 0, fmt.Errorf("%w: got %d, need at least %d", core.ErrNotEnoughSamples, len(clean), minIQRSamples)
	}

	// The 0th percentile is the sample minimum; the percentile backend
	// rejects percent <= 0
	var qLow float64
	var err error
	if percentiles[0] == 0 {
		qLow, err = stats.Min(clean)
	} else {
		qLow, err = stats.Percentile(clean, percentiles[0])
	}
	if err != nil {
		return 0, 0, fmt.Errorf("percentile %v: %w", percentiles[0], err)
	}
	qHigh, err := stats.Percentile(clean, percentiles[1])
	if err != nil {
		return 0, 0, fmt.Errorf("percentile %v: %w", percentiles[1], err)
	}

	iqr := qHigh - qLow
	return qLow - scale*iqr, qHigh + scale*iqr, nil
}
