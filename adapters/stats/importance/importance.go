package importance

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"datacheck/adapters/stats/scorers"
	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/ports"
)

// Importance kinds reported alongside the scores
const (
	KindIntrinsic   = "feature_importances"
	KindPermutation = "permutation_importance"
)

// Options control the importance calculation
type Options struct {
	// ForcePermutation skips the model's intrinsic importances even when available
	ForcePermutation bool
	// Timeout bounds the wall-clock budget for permutation rounds. It is not
	// a hard interrupt: in-flight scoring finishes, further rounds stop.
	Timeout time.Duration
	// Repeats is the number of shuffles per feature
	Repeats int
	// Seed drives the permutation shuffles
	Seed int64
	// MaxConcurrent bounds simultaneous model inferences
	MaxConcurrent int64
}

// DefaultOptions returns the standard calculation settings
func DefaultOptions() Options {
	return Options{
		Timeout:       120 * time.Second,
		Repeats:       5,
		Seed:          42,
		MaxConcurrent: 4,
	}
}

// CalculateOrNil computes per-feature importance for the model over the
// dataset, preferring the model's intrinsic scores and falling back to
// permutation importance. A blown time budget degrades to nil rather than
// failing. The second return names the importance kind, empty when nil.
func CalculateOrNil(ctx context.Context, model ports.Model, ds ports.Dataset, task tabular.TaskType, classes []float64, opts Options) (map[string]float64, string, error) {
	if opts.Repeats <= 0 {
		opts.Repeats = DefaultOptions().Repeats
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultOptions().MaxConcurrent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	features := ds.Features()
	if len(features) == 0 {
		return nil, "", nil
	}

	if !opts.ForcePermutation {
		if fi, ok := model.(ports.FeatureImportancer); ok {
			scores := fi.FeatureImportances()
			if len(scores) != len(features) {
				return nil, "", core.NewModelValidationError("intrinsic feature importances do not match the feature columns")
			}
			return normalize(features, scores), KindIntrinsic, nil
		}
	}

	if !ds.HasLabel() {
		return nil, "", nil
	}

	scores, err := permutationImportance(ctx, model, ds, task, classes, opts)
	if err != nil {
		return nil, "", err
	}
	if scores == nil {
		return nil, "", nil
	}
	return normalize(features, scores), KindPermutation, nil
}

// permutationImportance scores the drop in the default metric when each
// feature column is shuffled. Returns nil scores when the time budget does
// not allow a full pass.
func permutationImportance(ctx context.Context, model ports.Model, ds ports.Dataset, task tabular.TaskType, classes []float64, opts Options) ([]float64, error) {
	scorerList, err := scorers.Get(scorers.Defaults(task, true)[:1], classes)
	if err != nil {
		return nil, err
	}
	scorer := scorerList[0]

	deadline := time.Now().Add(opts.Timeout)

	// Time one scoring pass to project whether a full permutation sweep fits
	// the budget at all
	start := time.Now()
	baseline, err := scorer.Score(model, ds)
	if err != nil {
		return nil, err
	}
	perScore := time.Since(start)

	features := ds.Features()
	projected := perScore * time.Duration(len(features)*opts.Repeats)
	if time.Now().Add(projected).After(deadline) {
		log.Printf("[Importance] permutation importance skipped: projected %s exceeds the %s budget", projected, opts.Timeout)
		return nil, nil
	}

	ft := ds.FeatureTable()
	sem := semaphore.NewWeighted(opts.MaxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	out := make([]float64, len(features))
	var firstErr error
	timedOut := false

	// timedOut is shared with in-flight workers, so every write holds mu
	for j := range features {
		if time.Now().After(deadline) {
			mu.Lock()
			timedOut = true
			mu.Unlock()
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			timedOut = true
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(col int) {
			defer wg.Done()
			defer sem.Release(1)

			rng := rand.New(rand.NewSource(opts.Seed + int64(col)))
			sum := 0.0
			rounds := 0
			for r := 0; r < opts.Repeats; r++ {
				if time.Now().After(deadline) {
					break
				}
				permuted := shuffleColumn(ft, col, rng)
				score, err := scorer.Score(model, permutedDataset{Dataset: ds, table: permuted})
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				sum += score
				rounds++
			}
			mu.Lock()
			if rounds < opts.Repeats {
				timedOut = true
			} else {
				out[col] = baseline - sum/float64(rounds)
			}
			mu.Unlock()
		}(j)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if timedOut {
		log.Printf("[Importance] permutation importance aborted: %s budget exhausted", opts.Timeout)
		return nil, nil
	}
	return out, nil
}

// permutedDataset overrides the feature table of an existing dataset
type permutedDataset struct {
	ports.Dataset
	table tabular.FeatureTable
}

func (d permutedDataset) FeatureTable() tabular.FeatureTable {
	return d.table
}

// shuffleColumn returns a copy of the table with one column permuted
func shuffleColumn(ft tabular.FeatureTable, col int, rng *rand.Rand) tabular.FeatureTable {
	perm := rng.Perm(len(ft.Rows))
	rows := make([][]float64, len(ft.Rows))
	for i, row := range ft.Rows {
		copied := make([]float64, len(row))
		copy(copied, row)
		copied[col] = ft.Rows[perm[i]][col]
		rows[i] = copied
	}
	return tabular.NewFeatureTable(ft.Index, ft.Columns, rows)
}

// normalize clamps negatives to zero and scales scores to sum to one
func normalize(features []string, scores []float64) map[string]float64 {
	sum := 0.0
	clamped := make([]float64, len(scores))
	for i, s := range scores {
		if s > 0 {
			clamped[i] = s
			sum += s
		}
	}
	out := make(map[string]float64, len(features))
	for i, name := range features {
		if sum > 0 {
			out[name] = clamped[i] / sum
		} else {
			out[name] = 0
		}
	}
	return out
}
