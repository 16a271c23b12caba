package outliers

import (
	"fmt"
	"math"
	"sort"

	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/ports"
)

// notEnoughSamplesMessage is the placeholder recorded for properties whose
// outlier bounds could not be estimated
const notEnoughSamplesMessage = "Not enough non-null samples to calculate outliers."

// noOutliersMessage groups properties that produced an empty outlier set
const noOutliersMessage = "No outliers found."

// displayTextLimit caps the raw sample content attached to showcase entries
const displayTextLimit = 100

// Config holds the scanner parameters
type Config struct {
	// Properties optionally restricts the scan to the named properties
	Properties []string
	// NShowTop is the number of outliers to showcase from each extreme
	NShowTop int
	// IQRPercentiles are the two percentiles defining the IQR range
	IQRPercentiles [2]float64
	// IQRScale multiplies the IQR range for the outlier fences
	IQRScale float64
	// WithDisplay controls whether rendering requests are emitted
	WithDisplay bool
}

// DefaultConfig returns the scanner defaults
func DefaultConfig() Config {
	return Config{
		NShowTop:       5,
		IQRPercentiles: [2]float64{25, 75},
		IQRScale:       1.5,
		WithDisplay:    true,
	}
}

// Scanner finds outlier samples with respect to the numeric properties of a
// dataset, using IQR fences over the flattened per-sample value lists.
type Scanner struct {
	cfg Config
}

// NewScanner creates a property outlier scanner. Zero-valued numeric fields
// take their defaults independently; WithDisplay is used as given.
func NewScanner(cfg Config) *Scanner {
	def := DefaultConfig()
	if cfg.NShowTop == 0 {
		cfg.NShowTop = def.NShowTop
	}
	var noPercentiles [2]float64
	if cfg.IQRPercentiles == noPercentiles {
		cfg.IQRPercentiles = def.IQRPercentiles
	}
	if cfg.IQRScale == 0 {
		cfg.IQRScale = def.IQRScale
	}
	return &Scanner{cfg: cfg}
}

// Run scans every numeric property of the dataset and returns the
// per-property outcome. Properties with too few non-null values are recorded
// as a textual placeholder and do not abort the scan; a malformed property is
// a collaborator contract violation and fails the whole run. Rendering
// requests go to display, which may be nil.
func (s *Scanner) Run(ds ports.Dataset, display ports.DisplayRenderer) (map[string]tabular.PropertyResult, error) {
	names := s.propertyNames(ds)
	result := make(map[string]tabular.PropertyResult, len(names))
	plots := make([]tabular.OutlierPlot, 0, len(names))

	for _, name := range names {
		values, err := normalizeValues(name, ds.PropertyValues(name), ds.NumSamples())
		if err != nil {
			return nil, err
		}

		// Flatten, keeping the cumulative per-sample counts to invert
		// flat positions back to sample indices
		cumsum := make([]int, len(values))
		total := 0
		for i, v := range values {
			total += len(v)
			cumsum[i] = total
		}
		flat := make([]float64, 0, total)
		for _, v := range values {
			flat = append(flat, v...)
		}

		lower, upper, err := IQRRange(flat, s.cfg.IQRPercentiles, s.cfg.IQRScale)
		if core.IsNotEnoughSamples(err) {
			result[name] = tabular.PropertyResult{Err: notEnoughSamplesMessage}
			continue
		}
		if err != nil {
			return nil, err
		}

		// Strictly outside the fences; values equal to a bound are kept
		var top, bottom []int
		for i, v := range flat {
			switch {
			case v > upper:
				top = append(top, i)
			case v < lower:
				bottom = append(bottom, i)
			}
		}
		sortByValue(top, flat)
		sortByValue(bottom, flat)

		showcase := s.showcase(ds, values, cumsum, flat, bottom, top)

		// All matched samples, bottom outliers first, mapped to index labels
		indexLabels := ds.Index()
		indices := make([]string, 0, len(bottom)+len(top))
		for _, fi := range append(append([]int{}, bottom...), top...) {
			indices = append(indices, indexLabels[sampleIndexFromFlatIndex(cumsum, fi)])
		}

		// Reported bounds never claim a wider range than actually observed
		observedMin, observedMax := minMaxIgnoreNaN(flat)
		clippedLower := math.Max(lower, observedMin)
		clippedUpper := math.Min(upper, observedMax)

		result[name] = tabular.PropertyResult{Outliers: &tabular.PropertyOutliers{
			Indices:    indices,
			LowerLimit: clippedLower,
			UpperLimit: clippedUpper,
		}}

		if len(indices) > 0 {
			plots = append(plots, tabular.OutlierPlot{
				Property:   name,
				Values:     flat,
				LowerLimit: clippedLower,
				UpperLimit: clippedUpper,
				Showcase:   showcase,
			})
		}
	}

	if display != nil && s.cfg.WithDisplay {
		s.render(display, names, result, plots)
	}

	return result, nil
}

// propertyNames returns the numeric properties to scan, honoring the
// configured allowlist
func (s *Scanner) propertyNames(ds ports.Dataset) []string {
	var allow map[string]bool
	if len(s.cfg.Properties) > 0 {
		allow = make(map[string]bool, len(s.cfg.Properties))
		for _, p := range s.cfg.Properties {
			allow[p] = true
		}
	}
	var names []string
	for _, name := range ds.PropertyNames() {
		if ds.PropertyType(name) != tabular.PropertyNumeric {
			continue
		}
		if allow != nil && !allow[name] {
			continue
		}
		names = append(names, name)
	}
	return names
}

// showcase resolves up to NShowTop outliers from each extreme into display
// entries, using the cumulative counts to find the owning sample and the
// value's position inside it
func (s *Scanner) showcase(ds ports.Dataset, values [][]float64, cumsum []int, flat []float64, bottom, top []int) []tabular.OutlierSample {
	show := make([]int, 0, 2*s.cfg.NShowTop)
	if len(bottom) > 0 {
		show = append(show, bottom[:min(s.cfg.NShowTop, len(bottom))]...)
	}
	if len(top) > 0 {
		show = append(show, top[max(0, len(top)-s.cfg.NShowTop):]...)
	}

	indexLabels := ds.Index()
	out := make([]tabular.OutlierSample, 0, len(show))
	for _, fi := range show {
		sampleIdx := sampleIndexFromFlatIndex(cumsum, fi)
		out = append(out, tabular.OutlierSample{
			Value:             flat[fi],
			SampleIndex:       sampleIdx,
			IndexLabel:        indexLabels[sampleIdx],
			IndexInSample:     cumsum[sampleIdx] - fi,
			NumValuesInSample: len(values[sampleIdx]),
			Text:              trim(ds.SampleText(sampleIdx), displayTextLimit),
		})
	}
	return out
}

// render emits one plot request per property with outliers and a single
// grouped table for the rest
func (s *Scanner) render(display ports.DisplayRenderer, names []string, result map[string]tabular.PropertyResult, plots []tabular.OutlierPlot) {
	for _, plot := range plots {
		display.PropertyOutliers(plot)
	}

	// Group plot-less properties by reason, preserving property order
	grouped := make(map[string][]string)
	var reasons []string
	addReason := func(reason, property string) {
		if _, seen := grouped[reason]; !seen {
			reasons = append(reasons, reason)
		}
		grouped[reason] = append(grouped[reason], property)
	}
	for _, name := range names {
		res := result[name]
		switch {
		case res.IsErr():
			addReason(res.Err, name)
		case len(res.Outliers.Indices) == 0:
			addReason(noOutliersMessage, name)
		}
	}
	if len(reasons) == 0 {
		return
	}
	entries := make([]tabular.NoOutlierEntry, 0, len(reasons))
	for _, reason := range reasons {
		entries = append(entries, tabular.NoOutlierEntry{Reason: reason, Properties: grouped[reason]})
	}
	display.NoOutliersTable(entries)
}

// normalizeValues turns a property column into a uniform list-per-sample
// representation, validating the collaborator contract: one entry per sample,
// all scalars or all lists, numeric values only. A nil scalar entry stands
// for a null and becomes NaN.
func normalizeValues(name string, raw []any, numSamples int) ([][]float64, error) {
	if len(raw) != numSamples {
		return nil, core.NewProcessError(name, fmt.Sprintf("expected one value per sample but got %d values for %d samples", len(raw), numSamples))
	}

	_, firstIsList := raw[0].([]float64)
	out := make([][]float64, len(raw))
	for i, entry := range raw {
		switch v := entry.(type) {
		case nil:
			if firstIsList {
				return nil, core.NewProcessError(name, "expected either all lists or all scalars but got a mix")
			}
			out[i] = []float64{math.NaN()}
		case float64:
			if firstIsList {
				return nil, core.NewProcessError(name, "expected either all lists or all scalars but got a mix")
			}
			out[i] = []float64{v}
		case int:
			if firstIsList {
				return nil, core.NewProcessError(name, "expected either all lists or all scalars but got a mix")
			}
			out[i] = []float64{float64(v)}
		case []float64:
			if !firstIsList {
				return nil, core.NewProcessError(name, "expected either all lists or all scalars but got a mix")
			}
			out[i] = v
		default:
			return nil, core.NewProcessError(name, fmt.Sprintf("expected numeric values but got %T", entry))
		}
	}
	return out, nil
}

// sortByValue orders flat indices ascending by their value
func sortByValue(indices []int, flat []float64) {
	sort.SliceStable(indices, func(a, b int) bool {
		return flat[indices[a]] < flat[indices[b]]
	})
}

// minMaxIgnoreNaN returns the observed min and max, skipping nulls
func minMaxIgnoreNaN(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// trim cuts text to maxChars runes, appending an ellipsis when shortened
func trim(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + "..."
}
