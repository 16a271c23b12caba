package ports

import (
	"datacheck/domain/tabular"
)

// Dataset is the collaborator interface checks consume. It exposes per-sample
// property values, row index labels, raw sample content for display and the
// label/feature metadata needed for context reconciliation. Loading and
// casting of the underlying data is the collaborator's concern.
type Dataset interface {
	// Name returns a human readable dataset name ("Train", "Test", ...)
	Name() string

	// NumSamples returns the dataset size
	NumSamples() int

	// Index returns the original row index labels, in sample order
	Index() []string

	// SampleText returns the raw content of one sample for display
	SampleText(i int) string

	// PropertyNames returns the declared property names, in a stable order
	PropertyNames() []string

	// PropertyType returns the declared type of a property
	PropertyType(name string) tabular.PropertyType

	// PropertyValues returns one entry per sample: either a float64 scalar or
	// a []float64 list. Anything else is a contract violation surfaced by the
	// consumer.
	PropertyValues(name string) []any

	// HasLabel reports whether a label column is present
	HasLabel() bool

	// LabelName returns the label column name, empty when HasLabel is false
	LabelName() string

	// Labels returns the label per sample; NaN stands for a missing label
	Labels() []float64

	// LabelType returns the declared task type, empty when undeclared
	LabelType() tabular.TaskType

	// Features returns the feature column names
	Features() []string

	// CatFeatures returns the subset of features declared categorical
	CatFeatures() []string

	// IndexName returns the name of the index column, empty when positional
	IndexName() string

	// DateName returns the name of the date column, empty when absent
	DateName() string

	// FeatureTable returns the feature matrix keyed by index label
	FeatureTable() tabular.FeatureTable
}
