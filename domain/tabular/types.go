package tabular

import (
	"math"

	"datacheck/domain/core"
)

// TaskType describes the nature of a model's output
type TaskType string

const (
	TaskBinary     TaskType = "binary"
	TaskMulticlass TaskType = "multiclass"
	TaskRegression TaskType = "regression"
)

// IsClassification reports whether the task predicts discrete classes
func (t TaskType) IsClassification() bool {
	return t == TaskBinary || t == TaskMulticlass
}

// PropertyType declares how a per-sample property should be interpreted
type PropertyType string

const (
	PropertyNumeric     PropertyType = "numeric"
	PropertyCategorical PropertyType = "categorical"
	PropertyClassID     PropertyType = "class_id"
)

// FeatureTable is an ordered mapping from stable row-identifier to feature row.
// Built once at adapter construction so lookups never rely on ambient join
// semantics.
type FeatureTable struct {
	Index   []string    `json:"index"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`

	pos map[string]int
}

// NewFeatureTable builds a feature table with its index lookup
func NewFeatureTable(index []string, columns []string, rows [][]float64) FeatureTable {
	pos := make(map[string]int, len(index))
	for i, label := range index {
		pos[label] = i
	}
	return FeatureTable{Index: index, Columns: columns, Rows: rows, pos: pos}
}

// Len returns the number of rows
func (ft FeatureTable) Len() int {
	return len(ft.Index)
}

// Lookup returns the feature row for an index label
func (ft FeatureTable) Lookup(label string) ([]float64, bool) {
	if ft.pos == nil {
		return nil, false
	}
	i, ok := ft.pos[label]
	if !ok {
		return nil, false
	}
	return ft.Rows[i], true
}

// Contains reports whether every given label is present in the table
func (ft FeatureTable) Contains(labels []string) bool {
	for _, label := range labels {
		if _, ok := ft.pos[label]; !ok {
			return false
		}
	}
	return true
}

// Select returns the sub-table for the given labels, in the given order.
// The second return is false if any label is missing.
func (ft FeatureTable) Select(labels []string) (FeatureTable, bool) {
	rows := make([][]float64, 0, len(labels))
	for _, label := range labels {
		row, ok := ft.Lookup(label)
		if !ok {
			return FeatureTable{}, false
		}
		rows = append(rows, row)
	}
	return NewFeatureTable(labels, ft.Columns, rows), true
}

// PropertyOutliers is the successful outcome of scanning one property
type PropertyOutliers struct {
	// Indices holds dataset index labels of all matched samples,
	// bottom outliers first then top, each group sorted ascending by value
	Indices    []string `json:"indices"`
	LowerLimit float64  `json:"lower_limit"`
	UpperLimit float64  `json:"upper_limit"`
}

// PropertyResult is the tagged per-property outcome: Outliers on success or
// Err with the reason the computation was skipped
type PropertyResult struct {
	Outliers *PropertyOutliers `json:"outliers,omitempty"`
	Err      string            `json:"error,omitempty"`
}

// IsErr reports whether the property could not be computed
func (r PropertyResult) IsErr() bool {
	return r.Err != ""
}

// OutlierSample identifies one extreme value selected for display
type OutlierSample struct {
	Value             float64 `json:"value"`
	SampleIndex       int     `json:"sample_index"`
	IndexLabel        string  `json:"index_label"`
	IndexInSample     int     `json:"index_in_sample"`      // position from the end of the sample's value list
	NumValuesInSample int     `json:"num_values_in_sample"` // size of the sample's value list
	Text              string  `json:"text"`                 // raw sample content, trimmed for display
}

// OutlierPlot is a rendering request: the scanner knows what to draw,
// the display collaborator knows how
type OutlierPlot struct {
	Property   string          `json:"property"`
	Values     []float64       `json:"values"`
	LowerLimit float64         `json:"lower_limit"`
	UpperLimit float64         `json:"upper_limit"`
	Showcase   []OutlierSample `json:"showcase"`
}

// NoOutlierEntry is one row of the grouped "no outliers" summary table
type NoOutlierEntry struct {
	Reason     string   `json:"reason"`
	Properties []string `json:"properties"`
}

// CheckResult is the persisted outcome of one check run
type CheckResult struct {
	ID        core.ResultID             `json:"id"`
	Check     string                    `json:"check"`
	Dataset   string                    `json:"dataset"`
	Results   map[string]PropertyResult `json:"results"`
	CreatedAt core.Timestamp            `json:"created_at"`
}

// IsMissing reports whether a label/property scalar stands for a null value
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}
