package dataset

import (
	"fmt"
	"math"
	"strconv"

	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/ports"
)

// Property is one named per-sample property column. Values holds one entry
// per sample: a float64 scalar or a []float64 list.
type Property struct {
	Name   string
	Type   tabular.PropertyType
	Values []any
}

// TableConfig describes an in-memory tabular dataset
type TableConfig struct {
	Name        string
	Index       []string // optional, defaults to positional labels
	IndexName   string
	DateName    string
	Texts       []string // optional raw per-sample content for display
	Features    []string
	CatFeatures []string
	FeatureRows [][]float64
	LabelName   string
	Labels      []float64 // NaN = missing label; nil = no label column
	LabelType   tabular.TaskType
	Properties  []Property
}

// Table is an in-memory implementation of the dataset collaborator interface
type Table struct {
	cfg        TableConfig
	numSamples int
	propByName map[string]*Property
}

var _ ports.Dataset = (*Table)(nil)

// NewTable validates the configuration and builds a Table
func NewTable(cfg TableConfig) (*Table, error) {
	n := len(cfg.Index)
	if n == 0 {
		n = len(cfg.FeatureRows)
	}
	if n == 0 {
		n = len(cfg.Labels)
	}
	if n == 0 {
		n = len(cfg.Texts)
	}
	if n == 0 && len(cfg.Properties) > 0 {
		n = len(cfg.Properties[0].Values)
	}
	if n == 0 {
		return nil, core.NewValueError("dataset has no samples")
	}

	if len(cfg.Index) == 0 {
		cfg.Index = make([]string, n)
		for i := range cfg.Index {
			cfg.Index[i] = strconv.Itoa(i)
		}
	}
	if len(cfg.Index) != n {
		return nil, core.NewValueError(fmt.Sprintf("index has %d labels for %d samples", len(cfg.Index), n))
	}
	if cfg.FeatureRows != nil && len(cfg.FeatureRows) != n {
		return nil, core.NewValueError(fmt.Sprintf("feature rows count %d does not match %d samples", len(cfg.FeatureRows), n))
	}
	for i, row := range cfg.FeatureRows {
		if len(row) != len(cfg.Features) {
			return nil, core.NewValueError(fmt.Sprintf("feature row %d has %d values for %d features", i, len(row), len(cfg.Features)))
		}
	}
	if cfg.Labels != nil && len(cfg.Labels) != n {
		return nil, core.NewValueError(fmt.Sprintf("labels count %d does not match %d samples", len(cfg.Labels), n))
	}
	if cfg.Texts != nil && len(cfg.Texts) != n {
		return nil, core.NewValueError(fmt.Sprintf("texts count %d does not match %d samples", len(cfg.Texts), n))
	}
	featureSet := make(map[string]bool, len(cfg.Features))
	for _, f := range cfg.Features {
		featureSet[f] = true
	}
	for _, cat := range cfg.CatFeatures {
		if !featureSet[cat] {
			return nil, core.NewValueError(fmt.Sprintf("categorical feature %q is not a feature column", cat))
		}
	}

	propByName := make(map[string]*Property, len(cfg.Properties))
	for i := range cfg.Properties {
		p := &cfg.Properties[i]
		if _, dup := propByName[p.Name]; dup {
			return nil, core.NewValueError(fmt.Sprintf("duplicate property %q", p.Name))
		}
		propByName[p.Name] = p
	}

	return &Table{cfg: cfg, numSamples: n, propByName: propByName}, nil
}

func (t *Table) Name() string       { return t.cfg.Name }
func (t *Table) NumSamples() int    { return t.numSamples }
func (t *Table) Index() []string    { return t.cfg.Index }
func (t *Table) IndexName() string  { return t.cfg.IndexName }
func (t *Table) DateName() string   { return t.cfg.DateName }
func (t *Table) HasLabel() bool     { return t.cfg.Labels != nil }
func (t *Table) LabelName() string  { return t.cfg.LabelName }
func (t *Table) Features() []string { return t.cfg.Features }

func (t *Table) SampleText(i int) string {
	if t.cfg.Texts == nil || i < 0 || i >= len(t.cfg.Texts) {
		return ""
	}
	return t.cfg.Texts[i]
}

func (t *Table) PropertyNames() []string {
	names := make([]string, len(t.cfg.Properties))
	for i, p := range t.cfg.Properties {
		names[i] = p.Name
	}
	return names
}

func (t *Table) PropertyType(name string) tabular.PropertyType {
	if p, ok := t.propByName[name]; ok {
		return p.Type
	}
	return ""
}

func (t *Table) PropertyValues(name string) []any {
	if p, ok := t.propByName[name]; ok {
		return p.Values
	}
	return nil
}

func (t *Table) Labels() []float64 {
	if t.cfg.Labels == nil {
		return nil
	}
	return t.cfg.Labels
}

func (t *Table) LabelType() tabular.TaskType {
	return t.cfg.LabelType
}

func (t *Table) CatFeatures() []string {
	return t.cfg.CatFeatures
}

func (t *Table) FeatureTable() tabular.FeatureTable {
	return tabular.NewFeatureTable(t.cfg.Index, t.cfg.Features, t.cfg.FeatureRows)
}

// ObservedLabelValues returns the non-missing label values
func (t *Table) ObservedLabelValues() []float64 {
	if t.cfg.Labels == nil {
		return nil
	}
	out := make([]float64, 0, len(t.cfg.Labels))
	for _, v := range t.cfg.Labels {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
