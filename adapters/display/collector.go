// Package display implements the rendering port with an in-memory collector.
// Collected items are served as structured JSON instead of drawn charts.
package display

import (
	"sync"

	"datacheck/domain/tabular"
	"datacheck/ports"
)

// Collector accumulates rendering requests from a scan. Safe for use from
// multiple goroutines.
type Collector struct {
	mu      sync.Mutex
	plots   []tabular.OutlierPlot
	summary []tabular.NoOutlierEntry
}

var _ ports.DisplayRenderer = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) PropertyOutliers(plot tabular.OutlierPlot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plots = append(c.plots, plot)
}

func (c *Collector) NoOutliersTable(entries []tabular.NoOutlierEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = append(c.summary, entries...)
}

// Plots returns the collected plotting requests in arrival order
func (c *Collector) Plots() []tabular.OutlierPlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]tabular.OutlierPlot, len(c.plots))
	copy(out, c.plots)
	return out
}

// Summary returns the grouped no-outlier entries
func (c *Collector) Summary() []tabular.NoOutlierEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]tabular.NoOutlierEntry, len(c.summary))
	copy(out, c.summary)
	return out
}
