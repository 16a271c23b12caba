package ports

import (
	"datacheck/domain/tabular"
)

// DisplayRenderer consumes rendering requests produced by checks. The scanner
// decides what to draw; rendering (plots, HTML) happens behind this port.
type DisplayRenderer interface {
	// PropertyOutliers receives one plotting request per property with outliers
	PropertyOutliers(plot tabular.OutlierPlot)

	// NoOutliersTable receives the grouped summary of properties that produced
	// no plot, with the reason per group. Emitted once per scan.
	NoOutliersTable(entries []tabular.NoOutlierEntry)
}
