package models

// Metric is a canonical tracked box-score metric name.
type Metric string

const (
	Points   Metric = "points"
	Rebounds Metric = "rebounds"
	Assists  Metric = "assists"
	Steals   Metric = "steals"
	Blocks   Metric = "blocks"
)

// Metrics lists the tracked metrics in canonical order.
var Metrics = []Metric{Points, Rebounds, Assists, Steals, Blocks}

// ProviderColumns maps canonical metric names to the column names the
// stats provider uses in its tabular result sets.
var ProviderColumns = map[Metric]string{
	Points:   "PTS",
	Rebounds: "REB",
	Assists:  "AST",
	Steals:   "STL",
	Blocks:   "BLK",
}

// Column returns the provider column name for a metric.
func (m Metric) Column() string {
	return ProviderColumns[m]
}

// IsTracked reports whether name is one of the canonical metrics.
func IsTracked(name string) bool {
	_, ok := ProviderColumns[Metric(name)]
	return ok
}

// Totals holds one integer value per tracked metric.
type Totals map[Metric]int

// Complete reports whether every tracked metric is present.
func (t Totals) Complete() bool {
	for _, m := range Metrics {
		if _, ok := t[m]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the totals.
func (t Totals) Clone() Totals {
	out := make(Totals, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Add returns the metric-wise sum of t and other.
func (t Totals) Add(other Totals) Totals {
	out := t.Clone()
	for k, v := range other {
		out[k] += v
	}
	return out
}

// ZeroTotals returns a totals map with every tracked metric set to 0.
func ZeroTotals() Totals {
	out := make(Totals, len(Metrics))
	for _, m := range Metrics {
		out[m] = 0
	}
	return out
}
