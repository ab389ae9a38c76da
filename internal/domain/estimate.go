package domain

// EventTimeEffect is one row of the interaction-weighted event-study output:
// the aggregated treatment effect at a single relative time, with its
// confidence bounds. The reference period (relative time -1) never appears.
type EventTimeEffect struct {
	RelTime   int
	Parameter float64
	Lower     float64
	Upper     float64
}
