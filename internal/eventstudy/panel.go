// Package eventstudy implements the interaction-weighted dynamic
// treatment-effect estimator of Sun and Abraham (2021): cohort shares by
// relative time, a cohort-by-relative-time interacted two-way fixed-effects
// regression, and share-weighted aggregation into event-time coefficients.
package eventstudy

import (
	"fmt"
	"sort"
)

// Panel is a tidy long-format panel stored column-wise. One row is one
// (group, calendar time) observation.
type Panel struct {
	n    int
	cols map[string][]float64
}

// NewPanel creates an empty panel.
func NewPanel() *Panel {
	return &Panel{cols: make(map[string][]float64)}
}

// AddColumn attaches a named column. The first column fixes the row count;
// later columns must match it.
func (p *Panel) AddColumn(name string, values []float64) error {
	if name == "" {
		return fmt.Errorf("add column: empty name")
	}
	if len(p.cols) == 0 {
		p.n = len(values)
	} else if len(values) != p.n {
		return fmt.Errorf("add column %q: %w: got %d rows, panel has %d",
			name, ErrColumnLength, len(values), p.n)
	}
	p.cols[name] = values
	return nil
}

// Column returns the named column, or nil when absent.
func (p *Panel) Column(name string) []float64 {
	return p.cols[name]
}

// HasColumn reports whether the panel holds the named column.
func (p *Panel) HasColumn(name string) bool {
	_, ok := p.cols[name]
	return ok
}

// Len returns the number of rows.
func (p *Panel) Len() int {
	return p.n
}

// Columns returns the column names in sorted order.
func (p *Panel) Columns() []string {
	names := make([]string, 0, len(p.cols))
	for name := range p.cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone deep-copies the panel. The estimator works on a clone so the
// caller's panel is invariant across the call.
func (p *Panel) Clone() *Panel {
	out := &Panel{n: p.n, cols: make(map[string][]float64, len(p.cols))}
	for name, vals := range p.cols {
		cp := make([]float64, len(vals))
		copy(cp, vals)
		out.cols[name] = cp
	}
	return out
}

// intColumn converts a column to ints, failing when any value is fractional.
func intColumn(vals []float64) ([]int, bool) {
	out := make([]int, len(vals))
	for i, v := range vals {
		iv := int(v)
		if float64(iv) != v {
			return nil, false
		}
		out[i] = iv
	}
	return out, true
}
