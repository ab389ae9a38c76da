// Package reporting renders estimation results and harvest summaries as CSV
// and Markdown artifacts.
package reporting

import (
	"time"

	"uniswap-econ-lab/internal/domain"
)

// Report is the rendered output of one event-study run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Title       string

	// Estimation
	ControlCohort int
	Effects       []domain.EventTimeEffect
	DroppedCells  []string // interaction cells absorbed by the fixed effects
	ShareRows     []ShareRow

	// Harvest (optional; present when the run was fed from a harvest)
	Harvest []HarvestRow
}

// ShareRow is one stage-1 cohort share.
type ShareRow struct {
	RelTime int
	Cohort  int
	Share   float64
}

// HarvestRow summarizes one day shard from the harvest manifest.
type HarvestRow struct {
	Day     string
	State   string
	Records int
	Pages   int
	Digest  string
}
