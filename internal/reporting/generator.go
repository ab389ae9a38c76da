package reporting

import (
	"sort"
	"time"

	"uniswap-econ-lab/internal/domain"
	"uniswap-econ-lab/internal/eventstudy"
)

// FromResult assembles a report from an estimation result.
func FromResult(title string, res *eventstudy.Result) *Report {
	return &Report{
		GeneratedAt:   time.Now().UTC(),
		Title:         title,
		ControlCohort: res.ControlCohort,
		Effects:       res.Effects,
		DroppedCells:  res.Dropped,
		ShareRows:     shareRows(res.Shares),
	}
}

// WithHarvest attaches a harvest manifest summary to the report, one row per
// day, in manifest order.
func (r *Report) WithHarvest(manifests []*domain.ShardManifest) *Report {
	rows := make([]HarvestRow, 0, len(manifests))
	for _, m := range manifests {
		rows = append(rows, HarvestRow{
			Day:     m.Day.UTC().Format("2006-01-02"),
			State:   m.State,
			Records: m.Records,
			Pages:   m.Pages,
			Digest:  m.Digest,
		})
	}
	r.Harvest = rows
	return r
}

// shareRows flattens the shares table, sorted by relative time then cohort.
func shareRows(shares eventstudy.SharesTable) []ShareRow {
	var rows []ShareRow
	for _, rt := range shares.RelTimes() {
		cohorts := make([]int, 0, len(shares[rt]))
		for c := range shares[rt] {
			cohorts = append(cohorts, c)
		}
		sort.Ints(cohorts)
		for _, c := range cohorts {
			rows = append(rows, ShareRow{RelTime: rt, Cohort: c, Share: shares[rt][c]})
		}
	}
	return rows
}
