package eventstudy

import (
	"fmt"
	"sort"

	"uniswap-econ-lab/internal/domain"
)

// DefaultAlpha is the two-sided significance level for confidence bounds.
const DefaultAlpha = 0.05

// ReferenceRelTime is the relative-time level dropped from the design matrix.
// The period immediately before treatment onset is the conventional baseline.
const ReferenceRelTime = -1

// NeverTreatedCohort is the cohort label for units never treated.
const NeverTreatedCohort = -1

// Config names the panel columns and controls estimator behavior.
type Config struct {
	Outcome string
	Event   string // treatment indicator; consulted by the balance check only
	Group   string
	Cohort  string
	RelTime string
	Time    string

	Covariates []string

	VCov         VCovType
	BalanceCheck bool

	// ControlCohort overrides control-cohort selection. When nil, the
	// never-treated cohort (-1) is used if present, else the latest-treated
	// cohort.
	ControlCohort *int

	// Tolerant keeps going when the interacted regression loses every
	// coefficient to rank deficiency, returning an empty effects table
	// instead of an error.
	Tolerant bool

	Alpha float64
}

// Result is the estimator output.
type Result struct {
	// Effects holds one row per non-reference relative time, ascending.
	Effects []domain.EventTimeEffect

	// Dropped lists interaction cells removed as collinear with the absorbed
	// entity/time effects, in design-matrix order.
	Dropped []string

	ControlCohort int
	Shares        SharesTable
}

// Estimate runs the three-stage interaction-weighted event-study procedure.
// The caller's panel is never mutated.
func Estimate(p *Panel, cfg Config) (*Result, error) {
	if p == nil || p.Len() == 0 {
		return nil, ErrEmptyPanel
	}
	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		cfg.Alpha = DefaultAlpha
	}
	if cfg.VCov == "" {
		cfg.VCov = VCovRobust
	}

	if err := checkColumns(p, cfg); err != nil {
		return nil, err
	}

	work := p.Clone()

	relTimes, ok := intColumn(work.Column(cfg.RelTime))
	if !ok {
		return nil, fmt.Errorf("column %q: %w", cfg.RelTime, ErrNonIntegerRelTime)
	}
	cohorts, err := labelColumn(work, cfg.Cohort)
	if err != nil {
		return nil, err
	}
	groups, err := labelColumn(work, cfg.Group)
	if err != nil {
		return nil, err
	}
	times, err := labelColumn(work, cfg.Time)
	if err != nil {
		return nil, err
	}

	if cfg.BalanceCheck {
		if err := checkBalance(groups, times); err != nil {
			return nil, err
		}
	}

	control := pickControlCohort(cohorts, cfg.ControlCohort)

	treated := treatedCohorts(cohorts, control)
	if len(treated) == 0 {
		return nil, ErrNoTreatedCohort
	}

	// Stage 1.
	shares := cohortShares(cohorts, relTimes, control)

	// Stage 2.
	fit, kept, dropped, err := fitInteracted(work, cfg, relTimes, cohorts, groups, times, control, treated)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Dropped:       dropped,
		ControlCohort: control,
		Shares:        shares,
	}

	if fit == nil {
		// Every interaction was absorbed; tolerant callers get the empty table.
		if !cfg.Tolerant {
			return nil, fmt.Errorf("interacted regression: %w: all cells absorbed", ErrRankDeficient)
		}
		return res, nil
	}

	// Stage 3.
	res.Effects = aggregate(fit, kept, shares, cfg.Alpha)
	return res, nil
}

// checkColumns rejects the invocation before fitting when any named column
// is absent.
func checkColumns(p *Panel, cfg Config) error {
	required := []string{cfg.Outcome, cfg.Group, cfg.Cohort, cfg.RelTime, cfg.Time}
	if cfg.BalanceCheck {
		required = append(required, cfg.Event)
	}
	required = append(required, cfg.Covariates...)

	for _, name := range required {
		if name == "" {
			return fmt.Errorf("%w: empty column name in config", ErrMissingColumn)
		}
		if !p.HasColumn(name) {
			return fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	return nil
}

// labelColumn reads an integer-valued categorical column.
func labelColumn(p *Panel, name string) ([]int, error) {
	vals, ok := intColumn(p.Column(name))
	if !ok {
		return nil, fmt.Errorf("column %q must be integer-valued", name)
	}
	return vals, nil
}

// checkBalance verifies (group, time) pairs are unique and every group
// observes the identical set of times.
func checkBalance(groups, times []int) error {
	type cell struct{ g, t int }
	seen := make(map[cell]struct{}, len(groups))
	perGroup := make(map[int]map[int]struct{})

	for i := range groups {
		c := cell{groups[i], times[i]}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate observation for group %d at time %d",
				ErrUnbalancedPanel, c.g, c.t)
		}
		seen[c] = struct{}{}

		if perGroup[c.g] == nil {
			perGroup[c.g] = make(map[int]struct{})
		}
		perGroup[c.g][c.t] = struct{}{}
	}

	var want int
	for _, ts := range perGroup {
		want = len(ts)
		break
	}
	for g, ts := range perGroup {
		if len(ts) != want {
			return fmt.Errorf("%w: group %d observes %d periods, expected %d",
				ErrUnbalancedPanel, g, len(ts), want)
		}
	}
	return nil
}

// pickControlCohort applies the override, else the never-treated cohort if
// present, else the latest-treated cohort.
func pickControlCohort(cohorts []int, override *int) int {
	if override != nil {
		return *override
	}

	maxCohort := cohorts[0]
	hasNever := false
	for _, c := range cohorts {
		if c == NeverTreatedCohort {
			hasNever = true
		}
		if c > maxCohort {
			maxCohort = c
		}
	}
	if hasNever {
		return NeverTreatedCohort
	}
	return maxCohort
}

// treatedCohorts returns the distinct non-control cohorts, ascending.
func treatedCohorts(cohorts []int, control int) []int {
	set := make(map[int]struct{})
	for _, c := range cohorts {
		if c != control {
			set[c] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// interactionCell identifies one cohort-by-relative-time regressor.
type interactionCell struct {
	relTime int
	cohort  int
}

func (c interactionCell) name() string {
	return fmt.Sprintf("cohort=%d:reltime=%d", c.cohort, c.relTime)
}

// fitInteracted builds the interacted design matrix, absorbs the two-way
// fixed effects, drops collinear cells, and fits the regression. Returns a
// nil fit when no regressor survives absorption.
func fitInteracted(
	work *Panel,
	cfg Config,
	relTimes, cohorts, groups, times []int,
	control int,
	treated []int,
) (*olsFit, []interactionCell, []string, error) {
	n := work.Len()

	// Enumerate populated cells, skipping the reference level and the
	// control cohort, sorted for deterministic column order.
	counts := make(map[interactionCell]int)
	for i := 0; i < n; i++ {
		if cohorts[i] == control || relTimes[i] == ReferenceRelTime {
			continue
		}
		counts[interactionCell{relTime: relTimes[i], cohort: cohorts[i]}]++
	}
	cells := make([]interactionCell, 0, len(counts))
	for c := range counts {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].relTime != cells[j].relTime {
			return cells[i].relTime < cells[j].relTime
		}
		return cells[i].cohort < cells[j].cohort
	})

	var (
		cols  [][]float64
		names []string
	)
	for _, cell := range cells {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			if cohorts[i] == cell.cohort && relTimes[i] == cell.relTime {
				col[i] = 1
			}
		}
		cols = append(cols, col)
		names = append(names, cell.name())
	}
	for _, cov := range cfg.Covariates {
		col := make([]float64, n)
		copy(col, work.Column(cov))
		cols = append(cols, col)
		names = append(names, cov)
	}

	y := make([]float64, n)
	copy(y, work.Column(cfg.Outcome))

	// Absorb entity and time effects from outcome and regressors alike.
	all := append([][]float64{y}, cols...)
	absorbTwoWay(all, groups, times)

	x, keptNames, droppedNames := dropCollinear(cols, names)
	if x == nil {
		return nil, nil, droppedNames, nil
	}

	nGroups := len(bucketIndex(groups))
	nTimes := len(bucketIndex(times))
	dofAdjust := nGroups + nTimes - 1

	fit, err := fitOLS(x, y, cfg.VCov, dofAdjust)
	if err != nil {
		return nil, nil, droppedNames, fmt.Errorf("interacted regression: %w", err)
	}

	// Map surviving columns back to their cells; covariates carry no cell.
	cellByName := make(map[string]interactionCell, len(cells))
	for _, c := range cells {
		cellByName[c.name()] = c
	}
	kept := make([]interactionCell, len(keptNames))
	for j, name := range keptNames {
		if c, ok := cellByName[name]; ok {
			kept[j] = c
		} else {
			kept[j] = interactionCell{relTime: ReferenceRelTime} // covariate marker
		}
	}

	return fit, kept, droppedNames, nil
}

// aggregate folds cohort-level coefficients into event-time rows. Each cell
// contributes its coefficient and confidence bounds weighted by share(c, r);
// when the summed share at r falls below one because cells were absorbed,
// the three columns are renormalized by that sum.
func aggregate(fit *olsFit, kept []interactionCell, shares SharesTable, alpha float64) []domain.EventTimeEffect {
	tCrit := tCritical(alpha, fit.dof)

	type accum struct {
		param, lower, upper, shareSum float64
	}
	byRelTime := make(map[int]*accum)

	for j, cell := range kept {
		if cell.relTime == ReferenceRelTime {
			continue // covariate column
		}
		share := shares.Share(cell.relTime, cell.cohort)
		if share == 0 {
			continue
		}

		beta := fit.coef[j]
		half := tCrit * fit.se[j]

		a := byRelTime[cell.relTime]
		if a == nil {
			a = &accum{}
			byRelTime[cell.relTime] = a
		}
		a.param += share * beta
		a.lower += share * (beta - half)
		a.upper += share * (beta + half)
		a.shareSum += share
	}

	rts := make([]int, 0, len(byRelTime))
	for r := range byRelTime {
		rts = append(rts, r)
	}
	sort.Ints(rts)

	out := make([]domain.EventTimeEffect, 0, len(rts))
	for _, r := range rts {
		a := byRelTime[r]
		param, lower, upper := a.param, a.lower, a.upper
		if a.shareSum > 0 && a.shareSum < 1 {
			param /= a.shareSum
			lower /= a.shareSum
			upper /= a.shareSum
		}
		out = append(out, domain.EventTimeEffect{
			RelTime:   r,
			Parameter: param,
			Lower:     lower,
			Upper:     upper,
		})
	}
	return out
}
