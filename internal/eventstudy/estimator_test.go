package eventstudy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniswap-econ-lab/internal/domain"
)

func testConfig() Config {
	return Config{
		Outcome: "y",
		Event:   "event",
		Group:   "g",
		Cohort:  "cohort",
		RelTime: "r",
		Time:    "t",
	}
}

// panelRow is a convenience builder for hand-written panels.
type panelRow struct {
	g, t, cohort, r int
	y               float64
}

func buildPanel(t *testing.T, rows []panelRow) *Panel {
	t.Helper()

	n := len(rows)
	g := make([]float64, n)
	tt := make([]float64, n)
	cohort := make([]float64, n)
	r := make([]float64, n)
	y := make([]float64, n)
	event := make([]float64, n)

	for i, row := range rows {
		g[i] = float64(row.g)
		tt[i] = float64(row.t)
		cohort[i] = float64(row.cohort)
		r[i] = float64(row.r)
		y[i] = row.y
		if row.r >= 0 && row.cohort != NeverTreatedCohort {
			event[i] = 1
		}
	}

	p := NewPanel()
	require.NoError(t, p.AddColumn("g", g))
	require.NoError(t, p.AddColumn("t", tt))
	require.NoError(t, p.AddColumn("cohort", cohort))
	require.NoError(t, p.AddColumn("r", r))
	require.NoError(t, p.AddColumn("y", y))
	require.NoError(t, p.AddColumn("event", event))
	return p
}

// twoCohortRows builds the canonical two-unit panel: unit 1 treated at t=2,
// unit 2 treated at t=4, four periods, y = 1 + 2*1{r>=0}.
func twoCohortRows() []panelRow {
	var rows []panelRow
	for _, unit := range []struct{ g, cohort int }{{1, 2}, {2, 4}} {
		for t := 0; t <= 3; t++ {
			r := t - unit.cohort
			y := 1.0
			if r >= 0 {
				y = 3.0
			}
			rows = append(rows, panelRow{g: unit.g, t: t, cohort: unit.cohort, r: r, y: y})
		}
	}
	return rows
}

func effectsByRelTime(effects []domain.EventTimeEffect) map[int]domain.EventTimeEffect {
	out := make(map[int]domain.EventTimeEffect, len(effects))
	for _, e := range effects {
		out[e.RelTime] = e
	}
	return out
}

func TestEstimate_TwoCohortIdentity(t *testing.T) {
	// Without a never-treated unit the latest-treated cohort is the control,
	// so only the early cohort's cells enter the regression.
	p := buildPanel(t, twoCohortRows())

	res, err := Estimate(p, testConfig())
	require.NoError(t, err)
	assert.Equal(t, 4, res.ControlCohort, "latest-treated cohort is the fallback control")

	got := effectsByRelTime(res.Effects)
	require.Len(t, got, 3)
	assert.InDelta(t, 0.0, got[-2].Parameter, 1e-9)
	assert.InDelta(t, 2.0, got[0].Parameter, 1e-9)
	assert.InDelta(t, 2.0, got[1].Parameter, 1e-9)

	_, hasReference := got[-1]
	assert.False(t, hasReference, "reference period never appears in the output")
}

func TestEstimate_NeverTreatedControlUnchanged(t *testing.T) {
	rows := twoCohortRows()
	for tt := 0; tt <= 3; tt++ {
		rows = append(rows, panelRow{g: 3, t: tt, cohort: -1, r: -1, y: 1})
	}
	p := buildPanel(t, rows)

	res, err := Estimate(p, testConfig())
	require.NoError(t, err)
	assert.Equal(t, NeverTreatedCohort, res.ControlCohort)

	got := effectsByRelTime(res.Effects)
	assert.InDelta(t, 0.0, got[-2].Parameter, 1e-9)
	assert.InDelta(t, 2.0, got[0].Parameter, 1e-9)
	assert.InDelta(t, 2.0, got[1].Parameter, 1e-9)
}

func TestEstimate_UniformSharesEqualMeanOfCATTs(t *testing.T) {
	// Two treated cohorts with different effect sizes plus a never-treated
	// unit over six periods. At r=0 both cohorts contribute a cell with
	// share 1/2, so the IW estimate is the simple mean of the two CATTs.
	var rows []panelRow
	units := []struct {
		g, cohort int
		effect    float64
	}{
		{1, 2, 2}, {2, 4, 4}, {3, -1, 0},
	}
	for _, u := range units {
		for tt := 0; tt <= 5; tt++ {
			r := -1
			y := 1.0
			if u.cohort != -1 {
				r = tt - u.cohort
				if r >= 0 {
					y = 1 + u.effect
				}
			}
			rows = append(rows, panelRow{g: u.g, t: tt, cohort: u.cohort, r: r, y: y})
		}
	}
	p := buildPanel(t, rows)

	res, err := Estimate(p, testConfig())
	require.NoError(t, err)
	assert.Empty(t, res.Dropped)

	got := effectsByRelTime(res.Effects)
	assert.InDelta(t, 3.0, got[0].Parameter, 1e-9, "mean of CATTs 2 and 4")
	assert.InDelta(t, 3.0, got[1].Parameter, 1e-9)
	assert.InDelta(t, 0.0, got[-2].Parameter, 1e-9, "no pre-trend")

	assert.InDelta(t, 0.5, res.Shares.Share(0, 2), 1e-12)
	assert.InDelta(t, 0.5, res.Shares.Share(0, 4), 1e-12)
}

func TestEstimate_SingleTreatedCohortSharesAreOne(t *testing.T) {
	var rows []panelRow
	for tt := 0; tt <= 3; tt++ {
		r := tt - 2
		y := 1.0
		if r >= 0 {
			y = 3.0
		}
		rows = append(rows, panelRow{g: 1, t: tt, cohort: 2, r: r, y: y})
		rows = append(rows, panelRow{g: 2, t: tt, cohort: -1, r: -1, y: 1})
	}
	p := buildPanel(t, rows)

	res, err := Estimate(p, testConfig())
	require.NoError(t, err)

	for _, r := range res.Shares.RelTimes() {
		assert.InDelta(t, 1.0, res.Shares.Share(r, 2), 1e-12)
	}

	got := effectsByRelTime(res.Effects)
	assert.InDelta(t, 2.0, got[0].Parameter, 1e-9, "IW equals the CATT directly")
}

func TestEstimate_AbsorbedCellsReportedNotFatal(t *testing.T) {
	// Forcing a control cohort absent from the panel makes every cohort
	// treated. In a two-unit panel the interaction space cannot hold all six
	// cells, so some are absorbed; they must be reported, not fatal.
	p := buildPanel(t, twoCohortRows())

	cfg := testConfig()
	ctrl := -1
	cfg.ControlCohort = &ctrl

	res, err := Estimate(p, cfg)
	require.NoError(t, err)
	assert.Equal(t, -1, res.ControlCohort)
	assert.NotEmpty(t, res.Dropped, "absorbed cells are enumerated")

	for _, e := range res.Effects {
		assert.NotEqual(t, ReferenceRelTime, e.RelTime)
	}
}

func TestEstimate_CallerPanelNotMutated(t *testing.T) {
	p := buildPanel(t, twoCohortRows())
	before := p.Clone()

	_, err := Estimate(p, testConfig())
	require.NoError(t, err)

	for _, name := range before.Columns() {
		assert.Equal(t, before.Column(name), p.Column(name), "column %s changed", name)
	}
}

func TestEstimate_ConfidenceBoundsBracketParameter(t *testing.T) {
	// Add idiosyncratic noise so the fit is not saturated and errors are
	// strictly positive.
	var rows []panelRow
	noise := []float64{0.1, -0.2, 0.05, -0.1, 0.2, -0.05, 0.15, -0.15}
	i := 0
	for _, unit := range []struct{ g, cohort int }{{1, 2}, {2, -1}, {3, 2}, {4, -1}} {
		for tt := 0; tt <= 3; tt++ {
			r := -1
			y := 1.0
			if unit.cohort != -1 {
				r = tt - unit.cohort
				if r >= 0 {
					y = 3.0
				}
			}
			y += noise[i%len(noise)]
			i++
			rows = append(rows, panelRow{g: unit.g, t: tt, cohort: unit.cohort, r: r, y: y})
		}
	}
	p := buildPanel(t, rows)

	res, err := Estimate(p, testConfig())
	require.NoError(t, err)

	for _, e := range res.Effects {
		assert.LessOrEqual(t, e.Lower, e.Parameter, "r=%d", e.RelTime)
		assert.GreaterOrEqual(t, e.Upper, e.Parameter, "r=%d", e.RelTime)
	}
}

func TestEstimate_NonIntegerRelTimeRejected(t *testing.T) {
	p := buildPanel(t, twoCohortRows())
	r := p.Column("r")
	r[0] = 0.5

	_, err := Estimate(p, testConfig())
	assert.True(t, errors.Is(err, ErrNonIntegerRelTime))
}

func TestEstimate_MissingColumnRejected(t *testing.T) {
	p := buildPanel(t, twoCohortRows())

	cfg := testConfig()
	cfg.Covariates = []string{"liquidity"}

	_, err := Estimate(p, cfg)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestEstimate_UnbalancedPanelRejected(t *testing.T) {
	rows := twoCohortRows()
	rows = rows[:len(rows)-1] // drop the last observation of unit 2
	p := buildPanel(t, rows)

	cfg := testConfig()
	cfg.BalanceCheck = true

	_, err := Estimate(p, cfg)
	assert.True(t, errors.Is(err, ErrUnbalancedPanel))
}

func TestEstimate_DuplicateObservationRejected(t *testing.T) {
	rows := twoCohortRows()
	rows = append(rows, rows[0])
	p := buildPanel(t, rows)

	cfg := testConfig()
	cfg.BalanceCheck = true

	_, err := Estimate(p, cfg)
	assert.True(t, errors.Is(err, ErrUnbalancedPanel))
}

func TestEstimate_BalancedPanelPasses(t *testing.T) {
	p := buildPanel(t, twoCohortRows())

	cfg := testConfig()
	cfg.BalanceCheck = true

	_, err := Estimate(p, cfg)
	assert.NoError(t, err)
}

func TestEstimate_EmptyPanelRejected(t *testing.T) {
	_, err := Estimate(NewPanel(), testConfig())
	assert.True(t, errors.Is(err, ErrEmptyPanel))

	_, err = Estimate(nil, testConfig())
	assert.True(t, errors.Is(err, ErrEmptyPanel))
}

func TestEstimate_NoTreatedCohortRejected(t *testing.T) {
	var rows []panelRow
	for tt := 0; tt <= 3; tt++ {
		rows = append(rows, panelRow{g: 1, t: tt, cohort: 5, r: tt - 5, y: 1})
	}
	p := buildPanel(t, rows)

	cfg := testConfig()
	ctrl := 5
	cfg.ControlCohort = &ctrl

	_, err := Estimate(p, cfg)
	assert.True(t, errors.Is(err, ErrNoTreatedCohort))
}

func TestAggregate_RenormalizationLaw(t *testing.T) {
	// Two surviving cells at r=0 whose shares sum to 0.5 because a third was
	// absorbed: the weighted sum is scaled back up by the summed share.
	fit := &olsFit{
		coef: []float64{1, 3},
		se:   []float64{0, 0},
		dof:  10,
	}
	kept := []interactionCell{
		{relTime: 0, cohort: 2},
		{relTime: 0, cohort: 4},
	}
	shares := SharesTable{0: {2: 0.3, 4: 0.2}}

	effects := aggregate(fit, kept, shares, DefaultAlpha)
	require.Len(t, effects, 1)
	assert.InDelta(t, (0.3*1+0.2*3)/0.5, effects[0].Parameter, 1e-12)
}

func TestAggregate_FullSharesUnchanged(t *testing.T) {
	fit := &olsFit{
		coef: []float64{1, 3},
		se:   []float64{0, 0},
		dof:  10,
	}
	kept := []interactionCell{
		{relTime: 0, cohort: 2},
		{relTime: 0, cohort: 4},
	}
	shares := SharesTable{0: {2: 0.5, 4: 0.5}}

	effects := aggregate(fit, kept, shares, DefaultAlpha)
	require.Len(t, effects, 1)
	assert.InDelta(t, 2.0, effects[0].Parameter, 1e-12, "summed share of one leaves the estimate alone")
}
