package eventstudy

import "sort"

// SharesTable maps relative time to cohort to the cohort's empirical share
// within that relative-time bin, computed over the non-control subpanel.
type SharesTable map[int]map[int]float64

// Share returns share(c, r), zero when the cell is absent.
func (s SharesTable) Share(relTime, cohort int) float64 {
	return s[relTime][cohort]
}

// RelTimes returns the relative times present, ascending.
func (s SharesTable) RelTimes() []int {
	out := make([]int, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// cohortShares regresses each cohort indicator on relative-time dummies with
// no intercept over the non-control rows. With saturated dummies and no
// intercept the coefficients are exactly the within-bin indicator means, so
// they are computed directly: share(c, r) = N_{c,r} / N_r.
func cohortShares(cohorts, relTimes []int, control int) SharesTable {
	binTotal := make(map[int]int)
	binCohort := make(map[int]map[int]int)

	for i := range cohorts {
		if cohorts[i] == control {
			continue
		}
		r := relTimes[i]
		binTotal[r]++
		if binCohort[r] == nil {
			binCohort[r] = make(map[int]int)
		}
		binCohort[r][cohorts[i]]++
	}

	shares := make(SharesTable, len(binTotal))
	for r, total := range binTotal {
		shares[r] = make(map[int]float64, len(binCohort[r]))
		for c, count := range binCohort[r] {
			shares[r][c] = float64(count) / float64(total)
		}
	}
	return shares
}
