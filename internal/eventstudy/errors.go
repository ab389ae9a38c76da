package eventstudy

import "errors"

// Contract errors. All are fatal for the invocation; rank problems inside the
// interacted regression are reported through Result.Dropped instead.
var (
	ErrEmptyPanel        = errors.New("panel has no rows")
	ErrMissingColumn     = errors.New("panel column missing")
	ErrColumnLength      = errors.New("column length does not match panel")
	ErrNonIntegerRelTime = errors.New("relative time must be integer-valued")
	ErrUnbalancedPanel   = errors.New("panel not balanced on (group, time)")
	ErrNoTreatedCohort   = errors.New("no treated cohort after excluding the control")
	ErrRankDeficient     = errors.New("design matrix is rank deficient")
)
