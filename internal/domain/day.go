package domain

import (
	"fmt"
	"time"
)

// secondsPerDay is the length of a UTC day minus one second; the inclusive
// day-end bound 23:59:59 truncated to epoch seconds.
const secondsPerDay = 24*60*60 - 1

// DayWindow is one UTC calendar day expressed as inclusive epoch-second bounds.
type DayWindow struct {
	Date  time.Time // midnight UTC
	Start int64     // 00:00:00 UTC
	End   int64     // 23:59:59 UTC
}

// NewDayWindow builds the window for the UTC day containing t.
func NewDayWindow(t time.Time) DayWindow {
	midnight := time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
	start := midnight.Unix()
	return DayWindow{
		Date:  midnight,
		Start: start,
		End:   start + secondsPerDay,
	}
}

// Contains reports whether ts (epoch seconds) falls inside the window.
func (w DayWindow) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}

// String returns the calendar date as YYYY-MM-DD.
func (w DayWindow) String() string {
	return w.Date.Format("2006-01-02")
}

// DaysBetween expands an inclusive [start, end] date range into day windows,
// one per UTC day in ascending order.
func DaysBetween(start, end time.Time) ([]DayWindow, error) {
	s := NewDayWindow(start)
	e := NewDayWindow(end)
	if e.Date.Before(s.Date) {
		return nil, fmt.Errorf("end date %s before start date %s", e, s)
	}

	var days []DayWindow
	for d := s.Date; !d.After(e.Date); d = d.AddDate(0, 0, 1) {
		days = append(days, NewDayWindow(d))
	}
	return days, nil
}
