package schedule

import (
	"time"
)

// Quiet reports whether now falls in one of the quiet hours (local clock).
func Quiet(now time.Time, quietHours []int) bool {
	h := now.Hour()
	for _, q := range quietHours {
		if q == h {
			return true
		}
	}
	return false
}

// NextWindow returns now when it is outside quiet hours, otherwise the start
// of the next hour that is not quiet, on now's wall clock.
func NextWindow(now time.Time, quietHours []int) time.Time {
	if !Quiet(now, quietHours) {
		return now
	}
	top := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	for i := 1; i <= 48; i++ { // search up to 2 days ahead
		cand := top.Add(time.Duration(i) * time.Hour)
		if !Quiet(cand, quietHours) {
			return cand
		}
	}
	// every hour is quiet
	return now.Add(15 * time.Minute)
}
