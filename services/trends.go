package services

import "math"

// TrendPercent returns the percentage change from previous to current,
// rounded to the nearest integer. A zero baseline yields 100 when the
// current value is positive and 0 otherwise. The dashboard uses this one
// definition for earnings, bookings, and user-activity deltas.
func TrendPercent(current, previous float64) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round((current - previous) / previous * 100))
}
