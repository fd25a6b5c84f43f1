package ordering

import (
	"time"

	"pharmacy_admin/internal/models"
)

// EstimateNextDelivery adds the frequency's cadence to base. Unrecognized
// frequencies fall back to one month and report ok == false so callers can
// surface the bad value. The server's date replaces this estimate once an
// order has been placed.
func EstimateNextDelivery(freq models.Frequency, base time.Time) (next time.Time, ok bool) {
	switch freq {
	case models.FrequencyWeekly:
		return base.AddDate(0, 0, 7), true
	case models.FrequencyBiWeekly:
		return base.AddDate(0, 0, 14), true
	case models.FrequencyMonthly:
		return AddMonths(base, 1), true
	case models.FrequencyQuarterly:
		return AddMonths(base, 3), true
	}
	return AddMonths(base, 1), false
}

// AddMonths adds n calendar months, clamping the day to the end of the
// target month (Jan 31 + 1 month is the last day of February).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// EstimateBase is the last delivery date, or the creation date when the
// subscription has never been delivered.
func EstimateBase(sub *models.Subscription) time.Time {
	if last, ok := sub.LastDelivery(); ok {
		return last
	}
	return sub.UpstreamCreatedAt
}
