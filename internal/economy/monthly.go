package economy

import (
	"time"

	"github.com/impify/impify/internal/calendar"
)

// NeedsMonthlyReset reports whether econ's allotment predates monthStart.
func NeedsMonthlyReset(econ UserEconomy, monthStart time.Time) bool {
	if econ.MonthlyResetDate == nil {
		return true
	}
	return calendar.FirstOfMonth(*econ.MonthlyResetDate).Before(calendar.FirstOfMonth(monthStart))
}

// ApplyMonthlyReset refreshes the monthly allotment when a new month has
// started. A row that has never been reset receives a one-time double
// allotment, also credited to the spendable balance; the bonus is returned.
func ApplyMonthlyReset(econ *UserEconomy, allotment int, monthStart time.Time) (bonus int, applied bool) {
	if !NeedsMonthlyReset(*econ, monthStart) {
		return 0, false
	}

	start := calendar.FirstOfMonth(monthStart)
	if econ.MonthlyResetDate == nil {
		bonus = 2 * allotment
		econ.MonthlyTokens = bonus
		econ.Tokens += bonus
	} else {
		econ.MonthlyTokens = allotment
	}
	econ.MonthlyResetDate = &start
	return bonus, true
}
