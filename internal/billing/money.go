package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// Epsilon absorbs float drift when comparing allocations, balances and totals.
	Epsilon = 0.005
	// AgingEpsilon is the smallest balance that still counts as outstanding for aging.
	AgingEpsilon = 0.01
)

// Round2 rounds a monetary amount to two decimals, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// AmountsEqual reports whether two amounts match within Epsilon.
func AmountsEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}

	return d <= Epsilon
}

// Day truncates t to its calendar day at midnight UTC. All entity dates are
// held in this form.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a Day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}

	return Day(t), nil
}

// FormatDay renders a Day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(time.DateOnly)
}

// DaysBetween returns the whole number of days from a to b, both truncated to
// their calendar day.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
