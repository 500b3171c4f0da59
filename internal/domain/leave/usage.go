package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

var halfDay = decimal.NewFromFloat(0.5)

// UsedDays sums approved annual and half-day leaves starting in year.
func UsedDays(leaves []LeaveRequest, year int, loc *time.Location) decimal.Decimal {
	used := decimal.Zero
	for _, req := range leaves {
		if req.Status != StatusApproved {
			continue
		}
		_, start, ok := ParseDate(req.StartDate, loc)
		if !ok || start.Year() != year {
			continue
		}
		switch {
		case req.LeaveType == TypeAnnual:
			days, ok := IntervalDays(Interval{StartDate: req.StartDate, EndDate: req.EndDate}, loc)
			if ok {
				used = used.Add(decimal.NewFromInt(int64(days)))
			}
		case req.LeaveType.IsHalfDay():
			used = used.Add(halfDay)
		}
	}
	return used
}

// BuildUsage combines the stored counters with the computed usage.
func BuildUsage(year, total, remaining int, used decimal.Decimal) Usage {
	balance := decimal.NewFromInt(int64(total)).Sub(used)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return Usage{
		Year:                 year,
		TotalAnnualLeave:     total,
		UsedAnnualLeave:      used,
		RemainingAnnualLeave: remaining,
		BalanceRemaining:     balance,
	}
}
