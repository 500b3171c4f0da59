package leave

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUsedDays(t *testing.T) {
	leaves := []LeaveRequest{
		{LeaveType: TypeAnnual, Status: StatusApproved, StartDate: "2025-02-03", EndDate: "2025-02-04"},
		{LeaveType: TypeHalfMorning, Status: StatusApproved, StartDate: "2025-03-03", EndDate: "2025-03-03"},
		{LeaveType: TypeHalfEvening, Status: StatusApproved, StartDate: "2025-03-05", EndDate: "2025-03-05"},
		{LeaveType: TypeHalfEvening, Status: StatusPending, StartDate: "2025-03-06", EndDate: "2025-03-06"},
		{LeaveType: TypeSick, Status: StatusApproved, StartDate: "2025-03-07", EndDate: "2025-03-07"},
		{LeaveType: TypeAnnual, Status: StatusApproved, StartDate: "2024-12-30", EndDate: "2024-12-31"},
	}

	used := UsedDays(leaves, 2025, time.UTC)
	assert.True(t, used.Equal(decimal.NewFromInt(3)), used.String())
}

func TestBuildUsageFloorsBalance(t *testing.T) {
	u := BuildUsage(2025, 6, 0, decimal.NewFromFloat(7.5))
	assert.True(t, u.BalanceRemaining.IsZero())
	assert.Equal(t, 6, u.TotalAnnualLeave)

	u = BuildUsage(2025, 6, 4, decimal.NewFromFloat(1.5))
	assert.Equal(t, "4.5", u.BalanceRemaining.String())
}
