package leave

import "time"

// Policy holds the limits applied to annual-leave requests.
type Policy struct {
	AdvanceNotice          time.Duration
	MaxConsecutivePerMonth int
	AnnualQuota            int
}

func DefaultPolicy() Policy {
	return Policy{
		AdvanceNotice:          48 * time.Hour,
		MaxConsecutivePerMonth: 2,
		AnnualQuota:            6,
	}
}

// Request is the evaluator input. Dates are raw client strings.
type Request struct {
	EmployeeID string
	LeaveType  LeaveType
	StartDate  string
	EndDate    string
}

const (
	ReasonNone          = ""
	ReasonInvalidDates  = "invalid_dates"
	ReasonAdvanceNotice = "advance_notice"
	ReasonMonthlyCap    = "monthly_cap"
	ReasonAnnualQuota   = "annual_quota"
)

// Decision is the evaluated type plus the first check that failed, if any.
type Decision struct {
	LeaveType LeaveType
	Reason    string
}

func (d Decision) Downgraded() bool {
	return d.Reason != ReasonNone
}

type Evaluator struct {
	Policy   Policy
	Location *time.Location
}

func NewEvaluator(policy Policy, loc *time.Location) Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return Evaluator{Policy: policy, Location: loc}
}

// Evaluate returns the type to record for req. Only annual leave can be
// downgraded, and only to unpaid leave. It never fails.
func (e Evaluator) Evaluate(req Request, prior []Interval, now time.Time) LeaveType {
	return e.Decide(req, prior, now).LeaveType
}

// Decide runs the advance-notice, monthly-cap and annual-quota checks in
// order and stops at the first failure. prior holds the employee's approved
// annual-leave intervals; only those starting in the request's year count.
func (e Evaluator) Decide(req Request, prior []Interval, now time.Time) Decision {
	if req.LeaveType != TypeAnnual {
		return Decision{LeaveType: req.LeaveType}
	}
	downgrade := func(reason string) Decision {
		return Decision{LeaveType: TypeUnpaid, Reason: reason}
	}

	startAt, start, okStart := ParseDate(req.StartDate, e.Location)
	_, end, okEnd := ParseDate(req.EndDate, e.Location)
	if !okStart || !okEnd || start.After(end) {
		return downgrade(ReasonInvalidDates)
	}
	if startAt.Before(now.Add(e.Policy.AdvanceNotice)) {
		return downgrade(ReasonAdvanceNotice)
	}

	for cursor := start; !cursor.After(end); {
		segmentEnd := lastDayOfMonth(cursor)
		if end.Before(segmentEnd) {
			segmentEnd = end
		}
		if InclusiveDays(cursor, segmentEnd) > e.Policy.MaxConsecutivePerMonth {
			return downgrade(ReasonMonthlyCap)
		}
		cursor = segmentEnd.AddDate(0, 0, 1)
	}

	used := 0
	for _, interval := range prior {
		_, priorStart, ok := ParseDate(interval.StartDate, e.Location)
		if !ok || priorStart.Year() != start.Year() {
			continue
		}
		days, ok := IntervalDays(interval, e.Location)
		if !ok {
			continue
		}
		used += days
	}
	if used+InclusiveDays(start, end) > e.Policy.AnnualQuota {
		return downgrade(ReasonAnnualQuota)
	}

	return Decision{LeaveType: TypeAnnual}
}
