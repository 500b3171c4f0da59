package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

type LeaveType string

const (
	TypeAnnual      LeaveType = "AL"
	TypeSick        LeaveType = "SL"
	TypeCasual      LeaveType = "CL"
	TypeUnpaid      LeaveType = "UPL"
	TypeHalfMorning LeaveType = "HML"
	TypeHalfEvening LeaveType = "HEL"
)

// DefaultTypes is the accepted set when none is configured.
var DefaultTypes = []LeaveType{TypeAnnual, TypeSick, TypeCasual, TypeUnpaid, TypeHalfMorning, TypeHalfEvening}

func (t LeaveType) IsHalfDay() bool {
	return t == TypeHalfMorning || t == TypeHalfEvening
}

const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Statuses lists the workflow states in order.
var Statuses = []string{StatusPending, StatusApproved, StatusRejected}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// LeaveRequest is a persisted leave. LeaveType is the effective type after
// evaluation; RequestedLeaveType is what the employee asked for.
type LeaveRequest struct {
	ID                 string    `json:"id"`
	EmployeeID         string    `json:"employeeId"`
	EmployeeName       string    `json:"employeeName,omitempty"`
	RequestedLeaveType LeaveType `json:"requestedLeaveType"`
	LeaveType          LeaveType `json:"effectiveLeaveType"`
	StartDate          string    `json:"startDate"`
	EndDate            string    `json:"endDate"`
	Reason             string    `json:"reason"`
	Status             string    `json:"status"`
	MedicalCertificate string    `json:"supportingDocumentRef,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Interval is an inclusive date range in YYYY-MM-DD form.
type Interval struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type SubmitInput struct {
	EmployeeID         string
	LeaveType          LeaveType
	StartDate          string
	EndDate            string
	Reason             string
	MedicalCertificate string
}

// UpdateInput carries the admin-editable fields; nil means unchanged.
type UpdateInput struct {
	Status    *string
	LeaveType *LeaveType
}

// Usage summarises annual-leave consumption. Half days count as 0.5.
type Usage struct {
	Year                 int             `json:"year"`
	TotalAnnualLeave     int             `json:"totalAnnualLeave"`
	UsedAnnualLeave      decimal.Decimal `json:"usedAnnualLeave"`
	RemainingAnnualLeave int             `json:"remainingAnnualLeave"`
	BalanceRemaining     decimal.Decimal `json:"balanceRemaining"`
}
