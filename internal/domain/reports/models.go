package reports

import (
	"time"

	"staffdesk/internal/domain/compliance"
)

type Report struct {
	ID               string            `json:"id"`
	EmployeeID       string            `json:"employeeId"`
	EmployeeName     string            `json:"employeeName,omitempty"`
	ReportText       string            `json:"reportText"`
	ReportDate       string            `json:"reportDate"`
	SubmissionTime   time.Time         `json:"submissionTime"`
	ComplianceStatus compliance.Status `json:"complianceStatus"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// Filter narrows report listings. Empty fields match everything; dates are
// inclusive YYYY-MM-DD bounds on the report date.
type Filter struct {
	EmployeeID string
	FromDate   string
	ToDate     string
	Status     compliance.Status
}

type SubmitInput struct {
	EmployeeID string
	ReportText string
	ReportDate string
}

type Stats struct {
	TotalReports    int `json:"totalReports"`
	OnTimeCount     int `json:"onTimeCount"`
	LateFineCount   int `json:"lateFineCount"`
	HalfUnpaidCount int `json:"halfUnpaidCount"`
	FullUnpaidCount int `json:"fullUnpaidCount"`
}

func statsFromCounts(counts map[compliance.Status]int) Stats {
	var st Stats
	for status, n := range counts {
		st.TotalReports += n
		switch status {
		case compliance.StatusOnTime:
			st.OnTimeCount = n
		case compliance.StatusLateFine:
			st.LateFineCount = n
		case compliance.StatusHalfUnpaidLeave:
			st.HalfUnpaidCount = n
		case compliance.StatusFullUnpaidLeave:
			st.FullUnpaidCount = n
		}
	}
	return st
}
