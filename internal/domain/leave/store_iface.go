package leave

import "context"

type StoreAPI interface {
	// WithEmployeeLock runs fn with all leave writes for employeeID serialized.
	// fn must use the store it is given.
	WithEmployeeLock(ctx context.Context, employeeID string, fn func(StoreAPI) error) error
	ApprovedAnnualIntervals(ctx context.Context, employeeID string, year int) ([]Interval, error)
	CreateRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error)
	Get(ctx context.Context, id string) (LeaveRequest, error)
	List(ctx context.Context) ([]LeaveRequest, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	UpdateRequest(ctx context.Context, id, status string, leaveType LeaveType) (LeaveRequest, error)
	DeductAnnualLeave(ctx context.Context, employeeID string, days int) error
	AnnualLeaveBalance(ctx context.Context, employeeID string) (total, remaining int, err error)
	// DeleteByEmployee returns the certificate names of the removed leaves.
	DeleteByEmployee(ctx context.Context, employeeID string) ([]string, error)
}
