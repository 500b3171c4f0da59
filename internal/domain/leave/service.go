package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"staffdesk/internal/platform/metrics"
)

var (
	ErrNotFound         = errors.New("leave not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvalidType      = errors.New("invalid leave type")
	ErrInvalidStatus    = errors.New("invalid leave status")
	ErrInvalidDates     = errors.New("invalid leave dates")
	ErrNoChanges        = errors.New("no fields to update")
	ErrQuotaExceeded    = errors.New("annual leave quota exceeded")
)

type Service struct {
	Store     StoreAPI
	Evaluator Evaluator
	Types     []LeaveType
	Metrics   *metrics.Collector
	Now       func() time.Time
}

func NewService(store StoreAPI, evaluator Evaluator, types []LeaveType, collector *metrics.Collector) *Service {
	if len(types) == 0 {
		types = DefaultTypes
	}
	return &Service{Store: store, Evaluator: evaluator, Types: types, Metrics: collector, Now: time.Now}
}

// ParseTypes maps configured codes onto known leave types.
func ParseTypes(codes []string) ([]LeaveType, error) {
	out := make([]LeaveType, 0, len(codes))
	for _, code := range codes {
		known := false
		for _, lt := range DefaultTypes {
			if string(lt) == code {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("%w: %s", ErrInvalidType, code)
		}
		out = append(out, LeaveType(code))
	}
	return out, nil
}

func (s *Service) Accepts(lt LeaveType) bool {
	for _, candidate := range s.Types {
		if candidate == lt {
			return true
		}
	}
	return false
}

func (s *Service) TypeCodes() []string {
	out := make([]string, 0, len(s.Types))
	for _, lt := range s.Types {
		out = append(out, string(lt))
	}
	return out
}

func (s *Service) location() *time.Location {
	if s.Evaluator.Location == nil {
		return time.UTC
	}
	return s.Evaluator.Location
}

// Submit evaluates and stores a new pending leave. Reading prior approved
// leaves and inserting the new one happen under the employee lock.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (LeaveRequest, Decision, error) {
	if !s.Accepts(in.LeaveType) {
		return LeaveRequest{}, Decision{}, fmt.Errorf("%w: %s", ErrInvalidType, in.LeaveType)
	}
	loc := s.location()
	_, start, okStart := ParseDate(in.StartDate, loc)
	_, end, okEnd := ParseDate(in.EndDate, loc)
	if !okStart || !okEnd {
		return LeaveRequest{}, Decision{}, ErrInvalidDates
	}

	var created LeaveRequest
	var decision Decision
	err := s.Store.WithEmployeeLock(ctx, in.EmployeeID, func(store StoreAPI) error {
		var prior []Interval
		if in.LeaveType == TypeAnnual {
			var err error
			prior, err = store.ApprovedAnnualIntervals(ctx, in.EmployeeID, start.Year())
			if err != nil {
				return fmt.Errorf("load approved annual leave: %w", err)
			}
		}

		decision = s.Evaluator.Decide(Request{
			EmployeeID: in.EmployeeID,
			LeaveType:  in.LeaveType,
			StartDate:  in.StartDate,
			EndDate:    in.EndDate,
		}, prior, s.Now())

		var err error
		created, err = store.CreateRequest(ctx, LeaveRequest{
			EmployeeID:         in.EmployeeID,
			RequestedLeaveType: in.LeaveType,
			LeaveType:          decision.LeaveType,
			StartDate:          FormatDate(start),
			EndDate:            FormatDate(end),
			Reason:             in.Reason,
			Status:             StatusPending,
			MedicalCertificate: in.MedicalCertificate,
		})
		return err
	})
	if err != nil {
		return LeaveRequest{}, Decision{}, err
	}

	if decision.Downgraded() {
		slog.Info("annual leave downgraded", "leaveId", created.ID, "employeeId", in.EmployeeID, "reason", decision.Reason)
		s.Metrics.Outcome("leave_downgrade", decision.Reason)
	}
	s.Metrics.Outcome("leave_type", string(decision.LeaveType))
	return created, decision, nil
}

func (s *Service) Get(ctx context.Context, id string) (LeaveRequest, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]LeaveRequest, error) {
	return s.Store.List(ctx)
}

func (s *Service) ListByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	return s.Store.ListByEmployee(ctx, employeeID)
}

// Update applies an admin decision. Moving an annual leave into Approved
// re-checks the quota and deducts its days from the employee's balance.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (LeaveRequest, error) {
	if in.Status == nil && in.LeaveType == nil {
		return LeaveRequest{}, ErrNoChanges
	}
	if in.Status != nil && !ValidStatus(*in.Status) {
		return LeaveRequest{}, fmt.Errorf("%w: %s", ErrInvalidStatus, *in.Status)
	}
	if in.LeaveType != nil && !s.Accepts(*in.LeaveType) {
		return LeaveRequest{}, fmt.Errorf("%w: %s", ErrInvalidType, *in.LeaveType)
	}

	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}

	var updated LeaveRequest
	err = s.Store.WithEmployeeLock(ctx, current.EmployeeID, func(store StoreAPI) error {
		current, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		status := current.Status
		if in.Status != nil {
			status = *in.Status
		}
		leaveType := current.LeaveType
		if in.LeaveType != nil {
			leaveType = *in.LeaveType
		}

		// Quota and balance apply whenever the request becomes approved annual
		// leave, whether by status or by a type change on an approved request.
		wasApprovedAnnual := current.Status == StatusApproved && current.LeaveType == TypeAnnual
		deduct := 0
		if status == StatusApproved && leaveType == TypeAnnual && !wasApprovedAnnual {
			deduct, err = s.checkQuota(ctx, store, current)
			if err != nil {
				return err
			}
		}

		updated, err = store.UpdateRequest(ctx, id, status, leaveType)
		if err != nil {
			return err
		}
		if deduct > 0 {
			if err := store.DeductAnnualLeave(ctx, current.EmployeeID, deduct); err != nil {
				return fmt.Errorf("deduct annual leave: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	if in.Status != nil {
		s.Metrics.Outcome("leave_status", updated.Status)
	}
	return updated, nil
}

func (s *Service) checkQuota(ctx context.Context, store StoreAPI, req LeaveRequest) (int, error) {
	loc := s.location()
	_, start, ok := ParseDate(req.StartDate, loc)
	if !ok {
		return 0, ErrInvalidDates
	}
	days, _ := IntervalDays(Interval{StartDate: req.StartDate, EndDate: req.EndDate}, loc)

	prior, err := store.ApprovedAnnualIntervals(ctx, req.EmployeeID, start.Year())
	if err != nil {
		return 0, fmt.Errorf("load approved annual leave: %w", err)
	}
	used := 0
	for _, interval := range prior {
		if n, ok := IntervalDays(interval, loc); ok {
			used += n
		}
	}
	if used+days > s.Evaluator.Policy.AnnualQuota {
		return 0, ErrQuotaExceeded
	}
	return days, nil
}

// Usage reports the employee's annual-leave consumption for the current year.
func (s *Service) Usage(ctx context.Context, employeeID string) (Usage, error) {
	total, remaining, err := s.Store.AnnualLeaveBalance(ctx, employeeID)
	if err != nil {
		return Usage{}, err
	}
	leaves, err := s.Store.ListByEmployee(ctx, employeeID)
	if err != nil {
		return Usage{}, err
	}
	year := s.Now().In(s.location()).Year()
	return BuildUsage(year, total, remaining, UsedDays(leaves, year, s.location())), nil
}

func (s *Service) DeleteByEmployee(ctx context.Context, employeeID string) ([]string, error) {
	return s.Store.DeleteByEmployee(ctx, employeeID)
}
