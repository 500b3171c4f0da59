package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"staffdesk/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
	// TxStarter is nil inside a transaction.
	TxStarter querier.TxStarter
}

func NewStore(db querier.Querier, tx querier.TxStarter) *Store {
	return &Store{DB: db, TxStarter: tx}
}

const selectLeave = `
    SELECT l.id, l.employee_id, COALESCE(e.name, ''), l.requested_leave_type, l.leave_type,
           l.start_date, l.end_date, l.reason, l.status, l.medical_certificate, l.created_at, l.updated_at
    FROM leaves l
    LEFT JOIN employees e ON e.id = l.employee_id
  `

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLeave(row rowScanner) (LeaveRequest, error) {
	var req LeaveRequest
	var requested, effective string
	var start, end time.Time
	if err := row.Scan(&req.ID, &req.EmployeeID, &req.EmployeeName, &requested, &effective,
		&start, &end, &req.Reason, &req.Status, &req.MedicalCertificate, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return LeaveRequest{}, err
	}
	req.RequestedLeaveType = LeaveType(requested)
	req.LeaveType = LeaveType(effective)
	req.StartDate = FormatDate(start)
	req.EndDate = FormatDate(end)
	return req, nil
}

func (s *Store) WithEmployeeLock(ctx context.Context, employeeID string, fn func(StoreAPI) error) error {
	if s.TxStarter == nil {
		return fn(s)
	}
	tx, err := s.TxStarter.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin leave tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", employeeID); err != nil {
		return fmt.Errorf("lock employee leaves: %w", err)
	}
	if err := fn(&Store{DB: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ApprovedAnnualIntervals(ctx context.Context, employeeID string, year int) ([]Interval, error) {
	yearStart := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	rows, err := s.DB.Query(ctx, `
    SELECT start_date, end_date
    FROM leaves
    WHERE employee_id = $1 AND leave_type = $2 AND status = $3
      AND start_date >= $4 AND start_date <= $5
    ORDER BY start_date
  `, employeeID, string(TypeAnnual), StatusApproved, yearStart, yearEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Interval
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		out = append(out, Interval{StartDate: FormatDate(start), EndDate: FormatDate(end)})
	}
	return out, rows.Err()
}

func (s *Store) CreateRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO leaves (employee_id, requested_leave_type, leave_type, start_date, end_date, reason, status, medical_certificate)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, req.EmployeeID, string(req.RequestedLeaveType), string(req.LeaveType), req.StartDate, req.EndDate,
		req.Reason, req.Status, req.MedicalCertificate).Scan(&id); err != nil {
		return LeaveRequest{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Get(ctx context.Context, id string) (LeaveRequest, error) {
	req, err := scanLeave(s.DB.QueryRow(ctx, selectLeave+" WHERE l.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LeaveRequest{}, ErrNotFound
		}
		return LeaveRequest{}, err
	}
	return req, nil
}

func (s *Store) List(ctx context.Context) ([]LeaveRequest, error) {
	return s.list(ctx, selectLeave+" ORDER BY l.created_at DESC")
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	return s.list(ctx, selectLeave+" WHERE l.employee_id = $1 ORDER BY l.created_at DESC", employeeID)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]LeaveRequest, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LeaveRequest{}
	for rows.Next() {
		req, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRequest(ctx context.Context, id, status string, leaveType LeaveType) (LeaveRequest, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leaves SET status = $1, leave_type = $2, updated_at = now()
    WHERE id = $3
  `, status, string(leaveType), id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if tag.RowsAffected() == 0 {
		return LeaveRequest{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) DeductAnnualLeave(ctx context.Context, employeeID string, days int) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE employees SET remaining_annual_leave = GREATEST(0, remaining_annual_leave - $1), updated_at = now()
    WHERE id = $2
  `, days, employeeID)
	return err
}

func (s *Store) AnnualLeaveBalance(ctx context.Context, employeeID string) (int, int, error) {
	var total, remaining int
	if err := s.DB.QueryRow(ctx, `
    SELECT total_annual_leave, remaining_annual_leave
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&total, &remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrEmployeeNotFound
		}
		return 0, 0, err
	}
	return total, remaining, nil
}

func (s *Store) DeleteByEmployee(ctx context.Context, employeeID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    DELETE FROM leaves
    WHERE employee_id = $1
    RETURNING medical_certificate
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, rows.Err()
}
