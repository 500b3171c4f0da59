package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"staffdesk/internal/domain/compliance"
	"staffdesk/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const selectReport = `
    SELECT r.id, r.employee_id, COALESCE(e.name, ''), r.report_text, r.report_date,
           r.submission_time, r.compliance_status, r.created_at
    FROM reports r
    LEFT JOIN employees e ON e.id = r.employee_id
  `

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var r Report
	var date time.Time
	var status string
	if err := row.Scan(&r.ID, &r.EmployeeID, &r.EmployeeName, &r.ReportText, &date,
		&r.SubmissionTime, &status, &r.CreatedAt); err != nil {
		return Report{}, err
	}
	r.ReportDate = date.Format(dateLayout)
	r.ComplianceStatus = compliance.Status(status)
	return r, nil
}

func (s *Store) Create(ctx context.Context, report Report) (Report, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO reports (employee_id, report_text, report_date, submission_time, compliance_status)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, report.EmployeeID, report.ReportText, report.ReportDate, report.SubmissionTime, string(report.ComplianceStatus)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Report{}, ErrDuplicateReport
		}
		return Report{}, err
	}
	return scanReport(s.DB.QueryRow(ctx, selectReport+" WHERE r.id = $1", id))
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Report, error) {
	query := selectReport + " WHERE 1=1"
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}
	if filter.EmployeeID != "" {
		add("r.employee_id = $%d", filter.EmployeeID)
	}
	if filter.FromDate != "" {
		add("r.report_date >= $%d", filter.FromDate)
	}
	if filter.ToDate != "" {
		add("r.report_date <= $%d", filter.ToDate)
	}
	if filter.Status != "" {
		add("r.compliance_status = $%d", string(filter.Status))
	}
	query += " ORDER BY r.report_date DESC, r.created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ForDay(ctx context.Context, employeeID, reportDate string) (Report, error) {
	r, err := scanReport(s.DB.QueryRow(ctx, selectReport+" WHERE r.employee_id = $1 AND r.report_date = $2", employeeID, reportDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Report{}, ErrNotFound
		}
		return Report{}, err
	}
	return r, nil
}

func (s *Store) CountByStatus(ctx context.Context, employeeID string) (map[compliance.Status]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT compliance_status, COUNT(*)
    FROM reports
    WHERE employee_id = $1
    GROUP BY compliance_status
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[compliance.Status]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[compliance.Status(status)] = n
	}
	return counts, rows.Err()
}

func (s *Store) DeleteByEmployee(ctx context.Context, employeeID string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM reports WHERE employee_id = $1", employeeID)
	return err
}
