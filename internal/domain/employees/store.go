package employees

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"staffdesk/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const employeeColumns = `id, name, email, role, position, team, total_annual_leave, remaining_annual_leave, mfa_enabled, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner, extra ...any) (Employee, error) {
	var emp Employee
	var team string
	var total, remaining int
	dest := []any{&emp.ID, &emp.Name, &emp.Email, &emp.Role, &emp.Position, &team, &total, &remaining,
		&emp.MFAEnabled, &emp.CreatedAt, &emp.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	emp.Teams = SplitTeams(team)
	emp.TotalAnnualLeave = intPtr(total)
	emp.RemainingAnnualLeave = intPtr(remaining)
	return emp, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func leaveValue(v *int) int {
	if v == nil {
		return DefaultAnnualLeave
	}
	return *v
}

func (s *Store) Create(ctx context.Context, emp Employee, passwordHash string) (Employee, error) {
	created, err := scanEmployee(s.DB.QueryRow(ctx, `
    INSERT INTO employees (name, email, password_hash, role, position, team, total_annual_leave, remaining_annual_leave)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING `+employeeColumns,
		emp.Name, emp.Email, passwordHash, emp.Role, emp.Position, JoinTeams(emp.Teams),
		leaveValue(emp.TotalAnnualLeave), leaveValue(emp.RemainingAnnualLeave)))
	if err != nil {
		if isUniqueViolation(err) {
			return Employee{}, ErrEmailTaken
		}
		return Employee{}, err
	}
	return created, nil
}

func (s *Store) Get(ctx context.Context, id string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = $1", id))
}

func (s *Store) List(ctx context.Context, role string) ([]Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees"
	var args []any
	if role != "" {
		query += " WHERE role = $1"
		args = append(args, role)
	}
	query += " ORDER BY name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, emp Employee, passwordHash string) (Employee, error) {
	updated, err := scanEmployee(s.DB.QueryRow(ctx, `
    UPDATE employees
    SET name = $1,
        email = $2,
        role = $3,
        position = $4,
        team = $5,
        total_annual_leave = $6,
        remaining_annual_leave = $7,
        password_hash = COALESCE(NULLIF($8, ''), password_hash),
        updated_at = now()
    WHERE id = $9
    RETURNING `+employeeColumns,
		emp.Name, emp.Email, emp.Role, emp.Position, JoinTeams(emp.Teams),
		leaveValue(emp.TotalAnnualLeave), leaveValue(emp.RemainingAnnualLeave), passwordHash, emp.ID))
	if err != nil {
		if isUniqueViolation(err) {
			return Employee{}, ErrEmailTaken
		}
		return Employee{}, err
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM employees WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CredentialsByEmail(ctx context.Context, email string) (Credentials, error) {
	var creds Credentials
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`, password_hash, mfa_secret
    FROM employees
    WHERE lower(email) = lower($1)
  `, email), &creds.PasswordHash, &creds.MFASecret)
	if err != nil {
		return Credentials{}, err
	}
	creds.Employee = emp
	return creds, nil
}

func (s *Store) MFASecret(ctx context.Context, id string) (string, bool, error) {
	var secret string
	var enabled bool
	if err := s.DB.QueryRow(ctx, "SELECT mfa_secret, mfa_enabled FROM employees WHERE id = $1", id).Scan(&secret, &enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, ErrNotFound
		}
		return "", false, err
	}
	return secret, enabled, nil
}

func (s *Store) SetMFA(ctx context.Context, id, secret string, enabled bool) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees SET mfa_secret = $1, mfa_enabled = $2, updated_at = now()
    WHERE id = $3
  `, secret, enabled, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
