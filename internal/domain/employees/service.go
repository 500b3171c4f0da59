package employees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/platform/crypto"
)

var (
	ErrNotFound           = errors.New("employee not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoChanges          = errors.New("no fields to update")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrMFANotSetUp        = errors.New("mfa not set up")
	ErrForbiddenField     = errors.New("field requires admin role")
)

// CleanupFunc removes records owned by an employee before the employee row goes.
type CleanupFunc func(ctx context.Context, employeeID string) error

type Service struct {
	Store    StoreAPI
	Sealer   *crypto.Sealer
	Issuer   string
	OnDelete []CleanupFunc
}

func NewService(store StoreAPI, sealer *crypto.Sealer, issuer string) *Service {
	if issuer == "" {
		issuer = "staffdesk"
	}
	return &Service{Store: store, Sealer: sealer, Issuer: issuer}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Employee, error) {
	role := in.Role
	if role == "" {
		role = auth.RoleEmployee
	}
	if !auth.ValidRole(role) {
		return Employee{}, ErrInvalidRole
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Employee{}, fmt.Errorf("hash password: %w", err)
	}
	return s.Store.Create(ctx, Employee{
		Name:                 strings.TrimSpace(in.Name),
		Email:                normalizeEmail(in.Email),
		Role:                 role,
		Position:             strings.TrimSpace(in.Position),
		Teams:                in.Teams,
		TotalAnnualLeave:     intPtr(DefaultAnnualLeave),
		RemainingAnnualLeave: intPtr(DefaultAnnualLeave),
	}, hash)
}

func (s *Service) Get(ctx context.Context, id string) (Employee, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, role string) ([]Employee, error) {
	if role != "" && !auth.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	return s.Store.List(ctx, role)
}

// Update applies a partial update on behalf of actor. Non-admins may not
// change role or leave counters.
func (s *Service) Update(ctx context.Context, actor auth.UserContext, id string, in UpdateInput) (Employee, error) {
	if in.Empty() {
		return Employee{}, ErrNoChanges
	}
	if in.TouchesPrivileged() && !actor.IsAdmin() {
		return Employee{}, ErrForbiddenField
	}
	if in.Role != nil && !auth.ValidRole(*in.Role) {
		return Employee{}, ErrInvalidRole
	}

	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	if in.Name != nil {
		current.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		current.Email = normalizeEmail(*in.Email)
	}
	if in.Role != nil {
		current.Role = *in.Role
	}
	if in.Position != nil {
		current.Position = strings.TrimSpace(*in.Position)
	}
	if in.Teams != nil {
		current.Teams = *in.Teams
	}
	if in.TotalAnnualLeave != nil {
		current.TotalAnnualLeave = intPtr(*in.TotalAnnualLeave)
	}
	if in.RemainingAnnualLeave != nil {
		current.RemainingAnnualLeave = intPtr(*in.RemainingAnnualLeave)
	}

	var hash string
	if in.Password != nil {
		hash, err = auth.HashPassword(*in.Password)
		if err != nil {
			return Employee{}, fmt.Errorf("hash password: %w", err)
		}
	}
	return s.Store.Update(ctx, current, hash)
}

// Delete removes the employee after running every registered cleanup.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Store.Get(ctx, id); err != nil {
		return err
	}
	for _, cleanup := range s.OnDelete {
		if err := cleanup(ctx, id); err != nil {
			return fmt.Errorf("delete employee records: %w", err)
		}
	}
	return s.Store.Delete(ctx, id)
}

// Authenticate checks the password and, when MFA is enabled, the TOTP code.
func (s *Service) Authenticate(ctx context.Context, email, password, code string) (Employee, error) {
	creds, err := s.Store.CredentialsByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Employee{}, ErrInvalidCredentials
		}
		return Employee{}, err
	}
	if err := auth.CheckPassword(creds.PasswordHash, password); err != nil {
		return Employee{}, ErrInvalidCredentials
	}
	if !creds.MFAEnabled {
		return creds.Employee, nil
	}
	if strings.TrimSpace(code) == "" {
		return Employee{}, ErrMFARequired
	}
	secret, err := s.Sealer.Open(creds.MFASecret)
	if err != nil {
		return Employee{}, fmt.Errorf("open mfa secret: %w", err)
	}
	if !auth.ValidateMFACode(strings.TrimSpace(code), secret) {
		return Employee{}, ErrMFAInvalid
	}
	return creds.Employee, nil
}

// SetupMFA stores a new pending secret. MFA stays disabled until EnableMFA
// confirms a code generated from it.
func (s *Service) SetupMFA(ctx context.Context, id string) (auth.MFAKey, error) {
	emp, err := s.Store.Get(ctx, id)
	if err != nil {
		return auth.MFAKey{}, err
	}
	key, err := auth.GenerateMFAKey(s.Issuer, emp.Email)
	if err != nil {
		return auth.MFAKey{}, fmt.Errorf("generate mfa key: %w", err)
	}
	sealed, err := s.Sealer.Seal(key.Secret)
	if err != nil {
		return auth.MFAKey{}, fmt.Errorf("seal mfa secret: %w", err)
	}
	if err := s.Store.SetMFA(ctx, id, sealed, false); err != nil {
		return auth.MFAKey{}, err
	}
	return key, nil
}

func (s *Service) EnableMFA(ctx context.Context, id, code string) error {
	stored, _, err := s.Store.MFASecret(ctx, id)
	if err != nil {
		return err
	}
	if stored == "" {
		return ErrMFANotSetUp
	}
	secret, err := s.Sealer.Open(stored)
	if err != nil {
		return fmt.Errorf("open mfa secret: %w", err)
	}
	if !auth.ValidateMFACode(strings.TrimSpace(code), secret) {
		return ErrMFAInvalid
	}
	return s.Store.SetMFA(ctx, id, stored, true)
}

// DisableMFA turns MFA off after confirming a current code.
func (s *Service) DisableMFA(ctx context.Context, id, code string) error {
	stored, enabled, err := s.Store.MFASecret(ctx, id)
	if err != nil {
		return err
	}
	if stored == "" || !enabled {
		return ErrMFANotSetUp
	}
	secret, err := s.Sealer.Open(stored)
	if err != nil {
		return fmt.Errorf("open mfa secret: %w", err)
	}
	if !auth.ValidateMFACode(strings.TrimSpace(code), secret) {
		return ErrMFAInvalid
	}
	return s.Store.SetMFA(ctx, id, "", false)
}

// EnsureAdmin creates the bootstrap admin unless the email is already registered.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	_, err := s.Create(ctx, CreateInput{Name: name, Email: email, Password: password, Role: auth.RoleAdmin})
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	slog.Info("seeded admin account", "email", normalizeEmail(email))
	return true, nil
}
