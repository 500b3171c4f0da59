package employees

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memEmployee struct {
	emp          Employee
	passwordHash string
	mfaSecret    string
}

// MemoryStore keeps employees in process memory. It also serves the leave
// and report memory stores as their employee directory.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*memEmployee
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*memEmployee),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneEmployee(emp Employee) Employee {
	emp.Teams = append([]string{}, emp.Teams...)
	if emp.TotalAnnualLeave != nil {
		emp.TotalAnnualLeave = intPtr(*emp.TotalAnnualLeave)
	}
	if emp.RemainingAnnualLeave != nil {
		emp.RemainingAnnualLeave = intPtr(*emp.RemainingAnnualLeave)
	}
	return emp
}

func (m *MemoryStore) Create(_ context.Context, emp Employee, passwordHash string) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := emailKey(emp.Email)
	if _, taken := m.byEmail[key]; taken {
		return Employee{}, ErrEmailTaken
	}
	emp.ID = uuid.NewString()
	emp.Teams = SplitTeams(JoinTeams(emp.Teams))
	emp.TotalAnnualLeave = intPtr(leaveValue(emp.TotalAnnualLeave))
	emp.RemainingAnnualLeave = intPtr(leaveValue(emp.RemainingAnnualLeave))
	emp.CreatedAt = m.now()
	emp.UpdatedAt = emp.CreatedAt
	m.byID[emp.ID] = &memEmployee{emp: emp, passwordHash: passwordHash}
	m.byEmail[key] = emp.ID
	return cloneEmployee(emp), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return cloneEmployee(rec.emp), nil
}

func (m *MemoryStore) List(_ context.Context, role string) ([]Employee, error) {
	m.mu.RLock()
	out := []Employee{}
	for _, rec := range m.byID {
		if role != "" && rec.emp.Role != role {
			continue
		}
		out = append(out, cloneEmployee(rec.emp))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, emp Employee, passwordHash string) (Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[emp.ID]
	if !ok {
		return Employee{}, ErrNotFound
	}
	oldKey, newKey := emailKey(rec.emp.Email), emailKey(emp.Email)
	if oldKey != newKey {
		if _, taken := m.byEmail[newKey]; taken {
			return Employee{}, ErrEmailTaken
		}
		delete(m.byEmail, oldKey)
		m.byEmail[newKey] = emp.ID
	}

	emp.Teams = SplitTeams(JoinTeams(emp.Teams))
	emp.TotalAnnualLeave = intPtr(leaveValue(emp.TotalAnnualLeave))
	emp.RemainingAnnualLeave = intPtr(leaveValue(emp.RemainingAnnualLeave))
	emp.MFAEnabled = rec.emp.MFAEnabled
	emp.CreatedAt = rec.emp.CreatedAt
	emp.UpdatedAt = m.now()
	rec.emp = emp
	if passwordHash != "" {
		rec.passwordHash = passwordHash
	}
	return cloneEmployee(emp), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, emailKey(rec.emp.Email))
	delete(m.byID, id)
	return nil
}

func (m *MemoryStore) CredentialsByEmail(_ context.Context, email string) (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[emailKey(email)]
	if !ok {
		return Credentials{}, ErrNotFound
	}
	rec := m.byID[id]
	return Credentials{Employee: cloneEmployee(rec.emp), PasswordHash: rec.passwordHash, MFASecret: rec.mfaSecret}, nil
}

func (m *MemoryStore) MFASecret(_ context.Context, id string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return "", false, ErrNotFound
	}
	return rec.mfaSecret, rec.emp.MFAEnabled, nil
}

func (m *MemoryStore) SetMFA(_ context.Context, id, secret string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	rec.mfaSecret = secret
	rec.emp.MFAEnabled = enabled
	rec.emp.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) EmployeeName(_ context.Context, id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return "", false
	}
	return rec.emp.Name, true
}

func (m *MemoryStore) AnnualLeave(_ context.Context, id string) (int, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return 0, 0, false
	}
	return leaveValue(rec.emp.TotalAnnualLeave), leaveValue(rec.emp.RemainingAnnualLeave), true
}

func (m *MemoryStore) DeductAnnualLeave(_ context.Context, id string, days int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return false
	}
	remaining := leaveValue(rec.emp.RemainingAnnualLeave) - days
	if remaining < 0 {
		remaining = 0
	}
	rec.emp.RemainingAnnualLeave = intPtr(remaining)
	return true
}
