package leave

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Directory is the slice of the employee store the memory store needs.
type Directory interface {
	EmployeeName(ctx context.Context, employeeID string) (string, bool)
	AnnualLeave(ctx context.Context, employeeID string) (total, remaining int, ok bool)
	DeductAnnualLeave(ctx context.Context, employeeID string, days int) bool
}

// MemoryStore keeps leaves in process memory. It backs STORE_DRIVER=memory
// and the handler tests.
type MemoryStore struct {
	mu     sync.RWMutex
	leaves map[string]LeaveRequest

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	dir Directory
	now func() time.Time
}

func NewMemoryStore(dir Directory) *MemoryStore {
	return &MemoryStore{
		leaves: make(map[string]LeaveRequest),
		locks:  make(map[string]*sync.Mutex),
		dir:    dir,
		now:    time.Now,
	}
}

func (m *MemoryStore) WithEmployeeLock(_ context.Context, employeeID string, fn func(StoreAPI) error) error {
	m.lockMu.Lock()
	lock, ok := m.locks[employeeID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[employeeID] = lock
	}
	m.lockMu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(m)
}

func (m *MemoryStore) ApprovedAnnualIntervals(_ context.Context, employeeID string, year int) ([]Interval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Interval
	for _, req := range m.leaves {
		if req.EmployeeID != employeeID || req.LeaveType != TypeAnnual || req.Status != StatusApproved {
			continue
		}
		_, start, ok := ParseDate(req.StartDate, time.UTC)
		if !ok || start.Year() != year {
			continue
		}
		out = append(out, Interval{StartDate: req.StartDate, EndDate: req.EndDate})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate < out[j].StartDate })
	return out, nil
}

func (m *MemoryStore) CreateRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error) {
	m.mu.Lock()
	req.ID = uuid.NewString()
	req.CreatedAt = m.now()
	req.UpdatedAt = req.CreatedAt
	m.leaves[req.ID] = req
	m.mu.Unlock()
	return m.Get(ctx, req.ID)
}

func (m *MemoryStore) Get(ctx context.Context, id string) (LeaveRequest, error) {
	m.mu.RLock()
	req, ok := m.leaves[id]
	m.mu.RUnlock()
	if !ok {
		return LeaveRequest{}, ErrNotFound
	}
	return m.withName(ctx, req), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]LeaveRequest, error) {
	return m.filter(ctx, func(LeaveRequest) bool { return true }), nil
}

func (m *MemoryStore) ListByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	return m.filter(ctx, func(req LeaveRequest) bool { return req.EmployeeID == employeeID }), nil
}

func (m *MemoryStore) filter(ctx context.Context, keep func(LeaveRequest) bool) []LeaveRequest {
	m.mu.RLock()
	out := []LeaveRequest{}
	for _, req := range m.leaves {
		if keep(req) {
			out = append(out, req)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	for i := range out {
		out[i] = m.withName(ctx, out[i])
	}
	return out
}

func (m *MemoryStore) withName(ctx context.Context, req LeaveRequest) LeaveRequest {
	if m.dir != nil {
		if name, ok := m.dir.EmployeeName(ctx, req.EmployeeID); ok {
			req.EmployeeName = name
		}
	}
	return req
}

func (m *MemoryStore) UpdateRequest(ctx context.Context, id, status string, leaveType LeaveType) (LeaveRequest, error) {
	m.mu.Lock()
	req, ok := m.leaves[id]
	if !ok {
		m.mu.Unlock()
		return LeaveRequest{}, ErrNotFound
	}
	req.Status = status
	req.LeaveType = leaveType
	req.UpdatedAt = m.now()
	m.leaves[id] = req
	m.mu.Unlock()
	return m.Get(ctx, id)
}

func (m *MemoryStore) DeductAnnualLeave(ctx context.Context, employeeID string, days int) error {
	if m.dir == nil || !m.dir.DeductAnnualLeave(ctx, employeeID, days) {
		return ErrEmployeeNotFound
	}
	return nil
}

func (m *MemoryStore) AnnualLeaveBalance(ctx context.Context, employeeID string) (int, int, error) {
	if m.dir == nil {
		return 0, 0, ErrEmployeeNotFound
	}
	total, remaining, ok := m.dir.AnnualLeave(ctx, employeeID)
	if !ok {
		return 0, 0, ErrEmployeeNotFound
	}
	return total, remaining, nil
}

func (m *MemoryStore) DeleteByEmployee(_ context.Context, employeeID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var names []string
	for id, req := range m.leaves {
		if req.EmployeeID != employeeID {
			continue
		}
		if req.MedicalCertificate != "" {
			names = append(names, req.MedicalCertificate)
		}
		delete(m.leaves, id)
	}
	return names, nil
}
