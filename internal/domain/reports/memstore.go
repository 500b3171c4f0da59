package reports

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"staffdesk/internal/domain/compliance"
)

// Directory resolves employee names for listings.
type Directory interface {
	EmployeeName(ctx context.Context, employeeID string) (string, bool)
}

// MemoryStore keeps reports in process memory and enforces one report per
// employee per day.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]Report
	byDay   map[string]string
	dir     Directory
	now     func() time.Time
}

func NewMemoryStore(dir Directory) *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]Report),
		byDay:   make(map[string]string),
		dir:     dir,
		now:     time.Now,
	}
}

func dayKey(employeeID, date string) string {
	return employeeID + "|" + date
}

func (m *MemoryStore) Create(ctx context.Context, report Report) (Report, error) {
	m.mu.Lock()
	key := dayKey(report.EmployeeID, report.ReportDate)
	if _, exists := m.byDay[key]; exists {
		m.mu.Unlock()
		return Report{}, ErrDuplicateReport
	}
	report.ID = uuid.NewString()
	report.CreatedAt = m.now()
	m.reports[report.ID] = report
	m.byDay[key] = report.ID
	m.mu.Unlock()
	return m.withName(ctx, report), nil
}

func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]Report, error) {
	m.mu.RLock()
	out := []Report{}
	for _, r := range m.reports {
		if filter.EmployeeID != "" && r.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.FromDate != "" && r.ReportDate < filter.FromDate {
			continue
		}
		if filter.ToDate != "" && r.ReportDate > filter.ToDate {
			continue
		}
		if filter.Status != "" && r.ComplianceStatus != filter.Status {
			continue
		}
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ReportDate != out[j].ReportDate {
			return out[i].ReportDate > out[j].ReportDate
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	for i := range out {
		out[i] = m.withName(ctx, out[i])
	}
	return out, nil
}

func (m *MemoryStore) ForDay(ctx context.Context, employeeID, reportDate string) (Report, error) {
	m.mu.RLock()
	id, ok := m.byDay[dayKey(employeeID, reportDate)]
	r := m.reports[id]
	m.mu.RUnlock()
	if !ok {
		return Report{}, ErrNotFound
	}
	return m.withName(ctx, r), nil
}

func (m *MemoryStore) CountByStatus(_ context.Context, employeeID string) (map[compliance.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[compliance.Status]int{}
	for _, r := range m.reports {
		if r.EmployeeID == employeeID {
			counts[r.ComplianceStatus]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) DeleteByEmployee(_ context.Context, employeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.reports {
		if r.EmployeeID == employeeID {
			delete(m.reports, id)
			delete(m.byDay, dayKey(r.EmployeeID, r.ReportDate))
		}
	}
	return nil
}

func (m *MemoryStore) withName(ctx context.Context, r Report) Report {
	if m.dir != nil {
		if name, ok := m.dir.EmployeeName(ctx, r.EmployeeID); ok {
			r.EmployeeName = name
		}
	}
	return r
}
