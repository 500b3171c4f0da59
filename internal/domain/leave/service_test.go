package leave

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/platform/metrics"
)

type fakeDirectory struct {
	mu        sync.Mutex
	total     int
	remaining map[string]int
}

func newFakeDirectory(ids ...string) *fakeDirectory {
	d := &fakeDirectory{total: 6, remaining: map[string]int{}}
	for _, id := range ids {
		d.remaining[id] = 6
	}
	return d
}

func (d *fakeDirectory) EmployeeName(_ context.Context, id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.remaining[id]
	return "Employee " + id, ok
}

func (d *fakeDirectory) AnnualLeave(_ context.Context, id string) (int, int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.remaining[id]
	return d.total, r, ok
}

func (d *fakeDirectory) DeductAnnualLeave(_ context.Context, id string, days int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.remaining[id]
	if !ok {
		return false
	}
	r -= days
	if r < 0 {
		r = 0
	}
	d.remaining[id] = r
	return true
}

func newTestService(dir *fakeDirectory) *Service {
	svc := NewService(NewMemoryStore(dir), NewEvaluator(DefaultPolicy(), time.UTC), nil, metrics.New())
	svc.Now = func() time.Time { return evalNow }
	return svc
}

func approve(t *testing.T, svc *Service, id string) LeaveRequest {
	t.Helper()
	status := StatusApproved
	updated, err := svc.Update(context.Background(), id, UpdateInput{Status: &status})
	require.NoError(t, err)
	return updated
}

func TestSubmitStoresEffectiveType(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeDirectory("e1"))

	created, decision, err := svc.Submit(ctx, SubmitInput{
		EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: "2025-03-10", EndDate: "2025-03-12", Reason: "trip",
	})
	require.NoError(t, err)
	assert.Equal(t, TypeUnpaid, created.LeaveType)
	assert.Equal(t, TypeAnnual, created.RequestedLeaveType)
	assert.Equal(t, ReasonMonthlyCap, decision.Reason)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, "Employee e1", created.EmployeeName)
}

func TestSubmitRejectsUnknownTypeAndUnparseableDates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeDirectory("e1"))

	_, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: "ML", StartDate: "2025-03-10", EndDate: "2025-03-10"})
	assert.ErrorIs(t, err, ErrInvalidType)

	_, _, err = svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeSick, StartDate: "soon", EndDate: "2025-03-10"})
	assert.ErrorIs(t, err, ErrInvalidDates)
}

func TestSubmitReversedRangeIsDowngradedNotRejected(t *testing.T) {
	svc := newTestService(newFakeDirectory("e1"))
	created, _, err := svc.Submit(context.Background(), SubmitInput{
		EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: "2025-04-10", EndDate: "2025-04-09",
	})
	require.NoError(t, err)
	assert.Equal(t, TypeUnpaid, created.LeaveType)
}

func TestSubmitCountsApprovedAnnualLeave(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeDirectory("e1"))

	for _, r := range [][2]string{{"2025-04-01", "2025-04-02"}, {"2025-05-01", "2025-05-02"}, {"2025-06-02", "2025-06-02"}} {
		created, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: r[0], EndDate: r[1]})
		require.NoError(t, err)
		require.Equal(t, TypeAnnual, created.LeaveType)
		approve(t, svc, created.ID)
	}

	over, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: "2025-07-01", EndDate: "2025-07-02"})
	require.NoError(t, err)
	assert.Equal(t, TypeUnpaid, over.LeaveType)

	last, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: "2025-07-01", EndDate: "2025-07-01"})
	require.NoError(t, err)
	assert.Equal(t, TypeAnnual, last.LeaveType)
}

func TestApprovalDeductsBalanceOnce(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory("e1")
	svc := newTestService(dir)

	created, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: "2025-04-01", EndDate: "2025-04-02"})
	require.NoError(t, err)

	approve(t, svc, created.ID)
	approve(t, svc, created.ID)

	_, remaining, _ := dir.AnnualLeave(ctx, "e1")
	assert.Equal(t, 4, remaining)
}

func TestApprovalRefusesWhenQuotaWouldBeExceeded(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeDirectory("e1"))

	// All four pass evaluation while nothing is approved yet.
	var pending []LeaveRequest
	for _, r := range [][2]string{{"2025-04-01", "2025-04-02"}, {"2025-05-01", "2025-05-02"}, {"2025-06-02", "2025-06-03"}, {"2025-07-01", "2025-07-02"}} {
		created, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: r[0], EndDate: r[1]})
		require.NoError(t, err)
		require.Equal(t, TypeAnnual, created.LeaveType)
		pending = append(pending, created)
	}

	for _, req := range pending[:3] {
		approve(t, svc, req.ID)
	}
	status := StatusApproved
	_, err := svc.Update(ctx, pending[3].ID, UpdateInput{Status: &status})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	still, err := svc.Get(ctx, pending[3].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, still.Status)
}

func TestRetypingApprovedLeaveToAnnualChecksQuotaAndDeducts(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory("e1")
	svc := newTestService(dir)

	// 2025-03-03 is under the notice period, so the request is stored as UPL.
	short, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: "2025-03-03", EndDate: "2025-03-04"})
	require.NoError(t, err)
	require.Equal(t, TypeUnpaid, short.LeaveType)
	approve(t, svc, short.ID)

	annual := TypeAnnual
	retyped, err := svc.Update(ctx, short.ID, UpdateInput{LeaveType: &annual})
	require.NoError(t, err)
	assert.Equal(t, TypeAnnual, retyped.LeaveType)
	_, remaining, _ := dir.AnnualLeave(ctx, "e1")
	assert.Equal(t, 4, remaining)

	// Retyping again is not a second deduction.
	_, err = svc.Update(ctx, short.ID, UpdateInput{LeaveType: &annual})
	require.NoError(t, err)
	_, remaining, _ = dir.AnnualLeave(ctx, "e1")
	assert.Equal(t, 4, remaining)

	var others []LeaveRequest
	for _, r := range [][2]string{{"2025-05-01", "2025-05-02"}, {"2025-06-02", "2025-06-04"}} {
		created, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeCasual, StartDate: r[0], EndDate: r[1]})
		require.NoError(t, err)
		others = append(others, approve(t, svc, created.ID))
	}
	_, err = svc.Update(ctx, others[0].ID, UpdateInput{LeaveType: &annual})
	require.NoError(t, err)
	_, err = svc.Update(ctx, others[1].ID, UpdateInput{LeaveType: &annual})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	still, err := svc.Get(ctx, others[1].ID)
	require.NoError(t, err)
	assert.Equal(t, TypeCasual, still.LeaveType)
}

func TestUpdateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeDirectory("e1"))

	_, err := svc.Update(ctx, "missing", UpdateInput{})
	assert.ErrorIs(t, err, ErrNoChanges)

	bad := "Maybe"
	_, err = svc.Update(ctx, "missing", UpdateInput{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	ok := StatusRejected
	_, err = svc.Update(ctx, "missing", UpdateInput{Status: &ok})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateChangesType(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeDirectory("e1"))

	created, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeSick, StartDate: "2025-03-02", EndDate: "2025-03-02"})
	require.NoError(t, err)

	casual := TypeCasual
	updated, err := svc.Update(ctx, created.ID, UpdateInput{LeaveType: &casual})
	require.NoError(t, err)
	assert.Equal(t, TypeCasual, updated.LeaveType)
	assert.Equal(t, TypeSick, updated.RequestedLeaveType)
}

func TestConcurrentApprovalsRespectQuota(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeDirectory("e1"))

	for _, r := range [][2]string{{"2025-04-01", "2025-04-02"}, {"2025-05-01", "2025-05-02"}} {
		created, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: r[0], EndDate: r[1]})
		require.NoError(t, err)
		approve(t, svc, created.ID)
	}

	var pending []string
	for _, r := range [][2]string{{"2025-08-04", "2025-08-05"}, {"2025-09-01", "2025-09-02"}} {
		created, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: r[0], EndDate: r[1]})
		require.NoError(t, err)
		require.Equal(t, TypeAnnual, created.LeaveType)
		pending = append(pending, created.ID)
	}

	// Only one of the two approvals fits in the remaining quota.
	var wg sync.WaitGroup
	results := make(chan error, len(pending))
	for _, id := range pending {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			status := StatusApproved
			_, err := svc.Update(ctx, id, UpdateInput{Status: &status})
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var quotaErrors int
	for err := range results {
		if err != nil {
			assert.ErrorIs(t, err, ErrQuotaExceeded)
			quotaErrors++
		}
	}
	assert.Equal(t, 1, quotaErrors)
}

func TestUsage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeDirectory("e1"))

	al, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeAnnual, StartDate: "2025-04-01", EndDate: "2025-04-02"})
	require.NoError(t, err)
	approve(t, svc, al.ID)
	half, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeHalfMorning, StartDate: "2025-03-05", EndDate: "2025-03-05"})
	require.NoError(t, err)
	approve(t, svc, half.ID)

	usage, err := svc.Usage(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 2025, usage.Year)
	assert.Equal(t, "2.5", usage.UsedAnnualLeave.String())
	assert.Equal(t, 4, usage.RemainingAnnualLeave)
	assert.Equal(t, "3.5", usage.BalanceRemaining.String())

	_, err = svc.Usage(ctx, "nobody")
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestDeleteByEmployeeReturnsCertificates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeDirectory("e1", "e2"))

	_, _, err := svc.Submit(ctx, SubmitInput{EmployeeID: "e1", LeaveType: TypeSick, StartDate: "2025-03-02", EndDate: "2025-03-02", MedicalCertificate: "cert.pdf"})
	require.NoError(t, err)
	_, _, err = svc.Submit(ctx, SubmitInput{EmployeeID: "e2", LeaveType: TypeSick, StartDate: "2025-03-02", EndDate: "2025-03-02"})
	require.NoError(t, err)

	names, err := svc.DeleteByEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cert.pdf"}, names)

	rest, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "e2", rest[0].EmployeeID)
}
