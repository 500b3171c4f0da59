package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/platform/metrics"
)

func TestRunNowRecordsOutcome(t *testing.T) {
	collector := metrics.New()
	svc := New(collector)

	details, err := svc.RunNow(context.Background(), JobIdempotencyPurge, func(context.Context) (any, error) {
		return map[string]int64{"deleted": 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"deleted": 3}, details)

	_, err = svc.RunNow(context.Background(), JobIdempotencyPurge, func(context.Context) (any, error) {
		return nil, errors.New("db down")
	})
	require.Error(t, err)

	outcomes := collector.Snapshot()["outcomes"].(map[string]map[string]uint64)
	assert.Equal(t, uint64(1), outcomes["job_"+JobIdempotencyPurge]["completed"])
	assert.Equal(t, uint64(1), outcomes["job_"+JobIdempotencyPurge]["failed"])
}

func TestScheduledJobRunsUntilCancelled(t *testing.T) {
	svc := New(nil)
	var runs atomic.Int32
	svc.Schedule(JobAuditRetention, 5*time.Millisecond, func(context.Context) (any, error) {
		runs.Add(1)
		return nil, nil
	})
	svc.Schedule("disabled", 0, func(context.Context) (any, error) {
		t.Error("disabled job must not run")
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
}
