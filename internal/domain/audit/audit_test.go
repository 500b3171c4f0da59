package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	svc := New(NewMemoryStore())

	svc.Record(ctx, "admin-1", "employee.create", "employee", "e1", "req-1", "10.0.0.1", nil, map[string]string{"name": "Dana"})
	svc.Record(ctx, "admin-1", "leave.update", "leave", "l1", "req-2", "10.0.0.1", map[string]string{"status": "Pending"}, map[string]string{"status": "Approved"})
	svc.Record(ctx, "e1", "auth.mfa_enable", "employee", "e1", "req-3", "10.0.0.2", nil, nil)

	events, total, err := svc.List(ctx, Filter{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, events, 2)
	assert.Equal(t, "auth.mfa_enable", events[0].Action)
	assert.NotEmpty(t, events[0].ID)

	events, total, err = svc.List(ctx, Filter{ActorID: "admin-1", EntityType: "leave"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"status":"Approved"}`, string(events[0].After))
	assert.JSONEq(t, `{"status":"Pending"}`, string(events[0].Before))

	events, _, err = svc.List(ctx, Filter{}, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecordWithoutStoreIsNoop(t *testing.T) {
	var svc *Service
	svc.Record(context.Background(), "a", "b", "c", "d", "e", "f", nil, nil)
}

func TestBuildBaseQuery(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{Action: "leave.update", ActorID: "a1"})
	assert.Equal(t, "SELECT COUNT(1) FROM audit_events WHERE 1=1 AND action = $1 AND actor_id = $2", query)
	assert.Equal(t, []any{"leave.update", "a1"}, args)
}

func TestPruneRespectsRetention(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := New(store)
	svc.Record(ctx, "admin-1", "employee.create", "employee", "e1", "req-1", "", nil, nil)

	deleted, err := svc.Prune(ctx, 0, time.Now().AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = svc.Prune(ctx, 30, time.Now())
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = svc.Prune(ctx, 30, time.Now().AddDate(0, 0, 31))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := store.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}
