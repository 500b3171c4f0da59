package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"staffdesk/internal/platform/querier"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorID    string
}

type StoreAPI interface {
	Insert(ctx context.Context, evt Event) error
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Service struct {
	Store StoreAPI
}

func New(store StoreAPI) *Service {
	return &Service{Store: store}
}

// Record stores an audit event. Failures are logged and never block the
// request that triggered them.
func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) {
	if s == nil || s.Store == nil {
		return
	}
	evt := Event{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestID,
		IP:         ip,
	}
	var err error
	if evt.Before, err = marshalSnapshot(before); err != nil {
		slog.Warn("audit snapshot failed", "action", action, "err", err)
		return
	}
	if evt.After, err = marshalSnapshot(after); err != nil {
		slog.Warn("audit snapshot failed", "action", action, "err", err)
		return
	}
	if err := s.Store.Insert(ctx, evt); err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, int, error) {
	total, err := s.Store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	events, err := s.Store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Prune deletes events older than retentionDays. Zero or less keeps everything.
func (s *Service) Prune(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	if s == nil || retentionDays <= 0 {
		return 0, nil
	}
	return s.Store.DeleteBefore(ctx, now.AddDate(0, 0, -retentionDays))
}

func marshalSnapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Insert(ctx context.Context, evt Event) error {
	var before, after []byte
	if len(evt.Before) > 0 {
		before = evt.Before
	}
	if len(evt.After) > 0 {
		after = evt.After
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, before, after, evt.RequestID, evt.IP)
	return err
}

func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM audit_events WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query, args := buildBaseQuery("SELECT id, actor_id, action, entity_type, entity_id, request_id, ip, created_at, before_json, after_json", filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var evt Event
		var before, after []byte
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt, &before, &after); err != nil {
			return nil, err
		}
		evt.Before = before
		evt.After = after
		out = append(out, evt)
	}
	return out, rows.Err()
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE 1=1"
	var args []any
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	return query, args
}
