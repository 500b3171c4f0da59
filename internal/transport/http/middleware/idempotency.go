package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"staffdesk/internal/platform/querier"
	"staffdesk/internal/transport/http/api"
)

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

const IdempotencyHeader = "Idempotency-Key"

// StoredResponse is a replayable response saved under an idempotency key.
type StoredResponse struct {
	Status int
	Body   json.RawMessage
}

type IdempotencyStore interface {
	Check(ctx context.Context, userID, endpoint, key, requestHash string) (StoredResponse, bool, error)
	Save(ctx context.Context, userID, endpoint, key, requestHash string, resp StoredResponse) error
	// Purge drops keys saved before cutoff and reports how many went.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type bufferingRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bufferingRecorder) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferingRecorder) Write(p []byte) (int, error) {
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key from the same caller. Requests without the header or
// without an authenticated caller pass through.
func Idempotency(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			user, ok := GetUser(r.Context())
			if store == nil || key == "" || !ok || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			requestID := GetRequestID(r.Context())
			if len(key) > 128 {
				api.Fail(w, http.StatusBadRequest, "invalid_idempotency_key", "idempotency key too long", requestID)
				return
			}

			raw, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))
			hash := RequestHash(append([]byte(r.Header.Get("Content-Type")+"\n"), raw...))
			endpoint := r.Method + " " + r.URL.Path

			stored, found, err := store.Check(r.Context(), user.UserID, endpoint, key, hash)
			if errors.Is(err, ErrIdempotencyConflict) {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different payload", requestID)
				return
			}
			if err != nil {
				slog.Warn("idempotency check failed", "err", err, "requestId", requestID)
				api.Fail(w, http.StatusInternalServerError, "idempotency_error", "idempotency check failed", requestID)
				return
			}
			if found {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replay", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			recorder := &bufferingRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			if recorder.status < 200 || recorder.status >= 300 {
				return
			}
			body := bytes.TrimSpace(recorder.body.Bytes())
			if !json.Valid(body) {
				return
			}
			if err := store.Save(r.Context(), user.UserID, endpoint, key, hash, StoredResponse{Status: recorder.status, Body: body}); err != nil {
				slog.Warn("idempotency save failed", "err", err, "requestId", requestID)
			}
		})
	}
}

type PostgresIdempotencyStore struct {
	db querier.Querier
}

func NewIdempotencyStore(db querier.Querier) *PostgresIdempotencyStore {
	return &PostgresIdempotencyStore{db: db}
}

func (s *PostgresIdempotencyStore) Check(ctx context.Context, userID, endpoint, key, requestHash string) (StoredResponse, bool, error) {
	var storedHash string
	var resp StoredResponse
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, status_code, response_json
    FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
  `, userID, key, endpoint).Scan(&storedHash, &resp.Status, &resp.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredResponse{}, false, nil
	}
	if err != nil {
		return StoredResponse{}, false, err
	}
	if storedHash != requestHash {
		return StoredResponse{}, false, ErrIdempotencyConflict
	}
	return resp, true, nil
}

func (s *PostgresIdempotencyStore) Save(ctx context.Context, userID, endpoint, key, requestHash string, resp StoredResponse) error {
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash, status_code, response_json)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (user_id, key, endpoint)
    DO UPDATE SET response_json = EXCLUDED.response_json, status_code = EXCLUDED.status_code
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
  `, userID, key, endpoint, requestHash, resp.Status, []byte(resp.Body))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

func (s *PostgresIdempotencyStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM idempotency_keys WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type memoryIdempotencyEntry struct {
	hash    string
	resp    StoredResponse
	savedAt time.Time
}

type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryIdempotencyEntry
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: map[string]memoryIdempotencyEntry{}}
}

func idempotencyKey(userID, endpoint, key string) string {
	return userID + "\x00" + endpoint + "\x00" + key
}

func (s *MemoryIdempotencyStore) Check(_ context.Context, userID, endpoint, key, requestHash string) (StoredResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[idempotencyKey(userID, endpoint, key)]
	if !ok {
		return StoredResponse{}, false, nil
	}
	if entry.hash != requestHash {
		return StoredResponse{}, false, ErrIdempotencyConflict
	}
	return entry.resp, true, nil
}

func (s *MemoryIdempotencyStore) Save(_ context.Context, userID, endpoint, key, requestHash string, resp StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idempotencyKey(userID, endpoint, key)
	if entry, ok := s.entries[k]; ok && entry.hash != requestHash {
		return ErrIdempotencyConflict
	}
	s.entries[k] = memoryIdempotencyEntry{hash: requestHash, resp: resp, savedAt: time.Now()}
	return nil
}

func (s *MemoryIdempotencyStore) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for k, entry := range s.entries {
		if entry.savedAt.Before(cutoff) {
			delete(s.entries, k)
			purged++
		}
	}
	return purged, nil
}
