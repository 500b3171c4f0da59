package authhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/domain/audit"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/platform/crypto"
	"staffdesk/internal/transport/http/middleware"
)

const secret = "auth-handler-secret"

func newRouter(t *testing.T) (http.Handler, *audit.MemoryStore) {
	t.Helper()
	sealer, err := crypto.NewSealer("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	svc := employees.NewService(employees.NewMemoryStore(), sealer, "staffdesk-test")
	_, err = svc.Create(context.Background(), employees.CreateInput{Name: "Bo", Email: "Bo@Example.com", Password: "Password1!"})
	require.NoError(t, err)

	auditStore := audit.NewMemoryStore()
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(secret))
	NewHandler(svc, audit.New(auditStore), secret, time.Hour).RegisterRoutes(r)
	return r, auditStore
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func data(env map[string]any) map[string]any {
	out, _ := env["data"].(map[string]any)
	return out
}

func errorCode(env map[string]any) string {
	e, _ := env["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestLoginIssuesToken(t *testing.T) {
	h, auditStore := newRouter(t)

	status, env := call(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": "bo@example.com", "password": "Password1!"})
	require.Equal(t, http.StatusOK, status)
	token, _ := data(env)["token"].(string)
	require.NotEmpty(t, token)
	assert.EqualValues(t, 3600, data(env)["expiresIn"])

	status, env = call(t, h, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bo@example.com", data(env)["email"])

	count, err := auditStore.Count(context.Background(), audit.Filter{Action: "auth.login"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h, _ := newRouter(t)

	status, env := call(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": "bo@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_credentials", errorCode(env))

	status, env = call(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "Password1!"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_credentials", errorCode(env))

	status, env = call(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", errorCode(env))

	status, _ = call(t, h, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMFAEnrollmentAndLogin(t *testing.T) {
	h, _ := newRouter(t)
	creds := map[string]string{"email": "bo@example.com", "password": "Password1!"}

	_, env := call(t, h, http.MethodPost, "/auth/login", "", creds)
	token := data(env)["token"].(string)

	status, env := call(t, h, http.MethodPost, "/auth/mfa/enable", token, map[string]string{"code": "123456"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "mfa_missing", errorCode(env))

	status, env = call(t, h, http.MethodPost, "/auth/mfa/setup", token, nil)
	require.Equal(t, http.StatusOK, status)
	mfaSecret, _ := data(env)["secret"].(string)
	require.NotEmpty(t, mfaSecret)
	assert.Contains(t, data(env)["otpauthUrl"], "otpauth://")

	status, env = call(t, h, http.MethodPost, "/auth/mfa/enable", token, map[string]string{"code": "000000"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "mfa_invalid", errorCode(env))

	code, err := totp.GenerateCode(mfaSecret, time.Now())
	require.NoError(t, err)
	status, _ = call(t, h, http.MethodPost, "/auth/mfa/enable", token, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, h, http.MethodPost, "/auth/login", "", creds)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "mfa_required", errorCode(env))

	status, _ = call(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": creds["email"], "password": creds["password"], "mfaCode": code})
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, h, http.MethodPost, "/auth/mfa/disable", token, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, h, http.MethodPost, "/auth/login", "", creds)
	assert.Equal(t, http.StatusOK, status)
}
