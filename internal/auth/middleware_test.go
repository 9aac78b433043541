package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gomflow/internal/common"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, email string, expiry time.Time) string {
	t.Helper()
	builder := jwt.NewBuilder().
		Issuer("gomflow-test").
		Expiration(expiry).
		IssuedAt(time.Now())
	if email != "" {
		builder = builder.Claim("email", email)
	}
	tok, err := builder.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)
	return string(signed)
}

func identityEcho() (http.Handler, *string) {
	var got string
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if email, ok := common.Identity(r.Context()); ok {
			got = email
		}
		w.WriteHeader(http.StatusOK)
	}), &got
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	svc := NewService(testSecret, "gomflow-test", time.Minute)
	next, got := identityEcho()
	handler := Middleware{Service: svc}.RequireAuth(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "Creator@Example.com", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "creator@example.com", *got)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	svc := NewService(testSecret, "gomflow-test", time.Minute)
	next, _ := identityEcho()
	handler := Middleware{Service: svc}.RequireAuth(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	svc := NewService(testSecret, "gomflow-test", 0)
	next, _ := identityEcho()
	handler := Middleware{Service: svc}.RequireAuth(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "creator@example.com", time.Now().Add(-time.Hour)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsWrongSecret(t *testing.T) {
	svc := NewService("another-secret", "gomflow-test", time.Minute)
	next, _ := identityEcho()
	handler := Middleware{Service: svc}.RequireAuth(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "creator@example.com", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsTokenWithoutIdentity(t *testing.T) {
	svc := NewService(testSecret, "gomflow-test", time.Minute)
	next, _ := identityEcho()
	handler := Middleware{Service: svc}.RequireAuth(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatePassesThroughAnonymously(t *testing.T) {
	svc := NewService(testSecret, "gomflow-test", time.Minute)
	next, got := identityEcho()
	handler := Middleware{Service: svc}.Authenticate(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, *got)
}

func TestAdminOnly(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := AdminOnly("s3cret")(next)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
