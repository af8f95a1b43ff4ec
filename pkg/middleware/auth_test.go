package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"examprep-contest-core/internal/auth"
)

type fakeAuthorizer struct {
	userID string
	err    error
}

func (f fakeAuthorizer) Authorize(ctx context.Context, accessToken string) (string, error) {
	return f.userID, f.err
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	mw := AuthMiddleware(fakeAuthorizer{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	})).ServeHTTP(rec, req)

	assertAuthErrorBody(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthMiddlewareSessionExpired(t *testing.T) {
	mw := AuthMiddleware(fakeAuthorizer{err: auth.ErrSessionExpired})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	})).ServeHTTP(rec, req)

	assertAuthErrorBody(t, rec, http.StatusUnauthorized, "SESSION_EXPIRED")
}

func TestAuthMiddlewareUnauthorized(t *testing.T) {
	mw := AuthMiddleware(fakeAuthorizer{err: auth.ErrUnauthorized})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	})).ServeHTTP(rec, req)

	assertAuthErrorBody(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthMiddlewareSuccessSetsContext(t *testing.T) {
	mw := AuthMiddleware(fakeAuthorizer{userID: "user-1"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")

	var gotUserID string
	var gotOK bool
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, gotOK = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if !gotOK || gotUserID != "user-1" {
		t.Errorf("got (%q, %v), want (user-1, true)", gotUserID, gotOK)
	}
}

func assertAuthErrorBody(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("got status %d, want %d", rec.Code, wantStatus)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Code != wantCode {
		t.Errorf("got code %q, want %q", body.Code, wantCode)
	}
}
