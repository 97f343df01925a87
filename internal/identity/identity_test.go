package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/taskflow/internal/store"
)

func TestMiddlewareResolvesSession(t *testing.T) {
	svc, _ := newTestService(t)
	auth, err := svc.SignUpWithEmail(context.Background(), "m@example.com", "secret1", "Mia")
	if err != nil {
		t.Fatalf("SignUpWithEmail failed: %v", err)
	}

	var seen string
	h := Middleware(svc)(RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: auth.Session.Token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if seen != auth.UserID() {
		t.Fatalf("user id in context = %q, want %q", seen, auth.UserID())
	}
}

func TestMiddlewareAnonymousAndStaleCookie(t *testing.T) {
	svc, _ := newTestService(t)
	h := Middleware(svc)(RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("anonymous request reached handler")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("stale cookie should be cleared")
	}
}

func TestFromContextDefaultsToAnonymous(t *testing.T) {
	auth := FromContext(context.Background())
	if auth == nil || auth.Authenticated() || auth.UserID() != "" {
		t.Fatalf("expected anonymous auth context, got %+v", auth)
	}
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	if got := IPFromRequest(req); got != "10.1.2.3" {
		t.Fatalf("IPFromRequest = %q", got)
	}
	req.RemoteAddr = "weird"
	if got := IPFromRequest(req); got != "weird" {
		t.Fatalf("IPFromRequest = %q", got)
	}
}

// busyRepo fails DeleteExpiredSessions a fixed number of times.
type busyRepo struct {
	store.Repository
	failures int
	calls    int
}

func (b *busyRepo) DeleteExpiredSessions(context.Context, time.Time) (int64, error) {
	b.calls++
	if b.calls <= b.failures {
		return 0, errors.New("database is locked (5) (SQLITE_BUSY)")
	}
	return 2, nil
}

func TestSweepRetriesOnBusy(t *testing.T) {
	repo := &busyRepo{failures: 2}
	if got := sweepExpiredSessions(context.Background(), repo, time.Now()); got != 2 {
		t.Fatalf("deleted = %d, want 2", got)
	}
	if repo.calls != 3 {
		t.Fatalf("calls = %d, want 3", repo.calls)
	}

	repo = &busyRepo{failures: 5}
	if got := sweepExpiredSessions(context.Background(), repo, time.Now()); got != 0 {
		t.Fatalf("deleted = %d, want 0 after exhausting retries", got)
	}
	if repo.calls != 3 {
		t.Fatalf("calls = %d, want 3", repo.calls)
	}
}

func TestSweepRemovesExpiredSessions(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	svc, repo := newTestService(t, WithClock(func() time.Time { return now }))
	auth, err := svc.SignUpWithEmail(context.Background(), "s@example.com", "secret1", "")
	if err != nil {
		t.Fatalf("SignUpWithEmail failed: %v", err)
	}

	if got := sweepExpiredSessions(context.Background(), repo, now.Add(2*time.Hour)); got != 1 {
		t.Fatalf("deleted = %d, want 1", got)
	}
	sess, err := repo.GetSession(context.Background(), auth.Session.Token)
	if err != nil || sess != nil {
		t.Fatalf("session should be gone, got %+v, %v", sess, err)
	}
}
