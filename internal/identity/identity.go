// Package identity resolves who is making a request: email/password and
// Google sign-in, cookie-backed sessions and the per-request auth context.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
)

// SessionCookieName carries the opaque session token.
const SessionCookieName = "taskflow_session"

type contextKey int

const authKey contextKey = iota

// AuthContext is the explicit authentication state of one request or page.
// A zero AuthContext is anonymous.
type AuthContext struct {
	User    *domain.User
	Session *domain.Session
}

// Authenticated reports whether a user is signed in.
func (a *AuthContext) Authenticated() bool {
	return a != nil && a.User != nil
}

// UserID returns the signed-in user's id, or "".
func (a *AuthContext) UserID() string {
	if !a.Authenticated() {
		return ""
	}
	return a.User.UserID
}

var anonymous = &AuthContext{}

// WithAuth returns a copy of ctx carrying auth.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authKey, auth)
}

// FromContext returns the auth context of ctx. It never returns nil.
func FromContext(ctx context.Context) *AuthContext {
	if v, ok := ctx.Value(authKey).(*AuthContext); ok && v != nil {
		return v
	}
	return anonymous
}

// UserIDFromContext extracts the signed-in user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	return FromContext(ctx).UserID()
}

// Middleware resolves the session cookie into an AuthContext. Requests
// without a valid session continue anonymously; a stale cookie is cleared.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(SessionCookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			auth, err := svc.Authenticate(r.Context(), c.Value)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					slog.Error("Failed to resolve session", "error", err)
					http.Error(w, `{"error":"failed to resolve session"}`, http.StatusInternalServerError)
					return
				}
				ClearSessionCookie(w, svc.SecureCookies())
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), auth)))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie writes the session token cookie.
func SetSessionCookie(w http.ResponseWriter, session *domain.Session, secure bool) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// ClearSessionCookie expires the session token cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// IPFromRequest returns a normalized remote IP for rate limiting.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
