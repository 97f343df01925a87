package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/taskflow/internal/dashboard"
	"github.com/ashureev/taskflow/internal/identity"
	"github.com/ashureev/taskflow/internal/middleware"
	"github.com/go-chi/chi/v5"
)

const oauthStateCookie = "taskflow_oauth_state"

// PageCloser closes every live page a user has open.
type PageCloser interface {
	CloseUser(userID string)
}

// AuthHandler serves sign-up, sign-in and sign-out.
type AuthHandler struct {
	*Handler
	auth    *identity.Service
	pages   PageCloser
	limiter *middleware.RateLimiter
}

// NewAuthHandler creates an auth handler. limiter may be nil to disable
// throttling of the sign-in endpoints.
func NewAuthHandler(base *Handler, auth *identity.Service, pages PageCloser, limiter *middleware.RateLimiter) *AuthHandler {
	return &AuthHandler{Handler: base, auth: auth, pages: pages, limiter: limiter}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if h.limiter != nil {
				r.Use(middleware.Limit(h.limiter, identity.IPFromRequest))
			}
			r.Post("/signup", h.SignUp)
			r.Post("/signin", h.SignIn)
			r.Get("/google", h.GoogleStart)
			r.Get("/google/callback", h.GoogleCallback)
		})
		r.With(identity.RequireUser).Post("/signout", h.SignOut)
	})
	r.With(identity.RequireUser).Get("/api/me", h.GetMe)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type sessionResponse struct {
	User dashboard.Header `json:"user"`
	ID   string           `json:"id"`
}

func headerFor(auth *identity.AuthContext) sessionResponse {
	return sessionResponse{
		ID: auth.User.UserID,
		User: dashboard.Header{
			Name:   auth.User.DisplayName(),
			Email:  auth.User.Email,
			Avatar: auth.User.AvatarURL,
		},
	}
}

// SignUp registers an email/password account and signs it in.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	auth, err := h.auth.SignUpWithEmail(r.Context(), c.Email, c.Password, c.Name)
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		Error(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrWeakPassword):
		Error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("Sign up failed", "error", err)
		Error(w, http.StatusInternalServerError, "sign up failed")
		return
	}

	identity.SetSessionCookie(w, auth.Session, h.auth.SecureCookies())
	JSON(w, http.StatusCreated, headerFor(auth))
}

// SignIn checks email/password and starts a session.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	auth, err := h.auth.SignInWithEmail(r.Context(), c.Email, c.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		Error(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		slog.Error("Sign in failed", "error", err)
		Error(w, http.StatusInternalServerError, "sign in failed")
		return
	}

	slog.Info("User signed in", "user_id", auth.UserID())
	identity.SetSessionCookie(w, auth.Session, h.auth.SecureCookies())
	JSON(w, http.StatusOK, headerFor(auth))
}

// GoogleStart redirects to the Google consent page.
func (h *AuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	if !h.auth.GoogleEnabled() {
		Error(w, http.StatusNotFound, identity.ErrGoogleDisabled.Error())
		return
	}

	state, err := identity.NewOAuthState()
	if err != nil {
		slog.Error("Failed to create oauth state", "error", err)
		Error(w, http.StatusInternalServerError, "failed to start sign-in")
		return
	}
	url, err := h.auth.GoogleAuthURL(state)
	if err != nil {
		Error(w, http.StatusNotFound, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.auth.SecureCookies(),
	})
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback completes the Google flow and redirects to the app.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(oauthStateCookie)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		Error(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/api/auth/google", MaxAge: -1})

	if msg := r.URL.Query().Get("error"); msg != "" {
		slog.Warn("Google sign-in was declined", "error", msg)
		http.Redirect(w, r, h.appURL()+"?error=google_signin_failed", http.StatusFound)
		return
	}

	auth, err := h.auth.CompleteGoogleSignIn(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Error("Google sign-in failed", "error", err)
		http.Redirect(w, r, h.appURL()+"?error=google_signin_failed", http.StatusFound)
		return
	}

	slog.Info("User signed in", "user_id", auth.UserID(), "provider", "google")
	identity.SetSessionCookie(w, auth.Session, h.auth.SecureCookies())
	http.Redirect(w, r, h.appURL(), http.StatusFound)
}

// SignOut ends the session and closes the user's live pages.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	auth := identity.FromContext(r.Context())
	if err := h.auth.SignOut(r.Context(), auth.Session.Token); err != nil {
		slog.Error("Sign out failed", "user_id", auth.UserID(), "error", err)
		Error(w, http.StatusInternalServerError, "sign out failed")
		return
	}
	if h.pages != nil {
		h.pages.CloseUser(auth.UserID())
	}

	slog.Info("User signed out", "user_id", auth.UserID())
	identity.ClearSessionCookie(w, h.auth.SecureCookies())
	JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// GetMe returns the signed-in user's identity.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	auth := identity.FromContext(r.Context())

	user, err := h.repo.GetUser(r.Context(), auth.UserID())
	if err != nil || user == nil {
		slog.Error("Failed to load user", "user_id", auth.UserID(), "error", err)
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}
	JSON(w, http.StatusOK, headerFor(&identity.AuthContext{User: user, Session: auth.Session}))
}

func (h *AuthHandler) appURL() string {
	if h.frontendRedirectURL == "" {
		return "/"
	}
	return h.frontendRedirectURL
}
