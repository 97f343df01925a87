package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
	"github.com/ashureev/taskflow/internal/shared"
	"github.com/ashureev/taskflow/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	// ErrInvalidCredentials is returned when email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword is returned for passwords below MinPasswordLength.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	// ErrNoSession is returned when a token does not name a live session.
	ErrNoSession = errors.New("no active session")
)

// Service signs users in and out and resolves session tokens.
type Service struct {
	repo          store.Repository
	ttl           time.Duration
	secureCookies bool
	google        *GoogleProvider
	now           func() time.Time
	bcryptCost    int
}

// Option configures a Service.
type Option func(*Service)

// WithGoogle enables Google sign-in.
func WithGoogle(p *GoogleProvider) Option {
	return func(s *Service) { s.google = p }
}

// WithSecureCookies marks session cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Service) { s.secureCookies = secure }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// NewService creates an authentication service whose sessions last ttl.
func NewService(repo store.Repository, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		ttl:        ttl,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SecureCookies reports whether session cookies should be Secure.
func (s *Service) SecureCookies() bool { return s.secureCookies }

// GoogleEnabled reports whether Google sign-in is configured.
func (s *Service) GoogleEnabled() bool { return s.google != nil }

// SignUpWithEmail registers a new email/password account and signs it in.
func (s *Service) SignUpWithEmail(ctx context.Context, email, password, name string) (*AuthContext, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		UserID:       uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Provider:     domain.ProviderEmail,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}

	slog.Info("User signed up", "user_id", user.UserID, "provider", user.Provider)
	return s.startSession(ctx, user)
}

// SignInWithEmail checks the password and starts a session.
func (s *Service) SignInWithEmail(ctx context.Context, email, password string) (*AuthContext, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// SignOut ends the session named by token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return shared.RetryOnConflict(ctx, "sign out", shared.DefaultRetryPolicy, func() error {
		return s.repo.DeleteSession(ctx, token)
	})
}

// Authenticate resolves a session token. Expired sessions are deleted and
// reported as ErrNoSession.
func (s *Service) Authenticate(ctx context.Context, token string) (*AuthContext, error) {
	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, ErrNoSession
	}
	if session.Expired(s.now()) {
		if err := s.repo.DeleteSession(ctx, token); err != nil {
			slog.Warn("Failed to delete expired session", "user_id", session.UserID, "error", err)
		}
		return nil, ErrNoSession
	}

	user, err := s.repo.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if user == nil {
		return nil, ErrNoSession
	}
	return &AuthContext{User: user, Session: session}, nil
}

func (s *Service) startSession(ctx context.Context, user *domain.User) (*AuthContext, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.Session{
		Token:     token,
		UserID:    user.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &AuthContext{User: user, Session: session}, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
