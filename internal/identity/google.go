package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/taskflow/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	// ErrGoogleDisabled is returned when Google sign-in is not configured.
	ErrGoogleDisabled = errors.New("google sign-in is not configured")
	// ErrEmailUnverified is returned when Google reports an unverified email.
	ErrEmailUnverified = errors.New("google account email is not verified")
)

// GoogleProfile is the subset of the Google user profile we keep.
type GoogleProfile struct {
	ID       string
	Email    string
	Name     string
	Picture  string
	Verified bool
}

// GoogleProvider runs the OAuth 2.0 authorization code flow against Google.
type GoogleProvider struct {
	config *oauth2.Config
	// profileOpts are extra client options for the userinfo API.
	profileOpts []option.ClientOption
}

// NewGoogleProvider creates a provider for the given OAuth client.
func NewGoogleProvider(clientID, clientSecret, redirectURL string, opts ...option.ClientOption) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				oauth2api.OpenIDScope,
				oauth2api.UserinfoEmailScope,
				oauth2api.UserinfoProfileScope,
			},
		},
		profileOpts: opts,
	}
}

// WithEndpoint points the OAuth flow at a different authorization server.
func (p *GoogleProvider) WithEndpoint(ep oauth2.Endpoint) *GoogleProvider {
	p.config.Endpoint = ep
	return p
}

// AuthCodeURL returns the consent page URL for state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for the user's profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(p.config.TokenSource(ctx, tok))}, p.profileOpts...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch google profile: %w", err)
	}

	profile := &GoogleProfile{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}
	if info.VerifiedEmail != nil {
		profile.Verified = *info.VerifiedEmail
	}
	return profile, nil
}

// NewOAuthState returns a random value to bind the callback to the request
// that started the flow.
func NewOAuthState() (string, error) {
	return generateToken()
}

// GoogleAuthURL returns the consent page URL, or ErrGoogleDisabled.
func (s *Service) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrGoogleDisabled
	}
	return s.google.AuthCodeURL(state), nil
}

// CompleteGoogleSignIn exchanges code and signs the Google account in,
// creating the user on first sign-in and refreshing name and avatar after.
func (s *Service) CompleteGoogleSignIn(ctx context.Context, code string) (*AuthContext, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if !profile.Verified {
		return nil, ErrEmailUnverified
	}
	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("google sign in: %w", err)
	}

	if user == nil {
		now := s.now()
		user = &domain.User{
			UserID:    uuid.NewString(),
			Email:     email,
			Name:      profile.Name,
			AvatarURL: profile.Picture,
			Provider:  domain.ProviderGoogle,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("google sign up: %w", err)
		}
		slog.Info("User signed up", "user_id", user.UserID, "provider", user.Provider)
	} else if user.Name != profile.Name || user.AvatarURL != profile.Picture {
		if err := s.repo.UpdateUserProfile(ctx, user.UserID, profile.Name, profile.Picture); err != nil {
			slog.Warn("Failed to refresh google profile", "user_id", user.UserID, "error", err)
		} else {
			user.Name = profile.Name
			user.AvatarURL = profile.Picture
			user.UpdatedAt = s.now()
		}
	}

	return s.startSession(ctx, user)
}
