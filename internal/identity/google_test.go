package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, profileJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(profileJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFakeProvider(srv *httptest.Server) *GoogleProvider {
	return NewGoogleProvider("client-id", "client-secret", "http://localhost/callback",
		option.WithEndpoint(srv.URL+"/"),
	).WithEndpoint(oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	})
}

func TestGoogleAuthURL(t *testing.T) {
	srv := fakeGoogle(t, `{}`)
	svc, _ := newTestService(t, WithGoogle(newFakeProvider(srv)))

	raw, err := svc.GoogleAuthURL("xyz")
	if err != nil {
		t.Fatalf("GoogleAuthURL failed: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "xyz" || q.Get("client_id") != "client-id" || q.Get("response_type") != "code" {
		t.Fatalf("unexpected auth url query: %v", q)
	}
}

func TestCompleteGoogleSignIn(t *testing.T) {
	srv := fakeGoogle(t, `{"id":"g-1","email":"Grace@Example.com","verified_email":true,"name":"Grace","picture":"https://img/grace.png"}`)
	svc, repo := newTestService(t, WithGoogle(newFakeProvider(srv)))
	ctx := context.Background()

	auth, err := svc.CompleteGoogleSignIn(ctx, "good-code")
	if err != nil {
		t.Fatalf("CompleteGoogleSignIn failed: %v", err)
	}
	if auth.User.Email != "grace@example.com" || auth.User.Name != "Grace" || auth.User.AvatarURL != "https://img/grace.png" {
		t.Fatalf("unexpected user: %+v", auth.User)
	}

	again, err := svc.CompleteGoogleSignIn(ctx, "good-code")
	if err != nil {
		t.Fatalf("second sign-in failed: %v", err)
	}
	if again.UserID() != auth.UserID() {
		t.Fatal("returning google user must map to the same account")
	}

	stored, err := repo.GetUserByEmail(ctx, "grace@example.com")
	if err != nil || stored == nil || stored.PasswordHash != "" {
		t.Fatalf("unexpected stored user: %+v, %v", stored, err)
	}

	if _, err := svc.CompleteGoogleSignIn(ctx, "bad-code"); err == nil {
		t.Fatal("expected exchange failure for bad code")
	}
}

func TestCompleteGoogleSignInRequiresVerifiedEmail(t *testing.T) {
	srv := fakeGoogle(t, `{"id":"g-2","email":"x@example.com","verified_email":false}`)
	svc, _ := newTestService(t, WithGoogle(newFakeProvider(srv)))

	if _, err := svc.CompleteGoogleSignIn(context.Background(), "good-code"); !errors.Is(err, ErrEmailUnverified) {
		t.Fatalf("expected ErrEmailUnverified, got %v", err)
	}
}
