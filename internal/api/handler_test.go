//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/taskflow/internal/config"
	"github.com/ashureev/taskflow/internal/domain"
	"github.com/ashureev/taskflow/internal/identity"
	"github.com/ashureev/taskflow/internal/notify"
	"github.com/ashureev/taskflow/internal/store"
	"github.com/ashureev/taskflow/internal/tasks"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestTaskError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantToast bool
	}{
		{"validation", fmt.Errorf("%w: title is required", tasks.ErrInvalidTask), http.StatusBadRequest, false},
		{"missing row", &tasks.PersistenceError{Op: tasks.OpDelete, TaskID: "t1", Err: store.ErrNotFound}, http.StatusNotFound, true},
		{"store down", &tasks.PersistenceError{Op: tasks.OpList, Err: errors.New("disk I/O error")}, http.StatusBadGateway, true},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			TaskError(w, tt.err)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			var body errorBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if (body.Toast != nil) != tt.wantToast {
				t.Fatalf("toast present = %v, want %v", body.Toast != nil, tt.wantToast)
			}
			if tt.wantToast && body.Toast.Variant != notify.VariantDestructive {
				t.Fatalf("toast variant = %q", body.Toast.Variant)
			}
		})
	}
}

type recordingCloser struct {
	mu     sync.Mutex
	closed []string
}

func (r *recordingCloser) CloseUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, userID)
}

type testServer struct {
	*httptest.Server
	pages *recordingCloser
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	cfg := &config.Config{
		Assistant: config.AssistantConfig{ChatDelay: 1500 * time.Millisecond, VoiceDelay: time.Second},
	}
	auth := identity.NewService(repo, time.Hour, identity.WithBcryptCost(bcrypt.MinCost))
	pages := &recordingCloser{}
	base := NewHandler(repo, "", true)

	r := chi.NewRouter()
	r.Use(identity.Middleware(auth))
	NewAuthHandler(base, auth, pages, nil).RegisterRoutes(r)
	NewTaskHandler(base, tasks.NewService(repo)).RegisterRoutes(r)
	NewAssistantHandler(base).RegisterRoutes(r)
	NewConfigHandler(base, cfg).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, pages: pages}
}

// client returns an HTTP client with its own cookie jar.
func (s *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *testServer) do(t *testing.T, c *http.Client, method, path string, body, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *testServer) signUp(t *testing.T, c *http.Client, email string) sessionResponse {
	t.Helper()
	var out sessionResponse
	code := s.do(t, c, http.MethodPost, "/api/auth/signup", credentials{Email: email, Password: "secret1", Name: "Ada"}, &out)
	if code != http.StatusCreated {
		t.Fatalf("signup status = %d", code)
	}
	return out
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	if code := s.do(t, c, http.MethodGet, "/api/me", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous /api/me status = %d, want 401", code)
	}

	me := s.signUp(t, c, "ada@example.com")
	if me.User.Email != "ada@example.com" || me.User.Name != "Ada" || me.ID == "" {
		t.Fatalf("unexpected session: %+v", me)
	}

	if code := s.do(t, s.client(t), http.MethodPost, "/api/auth/signup",
		credentials{Email: "ada@example.com", Password: "secret1"}, nil); code != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d, want 409", code)
	}
	if code := s.do(t, s.client(t), http.MethodPost, "/api/auth/signup",
		credentials{Email: "bob@example.com", Password: "123"}, nil); code != http.StatusBadRequest {
		t.Fatalf("weak password status = %d, want 400", code)
	}

	var got sessionResponse
	if code := s.do(t, c, http.MethodGet, "/api/me", nil, &got); code != http.StatusOK || got.ID != me.ID {
		t.Fatalf("/api/me = %d %+v", code, got)
	}

	if code := s.do(t, c, http.MethodPost, "/api/auth/signout", nil, nil); code != http.StatusOK {
		t.Fatalf("signout status = %d", code)
	}
	if len(s.pages.closed) != 1 || s.pages.closed[0] != me.ID {
		t.Fatalf("live pages not closed: %v", s.pages.closed)
	}
	if code := s.do(t, c, http.MethodGet, "/api/me", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("/api/me after signout = %d, want 401", code)
	}

	other := s.client(t)
	if code := s.do(t, other, http.MethodPost, "/api/auth/signin",
		credentials{Email: "ada@example.com", Password: "wrong1"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", code)
	}
	if code := s.do(t, other, http.MethodPost, "/api/auth/signin",
		credentials{Email: "ada@example.com", Password: "secret1"}, nil); code != http.StatusOK {
		t.Fatalf("signin status = %d", code)
	}
}

func TestGoogleDisabled(t *testing.T) {
	s := newTestServer(t)
	if code := s.do(t, s.client(t), http.MethodGet, "/api/auth/google", nil, nil); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if code := s.do(t, s.client(t), http.MethodGet, "/api/auth/google/callback?state=x", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("callback without state cookie = %d, want 400", code)
	}
}

func TestTaskRoutes(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	if code := s.do(t, c, http.MethodGet, "/api/tasks", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous list = %d, want 401", code)
	}
	s.signUp(t, c, "ada@example.com")

	var created taskResponse
	code := s.do(t, c, http.MethodPost, "/api/tasks", domain.NewTask{Title: "Buy milk", Priority: domain.PriorityHigh}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.Task.ID == "" || created.Task.Status != domain.StatusTodo || created.Toast.Description != "Task created successfully" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	if code := s.do(t, c, http.MethodPost, "/api/tasks", domain.NewTask{Title: "  "}, nil); code != http.StatusBadRequest {
		t.Fatalf("blank title = %d, want 400", code)
	}

	completed := domain.StatusCompleted
	var upd taskUpdateResponse
	if code := s.do(t, c, http.MethodPatch, "/api/tasks/"+created.Task.ID, domain.TaskUpdate{Status: &completed}, &upd); code != http.StatusOK {
		t.Fatalf("update status = %d", code)
	}
	if upd.ID != created.Task.ID || upd.UpdatedAt.IsZero() {
		t.Fatalf("unexpected update response: %+v", upd)
	}
	if code := s.do(t, c, http.MethodPatch, "/api/tasks/"+created.Task.ID, domain.TaskUpdate{}, nil); code != http.StatusBadRequest {
		t.Fatalf("empty update = %d, want 400", code)
	}
	if code := s.do(t, c, http.MethodPatch, "/api/tasks/missing", domain.TaskUpdate{Status: &completed}, nil); code != http.StatusNotFound {
		t.Fatalf("update missing = %d, want 404", code)
	}

	var list taskListResponse
	if code := s.do(t, c, http.MethodGet, "/api/tasks?filter=completed", nil, &list); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if list.Filter != domain.FilterCompleted || len(list.Tasks) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if code := s.do(t, c, http.MethodGet, "/api/tasks?filter=someday", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown filter = %d, want 400", code)
	}

	var stats tasks.Stats
	if code := s.do(t, c, http.MethodGet, "/api/tasks/stats", nil, &stats); code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	if stats.Total != 1 || stats.Completed != 1 || stats.CompletionRate != 100 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Another user cannot see or delete the task.
	other := s.client(t)
	s.signUp(t, other, "bob@example.com")
	if code := s.do(t, other, http.MethodDelete, "/api/tasks/"+created.Task.ID, nil, nil); code != http.StatusNotFound {
		t.Fatalf("foreign delete = %d, want 404", code)
	}

	var del map[string]interface{}
	if code := s.do(t, c, http.MethodDelete, "/api/tasks/"+created.Task.ID, nil, &del); code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	if del["status"] != "deleted" {
		t.Fatalf("unexpected delete response: %v", del)
	}
}

func TestAssistantRoutes(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)
	s.signUp(t, c, "ada@example.com")

	var chat assistantResponse
	if code := s.do(t, c, http.MethodPost, "/api/assistant/chat", assistantRequest{Content: "Set a DEADLINE"}, &chat); code != http.StatusOK {
		t.Fatalf("chat status = %d", code)
	}
	if chat.Kind != "chat" || chat.Rule != "deadline" || chat.Response == "" {
		t.Fatalf("unexpected chat reply: %+v", chat)
	}

	var voice assistantResponse
	if code := s.do(t, c, http.MethodPost, "/api/assistant/voice", assistantRequest{Content: "sing a song"}, &voice); code != http.StatusOK {
		t.Fatalf("voice status = %d", code)
	}
	if voice.Rule != "fallback" {
		t.Fatalf("unexpected voice rule: %+v", voice)
	}

	if code := s.do(t, c, http.MethodPost, "/api/assistant/chat", assistantRequest{Content: "   "}, nil); code != http.StatusBadRequest {
		t.Fatalf("blank content = %d, want 400", code)
	}
}

func TestGetConfig(t *testing.T) {
	s := newTestServer(t)

	var got map[string]interface{}
	if code := s.do(t, s.client(t), http.MethodGet, "/api/config", nil, &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got["google_enabled"] != false || got["chat_delay_ms"] != float64(1500) || got["min_password_length"] != float64(identity.MinPasswordLength) {
		t.Fatalf("unexpected config: %v", got)
	}
}
