package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func strPtr(s string) *string { return &s }

func taskRow(id, userID, createdAt string) TaskRow {
	return TaskRow{
		ID:        id,
		UserID:    userID,
		Title:     "title " + id,
		Status:    "todo",
		Priority:  "medium",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	now := time.Unix(1_700_000_000, 0)
	user := &domain.User{
		UserID:       "u1",
		Email:        "  Ada@Example.com ",
		Name:         "Ada",
		Provider:     domain.ProviderEmail,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := repo.GetUserByEmail(ctx, "ada@example.com")
	if err != nil || got == nil {
		t.Fatalf("GetUserByEmail = %v, %v", got, err)
	}
	if got.UserID != "u1" || got.PasswordHash != "hash" || got.Provider != domain.ProviderEmail {
		t.Fatalf("unexpected user: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}

	dup := *user
	dup.UserID = "u2"
	if err := repo.CreateUser(ctx, &dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	if err := repo.UpdateUserProfile(ctx, "u1", "Ada L.", "https://img/ada.png"); err != nil {
		t.Fatalf("UpdateUserProfile failed: %v", err)
	}
	got, _ = repo.GetUser(ctx, "u1")
	if got.Name != "Ada L." || got.AvatarURL != "https://img/ada.png" {
		t.Fatalf("profile not updated: %+v", got)
	}

	if err := repo.UpdateUserProfile(ctx, "missing", "x", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	missing, err := repo.GetUser(ctx, "missing")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing user, got %v, %v", missing, err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	now := time.Unix(1_700_000_000, 0)
	if err := repo.CreateUser(ctx, &domain.User{UserID: "u1", Email: "a@b.c", Provider: domain.ProviderEmail, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	live := &domain.Session{Token: "live", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := &domain.Session{Token: "stale", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(-time.Second)}
	for _, s := range []*domain.Session{live, stale} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	deleted, err := repo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 expired session deleted, got %d", deleted)
	}

	got, err := repo.GetSession(ctx, "live")
	if err != nil || got == nil || got.UserID != "u1" {
		t.Fatalf("GetSession(live) = %v, %v", got, err)
	}

	if err := repo.DeleteSession(ctx, "live"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	got, err = repo.GetSession(ctx, "live")
	if err != nil || got != nil {
		t.Fatalf("expected deleted session to be gone, got %v, %v", got, err)
	}
}

func TestListTasksOrderedNewestFirstAndScopedToUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	rows := []TaskRow{
		taskRow("old", "u1", "2026-01-01T00:00:00.000000Z"),
		taskRow("new", "u1", "2026-01-03T00:00:00.000000Z"),
		taskRow("mid", "u1", "2026-01-02T00:00:00.000000Z"),
		taskRow("other", "u2", "2026-01-04T00:00:00.000000Z"),
	}
	for _, r := range rows {
		if _, err := repo.InsertTask(ctx, r); err != nil {
			t.Fatalf("InsertTask(%s) failed: %v", r.ID, err)
		}
	}

	got, err := repo.ListTasks(ctx, "u1")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	want := []string{"new", "mid", "old"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}

	empty, err := repo.ListTasks(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestInsertTaskRoundTripsNullableColumns(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	row := taskRow("t1", "u1", "2026-01-01T00:00:00.000000Z")
	row.Description = strPtr("details")
	row.DueDate = strPtr("2026-02-01T09:00:00.000000Z")
	if _, err := repo.InsertTask(ctx, row); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}
	if _, err := repo.InsertTask(ctx, row); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate id, got %v", err)
	}

	got, err := repo.ListTasks(ctx, "u1")
	if err != nil || len(got) != 1 {
		t.Fatalf("ListTasks = %v, %v", got, err)
	}
	if got[0].Description == nil || *got[0].Description != "details" {
		t.Fatalf("description lost: %+v", got[0])
	}
	if got[0].DueDate == nil || *got[0].DueDate != "2026-02-01T09:00:00.000000Z" {
		t.Fatalf("due date lost: %+v", got[0])
	}
}

func TestUpdateTaskPatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	row := taskRow("t1", "u1", "2026-01-01T00:00:00.000000Z")
	row.DueDate = strPtr("2026-02-01T09:00:00.000000Z")
	if _, err := repo.InsertTask(ctx, row); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	patch := TaskPatch{
		"status":     "completed",
		"due_date":   nil,
		"updated_at": "2026-01-05T00:00:00.000000Z",
	}
	if err := repo.UpdateTask(ctx, "u1", "t1", patch); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	got, _ := repo.ListTasks(ctx, "u1")
	if got[0].Status != "completed" || got[0].DueDate != nil {
		t.Fatalf("patch not applied: %+v", got[0])
	}
	if got[0].Title != "title t1" || got[0].Priority != "medium" {
		t.Fatalf("untouched columns changed: %+v", got[0])
	}
	if got[0].UpdatedAt != "2026-01-05T00:00:00.000000Z" {
		t.Fatalf("updated_at = %s", got[0].UpdatedAt)
	}

	if err := repo.UpdateTask(ctx, "u2", "t1", TaskPatch{"title": "stolen"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's task, got %v", err)
	}
	if err := repo.UpdateTask(ctx, "u1", "t1", TaskPatch{"user_id": "u2"}); err == nil {
		t.Fatal("expected error for non-writable column")
	}
	if err := repo.UpdateTask(ctx, "u1", "t1", TaskPatch{}); err == nil {
		t.Fatal("expected error for empty patch")
	}
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)

	if _, err := repo.InsertTask(ctx, taskRow("t1", "u1", "2026-01-01T00:00:00.000000Z")); err != nil {
		t.Fatalf("InsertTask failed: %v", err)
	}

	if err := repo.DeleteTask(ctx, "u2", "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting another user's task, got %v", err)
	}
	if err := repo.DeleteTask(ctx, "u1", "t1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if err := repo.DeleteTask(ctx, "u1", "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPing(t *testing.T) {
	repo := newTestStore(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
