// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
)

var (
	// ErrNotFound is returned when a write targets a row that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("record already exists")
)

// TimeLayout is the fixed-width UTC layout used for timestamp columns so that
// lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// TaskRow is a task in the backend's persisted row format.
type TaskRow struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// TaskPatch maps column names to new values for a partial update. A nil
// value stores NULL.
type TaskPatch map[string]any

// Repository defines the interface for persisting users, sessions and tasks.
type Repository interface {
	// GetUser retrieves a user by ID. Returns nil, nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByEmail retrieves a user by email. Returns nil, nil when absent.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateUser inserts a user. Returns ErrConflict when the email is taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// UpdateUserProfile refreshes display name and avatar for a user.
	UpdateUserProfile(ctx context.Context, userID, name, avatarURL string) error

	// CreateSession stores a new sign-in session.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by token. Returns nil, nil when absent.
	GetSession(ctx context.Context, token string) (*domain.Session, error)

	// DeleteSession removes a single session.
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpiredSessions removes sessions that expired before now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// ListTasks returns a user's tasks ordered by created_at descending.
	ListTasks(ctx context.Context, userID string) ([]TaskRow, error)

	// InsertTask stores a new task row and returns it as persisted.
	InsertTask(ctx context.Context, row TaskRow) (TaskRow, error)

	// UpdateTask applies patch to the user's task. Returns ErrNotFound when
	// no such task exists.
	UpdateTask(ctx context.Context, userID, taskID string, patch TaskPatch) error

	// DeleteTask removes the user's task. Returns ErrNotFound when no such
	// task exists.
	DeleteTask(ctx context.Context, userID, taskID string) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
