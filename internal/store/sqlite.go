package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
	"github.com/ashureev/taskflow/internal/shared"
	_ "modernc.org/sqlite"
)

// taskColumns lists the columns a TaskPatch may touch.
var taskColumns = map[string]bool{
	"title":       true,
	"description": true,
	"status":      true,
	"priority":    true,
	"due_date":    true,
	"updated_at":  true,
}

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL,
		password_hash TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		due_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks(user_id, created_at DESC);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

const userColumns = `user_id, email, name, avatar_url, provider, password_hash, created_at, updated_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var provider string
	var passwordHash sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&user.UserID, &user.Email, &user.Name, &user.AvatarURL,
		&provider, &passwordHash, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.Provider = domain.AuthProvider(provider)
	user.PasswordHash = passwordHash.String
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email address (case-insensitive).
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
	return scanUser(row)
}

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (` + userColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var passwordHash interface{}
	if user.PasswordHash != "" {
		passwordHash = user.PasswordHash
	}

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, normalizeEmail(user.Email), user.Name, user.AvatarURL,
		string(user.Provider), passwordHash,
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteUniqueError(err) {
			return fmt.Errorf("create user %s: %w", user.Email, ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateUserProfile refreshes the display fields of a user.
func (s *SQLiteStore) UpdateUserProfile(ctx context.Context, userID, name, avatarURL string) error {
	query := `UPDATE users SET name = ?, avatar_url = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, name, avatarURL, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return requireRow(result, "update user profile")
}

// CreateSession stores a sign-in session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		session.Token, session.UserID, session.CreatedAt.Unix(), session.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by token.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	query := `SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`

	var session domain.Session
	var createdAt, expiresAt int64
	err := s.db.QueryRowContext(ctx, query, token).Scan(&session.Token, &session.UserID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.CreatedAt = time.Unix(createdAt, 0)
	session.ExpiresAt = time.Unix(expiresAt, 0)
	return &session, nil
}

// DeleteSession removes a session. Deleting an unknown token is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry is not after now.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// ListTasks returns the user's tasks, newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, userID string) ([]TaskRow, error) {
	query := `
		SELECT id, user_id, title, description, status, priority,
		       due_date, created_at, updated_at
		FROM tasks WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close task rows", "error", closeErr)
		}
	}()

	tasks := []TaskRow{}
	for rows.Next() {
		var row TaskRow
		var description, dueDate sql.NullString
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.Title, &description,
			&row.Status, &row.Priority, &dueDate,
			&row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		if description.Valid {
			row.Description = &description.String
		}
		if dueDate.Valid {
			row.DueDate = &dueDate.String
		}
		tasks = append(tasks, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// InsertTask stores a new task row.
func (s *SQLiteStore) InsertTask(ctx context.Context, row TaskRow) (TaskRow, error) {
	query := `
	INSERT INTO tasks (id, user_id, title, description, status, priority, due_date, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		row.ID, row.UserID, row.Title, nullable(row.Description),
		row.Status, row.Priority, nullable(row.DueDate),
		row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		if shared.IsSQLiteUniqueError(err) {
			return TaskRow{}, fmt.Errorf("insert task %s: %w", row.ID, ErrConflict)
		}
		return TaskRow{}, fmt.Errorf("insert task: %w", err)
	}
	return row, nil
}

// UpdateTask applies a column patch to one of the user's tasks.
func (s *SQLiteStore) UpdateTask(ctx context.Context, userID, taskID string, patch TaskPatch) error {
	if len(patch) == 0 {
		return fmt.Errorf("update task: empty patch")
	}

	columns := make([]string, 0, len(patch))
	for col := range patch {
		if !taskColumns[col] {
			return fmt.Errorf("update task: column %q is not writable", col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	assignments := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns)+2)
	for i, col := range columns {
		assignments[i] = col + " = ?"
		args = append(args, patch[col])
	}
	args = append(args, taskID, userID)

	query := `UPDATE tasks SET ` + strings.Join(assignments, ", ") + ` WHERE id = ? AND user_id = ?`
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRow(result, "update task "+taskID)
}

// DeleteTask removes one of the user's tasks.
func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireRow(result, "delete task "+taskID)
}

func requireRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
