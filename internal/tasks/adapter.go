// Package tasks maps tasks between their in-memory and persisted forms and
// provides the pure filter and statistics projections used by the dashboard.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
	"github.com/ashureev/taskflow/internal/notify"
	"github.com/ashureev/taskflow/internal/store"
	"github.com/google/uuid"
)

// ErrInvalidTask is returned when supplied task fields fail validation.
var ErrInvalidTask = errors.New("invalid task")

// Op names a task store operation.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// PersistenceError wraps any failure of the backing store.
type PersistenceError struct {
	Op     Op
	TaskID string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("%s task %s: %v", e.Op, e.TaskID, e.Err)
	}
	return fmt.Sprintf("%s tasks: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Notification returns the toast shown when this operation fails.
func (e *PersistenceError) Notification() notify.Notification {
	switch e.Op {
	case OpList:
		return notify.Failure("Error", "Failed to load tasks")
	case OpCreate:
		return notify.Failure("Error", "Failed to create task")
	case OpUpdate:
		return notify.Failure("Error", "Failed to update task")
	default:
		return notify.Failure("Error", "Failed to delete task")
	}
}

// Service is the task store adapter. It is the only place that knows the
// persisted column names and timestamp encoding.
type Service struct {
	repo  store.Repository
	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides task ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a task store adapter over repo.
func NewService(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the user's tasks ordered by creation time, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Task, error) {
	rows, err := s.repo.ListTasks(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: OpList, Err: err}
	}

	tasks := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		task, err := FromRow(row)
		if err != nil {
			return nil, &PersistenceError{Op: OpList, TaskID: row.ID, Err: err}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Create validates in, persists a new task for userID and returns it with
// its assigned id and timestamps.
func (s *Service) Create(ctx context.Context, userID string, in domain.NewTask) (domain.Task, error) {
	if err := validateNew(&in); err != nil {
		return domain.Task{}, err
	}

	now := s.now()
	task := domain.Task{
		ID:          s.newID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      userID,
	}

	row, err := s.repo.InsertTask(ctx, ToRow(task))
	if err != nil {
		return domain.Task{}, &PersistenceError{Op: OpCreate, Err: err}
	}

	created, err := FromRow(row)
	if err != nil {
		return domain.Task{}, &PersistenceError{Op: OpCreate, TaskID: row.ID, Err: err}
	}
	return created, nil
}

// Update writes only the fields present in upd and refreshes updated_at. It
// returns the timestamp that was written.
func (s *Service) Update(ctx context.Context, userID, taskID string, upd domain.TaskUpdate) (time.Time, error) {
	if err := validateUpdate(upd); err != nil {
		return time.Time{}, err
	}

	now := s.now()
	patch := store.TaskPatch{"updated_at": formatTime(now)}
	if upd.Title != nil {
		patch["title"] = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		patch["description"] = nullString(*upd.Description)
	}
	if upd.Status != nil {
		patch["status"] = string(*upd.Status)
	}
	if upd.Priority != nil {
		patch["priority"] = string(*upd.Priority)
	}
	if upd.ClearDueDate {
		patch["due_date"] = nil
	} else if upd.DueDate != nil {
		patch["due_date"] = formatTime(*upd.DueDate)
	}

	if err := s.repo.UpdateTask(ctx, userID, taskID, patch); err != nil {
		return time.Time{}, &PersistenceError{Op: OpUpdate, TaskID: taskID, Err: err}
	}
	return now, nil
}

// Delete removes the user's task.
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	if err := s.repo.DeleteTask(ctx, userID, taskID); err != nil {
		return &PersistenceError{Op: OpDelete, TaskID: taskID, Err: err}
	}
	return nil
}

// ToRow converts a task into the persisted row format.
func ToRow(t domain.Task) store.TaskRow {
	row := store.TaskRow{
		ID:        t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		CreatedAt: formatTime(t.CreatedAt),
		UpdatedAt: formatTime(t.UpdatedAt),
	}
	if t.Description != "" {
		desc := t.Description
		row.Description = &desc
	}
	if t.DueDate != nil {
		due := formatTime(*t.DueDate)
		row.DueDate = &due
	}
	return row
}

// FromRow converts a persisted row into a task.
func FromRow(row store.TaskRow) (domain.Task, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return domain.Task{}, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return domain.Task{}, fmt.Errorf("parse updated_at: %w", err)
	}

	task := domain.Task{
		ID:         row.ID,
		Title:      row.Title,
		Status:     domain.TaskStatus(row.Status),
		Priority:   domain.TaskPriority(row.Priority),
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		UserID:     row.UserID,
		Tags:       []string{},
		SharedWith: []string{},
	}
	if row.Description != nil {
		task.Description = *row.Description
	}
	if row.DueDate != nil {
		due, err := parseTime(*row.DueDate)
		if err != nil {
			return domain.Task{}, fmt.Errorf("parse due_date: %w", err)
		}
		task.DueDate = &due
	}
	return task, nil
}

func validateNew(in *domain.NewTask) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if in.Status == "" {
		in.Status = domain.StatusTodo
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, in.Status)
	}
	if !in.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, in.Priority)
	}
	return nil
}

func validateUpdate(upd domain.TaskUpdate) error {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return fmt.Errorf("%w: title cannot be blank", ErrInvalidTask)
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, *upd.Status)
	}
	if upd.Priority != nil && !upd.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, *upd.Priority)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(store.TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
