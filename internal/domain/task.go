// Package domain contains core domain types for the TaskFlow application.
package domain

import (
	"fmt"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// TaskPriority is the urgency of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a user-owned unit of work.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	UserID      string       `json:"userId"`
	Tags        []string     `json:"tags"`
	SharedWith  []string     `json:"sharedWith"`
}

// IsOverdue reports whether the task has a due date strictly before now and
// is not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}

// IsDueOn reports whether the task's due date falls on the same calendar day
// as now, evaluated in now's location.
func (t *Task) IsDueOn(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	dy, dm, dd := t.DueDate.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	return dy == ny && dm == nm && dd == nd
}

// NewTask holds the user-supplied fields of a task being created.
type NewTask struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status,omitempty"`
	Priority    TaskPriority `json:"priority,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
}

// TaskUpdate is a partial change set. Nil fields are left untouched.
type TaskUpdate struct {
	Title        *string       `json:"title,omitempty"`
	Description  *string       `json:"description,omitempty"`
	Status       *TaskStatus   `json:"status,omitempty"`
	Priority     *TaskPriority `json:"priority,omitempty"`
	DueDate      *time.Time    `json:"dueDate,omitempty"`
	ClearDueDate bool          `json:"clearDueDate,omitempty"`
}

// IsEmpty reports whether the update carries no changes.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil &&
		u.Priority == nil && u.DueDate == nil && !u.ClearDueDate
}

// Apply merges the update into t and stamps UpdatedAt.
func (u TaskUpdate) Apply(t *Task, now time.Time) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.ClearDueDate {
		t.DueDate = nil
	} else if u.DueDate != nil {
		due := *u.DueDate
		t.DueDate = &due
	}
	t.UpdatedAt = now
}

// TaskFilter selects a subset of tasks for display.
type TaskFilter string

const (
	FilterAll        TaskFilter = "all"
	FilterToday      TaskFilter = "today"
	FilterOverdue    TaskFilter = "overdue"
	FilterTodo       TaskFilter = "todo"
	FilterInProgress TaskFilter = "in-progress"
	FilterCompleted  TaskFilter = "completed"
)

// Filters lists every filter in sidebar order.
var Filters = []TaskFilter{
	FilterAll, FilterToday, FilterOverdue, FilterTodo, FilterInProgress, FilterCompleted,
}

// ParseTaskFilter converts a name into a TaskFilter. The empty string maps to
// FilterAll.
func ParseTaskFilter(name string) (TaskFilter, error) {
	if name == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown task filter %q", name)
}
