// Package dashboard holds the per-page task view: the user's tasks, the
// active filter and the CRUD actions that keep both in sync with the store.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
	"github.com/ashureev/taskflow/internal/notify"
	"github.com/ashureev/taskflow/internal/tasks"
)

// TaskStore is the subset of the task adapter the dashboard needs.
type TaskStore interface {
	List(ctx context.Context, userID string) ([]domain.Task, error)
	Create(ctx context.Context, userID string, in domain.NewTask) (domain.Task, error)
	Update(ctx context.Context, userID, taskID string, upd domain.TaskUpdate) (time.Time, error)
	Delete(ctx context.Context, userID, taskID string) error
}

// Header is the identity shown in the page header and sidebar.
type Header struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// SidebarItem is one filter entry in the sidebar.
type SidebarItem struct {
	Title  string            `json:"title"`
	Filter domain.TaskFilter `json:"filter"`
	Active bool              `json:"active"`
}

var sidebarTitles = map[domain.TaskFilter]string{
	domain.FilterAll:        "All Tasks",
	domain.FilterToday:      "Today",
	domain.FilterOverdue:    "Overdue",
	domain.FilterTodo:       "To Do",
	domain.FilterInProgress: "In Progress",
	domain.FilterCompleted:  "Completed",
}

// View is a rendered dashboard. Stats always cover every task, not only the
// filtered ones.
type View struct {
	User    Header            `json:"user"`
	Filter  domain.TaskFilter `json:"filter"`
	Sidebar []SidebarItem     `json:"sidebar"`
	Tasks   []domain.Task     `json:"tasks"`
	Stats   tasks.Stats       `json:"stats"`
	Loading bool              `json:"loading"`
}

// Dashboard owns the task collection of one page. All mutations go through
// the store first; in-memory state changes only after the store succeeds.
type Dashboard struct {
	mu      sync.Mutex
	user    domain.User
	store   TaskStore
	notify  notify.Notifier
	items   []domain.Task
	filter  domain.TaskFilter
	loading bool
	now     func() time.Time
}

// New creates a dashboard for user. It starts in the loading state until the
// first Load completes.
func New(user domain.User, store TaskStore, n notify.Notifier) *Dashboard {
	if n == nil {
		n = notify.Discard
	}
	return &Dashboard{
		user:    user,
		store:   store,
		notify:  n,
		items:   []domain.Task{},
		filter:  domain.FilterAll,
		loading: true,
		now:     time.Now,
	}
}

// Load replaces the task collection with the store's. On failure the previous
// collection is kept.
func (d *Dashboard) Load(ctx context.Context) error {
	list, err := d.store.List(ctx, d.user.UserID)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false

	if err != nil {
		slog.Error("Error fetching tasks", "user_id", d.user.UserID, "error", err)
		d.notifyFailure(err, tasks.OpList)
		return err
	}
	d.items = list
	return nil
}

// SetFilter changes the active filter.
func (d *Dashboard) SetFilter(f domain.TaskFilter) {
	if f == "" {
		f = domain.FilterAll
	}
	d.mu.Lock()
	d.filter = f
	d.mu.Unlock()
}

// Filter returns the active filter.
func (d *Dashboard) Filter() domain.TaskFilter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filter
}

// Tasks returns a copy of the full task collection.
func (d *Dashboard) Tasks() []domain.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Task, len(d.items))
	copy(out, d.items)
	return out
}

// View renders the dashboard as of now.
func (d *Dashboard) View(now time.Time) View {
	d.mu.Lock()
	defer d.mu.Unlock()

	sidebar := make([]SidebarItem, 0, len(domain.Filters))
	for _, f := range domain.Filters {
		sidebar = append(sidebar, SidebarItem{Title: sidebarTitles[f], Filter: f, Active: f == d.filter})
	}

	return View{
		User: Header{
			Name:   d.user.DisplayName(),
			Email:  d.user.Email,
			Avatar: d.user.AvatarURL,
		},
		Filter:  d.filter,
		Sidebar: sidebar,
		Tasks:   tasks.Filter(d.items, d.filter, now),
		Stats:   tasks.ComputeStats(d.items, now),
		Loading: d.loading,
	}
}

// CreateTask persists a new task and prepends it to the collection.
func (d *Dashboard) CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	task, err := d.store.Create(ctx, d.user.UserID, in)
	if err != nil {
		slog.Error("Error creating task", "user_id", d.user.UserID, "error", err)
		d.notifyFailure(err, tasks.OpCreate)
		return domain.Task{}, err
	}

	d.mu.Lock()
	d.items = append([]domain.Task{task}, d.items...)
	d.mu.Unlock()

	d.notify.Notify(notify.Success("Task created successfully"))
	return task, nil
}

// UpdateTask persists upd and merges it into the cached task.
func (d *Dashboard) UpdateTask(ctx context.Context, id string, upd domain.TaskUpdate) error {
	stamp, err := d.store.Update(ctx, d.user.UserID, id, upd)
	if err != nil {
		slog.Error("Error updating task", "user_id", d.user.UserID, "task_id", id, "error", err)
		d.notifyFailure(err, tasks.OpUpdate)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.items {
		if d.items[i].ID == id {
			upd.Apply(&d.items[i], stamp)
			break
		}
	}
	return nil
}

// SetCompleted applies checkbox semantics: checked is completed, unchecked is
// todo.
func (d *Dashboard) SetCompleted(ctx context.Context, id string, completed bool) error {
	status := domain.StatusTodo
	if completed {
		status = domain.StatusCompleted
	}
	return d.UpdateTask(ctx, id, domain.TaskUpdate{Status: &status})
}

// ToggleInProgress moves a task between in-progress and todo.
func (d *Dashboard) ToggleInProgress(ctx context.Context, id string) error {
	d.mu.Lock()
	var current domain.TaskStatus
	found := false
	for i := range d.items {
		if d.items[i].ID == id {
			current = d.items[i].Status
			found = true
			break
		}
	}
	d.mu.Unlock()

	if !found {
		return fmt.Errorf("task %s: %w", id, ErrUnknownTask)
	}

	next := domain.StatusInProgress
	if current == domain.StatusInProgress {
		next = domain.StatusTodo
	}
	return d.UpdateTask(ctx, id, domain.TaskUpdate{Status: &next})
}

// DeleteTask removes the task from the store and the collection.
func (d *Dashboard) DeleteTask(ctx context.Context, id string) error {
	if err := d.store.Delete(ctx, d.user.UserID, id); err != nil {
		slog.Error("Error deleting task", "user_id", d.user.UserID, "task_id", id, "error", err)
		d.notifyFailure(err, tasks.OpDelete)
		return err
	}

	d.mu.Lock()
	for i := range d.items {
		if d.items[i].ID == id {
			d.items = append(d.items[:i:i], d.items[i+1:]...)
			break
		}
	}
	d.mu.Unlock()

	d.notify.Notify(notify.Success("Task deleted successfully"))
	return nil
}

// ErrUnknownTask is returned for actions on a task not in the collection.
var ErrUnknownTask = errors.New("task not loaded")

func (d *Dashboard) notifyFailure(err error, op tasks.Op) {
	var perr *tasks.PersistenceError
	if errors.As(err, &perr) {
		d.notify.Notify(perr.Notification())
		return
	}
	switch {
	case errors.Is(err, tasks.ErrInvalidTask):
		d.notify.Notify(notify.Failure("Error", err.Error()))
	default:
		d.notify.Notify((&tasks.PersistenceError{Op: op, Err: err}).Notification())
	}
}
