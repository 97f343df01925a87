package tasks

import (
	"time"

	"github.com/ashureev/taskflow/internal/domain"
)

// Filter returns the tasks selected by f, preserving their relative order.
// The input slice is never modified. Date-based filters are evaluated against
// now, with "today" using now's location.
func Filter(tasks []domain.Task, f domain.TaskFilter, now time.Time) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for i := range tasks {
		if Matches(&tasks[i], f, now) {
			out = append(out, tasks[i])
		}
	}
	return out
}

// Matches reports whether a single task passes filter f.
func Matches(t *domain.Task, f domain.TaskFilter, now time.Time) bool {
	switch f {
	case domain.FilterAll, "":
		return true
	case domain.FilterToday:
		return t.IsDueOn(now)
	case domain.FilterOverdue:
		return t.IsOverdue(now)
	case domain.FilterCompleted:
		return t.Status == domain.StatusCompleted
	default:
		return string(t.Status) == string(f)
	}
}
