package tasks

import (
	"time"

	"github.com/ashureev/taskflow/internal/domain"
)

// Stats are the aggregate counters shown above the task list.
type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	InProgress     int `json:"inProgress"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completionRate"`
}

// ComputeStats aggregates tasks as of now.
func ComputeStats(tasks []domain.Task, now time.Time) Stats {
	var s Stats
	for i := range tasks {
		t := &tasks[i]
		s.Total++
		switch t.Status {
		case domain.StatusCompleted:
			s.Completed++
		case domain.StatusInProgress:
			s.InProgress++
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
	}
	s.CompletionRate = completionRate(s.Completed, s.Total)
	return s
}

// completionRate is completed/total as a percentage rounded half up.
func completionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (completed*200 + total) / (2 * total)
}
