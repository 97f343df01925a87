package tasks

import (
	"testing"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
)

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	past := timePtr(now.Add(-time.Hour))

	tests := []struct {
		name  string
		tasks []domain.Task
		want  Stats
	}{
		{
			name:  "empty",
			tasks: nil,
			want:  Stats{},
		},
		{
			name: "mixed",
			tasks: []domain.Task{
				{Status: domain.StatusCompleted},
				{Status: domain.StatusInProgress, DueDate: past},
				{Status: domain.StatusTodo, DueDate: past},
				{Status: domain.StatusTodo},
			},
			want: Stats{Total: 4, Completed: 1, InProgress: 1, Overdue: 2, CompletionRate: 25},
		},
		{
			name: "all done",
			tasks: []domain.Task{
				{Status: domain.StatusCompleted, DueDate: past},
				{Status: domain.StatusCompleted},
			},
			want: Stats{Total: 2, Completed: 2, CompletionRate: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStats(tt.tasks, now)
			if got != tt.want {
				t.Fatalf("ComputeStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCompletionRateRounding(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds up
		{1, 200, 1},
		{1, 201, 0},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := completionRate(tt.completed, tt.total); got != tt.want {
			t.Errorf("completionRate(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}
