package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
	"github.com/ashureev/taskflow/internal/store"
	"github.com/ashureev/taskflow/internal/tasks"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// now is the clock used for filters and stats. Tests replace it.
var now = time.Now

type opener func() (store.Repository, error)

func newTasksCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect a user's tasks",
	}
	cmd.AddCommand(newTasksListCmd(open), newTasksStatsCmd(open))
	return cmd
}

func newTasksListCmd(open opener) *cobra.Command {
	var user, filter, output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's tasks",
		Example: `  taskflowctl tasks list --user ada@example.com --filter overdue
  taskflowctl tasks list --user ada@example.com --output yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := domain.ParseTaskFilter(filter)
			if err != nil {
				return err
			}
			render, err := renderer(output)
			if err != nil {
				return err
			}

			list, err := loadTasks(cmd.Context(), open, user)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), toRecords(tasks.Filter(list, f, now())))
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user email or id (required)")
	cmd.Flags().StringVar(&filter, "filter", string(domain.FilterAll), "one of all, today, overdue, todo, in-progress, completed")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newTasksStatsCmd(open opener) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task statistics for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadTasks(cmd.Context(), open, user)
			if err != nil {
				return err
			}
			s := tasks.ComputeStats(list, now())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Total Tasks\t%d\n", s.Total)
			fmt.Fprintf(w, "Completed\t%d\n", s.Completed)
			fmt.Fprintf(w, "In Progress\t%d\n", s.InProgress)
			fmt.Fprintf(w, "Overdue\t%d\n", s.Overdue)
			fmt.Fprintf(w, "Completion Rate\t%d%%\n", s.CompletionRate)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user email or id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// loadTasks resolves user by email or id and returns all of their tasks.
func loadTasks(ctx context.Context, open opener, user string) ([]domain.Task, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	repo, err := open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = repo.Close() }()

	var u *domain.User
	if strings.Contains(user, "@") {
		u, err = repo.GetUserByEmail(ctx, user)
	} else {
		u, err = repo.GetUser(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user %s: %w", user, err)
	}
	if u == nil {
		return nil, fmt.Errorf("user %s not found", user)
	}

	return tasks.NewService(repo).List(ctx, u.UserID)
}

// taskRecord is the printed form of a task.
type taskRecord struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string `json:"status" yaml:"status"`
	Priority    string `json:"priority" yaml:"priority"`
	DueDate     string `json:"dueDate,omitempty" yaml:"due_date,omitempty"`
	CreatedAt   string `json:"createdAt" yaml:"created_at"`
}

func toRecords(list []domain.Task) []taskRecord {
	out := make([]taskRecord, 0, len(list))
	for _, t := range list {
		r := taskRecord{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      string(t.Status),
			Priority:    string(t.Priority),
			CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if t.DueDate != nil {
			r.DueDate = t.DueDate.UTC().Format(time.RFC3339)
		}
		out = append(out, r)
	}
	return out
}

type renderFunc func(w io.Writer, records []taskRecord) error

func renderer(format string) (renderFunc, error) {
	switch format {
	case "table", "":
		return renderTable, nil
	case "json":
		return func(w io.Writer, records []taskRecord) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}, nil
	case "yaml":
		return func(w io.Writer, records []taskRecord) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(records); err != nil {
				return err
			}
			return enc.Close()
		}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

func renderTable(w io.Writer, records []taskRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No tasks found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE")
	for _, r := range records {
		due := r.DueDate
		if due == "" {
			due = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Title, r.Status, r.Priority, due)
	}
	return tw.Flush()
}
