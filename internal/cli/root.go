// Package cli implements taskflowctl, an admin tool that works directly on
// the TaskFlow SQLite database.
package cli

import (
	"errors"
	"fmt"

	"github.com/ashureev/taskflow/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

const defaultDBPath = "./data/taskflow.db"

// openRepo opens the database. Tests replace it.
var openRepo = func(path string) (store.Repository, error) {
	return store.NewSQLite(path)
}

// NewRootCmd builds the taskflowctl command tree. The database path comes
// from --db, then TASKFLOW_DB_PATH, then the server's default location.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TASKFLOW")
	v.SetDefault("db_path", defaultDBPath)
	_ = v.BindEnv("db_path")

	root := &cobra.Command{
		Use:   "taskflowctl",
		Short: "TaskFlow admin tool",
		Long: `taskflowctl inspects a TaskFlow database and exercises the assistant
rules without running the server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("db", "", "path to the SQLite database (env TASKFLOW_DB_PATH)")
	_ = v.BindPFlag("db_path", root.PersistentFlags().Lookup("db"))

	open := func() (store.Repository, error) {
		path := v.GetString("db_path")
		if path == "" {
			return nil, errors.New("database path is empty")
		}
		repo, err := openRepo(path)
		if err != nil {
			return nil, fmt.Errorf("opening database %s: %w", path, err)
		}
		return repo, nil
	}

	root.AddCommand(
		newTasksCmd(open),
		newAskCmd(),
		newSayCmd(),
		newHealthCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "taskflowctl %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
			},
		},
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
