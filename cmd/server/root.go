package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Running it without a subcommand
// starts the HTTP server.
func NewRootCmd() *cobra.Command {
	serve := NewServeCmd()

	cmd := &cobra.Command{
		Use:   "todo-api",
		Short: "Personal todo list HTTP API",
		Long: `todo-api serves a JSON API where users sign up, log in with a bearer
token and manage their own todo items. Configuration comes from the
environment (DATABASE_URL, SECRET_KEY, REDIS_ADDR, ...).`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}
