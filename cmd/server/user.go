package main

import (
	"context"
	"fmt"
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ayush/todo-api/internal/config"
	"github.com/ayush/todo-api/internal/logging"
	"github.com/ayush/todo-api/internal/models"
	"github.com/ayush/todo-api/internal/store"
)

// userAdmin is the store surface the user commands operate on.
type userAdmin interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SetUserActive(ctx context.Context, username string, active bool) error
	DeleteUser(ctx context.Context, id int64) (int64, error)
}

// NewUserCmd creates the user command with its account maintenance subcommands.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer user accounts",
	}

	activate := func(active bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withUserAdmin(cmd.Context(), func(ctx context.Context, users userAdmin) error {
				return setActive(ctx, cmd.OutOrStdout(), users, args[0], active)
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "activate <username>",
			Short: "Allow a user to use their tokens again",
			Args:  cobra.ExactArgs(1),
			RunE:  activate(true),
		},
		&cobra.Command{
			Use:   "deactivate <username>",
			Short: "Block a user; their tokens are refused with 403",
			Args:  cobra.ExactArgs(1),
			RunE:  activate(false),
		},
		&cobra.Command{
			Use:   "delete <username>",
			Short: "Delete a user and all of their todos",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withUserAdmin(cmd.Context(), func(ctx context.Context, users userAdmin) error {
					return deleteUser(ctx, cmd.OutOrStdout(), users, args[0])
				})
			},
		},
	)
	return cmd
}

func withUserAdmin(ctx context.Context, fn func(context.Context, userAdmin) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	var users userAdmin = store.NewPostgresStore(pool)
	// Running servers cache users; evict so the change is seen immediately.
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		users = store.NewCachedUserStore(store.NewPostgresStore(pool), rdb, cfg.UserCacheTTL, logging.Setup("todo-api", version, cfg.LogFormat, nil))
	}
	return fn(ctx, users)
}

func setActive(ctx context.Context, out io.Writer, users userAdmin, username string, active bool) error {
	if err := users.SetUserActive(ctx, username, active); err != nil {
		return err
	}
	state := "deactivated"
	if active {
		state = "activated"
	}
	_, err := fmt.Fprintf(out, "user %q %s\n", username, state)
	return err
}

func deleteUser(ctx context.Context, out io.Writer, users userAdmin, username string) error {
	u, err := users.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	n, err := users.DeleteUser(ctx, u.ID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "user %q deleted with %d todos\n", username, n)
	return err
}
