package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ayush/todo-api/internal/auth"
	"github.com/ayush/todo-api/internal/config"
	"github.com/ayush/todo-api/internal/logging"
	"github.com/ayush/todo-api/internal/server"
	"github.com/ayush/todo-api/internal/store"
	"github.com/ayush/todo-api/internal/todo"
)

const shutdownTimeout = 10 * time.Second

// userStore is what both the auth service and the guard need from users.
type userStore interface {
	auth.UserStore
	auth.UserLookup
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func runServe(parent context.Context, autoMigrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := logging.Setup("todo-api", version, cfg.LogFormat, nil)
	slog.SetDefault(logger)
	if cfg.InsecureSecret {
		logger.Warn("SECRET_KEY is not set; tokens are signed with the public default secret")
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── PostgreSQL ────────────────────────────────────────────
	if autoMigrate {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
	}
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	pg := store.NewPostgresStore(pool)

	// ── Redis (optional user cache) ──────────────────────────
	var users userStore = pg
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		users = store.NewCachedUserStore(pg, rdb, cfg.UserCacheTTL, logger)
		logger.Info("user cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.UserCacheTTL)
	}

	// ── Services ─────────────────────────────────────────────
	tokens, err := auth.NewTokenService(cfg.SecretKey, cfg.TokenTTL)
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(users, auth.NewBcryptHasher(cfg.BcryptCost), tokens)
	if err != nil {
		return err
	}
	todoSvc := todo.NewService(store.NewTodoStore(pool), cfg.MaxListLimit)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(server.Deps{
			Auth:           authSvc,
			Guard:          auth.NewGuard(tokens, users),
			Todos:          todoSvc,
			Logger:         logger,
			AllowedOrigins: cfg.AllowedOrigins,
			Registry:       reg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
