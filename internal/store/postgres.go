// Package store provides the PostgreSQL and Redis backed persistence for
// users and todos.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/models"
)

// Unique constraint names from the initial migration.
const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

// DB is the subset of *pgxpool.Pool the stores use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

// PostgresStore handles user CRUD against PostgreSQL.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: models.Now}
}

// InTx begins a transaction and calls fn with it. The transaction is
// committed when fn returns nil and rolled back on every other exit path.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return inTx(ctx, s.db, fn)
}

func inTx(ctx context.Context, db DB, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, is_active, created_at)
		 VALUES ($1, $2, $3, TRUE, $4)
		 RETURNING id, username, email, password_hash, is_active, created_at`,
		username, email, passwordHash, s.now(),
	)

	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, conflict(pgErr.ConstraintName, username, email)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", username).
			Wrap(err)
	}
	return u, nil
}

// GetUserByUsername looks a user up by exact, case-sensitive username.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, username, email, password_hash, is_active, created_at
		 FROM users WHERE username = $1`, username,
	)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(apperr.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return u, nil
}

// SetUserActive flips the active flag of the named user.
func (s *PostgresStore) SetUserActive(ctx context.Context, username string, active bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET is_active = $2 WHERE username = $1`, username, active,
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "set active").
			With("username", username).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(apperr.ErrNotFound)
	}
	return nil
}

// DeleteUser removes a user; the foreign key cascades to their todos.
// It returns how many todos went with the user.
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) (int64, error) {
	var todos int64
	err := s.InTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM todos WHERE owner_id = $1`, id,
		).Scan(&todos); err != nil {
			return oops.Code("USER_DELETE_FAILED").
				With("operation", "count todos").
				With("id", id).
				Wrap(err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return oops.Code("USER_DELETE_FAILED").
				With("operation", "delete user").
				With("id", id).
				Wrap(err)
		}
		if tag.RowsAffected() == 0 {
			return oops.Code("USER_NOT_FOUND").
				With("id", id).
				Wrap(apperr.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return todos, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	u.CreatedAt = u.CreatedAt.In(models.KST)
	return &u, nil
}

func conflict(constraint, username, email string) error {
	switch constraint {
	case usernameConstraint:
		return oops.Code("USER_USERNAME_TAKEN").
			With("username", username).
			Public("username already registered").
			Wrap(apperr.ErrConflict)
	case emailConstraint:
		return oops.Code("USER_EMAIL_TAKEN").
			With("email", email).
			Public("email already registered").
			Wrap(apperr.ErrConflict)
	default:
		return oops.Code("USER_CONFLICT").
			With("constraint", constraint).
			Public("user already exists").
			Wrap(apperr.ErrConflict)
	}
}
