//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/models"
	"github.com/ayush/todo-api/internal/store"
)

func setupPostgres(t *testing.T) (*store.PostgresStore, *store.TodoStore) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("todos_test"),
		postgres.WithUsername("todos"),
		postgres.WithPassword("todos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := store.NewMigrator(connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	pool, err := store.Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return store.NewPostgresStore(pool), store.NewTodoStore(pool)
}

func TestPostgres_Integration(t *testing.T) {
	ctx := context.Background()
	users, todos := setupPostgres(t)

	alice, err := users.CreateUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)
	bob, err := users.CreateUser(ctx, "bob", "bob@example.com", "hash")
	require.NoError(t, err)

	t.Run("unique constraints map to conflicts", func(t *testing.T) {
		_, err := users.CreateUser(ctx, "alice", "other@example.com", "hash")
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, "username already registered", apperr.PublicMessage(err))

		_, err = users.CreateUser(ctx, "carol", "alice@example.com", "hash")
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, "email already registered", apperr.PublicMessage(err))
	})

	t.Run("usernames are case sensitive", func(t *testing.T) {
		_, err := users.GetUserByUsername(ctx, "ALICE")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	base := models.Now()
	add := func(owner int64, title string, priority int, offset time.Duration) *models.Todo {
		td, err := todos.Create(ctx, &models.Todo{
			Title: title, Priority: priority, CreatedAt: base.Add(offset), OwnerID: owner,
		})
		require.NoError(t, err)
		return td
	}
	t1 := add(alice.ID, "t1", 2, 0)
	add(alice.ID, "t2", 1, time.Second)
	add(alice.ID, "t3", 1, 2*time.Second)
	foreign := add(bob.ID, "bob's", 1, 0)

	t.Run("list orders by priority then newest", func(t *testing.T) {
		list, err := todos.List(ctx, alice.ID, 0, 100)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "t3", list[0].Title)
		assert.Equal(t, "t2", list[1].Title)
		assert.Equal(t, "t1", list[2].Title)
		assert.Equal(t, models.KST, list[0].CreatedAt.Location())

		page, err := todos.List(ctx, alice.ID, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "t2", page[0].Title)
	})

	t.Run("foreign todo is not found", func(t *testing.T) {
		_, err := todos.Get(ctx, foreign.ID, alice.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = todos.Delete(ctx, foreign.ID, alice.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		done := true
		got, err := todos.Update(ctx, t1.ID, alice.ID, models.TodoPatch{Completed: &done})
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.Equal(t, "t1", got.Title)
		assert.Equal(t, 2, got.Priority)
	})

	t.Run("deleting a user cascades", func(t *testing.T) {
		n, err := users.DeleteUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		list, err := todos.List(ctx, alice.ID, 0, 100)
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = users.DeleteUser(ctx, alice.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
