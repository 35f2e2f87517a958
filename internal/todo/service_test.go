package todo_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/models"
	"github.com/ayush/todo-api/internal/testutil"
	"github.com/ayush/todo-api/internal/todo"
)

func intPtr(i int) *int { return &i }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }

func setup(t *testing.T) (*todo.Service, int64, int64) {
	t.Helper()
	mem := testutil.NewMemStore()
	alice, err := mem.CreateUser(context.Background(), "alice", "alice@example.com", "h")
	require.NoError(t, err)
	bob, err := mem.CreateUser(context.Background(), "bob", "bob@example.com", "h")
	require.NoError(t, err)
	return todo.NewService(mem, 3), alice.ID, bob.ID
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, alice, _ := setup(t)

	t.Run("defaults", func(t *testing.T) {
		got, err := svc.Create(ctx, alice, models.NewTodo{Title: "read"})
		require.NoError(t, err)
		assert.Equal(t, models.DefaultPriority, got.Priority)
		assert.False(t, got.Completed)
		assert.Nil(t, got.Description)
		assert.Equal(t, alice, got.OwnerID)
		_, offset := got.CreatedAt.Zone()
		assert.Equal(t, 9*60*60, offset)
		assert.WithinDuration(t, time.Now(), got.CreatedAt, 5*time.Second)
	})

	t.Run("explicit fields", func(t *testing.T) {
		got, err := svc.Create(ctx, alice, models.NewTodo{Title: "call", Description: strPtr("mom"), Priority: intPtr(-4)})
		require.NoError(t, err)
		assert.Equal(t, -4, got.Priority)
		require.NotNil(t, got.Description)
		assert.Equal(t, "mom", *got.Description)
	})

	for _, title := range []string{"", "   ", "\t\n"} {
		t.Run("rejects blank title "+title, func(t *testing.T) {
			_, err := svc.Create(ctx, alice, models.NewTodo{Title: title})
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestService_PriorityRange(t *testing.T) {
	ctx := context.Background()
	svc, alice, _ := setup(t)
	td, err := svc.Create(ctx, alice, models.NewTodo{Title: "edge", Priority: intPtr(math.MaxInt32)})
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, td.Priority)

	for _, p := range []int{math.MaxInt32 + 1, math.MinInt32 - 1, 3_000_000_000} {
		_, err := svc.Create(ctx, alice, models.NewTodo{Title: "x", Priority: intPtr(p)})
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, "priority is out of range", apperr.PublicMessage(err))

		_, err = svc.Update(ctx, td.ID, alice, models.TodoPatch{Priority: intPtr(p)})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}

	got, err := svc.Get(ctx, td.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, got.Priority)
}

func TestService_ListOrdering(t *testing.T) {
	ctx := context.Background()
	svc, alice, bob := setup(t)

	_, err := svc.Create(ctx, alice, models.NewTodo{Title: "t1", Priority: intPtr(2)})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Create(ctx, alice, models.NewTodo{Title: "t2", Priority: intPtr(1)})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Create(ctx, alice, models.NewTodo{Title: "t3", Priority: intPtr(1)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, models.NewTodo{Title: "bob"})
	require.NoError(t, err)

	list, err := svc.List(ctx, alice, nil, nil)
	require.NoError(t, err)
	titles := make([]string, 0, len(list))
	for _, td := range list {
		titles = append(titles, td.Title)
	}
	assert.Equal(t, []string{"t3", "t2", "t1"}, titles)

	page, err := svc.List(ctx, alice, intPtr(1), intPtr(1))
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "t2", page[0].Title)
}

func TestService_ListPaging(t *testing.T) {
	ctx := context.Background()
	svc, alice, _ := setup(t)
	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, alice, models.NewTodo{Title: "x"})
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		skip    *int
		limit   *int
		wantLen int
		wantErr error
	}{
		{name: "limit clamped to max", limit: intPtr(100), wantLen: 3},
		{name: "zero limit", limit: intPtr(0), wantLen: 0},
		{name: "skip past end", skip: intPtr(10), wantLen: 0},
		{name: "negative skip", skip: intPtr(-1), wantErr: apperr.ErrValidation},
		{name: "negative limit", limit: intPtr(-1), wantErr: apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, alice, tt.skip, tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_Ownership(t *testing.T) {
	ctx := context.Background()
	svc, alice, bob := setup(t)
	td, err := svc.Create(ctx, alice, models.NewTodo{Title: "secret"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, td.ID, bob)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Update(ctx, td.ID, bob, models.TodoPatch{Completed: boolPtr(true)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Delete(ctx, td.ID, bob)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, missing := svc.Get(ctx, td.ID+100, bob)
	assert.Equal(t, apperr.PublicMessage(err), apperr.PublicMessage(missing))

	got, err := svc.Get(ctx, td.ID, alice)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, alice, _ := setup(t)
	td, err := svc.Create(ctx, alice, models.NewTodo{Title: "read", Description: strPtr("book"), Priority: intPtr(3)})
	require.NoError(t, err)

	t.Run("partial update leaves other fields", func(t *testing.T) {
		got, err := svc.Update(ctx, td.ID, alice, models.TodoPatch{Completed: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.Equal(t, "read", got.Title)
		assert.Equal(t, "book", *got.Description)
		assert.Equal(t, 3, got.Priority)
		assert.True(t, td.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("empty patch returns current", func(t *testing.T) {
		got, err := svc.Update(ctx, td.ID, alice, models.TodoPatch{})
		require.NoError(t, err)
		assert.True(t, got.Completed)
	})

	t.Run("blank title rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, td.ID, alice, models.TodoPatch{Title: strPtr(" ")})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, alice, _ := setup(t)
	td, err := svc.Create(ctx, alice, models.NewTodo{Title: "gone"})
	require.NoError(t, err)

	snap, err := svc.Delete(ctx, td.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, "gone", snap.Title)

	_, err = svc.Get(ctx, td.ID, alice)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Delete(ctx, td.ID, alice)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
