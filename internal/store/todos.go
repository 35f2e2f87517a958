package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/models"
)

const todoColumns = `id, title, description, completed, priority, created_at, owner_id`

// TodoStore handles owner-scoped todo CRUD against PostgreSQL.
// Every statement that addresses a single todo filters on id and owner_id
// together, so a todo owned by someone else looks exactly like a missing one.
type TodoStore struct {
	db DB
}

func NewTodoStore(db DB) *TodoStore {
	return &TodoStore{db: db}
}

// Create inserts t and returns the stored row. Completed always starts false.
func (s *TodoStore) Create(ctx context.Context, t *models.Todo) (*models.Todo, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO todos (title, description, completed, priority, created_at, owner_id)
		 VALUES ($1, $2, FALSE, $3, $4, $5)
		 RETURNING `+todoColumns,
		t.Title, t.Description, t.Priority, t.CreatedAt, t.OwnerID,
	)

	created, err := scanTodo(row)
	if err != nil {
		return nil, oops.Code("TODO_CREATE_FAILED").
			With("operation", "insert todo").
			With("owner_id", t.OwnerID).
			Wrap(err)
	}
	return created, nil
}

// List returns the owner's todos, highest priority (lowest number) first and
// newest first within a priority.
func (s *TodoStore) List(ctx context.Context, ownerID int64, skip, limit int) ([]models.Todo, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+todoColumns+`
		 FROM todos
		 WHERE owner_id = $1
		 ORDER BY priority ASC, created_at DESC, id DESC
		 OFFSET $2 LIMIT $3`,
		ownerID, skip, limit,
	)
	if err != nil {
		return nil, oops.Code("TODO_LIST_FAILED").
			With("operation", "query todos").
			With("owner_id", ownerID).
			Wrap(err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, oops.Code("TODO_LIST_FAILED").
				With("operation", "scan todo").
				With("owner_id", ownerID).
				Wrap(err)
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("TODO_LIST_FAILED").
			With("operation", "iterate todos").
			With("owner_id", ownerID).
			Wrap(err)
	}
	return todos, nil
}

func (s *TodoStore) Get(ctx context.Context, id, ownerID int64) (*models.Todo, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	return s.single(row, "get", id, ownerID)
}

// Update applies the non-nil fields of patch and returns the updated row.
func (s *TodoStore) Update(ctx context.Context, id, ownerID int64, patch models.TodoPatch) (*models.Todo, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE todos SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			completed = COALESCE($5, completed),
			priority = COALESCE($6, priority)
		 WHERE id = $1 AND owner_id = $2
		 RETURNING `+todoColumns,
		id, ownerID, patch.Title, patch.Description, patch.Completed, patch.Priority,
	)
	return s.single(row, "update", id, ownerID)
}

// Delete removes the todo and returns it as it was before deletion.
func (s *TodoStore) Delete(ctx context.Context, id, ownerID int64) (*models.Todo, error) {
	row := s.db.QueryRow(ctx,
		`DELETE FROM todos WHERE id = $1 AND owner_id = $2 RETURNING `+todoColumns,
		id, ownerID,
	)
	return s.single(row, "delete", id, ownerID)
}

func (s *TodoStore) single(row pgx.Row, op string, id, ownerID int64) (*models.Todo, error) {
	t, err := scanTodo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TODO_NOT_FOUND").
			With("id", id).
			Public("todo not found").
			Wrap(apperr.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TODO_"+strings.ToUpper(op)+"_FAILED").
			With("operation", op+" todo").
			With("id", id).
			With("owner_id", ownerID).
			Wrap(err)
	}
	return t, nil
}

func scanTodo(row pgx.Row) (*models.Todo, error) {
	var t models.Todo
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.Priority, &t.CreatedAt, &t.OwnerID); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	t.CreatedAt = t.CreatedAt.In(models.KST)
	return &t, nil
}
