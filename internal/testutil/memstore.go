// Package testutil provides in-memory stores with the same observable
// behavior as the PostgreSQL stores, for handler and router tests.
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/models"
)

// MemStore holds users and todos in memory. Deleting a user deletes their
// todos, and uniqueness of username and email is enforced on insert.
type MemStore struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	todos  map[int64]*models.Todo
	nextID int64
}

func NewMemStore() *MemStore {
	return &MemStore{users: map[int64]*models.User{}, todos: map[int64]*models.Todo{}}
}

func (m *MemStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemStore) CreateUser(_ context.Context, username, email, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return nil, oops.Code("USER_USERNAME_TAKEN").Public("username already registered").Wrap(apperr.ErrConflict)
		}
		if u.Email == email {
			return nil, oops.Code("USER_EMAIL_TAKEN").Public("email already registered").Wrap(apperr.ErrConflict)
		}
	}

	u := &models.User{
		ID:           m.id(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    models.Now(),
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *MemStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(apperr.ErrNotFound)
}

func (m *MemStore) SetUserActive(_ context.Context, username string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			u.IsActive = active
			return nil
		}
	}
	return oops.Code("USER_NOT_FOUND").Wrap(apperr.ErrNotFound)
}

func (m *MemStore) DeleteUser(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return 0, oops.Code("USER_NOT_FOUND").Wrap(apperr.ErrNotFound)
	}
	delete(m.users, id)

	var n int64
	for tid, t := range m.todos {
		if t.OwnerID == id {
			delete(m.todos, tid)
			n++
		}
	}
	return n, nil
}

func (m *MemStore) Create(_ context.Context, t *models.Todo) (*models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[t.OwnerID]; !ok {
		return nil, oops.Code("TODO_CREATE_FAILED").Errorf("owner %d does not exist", t.OwnerID)
	}
	stored := *t
	stored.ID = m.id()
	stored.Completed = false
	m.todos[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (m *MemStore) List(_ context.Context, ownerID int64, skip, limit int) ([]models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Todo{}
	for _, t := range m.todos {
		if t.OwnerID == ownerID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if skip >= len(out) {
		return []models.Todo{}, nil
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) Get(_ context.Context, id, ownerID int64) (*models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.owned(id, ownerID)
	if err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

func (m *MemStore) Update(_ context.Context, id, ownerID int64, patch models.TodoPatch) (*models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.owned(id, ownerID)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		d := *patch.Description
		t.Description = &d
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	cp := *t
	return &cp, nil
}

func (m *MemStore) Delete(_ context.Context, id, ownerID int64) (*models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.owned(id, ownerID)
	if err != nil {
		return nil, err
	}
	delete(m.todos, id)
	return t, nil
}

func (m *MemStore) owned(id, ownerID int64) (*models.Todo, error) {
	t, ok := m.todos[id]
	if !ok || t.OwnerID != ownerID {
		return nil, oops.Code("TODO_NOT_FOUND").Public("todo not found").Wrap(apperr.ErrNotFound)
	}
	return t, nil
}
