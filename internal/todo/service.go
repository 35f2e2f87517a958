// Package todo implements owner-scoped todo management on top of a Store.
package todo

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/models"
)

// List paging defaults.
const (
	DefaultLimit    = 100
	DefaultMaxLimit = 500
)

// Store defines the interface for todo persistence. Every method taking an
// id also takes the owner, and returns an error wrapping apperr.ErrNotFound
// when the pair does not match a row.
type Store interface {
	Create(ctx context.Context, t *models.Todo) (*models.Todo, error)
	List(ctx context.Context, ownerID int64, skip, limit int) ([]models.Todo, error)
	Get(ctx context.Context, id, ownerID int64) (*models.Todo, error)
	Update(ctx context.Context, id, ownerID int64, patch models.TodoPatch) (*models.Todo, error)
	Delete(ctx context.Context, id, ownerID int64) (*models.Todo, error)
}

// Service applies input rules before handing todos to the Store.
type Service struct {
	store    Store
	maxLimit int
	now      func() time.Time
}

// NewService creates a Service. A maxLimit of zero or less uses DefaultMaxLimit.
func NewService(store Store, maxLimit int) *Service {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &Service{store: store, maxLimit: maxLimit, now: models.Now}
}

// Create stores a new, incomplete todo for ownerID.
func (s *Service) Create(ctx context.Context, ownerID int64, in models.NewTodo) (*models.Todo, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}

	priority := models.DefaultPriority
	if in.Priority != nil {
		if err := validatePriority(*in.Priority); err != nil {
			return nil, err
		}
		priority = *in.Priority
	}

	t, err := s.store.Create(ctx, &models.Todo{
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
		CreatedAt:   s.now(),
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, oops.Code("TODO_CREATE_FAILED").With("owner_id", ownerID).Wrap(err)
	}
	return t, nil
}

// List returns a page of the owner's todos. A nil skip or limit takes the
// default; limits above the configured maximum are clamped.
func (s *Service) List(ctx context.Context, ownerID int64, skip, limit *int) ([]models.Todo, error) {
	off, n := 0, DefaultLimit
	if skip != nil {
		off = *skip
	}
	if limit != nil {
		n = *limit
	}
	if off < 0 {
		return nil, apperr.Validation("TODO_INVALID_SKIP", "skip must not be negative")
	}
	if n < 0 {
		return nil, apperr.Validation("TODO_INVALID_LIMIT", "limit must not be negative")
	}
	n = min(n, s.maxLimit)

	return s.store.List(ctx, ownerID, off, n)
}

func (s *Service) Get(ctx context.Context, id, ownerID int64) (*models.Todo, error) {
	return s.store.Get(ctx, id, ownerID)
}

// Update applies the fields present in patch. An empty patch returns the
// todo unchanged.
func (s *Service) Update(ctx context.Context, id, ownerID int64, patch models.TodoPatch) (*models.Todo, error) {
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	if patch.Priority != nil {
		if err := validatePriority(*patch.Priority); err != nil {
			return nil, err
		}
	}
	if patch.Empty() {
		return s.store.Get(ctx, id, ownerID)
	}
	return s.store.Update(ctx, id, ownerID, patch)
}

// Delete removes the todo and returns it as it was.
func (s *Service) Delete(ctx context.Context, id, ownerID int64) (*models.Todo, error) {
	return s.store.Delete(ctx, id, ownerID)
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperr.Validation("TODO_INVALID_TITLE", "title is required")
	}
	return nil
}

// validatePriority keeps priority within the INTEGER column.
func validatePriority(p int) error {
	if p < math.MinInt32 || p > math.MaxInt32 {
		return apperr.Validation("TODO_INVALID_PRIORITY", "priority is out of range")
	}
	return nil
}
