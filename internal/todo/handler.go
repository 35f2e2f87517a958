package todo

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/middleware"
	"github.com/ayush/todo-api/internal/models"
	"github.com/ayush/todo-api/internal/respond"
)

// Handler holds todo HTTP handlers. Every route expects RequireAuth to have
// run first.
type Handler struct {
	todos  *Service
	logger *slog.Logger
}

func NewHandler(todos *Service, logger *slog.Logger) *Handler {
	return &Handler{todos: todos, logger: logger}
}

// Routes registers the todo endpoints on a router mounted at /todos.
// chi routes both /todos and /todos/ to the "/" pattern.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// Create stores a new todo for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user := h.user(w, r)
	if user == nil {
		return
	}

	var req models.NewTodo
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	t, err := h.todos.Create(r.Context(), user.ID, req)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, t)
}

// List returns the caller's todos, honoring ?skip= and ?limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := h.user(w, r)
	if user == nil {
		return
	}

	skip, err := queryInt(r, "skip")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	todos, err := h.todos.List(r.Context(), user.ID, skip, limit)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, todos)
}

// Get returns a single todo owned by the caller.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}

	t, err := h.todos.Get(r.Context(), id, user.ID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

// Update applies a partial update. PUT and PATCH share these semantics.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var patch models.TodoPatch
	if err := respond.Decode(w, r, &patch); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	t, err := h.todos.Update(r.Context(), id, user.ID, patch)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

// Delete removes a todo and returns what was deleted.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}

	t, err := h.todos.Delete(r.Context(), id, user.ID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) *models.User {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.ErrUnauthorized)
		return nil
	}
	return user
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (*models.User, int64, bool) {
	user := h.user(w, r)
	if user == nil {
		return nil, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, r, h.logger, apperr.Validation("TODO_INVALID_ID", "todo id must be an integer"))
		return nil, 0, false
	}
	return user, id, true
}

func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.Validation("TODO_INVALID_"+strings.ToUpper(name), name+" must be an integer")
	}
	return &n, nil
}
