package auth

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/middleware"
	"github.com/ayush/todo-api/internal/models"
	"github.com/ayush/todo-api/internal/respond"
)

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Signup creates a new user.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	user, err := h.svc.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user signed up", "user_id", user.ID)
	respond.JSON(w, http.StatusCreated, user)
}

// Login exchanges a username and password for a bearer token. The
// credentials may arrive as an OAuth2 password form or as JSON.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := loginRequest(w, r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

// DeleteMe removes the authenticated user together with their todos.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}

	n, err := h.svc.DeleteAccount(r.Context(), user)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user deleted account", "user_id", user.ID, "deleted_todos", n)
	respond.JSON(w, http.StatusOK, map[string]int64{"deleted_todos": n})
}

func loginRequest(w http.ResponseWriter, r *http.Request) (models.LoginRequest, error) {
	var req models.LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, respond.MaxBodyBytes)
		if err := r.ParseMultipartForm(respond.MaxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return req, apperr.Validation("INVALID_BODY", "invalid form body")
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	default:
		if err := respond.Decode(w, r, &req); err != nil {
			return req, err
		}
	}
	if req.Username == "" || req.Password == "" {
		return req, apperr.Validation("AUTH_MISSING_CREDENTIALS", "username and password are required")
	}
	return req, nil
}
