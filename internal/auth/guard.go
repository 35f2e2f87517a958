package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/models"
)

// TokenVerifier resolves a bearer token to its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLookup finds a user by username.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Guard turns an Authorization header into an active user.
type Guard struct {
	tokens TokenVerifier
	users  UserLookup
}

// NewGuard creates a new Guard.
func NewGuard(tokens TokenVerifier, users UserLookup) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Resolve extracts the bearer token from header and resolves it.
func (g *Guard) Resolve(ctx context.Context, header string) (*models.User, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, unauthorized("missing or malformed authorization header")
	}
	return g.Whoami(ctx, token)
}

// Whoami verifies token and returns the active user it names.
// An inactive account is reported as forbidden since the token itself is valid.
func (g *Guard) Whoami(ctx context.Context, token string) (*models.User, error) {
	subject, err := g.tokens.Verify(token)
	if err != nil {
		return nil, unauthorized("could not validate credentials")
	}

	user, err := g.users.GetUserByUsername(ctx, subject)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, unauthorized("could not validate credentials")
	}
	if err != nil {
		return nil, oops.Code("AUTH_GUARD_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	if !user.IsActive {
		return nil, oops.Code("AUTH_INACTIVE_USER").
			With("user_id", user.ID).
			Public("inactive user").
			Wrap(apperr.ErrForbidden)
	}
	return user, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func unauthorized(msg string) error {
	return oops.Code("AUTH_UNAUTHORIZED").Public(msg).Wrap(apperr.ErrUnauthorized)
}
