package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ayush/todo-api/internal/models"
	"github.com/ayush/todo-api/internal/respond"
)

// SessionResolver turns an Authorization header into an active user.
type SessionResolver interface {
	Resolve(ctx context.Context, header string) (*models.User, error)
}

type userKey struct{}

// RequireAuth is middleware that validates the bearer token and
// injects the resolved user into the request context.
func RequireAuth(sessions SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := sessions.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				respond.Error(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the user stored by RequireAuth.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey{}).(*models.User)
	return user, ok && user != nil
}
