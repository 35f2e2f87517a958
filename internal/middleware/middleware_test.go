package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/middleware"
	"github.com/ayush/todo-api/internal/models"
)

type resolverFunc func(ctx context.Context, header string) (*models.User, error)

func (f resolverFunc) Resolve(ctx context.Context, header string) (*models.User, error) {
	return f(ctx, header)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRequireAuth(t *testing.T) {
	alice := &models.User{ID: 1, Username: "alice", IsActive: true}

	resolver := resolverFunc(func(_ context.Context, header string) (*models.User, error) {
		switch header {
		case "Bearer good":
			return alice, nil
		case "Bearer inactive":
			return nil, oops.Public("inactive user").Wrap(apperr.ErrForbidden)
		default:
			return nil, oops.Public("could not validate credentials").Wrap(apperr.ErrUnauthorized)
		}
	})

	var seen *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		require.True(t, ok)
		seen = user
		w.WriteHeader(http.StatusNoContent)
	})
	h := middleware.RequireAuth(resolver, discard)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   bool
	}{
		{"valid token", "Bearer good", http.StatusNoContent, true},
		{"missing header", "", http.StatusUnauthorized, false},
		{"bad token", "Bearer bad", http.StatusUnauthorized, false},
		{"inactive account", "Bearer inactive", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantUser {
				assert.Equal(t, alice, seen)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestUserFrom_Empty(t *testing.T) {
	_, ok := middleware.UserFrom(context.Background())
	assert.False(t, ok)
}

func TestMetrics_Instrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/todos/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/todos/"+id, nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/todos/{id}", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}
