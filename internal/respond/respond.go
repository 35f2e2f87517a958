// Package respond writes JSON responses and maps core errors to HTTP statuses.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ayush/todo-api/internal/apperr"
	"github.com/ayush/todo-api/internal/logging"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": msg} with the status matching err.
// Unclassified errors are logged and answered with a generic 500.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := apperr.Status(err)
	switch status {
	case http.StatusInternalServerError:
		logging.LogError(r.Context(), logger, "request failed", err)
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	JSON(w, status, map[string]string{"error": apperr.PublicMessage(err)})
}

// MaxBodyBytes caps the request bodies Decode will read.
const MaxBodyBytes = 1 << 20

// Decode reads a JSON request body of at most MaxBodyBytes into v.
// Unknown fields are ignored.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return apperr.Validation("INVALID_BODY", "invalid request body")
	}
	return nil
}
