// Package callable serves functions over the Firebase HTTPS callable protocol:
// a POST with a JSON body {"data": ...}, answered with {"result": ...} on success
// or {"error": {"status": ..., "message": ...}} on failure.
package callable

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/cors"
)

// Canonical error statuses used by callable clients.
const (
	StatusInvalidArgument = "INVALID_ARGUMENT"
	StatusInternal        = "INTERNAL"
	StatusUnavailable     = "UNAVAILABLE"
)

// Error is a failure reported to the caller with a canonical status.
type Error struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Status + ": " + e.Message }

// NewError returns an Error with the given status and message.
func NewError(status, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Func handles one call. The request data is not passed on; callers of this service
// carry no input.
type Func func(ctx context.Context) (interface{}, error)

type resultEnvelope struct {
	Result interface{} `json:"result"`
}

type errorEnvelope struct {
	Error *Error `json:"error"`
}

// maxBodyBytes caps the ignored request body.
const maxBodyBytes = 1 << 20

// Handler wraps fn as a callable HTTP endpoint, including CORS preflight handling.
func Handler(fn Func) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Firebase-Instance-ID-Token", "X-Firebase-AppCheck"},
		MaxAge:         3600,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, fn)
	}))
}

func serve(w http.ResponseWriter, r *http.Request, fn Func) {
	if r.Method != http.MethodPost {
		WriteError(w, NewError(StatusInvalidArgument, "Bad Request"))
		return
	}
	if r.Body != nil {
		// The payload is ignored but must still be well-formed when present.
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			WriteError(w, NewError(StatusInvalidArgument, "Bad Request: could not read body"))
			return
		}
		if len(body) > 0 && !json.Valid(body) {
			WriteError(w, NewError(StatusInvalidArgument, "Bad Request: could not parse JSON"))
			return
		}
	}

	result, err := fn(r.Context())
	if err != nil {
		var callErr *Error
		if !errors.As(err, &callErr) {
			slog.Error("Callable function failed", "error", err)
			callErr = NewError(StatusInternal, "INTERNAL")
		}
		WriteError(w, callErr)
		return
	}

	writeJSON(w, http.StatusOK, resultEnvelope{Result: result})
}

// WriteError writes err as a callable error response.
func WriteError(w http.ResponseWriter, err *Error) {
	writeJSON(w, httpStatus(err.Status), errorEnvelope{Error: err})
}

func httpStatus(status string) int {
	switch status {
	case StatusInvalidArgument:
		return http.StatusBadRequest
	case StatusUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
