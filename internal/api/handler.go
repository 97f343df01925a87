// Package api provides HTTP handlers for the TaskFlow API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/taskflow/internal/notify"
	"github.com/ashureev/taskflow/internal/store"
	"github.com/ashureev/taskflow/internal/tasks"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler provides common handler utilities.
type Handler struct {
	repo                store.Repository
	frontendRedirectURL string
	isDev               bool
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, frontendURL string, isDev bool) *Handler {
	return &Handler{
		repo:                repo,
		frontendRedirectURL: frontendURL,
		isDev:               isDev,
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string               `json:"error"`
	Toast *notify.Notification `json:"toast,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Error: message})
}

// ErrorWithToast writes a JSON error response carrying the notification the
// client should show.
func ErrorWithToast(w http.ResponseWriter, status int, message string, toast notify.Notification) {
	JSON(w, status, errorBody{Error: message, Toast: &toast})
}

// TaskError maps a task adapter error to a response: 400 for validation
// failures, 404 for missing rows and 502 for any other store failure.
func TaskError(w http.ResponseWriter, err error) {
	if errors.Is(err, tasks.ErrInvalidTask) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var perr *tasks.PersistenceError
	if !errors.As(err, &perr) {
		slog.Error("Unexpected task error", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusBadGateway
	message := "task store unavailable"
	if errors.Is(err, store.ErrNotFound) {
		status = http.StatusNotFound
		message = "task not found"
	}
	slog.Error("Task store operation failed", "op", perr.Op, "task_id", perr.TaskID, "error", perr.Err)
	ErrorWithToast(w, status, message, perr.Notification())
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
