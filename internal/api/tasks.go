package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
	"github.com/ashureev/taskflow/internal/identity"
	"github.com/ashureev/taskflow/internal/notify"
	"github.com/ashureev/taskflow/internal/tasks"
	"github.com/go-chi/chi/v5"
)

// TaskHandler serves the task CRUD and statistics endpoints.
type TaskHandler struct {
	*Handler
	tasks *tasks.Service
	now   func() time.Time
}

// NewTaskHandler creates a task handler.
func NewTaskHandler(base *Handler, svc *tasks.Service) *TaskHandler {
	return &TaskHandler{Handler: base, tasks: svc, now: time.Now}
}

// RegisterRoutes registers task routes. They require a signed-in user.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(identity.RequireUser)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/stats", h.Stats)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

type taskListResponse struct {
	Filter domain.TaskFilter `json:"filter"`
	Tasks  []domain.Task     `json:"tasks"`
}

// List returns the user's tasks, optionally narrowed by ?filter=.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := domain.ParseTaskFilter(r.URL.Query().Get("filter"))
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.tasks.List(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		TaskError(w, err)
		return
	}

	JSON(w, http.StatusOK, taskListResponse{
		Filter: filter,
		Tasks:  tasks.Filter(list, filter, h.now()),
	})
}

// Stats returns aggregate counters over all of the user's tasks.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	list, err := h.tasks.List(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		TaskError(w, err)
		return
	}
	JSON(w, http.StatusOK, tasks.ComputeStats(list, h.now()))
}

type taskResponse struct {
	Task  domain.Task         `json:"task"`
	Toast notify.Notification `json:"toast"`
}

// Create stores a new task for the user.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.NewTask
	if err := decodeJSON(w, r, &in); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	task, err := h.tasks.Create(r.Context(), userID, in)
	if err != nil {
		TaskError(w, err)
		return
	}

	slog.Info("Task created", "user_id", userID, "task_id", task.ID)
	JSON(w, http.StatusCreated, taskResponse{Task: task, Toast: notify.Success("Task created successfully")})
}

type taskUpdateResponse struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Update applies a partial change to one of the user's tasks.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd domain.TaskUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if upd.IsEmpty() {
		Error(w, http.StatusBadRequest, "no fields to update")
		return
	}

	id := chi.URLParam(r, "id")
	stamp, err := h.tasks.Update(r.Context(), identity.UserIDFromContext(r.Context()), id, upd)
	if err != nil {
		TaskError(w, err)
		return
	}
	JSON(w, http.StatusOK, taskUpdateResponse{ID: id, UpdatedAt: stamp})
}

// Delete removes one of the user's tasks.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.tasks.Delete(r.Context(), userID, id); err != nil {
		TaskError(w, err)
		return
	}

	slog.Info("Task deleted", "user_id", userID, "task_id", id)
	JSON(w, http.StatusOK, map[string]interface{}{
		"status": "deleted",
		"toast":  notify.Success("Task deleted successfully"),
	})
}
