package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackbridge/hackbridge/internal/middleware"
	"github.com/hackbridge/hackbridge/internal/models"
	"github.com/hackbridge/hackbridge/internal/service"
)

// CourseService lists the course catalog.
type CourseService interface {
	List(ctx context.Context, category models.Category) ([]models.Course, error)
	Get(ctx context.Context, id string) (*models.Course, error)
}

// TaskService manages the task board.
type TaskService interface {
	List(ctx context.Context, category models.Category) ([]models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	Post(ctx context.Context, actor *models.User, in service.PostTaskInput) (*models.Task, error)
	SetStatus(ctx context.Context, actor *models.User, id string, status models.TaskStatus) (*models.Task, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Mine(ctx context.Context, actor *models.User) ([]models.Task, error)
}

// CourseHandler serves the public course catalog.
type CourseHandler struct {
	Courses CourseService
	Log     *zap.Logger
}

// List returns all courses, filtered by the optional ?category= query.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Courses.List(r.Context(), models.Category(r.URL.Query().Get("category")))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Courses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// TaskHandler serves the task board.
type TaskHandler struct {
	Tasks TaskService
	Log   *zap.Logger
}

// StatusRequest is the body of a task status change.
type StatusRequest struct {
	Status models.TaskStatus `json:"status"`
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tasks.List(r.Context(), models.Category(r.URL.Query().Get("category")))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Mine lists the tasks posted by the calling company.
func (h *TaskHandler) Mine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tasks.Mine(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Post publishes a new task for the calling company.
func (h *TaskHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req service.PostTaskInput
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.Tasks.Post(r.Context(), middleware.UserFromContext(r.Context()), req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.Tasks.SetStatus(r.Context(), middleware.UserFromContext(r.Context()), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Delete(r.Context(), middleware.UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
