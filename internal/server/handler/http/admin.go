package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackbridge/hackbridge/internal/middleware"
	"github.com/hackbridge/hackbridge/internal/models"
)

// AdminService defines the admin panel operations. Every call takes the
// acting user.
type AdminService interface {
	Users(ctx context.Context, actor *models.User) ([]models.User, error)
	Courses(ctx context.Context, actor *models.User) ([]models.Course, error)
	Tasks(ctx context.Context, actor *models.User) ([]models.Task, error)
	ToggleBan(ctx context.Context, actor *models.User, userID string) (*models.User, error)
	AddFunds(ctx context.Context, actor *models.User, userID string, amount float64) (*models.User, error)
	SetRating(ctx context.Context, actor *models.User, userID string, rating float64) (*models.User, error)
	DeleteUser(ctx context.Context, actor *models.User, userID string) error
	DeleteTask(ctx context.Context, actor *models.User, taskID string) error
	CreateCourse(ctx context.Context, actor *models.User, c *models.Course) (*models.Course, error)
	UpdateCourse(ctx context.Context, actor *models.User, id string, c *models.Course) (*models.Course, error)
	DeleteCourse(ctx context.Context, actor *models.User, id string) error
}

// AdminHandler serves /api/admin.
type AdminHandler struct {
	Admin AdminService
	Log   *zap.Logger
}

// FundsRequest is the body of a balance adjustment; negative amounts withdraw.
type FundsRequest struct {
	Amount float64 `json:"amount"`
}

// RatingRequest is the body of a rating change.
type RatingRequest struct {
	Rating float64 `json:"rating"`
}

func actor(r *http.Request) *models.User {
	return middleware.UserFromContext(r.Context())
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	list, err := h.Admin.Users(r.Context(), actor(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) Courses(w http.ResponseWriter, r *http.Request) {
	list, err := h.Admin.Courses(r.Context(), actor(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.Admin.Tasks(r.Context(), actor(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) ToggleBan(w http.ResponseWriter, r *http.Request) {
	u, err := h.Admin.ToggleBan(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) AddFunds(w http.ResponseWriter, r *http.Request) {
	var req FundsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Admin.AddFunds(r.Context(), actor(r), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) SetRating(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Admin.SetRating(r.Context(), actor(r), chi.URLParam(r, "id"), req.Rating)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Admin.DeleteUser(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Admin.DeleteTask(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var c models.Course
	if !decodeJSON(w, r, &c) {
		return
	}
	created, err := h.Admin.CreateCourse(r.Context(), actor(r), &c)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	var c models.Course
	if !decodeJSON(w, r, &c) {
		return
	}
	updated, err := h.Admin.UpdateCourse(r.Context(), actor(r), chi.URLParam(r, "id"), &c)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.Admin.DeleteCourse(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
