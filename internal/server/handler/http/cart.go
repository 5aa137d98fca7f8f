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

// CartService manages the caller's cart.
type CartService interface {
	Items(ctx context.Context, userID string) (*models.Cart, error)
	Add(ctx context.Context, userID, courseID string) (*models.Cart, error)
	Remove(ctx context.Context, userID, itemID string) (*models.Cart, error)
	Checkout(ctx context.Context, userID string) (*models.User, error)
}

// QuizService applies finished quizzes to the caller's skills.
type QuizService interface {
	ApplyResult(ctx context.Context, userID string, res service.QuizResult) (*models.User, error)
}

// CartHandler serves the shopping cart of the authenticated user.
type CartHandler struct {
	Cart CartService
	Log  *zap.Logger
}

// CartResponse is a cart with its computed total.
type CartResponse struct {
	Items []models.CartItem `json:"items"`
	Total float64           `json:"total"`
}

// AddItemRequest is the body of POST /api/cart/items.
type AddItemRequest struct {
	CourseID string `json:"courseId"`
}

func cartResponse(c *models.Cart) CartResponse {
	items := c.Items
	if items == nil {
		items = []models.CartItem{}
	}
	return CartResponse{Items: items, Total: c.Total()}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Cart.Items(r.Context(), middleware.UserFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(c))
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CourseID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	c, err := h.Cart.Add(r.Context(), middleware.UserFromContext(r.Context()).ID, req.CourseID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, cartResponse(c))
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	c, err := h.Cart.Remove(r.Context(), middleware.UserFromContext(r.Context()).ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(c))
}

// Checkout buys every course in the cart and returns the updated user.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	u, err := h.Cart.Checkout(r.Context(), middleware.UserFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// QuizHandler records quiz results.
type QuizHandler struct {
	Quiz QuizService
	Log  *zap.Logger
}

func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.QuizResult
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Quiz.ApplyResult(r.Context(), middleware.UserFromContext(r.Context()).ID, req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
