// Package http provides the HTTP handlers of the HackBridge API.
package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/hackbridge/hackbridge/internal/middleware"
	"github.com/hackbridge/hackbridge/internal/models"
	"github.com/hackbridge/hackbridge/internal/service"
)

// AuthService defines the authentication operations required by the HTTP handlers.
type AuthService interface {
	// Register creates an account and returns it with a session token.
	Register(ctx context.Context, in service.RegisterInput) (*models.User, string, error)
	// Login verifies credentials and returns the user with a session token.
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	// Logout ends the session identified by token.
	Logout(ctx context.Context, token string) error
	// ChangePassword replaces the password after verifying the old one.
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	// UpdateProfile edits the display fields of a user.
	UpdateProfile(ctx context.Context, userID string, in service.ProfileInput) (*models.User, error)
}

// AuthHandler handles registration, login and profile requests.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Log         *zap.Logger
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordRequest represents the JSON payload for a password change.
type PasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register handles sign-up requests. On success it answers 201 with the new
// user and a session token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}
	user, token, err := h.AuthService.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{User: user, Token: token})
}

// Login handles email and password login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, token, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{User: user, Token: token})
}

// Logout ends the caller's session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.UserFromContext(r.Context()))
}

// UpdateMe edits the caller's username and avatar.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileInput
	if !decodeJSON(w, r, &req) {
		return
	}
	u := middleware.UserFromContext(r.Context())
	updated, err := h.AuthService.UpdateProfile(r.Context(), u.ID, req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ChangePassword replaces the caller's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u := middleware.UserFromContext(r.Context())
	if err := h.AuthService.ChangePassword(r.Context(), u.ID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
