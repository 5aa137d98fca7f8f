// Package service provides the business logic for accounts, sessions, the
// course catalog, carts, quizzes, company tasks and the admin panel,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"time"

	"github.com/hackbridge/hackbridge/internal/models"
)

// UserStore defines the user persistence operations the services need.
type UserStore interface {
	GetAll(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	// Modify applies fn with optimistic retries; fn may run more than once.
	Modify(ctx context.Context, id string, fn func(u *models.User) error) (*models.User, error)
	Delete(ctx context.Context, id string) error
	SetPasswordHash(ctx context.Context, userID string, hash []byte) error
	PasswordHash(ctx context.Context, userID string) ([]byte, error)
}

// SessionStore persists login sessions.
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CourseStore persists catalog courses.
type CourseStore interface {
	GetAll(ctx context.Context) ([]models.Course, error)
	GetByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, c *models.Course) error
	Update(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, id string) error
}

// TaskStore persists company tasks.
type TaskStore interface {
	GetAll(ctx context.Context) ([]models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, t *models.Task) error
	Modify(ctx context.Context, id string, fn func(t *models.Task) error) (*models.Task, error)
	Delete(ctx context.Context, id string) error
	ByCompany(ctx context.Context, companyID string) ([]models.Task, error)
}

// CartStore persists one cart per user.
type CartStore interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Modify(ctx context.Context, userID string, fn func(c *models.Cart) error) (*models.Cart, error)
}
