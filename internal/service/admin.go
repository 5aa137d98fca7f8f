package service

import (
	"context"
	"math"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackbridge/hackbridge/internal/models"
	"github.com/hackbridge/hackbridge/internal/repository"
)

// AdminService implements the admin panel. Every method takes the acting
// user and refuses anyone who is not an admin.
type AdminService struct {
	users   UserStore
	courses CourseStore
	tasks   TaskStore
	log     *zap.Logger
}

func NewAdminService(users UserStore, courses CourseStore, tasks TaskStore, log *zap.Logger) *AdminService {
	return &AdminService{users: users, courses: courses, tasks: tasks, log: log}
}

func requireAdmin(actor *models.User) error {
	if actor == nil || actor.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *AdminService) Users(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.GetAll(ctx)
}

func (s *AdminService) Courses(ctx context.Context, actor *models.User) ([]models.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.courses.GetAll(ctx)
}

func (s *AdminService) Tasks(ctx context.Context, actor *models.User) ([]models.Task, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.tasks.GetAll(ctx)
}

func (s *AdminService) modifyUser(ctx context.Context, actor *models.User, userID string, fn func(u *models.User) error) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.users.Modify(ctx, userID, fn)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ToggleBan flips the banned flag. Admins cannot ban themselves.
func (s *AdminService) ToggleBan(ctx context.Context, actor *models.User, userID string) (*models.User, error) {
	if actor != nil && actor.ID == userID {
		return nil, errors.Wrap(ErrInvalidInput, "cannot ban yourself")
	}
	u, err := s.modifyUser(ctx, actor, userID, func(u *models.User) error {
		u.Banned = !u.Banned
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user ban toggled", zap.String("admin_id", actor.ID), zap.String("user_id", userID), zap.Bool("banned", u.Banned))
	return u, nil
}

// AddFunds changes the balance by amount, which may be negative but not
// zero. The balance never drops below zero.
func (s *AdminService) AddFunds(ctx context.Context, actor *models.User, userID string, amount float64) (*models.User, error) {
	if amount == 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, errors.Wrap(ErrInvalidInput, "amount must be a non-zero number")
	}
	u, err := s.modifyUser(ctx, actor, userID, func(u *models.User) error {
		if u.Balance+amount < 0 {
			return ErrInsufficientFunds
		}
		u.Balance += amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("balance changed", zap.String("admin_id", actor.ID), zap.String("user_id", userID), zap.Float64("amount", amount))
	return u, nil
}

// SetRating replaces the rating; it must not be negative.
func (s *AdminService) SetRating(ctx context.Context, actor *models.User, userID string, rating float64) (*models.User, error) {
	if rating < 0 || math.IsNaN(rating) || math.IsInf(rating, 0) {
		return nil, errors.Wrap(ErrInvalidInput, "rating must be a non-negative number")
	}
	u, err := s.modifyUser(ctx, actor, userID, func(u *models.User) error {
		u.Rating = rating
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("rating changed", zap.String("admin_id", actor.ID), zap.String("user_id", userID), zap.Float64("rating", rating))
	return u, nil
}

// DeleteUser removes a user. Admins cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, actor *models.User, userID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if actor.ID == userID {
		return errors.Wrap(ErrInvalidInput, "cannot delete yourself")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.log.Info("user deleted", zap.String("admin_id", actor.ID), zap.String("user_id", userID))
	return nil
}

func (s *AdminService) DeleteTask(ctx context.Context, actor *models.User, taskID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return err
	}
	s.log.Info("task deleted", zap.String("admin_id", actor.ID), zap.String("task_id", taskID))
	return nil
}

// CreateCourse adds a course; an empty id is generated.
func (s *AdminService) CreateCourse(ctx context.Context, actor *models.User, c *models.Course) (*models.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.courses.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("course created", zap.String("admin_id", actor.ID), zap.String("course_id", c.ID))
	return c, nil
}

// UpdateCourse replaces the course with id.
func (s *AdminService) UpdateCourse(ctx context.Context, actor *models.User, id string, c *models.Course) (*models.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.courses.Update(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("course updated", zap.String("admin_id", actor.ID), zap.String("course_id", id))
	return c, nil
}

// DeleteCourse removes a course. Users who bought it keep the id.
func (s *AdminService) DeleteCourse(ctx context.Context, actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("course deleted", zap.String("admin_id", actor.ID), zap.String("course_id", id))
	return nil
}
