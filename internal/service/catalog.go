package service

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackbridge/hackbridge/internal/models"
)

// CourseService exposes the read side of the catalog.
type CourseService struct {
	courses CourseStore
}

func NewCourseService(courses CourseStore) *CourseService {
	return &CourseService{courses: courses}
}

// List returns all courses, or those of category when it is not empty.
func (s *CourseService) List(ctx context.Context, category models.Category) ([]models.Course, error) {
	all, err := s.courses.GetAll(ctx)
	if err != nil || category == "" {
		return all, err
	}
	out := make([]models.Course, 0, len(all))
	for _, c := range all {
		if strings.EqualFold(string(c.Category), string(category)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	return s.courses.GetByID(ctx, id)
}

// TaskService handles company task postings.
type TaskService struct {
	tasks TaskStore
	log   *zap.Logger
}

func NewTaskService(tasks TaskStore, log *zap.Logger) *TaskService {
	return &TaskService{tasks: tasks, log: log}
}

// List returns all tasks, optionally narrowed to one category.
func (s *TaskService) List(ctx context.Context, category models.Category) ([]models.Task, error) {
	all, err := s.tasks.GetAll(ctx)
	if err != nil || category == "" {
		return all, err
	}
	out := make([]models.Task, 0, len(all))
	for _, t := range all {
		if strings.EqualFold(string(t.Category), string(category)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// PostTaskInput holds the fields a company supplies for a new task.
type PostTaskInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Difficulty  models.Difficulty `json:"difficulty"`
	Category    models.Category   `json:"category"`
	Reward      float64           `json:"reward"`
}

// Post publishes a task on behalf of a company user.
func (s *TaskService) Post(ctx context.Context, actor *models.User, in PostTaskInput) (*models.Task, error) {
	if actor == nil || actor.Role != models.RoleCompany {
		return nil, ErrForbidden
	}
	if in.Reward <= 0 {
		return nil, errors.Wrap(ErrInvalidInput, "reward must be positive")
	}
	t := &models.Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Difficulty:  in.Difficulty,
		Category:    in.Category,
		Reward:      in.Reward,
		CompanyID:   actor.ID,
		CompanyName: actor.Username,
		Status:      models.TaskOpen,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info("task posted", zap.String("company_id", actor.ID), zap.String("task_id", t.ID))
	return t, nil
}

func canManageTask(actor *models.User, t *models.Task) bool {
	if actor == nil {
		return false
	}
	return actor.Role == models.RoleAdmin || (actor.Role == models.RoleCompany && actor.ID == t.CompanyID)
}

// SetStatus changes the status label. Only the owning company or an admin may.
func (s *TaskService) SetStatus(ctx context.Context, actor *models.User, id string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(ErrInvalidInput, "unknown status %q", status)
	}
	t, err := s.tasks.Modify(ctx, id, func(t *models.Task) error {
		if !canManageTask(actor, t) {
			return ErrForbidden
		}
		t.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("task status changed", zap.String("task_id", id), zap.String("status", string(status)))
	return t, nil
}

// Delete removes a task owned by the acting company, or any task for an admin.
func (s *TaskService) Delete(ctx context.Context, actor *models.User, id string) error {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManageTask(actor, t) {
		return ErrForbidden
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("task deleted", zap.String("task_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// Mine lists the tasks posted by a company.
func (s *TaskService) Mine(ctx context.Context, actor *models.User) ([]models.Task, error) {
	if actor == nil || actor.Role != models.RoleCompany {
		return nil, ErrForbidden
	}
	return s.tasks.ByCompany(ctx, actor.ID)
}
