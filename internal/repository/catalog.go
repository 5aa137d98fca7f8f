package repository

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/hackbridge/hackbridge/internal/kv"
	"github.com/hackbridge/hackbridge/internal/models"
)

// CourseRepository manages course records.
type CourseRepository struct {
	*Collection[models.Course]
}

func NewCourseRepository(store kv.Store) *CourseRepository {
	return &CourseRepository{
		Collection: NewCollection(store, CoursesPrefix, func(c *models.Course) string { return c.ID }),
	}
}

func validateCourse(c *models.Course) error {
	switch {
	case c.Title == "":
		return errors.Wrap(ErrInvalid, "course title is required")
	case c.Price < 0:
		return errors.Wrap(ErrInvalid, "course price must not be negative")
	case !c.Difficulty.Valid():
		return errors.Wrapf(ErrInvalid, "unknown difficulty %q", c.Difficulty)
	case !c.Category.Valid():
		return errors.Wrapf(ErrInvalid, "unknown category %q", c.Category)
	case c.LessonsCount < 0:
		return errors.Wrap(ErrInvalid, "lessons count must not be negative")
	}
	return nil
}

func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	if err := validateCourse(c); err != nil {
		return err
	}
	return r.Collection.Create(ctx, c)
}

func (r *CourseRepository) Update(ctx context.Context, c *models.Course) error {
	if err := validateCourse(c); err != nil {
		return err
	}
	return r.Collection.Update(ctx, c)
}

// UserLookup resolves users by id. UserRepository implements it.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// TaskRepository manages task records. The company name of a task is
// always taken from the referenced company user.
type TaskRepository struct {
	*Collection[models.Task]
	users UserLookup
}

// NewTaskRepository creates a TaskRepository. A nil users lookup disables
// the company reference check.
func NewTaskRepository(store kv.Store, users UserLookup) *TaskRepository {
	return &TaskRepository{
		Collection: NewCollection(store, TasksPrefix, func(t *models.Task) string { return t.ID }),
		users:      users,
	}
}

func (r *TaskRepository) prepare(ctx context.Context, t *models.Task) error {
	switch {
	case t.Title == "":
		return errors.Wrap(ErrInvalid, "task title is required")
	case t.Reward < 0:
		return errors.Wrap(ErrInvalid, "task reward must not be negative")
	case !t.Difficulty.Valid():
		return errors.Wrapf(ErrInvalid, "unknown difficulty %q", t.Difficulty)
	case !t.Category.Valid():
		return errors.Wrapf(ErrInvalid, "unknown category %q", t.Category)
	case !t.Status.Valid():
		return errors.Wrapf(ErrInvalid, "unknown status %q", t.Status)
	}
	if r.users == nil {
		return nil
	}
	company, err := r.users.GetByID(ctx, t.CompanyID)
	if errors.Is(err, ErrNotFound) {
		return errors.Wrapf(ErrUnknownCompany, "company %q", t.CompanyID)
	}
	if err != nil {
		return err
	}
	if company.Role != models.RoleCompany {
		return errors.Wrapf(ErrUnknownCompany, "user %q is not a company", t.CompanyID)
	}
	t.CompanyName = company.Username
	if t.CompanyLogoURL == "" {
		t.CompanyLogoURL = company.AvatarURL
	}
	return nil
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	if err := r.prepare(ctx, t); err != nil {
		return err
	}
	return r.Collection.Create(ctx, t)
}

func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	if err := r.prepare(ctx, t); err != nil {
		return err
	}
	return r.Collection.Update(ctx, t)
}

// Modify applies fn and re-checks the company reference before writing.
func (r *TaskRepository) Modify(ctx context.Context, id string, fn func(t *models.Task) error) (*models.Task, error) {
	return r.Collection.Modify(ctx, id, func(t *models.Task) error {
		if err := fn(t); err != nil {
			return err
		}
		return r.prepare(ctx, t)
	})
}

// ByCompany returns the tasks posted by companyID.
func (r *TaskRepository) ByCompany(ctx context.Context, companyID string) ([]models.Task, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Task, 0)
	for _, t := range all {
		if t.CompanyID == companyID {
			out = append(out, t)
		}
	}
	return out, nil
}
