// Package seed populates empty collections with the bundled demo data.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/hackbridge/hackbridge/internal/kv"
	"github.com/hackbridge/hackbridge/internal/models"
	"github.com/hackbridge/hackbridge/internal/repository"
)

//go:embed data.yaml
var defaultData []byte

// User is a seed account with its plaintext demo password.
type User struct {
	models.User
	Password string `json:"password"`
}

// Fixture is the full seed data set.
type Fixture struct {
	Courses []models.Course `json:"courses"`
	Users   []User          `json:"users"`
	Tasks   []models.Task   `json:"tasks"`
}

// ParseFixture decodes YAML seed data. Field names follow the JSON names of
// the models so the same tags serve both formats.
func ParseFixture(raw []byte) (*Fixture, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "parse seed yaml")
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "convert seed yaml")
	}
	var f Fixture
	if err := json.Unmarshal(buf, &f); err != nil {
		return nil, errors.Wrap(err, "decode seed data")
	}
	return &f, nil
}

// DefaultFixture returns the embedded demo data.
func DefaultFixture() (*Fixture, error) {
	return ParseFixture(defaultData)
}

// Seeder writes a fixture into the repositories.
type Seeder struct {
	store   kv.Store
	users   *repository.UserRepository
	courses *repository.CourseRepository
	tasks   *repository.TaskRepository
	fixture *Fixture
	cost    int
	log     *zap.Logger
}

// New creates a Seeder. cost is the bcrypt cost for seed passwords.
func New(
	store kv.Store,
	users *repository.UserRepository,
	courses *repository.CourseRepository,
	tasks *repository.TaskRepository,
	fixture *Fixture,
	cost int,
	log *zap.Logger,
) *Seeder {
	return &Seeder{
		store:   store,
		users:   users,
		courses: courses,
		tasks:   tasks,
		fixture: fixture,
		cost:    cost,
		log:     log,
	}
}

func markerKey(collection string) string { return repository.SeededPrefix + collection }

// EnsureSeeded seeds every collection that has not been seeded before.
// Existing records are never overwritten, so calling it again is a no-op.
// Courses go first so purchases resolve, then users so tasks find their
// companies.
func (s *Seeder) EnsureSeeded(ctx context.Context) error {
	steps := []struct {
		name string
		run  func(ctx context.Context) (int, error)
	}{
		{"courses", s.seedCourses},
		{"users", s.seedUsers},
		{"tasks", s.seedTasks},
	}
	for _, step := range steps {
		done, err := s.isSeeded(ctx, step.name)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		n, err := step.run(ctx)
		if err != nil {
			return errors.Wrapf(err, "seed %s", step.name)
		}
		if _, err := s.store.Set(ctx, markerKey(step.name), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
			return errors.Wrapf(err, "mark %s seeded", step.name)
		}
		s.log.Info("seeded collection", zap.String("collection", step.name), zap.Int("created", n))
	}
	return nil
}

func (s *Seeder) isSeeded(ctx context.Context, collection string) (bool, error) {
	_, err := s.store.Get(ctx, markerKey(collection))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "check seed marker")
	}
	return true, nil
}

func skippable(err error) bool {
	return errors.Is(err, repository.ErrAlreadyExists) || errors.Is(err, repository.ErrEmailTaken)
}

func (s *Seeder) seedCourses(ctx context.Context) (int, error) {
	created := 0
	for i := range s.fixture.Courses {
		err := s.courses.Create(ctx, &s.fixture.Courses[i])
		if skippable(err) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *Seeder) seedUsers(ctx context.Context) (int, error) {
	created := 0
	for i := range s.fixture.Users {
		su := s.fixture.Users[i]
		u := su.User
		err := s.users.Create(ctx, &u)
		if errors.Is(err, repository.ErrAlreadyExists) {
			// An earlier run may have stopped between the two writes.
			if err := s.ensurePassword(ctx, u.ID, su.Password); err != nil {
				return created, err
			}
			continue
		}
		if skippable(err) {
			continue
		}
		if err != nil {
			return created, err
		}
		if err := s.setPassword(ctx, u.ID, su.Password); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// ensurePassword sets the seed password only when the account has none, so
// credentials changed since seeding are kept.
func (s *Seeder) ensurePassword(ctx context.Context, userID, password string) error {
	_, err := s.users.PasswordHash(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.setPassword(ctx, userID, password)
	}
	return err
}

func (s *Seeder) setPassword(ctx context.Context, userID, password string) error {
	if password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return errors.Wrap(err, "hash seed password")
	}
	return s.users.SetPasswordHash(ctx, userID, hash)
}

func (s *Seeder) seedTasks(ctx context.Context) (int, error) {
	created := 0
	for i := range s.fixture.Tasks {
		t := s.fixture.Tasks[i]
		err := s.tasks.Create(ctx, &t)
		if skippable(err) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
