package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackbridge/hackbridge/internal/kv"
	"github.com/hackbridge/hackbridge/internal/models"
	"github.com/hackbridge/hackbridge/internal/repository"
)

type testEnv struct {
	clock    *testClock
	users    *repository.UserRepository
	courses  *repository.CourseRepository
	tasks    *repository.TaskRepository
	sessions *repository.SessionRepository
	carts    *repository.CartRepository
	auth     *AuthService
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := kv.NewMemoryStore()
	courses := repository.NewCourseRepository(store)
	users := repository.NewUserRepository(store, courses)
	env := &testEnv{
		clock:    &testClock{now: time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)},
		users:    users,
		courses:  courses,
		tasks:    repository.NewTaskRepository(store, users),
		sessions: repository.NewSessionRepository(store),
		carts:    repository.NewCartRepository(store),
	}
	env.auth = NewAuthService(env.users, env.sessions, AuthOptions{
		Secret:     []byte("test-secret"),
		TTL:        time.Hour,
		BcryptCost: bcrypt.MinCost,
		Now:        env.clock.Now,
	}, zap.NewNop())
	return env
}

// addUser stores u with password.
func (e *testEnv) addUser(t *testing.T, u *models.User, password string) *models.User {
	t.Helper()
	ctx := context.Background()
	if u.Skills == nil {
		u.Skills = []models.Skill{}
	}
	if u.PurchasedCourses == nil {
		u.PurchasedCourses = []string{}
	}
	if err := e.users.Create(ctx, u); err != nil {
		t.Fatalf("create user %s: %v", u.ID, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := e.users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		t.Fatalf("set hash: %v", err)
	}
	return u
}

func (e *testEnv) addCourse(t *testing.T, id string, price float64) *models.Course {
	t.Helper()
	c := &models.Course{
		ID: id, Title: "Course " + id, Price: price,
		Difficulty: models.DifficultyMedium, Category: models.CategoryWeb, LessonsCount: 4,
	}
	if err := e.courses.Create(context.Background(), c); err != nil {
		t.Fatalf("create course %s: %v", id, err)
	}
	return c
}

func (e *testEnv) mustUser(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := e.users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %s: %v", id, err)
	}
	return u
}

func admin() *models.User {
	return &models.User{ID: "1", Username: "Администратор", Email: "admin@hackbridge.ru", Role: models.RoleAdmin, Balance: 100000}
}

func hackerUser(id string, balance float64) *models.User {
	return &models.User{ID: id, Username: "hacker " + id, Email: id + "@example.com", Role: models.RoleHacker, Balance: balance}
}

func companyUser(id string) *models.User {
	return &models.User{ID: id, Username: "Company " + id, Email: id + "@corp.ru", Role: models.RoleCompany}
}
