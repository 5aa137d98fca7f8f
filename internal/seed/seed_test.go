package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackbridge/hackbridge/internal/kv"
	"github.com/hackbridge/hackbridge/internal/models"
	"github.com/hackbridge/hackbridge/internal/repository"
)

type env struct {
	store   *kv.MemoryStore
	users   *repository.UserRepository
	courses *repository.CourseRepository
	tasks   *repository.TaskRepository
	seeder  *Seeder
}

func newEnv(t *testing.T) env {
	t.Helper()
	store := kv.NewMemoryStore()
	courses := repository.NewCourseRepository(store)
	users := repository.NewUserRepository(store, courses)
	tasks := repository.NewTaskRepository(store, users)
	fixture, err := DefaultFixture()
	require.NoError(t, err)
	return env{
		store:   store,
		users:   users,
		courses: courses,
		tasks:   tasks,
		seeder:  New(store, users, courses, tasks, fixture, bcrypt.MinCost, zap.NewNop()),
	}
}

func TestDefaultFixture(t *testing.T) {
	f, err := DefaultFixture()
	require.NoError(t, err)
	assert.Len(t, f.Courses, 6)
	assert.Len(t, f.Tasks, 6)
	require.NotEmpty(t, f.Users)

	admin := f.Users[0]
	assert.Equal(t, "1", admin.ID)
	assert.Equal(t, "admin@hackbridge.ru", admin.Email)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "admin123", admin.Password)

	assert.Equal(t, models.DifficultyEasy, f.Courses[0].Difficulty)
	assert.Equal(t, []string{"Web", "Security"}, f.Courses[0].Categories)
	assert.Equal(t, models.TaskOpen, f.Tasks[0].Status)
}

func TestEnsureSeeded_PopulatesCollections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.seeder.EnsureSeeded(ctx))

	courses, err := e.courses.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 6)

	tasks, err := e.tasks.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 6)
	for _, task := range tasks {
		assert.NotEmpty(t, task.CompanyName, "task %s has no company name", task.ID)
	}

	admin, err := e.users.GetByEmail(ctx, "admin@hackbridge.ru")
	require.NoError(t, err)
	assert.Equal(t, "1", admin.ID)
	hash, err := e.users.PasswordHash(ctx, "1")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("admin123")))

	hacker, err := e.users.GetByID(ctx, "hacker-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, hacker.PurchasedCourses)
	assert.Len(t, hacker.Skills, 5)
}

func TestEnsureSeeded_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.seeder.EnsureSeeded(ctx))

	usersBefore, err := e.users.GetAll(ctx)
	require.NoError(t, err)
	coursesBefore, err := e.courses.GetAll(ctx)
	require.NoError(t, err)
	tasksBefore, err := e.tasks.GetAll(ctx)
	require.NoError(t, err)

	require.NoError(t, e.seeder.EnsureSeeded(ctx))

	usersAfter, _ := e.users.GetAll(ctx)
	coursesAfter, _ := e.courses.GetAll(ctx)
	tasksAfter, _ := e.tasks.GetAll(ctx)
	assert.Equal(t, usersBefore, usersAfter)
	assert.Equal(t, coursesBefore, coursesAfter)
	assert.Equal(t, tasksBefore, tasksAfter)
}

func TestEnsureSeeded_DoesNotOverwriteExisting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mine := &models.Course{
		ID: "1", Title: "My own course", Price: 1,
		Difficulty: models.DifficultyHard, Category: models.CategoryCrypto,
	}
	require.NoError(t, e.courses.Create(ctx, mine))

	require.NoError(t, e.seeder.EnsureSeeded(ctx))

	got, err := e.courses.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "My own course", got.Title)
	all, _ := e.courses.GetAll(ctx)
	assert.Len(t, all, 6)
}

func TestEnsureSeeded_SkipsMarkedCollections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.store.Set(ctx, repository.SeededPrefix+"tasks", []byte("done"))
	require.NoError(t, err)

	require.NoError(t, e.seeder.EnsureSeeded(ctx))

	tasks, err := e.tasks.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestEnsureSeeded_ResumesUserWithoutPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f, err := DefaultFixture()
	require.NoError(t, err)

	// Simulate a run that created the admin account and then died before
	// storing its password or the users marker.
	admin := f.Users[0].User
	require.NoError(t, e.users.Create(ctx, &admin))
	_, err = e.users.PasswordHash(ctx, admin.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, e.seeder.EnsureSeeded(ctx))

	hash, err := e.users.PasswordHash(ctx, admin.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("admin123")))
}

func TestEnsureSeeded_KeepsChangedPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.seeder.EnsureSeeded(ctx))

	hash, err := bcrypt.GenerateFromPassword([]byte("changed"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.users.SetPasswordHash(ctx, "1", hash))
	require.NoError(t, e.store.Remove(ctx, repository.SeededPrefix+"users"))

	require.NoError(t, e.seeder.EnsureSeeded(ctx))

	got, err := e.users.PasswordHash(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, hash, got)
}

func TestParseFixture_Invalid(t *testing.T) {
	_, err := ParseFixture([]byte("courses: [unterminated"))
	assert.Error(t, err)
}
