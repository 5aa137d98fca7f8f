// Package app opens the configured store and wires repositories and
// services for the HackBridge binaries.
package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/hackbridge/hackbridge/internal/config"
	"github.com/hackbridge/hackbridge/internal/db"
	"github.com/hackbridge/hackbridge/internal/kv"
	"github.com/hackbridge/hackbridge/internal/repository"
	"github.com/hackbridge/hackbridge/internal/seed"
	"github.com/hackbridge/hackbridge/internal/service"
)

// OpenStore opens the kv backend selected in opts.
func OpenStore(ctx context.Context, opts config.StorageOptions, log *zap.Logger) (kv.Store, error) {
	switch opts.Backend {
	case config.BackendMemory:
		return kv.NewMemoryStore(), nil
	case config.BackendFile:
		s, err := kv.OpenFile(opts.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open data file")
		}
		log.Info("using file store", zap.String("path", opts.Path))
		return s, nil
	case config.BackendRedis:
		s, err := kv.NewRedisStore(ctx, kv.RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
		})
		if err != nil {
			return nil, errors.Wrap(err, "connect redis")
		}
		log.Info("using redis store", zap.String("addr", opts.RedisAddr))
		return s, nil
	case config.BackendPostgres:
		if opts.Migrate {
			if err := db.Migrate(opts.DatabaseDSN); err != nil {
				return nil, err
			}
			log.Info("database migrations applied")
		}
		sqlDB, err := db.InitPostgres(opts.DatabaseDriver, opts.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		log.Info("using postgres store", zap.String("driver", opts.DatabaseDriver))
		return kv.NewPostgresStore(sqlDB), nil
	default:
		return nil, errors.Errorf("unsupported storage backend: %q", opts.Backend)
	}
}

// App holds the repositories and services built over one store.
type App struct {
	Store kv.Store

	Users    *repository.UserRepository
	Courses  *repository.CourseRepository
	Tasks    *repository.TaskRepository
	Sessions *repository.SessionRepository
	Carts    *repository.CartRepository
	Pointer  *repository.PointerRepository

	Auth          *service.AuthService
	CourseService *service.CourseService
	TaskService   *service.TaskService
	CartService   *service.CartService
	QuizService   *service.QuizService
	AdminService  *service.AdminService
}

// New wires an App over store. When options.Seed is set, empty collections
// are filled from the embedded fixture.
func New(ctx context.Context, store kv.Store, options *config.Options, log *zap.Logger) (*App, error) {
	a := &App{Store: store}
	a.Courses = repository.NewCourseRepository(store)
	a.Users = repository.NewUserRepository(store, a.Courses)
	a.Tasks = repository.NewTaskRepository(store, a.Users)
	a.Sessions = repository.NewSessionRepository(store)
	a.Carts = repository.NewCartRepository(store)
	a.Pointer = repository.NewPointerRepository(store)

	if options.Seed {
		fixture, err := seed.DefaultFixture()
		if err != nil {
			return nil, err
		}
		seeder := seed.New(store, a.Users, a.Courses, a.Tasks, fixture, options.BcryptCost, log)
		if err := seeder.EnsureSeeded(ctx); err != nil {
			return nil, errors.Wrap(err, "seed")
		}
	}

	a.Auth = service.NewAuthService(a.Users, a.Sessions, service.AuthOptions{
		Secret:     []byte(options.JWTSecret),
		TTL:        options.SessionTTL,
		BcryptCost: options.BcryptCost,
	}, log)
	a.CourseService = service.NewCourseService(a.Courses)
	a.TaskService = service.NewTaskService(a.Tasks, log)
	a.CartService = service.NewCartService(a.Carts, a.Courses, a.Users, log)
	a.QuizService = service.NewQuizService(a.Users, log)
	a.AdminService = service.NewAdminService(a.Users, a.Courses, a.Tasks, log)
	return a, nil
}
