package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hackbridge/hackbridge/internal/middleware"
	"github.com/hackbridge/hackbridge/internal/models"
)

// Handlers bundles the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth    *AuthHandler
	Courses *CourseHandler
	Tasks   *TaskHandler
	Cart    *CartHandler
	Quiz    *QuizHandler
	Admin   *AdminHandler
	Health  *HealthHandler
}

// NewRouter constructs and returns an HTTP handler that serves
// the HackBridge API.
//
// Routes:
//
//	GET    /health
//	POST   /api/register, /api/login
//	GET    /api/courses, /api/courses/{id}
//	GET    /api/tasks, /api/tasks/{id}
//
// Session protected (Authorization: Bearer <token>):
//
//	POST   /api/logout
//	GET    /api/me, PUT /api/me, POST /api/me/password
//	GET    /api/cart, POST /api/cart/items, DELETE /api/cart/items/{id}, POST /api/cart/checkout
//	POST   /api/quiz/results
//	GET    /api/tasks/mine, POST /api/tasks, PUT /api/tasks/{id}/status, DELETE /api/tasks/{id}
//	/api/admin/...                      (role admin)
//
// Middleware chain (applied in order):
//  1. RequestID and Recoverer
//  2. CORS for allowedOrigins
//  3. AllowContentType("application/json"), rejects non-JSON bodies
//  4. WithRequestLogging(logger)
func NewRouter(
	h Handlers,
	auth middleware.Authenticator,
	allowedOrigins []string,
	logger *zap.Logger,
) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/health", h.Health.Health)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Get("/courses", h.Courses.List)
		r.Get("/courses/{id}", h.Courses.Get)
		r.Get("/tasks", h.Tasks.List)
		r.Get("/tasks/{id}", h.Tasks.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(auth, logger))

			r.Post("/logout", h.Auth.Logout)
			r.Get("/me", h.Auth.Me)
			r.Put("/me", h.Auth.UpdateMe)
			r.Post("/me/password", h.Auth.ChangePassword)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.Get)
				r.Post("/items", h.Cart.Add)
				r.Delete("/items/{id}", h.Cart.Remove)
				r.Post("/checkout", h.Cart.Checkout)
			})

			r.With(middleware.RequireRole(models.RoleHacker)).Post("/quiz/results", h.Quiz.Submit)

			r.With(middleware.RequireRole(models.RoleCompany)).Get("/tasks/mine", h.Tasks.Mine)
			r.With(middleware.RequireRole(models.RoleCompany)).Post("/tasks", h.Tasks.Post)
			r.Put("/tasks/{id}/status", h.Tasks.SetStatus)
			r.Delete("/tasks/{id}", h.Tasks.Delete)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))

				r.Get("/users", h.Admin.Users)
				r.Post("/users/{id}/ban", h.Admin.ToggleBan)
				r.Post("/users/{id}/funds", h.Admin.AddFunds)
				r.Put("/users/{id}/rating", h.Admin.SetRating)
				r.Delete("/users/{id}", h.Admin.DeleteUser)

				r.Get("/courses", h.Admin.Courses)
				r.Post("/courses", h.Admin.CreateCourse)
				r.Put("/courses/{id}", h.Admin.UpdateCourse)
				r.Delete("/courses/{id}", h.Admin.DeleteCourse)

				r.Get("/tasks", h.Admin.Tasks)
				r.Delete("/tasks/{id}", h.Admin.DeleteTask)
			})
		})
	})

	return r
}
