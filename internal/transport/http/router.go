package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-todo-api/internal/application/auth"
	"github.com/go-todo-api/internal/application/avatar"
	"github.com/go-todo-api/internal/application/dashboard"
	"github.com/go-todo-api/internal/application/session"
	"github.com/go-todo-api/internal/application/todo"
	"github.com/go-todo-api/internal/application/user"
	"github.com/go-todo-api/internal/config"
	"github.com/go-todo-api/internal/domain"
	"github.com/go-todo-api/internal/pkg/ratelimit"
	"github.com/go-todo-api/internal/transport/http/handler"
	appmiddleware "github.com/go-todo-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	verificationLimit := ratelimit.NewFixedWindow(cfg.VerificationQuota, cfg.VerificationWindow)

	userSvc := user.NewService(user.ServiceDeps{UserRepo: deps.UserRepo})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:          deps.UserRepo,
		VerificationRepo:  deps.VerificationRepo,
		ResetRepo:         deps.ResetRepo,
		Mailer:            deps.Mailer,
		VerificationLimit: verificationLimit,
		BaseURL:           cfg.BaseURL,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		UserRepo: deps.UserRepo,
		Signer:   deps.JWTProvider,
	})
	todoSvc := todo.NewService(todo.ServiceDeps{TodoRepo: deps.TodoRepo})
	dashboardSvc := dashboard.NewService(dashboard.ServiceDeps{
		UserRepo: deps.UserRepo,
		TodoRepo: deps.TodoRepo,
	})
	avatarSvc := avatar.NewService(avatar.ServiceDeps{
		ObjectStore: deps.S3Store,
		UserRepo:    deps.UserRepo,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, userSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	todoH := handler.NewTodoHandler(todoSvc)
	profileH := handler.NewProfileHandler(userSvc, avatarSvc)
	dashboardH := handler.NewDashboardHandler(dashboardSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/sign-up", authH.SignUp)
		r.With(sensitiveRL.Limit).Post("/auth/forgot-password", authH.ForgotPassword)
		r.With(sensitiveRL.Limit).Post("/auth/reset-password", authH.ResetPassword)
		r.With(sensitiveRL.Limit).Post("/auth/verify-email", authH.VerifyEmail)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/refresh", sessionH.Refresh)
			r.Post("/auth/send-verification-email", authH.SendVerificationEmail)

			r.Post("/todos", todoH.Create)
			r.Get("/todos", todoH.List)
			r.Get("/todos/{id}", todoH.Get)
			r.Put("/todos/{id}", todoH.Update)
			r.Delete("/todos/{id}", todoH.Delete)

			r.Get("/profile", profileH.Get)
			r.Put("/profile", profileH.Update)
			r.Post("/profile/change-password", profileH.ChangePassword)
			r.Post("/profile/avatar", profileH.UploadAvatar)
			r.Delete("/profile/avatar", profileH.RemoveAvatar)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/admin/dashboard/overview", dashboardH.Overview)
				r.Get("/admin/dashboard/priority", dashboardH.Priority)
				r.Get("/admin/dashboard/weekly-activity", dashboardH.WeeklyActivity)
				r.Get("/admin/dashboard/todos", dashboardH.Todos)
				r.Get("/admin/dashboard/users", dashboardH.Users)
			})
		})
	})

	return r
}
