package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TaskHandler             *handler.TaskHandler
	SubmissionHandler       *handler.SubmissionHandler
	ExamHandler             *handler.ExamHandler
	NotificationHandler     *handler.NotificationHandler
	ReminderHandler         *handler.ReminderHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	ActivityHandler         *handler.ActivityHandler
	HealthProbes            []handler.HealthProbe
	JWTMiddleware           fiber.Handler
	SubmitRateLimiter       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	v2 := app.Group("/api/v2", jwtMiddleware)

	if deps.TaskHandler != nil {
		var guards []fiber.Handler
		if deps.SubmitRateLimiter != nil {
			guards = append(guards, deps.SubmitRateLimiter)
		}
		deps.TaskHandler.Register(v2.Group("/tasks"), guards...)
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(v2.Group("/submissions"))
	}

	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(v2.Group("/exams"), v2.Group("/exam-submissions"))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(v2.Group("/notifications"))
	}

	if deps.ReminderHandler != nil {
		deps.ReminderHandler.Register(v2.Group("/reminders"))
	}

	if deps.StudentDashboardHandler != nil {
		deps.StudentDashboardHandler.Register(v2.Group("/student"))
	}

	if deps.ActivityHandler != nil {
		admin := app.Group("/api/admin", jwtMiddleware, middleware.RequireRole("tutor", "admin"))
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
}
