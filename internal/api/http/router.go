package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticket-ai/internal/api/http/handlers"
	"github.com/spec-kit/ticket-ai/internal/auth"
	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	// AuthLimiter guards the credential endpoints. Nil disables limiting.
	AuthLimiter fiber.Handler
	Metrics     *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	limited := func(h fiber.Handler) []fiber.Handler {
		if cfg.AuthLimiter == nil {
			return []fiber.Handler{h}
		}
		return []fiber.Handler{cfg.AuthLimiter, h}
	}

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", limited(cfg.Auth.Signup)...)
	authGroup.Post("/login", limited(cfg.Auth.Login)...)
	authGroup.Post("/logout", cfg.Auth.Logout)

	adminOnly := auth.RequireRole(domain.RoleAdmin)
	authGroup.Get("/users", cfg.AuthMiddleware.Handle, adminOnly, cfg.Users.ListUsers)
	authGroup.Post("/update-user", cfg.AuthMiddleware.Handle, adminOnly, cfg.Users.UpdateUser)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
}
