package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atum-helpdesk/atum/internal/api/http/handlers"
	"github.com/atum-helpdesk/atum/internal/auth"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Search         *handlers.SearchHandler
	KB             *handlers.KBHandler
	Admin          *handlers.AdminHandler
	Email          *handlers.EmailHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	protected := v1.Group("", cfg.AuthMiddleware.Handle)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/comments", cfg.Tickets.Comment)
	tickets.Post("/:id/comments/:commentID/attachments", cfg.Tickets.Attach)
	tickets.Post("/:id/close", cfg.Tickets.Close)

	staff := protected.Group("/internal/tickets", auth.RequireStaff())
	staff.Post("/:id/accept", cfg.StaffTickets.Accept)
	staff.Post("/:id/assign", cfg.StaffTickets.Assign)
	staff.Post("/:id/status", cfg.StaffTickets.Status)
	staff.Post("/:id/priority", cfg.StaffTickets.Priority)
	staff.Post("/:id/comments", cfg.Tickets.Comment)

	protected.Post("/rag/search", cfg.Search.Search)
	protected.Get("/metrics", auth.RequireStaff(), cfg.Admin.Metrics)

	kb := protected.Group("/kb")
	kb.Get("", cfg.KB.List)
	kb.Get("/:id", cfg.KB.Get)
	kb.Post("", auth.RequireStaff(), cfg.KB.Create)
	kb.Put("/:id", auth.RequireStaff(), cfg.KB.Update)
	kb.Post("/:id/publish", auth.RequireStaff(), cfg.KB.Publish)

	// The mail relay authenticates with a service-account admin token.
	protected.Post("/email/inbound", auth.RequireRole(domain.RoleAdmin), cfg.Email.Inbound)

	webhooks := protected.Group("/webhooks", auth.RequireRole(domain.RoleAdmin))
	webhooks.Post("", cfg.Admin.CreateWebhook)
	webhooks.Get("", cfg.Admin.ListWebhooks)
	webhooks.Delete("/:id", cfg.Admin.DeleteWebhook)

	admin := protected.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Patch("/settings", cfg.Admin.UpdateSettings)
	admin.Post("/rules", cfg.Admin.CreateRule)
	admin.Get("/rules", cfg.Admin.ListRules)
	admin.Put("/rules/:id", cfg.Admin.UpdateRule)
	admin.Post("/sla-policies", cfg.Admin.CreateSLAPolicy)
	admin.Get("/sla-policies", cfg.Admin.ListSLAPolicies)
	admin.Get("/audit/verify", cfg.Admin.VerifyAudit)
}
