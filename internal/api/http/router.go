package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/raffle-service/internal/api/http/handlers"
	"github.com/spec-kit/raffle-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Accounts   *handlers.AccountHandler
	Tickets    *handlers.TicketHandler
	Dispatcher *Dispatcher
}

// RegisterRoutes wires the health probes and the action table behind the
// single /api endpoint.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	d := cfg.Dispatcher
	d.Public("ping", handlers.Ping)
	d.Public("register", cfg.Accounts.Register)
	d.PublicLimited("login", cfg.Accounts.Login)
	d.Public("forgot_password", cfg.Accounts.ForgotPassword)
	d.Public("verify_otp", cfg.Accounts.VerifyOTP)
	d.Public("reset_password", cfg.Accounts.ResetPassword)

	d.Protected("me", "", cfg.Accounts.Me)
	d.Protected("get_ticket", "", cfg.Tickets.Get)
	d.Protected("list_tickets", "", cfg.Tickets.List)
	d.Protected("ticket_stats", "", cfg.Tickets.Stats)
	d.Protected("search_tickets", "", cfg.Tickets.Search)

	d.Protected("record_sale", domain.StaffRoleStaff, cfg.Tickets.RecordSale)
	d.Protected("update_ticket_status", domain.StaffRoleStaff, cfg.Tickets.UpdateStatus)
	d.Protected("bulk_update_status", domain.StaffRoleStaff, cfg.Tickets.BulkUpdateStatus)

	d.Protected("add_tickets", domain.StaffRoleAdmin, cfg.Tickets.Add)
	d.Protected("approve_staff", domain.StaffRoleAdmin, cfg.Accounts.ApproveStaff)
	d.Protected("extend_validity", domain.StaffRoleAdmin, cfg.Accounts.ExtendValidity)
	d.Protected("update_staff", domain.StaffRoleAdmin, cfg.Accounts.UpdateStaff)
	d.Protected("list_staff", domain.StaffRoleAdmin, cfg.Accounts.ListStaff)
	d.Protected("get_staff", domain.StaffRoleAdmin, cfg.Accounts.GetStaff)

	app.Get("/api", d.Handle)
	app.Post("/api", d.Handle)
}
