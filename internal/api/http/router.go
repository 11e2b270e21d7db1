package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/emergency-backend/internal/api/http/handlers"
	"github.com/spec-kit/emergency-backend/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Users    *handlers.UsersHandler
	Projects *handlers.ProjectsHandler
	Commands *handlers.CommandHandler
	Gate     *auth.Gate
}

// RegisterRoutes wires HTTP routes. Public routes are registered before the
// gated group so the gate never runs for them.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Get("/status", cfg.Health.Status)
	api.Post("/cadastro", cfg.Users.Register)
	api.Post("/login", cfg.Users.Login)

	protected := api.Group("", cfg.Gate.Handle)
	protected.Post("/logout", cfg.Users.Logout)
	protected.Post("/renovar_token", cfg.Users.RenewToken)
	protected.Post("/token_temporario", cfg.Users.EphemeralToken)
	protected.Get("/sessao", cfg.Users.Session)
	protected.Delete("/conta", cfg.Users.DeleteAccount)

	protected.Post("/salvar_projeto", cfg.Projects.Save)
	protected.Get("/carregar_projeto/:id", cfg.Projects.Load)
	protected.Get("/listar_projetos", cfg.Projects.List)
	protected.Delete("/deletar_projeto/:id", cfg.Projects.Delete)
	protected.Get("/preview_projeto/:id", cfg.Projects.Preview)
	protected.Get("/estatisticas", cfg.Projects.Stats)

	protected.Post("/comando", cfg.Commands.Execute)
}
