package router

import (
	"github.com/invoxly/invoxly/app/controllers"
	"github.com/invoxly/invoxly/internal/pkg/middleware"
	"github.com/invoxly/invoxly/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Initialize the payment pipeline with repositories and gateway config
	controllers.InitializePaymentControllers()

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
