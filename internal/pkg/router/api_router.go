package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/invoxly/invoxly/app/controllers"
	"github.com/invoxly/invoxly/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// The webhook endpoint is exempt from rate limiting: throttling the
	// gateway only triggers its retry backoff.
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/v1/payment/webhook"
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Auth
	auth := v1.Group("/auth")
	auth.Post("/register", controllers.HandleAuthRegister)
	auth.Post("/login", controllers.HandleAuthLogin)
	auth.Post("/logout", controllers.HandleAuthLogout)

	// User
	user := v1.Group("/user", middleware.RequireAPISessionAuth)
	user.Get("/profile", controllers.HandleGetUserAccount)
	user.Get("/payments", controllers.HandleListUserPayments)

	// Payment pipeline. The webhook has no session; everything else does.
	pay := v1.Group("/payment")
	pay.Post("/webhook", controllers.HandlePaymentWebhook)
	pay.Post("/order", middleware.RequireAPISessionAuth, controllers.HandleCreateOrder)
	pay.Post("/verify", middleware.RequireAPISessionAuth, controllers.HandleVerifyPayment)
	pay.Post("/cancel", middleware.RequireAPISessionAuth, controllers.HandleCancelSubscription)

	// Customers
	customers := v1.Group("/customers", middleware.RequireAPISessionAuth)
	customers.Get("/", controllers.HandleListCustomers)
	customers.Post("/", controllers.HandleCreateCustomer)
	customers.Get("/:id", controllers.HandleGetCustomer)
	customers.Put("/:id", controllers.HandleUpdateCustomer)
	customers.Delete("/:id", controllers.HandleDeleteCustomer)

	// Products
	products := v1.Group("/products", middleware.RequireAPISessionAuth)
	products.Get("/", controllers.HandleListProducts)
	products.Post("/", controllers.HandleCreateProduct)
	products.Get("/:id", controllers.HandleGetProduct)
	products.Put("/:id", controllers.HandleUpdateProduct)
	products.Delete("/:id", controllers.HandleDeleteProduct)

	// Invoices. The export route must be registered before /:id.
	invoices := v1.Group("/invoices", middleware.RequireAPISessionAuth)
	invoices.Get("/", controllers.HandleListInvoices)
	invoices.Post("/", controllers.HandleCreateInvoice)
	invoices.Get("/export", middleware.RequirePaid, controllers.HandleExportInvoices)
	invoices.Get("/:id", controllers.HandleGetInvoice)
	invoices.Put("/:id", controllers.HandleUpdateInvoice)
	invoices.Patch("/:id/status", controllers.HandleUpdateInvoiceStatus)
	invoices.Delete("/:id", controllers.HandleDeleteInvoice)

	// Operator surface
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/webhooks", controllers.HandleListUnprocessedWebhooks)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
