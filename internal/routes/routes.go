package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/kabirclub/internal/config"
	"github.com/example/kabirclub/internal/handlers"
	"github.com/example/kabirclub/internal/middleware"
	"github.com/example/kabirclub/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, log *zap.Logger) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, log)
	cartService := services.NewCartService(db, log)
	orderService := services.NewOrderService(db, cartService, telegramService, log, cfg.MerchantUPIID, cfg.Currency)
	catalogService := services.NewCatalogService(db, log)
	userService := services.NewUserService(db, log, cfg.IsAdminEmail)

	authHandler := handlers.NewAuthHandler(userService, cfg, log)
	catalogHandler := handlers.NewCatalogHandler(catalogService, log, cfg.Currency)
	productHandler := handlers.NewProductHandler(catalogService, log, cfg.Currency)
	cartHandler := handlers.NewCartHandler(cartService, log, cfg.Currency)
	orderHandler := handlers.NewOrderHandler(orderService, log)
	adminHandler := handlers.NewAdminHandler(orderService, userService, log, cfg.Currency)
	profileHandler := handlers.NewProfileHandler(userService, log)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limited := limiter.Handler()

	api := app.Group("/api", middleware.Session(cfg), middleware.OptionalAuth(cfg))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", limited, authHandler.Register)
	auth.Post("/login", limited, authHandler.Login)
	auth.Get("/me", middleware.AuthMiddleware(cfg), authHandler.Me)

	// Catalog
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:handle", productHandler.GetProduct)
	products.Get("/:handle/recommendations", productHandler.Recommendations)

	collections := api.Group("/collections")
	collections.Get("/", catalogHandler.ListCollections)
	collections.Get("/:handle", catalogHandler.GetCollection)
	collections.Get("/:handle/products", catalogHandler.CollectionProducts)

	// Cart
	cart := api.Group("/cart")
	cart.Get("/", cartHandler.GetCart)
	cart.Delete("/", limited, cartHandler.ClearCart)
	cart.Post("/items", limited, cartHandler.AddItem)
	cart.Patch("/items/:id", limited, cartHandler.UpdateItem)
	cart.Delete("/items/:id", limited, cartHandler.RemoveItem)

	// Orders
	api.Post("/checkout", limited, orderHandler.Checkout)
	api.Get("/orders", orderHandler.ListOrders)
	api.Get("/orders/:id", orderHandler.GetOrder)

	// Protected routes
	protected := api.Group("/profile", middleware.AuthMiddleware(cfg))
	protected.Get("/", authHandler.Me)
	protected.Put("/", profileHandler.UpdateProfile)
	protected.Put("/password", limited, profileHandler.ChangePassword)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.AdminOnly())

	admin.Get("/dashboard", adminHandler.DashboardStats)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Get("/orders/:id", adminHandler.GetOrder)
	admin.Patch("/orders/:id/status", adminHandler.UpdateOrderStatus)
	admin.Get("/users", adminHandler.ListAllUsers)

	admin.Post("/products", productHandler.CreateProduct)
	admin.Post("/products/bulk", productHandler.BulkCreateProducts)
	admin.Get("/products/export", productHandler.ExportProducts)
	admin.Post("/products/import", productHandler.ImportProducts)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Delete("/products/:id", productHandler.DeleteProduct)

	admin.Post("/collections", catalogHandler.CreateCollection)
	admin.Put("/collections/:id", catalogHandler.UpdateCollection)
	admin.Delete("/collections/:id", catalogHandler.DeleteCollection)
}
