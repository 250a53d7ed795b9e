package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"gardenly/internal/config"
	"gardenly/internal/domain"
	"gardenly/internal/http/handlers"
	applog "gardenly/internal/log"
	"gardenly/internal/notify"
	"gardenly/internal/repos"
	"gardenly/internal/services"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	notifier, err := notify.NewFromConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// Auth wiring
	accountRepo := repos.NewAccountRepo(db)
	authSvc := &services.AuthService{Accounts: accountRepo}
	authH := &handlers.AuthHandler{Auth: authSvc}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Log and hide internals
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal",
				"message": "something went wrong, please try again",
			})
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, cfg, authSvc, notifier)

	api := app.Group("/api/v1")

	// Auth (login throttled)
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "too many attempts, try again later"})
		},
	}), authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/me", handlers.RequireUser(authSvc), authH.Me)

	// Catalog (public)
	api.Get("/categories", deps.CatalogHandler.Categories)
	api.Get("/categories/:id/products", deps.CatalogHandler.ListByCategory)
	api.Get("/products/:id", deps.CatalogHandler.Detail)
	api.Get("/search", limiter.New(limiter.Config{Max: 20, Expiration: time.Minute}), deps.CatalogHandler.Search)
	api.Get("/availability", deps.CatalogHandler.Availability)

	// Catalog (seller)
	api.Post("/products", handlers.RequireRole(authSvc, domain.RoleSeller), deps.CatalogHandler.Create)
	api.Put("/products/:id", handlers.RequireRole(authSvc, domain.RoleSeller, domain.RoleAdmin), deps.CatalogHandler.Update)
	api.Post("/products/:id/stock", handlers.RequireRole(authSvc, domain.RoleSeller, domain.RoleAdmin), deps.CatalogHandler.Restock)

	// Cart (buyer)
	buyer := handlers.RequireRole(authSvc, domain.RoleBuyer)
	api.Get("/cart", buyer, deps.CartHandler.View)
	api.Post("/cart/items", buyer, deps.CartHandler.Add)
	api.Put("/cart/items/:productId", buyer, deps.CartHandler.SetQty)
	api.Delete("/cart/items/:productId", buyer, deps.CartHandler.Remove)
	api.Delete("/cart", buyer, deps.CartHandler.Clear)

	// Checkout & orders (buyer)
	api.Post("/checkout", buyer, deps.OrderHandler.Checkout)
	api.Post("/orders/:id/verify-otp", buyer, deps.OrderHandler.VerifyOTP)
	api.Post("/orders/:id/cancel", buyer, deps.OrderHandler.Cancel)
	api.Get("/orders", buyer, deps.OrderHandler.History)
	api.Get("/orders/:id", handlers.RequireUser(authSvc), deps.OrderHandler.View)

	// Delivery workflow
	manager := handlers.RequireRole(authSvc, domain.RoleManager)
	agent := handlers.RequireRole(authSvc, domain.RoleAgent)
	api.Get("/delivery/unassigned", manager, deps.DeliveryHandler.Unassigned)
	api.Get("/delivery/agents", manager, deps.DeliveryHandler.Agents)
	api.Post("/delivery/orders/:id/assign", manager, deps.DeliveryHandler.Assign)
	api.Get("/delivery/mine", agent, deps.DeliveryHandler.Mine)
	api.Post("/delivery/orders/:id/status", agent, deps.DeliveryHandler.Advance)
	api.Get("/delivery/orders/:id/history",
		handlers.RequireRole(authSvc, domain.RoleManager, domain.RoleAdmin), deps.DeliveryHandler.History)

	// Support tickets
	api.Post("/tickets", buyer, deps.TicketHandler.Open)
	api.Get("/tickets", buyer, deps.TicketHandler.Mine)
	api.Get("/tickets/queue", handlers.RequireRole(authSvc, domain.RoleExpert, domain.RoleAdmin), deps.TicketHandler.OpenQueue)
	api.Get("/tickets/:id", handlers.RequireUser(authSvc), deps.TicketHandler.Thread)
	api.Post("/tickets/:id/replies", handlers.RequireUser(authSvc), deps.TicketHandler.Reply)
	api.Post("/tickets/:id/close", handlers.RequireUser(authSvc), deps.TicketHandler.Close)

	// Admin
	admin := app.Group("/api/v1/admin", handlers.RequireRole(authSvc, domain.RoleAdmin))
	admin.Get("/orders", deps.AdminHandler.OrdersPage)
	admin.Post("/orders/:id/status", deps.AdminHandler.UpdateOrderStatus)
	admin.Get("/accounts", deps.AdminHandler.AccountsPage)
	admin.Delete("/accounts/:id", deps.AdminHandler.DeleteAccount)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "no such endpoint"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
