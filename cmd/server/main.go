package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"crm-updater/internal/config"
	"crm-updater/internal/database"
	"crm-updater/internal/handlers"
	"crm-updater/internal/logging"
	"crm-updater/internal/manager"
	"crm-updater/internal/middleware"
	"crm-updater/internal/models"
	ws "crm-updater/internal/services/websocket"
	"crm-updater/internal/updater"
)

func main() {
	// Load .env file if exists
	godotenv.Load()

	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Override with .env PORT if set
	if envPort := os.Getenv("PORT"); envPort != "" {
		if port, err := strconv.Atoi(envPort); err == nil {
			cfg.Server.Port = port
		}
	}

	// Connect to database
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate models
	if err := database.AutoMigrate(
		&models.User{},
		&models.BusinessRecord{},
		&models.BusinessRecordActivity{},
		&models.ServiceTicket{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Create default admin user if not exists
	createDefaultAdmin(cfg)

	// Build the updater manager
	appLog := logging.New(logging.Options{
		Level:       logging.ParseLevel(cfg.Logging.Level),
		Dir:         cfg.Logging.Dir,
		Console:     cfg.Logging.Console,
		File:        cfg.Logging.File,
		MaxFileSize: int64(cfg.Logging.MaxFileSizeMB) * 1024 * 1024,
		MaxFiles:    cfg.Logging.MaxFiles,
	})

	mgr, err := manager.New(db, manager.Options{
		Overrides: overridesFromConfig(cfg),
		DryRun:    cfg.Updater.DryRun,
		Logger:    appLog,
	})
	if err != nil {
		log.Fatalf("Failed to build updater manager: %v", err)
	}

	// Start scheduling on boot; a config problem keeps the control
	// plane up so an operator can fix it over the API.
	if err := mgr.Start(); err != nil {
		appLog.Warn("updater manager not started", map[string]string{"error": err.Error()})
	}

	// Initialize WebSocket hub
	ws.InitHub(func() interface{} { return mgr.Status() })

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	setupRoutes(app, handlers.NewUpdaterHandler(mgr))

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("CRM updater control plane listening on http://%s", addr)
	log.Fatal(app.Listen(addr))
}

func setupRoutes(app *fiber.App, uh *handlers.UpdaterHandler) {
	api := app.Group("/api")
	api.Post("/auth/login", handlers.Login)
	api.Get("/health", uh.Health)

	protected := api.Group("/", middleware.AuthRequired())
	protected.Post("/auth/logout", handlers.Logout)
	protected.Get("/auth/profile", handlers.GetProfile)

	// Updater control plane
	protected.Get("/updater/status", uh.GetStatus)
	protected.Post("/updater/start", uh.Start)
	protected.Post("/updater/stop", uh.Stop)
	protected.Post("/updater/execute/:name", uh.Execute)
	protected.Post("/updater/dry-run/:name", uh.DryRun)
	protected.Post("/updater/toggle/:name", uh.Toggle)
	protected.Put("/updater/config", uh.UpdateConfig)
	protected.Get("/updater/logs", uh.GetLogs)
	protected.Get("/updater/metrics", uh.GetMetrics)

	// Live status stream
	app.Get("/ws/status", websocket.New(ws.HandleWebSocket))
}

// overridesFromConfig maps the optional yaml identifiers onto manager
// constructor overrides.
func overridesFromConfig(cfg *config.Config) *updater.Overrides {
	o := &updater.Overrides{}
	set := false
	if cfg.Updater.TenantID != "" {
		o.TenantID = &cfg.Updater.TenantID
		set = true
	}
	if cfg.Updater.CustomerID != "" {
		o.CustomerID = &cfg.Updater.CustomerID
		set = true
	}
	if !set {
		return nil
	}
	return o
}

func createDefaultAdmin(cfg *config.Config) {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		return
	}

	admin := models.User{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Role:     "admin",
	}
	admin.SetPassword(cfg.Admin.Password)

	if err := database.DB.Create(&admin).Error; err != nil {
		log.Printf("Failed to create default admin: %v", err)
	} else {
		log.Printf("Default admin user created: %s", cfg.Admin.Username)
	}
}
