package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/example/kabirclub/internal/config"
	"github.com/example/kabirclub/internal/database"
	"github.com/example/kabirclub/internal/handlers"
	"github.com/example/kabirclub/internal/middleware"
	"github.com/example/kabirclub/internal/routes"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	db := database.Connect(cfg.DatabaseURL, log, cfg.IsDevelopment())

	app := fiber.New(fiber.Config{
		AppName:      "KabirClub Backend",
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + middleware.SessionHeader,
		ExposeHeaders: middleware.SessionHeader,
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	routes.Register(app, db, cfg, log)

	log.Info("starting server", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal("fiber.Listen error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	build := zap.NewProduction
	if cfg.IsDevelopment() {
		build = zap.NewDevelopment
	}

	log, err := build()
	if err != nil {
		panic(err)
	}
	return log
}
