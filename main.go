// Package main is the entry point for the OpenWorkshop API
package main

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/openworkshop/owapi/config"
	"github.com/openworkshop/owapi/database"
	"github.com/openworkshop/owapi/shared/middleware"
	"github.com/openworkshop/owapi/shared/zaplogger"
)

func main() {
	// Setup logger
	defer zaplogger.Sync()

	// startUpMessage
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("OpenWorkshop API")

	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		zaplogger.Fatal("failed to load configuration", zaplogger.Fields{"error": err})
	}
	zaplogger.Info("  * loaded")
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)
	middleware.SetupMetrics(e)

	// Connect to Postgres
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	// Connect Redis
	redisClient, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Setup routes and cron jobs
	app := setupRoutes(e, cfg, db, redisClient)
	app.crons.Start()
	defer app.crons.Stop()

	// Start the server
	startServer(e, cfg)
}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "8042"
	}
	startupMessage := fmt.Sprintf("%s %s Server [:%s] started", cfg.APIName, cfg.APIVersion, port)

	zaplogger.Info(config.SingleLine)
	zaplogger.Info(startupMessage)
	zaplogger.Info(config.SingleLine)
	e.Logger.Fatal(e.Start(":" + port))
}
