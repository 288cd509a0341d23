// Package main is the entry point for the OpenWorkshop API
package main

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/openworkshop/owapi/api/account"
	"github.com/openworkshop/owapi/api/association"
	"github.com/openworkshop/owapi/api/game"
	"github.com/openworkshop/owapi/api/genre"
	"github.com/openworkshop/owapi/api/mod"
	"github.com/openworkshop/owapi/api/resource"
	"github.com/openworkshop/owapi/api/session"
	"github.com/openworkshop/owapi/api/tag"
	"github.com/openworkshop/owapi/config"
	"github.com/openworkshop/owapi/services"
	"github.com/openworkshop/owapi/shared/middleware"
	"github.com/openworkshop/owapi/shared/response"
	"github.com/openworkshop/owapi/stats"
	"github.com/openworkshop/owapi/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// app bundles what main needs after wiring.
type app struct {
	crons *services.CronService
}

// setupRoutes configures the routes for the API
func setupRoutes(e *echo.Echo, cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *app {

	// Shared clients and services
	storageClient := storage.NewClient(cfg)
	statsService := stats.NewService(db, redisClient)

	accountRepository := account.NewRepository(db)
	sessionService := session.NewService(db, accountRepository)
	accountService := account.NewService(db, sessionService, storageClient)
	modService := mod.NewService(db, accountService, storageClient, statsService)
	gameService := game.NewService(db, accountService, statsService)
	tagService := tag.NewService(db, accountService)
	genreService := genre.NewService(db, accountService)
	associationService := association.NewService(db, accountService, modService, tagService, genreService)
	resourceService := resource.NewService(db, accountService, modService, storageClient)

	auth := middleware.AuthMiddleware(sessionService, cfg)
	optionalAuth := middleware.OptionalAuthMiddleware(sessionService, cfg)

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", indexRoute)

	// Session routes - Unprotected
	sessionHandler := session.NewHandler(sessionService, cfg)
	sessionGroup := api.Group("/session")
	sessionGroup.POST("/login", sessionHandler.PasswordLogin)
	sessionGroup.POST("/refresh", sessionHandler.Refresh)
	sessionGroup.POST("/logout", sessionHandler.Logout)
	sessionGroup.GET("/access", sessionHandler.CheckAccess)

	// Account routes
	accountHandler := account.NewHandler(accountService)
	accountGroup := api.Group("/account")
	accountGroup.GET("/info/:user_id", accountHandler.ProfileInfo, optionalAuth)
	accountGroup.GET("/avatar/:user_id", accountHandler.ProfileAvatar)
	accountGroup.POST("/edit/:user_id", accountHandler.EditProfile, auth)
	accountGroup.POST("/rights/:user_id", accountHandler.EditRights, auth)
	accountGroup.DELETE("/delete", accountHandler.DeleteAccount, auth)
	accountGroup.POST("/disconnect", accountHandler.Disconnect, auth)

	// Mod routes
	modHandler := mod.NewHandler(modService, cfg)
	modGroup := api.Group("/mod")
	modGroup.GET("/list", modHandler.List, optionalAuth)
	modGroup.GET("/info/:mod_id", modHandler.Info, optionalAuth)
	modGroup.GET("/public", modHandler.Public)
	modGroup.GET("/access", modHandler.Access, optionalAuth)
	modGroup.GET("/download/:mod_id", modHandler.Download, optionalAuth)
	modGroup.POST("/add", modHandler.Add, auth)
	modGroup.POST("/edit/:mod_id", modHandler.Edit, auth)
	modGroup.DELETE("/delete/:mod_id", modHandler.Delete, auth)
	modGroup.POST("/authors/:mod_id", modHandler.EditAuthors, auth)

	// Game routes
	gameHandler := game.NewHandler(gameService)
	gameGroup := api.Group("/game")
	gameGroup.GET("/list", gameHandler.List)
	gameGroup.GET("/info/:game_id", gameHandler.Info)
	gameGroup.POST("/add", gameHandler.Add, auth)
	gameGroup.POST("/edit/:game_id", gameHandler.Edit, auth)
	gameGroup.DELETE("/delete/:game_id", gameHandler.Delete, auth)

	// Tag routes
	tagHandler := tag.NewHandler(tagService)
	tagGroup := api.Group("/tag")
	tagGroup.GET("/list", tagHandler.List)
	tagGroup.POST("/add", tagHandler.Add, auth)
	tagGroup.POST("/edit/:tag_id", tagHandler.Edit, auth)
	tagGroup.DELETE("/delete/:tag_id", tagHandler.Delete, auth)

	// Genre routes
	genreHandler := genre.NewHandler(genreService)
	genreGroup := api.Group("/genre")
	genreGroup.GET("/list", genreHandler.List)
	genreGroup.POST("/add", genreHandler.Add, auth)
	genreGroup.POST("/edit/:genre_id", genreHandler.Edit, auth)
	genreGroup.DELETE("/delete/:genre_id", genreHandler.Delete, auth)

	// Association routes
	associationHandler := association.NewHandler(associationService)
	associationGroup := api.Group("/association")
	associationGroup.POST("/game/genre/:game_id", associationHandler.GameGenre, auth)
	associationGroup.POST("/game/tag/:game_id", associationHandler.GameTag, auth)
	associationGroup.POST("/mod/tag/:mod_id", associationHandler.ModTag, auth)
	associationGroup.POST("/mod/dependency/:mod_id", associationHandler.ModDependency, auth)

	// Resource routes
	resourceHandler := resource.NewHandler(resourceService)
	resourceGroup := api.Group("/resource")
	resourceGroup.GET("/list", resourceHandler.List, optionalAuth)
	resourceGroup.POST("/add", resourceHandler.Add, auth)
	resourceGroup.POST("/edit/:resource_id", resourceHandler.Edit, auth)
	resourceGroup.DELETE("/delete/:resource_id", resourceHandler.Delete, auth)

	return &app{
		crons: services.NewCronService(cfg, db, redisClient, sessionService, statsService),
	}
}

// indexRoute sets up the index route for the API
func indexRoute(c echo.Context) error {
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	message := fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion)
	return response.SuccessResponse(c, message)
}
