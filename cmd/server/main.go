package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/inmoservicios/backend/internal/config"
	"github.com/inmoservicios/backend/internal/database"
	"github.com/inmoservicios/backend/internal/handler"
	"github.com/inmoservicios/backend/internal/middleware"
	"github.com/inmoservicios/backend/internal/queue"
	"github.com/inmoservicios/backend/internal/repository"
	"github.com/inmoservicios/backend/internal/router"
	"github.com/inmoservicios/backend/internal/validation"
)

func main() {
	// A missing .env is fine in production where the environment is real.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: rate limiting and response caching degrade to
	// pass-through middleware when the client is nil.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	properties := repository.NewPropertyRepo(db)
	requests := repository.NewRequestRepo(db)
	providers := repository.NewProviderRepo(db)
	notifications := repository.NewNotificationRepo(db)
	preferences := repository.NewPreferenceRepo(db)
	dashboard := repository.NewDashboardRepo(db)

	authH := handler.NewAuthHandler(cfg, users, providers)
	propH := handler.NewPropertyHandler(properties)
	reqH := handler.NewRequestHandler(requests, properties, providers)
	provH := handler.NewProviderHandler(providers, requests)
	dashH := handler.NewDashboardHandler(dashboard, notifications)
	prefH := handler.NewPreferenceHandler(preferences)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: corsOrigins(cfg),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, cfg.Env)
	router.RegisterAuth(e, authH, cfg.JWTSecret, limiter)
	router.RegisterProperties(e, propH, cfg.JWTSecret)
	router.RegisterRequests(e, reqH, cfg.JWTSecret)
	router.RegisterProviders(e, provH, cfg.JWTSecret, cache)
	router.RegisterDashboard(e, dashH, cfg.JWTSecret)
	router.RegisterPreferences(e, prefH, cfg.JWTSecret)

	// The consumer turns request lifecycle events into notification rows. It
	// reconnects on its own; a broker outage never blocks startup.
	go queue.StartRequestConsumer(notifications)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// corsOrigins falls back to allowing any origin when none are configured,
// which matches how the mobile clients talk to a dev instance.
func corsOrigins(cfg config.Config) []string {
	if len(cfg.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSOrigins
}
