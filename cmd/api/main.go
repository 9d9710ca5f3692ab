package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"projecthub/internal/config"
	"projecthub/internal/database"
	"projecthub/internal/domain"
	"projecthub/internal/middleware"
	"projecthub/internal/modules/auth"
	jwtsvc "projecthub/internal/pkg/jwt"
	"projecthub/internal/repository"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is empty")
	}

	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal(err)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)

	codec := jwtsvc.New(jwtsvc.Config{
		Secret:        cfg.JWTSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		RememberMeTTL: cfg.RememberMeTTL(),
	})

	engine := auth.NewRotationEngine(tokenRepo, codec, auth.RotationConfig{
		MaxRotationCount:      cfg.MaxRotationCount,
		RateLimitWindow:       cfg.RateLimitWindow,
		MaxRotationsPerWindow: cfg.MaxRotationsPerWindow,
	})

	authService := auth.NewService(userRepo, tokenRepo, codec, auth.BcryptVerifier{}, engine)
	authHandler := auth.NewHandler(authService, auth.CookieConfig{
		Secure:   cfg.CookieSecure,
		SameSite: cfg.SameSite(),
		Path:     cfg.CookiePath,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := auth.NewMonitor(tokenRepo, engine, auth.MonitorConfig{
		CleanupInterval: cfg.CleanupInterval,
		MonitorInterval: cfg.MonitorInterval,
		IncidentWindow:  cfg.IncidentWindow,
	})
	monitor.Start(ctx)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api")
	{
		// public
		authHandler.RegisterPublicRoutes(v1)

		// protected
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(codec))
		{
			authHandler.RegisterProtectedRoutes(protected)

			admin := protected.Group("/")
			admin.Use(middleware.AdminOnly())
			{
				authHandler.RegisterAdminRoutes(admin)
			}
		}
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if err := r.Run(addr); err != nil {
		log.Fatal(err)
	}
}
