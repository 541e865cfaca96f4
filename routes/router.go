package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppla/nohand/config"
	"github.com/cppla/nohand/controllers"
	"github.com/cppla/nohand/middleware"
	"github.com/cppla/nohand/services"
	"github.com/cppla/nohand/utils"
)

// Services bundles what the HTTP layer needs.
type Services struct {
	Users         *services.UserService
	Checkins      *services.CheckinService
	Leaderboard   *services.LeaderboardService
	Admin         *services.AdminService
	RegisterGuard *utils.RegistrationGuard // optional
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(svc Services) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.RequestID())
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authController := controllers.NewAuthController(svc.Users, svc.RegisterGuard)
	checkinController := controllers.NewCheckinController(svc.Checkins)
	leaderboardController := controllers.NewLeaderboardController(svc.Leaderboard)
	adminController := controllers.NewAdminController(svc.Admin)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", middleware.RateLimitMiddleware(), authController.Register)
	authGroup.POST("/login", middleware.RateLimitMiddleware(), authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public board
	api.GET("/leaderboard", leaderboardController.GetLeaderboard)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired())
	protected.POST("/checkins", checkinController.CheckIn)
	protected.GET("/checkins/today", checkinController.Today)
	protected.GET("/checkins/history", checkinController.History)

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminRequired())
	admin.POST("/reset", adminController.Reset)
	admin.GET("/debug", adminController.Debug)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
