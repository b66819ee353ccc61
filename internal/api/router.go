package api

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-discovery/internal/api/handlers"
	"recipe-discovery/internal/api/handlers/health"
	"recipe-discovery/internal/api/middleware"
	"recipe-discovery/internal/infrastructure/config"
	"recipe-discovery/internal/infrastructure/metrics"
	"recipe-discovery/internal/pkg/common"
)

// Dependencies 路由需要的元件
type Dependencies struct {
	Handlers handlers.Dependencies
	// Metrics 為 nil 時不提供 /metrics
	Metrics *metrics.Metrics
	Checks  map[string]health.Checker
}

// SetupRouter 設置路由；回傳的 cleanup 停止中間件的背景清理
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, func(), error) {
	h := deps.Handlers
	if h.Discoverer == nil || h.Products == nil || h.Units == nil || h.Registry == nil ||
		h.Scorer == nil || h.Fridge == nil || h.Recipes == nil {
		return nil, nil, fmt.Errorf("failed to initialize router: missing handler dependency")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID", middleware.OwnerHeader},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	maxBody := cfg.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	router.Use(middleware.BodySizeLimit(maxBody))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, deps.Checks)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)

	api := router.Group("/api/v1")
	api.Use(middleware.RequireOwner())
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	api.Use(dedup.Middleware())
	{
		handler := handlers.NewHandler(h)

		api.POST("/discover", handler.HandleDiscover)
		api.POST("/match", handler.HandleMatch)

		api.POST("/products/resolve", handler.HandleResolveProduct)

		api.GET("/units", handler.HandleListUnits)
		api.POST("/units/reconcile", handler.HandleReconcileUnits)

		api.GET("/fridge", handler.HandleListFridge)
		api.POST("/fridge", handler.HandleAddFridgeItem)

		api.GET("/recipes", handler.HandleListRecipes)
		api.POST("/recipes", handler.HandleSaveRecipe)
		api.GET("/recipes/:id", handler.HandleGetRecipe)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", maxBody),
	)

	return router, dedup.Close, nil
}
