package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"recipe-discovery/internal/api"
	"recipe-discovery/internal/api/handlers"
	"recipe-discovery/internal/api/handlers/health"
	"recipe-discovery/internal/core/ai"
	"recipe-discovery/internal/core/discovery"
	"recipe-discovery/internal/core/matching"
	"recipe-discovery/internal/core/product"
	"recipe-discovery/internal/core/units"
	"recipe-discovery/internal/infrastructure/cache"
	"recipe-discovery/internal/infrastructure/config"
	"recipe-discovery/internal/infrastructure/metrics"
	"recipe-discovery/internal/infrastructure/recipeapi"
	"recipe-discovery/internal/infrastructure/store"
	"recipe-discovery/internal/pkg/common"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	if err := run(cfg); err != nil {
		common.LogError("Server exited with error", zap.Error(err))
		common.Sync()
		os.Exit(1)
	}
	common.LogInfo("Server exited")
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// 資料庫
	db, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	registry := units.NewRegistry()
	if err := db.SeedUnits(ctx, registry.Units()); err != nil {
		return fmt.Errorf("seed units: %w", err)
	}

	// 快取
	c, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	checks := map[string]health.Checker{"store": db.Ping}
	if c != nil {
		defer c.Close()
		if r, ok := c.(*cache.Redis); ok {
			checks["cache"] = r.Ping
		}
	}

	m := metrics.New()

	productResolver := product.NewResolver(db, product.Config{
		FuzzyThreshold: cfg.Matching.FuzzyThreshold,
		CandidateLimit: cfg.Matching.FuzzyCandidateLimit,
	}, product.WithObserver(m.ObserveResolution))
	unitResolver := units.NewResolver(nil)
	scorer := matching.NewScorer(unitResolver)

	opts := []discovery.Option{discovery.WithObserver(m)}
	if cfg.RecipeAPI.Enabled {
		external := cache.WrapExternal(recipeapi.NewClient(cfg.RecipeAPI), c, m.ObserveCache)
		opts = append(opts, discovery.WithExternalSource(external))
	}
	if cfg.OpenRouter.Enabled {
		generator := ai.NewRecipeGenerator(ai.NewOpenRouterClient(cfg.OpenRouter), cfg.OpenRouter.MaxRecipes)
		opts = append(opts, discovery.WithGenerativeSource(cache.WrapGenerator(generator, c, m.ObserveCache)))
	}

	orchestrator := discovery.NewOrchestrator(db, productResolver, scorer, registry, discovery.Config{
		GoodMatchThreshold: cfg.Matching.GoodMatchThreshold,
		DefaultMaxResults:  cfg.Matching.DefaultMaxResults,
		MaxResultsLimit:    cfg.Matching.MaxResultsLimit,
		ResolveWorkers:     cfg.Matching.ResolveWorkers,
	}, opts...)

	router, cleanup, err := api.SetupRouter(cfg, api.Dependencies{
		Handlers: handlers.Dependencies{
			Discoverer: orchestrator,
			Products:   productResolver,
			Units:      unitResolver,
			Registry:   registry,
			Scorer:     scorer,
			Fridge:     db,
			Recipes:    db,
			Debug:      cfg.App.Debug,
		},
		Metrics: m,
		Checks:  checks,
	})
	if err != nil {
		return fmt.Errorf("setup router: %w", err)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("recipe_api", cfg.RecipeAPI.Enabled),
			zap.Bool("openrouter", cfg.OpenRouter.Enabled),
			zap.Bool("cache", c != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-quit:
	}

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
