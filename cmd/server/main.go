package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/inference/common/id"
	"basegraph.app/inference/common/llm"
	"basegraph.app/inference/common/logger"
	"basegraph.app/inference/common/metrics"
	"basegraph.app/inference/common/otel"
	"basegraph.app/inference/core/config"
	"basegraph.app/inference/core/db"
	"basegraph.app/inference/internal/http/middleware"
	httprouter "basegraph.app/inference/internal/http/router"
	"basegraph.app/inference/internal/ratelimit"
	"basegraph.app/inference/internal/service"
	"basegraph.app/inference/internal/store"
)

func main() {
	color.Cyan(banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "inference starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	generator, err := llm.New(llm.Config{
		Provider:     cfg.LLM.Provider,
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		SystemPrompt: cfg.LLM.SystemPrompt,
		MaxTokens:    cfg.LLM.MaxTokens,
		Temperature:  cfg.LLM.Temperature,
		Timeout:      cfg.LLM.Timeout,
		MaxRetries:   cfg.LLM.MaxRetries,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm generator", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "llm generator ready",
		"provider", generator.Provider(),
		"model", generator.Model(),
		"timeout", cfg.LLM.Timeout.String(),
		"max_retries", cfg.LLM.MaxRetries)

	collector := metrics.NewCollector()

	servicesCfg := service.ServicesConfig{
		Generator: generator,
		Metrics:   collector,
	}

	if cfg.DB.Enabled() {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to migrate database", "error", err)
			os.Exit(1)
		}
		servicesCfg.Generations = store.NewStores(database.Pool()).Generations()
		slog.InfoContext(ctx, "database connected, generation history enabled")
	} else {
		slog.InfoContext(ctx, "generation history disabled (no DATABASE_URL)")
	}

	var generateMiddleware []gin.HandlerFunc
	if cfg.RateLimit.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}

		limiter := ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.RequestsPerMinute, time.Minute)
		defer limiter.Close()

		generateMiddleware = append(generateMiddleware, middleware.RateLimit(limiter))
		slog.InfoContext(ctx, "redis connected, rate limiting enabled", "requests_per_minute", cfg.RateLimit.RequestsPerMinute)
	}

	services := service.NewServices(servicesCfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := setupRouter(cfg, services, collector, generateMiddleware)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up router", "error", err)
		os.Exit(1)
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Provider round trips (with retries) must fit inside one write.
		WriteTimeout: writeTimeout(cfg.LLM),
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, collector *metrics.Collector, generateMiddleware []gin.HandlerFunc) (*gin.Engine, error) {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → RequestID tags the context → Logger logs with both
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(collector))

	err := httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		Title:              cfg.OTel.ServiceName,
		Version:            cfg.OTel.ServiceVersion,
		MetricsHandler:     collector.Handler(),
		GenerateMiddleware: generateMiddleware,
		TrustedProxies:     cfg.TrustedProxies,
	})
	if err != nil {
		return nil, err
	}

	return router, nil
}

// writeTimeout leaves room for every attempt the SDK may make plus a margin
// for backoff between them.
func writeTimeout(cfg config.LLMConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return 10 * time.Minute
	}
	attempts := time.Duration(cfg.MaxRetries + 1)
	return cfg.Timeout*attempts + 30*time.Second
}

const banner = `
██╗███╗   ██╗███████╗███████╗██████╗ ███████╗███╗   ██╗ ██████╗███████╗
██║████╗  ██║██╔════╝██╔════╝██╔══██╗██╔════╝████╗  ██║██╔════╝██╔════╝
██║██╔██╗ ██║█████╗  █████╗  ██████╔╝█████╗  ██╔██╗ ██║██║     █████╗
██║██║╚██╗██║██╔══╝  ██╔══╝  ██╔══██╗██╔══╝  ██║╚██╗██║██║     ██╔══╝
██║██║ ╚████║██║     ███████╗██║  ██║███████╗██║ ╚████║╚██████╗███████╗
╚═╝╚═╝  ╚═══╝╚═╝     ╚══════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═══╝ ╚═════╝╚══════╝
`
