package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/nvkhoa/agent-edge/config"
	"github.com/nvkhoa/agent-edge/internal/dispatch"
	"github.com/nvkhoa/agent-edge/internal/gateway"
	"github.com/nvkhoa/agent-edge/internal/jobs"
	"github.com/nvkhoa/agent-edge/internal/provider"
	"github.com/nvkhoa/agent-edge/internal/provider/anthropic"
	"github.com/nvkhoa/agent-edge/internal/provider/deepseek"
	"github.com/nvkhoa/agent-edge/internal/telemetry"
	"github.com/nvkhoa/agent-edge/internal/usage"
	"github.com/nvkhoa/agent-edge/pkg/ratelimit"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("agent-edge", cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	ctx := context.Background()

	// 3. Usage store: Postgres when configured, process log otherwise
	var usageStore usage.Store
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect postgres: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("failed to ping postgres: %v", err)
		}
		log.Println("PostgreSQL connected")
		usageStore = usage.NewPostgresStore(pool)
	} else {
		usageStore = usage.NewLogStore()
	}

	// 4. Rate limiter: enabled only when Redis is configured
	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to ping redis: %v", err)
		}
		log.Println("Redis connected")
		limiter = ratelimit.NewLimiter(rdb, cfg.RateLimitRPM)
	}

	// 5. Completion providers, metered through the usage store
	var providers []provider.Provider
	if cfg.DeepSeekAPIKey != "" {
		p, err := deepseek.New(deepseek.Config{
			APIKey:  cfg.DeepSeekAPIKey,
			Model:   cfg.DeepSeekModel,
			BaseURL: cfg.DeepSeekBaseURL,
		})
		if err != nil {
			log.Fatalf("failed to init deepseek provider: %v", err)
		}
		providers = append(providers, usage.Metered(p, usageStore))
	}
	if cfg.AnthropicAPIKey != "" {
		p, err := anthropic.New(anthropic.Config{APIKey: cfg.AnthropicAPIKey})
		if err != nil {
			log.Fatalf("failed to init anthropic provider: %v", err)
		}
		providers = append(providers, usage.Metered(p, usageStore))
	}
	registry := provider.NewRegistry(providers...)
	log.Printf("completion providers registered: %v", registry.Names())

	// 6. Session actor dispatcher
	actor, err := dispatch.NewHTTPActor(
		cfg.AgentUpstreamURL,
		&http.Client{Timeout: cfg.UpstreamTimeout},
		cfg.AccessClientID,
		cfg.AccessClientSecret,
	)
	if err != nil {
		log.Fatalf("invalid AGENT_UPSTREAM_URL: %v", err)
	}
	tracer := otel.GetTracerProvider().Tracer("agent-edge")
	dispatcher := dispatch.New(dispatch.FixedResolver{Actor: actor}, cfg.AllowedOrigins, tracer)

	// 7. Scheduled jobs
	runner := jobs.NewRunner()
	runner.Register("usage-rollup", func(ctx context.Context, t jobs.Trigger) error {
		summary, err := usageStore.Summarize(ctx, t.ScheduledAt.Add(-24*time.Hour), t.ScheduledAt)
		if err != nil {
			return err
		}
		log.Printf("usage-rollup: requests=%d prompt=%d completion=%d total=%d",
			summary.Requests, summary.PromptTokens, summary.CompletionTokens, summary.TotalTokens)
		return nil
	})

	// 8. Edge router. The protocol mount lives behind the same session
	// actor; unclassified paths fall through to static assets.
	gw := gateway.New(gateway.Options{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.AllowedOrigins,
		MCPAuthToken:   cfg.MCPAuthToken,
		Dispatcher:     dispatcher,
		MCP: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dispatcher.Dispatch(w, r, "/mcp")
		}),
		Static:             http.FileServer(http.Dir(cfg.StaticDir)),
		Limiter:            limiter,
		Runner:             runner,
		AccessClientID:     cfg.AccessClientID,
		AccessClientSecret: cfg.AccessClientSecret,
	})

	// 9. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      gw,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("agent edge gateway starting on port %s (%s)", cfg.Port, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	if err := runner.Drain(shutdownCtx); err != nil {
		log.Printf("jobs drain interrupted: %v", err)
	}
	log.Println("Server stopped")
}
