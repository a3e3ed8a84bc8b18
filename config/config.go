package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/nvkhoa/agent-edge/internal/cors"
)

type Config struct {
	// Server
	Port        string // default: 8787
	Environment string // deployment tag surfaced by /health

	// Routing
	AllowedOrigins   []string // CORS allow-list, exact origins or "*"
	MCPAuthToken     string   // bearer secret for the protocol mount; empty disables the mount
	AgentUpstreamURL string   // session actor base URL
	UpstreamTimeout  time.Duration
	StaticDir        string

	// Trusted reverse-proxy hop credentials, attached to upstream calls and
	// required on the scheduled-trigger endpoint.
	AccessClientID     string
	AccessClientSecret string

	// Providers
	DeepSeekAPIKey  string
	DeepSeekModel   string
	DeepSeekBaseURL string
	AnthropicAPIKey string

	// Optional backing services
	PostgresDSN  string // usage store; log-only when empty
	RedisAddr    string // rate limiter; disabled when empty
	RateLimitRPM int64  // protocol-mount requests per minute, default: 300

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8787"),
		Environment:          getEnv("ENVIRONMENT", "development"),
		AllowedOrigins:       cors.ParseAllowList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		MCPAuthToken:         os.Getenv("MCP_AUTH_TOKEN"),
		AgentUpstreamURL:     getEnv("AGENT_UPSTREAM_URL", "http://127.0.0.1:8788"),
		StaticDir:            getEnv("STATIC_DIR", "./public"),
		AccessClientID:       os.Getenv("CF_ACCESS_CLIENT_ID"),
		AccessClientSecret:   os.Getenv("CF_ACCESS_CLIENT_SECRET"),
		DeepSeekAPIKey:       os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekModel:        os.Getenv("DEEPSEEK_MODEL"),
		DeepSeekBaseURL:      os.Getenv("DEEPSEEK_BASE_URL"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	timeoutStr := getEnv("UPSTREAM_TIMEOUT_SECONDS", "60")
	timeoutSec, err := strconv.Atoi(timeoutStr)
	if err != nil || timeoutSec <= 0 {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT_SECONDS: %q", timeoutStr)
	}
	cfg.UpstreamTimeout = time.Duration(timeoutSec) * time.Second

	rpmStr := getEnv("RATE_LIMIT_RPM", "300")
	rpm, err := strconv.ParseInt(rpmStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPM: %w", err)
	}
	cfg.RateLimitRPM = rpm

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
