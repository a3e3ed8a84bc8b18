package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nvkhoa/agent-edge/internal/authz"
	"github.com/nvkhoa/agent-edge/internal/cors"
	"github.com/nvkhoa/agent-edge/internal/dispatch"
	"github.com/nvkhoa/agent-edge/internal/jobs"
	"github.com/nvkhoa/agent-edge/pkg/ratelimit"
)

const unauthorizedBody = `{"error":"Unauthorized. Requires: Authorization: Bearer <token>"}`

type Options struct {
	Environment    string
	AllowedOrigins []string
	MCPAuthToken   string

	Dispatcher *dispatch.Dispatcher
	MCP        http.Handler // protocol mount, served only after the guard
	Static     http.Handler // asset fallback for unclassified paths

	// Limiter, when non-nil, throttles the protocol mount per bearer token.
	Limiter *ratelimit.Limiter

	Runner *jobs.Runner

	// Credential pair identifying the trusted hop allowed to fire the
	// scheduled-trigger endpoint.
	AccessClientID     string
	AccessClientSecret string
}

// Gateway classifies each inbound request into exactly one path class:
// preflight, health, proxied API, guarded protocol mount, proxied agent
// path, or static fallback.
type Gateway struct {
	opts Options
	mux  chi.Router
}

func New(opts Options) *Gateway {
	g := &Gateway{opts: opts}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(g.requestID)
	r.Use(g.preflight)

	r.Get("/health", g.handleHealth)

	r.Handle("/api", g.dispatchTo("/api"))
	r.Handle("/api/*", g.dispatchTo("/api"))

	mcp := opts.MCP
	if opts.Limiter != nil {
		mcp = g.rateLimit(mcp)
	}
	mcp = g.requireBearer(mcp)
	r.Handle("/mcp", mcp)
	r.Handle("/mcp/*", mcp)

	r.Handle("/agent", g.dispatchTo("/agent"))
	r.Handle("/agent/*", g.dispatchTo("/agent"))

	r.Post("/internal/cron", g.handleCron)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		opts.Static.ServeHTTP(w, req)
	})

	g.mux = r
	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

// HandleScheduled acknowledges a scheduled trigger immediately and hands it
// to the jobs runner. The runner keeps the job alive past this call; the
// server's shutdown path drains it.
func (g *Gateway) HandleScheduled(t jobs.Trigger) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.ScheduledAt.IsZero() {
		t.ScheduledAt = time.Now().UTC()
	}
	log.Printf("gateway: scheduled trigger cron=%q id=%s", t.Cron, t.ID)
	g.opts.Runner.Submit(t)
}

// preflight short-circuits OPTIONS requests to a no-body response carrying
// only the resolved CORS headers, before any auth or routing logic runs.
func (g *Gateway) preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			cors.Apply(w.Header(), cors.Resolve(r.Header.Get("Origin"), g.opts.AllowedOrigins))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("X-Request-ID") == "" {
			w.Header().Set("X-Request-ID", uuid.New().String())
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) dispatchTo(prefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.opts.Dispatcher.Dispatch(w, r, prefix)
	})
}

func (g *Gateway) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authz.IsAuthorized(r, g.opts.MCPAuthToken) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(unauthorizedBody))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		sum := sha256.Sum256([]byte(token))
		key := hex.EncodeToString(sum[:])

		allowed, err := g.opts.Limiter.Allow(r.Context(), key)
		if err != nil {
			log.Printf("gateway: rate limiter error: %v", err)
		}
		if err == nil && !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": g.opts.Environment,
	})
}

// handleCron is the HTTP transport for scheduled triggers. Only the trusted
// hop holding the access credential pair may fire it.
func (g *Gateway) handleCron(w http.ResponseWriter, r *http.Request) {
	if g.opts.AccessClientID == "" ||
		!authz.SecureCompare(r.Header.Get("CF-Access-Client-Id"), g.opts.AccessClientID) ||
		!authz.SecureCompare(r.Header.Get("CF-Access-Client-Secret"), g.opts.AccessClientSecret) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
		return
	}

	var payload struct {
		Cron        string    `json:"cron"`
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid trigger payload"})
		return
	}

	trigger := jobs.Trigger{
		ID:          uuid.New().String(),
		Cron:        payload.Cron,
		ScheduledAt: payload.ScheduledAt,
	}
	g.HandleScheduled(trigger)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"accepted": "true", "id": trigger.ID})
}
