package dispatch

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nvkhoa/agent-edge/internal/cors"
)

// The actor address space is logically separate from the public origin;
// derived requests are built against this synthetic host and the actor
// handle rewrites them to its real address.
const internalOrigin = "http://session.internal"

// Actor is a handle to the stateful session service behind the gateway.
type Actor interface {
	Do(req *http.Request) (*http.Response, error)
}

// ActorResolver returns the one addressable actor for this deployment. The
// same logical session must always resolve to the same instance.
type ActorResolver interface {
	Resolve() Actor
}

// Dispatcher reshapes inbound requests into actor-addressed sub-requests and
// relays the actor's response with the caller's CORS headers merged in.
type Dispatcher struct {
	resolver  ActorResolver
	allowList []string
	tracer    trace.Tracer
}

func New(resolver ActorResolver, allowedOrigins []string, tracer trace.Tracer) *Dispatcher {
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer("dispatch")
	}
	return &Dispatcher{
		resolver:  resolver,
		allowList: allowedOrigins,
		tracer:    tracer,
	}
}

// Dispatch strips prefix from the request path, forwards the reshaped
// request to the actor, and streams the response back. CORS headers resolved
// from the original request always win over headers the actor returned.
func (d *Dispatcher) Dispatch(w http.ResponseWriter, r *http.Request, prefix string) {
	corsHeaders := cors.Resolve(r.Header.Get("Origin"), d.allowList)

	path := strings.TrimPrefix(r.URL.Path, prefix)
	if path == "" {
		path = "/status"
	}
	target := internalOrigin + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	ctx, span := d.tracer.Start(r.Context(), "dispatch.forward")
	defer span.End()
	span.SetAttributes(
		attribute.String("prefix", prefix),
		attribute.String("path", path),
	)

	derived, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		writeError(w, corsHeaders, http.StatusBadGateway, "failed to build upstream request")
		return
	}
	derived.Header = r.Header.Clone()

	resp, err := d.resolver.Resolve().Do(derived)
	if err != nil {
		log.Printf("dispatch: actor call failed: %v", err)
		writeError(w, corsHeaders, http.StatusBadGateway, "session actor unreachable")
		return
	}
	defer resp.Body.Close()

	for k, vv := range resp.Header {
		w.Header()[k] = append([]string(nil), vv...)
	}
	cors.Apply(w.Header(), corsHeaders)

	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func writeError(w http.ResponseWriter, corsHeaders http.Header, status int, msg string) {
	cors.Apply(w.Header(), corsHeaders)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HTTPActor forwards derived requests to a fixed upstream base URL. When a
// trusted-hop credential pair is configured it is attached to every request.
type HTTPActor struct {
	base         *url.URL
	client       *http.Client
	accessID     string
	accessSecret string
}

func NewHTTPActor(baseURL string, client *http.Client, accessID, accessSecret string) (*HTTPActor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPActor{
		base:         base,
		client:       client,
		accessID:     accessID,
		accessSecret: accessSecret,
	}, nil
}

func (a *HTTPActor) Do(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = a.base.Scheme
	req.URL.Host = a.base.Host
	req.URL.Path = strings.TrimRight(a.base.Path, "/") + req.URL.Path
	req.Host = a.base.Host

	if a.accessID != "" {
		req.Header.Set("CF-Access-Client-Id", a.accessID)
		req.Header.Set("CF-Access-Client-Secret", a.accessSecret)
	}

	return a.client.Do(req)
}

// FixedResolver always returns the same actor handle.
type FixedResolver struct {
	Actor Actor
}

func (r FixedResolver) Resolve() Actor { return r.Actor }
