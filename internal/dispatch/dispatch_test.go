package dispatch

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"
)

type actorFunc func(*http.Request) (*http.Response, error)

func (f actorFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func newTestDispatcher(actor Actor, allowedOrigins []string) *Dispatcher {
	tracer := noop.NewTracerProvider().Tracer("test")
	return New(FixedResolver{Actor: actor}, allowedOrigins, tracer)
}

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestDispatch_EmptySuffixDefaultsToStatus(t *testing.T) {
	var forwarded *http.Request
	d := newTestDispatcher(actorFunc(func(r *http.Request) (*http.Response, error) {
		forwarded = r
		return okResponse("{}"), nil
	}), nil)

	req := httptest.NewRequest("GET", "/api", nil)
	w := httptest.NewRecorder()
	d.Dispatch(w, req, "/api")

	if forwarded == nil {
		t.Fatal("actor never called")
	}
	if forwarded.URL.Path != "/status" {
		t.Errorf("forwarded path = %q, want /status", forwarded.URL.Path)
	}
	if forwarded.URL.Host != "session.internal" {
		t.Errorf("forwarded host = %q, want synthetic internal origin", forwarded.URL.Host)
	}
}

func TestDispatch_PreservesSuffixAndQuery(t *testing.T) {
	var forwarded *http.Request
	d := newTestDispatcher(actorFunc(func(r *http.Request) (*http.Response, error) {
		forwarded = r
		return okResponse("{}"), nil
	}), nil)

	req := httptest.NewRequest("POST", "/agent/foo?x=1", strings.NewReader(`{"a":1}`))
	req.Header.Set("X-Custom", "kept")
	w := httptest.NewRecorder()
	d.Dispatch(w, req, "/agent")

	if forwarded.URL.Path != "/foo" {
		t.Errorf("forwarded path = %q, want /foo", forwarded.URL.Path)
	}
	if forwarded.URL.RawQuery != "x=1" {
		t.Errorf("forwarded query = %q, want x=1", forwarded.URL.RawQuery)
	}
	if forwarded.Method != "POST" {
		t.Errorf("forwarded method = %q, want POST", forwarded.Method)
	}
	if forwarded.Header.Get("X-Custom") != "kept" {
		t.Error("inbound headers should be carried on the derived request")
	}
	body, _ := io.ReadAll(forwarded.Body)
	if string(body) != `{"a":1}` {
		t.Errorf("forwarded body = %q", body)
	}
}

func TestDispatch_CorsHeadersWinOverActorHeaders(t *testing.T) {
	d := newTestDispatcher(actorFunc(func(r *http.Request) (*http.Response, error) {
		resp := okResponse("actor-body")
		resp.StatusCode = http.StatusMultiStatus
		resp.Header.Set("Access-Control-Allow-Origin", "*")
		resp.Header.Set("X-Actor", "yes")
		return resp, nil
	}), nil)

	req := httptest.NewRequest("GET", "/api/thing", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	d.Dispatch(w, req, "/api")

	if w.Code != http.StatusMultiStatus {
		t.Errorf("status = %d, want actor status preserved", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, resolved CORS headers must win on collision", got)
	}
	if w.Header().Get("X-Actor") != "yes" {
		t.Error("actor headers should be relayed")
	}
	if w.Body.String() != "actor-body" {
		t.Errorf("body = %q, want streamed actor body", w.Body.String())
	}
}

func TestDispatch_RejectedOriginGetsNoCorsHeaders(t *testing.T) {
	d := newTestDispatcher(actorFunc(func(r *http.Request) (*http.Response, error) {
		return okResponse("{}"), nil
	}), []string{"https://a.example"})

	req := httptest.NewRequest("GET", "/api/thing", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	d.Dispatch(w, req, "/api")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("rejected origin must yield no CORS headers, got %q", got)
	}
}

func TestDispatch_ActorUnreachable(t *testing.T) {
	d := newTestDispatcher(actorFunc(func(r *http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	}), nil)

	req := httptest.NewRequest("GET", "/api/thing", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	d.Dispatch(w, req, "/api")

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), "error") {
		t.Errorf("expected JSON error body, got %q", w.Body.String())
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("error responses still carry the caller's CORS headers")
	}
}

func TestHTTPActor_RewritesToUpstreamAndAttachesAccessPair(t *testing.T) {
	var gotPath, gotID, gotSecret string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.Header.Get("CF-Access-Client-Id")
		gotSecret = r.Header.Get("CF-Access-Client-Secret")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	actor, err := NewHTTPActor(upstream.URL, upstream.Client(), "svc-id", "svc-secret")
	if err != nil {
		t.Fatalf("NewHTTPActor failed: %v", err)
	}

	req, _ := http.NewRequest("GET", "http://session.internal/status", nil)
	resp, err := actor.Do(req)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	resp.Body.Close()

	if gotPath != "/status" {
		t.Errorf("upstream path = %q, want /status", gotPath)
	}
	if gotID != "svc-id" || gotSecret != "svc-secret" {
		t.Errorf("access pair = (%q, %q), want configured credentials", gotID, gotSecret)
	}
}
