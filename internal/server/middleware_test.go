package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/assetscout/internal/problem"
	"github.com/HerbHall/assetscout/pkg/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Len(t, seen, 32)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Request-ID", "scan-trace-1")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "scan-trace-1", seen)
	assert.Equal(t, "scan-trace-1", w.Header().Get("X-Request-ID"))
}

func TestLoggingMiddleware_QuietPathsMeteredNotLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := LoggingMiddleware(zap.New(core), []string{"/healthz"})(okHandler(http.StatusCreated))

	for _, path := range []string{"/api/v1/inventory/scans", "/healthz"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, http.NoBody))
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/v1/inventory/scans", fields["path"])
	assert.Equal(t, int64(http.StatusCreated), fields["status"])
}

// routedHandler mounts the inventory printer route behind the pattern
// capture, the way Server wires its mux.
func routedHandler(logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/inventory/printers/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, r.PathValue("id"))
	})
	// RequestIDMiddleware sits between the two and hands the mux a copy of
	// the request.
	return Chain(capturePattern(mux), LoggingMiddleware(logger, nil), RequestIDMiddleware)
}

func TestLoggingMiddleware_LabelsByRoutePattern(t *testing.T) {
	const route = "GET /api/v1/inventory/printers/{id}"
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, route, "200")
	before := testutil.ToFloat64(counter)

	core, logs := observer.New(zap.InfoLevel)
	h := routedHandler(zap.New(core))
	for _, id := range []string{"3f1c0c1e", "9a77d2b0", "c41e6f08"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/printers/"+id, http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
	for _, e := range logs.All() {
		assert.Equal(t, route, e.ContextMap()["route"])
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)

	scrape := httptest.NewRecorder()
	newTestServer(nil).mux.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	body := scrape.Body.String()
	assert.NotContains(t, body, `route="/api/v1/inventory/printers/3f1c0c1e"`)
	assert.Contains(t, body, `route="unrouted"`)
}

func TestLoggingMiddleware_HijackedStream(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream", func(w http.ResponseWriter, _ *http.Request) {
		conn, brw, err := http.NewResponseController(w).Hijack()
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotImplemented)
			return
		}
		defer conn.Close()
		_, _ = brw.WriteString("HTTP/1.1 101 Switching Protocols\r\nUpgrade: test\r\nConnection: Upgrade\r\n\r\nhello\n")
		_ = brw.Flush()
	})
	ts := httptest.NewServer(Chain(capturePattern(mux), LoggingMiddleware(zap.New(core), nil), RequestIDMiddleware))
	t.Cleanup(ts.Close)

	conn, err := net.Dial("tcp", ts.Listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = fmt.Fprint(conn, "GET /stream HTTP/1.1\r\nHost: test\r\nUpgrade: test\r\nConnection: Upgrade\r\n\r\n")
	require.NoError(t, err)

	status, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(status, "HTTP/1.1 101"), status)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("stream closed").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	fields := logs.FilterMessage("stream closed").All()[0].ContextMap()
	assert.Equal(t, int64(http.StatusSwitchingProtocols), fields["status"])
	assert.Equal(t, "GET /stream", fields["route"])
}

func TestResponseRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusConflict)
	n, err := rec.Write([]byte("queued"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, rec.status)
	assert.Equal(t, int64(n), rec.bytes)
	assert.Same(t, w, rec.Unwrap())

	// httptest.ResponseRecorder cannot be hijacked; the error must surface.
	_, _, err = rec.Hijack()
	assert.Error(t, err)
	assert.False(t, rec.hijacked)
}

func TestSecurityAndVersionHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	Chain(okHandler(http.StatusOK), SecurityHeadersMiddleware, VersionHeaderMiddleware).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":         "no-referrer",
	}
	for header, value := range want {
		assert.Equal(t, value, w.Header().Get(header), header)
	}
	assert.NotEmpty(t, w.Header().Get("X-AssetScout-Version"))
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("printer table corrupted")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/printers", http.NoBody))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var p models.APIProblem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, problem.TypeInternal, p.Type)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestRecoveryMiddleware_ReraisesAbort(t *testing.T) {
	h := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(1, 1, []string{"/healthz"})(okHandler(http.StatusOK))

	do := func(path, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("/api/v1/inventory/printers", "10.0.0.1:4000").Code)
	limited := do("/api/v1/inventory/printers", "10.0.0.1:4001")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	// Separate bucket per client, exempt paths bypass the limiter.
	assert.Equal(t, http.StatusOK, do("/api/v1/inventory/printers", "10.0.0.2:4000").Code)
	for range 5 {
		assert.Equal(t, http.StatusOK, do("/healthz", "10.0.0.1:4002").Code)
	}
}

func TestRateLimitMiddleware_IgnoresForwardedFor(t *testing.T) {
	h := RateLimitMiddleware(1, 1, nil)(okHandler(http.StatusOK))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/scans", http.NoBody)
		req.RemoteAddr = "10.0.0.9:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "request %d", i)
	}
}

func TestClientLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newClientLimiter(rate.Limit(1), 1)
	l.now = func() time.Time { return now }

	for i := range maxTrackedClients {
		l.allow(fmt.Sprintf("10.%d.%d.%d", i>>16&0xff, i>>8&0xff, i&0xff))
	}
	require.Len(t, l.clients, maxTrackedClients)

	now = now.Add(clientIdleTTL + time.Second)
	assert.True(t, l.allow("192.168.1.50"))
	assert.Len(t, l.clients, 1)
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(okHandler(http.StatusOK), tag("outer"), tag("inner")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, []string{"outer", "inner"}, order)
}
