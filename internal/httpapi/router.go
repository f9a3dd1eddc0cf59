// Package httpapi implements the Router / Version Dispatch module: the
// HTTP surface exposing v1, v2, and v3 of the protocol, built on stdlib
// net/http.ServeMux with Go 1.22 "METHOD /path" registration the way
// oriys-nova's internal/api/server.go wires its control/data plane
// handlers, chaining middleware by wrapping http.Handler.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/horos/libsqld-gateway/internal/executor"
	"github.com/horos/libsqld-gateway/internal/obslog"
	"github.com/horos/libsqld-gateway/internal/obsmetrics"
	"github.com/horos/libsqld-gateway/internal/pipeline"
	"github.com/horos/libsqld-gateway/internal/stream"
)

const gatewayVersion = "0.1.0"

// Server holds the dependencies shared by every handler.
type Server struct {
	Streams             *stream.Registry
	Engine              *pipeline.Engine
	Executor            *executor.Executor
	Metrics             *obsmetrics.Collector
	MaxPipelineRequests int
	StartedAt           time.Time
}

type requestIDKey struct{}

// RequestID retrieves the request id requestIDMiddleware attached to ctx.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey{}).(string)
	return v, ok
}

// NewMux builds the complete route table, wrapped in access logging and
// metrics middleware.
func (s *Server) NewMux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v2", s.handleProbe("v2"))
	mux.HandleFunc("GET /v2/", s.handleProbe("v2"))
	mux.HandleFunc("GET /v3", s.handleProbe("v3"))
	mux.HandleFunc("GET /v3/", s.handleProbe("v3"))

	mux.HandleFunc("POST /v2/pipeline", s.handlePipeline("v2"))
	mux.HandleFunc("POST /v2/pipeline/", s.handlePipeline("v2"))
	mux.HandleFunc("POST /v3/pipeline", s.handlePipeline("v3"))
	mux.HandleFunc("POST /v3/pipeline/", s.handlePipeline("v3"))

	mux.HandleFunc("POST /", s.handleV1Batch)
	mux.HandleFunc("POST /v1", s.handleV1Batch)
	mux.HandleFunc("POST /v1/", s.handleV1Batch)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)

	var handler http.Handler = notFoundWrapper(mux)
	if s.Metrics != nil {
		handler = s.metricsMiddleware(handler)
	}
	handler = s.accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

// requestIDMiddleware stamps every request with a fresh request id,
// distinct from the crypto/rand-generated stream batons: request ids are
// a log-correlation convenience, not a security token, so a standard
// random UUID is the right tool here.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version, route := classifyRoute(r.URL.Path)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Metrics.RequestsTotal.WithLabelValues(version, route).Inc()
		s.Metrics.RequestDuration.WithLabelValues(version, route).Observe(time.Since(start).Seconds())
	})
}

func classifyRoute(path string) (version, route string) {
	switch {
	case len(path) >= 3 && path[:3] == "/v2":
		return "v2", path
	case len(path) >= 3 && path[:3] == "/v3":
		return "v3", path
	case path == "/health" || path == "/version":
		return "meta", path
	default:
		return "v1", path
	}
}

// notFoundWrapper converts ServeMux's default 404 into the protocol's
// RouteError JSON envelope, the same pattern nova's hostRouter uses to keep
// every response, including "no route", inside one error shape.
func notFoundWrapper(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := mux.Handler(r)
		if pattern == "" {
			writeRouteError(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (s *Server) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		obslog.L().Debug("request", "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}
