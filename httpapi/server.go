// Package httpapi exposes the verified list over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/feedcache"
	"github.com/unkn0wn-root/feedcache/verified"
)

const (
	VerifiedPath = "/api/feature/verified"
	HealthPath   = "/healthz"

	// CacheControl keeps a response fresh for 10 minutes in shared caches and
	// 30 days in browsers, with 30 days of stale-while-revalidate.
	CacheControl = "public, s-maxage=600, max-age=2592000, stale-while-revalidate=2592000"

	tracerName = "github.com/unkn0wn-root/feedcache/httpapi"
)

// VerifiedLister is the use case behind the verified endpoint.
type VerifiedLister interface {
	GetVerifiedIDs(ctx context.Context) (verified.Result, error)
}

type envelope struct {
	Success bool     `json:"success"`
	Cached  bool     `json:"cached,omitempty"`
	Result  []string `json:"result"`
}

type Server struct {
	verified VerifiedLister
	log      feedcache.Logger
	tracer   trace.Tracer
	timeout  time.Duration
}

type Option func(*Server)

func WithLogger(l feedcache.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithTimeout bounds each request's handling time. 0 disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

func New(v VerifiedLister, opts ...Option) *Server {
	s := &Server{
		verified: v,
		log:      feedcache.NopLogger{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed handler wrapped in CORS and tracing middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+VerifiedPath, s.handleVerified)
	mux.HandleFunc("GET "+HealthPath, handleHealth)
	return s.traced(cors(mux))
}

func (s *Server) handleVerified(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.verified.GetVerifiedIDs(ctx)
	if err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "verified list unavailable")
		s.log.Error("verified list failed", feedcache.Fields{"path": r.URL.Path, "err": err})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Bool("cache.hit", res.Cached),
		attribute.Int("verified.count", len(res.IDs)),
	)

	ids := res.IDs
	if ids == nil {
		ids = []string{}
	}
	w.Header().Set("Cache-Control", CacheControl)
	writeJSON(w, http.StatusOK, envelope{Success: true, Cached: res.Cached, Result: ids})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// traced starts a server span per request, continuing any W3C trace context
// the caller sent.
func (s *Server) traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := s.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
