package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"homesplit/internal/log"
	"homesplit/internal/metrics"
	"homesplit/internal/middleware/ratelimit"
	"homesplit/internal/middleware/security"
	"homesplit/internal/middleware/trace"
	"homesplit/internal/services"
)

// Pinger reports whether the storage backend is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API exposes.
type Deps struct {
	Members   *services.MemberService
	Charges   *services.ChargeService
	Recurring *services.RecurringProcessor
	Balances  *services.BalanceService
	Closures  *services.ClosureService
	Backend   Pinger
}

// Options tune the server around the handlers.
type Options struct {
	Addr      string
	RateLimit ratelimit.Policy
	// LimitStore holds rate limit windows; nil keeps them in memory.
	LimitStore     ratelimit.Store
	TrustedProxies []string
	Logger         *log.Logger
	Metrics        *metrics.Metrics
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	metrics  *metrics.Metrics
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIP
	started  time.Time
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(opts Options, deps Deps) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	clientIP, err := security.NewClientIP(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	store := opts.LimitStore
	if store == nil {
		store = ratelimit.NewMemoryStore(5 * time.Minute)
	}

	s := &Server{
		deps:     deps,
		logger:   logger,
		metrics:  opts.Metrics,
		limiter:  ratelimit.New(store, opts.RateLimit),
		clientIP: clientIP,
		started:  time.Now(),
		now:      time.Now,
	}

	mux := http.NewServeMux()
	s.route(mux, "GET /healthz", http.HandlerFunc(s.handleHealth))
	s.route(mux, "GET /readyz", http.HandlerFunc(s.handleReady))
	s.route(mux, "GET /metrics", s.metrics.Handler())

	s.api(mux, "GET /api/members", s.handleListMembers)
	s.api(mux, "POST /api/members", s.handleAddMember)
	s.api(mux, "GET /api/charges", s.handleListCharges)
	s.api(mux, "POST /api/charges", s.handleCreateCharge)
	s.api(mux, "DELETE /api/charges/{id}", s.handleDeleteCharge)
	s.api(mux, "GET /api/recurring", s.handleListRecurring)
	s.api(mux, "POST /api/recurring", s.handleCreateRecurring)
	s.api(mux, "GET /api/balances", s.handleBalances)
	s.api(mux, "GET /api/settlement", s.handleSettlement)
	s.api(mux, "GET /api/closures", s.handleListClosures)
	s.api(mux, "POST /api/closures", s.handleClosePeriod)
	s.api(mux, "GET /api/closures/{period}", s.handleGetClosure)

	chain := security.Headers(security.DefaultHeadersConfig())(mux)
	chain = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(chain)
	chain = log.Middleware(logger)(chain)
	chain = s.logStart(chain)
	chain = trace.Middleware(s.observe)(chain)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           chain,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// route registers h with per-route request metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := trace.NewStatusRecorder(w)
		h.ServeHTTP(rw, r)
		s.metrics.ObserveHTTP(pattern, r.Method, rw.Status(), time.Since(start))
	}))
}

// api registers an /api route behind the rate limiter.
func (s *Server) api(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	s.route(mux, pattern, s.limiter.Middleware(s.clientIP.Extract, s.onLimited, s.onLimitError)(h))
}

func (s *Server) onLimited(w http.ResponseWriter, r *http.Request, d ratelimit.Decision) {
	s.metrics.RateLimited()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.clientIP.Extract(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		"retry_after_s", ratelimit.RetryAfterSeconds(d.RetryAfter))
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

func (s *Server) onLimitError(r *http.Request, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Rate limit store failed, allowing request",
		log.FieldError, err)
}

func (s *Server) logStart(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requestLog(r).LogHTTPStart(r.Context(), r, s.clientIP.Extract(r))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) observe(r *http.Request, status int, d time.Duration) {
	s.requestLog(r).LogHTTPEnd(r.Context(), r, status, d, s.clientIP.Extract(r))
}

func (s *Server) requestLog(r *http.Request) *log.StructuredLogger {
	return log.NewStructuredLogger(s.logger.With(log.FieldRequestID, trace.GetRequestID(r.Context())))
}

// respondError logs err at the level its class deserves and writes the
// mapped response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, errType := classify(err)
	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithError(err).WithErrorType(errType).WithOperation(op).ToSlice()
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields...)
	}
	ErrorFor(err).Write(w)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}
