package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/identity"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/rollup"
	"fintrack/internal/session"
)

const readyTimeout = 3 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API is built from. Store is used for the
// readiness probe only.
type Deps struct {
	Identity  identity.Provider
	Sessions  *session.Manager
	Savings   *rollup.Service
	Store     Pinger
	Logger    *log.Logger
	RateLimit int
	Now       func() time.Time
}

type Server struct {
	http.Server

	identity identity.Provider
	sessions *session.Manager
	savings  *rollup.Service
	store    Pinger
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware and returns a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	rl := ratelimit.DefaultConfig()
	if deps.RateLimit > 0 {
		rl.RequestsPerMinute = deps.RateLimit
	}

	s := &Server{
		identity: deps.Identity,
		sessions: deps.Sessions,
		savings:  deps.Savings,
		store:    deps.Store,
		logger:   deps.Logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(rl),
		detector: security.NewDetector(deps.Logger),
		now:      deps.Now,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/signout", s.handleSignOut)
	mux.Handle("GET /api/auth/me", s.authed(s.handleMe))

	mux.Handle("GET /api/transactions", s.authed(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.authed(s.handleCreateTransaction))
	mux.Handle("DELETE /api/transactions", s.authed(s.handleResetTransactions))
	mux.Handle("PUT /api/transactions/{id}", s.authed(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.authed(s.handleDeleteTransaction))
	mux.Handle("POST /api/transactions/undo", s.authed(s.handleUndo))

	mux.Handle("GET /api/summary", s.authed(s.handleSummary))
	mux.Handle("GET /api/charts", s.authed(s.handleCharts))
	mux.Handle("GET /api/tags", s.authed(s.handleTags))

	mux.Handle("GET /api/export.csv", s.authed(s.handleExportCSV))
	mux.Handle("POST /api/import", s.authed(s.handleImportCSV))

	mux.Handle("GET /api/savings", s.authed(s.handleListSavings))
	mux.Handle("POST /api/savings", s.authed(s.handleSaveMonth))
	mux.Handle("GET /api/savings/compare", s.authed(s.handleCompareYears))
	mux.Handle("GET /api/savings/{year}", s.authed(s.handleYear))

	tracer := trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
		NewJSONResponse().Status(http.StatusTooManyRequests).Error("rate limit exceeded").Write(w)
	}

	// Outermost first.
	return chain(mux,
		tracer.Middleware,
		log.Middleware(s.logger),
		log.RequestIDMiddleware(trace.FromRequest),
		headers.Middleware,
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, onLimit),
	)
}

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Shutdown stops the limiter sweeper and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			NewJSONResponse().Status(http.StatusServiceUnavailable).Error("store unavailable").Write(w)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
