package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"spendlens/internal/auth"
	"spendlens/internal/live"
	"spendlens/internal/log"
	"spendlens/internal/metrics"
	"spendlens/internal/middleware/ratelimit"
	"spendlens/internal/middleware/security"
	"spendlens/internal/middleware/trace"
	"spendlens/internal/services"
	"spendlens/internal/storage"
)

// Deps are the collaborators the handlers call into. Hub is optional.
type Deps struct {
	Store     storage.Store
	Expenses  *services.ExpenseService
	Summaries *services.SummaryService
	Auth      *services.AuthService
	Tokens    *auth.TokenIssuer
	Hub       *live.Hub
	// Location reads date-only request values.
	Location *time.Location
	Logger   *log.Logger
}

// Options tune the middleware chain.
type Options struct {
	RateLimitPerMinute int
	MetricsEnabled     bool
	TrustedProxies     []string
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		deps:     deps,
		logger:   deps.Logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(rlConfig),
		detector: detector,
		started:  time.Now(),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(trace.NewMiddleware(s.deps.Logger, s.detector.ExtractClientIP).Middleware)
	r.Use(chimw.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.APIPolicy()))
	r.Use(security.NoStoreMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if opts.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP))

		r.Get("/categories", s.handleCategories)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.deps.Tokens, s.deps.Store))

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/2fa/setup", s.handleSetupTOTP)
			r.Post("/auth/2fa/enable", s.handleEnableTOTP)

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", s.handleListExpenses)
				r.Post("/", s.handleCreateExpense)
				r.Get("/{id}", s.handleGetExpense)
				r.Put("/{id}", s.handleUpdateExpense)
				r.Delete("/{id}", s.handleDeleteExpense)
			})

			r.Route("/summary", func(r chi.Router) {
				r.Get("/", s.handleSummary)
				r.Get("/categories", s.handleSummaryCategories)
				r.Get("/months", s.handleSummaryMonths)
				r.Get("/series", s.handleSummarySeries)
				r.Get("/heatmap", s.handleSummaryHeatmap)
				r.Get("/export.xlsx", s.handleSummaryExport)
			})

			r.Get("/ws", s.handleLive)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").Write(w)
	})

	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
