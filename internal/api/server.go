package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/policy"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/portfolio"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, policyEngine *policy.Engine, portfolioSvc *portfolio.Service, version string, asyncEnabled bool) *Server {
	handler := NewHandler(repo, cache, bus, policyEngine, portfolioSvc, version, asyncEnabled)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Customer lifecycle
	router.Post("/register", handler.Register)
	router.Get("/customers/{customerID}", handler.GetCustomer)
	router.Get("/portfolio/{customerID}", handler.GetPortfolio)

	// Loan pipeline
	router.Post("/check-eligibility", handler.CheckEligibility)
	router.Post("/create-loan", handler.CreateLoan)
	router.Get("/view-loan/{loanID}", handler.ViewLoan)
	router.Get("/view-loans/{customerID}", handler.ViewLoans)

	// Async intake
	router.Post("/applications", handler.SubmitApplication)
	router.Get("/decisions/{decisionID}", handler.GetDecision)

	// Policy rule management
	router.Get("/policies", handler.ListPolicies)
	router.Post("/policies", handler.CreatePolicy)
	router.Post("/policies/reload", handler.ReloadPolicies)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
