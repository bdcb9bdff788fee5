package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/api"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/bus"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/cache"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/policy"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/portfolio"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/repository"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Optional .env file; environment variables take precedence
	_ = godotenv.Load()

	logLevel := slog.LevelInfo
	if os.Getenv("CREDIT_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting creditd",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	cfg := domain.DefaultConfig()
	if os.Getenv("CREDIT_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	cfg.FromEnv()

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	engine, err := policy.NewEngine(10)
	if err != nil {
		slog.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := loadPoliciesFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load policies", "error", err)
		os.Exit(1)
	}
	slog.Info("policy engine initialized", "rules_count", engine.RulesCount())

	portfolioSvc := portfolio.NewService(repo, cacheImpl)
	slog.Info("portfolio service initialized")

	asyncEnabled := cfg.AsyncWorker || cfg.Tier == domain.TierPro
	var asyncWorker *worker.Worker
	if asyncEnabled {
		asyncWorker = worker.NewWorker(busImpl, repo, engine)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started")
		}
	}

	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, engine, portfolioSvc, Version, asyncEnabled)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("creditd is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("creditd shutdown complete")
}

// loadPoliciesFromDatabase loads policy rules into the engine. When the
// database has none, the built-in rule set is loaded instead so a fresh
// install still flags risky applications.
func loadPoliciesFromDatabase(ctx context.Context, repo domain.Repository, engine *policy.Engine) error {
	dbRules, err := repo.ListPolicyRules(ctx)
	if err != nil {
		slog.Warn("failed to list policy rules from database", "error", err)
		return engine.LoadRules(policy.DefaultRules())
	}

	if len(dbRules) > 0 {
		slog.Info("loading policy rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no policy rules in database, loading built-in rules")
	return engine.LoadRules(policy.DefaultRules())
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ============================================")
	fmt.Println("               CREDITD")
	fmt.Println("       Credit Approval Service")
	fmt.Println("  ============================================")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /register                  - Register a customer")
	fmt.Println("    GET  /customers/{id}            - Get customer by ID")
	fmt.Println("    GET  /portfolio/{id}            - Customer portfolio summary")
	fmt.Println("    POST /check-eligibility         - Check loan eligibility")
	fmt.Println("    POST /create-loan               - Create a loan")
	fmt.Println("    GET  /view-loan/{loanID}        - Get loan with customer details")
	fmt.Println("    GET  /view-loans/{customerID}   - List a customer's loans")
	fmt.Println("    POST /applications              - Submit an async application")
	fmt.Println("    GET  /decisions/{id}            - Get a decision record")
	fmt.Println("    GET  /policies                  - List policy rules")
	fmt.Println("    POST /policies                  - Create a policy rule")
	fmt.Println("    POST /policies/reload           - Hot-reload policy rules")
	fmt.Println("    GET  /health                    - Health check")
	fmt.Println()
}
