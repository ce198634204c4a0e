package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/maplepay/maplepay-backend/internal/payroll/consumers"
	"github.com/maplepay/maplepay-backend/internal/payroll/events"
	"github.com/maplepay/maplepay-backend/internal/payroll/explain"
	"github.com/maplepay/maplepay-backend/internal/payroll/handler"
	"github.com/maplepay/maplepay-backend/internal/payroll/repository"
	"github.com/maplepay/maplepay-backend/internal/payroll/service"
	"github.com/maplepay/maplepay-backend/pkg/actor"
	"github.com/maplepay/maplepay-backend/pkg/config"
	"github.com/maplepay/maplepay-backend/pkg/database"
	"github.com/maplepay/maplepay-backend/pkg/httputil"
	"github.com/maplepay/maplepay-backend/pkg/logger"
	"github.com/maplepay/maplepay-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.Load("payroll-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("payroll-service", cfg.Server.Environment)
	log.Info().Int("tax_year", cfg.Payroll.TaxYear).Msg("starting Payroll Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	employeeRepo := repository.NewEmployeeRepository(db, log)
	settingsRepo := repository.NewSettingsRepository(db, log)
	historyRepo := repository.NewHistoryRepository(db, log)

	// Initialize variance explainer
	explainer := explain.NewClient(cfg.Explain, log)

	// Initialize service
	payrollService := service.NewPayrollService(
		employeeRepo, settingsRepo, historyRepo, explainer, publisher, cfg.Payroll, log)

	// Initialize handlers
	payrollHandler := handler.NewPayrollHandler(payrollService, log)
	settingsHandler := handler.NewSettingsHandler(payrollService, log)

	// Start HR event consumer
	hrConsumer, err := consumers.NewHRConsumer(rmq, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create HR event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := hrConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start HR event consumer")
	}

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS - supports subdomain-based multi-tenancy
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			// Allow localhost variations (development)
			if origin == "http://localhost:3000" || origin == "http://localhost:5173" {
				return true
			}
			// Allow *.localhost:3000 subdomains for development
			if len(origin) > 21 && origin[len(origin)-15:] == ".localhost:3000" {
				return true
			}
			// Allow *.maplepay.ca for production
			if len(origin) > 12 && origin[len(origin)-12:] == ".maplepay.ca" {
				return true
			}
			if origin == "https://maplepay.ca" {
				return true
			}
			return false
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID", "X-Tenant-Slug"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httputil.TenantMiddleware) // Tenant middleware with /health exception
	r.Use(actor.Middleware)

	// Health check (no tenant required - handled by middleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "payroll-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes (tenant required)
	r.Route("/api/v1", func(r chi.Router) {
		payrollHandler.RegisterRoutes(r)
		settingsHandler.RegisterRoutes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
