// Package server wires handlers, middleware, and routes, and owns the HTTP
// server lifecycle. This is the composition root: every dependency is
// constructed here and each layer receives only what it needs — handlers get
// services, services get repository interfaces, repositories get the DB.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"github.com/sakif/health-wallet/internal/auth"
	"github.com/sakif/health-wallet/internal/config"
	"github.com/sakif/health-wallet/internal/handler"
	"github.com/sakif/health-wallet/internal/metrics"
	"github.com/sakif/health-wallet/internal/middleware"
	sqliteRepo "github.com/sakif/health-wallet/internal/repository/sqlite"
	"github.com/sakif/health-wallet/internal/service"
	"github.com/sakif/health-wallet/internal/storage"
)

// Server holds the router and the resources it must release on shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB // owned by the server, closed on shutdown
}

// New assembles the full dependency graph and registers all routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware, builds the service graph, and binds
// every endpoint.
//
// ROUTE MAP:
//
//	POST   /auth/register          → create account
//	POST   /auth/login             → issue bearer token
//	POST   /reports/upload         → multipart report upload      (auth)
//	GET    /reports                → own reports, filtered        (auth)
//	GET    /reports/shared         → reports shared with caller   (auth)
//	POST   /reports/share          → grant viewer access          (auth)
//	DELETE /reports/{id}           → delete own report + shares   (auth)
//	DELETE /reports/shared/{id}    → revoke own viewer access     (auth)
//	POST   /vitals                 → append vitals sample         (auth)
//	GET    /vitals                 → vitals series, oldest first  (auth)
//	GET    /uploads/*              → stored report files (static)
//	GET    /healthz                → liveness probe
//	GET    /metrics                → Prometheus exposition
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.BcryptCost)

	files, err := storage.New(afero.NewOsFs(), s.config.UploadDir)
	if err != nil {
		return fmt.Errorf("creating upload store: %w", err)
	}

	domainMetrics := metrics.New(prometheus.DefaultRegisterer)
	requestMetrics := middleware.NewRequestMetrics(prometheus.DefaultRegisterer)

	authService := service.NewAuthService(s.db.Users(), tokens, passwords, s.logger)
	reportService := service.NewReportService(
		s.db.Reports(), s.db.Shares(), s.db.Users(), files, domainMetrics, s.logger)
	vitalsService := service.NewVitalsService(s.db.Vitals(), s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	reportHandler := handler.NewReportHandler(reportService, s.config.MaxUploadBytes(), s.logger)
	vitalsHandler := handler.NewVitalsHandler(vitalsService, s.logger)

	// Global middleware, in order: request ID, real client IP, panic
	// recovery, request logging, request metrics.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(requestMetrics.Handler)

	// Public routes.
	s.router.Post("/auth/register", authHandler.HandleRegister)
	s.router.Post("/auth/login", authHandler.HandleLogin)
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	s.router.Handle("/metrics", promhttp.Handler())

	// Stored report files, served by opaque name. Names are unguessable
	// UUIDs; the report metadata behind them stays behind auth.
	fileServer := http.FileServer(files.HTTPFileSystem())
	s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	// Authenticated routes.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Post("/reports/upload", reportHandler.HandleUpload)
		r.Get("/reports", reportHandler.HandleList)
		r.Get("/reports/shared", reportHandler.HandleListShared)
		r.Post("/reports/share", reportHandler.HandleShare)
		r.Delete("/reports/{id}", reportHandler.HandleDelete)
		r.Delete("/reports/shared/{id}", reportHandler.HandleRemoveShared)

		r.Post("/vitals", vitalsHandler.HandleAdd)
		r.Get("/vitals", vitalsHandler.HandleList)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, close the database (flushes the WAL, releases the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("uploads", s.config.UploadDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
