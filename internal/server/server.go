// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every concrete type is chosen here (or
// in cmd/server) and handed down as an interface.
//
//	sqlite.DB stores → services → handlers → chi routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/game-library/internal/auth"
	"github.com/sakif/game-library/internal/config"
	"github.com/sakif/game-library/internal/handler"
	"github.com/sakif/game-library/internal/middleware"
	sqliteRepo "github.com/sakif/game-library/internal/repository/sqlite"
	"github.com/sakif/game-library/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it when Start
// returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens and migrates the database, builds every layer on top of it
// and registers the routes. host is the media host the services use;
// cmd/server passes media.Unavailable when no bucket is configured.
func New(cfg *config.Config, host service.MediaHost, logger *slog.Logger) (*Server, error) {
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

	if err := s.setupRoutes(host); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER:
//  1. RequestID: unique id per request, picked up by the access log
//  2. RealIP: client IP from proxy headers
//  3. Logger: access log
//  4. Metrics: request counters by route pattern
//  5. Recoverer: a panic becomes a 500 instead of a crash
func (s *Server) setupRoutes(host service.MediaHost) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.JWTSecret, auth.DefaultTokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// === SERVICES ===
	items := s.db.Items()
	catalog := service.NewCatalogService(items, host, s.logger)
	collections := service.NewCollectionService(s.db.Collections(), items, host, s.logger)
	platforms := service.NewPlatformService(s.db.Platforms(), s.logger)
	authService := service.NewAuthService(s.db.Users(), tokens, s.logger)

	// === HANDLERS ===
	github := auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	authHandler := handler.NewAuthHandler(github, authService, auth.DefaultTokenTTL, s.logger)
	itemHandler := handler.NewItemHandler(catalog, s.logger, s.config.MediaMaxBytes)
	collectionHandler := handler.NewCollectionHandler(collections, s.logger, s.config.MediaMaxBytes)
	platformHandler := handler.NewPlatformHandler(platforms, s.logger)

	// === OPS ===
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// === AUTH ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		// Public reads.
		r.Get("/collections/public", collectionHandler.HandleListPublic)
		r.Get("/collections/search", collectionHandler.HandleSearch)
		r.With(auth.OptionalAuth(tokens)).Get("/collections/{id}", collectionHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Route("/items", func(r chi.Router) {
				r.Get("/", itemHandler.HandleList)
				r.Post("/", itemHandler.HandleCreate)
				r.Patch("/by-title/{title}", itemHandler.HandleUpdate)
				r.Get("/{id}", itemHandler.HandleGet)
				r.Delete("/{id}", itemHandler.HandleDelete)
				r.Post("/{id}/media", itemHandler.HandleAddMedia)
				r.Delete("/{id}/media/{assetID}", itemHandler.HandleRemoveMedia)
				r.Post("/{id}/uploads", itemHandler.HandleUpload)
			})

			r.Get("/collections", collectionHandler.HandleListMine)
			r.Post("/collections", collectionHandler.HandleCreate)
			r.Get("/collections/available", collectionHandler.HandleAvailableItems)
			r.Patch("/collections/{id}", collectionHandler.HandleUpdate)
			r.Delete("/collections/{id}", collectionHandler.HandleDelete)
			r.Post("/collections/{id}/items", collectionHandler.HandleAddMember)
			r.Delete("/collections/{id}/items/{itemID}", collectionHandler.HandleRemoveMember)
			r.Post("/collections/{id}/media", collectionHandler.HandleAddMedia)
			r.Delete("/collections/{id}/media/{assetID}", collectionHandler.HandleRemoveMedia)
			r.Post("/collections/{id}/like", collectionHandler.HandleToggleLike)

			r.Route("/platforms", func(r chi.Router) {
				r.Get("/", platformHandler.HandleList)
				r.Post("/{name}/increment", platformHandler.HandleIncrement)
				r.Get("/{id}", platformHandler.HandleGet)
				r.Put("/{id}", platformHandler.HandleUpdate)
				r.Delete("/{id}", platformHandler.HandleDelete)
			})
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Start serves until ctx is cancelled, then shuts down gracefully:
//  1. stop accepting new connections
//  2. wait up to 30s for in-flight requests
//  3. close the database
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // uploads
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
