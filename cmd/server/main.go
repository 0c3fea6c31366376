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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"

	"github.com/loomcms/loom/pkg/loom"
	"github.com/loomcms/loom/pkg/loom/api"
	"github.com/loomcms/loom/pkg/loom/config"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	serverConfig, err := config.Load()
	if err != nil {
		slog.Error("failed to load server configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	svc, cleanup, err := serverConfig.BuildService(ctx)
	if err != nil {
		slog.Error("failed to build service", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: routes(svc, serverConfig),
	}

	go func() {
		slog.Info("loom server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"content_approval", serverConfig.ContentApproval)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server exiting")
}

// routes assembles the HTTP surface: schema registry under
// /api/v1/content-types, the CRUD engine under /api/v1/content.
func routes(svc loom.Service, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if cfg.AuthSecret != "" {
		tokenAuth := jwtauth.New("HS256", []byte(cfg.AuthSecret), nil)
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(api.ActorFromJWT)
	} else {
		slog.Warn("AUTH_SECRET not set; accepting X-Actor-* headers (development only)")
		r.Use(api.ActorFromHeaders)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/content-types", api.NewTypeHandler(svc).Routes())
		r.Mount("/content", api.NewEntryHandler(svc).Routes())
	})

	return r
}
