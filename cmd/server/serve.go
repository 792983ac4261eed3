package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/catalog-export/internal/auth"
	"github.com/rpattn/catalog-export/internal/config"
	"github.com/rpattn/catalog-export/internal/export"
	"github.com/rpattn/catalog-export/internal/middleware"
	"github.com/rpattn/catalog-export/internal/repository"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve export downloads and the admin preview API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, serveMigrate)
		if err != nil {
			return err
		}
		defer a.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		server := &http.Server{
			Addr:        fmt.Sprintf(":%d", port),
			Handler:     newRouter(cfg.Server, a.service, a.relations, a.gatherer),
			ReadTimeout: 15 * time.Second,
			// No WriteTimeout: large catalogs stream for longer than any fixed bound.
			IdleTimeout: 60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server forced to shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		zap.L().Info("server exited")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(
	server config.ServerConfig,
	service *export.Service,
	relations repository.RelationRepository,
	gatherer prometheus.Gatherer,
) http.Handler {
	handler := export.NewHTTPHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.LoggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/export", func(r chi.Router) {
		r.Use(middleware.RelationLoaderMiddleware(relations))
		r.Mount("/", handler.Routes())
	})

	if server.AdminToken == "" {
		zap.L().Warn("server.admin_token is empty, admin export routes are disabled")
		return r
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   server.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
	})
	r.Route("/admin/export", func(r chi.Router) {
		r.Use(corsHandler.Handler)
		r.Use(auth.RequireAdmin(server.AdminToken))
		r.Use(middleware.RelationLoaderMiddleware(relations))
		r.Mount("/", handler.AdminRoutes())
	})
	return r
}
