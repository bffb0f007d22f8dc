package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"salahStreakAPI/handlers"
	"salahStreakAPI/internal/metrics"
	"salahStreakAPI/internal/workers"
	"salahStreakAPI/middleware"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			clerk.SetKey(cfg.ClerkSecretKey)
			log.Info().Msg("clerk initialized")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				log.Info().Msg("closing database connection pool")
				a.close()
			}()

			metrics.Register()
			middleware.InitPrometheus()

			a.dispatcher.Start(ctx)
			recomputeWorker := workers.StartRecomputeWorker(ctx, a.prayers, cfg.RecomputeInterval)

			limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
			go limiter.CleanupVisitors(ctx)

			server := http.Server{
				Addr:         cfg.Addr(),
				Handler:      newRouter(a, limiter),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				log.Info().Str("addr", server.Addr).Msg("starting server")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case err := <-serverErr:
				return err
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received")
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}
			a.dispatcher.Stop()
			recomputeWorker.Wait()

			log.Info().Msg("server shutdown complete")
			return nil
		},
	}
}

func newRouter(a *app, limiter *middleware.RateLimiter) http.Handler {
	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(limiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := a.store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "salahstreak-api"}`))
	}).Methods("GET")

	// Every API route belongs to the owner.
	protected := standardRouter.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware(cfg.OwnerClerkID))

	set := &handlers.Set{
		Prayer:       handlers.NewPrayerHandler(a.prayers),
		Stats:        handlers.NewStatsHandler(a.stats),
		Widget:       handlers.NewWidgetHandler(a.prayers, a.snapshots),
		Notification: handlers.NewNotificationHandler(a.dispatcher, a.prayers),
	}
	set.Register(protected)

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	return corsHandler(r)
}
