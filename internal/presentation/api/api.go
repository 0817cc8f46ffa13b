package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/nodeline/internal/infrastructure/configs"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/metrics"
	"github.com/hilthontt/nodeline/internal/infrastructure/ratelimiter"
	activityHandler "github.com/hilthontt/nodeline/internal/presentation/handler/activity"
	autoRepliesHandler "github.com/hilthontt/nodeline/internal/presentation/handler/autoreplies"
	healthHandler "github.com/hilthontt/nodeline/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/nodeline/internal/presentation/handler/messages"
	nodesHandler "github.com/hilthontt/nodeline/internal/presentation/handler/nodes"
	sessionsHandler "github.com/hilthontt/nodeline/internal/presentation/handler/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Sessions    *sessionsHandler.Handler
	Nodes       *nodesHandler.Handler
	Messages    *messagesHandler.Handler
	AutoReplies *autoRepliesHandler.Handler
	Activity    *activityHandler.Handler
	Health      *healthHandler.Handler
}

type Application struct {
	config      configs.Config
	handlers    Handlers
	logger      logging.Logger
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	ratelimiter ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	handlers Handlers,
	logger logging.Logger,
	metrics *metrics.Metrics,
	gatherer prometheus.Gatherer,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:      config,
		handlers:    handlers,
		logger:      logger,
		metrics:     metrics,
		gatherer:    gatherer,
		ratelimiter: ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(otelhttp.NewMiddleware("nodeline.http"))

	r.Use(app.enableCors)

	r.Get("/metrics", promhttp.HandlerFor(app.gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	r.Mount("/debug", middleware.Profiler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.handlers.Health.GetHealth)
		r.Get("/healthz", app.handlers.Health.GetHealth)
		r.Get("/live", app.handlers.Health.GetHealth)
		r.Get("/ready", app.handlers.Health.GetReady)

		// Websockets outlive the request timeout.
		r.With(app.rateLimiterMiddleware).Get("/nodes/{ordinal}/live", app.handlers.Messages.LiveHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.rateLimiterMiddleware)
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", app.handlers.Sessions.AcquireHandler)
				r.Delete("/{userId}", app.handlers.Sessions.ReleaseHandler)
				r.Post("/{userId}/activity", app.handlers.Sessions.TouchHandler)
			})

			r.Route("/nodes", func(r chi.Router) {
				r.Get("/", app.handlers.Nodes.ListNodesHandler)
				r.Get("/{ordinal}", app.handlers.Nodes.GetNodeHandler)
				r.Put("/{ordinal}/status", app.handlers.Nodes.SetStatusHandler)
				r.Get("/{ordinal}/messages/unread", app.handlers.Messages.UnreadHandler)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", app.handlers.Messages.SendMessageHandler)
				r.Post("/broadcast", app.handlers.Messages.BroadcastHandler)
				r.Post("/page", app.handlers.Messages.PageHandler)
			})

			r.Route("/auto-replies/{userId}", func(r chi.Router) {
				r.Get("/", app.handlers.AutoReplies.GetAutoReplyHandler)
				r.Put("/", app.handlers.AutoReplies.SetAutoReplyHandler)
				r.Delete("/", app.handlers.AutoReplies.DeleteAutoReplyHandler)
			})

			r.Route("/activity", func(r chi.Router) {
				r.Get("/", app.handlers.Activity.RecentHandler)
				r.Get("/users/{userId}", app.handlers.Activity.ByUserHandler)
				r.Get("/actions/{action}", app.handlers.Activity.ByActionHandler)
			})
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (app *Application) Run(ctx context.Context, mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error, 1)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "shutting down server", map[logging.ExtraKey]any{
			"Addr": srv.Addr,
		})

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"Addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"Addr": srv.Addr,
	})

	return nil
}
