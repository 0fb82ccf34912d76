package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/projectshelf/backend/config"
	"github.com/rs/zerolog/log"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(deps Dependencies, settings config.Settings) Server {
	address := fmt.Sprintf("0.0.0.0:%s", settings.Port)
	startupTime := time.Now()

	router := newRouter(deps, withOrigins(settings.AcceptedOrigins), withStartupTime(startupTime))

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  settings.ReadTimeout,  // Timeout for reading the entire request
		WriteTimeout: settings.WriteTimeout, // Timeout for writing the response
		IdleTimeout:  settings.IdleTimeout,  // Timeout for idle connections
	}

	return Server{server, startupTime}
}

type router struct {
	acceptedOrigins []string
	startupTime     time.Time
	requestLogging  bool
}

func withOrigins(origins []string) func(*router) {
	return func(r *router) {
		r.acceptedOrigins = origins
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

// withoutRequestLogging silences the console access log, used by tests.
func withoutRequestLogging() func(*router) {
	return func(r *router) {
		r.requestLogging = false
	}
}

func newRouter(deps Dependencies, opts ...func(*router)) *chi.Mux {
	router := router{requestLogging: true, startupTime: time.Now()}
	for _, opt := range opts {
		opt(&router)
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.RealIP)
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(requestMetrics(deps.Metrics))
	if router.requestLogging {
		chiRouter.Use(ColoredHTTPLoggingMiddleware)
	}

	chiRouter.Use(CORSCheckMiddleware(router.acceptedOrigins))
	chiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.acceptedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handlers := initializeHandlers(deps)
	authMiddleware := newAuthMiddleware(deps.Tokens, deps.Resolver)

	chiRouter.Get("/healthz", healthHandler(NewResponder(log.Logger), deps.Ping, router.startupTime))
	chiRouter.Handle("/metrics", deps.Metrics.Handler())

	setupPublicRoutes(chiRouter, handlers, authMiddleware)
	setupAuthenticatedRoutes(chiRouter, handlers, authMiddleware)

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
