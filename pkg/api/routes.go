package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Options configures NewRouter.
type Options struct {
	AllowedOrigins []string
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
}

// NewRouter wires the read-only routes, middleware and CORS handling.
func NewRouter(handlers *Handlers, opts Options, logger zerolog.Logger) http.Handler {
	router := mux.NewRouter()
	SetupRoutes(router, handlers)
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics).Methods("GET")
	}

	router.Use(loggingMiddleware(logger))
	router.Use(recoveryMiddleware(logger))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})
	return c.Handler(router)
}

// SetupRoutes registers the API routes on router.
func SetupRoutes(router *mux.Router, handlers *Handlers) {
	router.HandleFunc("/healthz", handlers.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/aliases", handlers.ListAliases).Methods("GET")
	api.HandleFunc("/nodes", handlers.ListNodes).Methods("GET")
	api.HandleFunc("/edges", handlers.ListEdges).Methods("GET")
	api.HandleFunc("/communities", handlers.ListCommunities).Methods("GET")
	api.HandleFunc("/communities/{communityId:[0-9]+}", handlers.GetCommunity).Methods("GET")
	api.HandleFunc("/similarity", handlers.ListSimilarity).Methods("GET")
	api.HandleFunc("/report", handlers.GetReport).Methods("GET")
}
