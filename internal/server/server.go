// Package server exposes the HTTP surface: the search trigger, the
// authenticated enrichment trigger, the public webhook receiver, and a
// health check.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sells-group/prospector/internal/enrich"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/search"
	"github.com/sells-group/prospector/internal/store"
)

// SearchRunner runs one prospecting search.
type SearchRunner interface {
	Run(ctx context.Context, req model.SearchRequest) (*search.Result, error)
}

// Dispatcher submits one enrichment request.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *enrich.Request) (*enrich.Result, error)
}

// Reconciler applies one webhook callback.
type Reconciler interface {
	HandleCallback(ctx context.Context, params enrich.CallbackParams, payload json.RawMessage) *enrich.CallbackResult
}

// Server holds the HTTP handlers' collaborators.
type Server struct {
	searcher   SearchRunner
	dispatcher Dispatcher
	reconciler Reconciler
	store      store.Store
	secret     string
}

// New creates a Server. searcher may be nil when the provider credential is
// missing; the search trigger then returns a configuration error.
func New(searcher SearchRunner, dispatcher Dispatcher, reconciler Reconciler, st store.Store, secret string) *Server {
	return &Server{
		searcher:   searcher,
		dispatcher: dispatcher,
		reconciler: reconciler,
		store:      st,
		secret:     secret,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Enrich-Secret"},
	}))
	r.Use(s.recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/api/lead-search", s.handleLeadSearch)
	r.Post("/api/enrich", s.handleEnrich)
	r.Post("/webhook/apollo", s.handleWebhook)

	return r
}
