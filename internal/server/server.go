// Package server implements the kintree HTTP API.
//
// The API exposes person and relationship CRUD backed by a store, plus
// layout endpoints that run the shared pipeline:
//
//	GET    /healthz
//	GET    /api/persons
//	POST   /api/persons
//	GET    /api/persons/{id}
//	PUT    /api/persons/{id}
//	DELETE /api/persons/{id}
//	GET    /api/relationships
//	POST   /api/relationships
//	DELETE /api/relationships/{id}
//	GET    /api/layout
//	GET    /api/layout.svg
//	GET    /api/layout.dot
//
// Layout endpoints are read-only and cacheable: identical data and
// geometry produce identical responses.
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/kintree/pkg/pipeline"
	"github.com/matzehuels/kintree/pkg/store"
)

// Server wires the record store and layout pipeline into an HTTP handler.
type Server struct {
	store  store.Store
	runner *pipeline.Runner
	opts   pipeline.Options
	logger *log.Logger
}

// New creates a server. The runner owns the cache; opts carries the
// layout geometry applied to every layout request unless overridden by
// query parameters.
func New(st store.Store, runner *pipeline.Runner, opts pipeline.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{store: st, runner: runner, opts: opts, logger: logger}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/persons", func(r chi.Router) {
			r.Get("/", s.handleListPersons)
			r.Post("/", s.handleAddPerson)
			r.Get("/{id}", s.handleGetPerson)
			r.Put("/{id}", s.handleUpdatePerson)
			r.Delete("/{id}", s.handleDeletePerson)
		})
		r.Route("/relationships", func(r chi.Router) {
			r.Get("/", s.handleListRelationships)
			r.Post("/", s.handleAddRelationship)
			r.Delete("/{id}", s.handleDeleteRelationship)
		})
		r.Get("/layout", s.handleLayout)
		r.Get("/layout.svg", s.handleLayoutSVG)
		r.Get("/layout.dot", s.handleLayoutDOT)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
