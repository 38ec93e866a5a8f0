// Package server exposes extract, import and the shelf over HTTP, so a
// remote caller can drive the builder tab attached to this machine.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/routinecopy/internal/importer"
	"github.com/claude/routinecopy/internal/models"
	"github.com/claude/routinecopy/internal/shelf"
)

// Engine runs operations against the routine builder.
type Engine interface {
	Extract(ctx context.Context) (string, error)
	Import(ctx context.Context, text string) (*importer.Report, error)
	ImportRoutine(ctx context.Context, r *models.Routine) (*importer.Report, error)
	Library(ctx context.Context) ([]models.LibraryEntry, error)
}

// Store holds saved routines and import runs.
type Store interface {
	Save(ctx context.Context, name string, r *models.Routine) (shelf.Entry, error)
	List(ctx context.Context) ([]shelf.Entry, error)
	Get(ctx context.Context, name string) (*models.Routine, shelf.Entry, error)
	Delete(ctx context.Context, name string) error
	Runs(ctx context.Context, limit int) ([]shelf.Run, error)
	Report(ctx context.Context, runID uuid.UUID) (*importer.Report, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	eng    Engine
	store  Store
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(eng Engine, store Store, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		eng:    eng,
		store:  store,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))

		r.Post("/extract", s.handleExtract)
		r.Post("/import", s.handleImport)
		r.Get("/library", s.handleLibrary)

		r.Get("/shelf", s.handleListShelf)
		r.Get("/shelf/{name}", s.handleGetShelf)
		r.Put("/shelf/{name}", s.handlePutShelf)
		r.Delete("/shelf/{name}", s.handleDeleteShelf)
		r.Post("/shelf/{name}/import", s.handleImportShelf)

		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
}
