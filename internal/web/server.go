// Package web serves knoldeck's JSON HTTP API.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/knoldeck/internal/session"
	"github.com/conorfennell/knoldeck/internal/sm2"
	"github.com/conorfennell/knoldeck/internal/storage"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	db       *storage.DB
	sessions *session.Service
	params   *sm2.Params
	reposDir string
	router   chi.Router
	validate *validator.Validate
	now      func() time.Time
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, sessions *session.Service, params *sm2.Params, reposDir string) *Server {
	s := &Server{
		db:       db,
		sessions: sessions,
		params:   params,
		reposDir: reposDir,
		router:   chi.NewRouter(),
		validate: validator.New(),
		now:      time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/decks", func(r chi.Router) {
		r.Get("/", s.handleListDecks())
		r.Post("/", s.handleCreateDeck())
		r.Route("/{deckID}", func(r chi.Router) {
			r.Get("/", s.handleGetDeck())
			r.Put("/", s.handleUpdateDeck())
			r.Delete("/", s.handleDeleteDeck())
			r.Post("/cards", s.handleCreateCard())
			r.Get("/due", s.handleDueCards())
			r.Get("/share", s.handleShareDeck())
			r.Post("/sessions", s.handleStartSession())
		})
	})

	s.router.Route("/cards/{cardID}", func(r chi.Router) {
		r.Get("/", s.handleGetCard())
		r.Put("/", s.handleUpdateCard())
		r.Delete("/", s.handleDeleteCard())
		r.Post("/review", s.handleReviewCard())
		r.Get("/preview", s.handlePreviewCard())
		r.Get("/history", s.handleCardHistory())
	})

	s.router.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions())
		r.Get("/{sessionID}", s.handleGetSession())
		r.Post("/{sessionID}/answers", s.handleAnswer())
		r.Post("/{sessionID}/finish", s.handleFinishSession())
	})

	s.router.Get("/stats", s.handleStats())

	s.router.Post("/import/share", s.handleImportShare())
	s.router.Get("/export", s.handleExport())
	s.router.Post("/import", s.handleImport())

	// Source management routes
	s.router.Get("/sources", s.handleListSources())
	s.router.Post("/sources", s.handleAddSource())
	s.router.Delete("/sources/{sourceID}", s.handleDeleteSource())
	s.router.Post("/sync", s.handlePostSync())
}
