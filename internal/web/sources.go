package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/sync"
)

type sourceRequest struct {
	Path string `json:"path" validate:"required"`
}

func (s *Server) handleListSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.db.GetAllSources(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sources)
	}
}

// handleAddSource registers a directory or git URL. Its decks appear after the next sync.
func (s *Server) handleAddSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sourceRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		source, err := sync.AddSource(r.Context(), s.db, req.Path)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, source)
	}
}

// handleDeleteSource deletes a source together with the decks imported from it.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "sourceID"), 10, 64)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid source ID", domain.ErrValidation))
			return
		}
		if err := s.db.DeleteSource(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type syncResponse struct {
	Sources      int      `json:"sources"`
	DecksCreated int      `json:"decks_created"`
	DecksUpdated int      `json:"decks_updated"`
	DecksDeleted int      `json:"decks_deleted"`
	CardsAdded   int      `json:"cards_added"`
	CardsDeleted int      `json:"cards_deleted"`
	Errors       []string `json:"errors"`
}

// handlePostSync triggers a sync and waits for it to finish.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := sync.Run(r.Context(), s.db, s.reposDir)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp := syncResponse{
			Sources:      report.Sources,
			DecksCreated: report.DecksCreated,
			DecksUpdated: report.DecksUpdated,
			DecksDeleted: report.DecksDeleted,
			CardsAdded:   report.CardsAdded,
			CardsDeleted: report.CardsDeleted,
			Errors:       make([]string, 0, len(report.Errors)),
		}
		for _, e := range report.Errors {
			resp.Errors = append(resp.Errors, e.Error())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
