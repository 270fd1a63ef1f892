package web

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/knoldeck/internal/share"
	"github.com/conorfennell/knoldeck/internal/storage"
)

type shareRequest struct {
	Code string `json:"code" validate:"required"`
}

type shareResponse struct {
	Code string `json:"code"`
}

func (s *Server) handleShareDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID := chi.URLParam(r, "deckID")
		deck, err := s.db.GetDeck(r.Context(), deckID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		cards, err := s.db.ListCardsByDeck(r.Context(), deckID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		code, err := share.EncodeDeck(deck, cards)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, shareResponse{Code: code})
	}
}

// handleImportShare creates a new deck from a share code.
func (s *Server) handleImportShare() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req shareRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		shared, err := share.DecodeDeck(req.Code)
		if err != nil {
			writeError(w, r, err)
			return
		}
		deck, cards := shared.NewDeck(s.now())
		if err := s.check(deck); err != nil {
			writeError(w, r, err)
			return
		}
		err = s.db.InTx(r.Context(), func(tx *storage.Tx) error {
			if err := tx.InsertDeck(r.Context(), deck); err != nil {
				return err
			}
			for _, c := range cards {
				if err := tx.InsertCard(r.Context(), c); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, deckDetail{Deck: deck, Cards: cards})
	}
}

// handleExport streams a full backup of the library.
func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.db.Snapshot(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		now := s.now()
		var buf bytes.Buffer
		if err := share.Export(&buf, snap, now); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="knoldeck-%s.json"`, now.Format("2006-01-02")))
		w.Write(buf.Bytes())
	}
}

// handleImport replaces the whole library with the uploaded backup.
func (s *Server) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := share.Import(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.db.Restore(r.Context(), snap); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{
			"decks":    len(snap.Decks),
			"cards":    len(snap.Cards),
			"sessions": len(snap.Sessions),
		})
	}
}
