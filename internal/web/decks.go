package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/knol"
	"github.com/conorfennell/knoldeck/internal/sm2"
)

type deckRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Tags        []string `json:"tags" validate:"dive,required,max=50"`
}

type cardRequest struct {
	Front string `json:"front" validate:"required,max=4000"`
	Back  string `json:"back" validate:"max=4000"`
}

type deckSummary struct {
	domain.Deck
	CardCount int `json:"card_count"`
	DueCount  int `json:"due_count"`
}

type deckDetail struct {
	domain.Deck
	Cards []domain.Card `json:"cards"`
}

// handleListDecks lists every deck with its card and due counts.
func (s *Server) handleListDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decks, err := s.db.ListDecks(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		now := s.now()
		out := make([]deckSummary, 0, len(decks))
		for _, d := range decks {
			cards, err := s.db.ListCardsByDeck(r.Context(), d.ID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			out = append(out, deckSummary{Deck: d, CardCount: len(cards), DueCount: sm2.CountDue(cards, now)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleCreateDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deckRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		deck := domain.NewDeck(req.Name, req.Description, req.Tags, s.now())
		if err := s.db.InsertDeck(r.Context(), deck); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, deck)
	}
}

// handleGetDeck returns the deck together with all of its cards.
func (s *Server) handleGetDeck() http.HandlerFunc {
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
		if cards == nil {
			cards = []domain.Card{}
		}
		writeJSON(w, http.StatusOK, deckDetail{Deck: deck, Cards: cards})
	}
}

func (s *Server) handleUpdateDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deckRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		deck, err := s.db.GetDeck(r.Context(), chi.URLParam(r, "deckID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		deck.Name, deck.Description, deck.UpdatedAt = req.Name, req.Description, s.now()
		deck.Tags = req.Tags
		if deck.Tags == nil {
			deck.Tags = []string{}
		}
		if err := s.db.UpdateDeck(r.Context(), deck); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, deck)
	}
}

func (s *Server) handleDeleteDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.DeleteDeck(r.Context(), chi.URLParam(r, "deckID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleCreateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cardRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		deckID := chi.URLParam(r, "deckID")
		if _, err := s.db.GetDeck(r.Context(), deckID); err != nil {
			writeError(w, r, err)
			return
		}
		card := domain.NewCard(deckID, req.Front, req.Back, s.now())
		card.Hash = knol.Hash(card.Front, card.Back)
		if err := s.check(card); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.db.InsertCard(r.Context(), card); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, card)
	}
}

// handleDueCards lists the deck's due cards in stored order.
func (s *Server) handleDueCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID := chi.URLParam(r, "deckID")
		if _, err := s.db.GetDeck(r.Context(), deckID); err != nil {
			writeError(w, r, err)
			return
		}
		cards, err := s.db.ListCardsByDeck(r.Context(), deckID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sm2.SelectDue(cards, s.now()))
	}
}

func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := s.db.GetCard(r.Context(), chi.URLParam(r, "cardID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, card)
	}
}

// handleUpdateCard edits a card's text. Its schedule is kept.
func (s *Server) handleUpdateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cardRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		card, err := s.db.GetCard(r.Context(), chi.URLParam(r, "cardID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		card.Front, card.Back = req.Front, req.Back
		card.Hash = knol.Hash(card.Front, card.Back)
		card.UpdatedAt = s.now()
		if err := s.db.UpdateCardContent(r.Context(), card); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, card)
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.DeleteCard(r.Context(), chi.URLParam(r, "cardID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
