package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/progress"
	"github.com/conorfennell/knoldeck/internal/session"
)

type reviewRequest struct {
	Outcome *domain.Outcome `json:"outcome" validate:"required"`
}

type answerRequest struct {
	CardID  string          `json:"card_id" validate:"required"`
	Outcome *domain.Outcome `json:"outcome" validate:"required"`
}

type startSessionRequest struct {
	Limit         int  `json:"limit"`
	IncludeNotDue bool `json:"include_not_due"`
}

type sessionResponse struct {
	ID        string        `json:"id"`
	DeckID    string        `json:"deck_id"`
	StartedAt time.Time     `json:"started_at"`
	Queue     []domain.Card `json:"queue"`
	Remaining int           `json:"remaining"`
}

type previewEntry struct {
	Outcome  domain.Outcome `json:"outcome"`
	Interval int            `json:"interval"`
	DueDate  *time.Time     `json:"due_date"`
}

type statsResponse struct {
	domain.Stats
	CurrentStreak int `json:"current_streak"`
	XPToNextLevel int `json:"xp_to_next_level"`
}

func newSessionResponse(sess *session.Session) sessionResponse {
	queue := sess.Queue
	if queue == nil {
		queue = []domain.Card{}
	}
	return sessionResponse{
		ID:        sess.ID,
		DeckID:    sess.DeckID,
		StartedAt: sess.StartedAt,
		Queue:     queue,
		Remaining: sess.Remaining(),
	}
}

// handleReviewCard grades a card outside of a session.
func (s *Server) handleReviewCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.sessions.Review(r.Context(), chi.URLParam(r, "cardID"), *req.Outcome)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// handlePreviewCard shows the interval each outcome would give the card.
func (s *Server) handlePreviewCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := s.db.GetCard(r.Context(), chi.URLParam(r, "cardID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		preview := s.params.Preview(card, s.now())
		out := make([]previewEntry, 0, len(domain.Outcomes))
		for _, o := range domain.Outcomes {
			next := preview[o]
			out = append(out, previewEntry{Outcome: o, Interval: next.Interval, DueDate: next.DueDate})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleCardHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cardID := chi.URLParam(r, "cardID")
		if _, err := s.db.GetCard(r.Context(), cardID); err != nil {
			writeError(w, r, err)
			return
		}
		logs, err := s.db.ListReviewLogs(r.Context(), cardID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

func (s *Server) handleStartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startSessionRequest
		if r.ContentLength != 0 {
			if err := s.decode(w, r, &req); err != nil {
				writeError(w, r, err)
				return
			}
		}
		sess, err := s.sessions.Start(r.Context(), chi.URLParam(r, "deckID"), session.Options{
			Limit:         req.Limit,
			IncludeNotDue: req.IncludeNotDue,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newSessionResponse(sess))
	}
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Lookup(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionResponse(sess))
	}
}

func (s *Server) handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		sess, err := s.sessions.Lookup(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.sessions.Answer(r.Context(), sess, req.CardID, *req.Outcome)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleFinishSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Lookup(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		rec, err := s.sessions.Finish(r.Context(), sess)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := s.db.ListSessions(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.db.GetStats(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, statsResponse{
			Stats:         stats,
			CurrentStreak: progress.CurrentStreak(stats, s.now()),
			XPToNextLevel: progress.XPToNextLevel(stats),
		})
	}
}
