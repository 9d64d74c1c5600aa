package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/conorfennell/revisa/internal/domain"
	"github.com/conorfennell/revisa/internal/metrics"
	"github.com/conorfennell/revisa/internal/session"
	"github.com/conorfennell/revisa/internal/sm2"
)

type deckView struct {
	DueCount    int
	HasDueCards bool
	PausedDecks int
	Topics      []string
	Message     string
}

type ratingButton struct {
	Rating   domain.Rating
	Interval int
}

type studyView struct {
	session.Snapshot
	Buttons []ratingButton
	CanUndo bool
	Message string
	Warning string
}

func (s *Server) deckView(r *http.Request, message string) (deckView, error) {
	due, err := s.db.GetDueCards(r.Context(), s.now())
	if err != nil {
		return deckView{}, err
	}
	metrics.DueCards.Set(float64(len(due)))
	topics, err := s.db.Topics(r.Context())
	if err != nil {
		return deckView{}, err
	}
	return deckView{
		DueCount:    len(due),
		HasDueCards: len(due) > 0,
		PausedDecks: len(s.reviewer.Sessions().SavedDeckIDs()),
		Topics:      topics,
		Message:     message,
	}, nil
}

func (s *Server) renderDeck(w http.ResponseWriter, r *http.Request, message string) {
	view, err := s.deckView(r, message)
	if err != nil {
		s.serverError(w, "Error building deck view", err)
		return
	}
	s.render(w, "deck", view)
}

func (s *Server) studyView() studyView {
	snap := s.reviewer.Sessions().Snapshot()
	view := studyView{Snapshot: snap, CanUndo: s.reviewer.CanUndo()}
	if snap.Current != nil && snap.IsFlipped {
		preview := sm2.Preview(*snap.Current, s.now())
		for _, rating := range domain.Ratings {
			view.Buttons = append(view.Buttons, ratingButton{Rating: rating, Interval: preview[rating].Interval})
		}
	}
	return view
}

func (s *Server) renderStudy(w http.ResponseWriter, view studyView) {
	if !view.Active {
		s.render(w, "no_session", view)
		return
	}
	s.render(w, "study", view)
}

// handleGetDeck renders the deck view, showing the number of due cards.
func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	s.renderDeck(w, r, "")
}

func (s *Server) handleGetStudy(w http.ResponseWriter, r *http.Request) {
	s.renderStudy(w, s.studyView())
}

// handleStartStudy builds a deck and starts (or resumes) a session on it.
// Review sessions use the due cards in due order; study sessions use every card
// of the chosen topic.
func (s *Server) handleStartStudy(w http.ResponseWriter, r *http.Request) {
	isReview, _ := strconv.ParseBool(r.PostFormValue("review"))
	topic := strings.TrimSpace(r.PostFormValue("topic"))
	name := strings.TrimSpace(r.PostFormValue("name"))

	var (
		deck []domain.Card
		err  error
	)
	if isReview {
		deck, err = s.db.GetDueCards(r.Context(), s.now())
		if name == "" {
			name = "Review"
		}
	} else {
		deck, err = s.db.ListCards(r.Context(), topic)
		if name == "" {
			name = topic
		}
		if name == "" {
			name = "All cards"
		}
	}
	if err != nil {
		s.serverError(w, "Error loading deck", err)
		return
	}
	if len(deck) == 0 {
		s.renderDeck(w, r, "There are no cards to study.")
		return
	}

	resumed := s.reviewer.Start(domain.StudySession{Deck: deck, Name: name, IsReviewSession: isReview})
	view := s.studyView()
	if resumed {
		view.Message = "Resumed where you left off."
	}
	s.renderStudy(w, view)
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	s.reviewer.Sessions().Flip()
	s.renderStudy(w, s.studyView())
}

// handleAnswer rates the displayed card. A failed save never blocks the session:
// the next card is shown along with a warning or an error message.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	rating, err := domain.ParseRating(r.PostFormValue("rating"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.reviewer.Rate(r.Context(), rating)
	if errors.Is(err, domain.ErrNoActiveSession) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.serverError(w, "Error rating card", err)
		return
	}

	view := s.studyView()
	switch {
	case out.Warning != nil:
		view.Warning = "You appear to be offline. Your answer was kept but the card schedule was not saved."
	case out.Err != nil:
		view.Warning = "The card schedule could not be saved."
	}
	s.renderStudy(w, view)
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	s.reviewer.Sessions().ExitSession()
	s.renderDeck(w, r, "")
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	ok, err := s.reviewer.Undo(r.Context())
	view := s.studyView()
	switch {
	case err != nil:
		view.Warning = "Undo failed: " + err.Error()
	case !ok:
		view.Message = "Nothing to undo."
	default:
		view.Message = "Last change undone."
	}
	s.renderStudy(w, view)
}

// handleDeleteCurrent deletes the displayed card and drops it from the session.
func (s *Server) handleDeleteCurrent(w http.ResponseWriter, r *http.Request) {
	err := s.reviewer.DeleteCurrent(r.Context())
	if errors.Is(err, domain.ErrNoActiveSession) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.serverError(w, "Error deleting card", err)
		return
	}
	view := s.studyView()
	view.Message = "Card deleted."
	s.renderStudy(w, view)
}

func (s *Server) handleAPISession(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.reviewer.Sessions().Snapshot())
}

func (s *Server) handleAPIDue(w http.ResponseWriter, r *http.Request) {
	due, err := s.db.GetDueCards(r.Context(), s.now())
	if err != nil {
		s.serverError(w, "Error getting due cards", err)
		return
	}
	metrics.DueCards.Set(float64(len(due)))
	if due == nil {
		due = []domain.Card{}
	}
	s.writeJSON(w, http.StatusOK, due)
}
