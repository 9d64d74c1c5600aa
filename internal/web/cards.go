package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/conorfennell/revisa/internal/domain"
	"github.com/conorfennell/revisa/internal/knol"
	"github.com/conorfennell/revisa/internal/sm2"
)

type cardForm struct {
	Question string `validate:"required,max=2000"`
	Answer   string `validate:"required,max=4000"`
	Context  string `validate:"max=4000"`
	Topic    string `validate:"required,max=200"`
}

func (s *Server) formErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fe.Field()+" must be at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return msgs
}

// handleCreateCard adds a manually written card. It is due today like an imported card.
func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	form := cardForm{
		Question: strings.TrimSpace(r.PostFormValue("question")),
		Answer:   strings.TrimSpace(r.PostFormValue("answer")),
		Context:  strings.TrimSpace(r.PostFormValue("context")),
		Topic:    strings.TrimSpace(r.PostFormValue("topic")),
	}
	if err := s.validate.Struct(form); err != nil {
		s.renderStatus(w, http.StatusUnprocessableEntity, "form_errors", s.formErrors(err))
		return
	}

	card := domain.Card{
		ID:         uuid.NewString(),
		TopicID:    form.Topic,
		Question:   form.Question,
		Answer:     form.Answer,
		Context:    form.Context,
		EaseFactor: s.newCardEase,
		DueDate:    sm2.StartOfDay(s.now()),
	}
	card.Hash = knol.Hash(card)
	if err := s.db.InsertCard(r.Context(), card); err != nil {
		s.serverError(w, "Error creating card", err)
		return
	}
	s.log.Info("Card created", "card_id", card.ID, "topic", card.TopicID)
	s.renderStatus(w, http.StatusCreated, "card_created", card)
}

// handleEditCard applies the submitted fields to a card through the undo-tracked path.
// Fields missing from the form are left unchanged.
func (s *Server) handleEditCard(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	current, err := s.db.GetCard(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrCardNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, "Error loading card", err)
		return
	}

	var patch domain.CardPatch
	field := func(name string) *string {
		if _, ok := r.PostForm[name]; !ok {
			return nil
		}
		v := strings.TrimSpace(r.PostForm.Get(name))
		return &v
	}
	patch.Question = field("question")
	patch.Answer = field("answer")
	patch.Context = field("context")
	patch.TopicID = field("topic")

	edited := patch.Apply(current)
	form := cardForm{Question: edited.Question, Answer: edited.Answer, Context: edited.Context, Topic: edited.TopicID}
	if err := s.validate.Struct(form); err != nil {
		s.renderStatus(w, http.StatusUnprocessableEntity, "form_errors", s.formErrors(err))
		return
	}

	card, err := s.reviewer.Edit(r.Context(), current, patch)
	if err != nil {
		s.serverError(w, "Error editing card", err)
		return
	}
	s.render(w, "card_created", card)
}
