// Package review runs a review: it schedules the rated card, advances the session and
// persists the result without ever blocking the study flow on a failed write.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/conorfennell/revisa/internal/domain"
	"github.com/conorfennell/revisa/internal/metrics"
	"github.com/conorfennell/revisa/internal/session"
	"github.com/conorfennell/revisa/internal/sm2"
	"github.com/conorfennell/revisa/internal/undo"
)

// CardReader loads the stored version of a card.
type CardReader interface {
	GetCard(ctx context.Context, id string) (domain.Card, error)
}

// HistoryRecorder stores review events for statistics. Failures are only logged.
type HistoryRecorder interface {
	RecordReview(ctx context.Context, log domain.ReviewLog) error
}

// CardDeleter removes cards from the repository.
type CardDeleter interface {
	DeleteCard(ctx context.Context, id string) error
}

// Outcome describes what happened to one rating.
// Warning is set for network failures the user may continue past; Err for anything
// else. The session has advanced in both cases.
type Outcome struct {
	Card    domain.Card
	Update  sm2.Update
	Warning error
	Err     error
}

// Reviewer connects the session manager, scheduler and card persistence.
type Reviewer struct {
	sessions *session.Manager
	updater  *undo.Updater
	cards    CardReader
	history  HistoryRecorder
	deleter  CardDeleter
	log      *slog.Logger
	now      func() time.Time
}

// Config holds the Reviewer's collaborators. Cards, History and Deleter may be nil;
// without Cards the session's copy of a card is scheduled as is.
type Config struct {
	Sessions *session.Manager
	Updater  *undo.Updater
	Cards    CardReader
	History  HistoryRecorder
	Deleter  CardDeleter
	Logger   *slog.Logger
	Now      func() time.Time
}

func NewReviewer(cfg Config) *Reviewer {
	r := &Reviewer{
		sessions: cfg.Sessions,
		updater:  cfg.Updater,
		cards:    cfg.Cards,
		history:  cfg.History,
		deleter:  cfg.Deleter,
		log:      cfg.Logger,
		now:      cfg.Now,
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Start begins a session and reports whether saved progress was resumed.
func (r *Reviewer) Start(s domain.StudySession) bool {
	resumed := r.sessions.Start(s)
	mode := "study"
	if s.IsReviewSession {
		mode = "review"
	}
	metrics.SessionsStarted.WithLabelValues(mode, strconv.FormatBool(resumed)).Inc()
	return resumed
}

// Rate answers the current card. The card is re-read first so a session resumed from
// saved progress schedules from the stored state, not its own older copy; the copy is
// used only when the repository is unreachable. The session advances first; the new
// schedule is then persisted through the undo-tracked updater and the review is recorded.
// It returns domain.ErrNoActiveSession when there is no card to rate.
func (r *Reviewer) Rate(ctx context.Context, rating domain.Rating) (Outcome, error) {
	if !rating.IsValid() {
		return Outcome{}, fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(rating))
	}
	card, ok := r.sessions.Current()
	if !ok {
		return Outcome{}, domain.ErrNoActiveSession
	}

	now := r.now()
	log := domain.ReviewLog{
		CardID:    card.ID,
		Rating:    rating,
		Quality:   rating.Quality(),
		Timestamp: now,
	}

	card, err := r.latest(ctx, card)
	if err != nil {
		// Scheduling from the session copy could overwrite a newer schedule.
		r.sessions.Answer(rating)
		metrics.ReviewsTotal.WithLabelValues(rating.String()).Inc()
		out := Outcome{Card: card}
		r.classify(&out, card.ID, err)
		r.recordHistory(ctx, log)
		return out, nil
	}

	upd := sm2.Next(card, rating.Quality(), now)
	r.sessions.Answer(rating)
	metrics.ReviewsTotal.WithLabelValues(rating.String()).Inc()

	out := Outcome{Card: upd.Patch().Apply(card), Update: upd}
	if _, err := r.updater.Update(ctx, card, upd.Patch()); err != nil {
		r.classify(&out, card.ID, err)
	}

	r.recordHistory(ctx, log)
	return out, nil
}

// latest returns the stored card, or the session copy when the read fails for network
// reasons. Any other read failure is returned with the session copy.
func (r *Reviewer) latest(ctx context.Context, sessionCard domain.Card) (domain.Card, error) {
	if r.cards == nil {
		return sessionCard, nil
	}
	stored, err := r.cards.GetCard(ctx, sessionCard.ID)
	switch {
	case err == nil:
		return stored, nil
	case IsNetworkError(err):
		r.log.Warn("Card unreachable, scheduling from session copy", "card_id", sessionCard.ID, "error", err)
		return sessionCard, nil
	default:
		return sessionCard, fmt.Errorf("load card %s: %w", sessionCard.ID, err)
	}
}

func (r *Reviewer) classify(out *Outcome, cardID string, err error) {
	if IsNetworkError(err) {
		metrics.PersistFailures.WithLabelValues("network").Inc()
		r.log.Warn("Saving review offline, card schedule not persisted", "card_id", cardID, "error", err)
		out.Warning = err
		return
	}
	metrics.PersistFailures.WithLabelValues("other").Inc()
	r.log.Error("Failed to persist card schedule", "card_id", cardID, "error", err)
	out.Err = err
}

func (r *Reviewer) recordHistory(ctx context.Context, log domain.ReviewLog) {
	if r.history == nil {
		return
	}
	if err := r.history.RecordReview(ctx, log); err != nil {
		r.log.Warn("Failed to record review history", "card_id", log.CardID, "error", err)
	}
}

// DeleteCurrent deletes the displayed card from the repository and drops it from the
// session. A card that is already gone is still dropped from the session.
func (r *Reviewer) DeleteCurrent(ctx context.Context) error {
	card, ok := r.sessions.Current()
	if !ok {
		return domain.ErrNoActiveSession
	}
	if r.deleter != nil {
		if err := r.deleter.DeleteCard(ctx, card.ID); err != nil && !errors.Is(err, domain.ErrCardNotFound) {
			return fmt.Errorf("delete card %s: %w", card.ID, err)
		}
	}
	r.sessions.RemoveCurrentCardFromSession()
	return nil
}

// Undo reverts the latest card edit. It returns false when there was nothing to undo.
func (r *Reviewer) Undo(ctx context.Context) (bool, error) {
	ok, err := r.updater.Undo(ctx)
	switch {
	case err != nil:
		metrics.UndoTotal.WithLabelValues("failed").Inc()
		r.log.Error("Undo failed", "error", err)
	case !ok:
		metrics.UndoTotal.WithLabelValues("empty").Inc()
	default:
		metrics.UndoTotal.WithLabelValues("ok").Inc()
	}
	return ok, err
}

// Edit applies a manual change to a card through the undo-tracked path.
func (r *Reviewer) Edit(ctx context.Context, current domain.Card, patch domain.CardPatch) (domain.Card, error) {
	return r.updater.Update(ctx, current, patch)
}

// Sessions returns the underlying session manager.
func (r *Reviewer) Sessions() *session.Manager {
	return r.sessions
}

// CanUndo reports whether an edit can be reverted.
func (r *Reviewer) CanUndo() bool {
	return r.updater.CanUndo()
}
