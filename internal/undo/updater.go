package undo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conorfennell/revisa/internal/domain"
)

// Repository is the card persistence the updater writes through.
type Repository interface {
	GetCard(ctx context.Context, id string) (domain.Card, error)
	UpdateCard(ctx context.Context, id string, patch domain.CardPatch) (domain.Card, error)
}

// Updater is the single path card edits go through. Every edit is recorded on the
// stack before it is sent to the repository.
type Updater struct {
	repo  Repository
	stack *Stack
	log   *slog.Logger
}

// NewUpdater creates an updater with a MaxEntries stack.
func NewUpdater(repo Repository, log *slog.Logger) *Updater {
	if log == nil {
		log = slog.Default()
	}
	return &Updater{repo: repo, stack: NewStack(MaxEntries), log: log}
}

// Update records the fields patch is about to overwrite in current, then persists patch.
// current is the caller's view of the card; it need not be re-read from the repository.
// The undo entry is kept even when persisting fails, since the caller keeps its
// optimistic state.
func (u *Updater) Update(ctx context.Context, current domain.Card, patch domain.CardPatch) (domain.Card, error) {
	if patch.IsEmpty() {
		return current, nil
	}
	u.stack.Push(Entry{CardID: current.ID, Previous: patch.Snapshot(current)})

	updated, err := u.repo.UpdateCard(ctx, current.ID, patch)
	if err != nil {
		return patch.Apply(current), fmt.Errorf("update card %s: %w", current.ID, err)
	}
	return updated, nil
}

// Undo reverts the newest edit through Update. On success the reverted entry and the
// entry recorded by the revert itself are both gone; on failure the stack is unchanged.
// It returns false when there is nothing to undo.
func (u *Updater) Undo(ctx context.Context) (bool, error) {
	entry, ok := u.stack.Peek()
	if !ok {
		return false, nil
	}
	before := u.stack.Entries()

	current, err := u.repo.GetCard(ctx, entry.CardID)
	if err != nil {
		return false, fmt.Errorf("undo: load card %s: %w", entry.CardID, err)
	}
	if _, err := u.Update(ctx, current, entry.Previous); err != nil {
		u.stack.reset(before)
		return false, fmt.Errorf("undo: %w", err)
	}

	u.stack.reset(before[:len(before)-1])
	u.log.Debug("Card edit undone", "card_id", entry.CardID, "remaining", len(before)-1)
	return true, nil
}

// CanUndo reports whether there is an edit to revert.
func (u *Updater) CanUndo() bool {
	return u.stack.Len() > 0
}

// Stack exposes the history, mostly for inspection.
func (u *Updater) Stack() *Stack {
	return u.stack
}
