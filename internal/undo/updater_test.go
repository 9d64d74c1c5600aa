package undo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/revisa/internal/domain"
)

type fakeRepo struct {
	mu    sync.Mutex
	cards map[string]domain.Card
	fail  error
}

func newFakeRepo(cards ...domain.Card) *fakeRepo {
	r := &fakeRepo{cards: make(map[string]domain.Card)}
	for _, c := range cards {
		r.cards[c.ID] = c
	}
	return r
}

func (r *fakeRepo) GetCard(ctx context.Context, id string) (domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[id]
	if !ok {
		return domain.Card{}, domain.ErrCardNotFound
	}
	return c, nil
}

func (r *fakeRepo) UpdateCard(ctx context.Context, id string, patch domain.CardPatch) (domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return domain.Card{}, r.fail
	}
	c, ok := r.cards[id]
	if !ok {
		return domain.Card{}, domain.ErrCardNotFound
	}
	c = patch.Apply(c)
	r.cards[id] = c
	return c, nil
}

func intPatch(n int) domain.CardPatch {
	return domain.CardPatch{Interval: &n}
}

func TestUpdateRecordsPreviousFields(t *testing.T) {
	card := domain.Card{ID: "c1", Question: "old", Interval: 3, EaseFactor: 2.5}
	repo := newFakeRepo(card)
	u := NewUpdater(repo, nil)

	q := "new"
	updated, err := u.Update(context.Background(), card, domain.CardPatch{Question: &q})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Question)

	e, ok := u.Stack().Peek()
	require.True(t, ok)
	assert.Equal(t, "c1", e.CardID)
	require.NotNil(t, e.Previous.Question)
	assert.Equal(t, "old", *e.Previous.Question)
	assert.Nil(t, e.Previous.Interval, "untouched fields are not snapshotted")
}

func TestStackIsBounded(t *testing.T) {
	card := domain.Card{ID: "c1"}
	repo := newFakeRepo(card)
	u := NewUpdater(repo, nil)
	ctx := context.Background()

	for i := 1; i <= 15; i++ {
		current, err := repo.GetCard(ctx, "c1")
		require.NoError(t, err)
		_, err = u.Update(ctx, current, intPatch(i))
		require.NoError(t, err)
	}

	entries := u.Stack().Entries()
	require.Len(t, entries, MaxEntries)
	// The oldest kept entry is the one recorded before the 6th edit.
	assert.Equal(t, 5, *entries[0].Previous.Interval)
	assert.Equal(t, 14, *entries[len(entries)-1].Previous.Interval)
}

func TestUndoEmptyStack(t *testing.T) {
	u := NewUpdater(newFakeRepo(), nil)
	assert.False(t, u.CanUndo())

	ok, err := u.Undo(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestUndoRevertsLatestEdit(t *testing.T) {
	card := domain.Card{ID: "c1", Interval: 1}
	repo := newFakeRepo(card)
	u := NewUpdater(repo, nil)
	ctx := context.Background()

	_, err := u.Update(ctx, card, intPatch(6))
	require.NoError(t, err)
	current, _ := repo.GetCard(ctx, "c1")
	_, err = u.Update(ctx, current, intPatch(15))
	require.NoError(t, err)
	require.Equal(t, 2, u.Stack().Len())

	ok, err := u.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := repo.GetCard(ctx, "c1")
	assert.Equal(t, 6, got.Interval)
	assert.Equal(t, 1, u.Stack().Len(), "undo must not itself become undoable")

	ok, err = u.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ = repo.GetCard(ctx, "c1")
	assert.Equal(t, 1, got.Interval)
	assert.False(t, u.CanUndo())
}

func TestUndoOnFullStackDropsOnlyConsumedEntry(t *testing.T) {
	card := domain.Card{ID: "c1"}
	repo := newFakeRepo(card)
	u := NewUpdater(repo, nil)
	ctx := context.Background()

	for i := 1; i <= MaxEntries; i++ {
		current, _ := repo.GetCard(ctx, "c1")
		_, err := u.Update(ctx, current, intPatch(i))
		require.NoError(t, err)
	}
	before := u.Stack().Entries()

	ok, err := u.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, before[:MaxEntries-1], u.Stack().Entries())
}

func TestUndoFailureLeavesStackIntact(t *testing.T) {
	card := domain.Card{ID: "c1", Interval: 1}
	repo := newFakeRepo(card)
	u := NewUpdater(repo, nil)
	ctx := context.Background()

	_, err := u.Update(ctx, card, intPatch(6))
	require.NoError(t, err)
	before := u.Stack().Entries()

	repo.fail = errors.New("connection refused")
	ok, err := u.Undo(ctx)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, u.Stack().Entries())

	repo.fail = nil
	ok, err = u.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUndoMissingCard(t *testing.T) {
	card := domain.Card{ID: "c1"}
	repo := newFakeRepo(card)
	u := NewUpdater(repo, nil)
	ctx := context.Background()

	_, err := u.Update(ctx, card, intPatch(2))
	require.NoError(t, err)
	delete(repo.cards, "c1")

	ok, err := u.Undo(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
	assert.Equal(t, 1, u.Stack().Len())
}

func TestUpdateFailureKeepsOptimisticState(t *testing.T) {
	card := domain.Card{ID: "c1", Interval: 1}
	repo := newFakeRepo(card)
	repo.fail = fmt.Errorf("dial tcp: %w", errors.New("network is unreachable"))
	u := NewUpdater(repo, nil)

	got, err := u.Update(context.Background(), card, intPatch(6))
	assert.Error(t, err)
	assert.Equal(t, 6, got.Interval)
	assert.True(t, u.CanUndo())
}

func TestEmptyPatchIsNotRecorded(t *testing.T) {
	card := domain.Card{ID: "c1"}
	u := NewUpdater(newFakeRepo(card), nil)
	_, err := u.Update(context.Background(), card, domain.CardPatch{})
	require.NoError(t, err)
	assert.False(t, u.CanUndo())
}
