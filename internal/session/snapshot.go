package session

import (
	"time"

	"github.com/conorfennell/revisa/internal/domain"
)

// Snapshot is a read-only view of the manager, for rendering.
type Snapshot struct {
	Active          bool                  `json:"active"`
	Name            string                `json:"name,omitempty"`
	IsReviewSession bool                  `json:"isReviewSession"`
	DeckID          string                `json:"deckId,omitempty"`
	CurrentIndex    int                   `json:"currentIndex"`
	DeckSize        int                   `json:"deckSize"`
	IsFlipped       bool                  `json:"isFlipped"`
	Current         *domain.Card          `json:"current,omitempty"`
	Answered        map[domain.Rating]int `json:"answered"`
	Elapsed         time.Duration         `json:"elapsed"`
	Completed       bool                  `json:"completed"`
}

// Snapshot returns the current state of the manager.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{Answered: make(map[domain.Rating]int)}
	if m.session == nil {
		return snap
	}

	snap.Active = true
	snap.Name = m.session.Name
	snap.IsReviewSession = m.session.IsReviewSession
	snap.DeckID = m.deckID
	snap.CurrentIndex = m.currentIndex
	snap.DeckSize = len(m.deck)
	snap.IsFlipped = m.isFlipped
	snap.Elapsed = m.now().Sub(m.startTime)
	snap.Completed = m.currentIndex >= len(m.deck)
	if !snap.Completed {
		card := m.deck[m.currentIndex]
		snap.Current = &card
	}
	for _, r := range m.answers {
		snap.Answered[r]++
	}
	return snap
}
