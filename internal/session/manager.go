// Package session tracks the study session in progress and the saved progress of
// sessions that were paused before every card was answered.
package session

import (
	"encoding/json"
	"log/slog"
	"maps"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/conorfennell/revisa/internal/domain"
	"github.com/conorfennell/revisa/internal/knol"
)

// ProgressKey is the store key holding the JSON map of deck id -> DeckProgress.
const ProgressKey = "deck_progress"

// Manager owns one active session plus the saved progress of paused ones.
// All methods are safe for concurrent use and never fail; store errors are logged.
type Manager struct {
	mu    sync.Mutex
	store ProgressStore
	log   *slog.Logger
	now   func() time.Time
	rng   *rand.Rand

	progress map[string]domain.DeckProgress

	session      *domain.StudySession
	deckID       string
	deck         []domain.Card
	currentIndex int
	isFlipped    bool
	answers      map[int]domain.Rating
	startTime    time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRand sets the source used to shuffle study decks.
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) { m.rng = rng }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a manager and loads any saved progress from store.
// Progress that cannot be decoded is discarded.
func NewManager(store ProgressStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		log:      slog.Default(),
		now:      time.Now,
		progress: make(map[string]domain.DeckProgress),
		answers:  make(map[int]domain.Rating),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(m.now().UnixNano()))
	}
	m.loadProgress()
	return m
}

func (m *Manager) loadProgress() {
	raw, ok, err := m.store.Get(ProgressKey)
	if err != nil {
		m.log.Warn("Failed to load deck progress", "error", err)
		return
	}
	if !ok {
		return
	}
	saved := make(map[string]domain.DeckProgress)
	if err := json.Unmarshal(raw, &saved); err != nil {
		m.log.Warn("Discarding unreadable deck progress", "error", err)
		return
	}
	m.progress = saved
}

// Start begins a session. When progress for the same deck identity exists and is not
// exhausted, the saved order, position and answers are restored. Otherwise review
// sessions keep the given order and study sessions are shuffled.
// It reports whether a saved session was resumed.
func (m *Manager) Start(s domain.StudySession) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := knol.DeckID(s.Name, s.IsReviewSession, s.Deck)
	resumed := false

	if saved, ok := m.progress[id]; ok && !saved.Exhausted() {
		m.deck = slices.Clone(saved.Deck)
		m.currentIndex = saved.CurrentIndex
		m.answers = cloneAnswers(saved.Answers)
		resumed = true
	} else {
		m.deck = slices.Clone(s.Deck)
		if !s.IsReviewSession {
			m.rng.Shuffle(len(m.deck), func(i, j int) {
				m.deck[i], m.deck[j] = m.deck[j], m.deck[i]
			})
		}
		m.currentIndex = 0
		m.answers = make(map[int]domain.Rating)
	}

	m.session = &domain.StudySession{Name: s.Name, IsReviewSession: s.IsReviewSession}
	m.deckID = id
	m.isFlipped = false
	m.startTime = m.now()

	m.log.Debug("Study session started",
		"deck_id", id,
		"name", s.Name,
		"review", s.IsReviewSession,
		"cards", len(m.deck),
		"resumed", resumed,
	)
	return resumed
}

// Flip toggles between the question and the answer side.
func (m *Manager) Flip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isFlipped = !m.isFlipped
}

// Answer records the rating for the current card and advances to the next one.
// It does not schedule the card. It returns false when there is nothing to answer.
func (m *Manager) Answer(r domain.Rating) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.currentIndex >= len(m.deck) || !r.IsValid() {
		return false
	}

	m.answers[m.currentIndex] = r
	m.currentIndex++
	m.isFlipped = false

	if m.currentIndex >= len(m.deck) {
		m.deleteProgress(m.deckID)
	} else {
		m.writeProgress(m.deckID)
	}
	return true
}

// ExitSession saves progress when cards remain and returns to idle.
func (m *Manager) ExitSession() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.currentIndex < len(m.deck) {
		m.writeProgress(m.deckID)
	}

	m.session = nil
	m.deckID = ""
	m.deck = nil
	m.currentIndex = 0
	m.isFlipped = false
	m.answers = make(map[int]domain.Rating)
	m.startTime = time.Time{}
}

// RemoveCurrentCardFromSession drops the displayed card from the deck, for example
// after it was deleted. Progress stays keyed by the deck id computed at Start.
func (m *Manager) RemoveCurrentCardFromSession() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.currentIndex >= len(m.deck) {
		return
	}

	m.deck = slices.Delete(m.deck, m.currentIndex, m.currentIndex+1)
	if m.currentIndex >= len(m.deck) {
		m.currentIndex = max(0, len(m.deck)-1)
	}
	m.isFlipped = false
	m.writeProgress(m.deckID)
}

// SaveProgress checkpoints the active session. It is a no-op without one and may be
// called as often as needed.
func (m *Manager) SaveProgress() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.currentIndex >= len(m.deck) {
		return
	}
	m.writeProgress(m.deckID)
}

// Current returns the card being displayed.
func (m *Manager) Current() (domain.Card, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.currentIndex >= len(m.deck) {
		return domain.Card{}, false
	}
	return m.deck[m.currentIndex], true
}

// Progress returns the saved progress for a deck id.
func (m *Manager) Progress(deckID string) (domain.DeckProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[deckID]
	if !ok {
		return domain.DeckProgress{}, false
	}
	return cloneProgress(p), true
}

// SavedDeckIDs lists the deck ids with saved progress.
func (m *Manager) SavedDeckIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.progress))
}

// writeProgress must be called with mu held.
func (m *Manager) writeProgress(id string) {
	next := domain.DeckProgress{
		CurrentIndex: m.currentIndex,
		Deck:         slices.Clone(m.deck),
		Answers:      cloneAnswers(m.answers),
	}
	if prev, ok := m.progress[id]; ok && prev.Equal(next) {
		return
	}
	m.progress[id] = next
	m.persist()
}

// deleteProgress must be called with mu held.
func (m *Manager) deleteProgress(id string) {
	if _, ok := m.progress[id]; !ok {
		return
	}
	delete(m.progress, id)
	m.persist()
}

func (m *Manager) persist() {
	raw, err := json.Marshal(m.progress)
	if err != nil {
		m.log.Warn("Failed to encode deck progress", "error", err)
		return
	}
	if err := m.store.Set(ProgressKey, raw); err != nil {
		m.log.Warn("Failed to save deck progress", "deck_id", m.deckID, "error", err)
	}
}

func cloneAnswers(in map[int]domain.Rating) map[int]domain.Rating {
	out := make(map[int]domain.Rating, len(in))
	maps.Copy(out, in)
	return out
}

func cloneProgress(p domain.DeckProgress) domain.DeckProgress {
	return domain.DeckProgress{
		CurrentIndex: p.CurrentIndex,
		Deck:         slices.Clone(p.Deck),
		Answers:      cloneAnswers(p.Answers),
	}
}
