// Package undo keeps a short history of card edits so the latest one can be reverted.
package undo

import (
	"slices"
	"sync"

	"github.com/conorfennell/revisa/internal/domain"
)

// MaxEntries is how many edits are remembered. Older ones are dropped.
const MaxEntries = 10

// Entry holds what a card looked like before one edit, limited to the edited fields.
type Entry struct {
	CardID   string
	Previous domain.CardPatch
}

// Stack is a bounded LIFO of entries.
type Stack struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
}

// NewStack returns a stack keeping at most limit entries (MaxEntries if limit <= 0).
func NewStack(limit int) *Stack {
	if limit <= 0 {
		limit = MaxEntries
	}
	return &Stack{limit: limit}
}

// Push appends e, dropping the oldest entry on overflow.
func (s *Stack) Push(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if over := len(s.entries) - s.limit; over > 0 {
		s.entries = slices.Delete(s.entries, 0, over)
	}
}

// Peek returns the newest entry.
func (s *Stack) Peek() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of the stack, oldest first.
func (s *Stack) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// reset replaces the stack contents.
func (s *Stack) reset(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = slices.Clone(entries)
}
