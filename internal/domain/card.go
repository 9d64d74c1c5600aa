package domain

import "time"

// Card represents a single question-answer-context entry and its review schedule.
// Interval counts days; EaseFactor never drops below 1.3 once scheduled.
type Card struct {
	ID       string `json:"id"`
	TopicID  string `json:"topicId"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Context  string `json:"context,omitempty"`
	Hash     string `json:"hash,omitempty"`
	SourceID int64  `json:"sourceId,omitempty"`

	Interval   int       `json:"interval"`
	EaseFactor float64   `json:"easeFactor"`
	DueDate    time.Time `json:"dueDate"`
}

// CardPatch is a partial update of a card. Nil fields are left untouched.
type CardPatch struct {
	TopicID    *string    `json:"topicId,omitempty"`
	Question   *string    `json:"question,omitempty"`
	Answer     *string    `json:"answer,omitempty"`
	Context    *string    `json:"context,omitempty"`
	Interval   *int       `json:"interval,omitempty"`
	EaseFactor *float64   `json:"easeFactor,omitempty"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p CardPatch) IsEmpty() bool {
	return p.TopicID == nil && p.Question == nil && p.Answer == nil && p.Context == nil &&
		p.Interval == nil && p.EaseFactor == nil && p.DueDate == nil
}

// Apply returns a copy of card with the patch fields written over it.
func (p CardPatch) Apply(card Card) Card {
	if p.TopicID != nil {
		card.TopicID = *p.TopicID
	}
	if p.Question != nil {
		card.Question = *p.Question
	}
	if p.Answer != nil {
		card.Answer = *p.Answer
	}
	if p.Context != nil {
		card.Context = *p.Context
	}
	if p.Interval != nil {
		card.Interval = *p.Interval
	}
	if p.EaseFactor != nil {
		card.EaseFactor = *p.EaseFactor
	}
	if p.DueDate != nil {
		card.DueDate = *p.DueDate
	}
	return card
}

// Snapshot captures the current values in card of exactly the fields p touches.
// Applying the snapshot after p restores the card.
func (p CardPatch) Snapshot(card Card) CardPatch {
	var prev CardPatch
	if p.TopicID != nil {
		prev.TopicID = ptr(card.TopicID)
	}
	if p.Question != nil {
		prev.Question = ptr(card.Question)
	}
	if p.Answer != nil {
		prev.Answer = ptr(card.Answer)
	}
	if p.Context != nil {
		prev.Context = ptr(card.Context)
	}
	if p.Interval != nil {
		prev.Interval = ptr(card.Interval)
	}
	if p.EaseFactor != nil {
		prev.EaseFactor = ptr(card.EaseFactor)
	}
	if p.DueDate != nil {
		prev.DueDate = ptr(card.DueDate)
	}
	return prev
}

func ptr[T any](v T) *T { return &v }

// ReviewLog records a single review event for a card.
type ReviewLog struct {
	CardID    string
	Rating    Rating
	Quality   int
	Timestamp time.Time
}
