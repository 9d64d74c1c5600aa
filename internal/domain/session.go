package domain

// StudySession describes a deck a user chose to study.
// Review sessions keep the given order; study sessions are shuffled on start.
type StudySession struct {
	Deck            []Card
	Name            string
	IsReviewSession bool
}

// DeckProgress is the saved position of an interrupted session.
type DeckProgress struct {
	CurrentIndex int            `json:"currentIndex"`
	Deck         []Card         `json:"deck"`
	Answers      map[int]Rating `json:"answers"`
}

// Exhausted reports whether every card of the saved deck was already answered.
func (p DeckProgress) Exhausted() bool {
	return p.CurrentIndex >= len(p.Deck)
}

// Equal compares two snapshots field by field.
func (p DeckProgress) Equal(o DeckProgress) bool {
	if p.CurrentIndex != o.CurrentIndex || len(p.Deck) != len(o.Deck) || len(p.Answers) != len(o.Answers) {
		return false
	}
	for i := range p.Deck {
		if !p.Deck[i].equal(o.Deck[i]) {
			return false
		}
	}
	for k, v := range p.Answers {
		if ov, ok := o.Answers[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (c Card) equal(o Card) bool {
	return c.ID == o.ID && c.TopicID == o.TopicID && c.Question == o.Question &&
		c.Answer == o.Answer && c.Context == o.Context && c.Hash == o.Hash &&
		c.SourceID == o.SourceID && c.Interval == o.Interval &&
		c.EaseFactor == o.EaseFactor && c.DueDate.Equal(o.DueDate)
}
