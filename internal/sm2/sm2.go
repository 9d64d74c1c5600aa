// Package sm2 computes review schedules with a variant of the SuperMemo-2 algorithm.
package sm2

import (
	"math"
	"time"

	"github.com/conorfennell/revisa/internal/domain"
)

const (
	// MinEaseFactor is the floor every computed ease factor is clamped to.
	MinEaseFactor = 1.3
	// DefaultEaseFactor is given to newly authored cards.
	DefaultEaseFactor = 2.5

	// PassingQuality is the lowest quality counted as a successful recall.
	PassingQuality = 3
	// MaxQuality is the top of the 0-5 quality scale.
	MaxQuality = 5

	lapsePenalty = 0.2
)

// Update holds the scheduling fields produced by a review. Interval
// is in days.
type Update struct {
	Interval   int
	EaseFactor float64
	DueDate    time.Time
}

// Patch converts the update into a card patch touching only the scheduling fields.
func (u Update) Patch() domain.CardPatch {
	interval, ease, due := u.Interval, u.EaseFactor, u.DueDate
	return domain.CardPatch{Interval: &interval, EaseFactor: &ease, DueDate: &due}
}

// Next calculates the schedule of card after a review of the given quality (0-5) at now.
// Failed recalls (quality < 3) reset the interval to one day and lower the ease factor.
// Successful recalls take a new card to 1 day, anything shorter than 6 days to 6, then grow by the ease factor the card had
// before this review.
func Next(card domain.Card, quality int, now time.Time) Update {
	today := StartOfDay(now)

	var interval int
	var ease float64
	if quality < PassingQuality {
		interval = 1
		ease = math.Max(MinEaseFactor, card.EaseFactor-lapsePenalty)
	} else {
		q := float64(MaxQuality - quality)
		ease = math.Max(MinEaseFactor, card.EaseFactor+(0.1-q*(0.08+q*0.02)))
		switch {
		case card.Interval < 1:
			interval = 1
		case card.Interval < 6:
			interval = 6
		default:
			interval = int(math.Ceil(float64(card.Interval) * card.EaseFactor))
		}
	}

	return Update{
		Interval:   interval,
		EaseFactor: ease,
		DueDate:    today.AddDate(0, 0, interval),
	}
}

// Preview returns the update each rating would produce, for labelling answer buttons.
func Preview(card domain.Card, now time.Time) map[domain.Rating]Update {
	out := make(map[domain.Rating]Update, len(domain.Ratings))
	for _, r := range domain.Ratings {
		out[r] = Next(card, r.Quality(), now)
	}
	return out
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
