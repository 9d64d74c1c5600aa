package domain

import (
	"fmt"
	"strings"
)

// Rating is the qualitative recall label a user picks after seeing the answer.
type Rating int

const (
	Again Rating = iota + 1 // Forgot the card.
	Hard                    // Recalled with serious effort.
	Good                    // Recalled after some hesitation.
	Easy                    // Recalled instantly.
)

// Ratings lists every rating in button order.
var Ratings = []Rating{Again, Hard, Good, Easy}

// qualityByRating is the single mapping from labels to the 0-5 quality scale.
// Qualities 0 and 2 are valid for the scheduler but no label produces them.
var qualityByRating = [...]int{Again: 1, Hard: 3, Good: 4, Easy: 5}

var (
	ratingNames  = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}
	ratingByName = map[string]Rating{
		"again": Again,
		"hard":  Hard,
		"good":  Good,
		"easy":  Easy,
		// labels used by earlier clients
		"errei":   Again,
		"dificil": Hard,
		"bom":     Good,
		"facil":   Easy,
	}
)

// IsValid reports whether r is one of the four labels.
func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

// Quality returns the 0-5 recall quality for the rating, or 0 for invalid ratings.
func (r Rating) Quality() int {
	if !r.IsValid() {
		return 0
	}
	return qualityByRating[r]
}

func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// ParseRating accepts a rating label, case-insensitively.
func ParseRating(s string) (Rating, error) {
	r, ok := ratingByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	parsed, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
