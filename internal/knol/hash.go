package knol

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/conorfennell/revisa/internal/domain"
)

// Normalize concatenates the card's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	q := normalizePart(card.Question)
	a := normalizePart(card.Answer)
	c := normalizePart(card.Context)

	// Joined with a newline so "question" and "answer" never run together.
	return strings.Join([]string{q, a, c}, "\n")
}

// Hash takes a card, normalizes it, and returns its SHA-256 hash as a hex string.
func Hash(card domain.Card) string {
	return hexSum(Normalize(card))
}

// DeckID derives the identity under which a session's progress is saved.
// It depends on the name, the review flag and the set of card ids, never their order.
func DeckID(name string, isReview bool, deck []domain.Card) string {
	ids := lo.Map(deck, func(c domain.Card, _ int) string { return c.ID })
	slices.Sort(ids)

	// Length-prefix each part so no id can collide with a separator.
	var b strings.Builder
	for _, part := range append([]string{name, strconv.FormatBool(isReview)}, ids...) {
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return hexSum(b.String())
}

func hexSum(s string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))
}
