package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/revisa/internal/domain"
)

// RecordReview appends a review to the history.
func (db *DB) RecordReview(ctx context.Context, log domain.ReviewLog) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO review_logs (card_id, rating, quality, reviewed_at)
		VALUES (?, ?, ?, ?)
	`, log.CardID, log.Rating.String(), log.Quality, log.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("failed to record review for card %s: %w", log.CardID, err)
	}
	return nil
}

// ReviewLogs returns the review history of a card, oldest first.
func (db *DB) ReviewLogs(ctx context.Context, cardID string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, rating, quality, reviewed_at
		FROM review_logs WHERE card_id = ?
		ORDER BY reviewed_at, id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for card %s: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var (
			l      domain.ReviewLog
			rating string
			at     int64
		)
		if err := rows.Scan(&l.CardID, &rating, &l.Quality, &at); err != nil {
			return nil, fmt.Errorf("failed to scan review log row: %w", err)
		}
		// Unknown labels are kept as the zero rating; quality still carries the score.
		l.Rating, _ = domain.ParseRating(rating)
		l.Timestamp = time.Unix(at, 0)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
