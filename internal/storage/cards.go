package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/revisa/internal/domain"
)

const cardColumns = `id, topic_id, question, answer, context, hash, interval_days, ease_factor, due_date, source_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(r rowScanner) (domain.Card, error) {
	var (
		c        domain.Card
		due      int64
		sourceID sql.NullInt64
	)
	if err := r.Scan(&c.ID, &c.TopicID, &c.Question, &c.Answer, &c.Context, &c.Hash,
		&c.Interval, &c.EaseFactor, &due, &sourceID); err != nil {
		return domain.Card{}, err
	}
	c.DueDate = time.Unix(due, 0)
	c.SourceID = sourceID.Int64
	return c, nil
}

func nullSource(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// InsertCard inserts a new card into the database.
func (db *DB) InsertCard(ctx context.Context, card domain.Card) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		card.TopicID,
		card.Question,
		card.Answer,
		card.Context,
		card.Hash,
		card.Interval,
		card.EaseFactor,
		card.DueDate.Unix(),
		nullSource(card.SourceID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// GetCard retrieves a card by id. It returns domain.ErrCardNotFound if there is none.
func (db *DB) GetCard(ctx context.Context, id string) (domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, fmt.Errorf("card %s: %w", id, domain.ErrCardNotFound)
		}
		return domain.Card{}, fmt.Errorf("failed to find card %s: %w", id, err)
	}
	return c, nil
}

// FindCardByHash retrieves a card by its content hash, or nil if none matches.
func (db *DB) FindCardByHash(ctx context.Context, hash string) (*domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE hash = ? LIMIT 1`, hash)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Card not found
		}
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return &c, nil
}

// UpdateCard writes the non-nil fields of patch and returns the stored card.
func (db *DB) UpdateCard(ctx context.Context, id string, patch domain.CardPatch) (domain.Card, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}
	if patch.TopicID != nil {
		add("topic_id", *patch.TopicID)
	}
	if patch.Question != nil {
		add("question", *patch.Question)
	}
	if patch.Answer != nil {
		add("answer", *patch.Answer)
	}
	if patch.Context != nil {
		add("context", *patch.Context)
	}
	if patch.Interval != nil {
		add("interval_days", *patch.Interval)
	}
	if patch.EaseFactor != nil {
		add("ease_factor", *patch.EaseFactor)
	}
	if patch.DueDate != nil {
		add("due_date", patch.DueDate.Unix())
	}
	if len(sets) == 0 {
		return db.GetCard(ctx, id)
	}

	args = append(args, id)
	res, err := db.conn.ExecContext(ctx,
		`UPDATE cards SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to update card %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Card{}, fmt.Errorf("card %s: %w", id, domain.ErrCardNotFound)
	}
	return db.GetCard(ctx, id)
}

// DeleteCard removes a card by id.
func (db *DB) DeleteCard(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("card %s: %w", id, domain.ErrCardNotFound)
	}
	return nil
}

// GetDueCards returns the cards due on or before the start of the day containing now,
// oldest due date first.
func (db *DB) GetDueCards(ctx context.Context, now time.Time) ([]domain.Card, error) {
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return db.queryCards(ctx, `
		SELECT `+cardColumns+` FROM cards
		WHERE due_date <= ?
		ORDER BY due_date, id
	`, startOfDay.Unix())
}

// ListCards returns all cards of a topic, or every card when topicID is empty.
func (db *DB) ListCards(ctx context.Context, topicID string) ([]domain.Card, error) {
	if topicID == "" {
		return db.queryCards(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY topic_id, id`)
	}
	return db.queryCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE topic_id = ? ORDER BY id`, topicID)
}

// GetCardsBySourceID retrieves all cards associated with a specific source ID.
func (db *DB) GetCardsBySourceID(ctx context.Context, sourceID int64) ([]domain.Card, error) {
	return db.queryCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE source_id = ?`, sourceID)
}

// Topics lists the distinct topic ids that have cards.
func (db *DB) Topics(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT topic_id FROM cards ORDER BY topic_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (db *DB) queryCards(ctx context.Context, query string, args ...any) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}
