package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/revisa/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCardRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	due := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	card := domain.Card{
		ID:         "c1",
		TopicID:    "math",
		Question:   "2+2?",
		Answer:     "4",
		Interval:   6,
		EaseFactor: 2.5,
		DueDate:    due,
	}
	if err := db.InsertCard(ctx, card); err != nil {
		t.Fatalf("InsertCard() returned an unexpected error: %v", err)
	}

	got, err := db.GetCard(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCard() returned an unexpected error: %v", err)
	}
	if got.Question != "2+2?" || got.Interval != 6 || got.EaseFactor != 2.5 || !got.DueDate.Equal(due) {
		t.Errorf("Unexpected card: %+v", got)
	}
	if got.SourceID != 0 {
		t.Errorf("Expected manual card to have no source, got %d", got.SourceID)
	}
}

func TestGetCardNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetCard(context.Background(), "missing")
	if !errors.Is(err, domain.ErrCardNotFound) {
		t.Errorf("Expected ErrCardNotFound, got %v", err)
	}
}

func TestUpdateCardPartial(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.InsertCard(ctx, domain.Card{ID: "c1", Question: "q", Answer: "a", EaseFactor: 2.5, DueDate: time.Unix(0, 0)}); err != nil {
		t.Fatal(err)
	}

	interval := 15
	ease := 2.36
	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	got, err := db.UpdateCard(ctx, "c1", domain.CardPatch{Interval: &interval, EaseFactor: &ease, DueDate: &due})
	if err != nil {
		t.Fatalf("UpdateCard() returned an unexpected error: %v", err)
	}
	if got.Interval != 15 || got.EaseFactor != 2.36 || !got.DueDate.Equal(due) {
		t.Errorf("Scheduling fields not updated: %+v", got)
	}
	if got.Question != "q" || got.Answer != "a" {
		t.Errorf("Content fields changed: %+v", got)
	}

	if _, err := db.UpdateCard(ctx, "missing", domain.CardPatch{Interval: &interval}); !errors.Is(err, domain.ErrCardNotFound) {
		t.Errorf("Expected ErrCardNotFound for a missing card, got %v", err)
	}
}

func TestGetDueCardsDayGranularity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	cards := []domain.Card{
		{ID: "yesterday", Question: "q", DueDate: time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)},
		{ID: "today", Question: "q", DueDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "tomorrow", Question: "q", DueDate: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)},
		{ID: "later-today", Question: "q", DueDate: time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)},
	}
	for _, c := range cards {
		if err := db.InsertCard(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	due, err := db.GetDueCards(ctx, now)
	if err != nil {
		t.Fatalf("GetDueCards() returned an unexpected error: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("Expected 2 due cards, got %d", len(due))
	}
	if due[0].ID != "yesterday" || due[1].ID != "today" {
		t.Errorf("Expected due-date order [yesterday today], got [%s %s]", due[0].ID, due[1].ID)
	}
}

func TestDeleteCard(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.InsertCard(ctx, domain.Card{ID: "c1", Question: "q"}); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteCard(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCard() returned an unexpected error: %v", err)
	}
	if err := db.DeleteCard(ctx, "c1"); !errors.Is(err, domain.ErrCardNotFound) {
		t.Errorf("Expected ErrCardNotFound on second delete, got %v", err)
	}
}

func TestListCardsAndTopics(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for _, c := range []domain.Card{
		{ID: "a", TopicID: "math", Question: "q"},
		{ID: "b", TopicID: "math", Question: "q"},
		{ID: "c", TopicID: "history", Question: "q"},
	} {
		if err := db.InsertCard(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	math, err := db.ListCards(ctx, "math")
	if err != nil || len(math) != 2 {
		t.Fatalf("Expected 2 math cards, got %d (err %v)", len(math), err)
	}
	all, err := db.ListCards(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("Expected 3 cards, got %d (err %v)", len(all), err)
	}
	topics, err := db.Topics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 2 || topics[0] != "history" || topics[1] != "math" {
		t.Errorf("Unexpected topics %v", topics)
	}
}

func TestReviewLogs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	for i, r := range []domain.Rating{domain.Again, domain.Good} {
		log := domain.ReviewLog{CardID: "c1", Rating: r, Quality: r.Quality(), Timestamp: at.Add(time.Duration(i) * time.Minute)}
		if err := db.RecordReview(ctx, log); err != nil {
			t.Fatalf("RecordReview() returned an unexpected error: %v", err)
		}
	}

	logs, err := db.ReviewLogs(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("Expected 2 logs, got %d", len(logs))
	}
	if logs[0].Rating != domain.Again || logs[1].Quality != 4 {
		t.Errorf("Unexpected logs %+v", logs)
	}
}

func TestKeyValue(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.Get("deck_progress"); err != nil || ok {
		t.Fatalf("Expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := db.Set("deck_progress", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.Set("deck_progress", []byte(`{"b":2}`)); err != nil {
		t.Fatal(err)
	}
	v, ok, err := db.Get("deck_progress")
	if err != nil || !ok || string(v) != `{"b":2}` {
		t.Errorf("Expected overwritten value, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestSources(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.InsertSource("/notes", "local")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.InsertCard(ctx, domain.Card{ID: "h1", Hash: "h1", Question: "q", SourceID: id}); err != nil {
		t.Fatal(err)
	}

	src, err := db.FindSourceByPath("/notes")
	if err != nil || src == nil || src.Type != "local" {
		t.Fatalf("Unexpected source %+v (err %v)", src, err)
	}
	bySource, err := db.GetCardsBySourceID(ctx, id)
	if err != nil || len(bySource) != 1 {
		t.Fatalf("Expected 1 card for source, got %d (err %v)", len(bySource), err)
	}
	if found, err := db.FindCardByHash(ctx, "h1"); err != nil || found == nil {
		t.Errorf("Expected card by hash, got %v (err %v)", found, err)
	}

	if err := db.DeleteSource(id); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetCard(ctx, "h1"); !errors.Is(err, domain.ErrCardNotFound) {
		t.Errorf("Expected source cards to be deleted, got %v", err)
	}
}
