package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbConn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	if err := dbConn.AutoMigrate(&LifeMetric{}, &Goal{}, &Habit{}, &Insight{}, &FeedbackEvent{}, &AcceptanceMetric{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return dbConn
}

func TestRepository_ItemTexts(t *testing.T) {
	dbConn := newTestDB(t)
	repo := NewRepository(dbConn)
	ctx := context.Background()

	dbConn.Create(&Goal{ID: uuid.New().String(), UserID: 1, Title: "Run a marathon", Description: "Finish a full marathon", Status: "active"})
	dbConn.Create(&Goal{ID: uuid.New().String(), UserID: 1, Title: "Old goal", Description: "gone", Status: "archived"})
	dbConn.Create(&Goal{ID: uuid.New().String(), UserID: 2, Title: "Someone else", Description: "other user", Status: "active"})

	texts, err := repo.ItemTexts(ctx, 1, KindGoal)
	if err != nil {
		t.Fatalf("ItemTexts failed: %v", err)
	}
	if len(texts) != 1 {
		t.Fatalf("expected 1 goal text, got %d", len(texts))
	}
	if texts[0].Title != "Run a marathon" {
		t.Errorf("unexpected title: %s", texts[0].Title)
	}
}

func TestRepository_ItemTexts_InsightUsesExplanation(t *testing.T) {
	dbConn := newTestDB(t)
	repo := NewRepository(dbConn)

	dbConn.Create(&Insight{ID: uuid.New().String(), UserID: 1, Title: "Evening slump", Explanation: "Energy drops after 8pm", Status: "active"})

	texts, err := repo.ItemTexts(context.Background(), 1, KindInsight)
	if err != nil {
		t.Fatalf("ItemTexts failed: %v", err)
	}
	if len(texts) != 1 || texts[0].Description != "Energy drops after 8pm" {
		t.Errorf("expected explanation mapped to description, got %+v", texts)
	}
}

func TestRepository_DailyHabitCount(t *testing.T) {
	dbConn := newTestDB(t)
	repo := NewRepository(dbConn)

	for i := 0; i < 3; i++ {
		dbConn.Create(&Habit{ID: uuid.New().String(), UserID: 1, Title: "daily", Frequency: "daily", Status: "active"})
	}
	dbConn.Create(&Habit{ID: uuid.New().String(), UserID: 1, Title: "weekly", Frequency: "weekly", Status: "active"})
	dbConn.Create(&Habit{ID: uuid.New().String(), UserID: 1, Title: "paused", Frequency: "daily", Status: "archived"})

	count, err := repo.DailyHabitCount(context.Background(), 1)
	if err != nil {
		t.Fatalf("DailyHabitCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 daily habits, got %d", count)
	}
}

func TestRepository_AcceptanceSnapshots_MonthlyRollup(t *testing.T) {
	dbConn := newTestDB(t)
	repo := NewRepository(dbConn)
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	monthStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	dbConn.Create(&AcceptanceMetric{UserID: 1, ItemKind: KindGoal, PeriodStart: monthStart, Accepted: 4, Downvotes: 1, AcceptanceRate: 0.8})

	snaps, err := repo.AcceptanceSnapshots(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("AcceptanceSnapshots failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0].AcceptanceRate != 0.8 {
		t.Errorf("expected rollup row, got %+v", snaps)
	}
}

func TestRepository_AcceptanceSnapshots_FallbackFromEvents(t *testing.T) {
	dbConn := newTestDB(t)
	repo := NewRepository(dbConn)
	now := time.Now()

	// No rollup rows: rate derives from raw events in the last 30 days.
	mk := func(kind FeedbackKind, age time.Duration) {
		ev := FeedbackEvent{ID: uuid.New().String(), UserID: 1, ItemKind: KindGoal, ItemID: uuid.New().String(), Kind: kind, CreatedAt: now.Add(-age)}
		dbConn.Create(&ev)
	}
	mk(FeedbackAccepted, 24*time.Hour)
	mk(FeedbackAccepted, 48*time.Hour)
	mk(FeedbackDismiss, 72*time.Hour)
	mk(FeedbackDismiss, 45*24*time.Hour) // outside the window

	snaps, err := repo.AcceptanceSnapshots(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("AcceptanceSnapshots failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	got := snaps[0]
	if got.Accepted != 2 || got.Dismissed != 1 {
		t.Errorf("unexpected counts: %+v", got)
	}
	want := 2.0 / 3.0
	if got.AcceptanceRate < want-0.001 || got.AcceptanceRate > want+0.001 {
		t.Errorf("expected rate ~%.3f, got %.3f", want, got.AcceptanceRate)
	}
}

func TestRepository_Exemplars(t *testing.T) {
	dbConn := newTestDB(t)
	repo := NewRepository(dbConn)
	now := time.Now()

	goalID := uuid.New().String()
	dbConn.Create(&Goal{ID: goalID, UserID: 1, Title: "Read more", Description: "One book a month", Status: "active"})
	dbConn.Create(&FeedbackEvent{ID: uuid.New().String(), UserID: 1, ItemKind: KindGoal, ItemID: goalID, Kind: FeedbackAccepted, CreatedAt: now})

	rejID := uuid.New().String()
	dbConn.Create(&Insight{ID: rejID, UserID: 1, Title: "Too vague", Explanation: "Vague pattern", Status: "active"})
	dbConn.Create(&FeedbackEvent{ID: uuid.New().String(), UserID: 1, ItemKind: KindInsight, ItemID: rejID, Kind: FeedbackRejected, ReasonCode: "not_actionable", CreatedAt: now})

	// Feedback pointing at a deleted item is skipped, not an error.
	dbConn.Create(&FeedbackEvent{ID: uuid.New().String(), UserID: 1, ItemKind: KindGoal, ItemID: uuid.New().String(), Kind: FeedbackAccepted, CreatedAt: now.Add(-time.Hour)})

	ex, err := repo.Exemplars(context.Background(), 1, 3, 2)
	if err != nil {
		t.Fatalf("Exemplars failed: %v", err)
	}
	if len(ex) != 2 {
		t.Fatalf("expected 2 exemplars, got %d", len(ex))
	}
	var sawAccepted, sawRejected bool
	for _, e := range ex {
		if e.Accepted && e.Title == "Read more" {
			sawAccepted = true
		}
		if !e.Accepted && e.ReasonCode == "not_actionable" {
			sawRejected = true
		}
	}
	if !sawAccepted || !sawRejected {
		t.Errorf("missing exemplar sides: %+v", ex)
	}
}
