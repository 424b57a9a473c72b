package insight

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"habitloop/internal/store"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	if sim := cosineSimilarity(a, b); sim < 0.999 {
		t.Errorf("identical vectors should score ~1.0, got %f", sim)
	}

	c := []float32{0, 1, 0}
	if sim := cosineSimilarity(a, c); sim != 0 {
		t.Errorf("orthogonal vectors should score 0, got %f", sim)
	}

	zero := []float32{0, 0, 0}
	if sim := cosineSimilarity(a, zero); sim != 0 {
		t.Errorf("zero-magnitude vector should score 0, got %f", sim)
	}

	short := []float32{1, 0}
	if sim := cosineSimilarity(a, short); sim != 0 {
		t.Errorf("mismatched lengths should score 0, got %f", sim)
	}
}

func TestSimilarityFilter_FlagsDuplicateOfExisting(t *testing.T) {
	embedder := newFakeEmbedder()
	itemStore := newFakeStore()
	itemStore.itemTexts[store.KindGoal] = []store.ItemText{
		{ID: "g1", Title: "Career Growth", Description: "Advance my career"},
	}
	filter := NewSimilarityFilter(embedder, itemStore, 0.85)

	record, err := ParseSuggestionRecord(validRecordJSON("Career Growth", "Sleep better"))
	if err != nil {
		t.Fatalf("fixture should parse: %v", err)
	}
	// Make the first suggested goal embed identically to the stored goal.
	record.SuggestedGoals[0].Description = "Advance my career"

	report, err := filter.Check(context.Background(), 1, record)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !report.NeedsRegeneration {
		t.Fatal("expected regeneration for a duplicate goal")
	}
	if len(report.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d: %v", len(report.Conflicts), report.Conflicts)
	}
	if !strings.Contains(report.Conflicts[0], "Career Growth") {
		t.Errorf("conflict note should name the duplicate: %q", report.Conflicts[0])
	}
}

func TestSimilarityFilter_DistinctItemsPass(t *testing.T) {
	embedder := newFakeEmbedder()
	itemStore := newFakeStore()
	itemStore.itemTexts[store.KindGoal] = []store.ItemText{
		{ID: "g1", Title: "Career Growth", Description: "Advance my career"},
	}
	filter := NewSimilarityFilter(embedder, itemStore, 0.85)

	record, err := ParseSuggestionRecord(validRecordJSON("Learn Go", "Sleep better"))
	if err != nil {
		t.Fatalf("fixture should parse: %v", err)
	}

	report, err := filter.Check(context.Background(), 1, record)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if report.NeedsRegeneration {
		t.Errorf("distinct suggestions should not need regeneration: %v", report.Conflicts)
	}
}

func TestSimilarityFilter_FlagsPairwiseOverlap(t *testing.T) {
	embedder := newFakeEmbedder()
	filter := NewSimilarityFilter(embedder, newFakeStore(), 0.85)

	record, err := ParseSuggestionRecord(validRecordJSON("Exercise", "Sleep"))
	if err != nil {
		t.Fatalf("fixture should parse: %v", err)
	}
	// Two sibling habits with identical text.
	record.SuggestedGoals[1].Habits[0] = record.SuggestedGoals[0].Habits[0]

	report, err := filter.Check(context.Background(), 1, record)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !report.NeedsRegeneration {
		t.Fatal("expected regeneration for overlapping sibling habits")
	}
}

func TestSimilarityFilter_FailedEmbeddingIsNotSimilar(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.failAll = true
	itemStore := newFakeStore()
	itemStore.itemTexts[store.KindGoal] = []store.ItemText{
		{ID: "g1", Title: "Goal A", Description: "Description of Goal A"},
	}
	filter := NewSimilarityFilter(embedder, itemStore, 0.85)

	record, err := ParseSuggestionRecord(validRecordJSON())
	if err != nil {
		t.Fatalf("fixture should parse: %v", err)
	}

	report, err := filter.Check(context.Background(), 1, record)
	if err != nil {
		t.Fatalf("embedding outage must not fail the check: %v", err)
	}
	if report.NeedsRegeneration {
		t.Errorf("unembeddable items should pass through, got conflicts: %v", report.Conflicts)
	}
}

func TestSimilarityFilter_StoreFailureSkipsCheck(t *testing.T) {
	embedder := newFakeEmbedder()
	itemStore := newFakeStore()
	itemStore.failEverything = true
	filter := NewSimilarityFilter(embedder, itemStore, 0.85)

	record, err := ParseSuggestionRecord(validRecordJSON())
	if err != nil {
		t.Fatalf("fixture should parse: %v", err)
	}

	report, err := filter.Check(context.Background(), 1, record)
	if err != nil {
		t.Fatalf("store outage must not fail the check: %v", err)
	}
	if report.NeedsRegeneration {
		t.Errorf("store outage should degrade to no-conflicts, got: %v", report.Conflicts)
	}
}

func TestSimilarityFilter_CapsConflictNotes(t *testing.T) {
	embedder := newFakeEmbedder()
	itemStore := newFakeStore()
	// Every habit in the record collides with each of these stored habits.
	for i := 0; i < 4; i++ {
		itemStore.itemTexts[store.KindHabit] = append(itemStore.itemTexts[store.KindHabit],
			store.ItemText{ID: fmt.Sprintf("h%d", i), Title: "same habit", Description: "identical"})
	}
	filter := NewSimilarityFilter(embedder, itemStore, 0.85)

	record, err := ParseSuggestionRecord(validRecordJSON("A", "B"))
	if err != nil {
		t.Fatalf("fixture should parse: %v", err)
	}
	for gi := range record.SuggestedGoals {
		for hi := range record.SuggestedGoals[gi].Habits {
			record.SuggestedGoals[gi].Habits[hi].Title = "same habit"
			record.SuggestedGoals[gi].Habits[hi].Description = "identical"
		}
	}

	report, err := filter.Check(context.Background(), 1, record)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if len(report.Conflicts) > MaxConflictNotes {
		t.Errorf("conflicts must be capped at %d, got %d", MaxConflictNotes, len(report.Conflicts))
	}
	if !report.NeedsRegeneration {
		t.Error("expected regeneration flag")
	}
}
