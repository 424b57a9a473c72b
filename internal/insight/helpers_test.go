package insight

import (
	"context"
	"fmt"
	"sync"
	"time"

	"habitloop/internal/store"
)

// fakeEmbedder assigns each distinct text an orthogonal unit vector, so equal
// texts embed identically and different texts score 0 against each other.
// Explicit vectors and per-text errors can be injected.
type fakeEmbedder struct {
	mu      sync.Mutex
	indexes map[string]int
	vectors map[string][]float32
	failOn  map[string]bool
	failAll bool
	calls   int
}

const fakeDim = 64

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		indexes: make(map[string]int),
		vectors: make(map[string][]float32),
		failOn:  make(map[string]bool),
	}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAll || f.failOn[text] {
		return nil, fmt.Errorf("embedding service unavailable")
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	idx, ok := f.indexes[text]
	if !ok {
		idx = len(f.indexes)
		f.indexes[text] = idx
	}
	vec := make([]float32, fakeDim)
	vec[idx%fakeDim] = 1
	return vec, nil
}

// fakeStore is an in-memory ItemStore.
type fakeStore struct {
	itemTexts      map[store.ItemKind][]store.ItemText
	goals          []store.Goal
	habits         []store.Habit
	metrics        []store.LifeMetric
	snapshots      []store.AcceptanceSnapshot
	exemplars      []store.Exemplar
	dailyCount     int
	failEverything bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{itemTexts: make(map[store.ItemKind][]store.ItemText)}
}

func (f *fakeStore) err() error {
	if f.failEverything {
		return fmt.Errorf("store unavailable")
	}
	return nil
}

func (f *fakeStore) ItemTexts(_ context.Context, _ uint, kind store.ItemKind) ([]store.ItemText, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return f.itemTexts[kind], nil
}

func (f *fakeStore) ActiveGoals(_ context.Context, _ uint) ([]store.Goal, error) {
	return f.goals, f.err()
}

func (f *fakeStore) RecentHabits(_ context.Context, _ uint, _ int) ([]store.Habit, error) {
	return f.habits, f.err()
}

func (f *fakeStore) LifeMetrics(_ context.Context, _ uint) ([]store.LifeMetric, error) {
	return f.metrics, f.err()
}

func (f *fakeStore) DailyHabitCount(_ context.Context, _ uint) (int, error) {
	return f.dailyCount, f.err()
}

func (f *fakeStore) AcceptanceSnapshots(_ context.Context, _ uint, _ time.Time) ([]store.AcceptanceSnapshot, error) {
	return f.snapshots, f.err()
}

func (f *fakeStore) Exemplars(_ context.Context, _ uint, _, _ int) ([]store.Exemplar, error) {
	return f.exemplars, f.err()
}

// fakeGenerator replays canned raw responses and records every prompt context
// it was invoked with.
type fakeGenerator struct {
	responses []string
	calls     int
	contexts  []*JournalContext
	err       error
}

func (f *fakeGenerator) Generate(_ context.Context, jc *JournalContext) (string, error) {
	f.calls++
	snapshot := *jc
	f.contexts = append(f.contexts, &snapshot)
	if f.err != nil {
		return "", f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

// validRecordJSON builds a well-formed model response with the given goal
// titles (two habits each) and one insight.
func validRecordJSON(goalTitles ...string) string {
	if len(goalTitles) == 0 {
		goalTitles = []string{"Goal A", "Goal B"}
	}
	goals := ""
	for i, title := range goalTitles {
		if i > 0 {
			goals += ","
		}
		goals += fmt.Sprintf(`{
			"title": %q,
			"description": "Description of %s",
			"lifeMetricId": "lm-1",
			"habits": [
				{"title": "%s habit one", "description": "first habit", "lifeMetricId": "lm-1", "priority": 1, "isHighLeverage": false, "frequency": "daily", "targetCount": 1},
				{"title": "%s habit two", "description": "second habit", "lifeMetricId": "lm-1", "priority": 2, "isHighLeverage": false, "frequency": "weekly", "targetCount": 3}
			]
		}`, title, title, title, title)
	}
	return fmt.Sprintf(`{
		"insights": [
			{"action": "create", "title": "A pattern", "explanation": "Something observed", "confidence": 80, "lifeMetricIds": ["lm-1"]}
		],
		"suggestedGoals": [%s]
	}`, goals)
}
