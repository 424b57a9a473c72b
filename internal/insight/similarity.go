package insight

import (
	"context"
	"fmt"
	"log"
	"math"

	"habitloop/internal/store"
)

// SimilarityFilter flags suggested items that duplicate the user's existing
// items or each other, using embedding cosine similarity.
type SimilarityFilter struct {
	embedder  Embedder
	store     ItemStore
	threshold float64
}

func NewSimilarityFilter(embedder Embedder, itemStore ItemStore, threshold float64) *SimilarityFilter {
	if threshold == 0 {
		threshold = 0.85
	}
	return &SimilarityFilter{embedder: embedder, store: itemStore, threshold: threshold}
}

// candidate is one new suggestion flattened to comparable text.
type candidate struct {
	kind  store.ItemKind
	title string
	text  string
}

// Check compares every suggested goal, habit and insight against the user's
// existing items of the same kind, and suggested goals/habits against their
// siblings. A failed embedding degrades that item to "no similarity data"
// rather than failing the run.
func (f *SimilarityFilter) Check(ctx context.Context, userID uint, record *SuggestionRecord) (*SimilarityReport, error) {
	report := &SimilarityReport{}

	goals := make([]candidate, 0, len(record.SuggestedGoals))
	for _, g := range record.SuggestedGoals {
		goals = append(goals, candidate{kind: store.KindGoal, title: g.Title, text: g.Title + " " + g.Description})
	}
	habits := make([]candidate, 0)
	for _, g := range record.SuggestedGoals {
		for _, h := range g.Habits {
			habits = append(habits, candidate{kind: store.KindHabit, title: h.Title, text: h.Title + " " + h.Description})
		}
	}
	insights := make([]candidate, 0, len(record.Insights))
	for _, ins := range record.Insights {
		insights = append(insights, candidate{kind: store.KindInsight, title: ins.Title, text: ins.Title + " " + ins.Explanation})
	}

	goalVecs := f.embedAll(ctx, goals)
	habitVecs := f.embedAll(ctx, habits)
	insightVecs := f.embedAll(ctx, insights)

	f.checkAgainstExisting(ctx, userID, goals, goalVecs, report)
	f.checkAgainstExisting(ctx, userID, habits, habitVecs, report)
	f.checkAgainstExisting(ctx, userID, insights, insightVecs, report)

	f.checkPairwise(goals, goalVecs, report)
	f.checkPairwise(habits, habitVecs, report)

	if len(report.Conflicts) > MaxConflictNotes {
		report.Conflicts = report.Conflicts[:MaxConflictNotes]
	}
	report.NeedsRegeneration = len(report.Conflicts) > 0
	return report, nil
}

// embedAll embeds every candidate; a failed embed leaves a nil vector, which
// downstream checks treat as non-comparable.
func (f *SimilarityFilter) embedAll(ctx context.Context, cands []candidate) [][]float32 {
	vecs := make([][]float32, len(cands))
	for i, c := range cands {
		vec, err := f.embedder.Embed(ctx, c.text)
		if err != nil {
			log.Printf("[Similarity] embedding failed for %s %q, treating as not similar: %v", c.kind, c.title, err)
			continue
		}
		vecs[i] = vec
	}
	return vecs
}

// checkAgainstExisting compares new candidates of one kind to the user's
// stored items of that kind.
func (f *SimilarityFilter) checkAgainstExisting(ctx context.Context, userID uint, cands []candidate, vecs [][]float32, report *SimilarityReport) {
	if len(cands) == 0 {
		return
	}
	kind := cands[0].kind

	existing, err := f.store.ItemTexts(ctx, userID, kind)
	if err != nil {
		log.Printf("[Similarity] failed to load existing %ss, skipping check: %v", kind, err)
		return
	}

	for i, cand := range cands {
		if vecs[i] == nil {
			continue
		}
		result := SimilarityResult{Text: cand.text}
		for _, item := range existing {
			itemVec, err := f.embedExisting(ctx, userID, item)
			if err != nil {
				log.Printf("[Similarity] embedding failed for existing %s %q: %v", kind, item.Title, err)
				continue
			}
			sim := cosineSimilarity(vecs[i], itemVec)
			if sim > result.MaxSimilarity {
				result.MaxSimilarity = sim
			}
			if sim >= f.threshold {
				result.IsDuplicate = true
				result.Matches = append(result.Matches, SimilarityMatch{Title: item.Title, Similarity: sim, Existing: true})
				report.Conflicts = append(report.Conflicts,
					fmt.Sprintf("%s %q duplicates existing %s %q (similarity %.2f)", kind, cand.title, kind, item.Title, sim))
			}
		}
		report.Results = append(report.Results, result)
	}
}

// embedExisting embeds a stored item, through the item cache when the
// embedder supports one.
func (f *SimilarityFilter) embedExisting(ctx context.Context, userID uint, item store.ItemText) ([]float32, error) {
	text := item.Title + " " + item.Description
	if ie, ok := f.embedder.(ItemEmbedder); ok {
		return ie.EmbedItem(ctx, userID, item.ID, text)
	}
	return f.embedder.Embed(ctx, text)
}

// checkPairwise flags near-duplicates among the new suggestions themselves.
func (f *SimilarityFilter) checkPairwise(cands []candidate, vecs [][]float32, report *SimilarityReport) {
	for i := 0; i < len(cands); i++ {
		if vecs[i] == nil {
			continue
		}
		for j := i + 1; j < len(cands); j++ {
			if vecs[j] == nil {
				continue
			}
			sim := cosineSimilarity(vecs[i], vecs[j])
			if sim >= f.threshold {
				report.Conflicts = append(report.Conflicts,
					fmt.Sprintf("%s %q overlaps suggested %s %q (similarity %.2f)",
						cands[i].kind, cands[i].title, cands[j].kind, cands[j].title, sim))
			}
		}
	}
}

// cosineSimilarity calculates the cosine similarity between two vectors.
// Vectors of different lengths are non-comparable and score 0; a zero-
// magnitude vector also scores 0 instead of dividing by zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
