package insight

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Stage names reported through the progress callback.
const (
	StageScreening    = "screening"
	StageAssembling   = "assembling"
	StageGenerating   = "generating"
	StageValidating   = "validating"
	StageSimilarity   = "similarity"
	StageRegenerating = "regenerating"
	StageDone         = "done"
)

// ProgressFunc receives stage transitions during a pipeline run. May be nil.
type ProgressFunc func(stage string)

// Pipeline turns one screened journal entry into a validated, de-duplicated
// SuggestionRecord. One invocation makes at most two generation calls: the
// initial one, plus a single regeneration when the similarity filter flags
// conflicts. The retried record is returned as-is even if conflicts persist.
type Pipeline struct {
	security   *SecurityFilter
	assembler  *Assembler
	engine     Generator
	similarity *SimilarityFilter
}

func NewPipeline(security *SecurityFilter, assembler *Assembler, engine Generator, similarity *SimilarityFilter) *Pipeline {
	return &Pipeline{
		security:   security,
		assembler:  assembler,
		engine:     engine,
		similarity: similarity,
	}
}

// Run executes the full pipeline for one journal entry.
func (p *Pipeline) Run(ctx context.Context, userID uint, journalText string) (*SuggestionRecord, error) {
	return p.RunWithProgress(ctx, userID, journalText, nil)
}

// RunWithProgress is Run with stage notifications for interactive callers.
func (p *Pipeline) RunWithProgress(ctx context.Context, userID uint, journalText string, progress ProgressFunc) (*SuggestionRecord, error) {
	notify := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	notify(StageScreening)
	screened, err := p.security.Screen(journalText)
	if err != nil {
		return nil, err
	}

	notify(StageAssembling)
	jc, err := p.assembler.Assemble(ctx, userID, screened)
	if err != nil {
		return nil, fmt.Errorf("context assembly failed: %w", err)
	}

	notify(StageGenerating)
	raw, err := p.engine.Generate(ctx, jc)
	if err != nil {
		return nil, err
	}

	notify(StageValidating)
	record, err := ParseSuggestionRecord(raw)
	if err != nil {
		return nil, err
	}
	if err := record.ValidateDailyLoad(jc.DailyHabitCount); err != nil {
		return nil, err
	}

	notify(StageSimilarity)
	report, err := p.similarity.Check(ctx, userID, record)
	if err != nil {
		return nil, fmt.Errorf("similarity check failed: %w", err)
	}

	if !report.NeedsRegeneration {
		notify(StageDone)
		return record, nil
	}

	// One bounded regeneration with the conflict list appended to the
	// journal slot. The result is accepted regardless of remaining
	// conflicts; this never loops.
	log.Printf("[Pipeline] %d similarity conflicts for user %d, regenerating once", len(report.Conflicts), userID)
	notify(StageRegenerating)

	retryCtx := *jc
	retryCtx.JournalText = appendSimilarityFeedback(jc.JournalText, report.Conflicts)

	raw, err = p.engine.Generate(ctx, &retryCtx)
	if err != nil {
		return nil, err
	}
	record, err = ParseSuggestionRecord(raw)
	if err != nil {
		return nil, err
	}
	if err := record.ValidateDailyLoad(jc.DailyHabitCount); err != nil {
		return nil, err
	}

	notify(StageDone)
	return record, nil
}

// appendSimilarityFeedback attaches the conflict list to the journal slot so
// the retry prompt steers away from the flagged duplicates.
func appendSimilarityFeedback(journalText string, conflicts []string) string {
	var b strings.Builder
	b.WriteString(journalText)
	b.WriteString("\n\nSIMILARITY FEEDBACK: your previous suggestions duplicated these items, propose different ones:\n")
	for _, c := range conflicts {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
