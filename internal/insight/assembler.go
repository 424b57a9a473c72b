package insight

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"habitloop/internal/store"
)

const (
	maxExemplarAccepted = 3
	maxExemplarRejected = 2
	recentHabitsLimit   = 10
)

// AssemblerConfig carries the prompt-size caps and retrieval knobs.
type AssemblerConfig struct {
	RetrievalTopK   int
	QueryCharCap    int
	SnippetCharCap  int
	ExemplarCharCap int
}

// Assembler gathers everything the generation step needs into one
// JournalContext. Every sub-retrieval is fail-open: a failed slot degrades to
// an empty string instead of aborting assembly.
type Assembler struct {
	store         ItemStore
	research      SnippetRetriever
	history       SnippetRetriever
	researchBrief string
	cfg           AssemblerConfig
}

func NewAssembler(store ItemStore, research, history SnippetRetriever, researchBrief string, cfg AssemblerConfig) *Assembler {
	if cfg.RetrievalTopK == 0 {
		cfg.RetrievalTopK = 6
	}
	if cfg.QueryCharCap == 0 {
		cfg.QueryCharCap = 400
	}
	if cfg.SnippetCharCap == 0 {
		cfg.SnippetCharCap = 2200
	}
	if cfg.ExemplarCharCap == 0 {
		cfg.ExemplarCharCap = 2500
	}
	return &Assembler{
		store:         store,
		research:      research,
		history:       history,
		researchBrief: researchBrief,
		cfg:           cfg,
	}
}

// Assemble builds the JournalContext for one pipeline run. The journal text
// must already be screened.
func (a *Assembler) Assemble(ctx context.Context, userID uint, journalText string) (*JournalContext, error) {
	jc := &JournalContext{
		UserID:        userID,
		JournalText:   journalText,
		ResearchBrief: a.researchBrief,
	}

	query := truncateChars(journalText, a.cfg.QueryCharCap)

	// Research and history snippets are independent reads; fetch them
	// concurrently and join before the model call.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		jc.ResearchSnippets = a.retrieveSlot(ctx, "research", a.research, query, nil)
	}()
	go func() {
		defer wg.Done()
		uid := userID
		jc.HistorySnippets = a.retrieveSlot(ctx, "history", a.history, query, &uid)
	}()
	wg.Wait()

	jc.ExistingInsights = a.insightSummaries(ctx, userID)
	jc.ActiveGoals = a.goalSummaries(ctx, userID)
	jc.RecentHabits = a.habitSummaries(ctx, userID)
	jc.LifeMetrics = a.lifeMetricRefs(ctx, userID)
	jc.AcceptanceMetrics = a.acceptanceSummary(ctx, userID)
	jc.Exemplars = a.exemplarSummary(ctx, userID)

	count, err := a.store.DailyHabitCount(ctx, userID)
	if err != nil {
		log.Printf("[Assembler] daily habit count failed for user %d: %v", userID, err)
	} else {
		jc.DailyHabitCount = count
	}

	return jc, nil
}

// retrieveSlot runs one snippet retrieval and joins the results under the
// slot's hard character cap.
func (a *Assembler) retrieveSlot(ctx context.Context, name string, r SnippetRetriever, query string, userID *uint) string {
	if r == nil {
		return ""
	}
	texts, err := r.Retrieve(ctx, query, a.cfg.RetrievalTopK, userID)
	if err != nil {
		log.Printf("[Assembler] %s retrieval failed: %v", name, err)
		return ""
	}
	return truncateChars(strings.Join(texts, "\n---\n"), a.cfg.SnippetCharCap)
}

func (a *Assembler) insightSummaries(ctx context.Context, userID uint) string {
	items, err := a.store.ItemTexts(ctx, userID, store.KindInsight)
	if err != nil {
		log.Printf("[Assembler] existing insights lookup failed: %v", err)
		return ""
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s: %s\n", it.Title, it.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Assembler) goalSummaries(ctx context.Context, userID uint) string {
	goals, err := a.store.ActiveGoals(ctx, userID)
	if err != nil {
		log.Printf("[Assembler] active goals lookup failed: %v", err)
		return ""
	}
	var b strings.Builder
	for _, g := range goals {
		fmt.Fprintf(&b, "- %s: %s (%d habits)\n", g.Title, g.Description, len(g.Habits))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Assembler) habitSummaries(ctx context.Context, userID uint) string {
	habits, err := a.store.RecentHabits(ctx, userID, recentHabitsLimit)
	if err != nil {
		log.Printf("[Assembler] recent habits lookup failed: %v", err)
		return ""
	}
	var b strings.Builder
	for _, h := range habits {
		fmt.Fprintf(&b, "- %s (%s): %s\n", h.Title, h.Frequency, h.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Assembler) lifeMetricRefs(ctx context.Context, userID uint) []LifeMetricRef {
	metrics, err := a.store.LifeMetrics(ctx, userID)
	if err != nil {
		log.Printf("[Assembler] life metrics lookup failed: %v", err)
		return nil
	}
	refs := make([]LifeMetricRef, 0, len(metrics))
	for _, m := range metrics {
		refs = append(refs, LifeMetricRef{ID: m.ID, Name: m.Name})
	}
	return refs
}

func (a *Assembler) acceptanceSummary(ctx context.Context, userID uint) string {
	snaps, err := a.store.AcceptanceSnapshots(ctx, userID, time.Now())
	if err != nil {
		log.Printf("[Assembler] acceptance metrics lookup failed: %v", err)
		return ""
	}
	var b strings.Builder
	for _, s := range snaps {
		fmt.Fprintf(&b, "- %s: %.0f%% acceptance (%d accepted, %d upvotes, %d downvotes, %d dismissed)\n",
			s.Kind, s.AcceptanceRate*100, s.Accepted, s.Upvotes, s.Downvotes, s.Dismissed)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Assembler) exemplarSummary(ctx context.Context, userID uint) string {
	exemplars, err := a.store.Exemplars(ctx, userID, maxExemplarAccepted, maxExemplarRejected)
	if err != nil {
		log.Printf("[Assembler] exemplars lookup failed: %v", err)
		return ""
	}
	var b strings.Builder
	for _, e := range exemplars {
		verdict := "ACCEPTED"
		if !e.Accepted {
			verdict = "REJECTED"
			if e.ReasonCode != "" {
				verdict = fmt.Sprintf("REJECTED (%s)", e.ReasonCode)
			}
		}
		fmt.Fprintf(&b, "- [%s] %s %q: %s\n", verdict, e.Kind, e.Title, e.Description)
	}
	return truncateChars(strings.TrimRight(b.String(), "\n"), a.cfg.ExemplarCharCap)
}
