package insight

import (
	"context"
	"time"

	"habitloop/internal/store"
)

// ActionTag tells the persistence layer what to do with a suggested insight.
type ActionTag string

const (
	ActionCreate ActionTag = "create"
	ActionUpdate ActionTag = "update"
	ActionSkip   ActionTag = "skip"
)

// Frequency is how often a habit repeats.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Habit priority tiers
const (
	PriorityEssential = 1
	PriorityHelpful   = 2
	PriorityOptional  = 3
)

// Shape bounds for a SuggestionRecord
const (
	MinInsights = 1
	MaxInsights = 2
	MinGoals    = 2
	MaxGoals    = 4
	MinHabits   = 2
	MaxHabits   = 3

	// DailyHabitCeiling caps the cumulative count of daily-frequency habits
	// across all of a user's active goals, new suggestions included.
	DailyHabitCeiling = 10

	// MaxConflictNotes bounds the similarity feedback appended to the retry
	// prompt.
	MaxConflictNotes = 5
)

// SuggestedHabit is a not-yet-accepted candidate habit nested under a
// suggested goal.
type SuggestedHabit struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	LifeMetricID   string    `json:"lifeMetricId"`
	Priority       int       `json:"priority"` // 1=essential, 2=helpful, 3=optional
	IsHighLeverage bool      `json:"isHighLeverage"`
	GoalTypes      []string  `json:"goalTypes,omitempty"`
	Frequency      Frequency `json:"frequency"`
	TargetCount    int       `json:"targetCount"`
}

// SuggestedGoal is a candidate goal with 2-3 nested habits.
type SuggestedGoal struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	LifeMetricID string           `json:"lifeMetricId"`
	Habits       []SuggestedHabit `json:"habits"`
}

// SuggestedInsight is one behavioral pattern observation.
type SuggestedInsight struct {
	Action            ActionTag `json:"action"`
	ExistingInsightID string    `json:"existingInsightId,omitempty"`
	Title             string    `json:"title"`
	Explanation       string    `json:"explanation"`
	Confidence        int       `json:"confidence"` // 0-100
	LifeMetricIDs     []string  `json:"lifeMetricIds"`
}

// SuggestionRecord is the pipeline's final output: 1-2 insights plus 2-4
// goals, each carrying 2-3 habits.
type SuggestionRecord struct {
	Insights       []SuggestedInsight `json:"insights"`
	SuggestedGoals []SuggestedGoal    `json:"suggestedGoals"`
}

// LifeMetricRef is one row of the name→identifier table the model must use
// verbatim.
type LifeMetricRef struct {
	ID   string
	Name string
}

// JournalContext is the assembled input bundle for one generation call.
// Constructed fresh per pipeline invocation, never persisted.
type JournalContext struct {
	UserID            uint
	JournalText       string
	ResearchBrief     string
	ResearchSnippets  string
	HistorySnippets   string
	ExistingInsights  string
	ActiveGoals       string
	RecentHabits      string
	LifeMetrics       []LifeMetricRef
	AcceptanceMetrics string
	Exemplars         string
	DailyHabitCount   int
}

// SimilarityMatch names one conflicting item and its score.
type SimilarityMatch struct {
	Title      string
	Similarity float64
	Existing   bool // true: matched a stored item; false: matched a sibling suggestion
}

// SimilarityResult is the per-candidate outcome of the similarity filter.
type SimilarityResult struct {
	Text          string
	IsDuplicate   bool
	MaxSimilarity float64
	Matches       []SimilarityMatch
}

// SimilarityReport aggregates all duplicate findings for one record.
type SimilarityReport struct {
	NeedsRegeneration bool
	Conflicts         []string // human-readable, capped at MaxConflictNotes
	Results           []SimilarityResult
}

// Embedder is the embedding-service contract the similarity filter consumes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ItemEmbedder is implemented by embedders that can cache vectors for items
// with a stable identity. The similarity filter uses it for the user's
// existing items, which are re-embedded on every run otherwise.
type ItemEmbedder interface {
	EmbedItem(ctx context.Context, userID uint, itemID, text string) ([]float32, error)
}

// SnippetRetriever is the retrieval-store contract the assembler consumes.
type SnippetRetriever interface {
	Retrieve(ctx context.Context, query string, k int, userID *uint) ([]string, error)
}

// ItemStore is the read-only persistence contract the assembler and
// similarity filter consume.
type ItemStore interface {
	ItemTexts(ctx context.Context, userID uint, kind store.ItemKind) ([]store.ItemText, error)
	ActiveGoals(ctx context.Context, userID uint) ([]store.Goal, error)
	RecentHabits(ctx context.Context, userID uint, limit int) ([]store.Habit, error)
	LifeMetrics(ctx context.Context, userID uint) ([]store.LifeMetric, error)
	DailyHabitCount(ctx context.Context, userID uint) (int, error)
	AcceptanceSnapshots(ctx context.Context, userID uint, now time.Time) ([]store.AcceptanceSnapshot, error)
	Exemplars(ctx context.Context, userID uint, maxAccepted, maxRejected int) ([]store.Exemplar, error)
}

// Generator is the generation-engine contract the pipeline orchestrates.
type Generator interface {
	Generate(ctx context.Context, jc *JournalContext) (string, error)
}
