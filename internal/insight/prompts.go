package insight

import (
	"fmt"
	"strings"
)

// systemPrompt fixes the model's role for every generation call.
const systemPrompt = `You are an expert life coach. You read a client's journal entry together with context about their goals, habits and history, and you respond with precise, actionable behavioral suggestions. You always answer with a single JSON object and nothing else.`

// userPromptTemplate is the two-phase extract-then-curate instruction. Slot
// order matters: context first, rules next, schema last.
const userPromptTemplate = `Analyze the client's journal entry and propose insights, goals and habits.

## CONTEXT

### Research brief
%s

### Relevant research snippets
%s

### Client history snippets
%s

### Client's existing insights
%s

### Client's active goals
%s

### Client's recent habits
%s

### Suggestion acceptance statistics
%s

### Past accepted/rejected suggestions (exemplars)
%s

### Life metrics (use these identifiers VERBATIM)
%s

### Current daily habit load
The client currently has %d active daily habits. The combined total of current and newly suggested daily habits must stay below %d.

## JOURNAL ENTRY

%s

## INSTRUCTIONS

Work in two phases:

PHASE 1 — EXTRACT: list internally every plausible behavioral observation, goal idea and habit idea present in the journal entry. Do not output this list.

PHASE 2 — CURATE: from the phase-1 list, select only the strongest material: 1-2 insights and 2-4 goals, each goal with exactly 2-3 habits.

Quality rules:
1. Goals must be SMART: specific, measurable, achievable, relevant, time-aware.
2. Suggestions must be NOVEL: do not restate the client's existing goals, habits or insights listed above.
3. Do not propose two goals or two habits that overlap with each other.
4. Every lifeMetricId value MUST be copied verbatim from the life-metrics table above. Never invent identifiers.
5. Habit priority: 1=essential, 2=helpful, 3=optional. Mark a habit isHighLeverage only when it serves multiple goal categories; list those categories in goalTypes.
6. Frequency is one of "daily", "weekly", "monthly" with a sensible targetCount per period.
7. Respect the daily habit ceiling stated above.
8. For each insight set action to "create", or "update" with existingInsightId when it refines an existing insight, or "skip".
9. Confidence is an integer 0-100.

Output a single JSON object with EXACTLY this shape and no surrounding prose, no markdown fences:

{
  "insights": [
    {
      "action": "create",
      "existingInsightId": "",
      "title": "...",
      "explanation": "...",
      "confidence": 85,
      "lifeMetricIds": ["..."]
    }
  ],
  "suggestedGoals": [
    {
      "title": "...",
      "description": "...",
      "lifeMetricId": "...",
      "habits": [
        {
          "title": "...",
          "description": "...",
          "lifeMetricId": "...",
          "priority": 1,
          "isHighLeverage": false,
          "goalTypes": [],
          "frequency": "daily",
          "targetCount": 1
        }
      ]
    }
  ]
}`

// BuildUserPrompt renders every context slot into the generation prompt.
func BuildUserPrompt(jc *JournalContext) string {
	return fmt.Sprintf(userPromptTemplate,
		slotOrNone(jc.ResearchBrief),
		slotOrNone(jc.ResearchSnippets),
		slotOrNone(jc.HistorySnippets),
		slotOrNone(jc.ExistingInsights),
		slotOrNone(jc.ActiveGoals),
		slotOrNone(jc.RecentHabits),
		slotOrNone(jc.AcceptanceMetrics),
		slotOrNone(jc.Exemplars),
		renderLifeMetricTable(jc.LifeMetrics),
		jc.DailyHabitCount,
		DailyHabitCeiling,
		jc.JournalText,
	)
}

// renderLifeMetricTable emits the literal name→identifier table the model
// must copy identifiers from.
func renderLifeMetricTable(metrics []LifeMetricRef) string {
	if len(metrics) == 0 {
		return "(none defined)"
	}
	var b strings.Builder
	for _, m := range metrics {
		fmt.Fprintf(&b, "- %s: %s\n", m.Name, m.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func slotOrNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
