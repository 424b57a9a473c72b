package insight

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// ParseError is raised when the model's output cannot be decoded into a
// valid SuggestionRecord. It carries excerpts for diagnostics; the raw text
// is never silently repaired.
type ParseError struct {
	RawLen int
	Head   string
	Tail   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model output (%d chars, head=%q tail=%q): %v",
		e.RawLen, e.Head, e.Tail, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const excerptLen = 120

func newParseError(raw string, err error) *ParseError {
	head := truncateChars(raw, excerptLen)
	tail := ""
	if runes := []rune(raw); len(runes) > excerptLen {
		tail = string(runes[len(runes)-excerptLen:])
	}
	return &ParseError{RawLen: len(raw), Head: head, Tail: tail, Err: err}
}

// truncateChars caps a string at max characters, never splitting a rune.
func truncateChars(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ParseSuggestionRecord strips formatting wrappers, decodes the remaining
// JSON document and validates the record's shape.
func ParseSuggestionRecord(raw string) (*SuggestionRecord, error) {
	cleaned := stripFences(raw)
	if strings.TrimSpace(cleaned) == "" {
		return nil, newParseError(raw, fmt.Errorf("empty model output"))
	}

	var record SuggestionRecord
	if err := json.Unmarshal([]byte(cleaned), &record); err != nil {
		return nil, newParseError(raw, err)
	}

	if err := record.Validate(); err != nil {
		return nil, newParseError(raw, err)
	}
	return &record, nil
}

// stripFences removes leading/trailing markdown code-fence lines, with or
// without a language tag. Lines carrying anything besides the fence token
// and a tag are content and stay.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return text
	}

	if isFenceLine(lines[0]) {
		lines = lines[1:]
	}
	if len(lines) > 0 && isFenceLine(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isFenceLine(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "```") {
		return false
	}
	for _, r := range strings.TrimPrefix(line, "```") {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Validate enforces the record's shape invariants.
func (r *SuggestionRecord) Validate() error {
	if len(r.Insights) < MinInsights || len(r.Insights) > MaxInsights {
		return fmt.Errorf("record must carry %d-%d insights, got %d", MinInsights, MaxInsights, len(r.Insights))
	}
	if len(r.SuggestedGoals) < MinGoals || len(r.SuggestedGoals) > MaxGoals {
		return fmt.Errorf("record must carry %d-%d suggested goals, got %d", MinGoals, MaxGoals, len(r.SuggestedGoals))
	}

	for i, ins := range r.Insights {
		switch ins.Action {
		case ActionCreate, ActionUpdate, ActionSkip:
		default:
			return fmt.Errorf("insight %d has invalid action %q", i, ins.Action)
		}
		if ins.Action == ActionUpdate && ins.ExistingInsightID == "" {
			return fmt.Errorf("insight %d action is update but existingInsightId is empty", i)
		}
		if ins.Title == "" {
			return fmt.Errorf("insight %d is missing a title", i)
		}
		if ins.Confidence < 0 || ins.Confidence > 100 {
			return fmt.Errorf("insight %d confidence %d out of range [0,100]", i, ins.Confidence)
		}
	}

	for i, goal := range r.SuggestedGoals {
		if goal.Title == "" {
			return fmt.Errorf("goal %d is missing a title", i)
		}
		if len(goal.Habits) < MinHabits || len(goal.Habits) > MaxHabits {
			return fmt.Errorf("goal %d must carry %d-%d habits, got %d", i, MinHabits, MaxHabits, len(goal.Habits))
		}
		for j, habit := range goal.Habits {
			if habit.Title == "" {
				return fmt.Errorf("goal %d habit %d is missing a title", i, j)
			}
			switch habit.Frequency {
			case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
			default:
				return fmt.Errorf("goal %d habit %d has invalid frequency %q", i, j, habit.Frequency)
			}
			if habit.Priority < PriorityEssential || habit.Priority > PriorityOptional {
				return fmt.Errorf("goal %d habit %d has invalid priority %d", i, j, habit.Priority)
			}
		}
	}
	return nil
}

// ValidateDailyLoad checks the cumulative daily-habit ceiling: the user's
// current daily habits plus the newly suggested ones must stay below
// DailyHabitCeiling.
func (r *SuggestionRecord) ValidateDailyLoad(currentDaily int) error {
	newDaily := 0
	for _, goal := range r.SuggestedGoals {
		for _, habit := range goal.Habits {
			if habit.Frequency == FrequencyDaily {
				newDaily++
			}
		}
	}
	if total := currentDaily + newDaily; total >= DailyHabitCeiling {
		return fmt.Errorf("daily habit load %d (current %d + suggested %d) reaches ceiling %d",
			total, currentDaily, newDaily, DailyHabitCeiling)
	}
	return nil
}

// JSON serializes the record as the output contract consumed by the
// persistence service.
func (r *SuggestionRecord) JSON() ([]byte, error) {
	return json.Marshal(r)
}
