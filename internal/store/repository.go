package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ItemText is the title+description pair the similarity filter compares against.
type ItemText struct {
	ID          string
	Title       string
	Description string
}

// AcceptanceSnapshot aggregates per-kind feedback statistics for one user.
type AcceptanceSnapshot struct {
	Kind           ItemKind
	Accepted       int
	Upvotes        int
	Downvotes      int
	Dismissed      int
	AcceptanceRate float64
}

// Exemplar is a past accepted or rejected suggestion surfaced in the prompt
// as a few-shot example.
type Exemplar struct {
	Kind        ItemKind
	Title       string
	Description string
	ReasonCode  string
	Accepted    bool
}

// Repository provides the pipeline's read-only view of the relational store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ItemTexts returns the title+description of every non-archived item of one
// kind owned by the user.
func (r *Repository) ItemTexts(ctx context.Context, userID uint, kind ItemKind) ([]ItemText, error) {
	var out []ItemText
	var err error
	switch kind {
	case KindGoal:
		err = r.db.WithContext(ctx).Model(&Goal{}).
			Where("user_id = ? AND status <> ?", userID, "archived").
			Select("id", "title", "description").Scan(&out).Error
	case KindHabit:
		err = r.db.WithContext(ctx).Model(&Habit{}).
			Where("user_id = ? AND status <> ?", userID, "archived").
			Select("id", "title", "description").Scan(&out).Error
	case KindInsight:
		err = r.db.WithContext(ctx).Model(&Insight{}).
			Where("user_id = ? AND status <> ?", userID, "archived").
			Select("id", "title", "explanation as description").Scan(&out).Error
	default:
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s texts: %w", kind, err)
	}
	return out, nil
}

// ActiveGoals returns the user's active goals, habits preloaded.
func (r *Repository) ActiveGoals(ctx context.Context, userID uint) ([]Goal, error) {
	var goals []Goal
	err := r.db.WithContext(ctx).Preload("Habits").
		Where("user_id = ? AND status = ?", userID, "active").
		Order("created_at DESC").
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active goals: %w", err)
	}
	return goals, nil
}

// RecentHabits returns the user's most recently created active habits.
func (r *Repository) RecentHabits(ctx context.Context, userID uint, limit int) ([]Habit, error) {
	var habits []Habit
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, "active").
		Order("created_at DESC").
		Limit(limit).
		Find(&habits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent habits: %w", err)
	}
	return habits, nil
}

// LifeMetrics returns the user's life-metric definitions (name + identifier).
func (r *Repository) LifeMetrics(ctx context.Context, userID uint) ([]LifeMetric, error) {
	var metrics []LifeMetric
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&metrics).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load life metrics: %w", err)
	}
	return metrics, nil
}

// DailyHabitCount returns the number of active daily-frequency habits across
// all of the user's active goals.
func (r *Repository) DailyHabitCount(ctx context.Context, userID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Habit{}).
		Where("user_id = ? AND status = ? AND frequency = ?", userID, "active", "daily").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count daily habits: %w", err)
	}
	return int(count), nil
}

// AcceptanceSnapshots returns the current calendar-month rollups for the user.
// When no rollup rows exist, it falls back to computing a rate from the raw
// feedback events of the last 30 days.
func (r *Repository) AcceptanceSnapshots(ctx context.Context, userID uint, now time.Time) ([]AcceptanceSnapshot, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var rows []AcceptanceMetric
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND period_start = ?", userID, monthStart).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load acceptance metrics: %w", err)
	}

	if len(rows) > 0 {
		out := make([]AcceptanceSnapshot, 0, len(rows))
		for _, m := range rows {
			out = append(out, AcceptanceSnapshot{
				Kind:           m.ItemKind,
				Accepted:       m.Accepted,
				Upvotes:        m.Upvotes,
				Downvotes:      m.Downvotes,
				Dismissed:      m.Dismissed,
				AcceptanceRate: m.AcceptanceRate,
			})
		}
		return out, nil
	}

	return r.acceptanceFromEvents(ctx, userID, now.AddDate(0, 0, -30))
}

// acceptanceFromEvents is the 30-day fallback over raw feedback events.
func (r *Repository) acceptanceFromEvents(ctx context.Context, userID uint, since time.Time) ([]AcceptanceSnapshot, error) {
	var events []FeedbackEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback events: %w", err)
	}

	byKind := make(map[ItemKind]*AcceptanceSnapshot)
	for _, ev := range events {
		snap, ok := byKind[ev.ItemKind]
		if !ok {
			snap = &AcceptanceSnapshot{Kind: ev.ItemKind}
			byKind[ev.ItemKind] = snap
		}
		switch ev.Kind {
		case FeedbackAccepted:
			snap.Accepted++
		case FeedbackUpvote:
			snap.Upvotes++
		case FeedbackDownvote:
			snap.Downvotes++
		case FeedbackDismiss:
			snap.Dismissed++
		}
	}

	out := make([]AcceptanceSnapshot, 0, len(byKind))
	for _, snap := range byKind {
		total := snap.Accepted + snap.Downvotes + snap.Dismissed
		if total > 0 {
			snap.AcceptanceRate = float64(snap.Accepted) / float64(total)
		}
		out = append(out, *snap)
	}
	return out, nil
}

// Exemplars returns the most recent accepted (up to maxAccepted) and rejected
// (up to maxRejected) suggestions with their titles and reason codes.
func (r *Repository) Exemplars(ctx context.Context, userID uint, maxAccepted, maxRejected int) ([]Exemplar, error) {
	accepted, err := r.exemplarsByKind(ctx, userID, FeedbackAccepted, maxAccepted)
	if err != nil {
		return nil, err
	}
	rejected, err := r.exemplarsByKind(ctx, userID, FeedbackRejected, maxRejected)
	if err != nil {
		return nil, err
	}
	return append(accepted, rejected...), nil
}

func (r *Repository) exemplarsByKind(ctx context.Context, userID uint, fk FeedbackKind, limit int) ([]Exemplar, error) {
	var events []FeedbackEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, fk).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s feedback: %w", fk, err)
	}

	out := make([]Exemplar, 0, len(events))
	for _, ev := range events {
		title, desc, err := r.itemText(ctx, ev.ItemKind, ev.ItemID)
		if err != nil {
			// Item may have been deleted since the feedback was recorded.
			continue
		}
		out = append(out, Exemplar{
			Kind:        ev.ItemKind,
			Title:       title,
			Description: desc,
			ReasonCode:  ev.ReasonCode,
			Accepted:    fk == FeedbackAccepted,
		})
	}
	return out, nil
}

func (r *Repository) itemText(ctx context.Context, kind ItemKind, id string) (string, string, error) {
	switch kind {
	case KindGoal:
		var g Goal
		if err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
			return "", "", err
		}
		return g.Title, g.Description, nil
	case KindHabit:
		var h Habit
		if err := r.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
			return "", "", err
		}
		return h.Title, h.Description, nil
	case KindInsight:
		var i Insight
		if err := r.db.WithContext(ctx).First(&i, "id = ?", id).Error; err != nil {
			return "", "", err
		}
		return i.Title, i.Explanation, nil
	}
	return "", "", fmt.Errorf("unknown item kind %q", kind)
}
