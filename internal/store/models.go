package store

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ItemKind distinguishes the three suggestion-bearing item types.
type ItemKind string

const (
	KindGoal    ItemKind = "goal"
	KindHabit   ItemKind = "habit"
	KindInsight ItemKind = "insight"
)

// FeedbackKind tags a user reaction to a suggested item.
type FeedbackKind string

const (
	FeedbackAccepted FeedbackKind = "accepted"
	FeedbackRejected FeedbackKind = "rejected"
	FeedbackUpvote   FeedbackKind = "upvote"
	FeedbackDownvote FeedbackKind = "downvote"
	FeedbackDismiss  FeedbackKind = "dismiss"
)

// LifeMetric is a named dimension of the user's life (e.g. "Career Growth")
// that goals, habits and insights are tagged against.
type LifeMetric struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Goal struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	UserID       uint           `gorm:"index" json:"user_id"`
	Title        string         `gorm:"size:200;not null" json:"title"`
	Description  string         `json:"description"`
	LifeMetricID string         `gorm:"size:36" json:"life_metric_id"`
	Status       string         `gorm:"size:16;default:'active';index" json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
	Habits       []Habit        `json:"-" gorm:"foreignKey:GoalID"`
}

type Habit struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	UserID         uint           `gorm:"index" json:"user_id"`
	GoalID         string         `gorm:"size:36;index" json:"goal_id"`
	Title          string         `gorm:"size:200;not null" json:"title"`
	Description    string         `json:"description"`
	LifeMetricID   string         `gorm:"size:36" json:"life_metric_id"`
	Priority       int            `json:"priority"` // 1=essential, 2=helpful, 3=optional
	IsHighLeverage bool           `json:"is_high_leverage"`
	GoalTypeTags   datatypes.JSON `gorm:"type:jsonb" json:"goal_type_tags"`
	Frequency      string         `gorm:"size:16" json:"frequency"` // daily, weekly, monthly
	TargetCount    int            `json:"target_count"`
	Status         string         `gorm:"size:16;default:'active';index" json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

type Insight struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint           `gorm:"index" json:"user_id"`
	Title         string         `gorm:"size:200;not null" json:"title"`
	Explanation   string         `json:"explanation"`
	Confidence    int            `json:"confidence"` // 0-100
	LifeMetricIDs datatypes.JSON `gorm:"type:jsonb" json:"life_metric_ids"`
	Status        string         `gorm:"size:16;default:'active';index" json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// FeedbackEvent records a single user reaction to a suggested item. Written by
// the wizard flows downstream of the pipeline; this service only reads them.
type FeedbackEvent struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	UserID     uint           `gorm:"index" json:"user_id"`
	ItemKind   ItemKind       `gorm:"size:16;index" json:"item_kind"`
	ItemID     string         `gorm:"size:36" json:"item_id"`
	Kind       FeedbackKind   `gorm:"size:16;index" json:"kind"`
	ReasonCode string         `gorm:"size:64" json:"reason_code"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
}

// AcceptanceMetric is the per-user, per-kind monthly rollup maintained by the
// downstream snapshot job.
type AcceptanceMetric struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index:idx_acceptance_user_period" json:"user_id"`
	ItemKind       ItemKind  `gorm:"size:16" json:"item_kind"`
	PeriodStart    time.Time `gorm:"index:idx_acceptance_user_period" json:"period_start"`
	Accepted       int       `json:"accepted"`
	Upvotes        int       `json:"upvotes"`
	Downvotes      int       `json:"downvotes"`
	Dismissed      int       `json:"dismissed"`
	AcceptanceRate float64   `json:"acceptance_rate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
