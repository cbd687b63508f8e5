package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	EpisodeStatusActive   = "active"
	EpisodeStatusResolved = "resolved"
)

// PatternAlertEpisode is a persisted contiguous run of a metric's
// abnormal-pattern condition for one user. Rows are append-only history:
// resolution closes a row, a later recurrence creates a new one. The unique
// index on (user, metric, pattern, active_since) is the slot key all writers
// upsert through, so concurrent or retried evaluations cannot create a second
// row for the same run.
type PatternAlertEpisode struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_episode_slot;index;column:user_id" json:"user_id"`
	User              *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	MetricType        string     `gorm:"not null;uniqueIndex:idx_episode_slot;column:metric_type" json:"metric_type"`
	PatternType       string     `gorm:"not null;uniqueIndex:idx_episode_slot;column:pattern_type" json:"pattern_type"`
	EpisodeStatus     string     `gorm:"not null;index;column:episode_status" json:"episode_status"`
	ActiveSince       time.Time  `gorm:"not null;uniqueIndex:idx_episode_slot;column:active_since" json:"active_since"`
	CurrentLevel      int        `gorm:"not null;column:current_level" json:"current_level"`
	LastNotifiedLevel *int       `gorm:"column:last_notified_level" json:"last_notified_level,omitempty"`
	LastNotifiedAt    *time.Time `gorm:"column:last_notified_at" json:"last_notified_at,omitempty"`
	BaselineValue     *float64   `gorm:"column:baseline_value" json:"baseline_value,omitempty"`
	RecentValue       *float64   `gorm:"column:recent_value" json:"recent_value,omitempty"`
	DeviationPercent  *float64   `gorm:"column:deviation_percent" json:"deviation_percent,omitempty"`
	UnresolvedStreak  int        `gorm:"not null;default:0;column:unresolved_streak" json:"unresolved_streak"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
}

func (PatternAlertEpisode) TableName() string {
	return "pattern_alert_episode"
}
