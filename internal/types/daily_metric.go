package types

import (
	"time"

	"github.com/google/uuid"
)

// DailyMetric is one scalar reading for one (user, metric, day). Days with no
// reading have no row at all; a gap is never stored as a zero.
type DailyMetric struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_daily_metric_day;column:user_id" json:"user_id"`
	User       *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	MetricType string    `gorm:"not null;uniqueIndex:idx_daily_metric_day;column:metric_type" json:"metric_type"`
	Day        time.Time `gorm:"not null;uniqueIndex:idx_daily_metric_day;column:day" json:"day"`
	Value      float64   `gorm:"not null;column:value" json:"value"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (DailyMetric) TableName() string {
	return "daily_metric"
}
