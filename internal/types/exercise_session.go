package types

import (
	"time"

	"github.com/google/uuid"
)

type ExerciseSession struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index:idx_exercise_user_day;column:user_id" json:"user_id"`
	User            *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Day             time.Time `gorm:"not null;index:idx_exercise_user_day;column:day" json:"day"`
	ActivityType    string    `gorm:"column:activity_type" json:"activity_type"`
	DurationMinutes int       `gorm:"column:duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
}

func (ExerciseSession) TableName() string {
	return "exercise_session"
}
