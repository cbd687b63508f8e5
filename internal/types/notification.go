package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
)

// Notification is an enqueued caregiver alert awaiting asynchronous delivery.
// Payload carries the evaluation snapshot so downstream rendering never has to
// re-derive it.
type Notification struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID  uuid.UUID      `gorm:"type:uuid;not null;index;column:recipient_id" json:"recipient_id"`
	MemberUserID uuid.UUID      `gorm:"type:uuid;not null;index;column:member_user_id" json:"member_user_id"`
	EpisodeID    uuid.UUID      `gorm:"type:uuid;not null;index;column:episode_id" json:"episode_id"`
	Payload      datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	Status       string         `gorm:"not null;index;column:status" json:"status"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (Notification) TableName() string {
	return "notification"
}
