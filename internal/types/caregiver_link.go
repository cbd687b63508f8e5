package types

import (
	"time"

	"github.com/google/uuid"
)

// CaregiverLink entitles one account to receive alerts about a family member.
type CaregiverLink struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID      uuid.UUID `gorm:"type:uuid;not null;index;column:member_id" json:"member_id"`
	Member        *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:MemberID;references:ID" json:"member,omitempty"`
	CaregiverID   uuid.UUID `gorm:"type:uuid;not null;index;column:caregiver_id" json:"caregiver_id"`
	Caregiver     *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaregiverID;references:ID" json:"caregiver,omitempty"`
	Relationship  string    `gorm:"column:relationship" json:"relationship"`
	NotifyEnabled bool      `gorm:"not null;column:notify_enabled" json:"notify_enabled"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (CaregiverLink) TableName() string {
	return "caregiver_link"
}
