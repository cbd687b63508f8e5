package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/types"
)

// NotificationRepo is the notification sink: rows are enqueued here and picked
// up by a delivery worker outside this service.
type NotificationRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, rows []*types.Notification) error
	ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, limit int) ([]*types.Notification, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (r *notificationRepo) Enqueue(ctx context.Context, tx *gorm.DB, rows []*types.Notification) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.Status == "" {
			row.Status = types.NotificationStatusPending
		}
		row.CreatedAt = now
		row.UpdatedAt = now
	}
	return transaction.WithContext(ctx).Create(&rows).Error
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, limit int) ([]*types.Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []*types.Notification
	if err := transaction.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
