package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/types"
)

// CaregiverLinkRepo is the recipient resolver: which accounts are entitled to
// be notified about a member.
type CaregiverLinkRepo interface {
	Create(ctx context.Context, tx *gorm.DB, links []*types.CaregiverLink) error
	ResolveRecipients(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]uuid.UUID, error)
}

type caregiverLinkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaregiverLinkRepo(db *gorm.DB, baseLog *logger.Logger) CaregiverLinkRepo {
	return &caregiverLinkRepo{db: db, log: baseLog.With("repo", "CaregiverLinkRepo")}
}

func (r *caregiverLinkRepo) Create(ctx context.Context, tx *gorm.DB, links []*types.CaregiverLink) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(links) == 0 {
		return nil
	}
	for _, l := range links {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
	}
	return transaction.WithContext(ctx).Create(&links).Error
}

func (r *caregiverLinkRepo) ResolveRecipients(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.CaregiverLink{}).
		Where("member_id = ? AND notify_enabled = ?", memberID, true).
		Pluck("caregiver_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
