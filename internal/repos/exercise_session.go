package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/types"
	"github.com/miyahealth/miya-backend/internal/vitality"
)

// ExerciseSessionRepo is the exercise-context provider.
type ExerciseSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.ExerciseSession) error
	FetchDays(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) (map[time.Time]bool, error)
}

type exerciseSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExerciseSessionRepo(db *gorm.DB, baseLog *logger.Logger) ExerciseSessionRepo {
	return &exerciseSessionRepo{db: db, log: baseLog.With("repo", "ExerciseSessionRepo")}
}

func (r *exerciseSessionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ExerciseSession) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		row.Day = vitality.Day(row.Day)
	}
	return transaction.WithContext(ctx).Create(&rows).Error
}

func (r *exerciseSessionRepo) FetchDays(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) (map[time.Time]bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var days []time.Time
	if err := transaction.WithContext(ctx).
		Model(&types.ExerciseSession{}).
		Where("user_id = ? AND day >= ? AND day <= ?", userID, vitality.Day(from), vitality.Day(to)).
		Distinct().
		Pluck("day", &days).Error; err != nil {
		return nil, err
	}
	out := make(map[time.Time]bool, len(days))
	for _, d := range days {
		out[vitality.Day(d)] = true
	}
	return out, nil
}
