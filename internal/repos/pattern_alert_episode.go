package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/types"
	"github.com/miyahealth/miya-backend/internal/vitality"
)

// PatternAlertEpisodeRepo is the episode persistence store. Upsert goes
// through the (user, metric, pattern, active_since) slot key so the database
// enforces the single-active-episode invariant instead of application code
// racing a check-then-write.
type PatternAlertEpisodeRepo interface {
	GetActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, metric vitality.MetricType, pattern vitality.PatternType) (*types.PatternAlertEpisode, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.PatternAlertEpisode) (*types.PatternAlertEpisode, error)
	UpdateStreak(ctx context.Context, tx *gorm.DB, id uuid.UUID, streak int) error
	Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkNotified(ctx context.Context, tx *gorm.DB, id uuid.UUID, level int, at time.Time) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PatternAlertEpisode, error)
}

type patternAlertEpisodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternAlertEpisodeRepo(db *gorm.DB, baseLog *logger.Logger) PatternAlertEpisodeRepo {
	return &patternAlertEpisodeRepo{db: db, log: baseLog.With("repo", "PatternAlertEpisodeRepo")}
}

func (r *patternAlertEpisodeRepo) GetActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, metric vitality.MetricType, pattern vitality.PatternType) (*types.PatternAlertEpisode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.PatternAlertEpisode
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND metric_type = ? AND pattern_type = ? AND episode_status = ?",
			userID, string(metric), string(pattern), types.EpisodeStatusActive).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

// Upsert inserts the row or, when its slot already exists, refreshes the
// mutable fields of the existing row. The returned row is always the canonical
// persisted one, so a retried open lands on the original episode ID.
func (r *patternAlertEpisodeRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.PatternAlertEpisode) (*types.PatternAlertEpisode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = now
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "metric_type"}, {Name: "pattern_type"}, {Name: "active_since"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"episode_status", "current_level", "baseline_value", "recent_value",
				"deviation_percent", "unresolved_streak", "updated_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}

	var persisted types.PatternAlertEpisode
	err = transaction.WithContext(ctx).
		Where("user_id = ? AND metric_type = ? AND pattern_type = ? AND active_since = ?",
			row.UserID, row.MetricType, row.PatternType, row.ActiveSince).
		Limit(1).
		Find(&persisted).Error
	if err != nil {
		return nil, err
	}
	return &persisted, nil
}

func (r *patternAlertEpisodeRepo) UpdateStreak(ctx context.Context, tx *gorm.DB, id uuid.UUID, streak int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.PatternAlertEpisode{}).
		Where("id = ? AND episode_status = ?", id, types.EpisodeStatusActive).
		Updates(map[string]interface{}{
			"unresolved_streak": streak,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *patternAlertEpisodeRepo) Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.PatternAlertEpisode{}).
		Where("id = ? AND episode_status = ?", id, types.EpisodeStatusActive).
		Updates(map[string]interface{}{
			"episode_status": types.EpisodeStatusResolved,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (r *patternAlertEpisodeRepo) MarkNotified(ctx context.Context, tx *gorm.DB, id uuid.UUID, level int, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.PatternAlertEpisode{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_notified_level": level,
			"last_notified_at":    at,
			"updated_at":          time.Now().UTC(),
		}).Error
}

func (r *patternAlertEpisodeRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PatternAlertEpisode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.PatternAlertEpisode
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("active_since DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
