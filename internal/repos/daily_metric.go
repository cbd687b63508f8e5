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

// DailyMetricRepo is the metrics provider: trailing daily series per
// (user, metric) with gaps represented as absent entries.
type DailyMetricRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, rows []*types.DailyMetric) error
	FetchSeries(ctx context.Context, tx *gorm.DB, userID uuid.UUID, metric vitality.MetricType, from, to time.Time) (vitality.MetricSeries, error)
	FetchAllSeries(ctx context.Context, tx *gorm.DB, userID uuid.UUID, metrics []vitality.MetricType, from, to time.Time) (map[vitality.MetricType]vitality.MetricSeries, error)
}

type dailyMetricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailyMetricRepo(db *gorm.DB, baseLog *logger.Logger) DailyMetricRepo {
	return &dailyMetricRepo{db: db, log: baseLog.With("repo", "DailyMetricRepo")}
}

func (r *dailyMetricRepo) Upsert(ctx context.Context, tx *gorm.DB, rows []*types.DailyMetric) error {
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
		row.Day = vitality.Day(row.Day)
		row.UpdatedAt = now
	}
	// Re-imported days overwrite in place, keeping ingestion idempotent.
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "metric_type"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"value", "updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *dailyMetricRepo) FetchSeries(ctx context.Context, tx *gorm.DB, userID uuid.UUID, metric vitality.MetricType, from, to time.Time) (vitality.MetricSeries, error) {
	all, err := r.FetchAllSeries(ctx, tx, userID, []vitality.MetricType{metric}, from, to)
	if err != nil {
		return nil, err
	}
	return all[metric], nil
}

func (r *dailyMetricRepo) FetchAllSeries(ctx context.Context, tx *gorm.DB, userID uuid.UUID, metrics []vitality.MetricType, from, to time.Time) (map[vitality.MetricType]vitality.MetricSeries, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[vitality.MetricType]vitality.MetricSeries, len(metrics))
	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		out[m] = vitality.MetricSeries{}
		names = append(names, string(m))
	}
	if len(names) == 0 {
		return out, nil
	}
	var rows []*types.DailyMetric
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND metric_type IN ? AND day >= ? AND day <= ?",
			userID, names, vitality.Day(from), vitality.Day(to)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		series, ok := out[vitality.MetricType(row.MetricType)]
		if !ok {
			continue
		}
		series.Set(row.Day, row.Value)
	}
	return out, nil
}
