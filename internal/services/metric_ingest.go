package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/repos"
	"github.com/miyahealth/miya-backend/internal/types"
	"github.com/miyahealth/miya-backend/internal/vitality"
)

// DailyReading is one ingested value, as produced by the wearable export
// pipeline (date, metric, scalar). Days without readings are simply not sent.
type DailyReading struct {
	Day    time.Time           `json:"day" binding:"required"`
	Metric vitality.MetricType `json:"metric" binding:"required"`
	Value  float64             `json:"value"`
}

type ExerciseEntry struct {
	Day             time.Time `json:"day" binding:"required"`
	ActivityType    string    `json:"activity_type"`
	DurationMinutes int       `json:"duration_minutes"`
}

// MetricIngestService lands daily readings and kicks off evaluation for the
// affected user, so an alert can fire the moment a new day's data arrives.
type MetricIngestService interface {
	IngestDaily(ctx context.Context, userID uuid.UUID, readings []DailyReading) (*UserEvaluation, error)
	RecordExercise(ctx context.Context, userID uuid.UUID, entries []ExerciseEntry) error
}

type metricIngestService struct {
	db           *gorm.DB
	log          *logger.Logger
	metricRepo   repos.DailyMetricRepo
	exerciseRepo repos.ExerciseSessionRepo
	alerts       PatternAlertService
}

func NewMetricIngestService(db *gorm.DB, baseLog *logger.Logger, metricRepo repos.DailyMetricRepo, exerciseRepo repos.ExerciseSessionRepo, alerts PatternAlertService) MetricIngestService {
	return &metricIngestService{
		db:           db,
		log:          baseLog.With("service", "MetricIngestService"),
		metricRepo:   metricRepo,
		exerciseRepo: exerciseRepo,
		alerts:       alerts,
	}
}

func (s *metricIngestService) IngestDaily(ctx context.Context, userID uuid.UUID, readings []DailyReading) (*UserEvaluation, error) {
	if len(readings) == 0 {
		return nil, fmt.Errorf("no readings supplied")
	}
	rows := make([]*types.DailyMetric, 0, len(readings))
	latest := vitality.Day(readings[0].Day)
	for _, r := range readings {
		day := vitality.Day(r.Day)
		if day.After(latest) {
			latest = day
		}
		rows = append(rows, &types.DailyMetric{
			UserID:     userID,
			MetricType: string(r.Metric),
			Day:        day,
			Value:      r.Value,
		})
	}
	if err := s.metricRepo.Upsert(ctx, nil, rows); err != nil {
		return nil, fmt.Errorf("upsert daily metrics: %w", err)
	}
	s.log.Info("Ingested daily readings", "user_id", userID, "count", len(rows), "latest_day", latest.Format("2006-01-02"))

	// Evaluate the most recent ingested day; the evaluation re-derives
	// everything from stored series, so re-imports stay idempotent.
	return s.alerts.EvaluateUser(ctx, userID, latest)
}

func (s *metricIngestService) RecordExercise(ctx context.Context, userID uuid.UUID, entries []ExerciseEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no sessions supplied")
	}
	rows := make([]*types.ExerciseSession, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &types.ExerciseSession{
			UserID:          userID,
			Day:             vitality.Day(e.Day),
			ActivityType:    e.ActivityType,
			DurationMinutes: e.DurationMinutes,
		})
	}
	return s.exerciseRepo.Create(ctx, nil, rows)
}
