package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/observability"
	"github.com/miyahealth/miya-backend/internal/repos"
	"github.com/miyahealth/miya-backend/internal/types"
	"github.com/miyahealth/miya-backend/internal/vitality"
)

// AlertConfig carries the engine tunables. ShadowMode suppresses notification
// side effects while episode tracking continues.
type AlertConfig struct {
	ShadowMode         bool
	ResolutionStreak   int
	RecoveryBandPoints float64
	Thresholds         []vitality.ThresholdConfig
}

// MetricOutcome reports what one metric's evaluation did on one date.
type MetricOutcome struct {
	Metric             vitality.MetricType  `json:"metric"`
	Pattern            vitality.PatternType `json:"pattern"`
	Transition         string               `json:"transition"`
	Level              int                  `json:"level,omitempty"`
	Severity           string               `json:"severity,omitempty"`
	NotifiedRecipients int                  `json:"notified_recipients"`
}

type UserEvaluation struct {
	UserID        uuid.UUID       `json:"user_id"`
	EvalDate      time.Time       `json:"eval_date"`
	Outcomes      []MetricOutcome `json:"outcomes"`
	FailedMetrics []string        `json:"failed_metrics,omitempty"`
}

// PatternAlertService is the per-user orchestrator: for one (user, date) it
// runs evaluator → exercise filter → episode tracker → notification gate for
// every configured metric, each metric as an independent unit of work.
type PatternAlertService interface {
	EvaluateUser(ctx context.Context, userID uuid.UUID, evalDate time.Time) (*UserEvaluation, error)
	ListEpisodes(ctx context.Context, userID uuid.UUID) ([]*types.PatternAlertEpisode, error)
}

type patternAlertService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          AlertConfig
	tracker      vitality.Tracker
	metricRepo   repos.DailyMetricRepo
	exerciseRepo repos.ExerciseSessionRepo
	episodeRepo  repos.PatternAlertEpisodeRepo
	notifier     AlertNotifier
	tracer       trace.Tracer
}

func NewPatternAlertService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg AlertConfig,
	metricRepo repos.DailyMetricRepo,
	exerciseRepo repos.ExerciseSessionRepo,
	episodeRepo repos.PatternAlertEpisodeRepo,
	notifier AlertNotifier,
) PatternAlertService {
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = vitality.DefaultThresholds()
	}
	return &patternAlertService{
		db:           db,
		log:          baseLog.With("service", "PatternAlertService"),
		cfg:          cfg,
		tracker:      vitality.NewTracker(cfg.ResolutionStreak, cfg.RecoveryBandPoints),
		metricRepo:   metricRepo,
		exerciseRepo: exerciseRepo,
		episodeRepo:  episodeRepo,
		notifier:     notifier,
		tracer:       observability.Tracer("pattern-alert"),
	}
}

func (s *patternAlertService) EvaluateUser(ctx context.Context, userID uuid.UUID, evalDate time.Time) (*UserEvaluation, error) {
	day := vitality.Day(evalDate)
	ctx, span := s.tracer.Start(ctx, "EvaluateUser",
		trace.WithAttributes(
			attribute.String("user_id", userID.String()),
			attribute.String("eval_date", day.Format("2006-01-02")),
		))
	defer span.End()

	from := vitality.AddDays(day, -(vitality.MaxLookbackDays - 1))
	metricNames := make([]vitality.MetricType, 0, len(s.cfg.Thresholds))
	for _, t := range s.cfg.Thresholds {
		metricNames = append(metricNames, t.Metric)
	}

	// One batched read for all series and one for exercise context; a failure
	// here aborts the whole user (nothing has been mutated yet).
	allSeries, err := s.metricRepo.FetchAllSeries(ctx, nil, userID, metricNames, from, day)
	if err != nil {
		return nil, fmt.Errorf("fetch series for user %s: %w", userID, err)
	}
	exerciseDays, err := s.exerciseRepo.FetchDays(ctx, nil, userID, from, day)
	if err != nil {
		return nil, fmt.Errorf("fetch exercise days for user %s: %w", userID, err)
	}

	eval := &UserEvaluation{UserID: userID, EvalDate: day}
	for _, tcfg := range s.cfg.Thresholds {
		outcome, err := s.evaluateMetric(ctx, userID, day, tcfg, allSeries[tcfg.Metric], exerciseDays)
		if err != nil {
			// One metric failing must not block the rest.
			s.log.Error("Metric evaluation failed",
				"user_id", userID,
				"metric", tcfg.Metric,
				"eval_date", day.Format("2006-01-02"),
				"error", err,
			)
			eval.FailedMetrics = append(eval.FailedMetrics, string(tcfg.Metric))
			continue
		}
		eval.Outcomes = append(eval.Outcomes, outcome)
	}
	return eval, nil
}

func (s *patternAlertService) ListEpisodes(ctx context.Context, userID uuid.UUID) ([]*types.PatternAlertEpisode, error) {
	return s.episodeRepo.ListByUser(ctx, nil, userID)
}

func (s *patternAlertService) evaluateMetric(ctx context.Context, userID uuid.UUID, day time.Time, tcfg vitality.ThresholdConfig, series vitality.MetricSeries, exerciseDays map[time.Time]bool) (MetricOutcome, error) {
	pattern := tcfg.PatternType()
	outcome := MetricOutcome{Metric: tcfg.Metric, Pattern: pattern}

	raw := vitality.Evaluate(series, day, tcfg)
	filtered := vitality.ApplyExerciseContext(tcfg, day, raw, exerciseDays)

	active, err := s.episodeRepo.GetActive(ctx, nil, userID, tcfg.Metric, pattern)
	if err != nil {
		// Read failure: skip, never mutate episode state on stale knowledge.
		return outcome, fmt.Errorf("get active episode: %w", err)
	}

	signal := func(d time.Time) bool {
		return vitality.EvaluateFiltered(series, d, tcfg, exerciseDays).PatternTrue
	}

	tr := s.tracker.Step(stateOf(active), filtered, tcfg, day, signal)
	outcome.Transition = tr.Kind.String()

	switch tr.Kind {
	case vitality.TransitionNone:
		return outcome, nil

	case vitality.TransitionOpen, vitality.TransitionRefresh:
		row := s.episodeRow(userID, tcfg, pattern, tr, filtered, active)
		persisted, err := s.episodeRepo.Upsert(ctx, nil, row)
		if err != nil {
			if !isWriteConflict(err) {
				return outcome, fmt.Errorf("persist episode: %w", err)
			}
			// Slot collision with a concurrent writer: re-read and retry the
			// transition once against fresh state.
			persisted, err = s.retryTransition(ctx, userID, day, tcfg, pattern, filtered, signal, &tr)
			if err != nil {
				return outcome, err
			}
			outcome.Transition = tr.Kind.String()
			if persisted == nil {
				return outcome, nil
			}
		}
		outcome.Level = tr.Level
		outcome.Severity = vitality.SeverityFor(tr.Level)

		if !vitality.ShouldNotify(s.cfg.ShadowMode, tr.Level, persisted.LastNotifiedLevel) {
			return outcome, nil
		}
		notified, err := s.notify(ctx, persisted, tr.Level)
		if err != nil {
			// last_notified_level was not advanced; the next run retries.
			return outcome, fmt.Errorf("notify episode %s: %w", persisted.ID, err)
		}
		outcome.NotifiedRecipients = notified
		return outcome, nil

	case vitality.TransitionCountdown:
		outcome.Level = tr.Level
		outcome.Severity = vitality.SeverityFor(tr.Level)
		if err := s.episodeRepo.UpdateStreak(ctx, nil, active.ID, tr.UnresolvedStreak); err != nil {
			return outcome, fmt.Errorf("update streak: %w", err)
		}
		return outcome, nil

	case vitality.TransitionResolve:
		if err := s.episodeRepo.Resolve(ctx, nil, active.ID); err != nil {
			return outcome, fmt.Errorf("resolve episode: %w", err)
		}
		s.log.Info("Episode resolved",
			"user_id", userID,
			"metric", tcfg.Metric,
			"episode_id", active.ID,
		)
		return outcome, nil
	}
	return outcome, nil
}

// notify enqueues recipient notifications and advances the episode's
// last-notified bookkeeping in one transaction, then broadcasts after commit.
// If the enqueue fails nothing advances, so the same notification is retried
// on the next run rather than silently lost.
func (s *patternAlertService) notify(ctx context.Context, episode *types.PatternAlertEpisode, level int) (int, error) {
	var rows []*types.Notification
	err := s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		var err error
		rows, err = s.notifier.Enqueue(ctx, txn, episode)
		if err != nil {
			return err
		}
		return s.episodeRepo.MarkNotified(ctx, txn, episode.ID, level, time.Now().UTC())
	})
	if err != nil {
		return 0, err
	}
	s.notifier.Broadcast(ctx, rows, vitality.SeverityFor(level))
	return len(rows), nil
}

func (s *patternAlertService) retryTransition(ctx context.Context, userID uuid.UUID, day time.Time, tcfg vitality.ThresholdConfig, pattern vitality.PatternType, filtered vitality.EvalResult, signal func(time.Time) bool, tr *vitality.Transition) (*types.PatternAlertEpisode, error) {
	active, err := s.episodeRepo.GetActive(ctx, nil, userID, tcfg.Metric, pattern)
	if err != nil {
		return nil, fmt.Errorf("re-read active episode: %w", err)
	}
	*tr = s.tracker.Step(stateOf(active), filtered, tcfg, day, signal)
	if tr.Kind != vitality.TransitionOpen && tr.Kind != vitality.TransitionRefresh {
		return nil, nil
	}
	row := s.episodeRow(userID, tcfg, pattern, *tr, filtered, active)
	persisted, err := s.episodeRepo.Upsert(ctx, nil, row)
	if err != nil {
		return nil, fmt.Errorf("episode upsert conflict persisted across retry: %w", err)
	}
	return persisted, nil
}

func (s *patternAlertService) episodeRow(userID uuid.UUID, tcfg vitality.ThresholdConfig, pattern vitality.PatternType, tr vitality.Transition, result vitality.EvalResult, active *types.PatternAlertEpisode) *types.PatternAlertEpisode {
	row := &types.PatternAlertEpisode{
		UserID:           userID,
		MetricType:       string(tcfg.Metric),
		PatternType:      string(pattern),
		EpisodeStatus:    types.EpisodeStatusActive,
		ActiveSince:      tr.ActiveSince,
		CurrentLevel:     tr.Level,
		BaselineValue:    result.Baseline,
		RecentValue:      result.Recent,
		DeviationPercent: result.DeviationPercent,
		UnresolvedStreak: tr.UnresolvedStreak,
	}
	if active != nil {
		row.ID = active.ID
		row.LastNotifiedLevel = active.LastNotifiedLevel
		row.LastNotifiedAt = active.LastNotifiedAt
		row.CreatedAt = active.CreatedAt
	}
	return row
}

// isWriteConflict reports whether err is a uniqueness collision from a
// concurrent writer on the episode slot. Only those earn the single retry;
// anything else surfaces to the caller.
func isWriteConflict(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func stateOf(row *types.PatternAlertEpisode) *vitality.EpisodeState {
	if row == nil {
		return nil
	}
	return &vitality.EpisodeState{
		ActiveSince:      row.ActiveSince,
		CurrentLevel:     row.CurrentLevel,
		UnresolvedStreak: row.UnresolvedStreak,
	}
}
