package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	redisclient "github.com/miyahealth/miya-backend/internal/clients/redis"
	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/repos"
	"github.com/miyahealth/miya-backend/internal/types"
	"github.com/miyahealth/miya-backend/internal/vitality"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// captureBus records published alert events instead of touching redis.
type captureBus struct {
	mu     sync.Mutex
	events []redisclient.AlertEvent
}

func (b *captureBus) Publish(_ context.Context, ev redisclient.AlertEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *captureBus) StartForwarder(context.Context, func(redisclient.AlertEvent)) error { return nil }
func (b *captureBus) Close() error                                                       { return nil }

func (b *captureBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// alertHarness wires the real repos and notifier over an in-memory database.
type alertHarness struct {
	db           *gorm.DB
	bus          *captureBus
	metricRepo   repos.DailyMetricRepo
	exerciseRepo repos.ExerciseSessionRepo
	episodeRepo  repos.PatternAlertEpisodeRepo
	notifRepo    repos.NotificationRepo
	member       *types.User
	caregiver    *types.User
	svc          PatternAlertService
}

func newAlertHarness(t *testing.T, cfg AlertConfig, withCaregiver bool) *alertHarness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&types.User{},
		&types.CaregiverLink{},
		&types.DailyMetric{},
		&types.ExerciseSession{},
		&types.PatternAlertEpisode{},
		&types.Notification{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	log := testLogger()
	h := &alertHarness{
		db:           db,
		bus:          &captureBus{},
		metricRepo:   repos.NewDailyMetricRepo(db, log),
		exerciseRepo: repos.NewExerciseSessionRepo(db, log),
		episodeRepo:  repos.NewPatternAlertEpisodeRepo(db, log),
		notifRepo:    repos.NewNotificationRepo(db, log),
	}

	userRepo := repos.NewUserRepo(db, log)
	users, err := userRepo.Create(context.Background(), nil, []*types.User{
		{Email: "member@example.com", FirstName: "Mia", LastName: "Member"},
		{Email: "caregiver@example.com", FirstName: "Cara", LastName: "Giver"},
	})
	if err != nil {
		t.Fatalf("seed users: %v", err)
	}
	h.member, h.caregiver = users[0], users[1]

	if withCaregiver {
		caregiverRepo := repos.NewCaregiverLinkRepo(db, log)
		err = caregiverRepo.Create(context.Background(), nil, []*types.CaregiverLink{
			{MemberID: h.member.ID, CaregiverID: h.caregiver.ID, Relationship: "daughter", NotifyEnabled: true},
		})
		if err != nil {
			t.Fatalf("seed caregiver link: %v", err)
		}
	}

	notifier := NewAlertNotifier(db, log, repos.NewCaregiverLinkRepo(db, log), h.notifRepo, h.bus)
	h.svc = NewPatternAlertService(db, log, cfg, h.metricRepo, h.exerciseRepo, h.episodeRepo, notifier)
	return h
}

// withEpisodeRepo rebuilds the alert service around a substitute episode repo.
func (h *alertHarness) withEpisodeRepo(cfg AlertConfig, episodeRepo repos.PatternAlertEpisodeRepo) PatternAlertService {
	log := testLogger()
	notifier := NewAlertNotifier(h.db, log, repos.NewCaregiverLinkRepo(h.db, log), h.notifRepo, h.bus)
	return NewPatternAlertService(h.db, log, cfg, h.metricRepo, h.exerciseRepo, episodeRepo, notifier)
}

// fillRange writes one value for every day in [from, to].
func (h *alertHarness) fillRange(t *testing.T, metric vitality.MetricType, from, to time.Time, value float64) {
	t.Helper()
	var rows []*types.DailyMetric
	for day := vitality.Day(from); !day.After(vitality.Day(to)); day = vitality.AddDays(day, 1) {
		rows = append(rows, &types.DailyMetric{
			UserID:     h.member.ID,
			MetricType: string(metric),
			Day:        day,
			Value:      value,
		})
	}
	if err := h.metricRepo.Upsert(context.Background(), nil, rows); err != nil {
		t.Fatalf("seed metrics: %v", err)
	}
}

// seedDrop lays a steady run of high values followed by lowDays of low values
// ending on evalDate.
func (h *alertHarness) seedDrop(t *testing.T, metric vitality.MetricType, evalDate time.Time, high, low float64, lowDays int) {
	t.Helper()
	day := vitality.Day(evalDate)
	h.fillRange(t, metric, vitality.AddDays(day, -25), vitality.AddDays(day, -lowDays), high)
	h.fillRange(t, metric, vitality.AddDays(day, -(lowDays-1)), day, low)
}

func (h *alertHarness) activeEpisode(t *testing.T, metric vitality.MetricType) *types.PatternAlertEpisode {
	t.Helper()
	row, err := h.episodeRepo.GetActive(context.Background(), nil, h.member.ID, metric, vitality.PatternDropVsBaseline)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	return row
}

func (h *alertHarness) notificationCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := h.db.Model(&types.Notification{}).Count(&count).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return count
}

func (h *alertHarness) evaluate(t *testing.T, evalDate time.Time) *UserEvaluation {
	t.Helper()
	eval, err := h.svc.EvaluateUser(context.Background(), h.member.ID, evalDate)
	if err != nil {
		t.Fatalf("evaluate user: %v", err)
	}
	if len(eval.FailedMetrics) != 0 {
		t.Fatalf("failed metrics: %v", eval.FailedMetrics)
	}
	return eval
}

func outcomeFor(t *testing.T, eval *UserEvaluation, metric vitality.MetricType) MetricOutcome {
	t.Helper()
	for _, o := range eval.Outcomes {
		if o.Metric == metric {
			return o
		}
	}
	t.Fatalf("no outcome for %s in %+v", metric, eval.Outcomes)
	return MetricOutcome{}
}

var stepsOnly = []vitality.ThresholdConfig{
	{Metric: vitality.MetricSteps, Direction: vitality.DropTriggers, DeviationPercent: 20},
}
