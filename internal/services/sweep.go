package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/observability"
	"github.com/miyahealth/miya-backend/internal/repos"
	"github.com/miyahealth/miya-backend/internal/vitality"
)

type SweepResult struct {
	EvalDate  time.Time `json:"eval_date"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// SweepService runs the batch evaluation across every user. Users are
// processed concurrently under a bounded pool; one user failing is logged and
// skipped, never fatal to the sweep. Cancellation takes effect between users.
type SweepService interface {
	Run(ctx context.Context, evalDate time.Time) (*SweepResult, error)
	Start(ctx context.Context)
}

type sweepService struct {
	log            *logger.Logger
	userRepo       repos.UserRepo
	alerts         PatternAlertService
	concurrency    int
	perUserTimeout time.Duration
	interval       time.Duration
	tracer         trace.Tracer
}

func NewSweepService(baseLog *logger.Logger, userRepo repos.UserRepo, alerts PatternAlertService, concurrency int, perUserTimeout, interval time.Duration) SweepService {
	if concurrency < 1 {
		concurrency = 1
	}
	if perUserTimeout <= 0 {
		perUserTimeout = 30 * time.Second
	}
	return &sweepService{
		log:            baseLog.With("service", "SweepService"),
		userRepo:       userRepo,
		alerts:         alerts,
		concurrency:    concurrency,
		perUserTimeout: perUserTimeout,
		interval:       interval,
		tracer:         observability.Tracer("sweep"),
	}
}

func (s *sweepService) Run(ctx context.Context, evalDate time.Time) (*SweepResult, error) {
	day := vitality.Day(evalDate)
	ctx, span := s.tracer.Start(ctx, "Sweep",
		trace.WithAttributes(attribute.String("eval_date", day.Format("2006-01-02"))))
	defer span.End()

	ids, err := s.userRepo.ListIDs(ctx, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info("Starting sweep", "eval_date", day.Format("2006-01-02"), "users", len(ids), "concurrency", s.concurrency)

	var succeeded, failed int64
	g := &errgroup.Group{}
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		userID := id
		g.Go(func() error {
			uctx, cancel := context.WithTimeout(ctx, s.perUserTimeout)
			defer cancel()
			if _, err := s.alerts.EvaluateUser(uctx, userID, day); err != nil {
				s.log.Warn("Sweep: user evaluation failed, skipping",
					"user_id", userID,
					"eval_date", day.Format("2006-01-02"),
					"error", err,
				)
				atomic.AddInt64(&failed, 1)
				return nil
			}
			atomic.AddInt64(&succeeded, 1)
			return nil
		})
	}
	_ = g.Wait()

	res := &SweepResult{
		EvalDate:  day,
		Total:     len(ids),
		Succeeded: int(atomic.LoadInt64(&succeeded)),
		Failed:    int(atomic.LoadInt64(&failed)),
	}
	s.log.Info("Sweep finished", "total", res.Total, "succeeded", res.Succeeded, "failed", res.Failed)
	return res, ctx.Err()
}

// Start runs the scheduled sweep loop. Each pass evaluates the last complete
// day, since the current day's metrics are still accumulating.
func (s *sweepService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("Scheduled sweep disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Sweep loop stopped")
				return
			case <-ticker.C:
				day := vitality.AddDays(vitality.Day(time.Now()), -1)
				if _, err := s.Run(ctx, day); err != nil {
					s.log.Warn("Scheduled sweep failed", "error", err)
				}
			}
		}
	}()
}
