package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/services"
	"github.com/miyahealth/miya-backend/internal/types"
)

type stubAlerts struct{}

func (stubAlerts) EvaluateUser(context.Context, uuid.UUID, time.Time) (*services.UserEvaluation, error) {
	return &services.UserEvaluation{}, nil
}

func (stubAlerts) ListEpisodes(context.Context, uuid.UUID) ([]*types.PatternAlertEpisode, error) {
	return nil, nil
}

type stubSweep struct {
	res *services.SweepResult
	err error
}

func (s *stubSweep) Run(context.Context, time.Time) (*services.SweepResult, error) {
	return s.res, s.err
}

func (s *stubSweep) Start(context.Context) {}

func sweepRouter(sweep services.SweepService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	h := NewAlertHandler(log, stubAlerts{}, sweep)
	r := gin.New()
	r.POST("/internal/sweep", h.PostSweep)
	return r
}

func postSweep(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/internal/sweep", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPostSweep(t *testing.T) {
	day := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		r := sweepRouter(&stubSweep{res: &services.SweepResult{EvalDate: day, Total: 5, Succeeded: 5}})
		w := postSweep(t, r, `{"date":"2026-03-20"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"succeeded":5`) {
			t.Fatalf("body=%s, want sweep counts", w.Body.String())
		}
	})

	t.Run("interrupted_sweep_keeps_partial_counts", func(t *testing.T) {
		r := sweepRouter(&stubSweep{
			res: &services.SweepResult{EvalDate: day, Total: 10, Succeeded: 4, Failed: 1},
			err: context.Canceled,
		})
		w := postSweep(t, r, `{"date":"2026-03-20"}`)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d, want 500", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, `"total":10`) || !strings.Contains(body, `"succeeded":4`) {
			t.Fatalf("body=%s, want partial sweep counts", body)
		}
		if !strings.Contains(body, "context canceled") {
			t.Fatalf("body=%s, want error message", body)
		}
	})

	t.Run("invalid_date", func(t *testing.T) {
		r := sweepRouter(&stubSweep{})
		if w := postSweep(t, r, `{"date":"20-03-2026"}`); w.Code != http.StatusBadRequest {
			t.Fatalf("status=%d, want 400", w.Code)
		}
	})
}
