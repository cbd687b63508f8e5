package services

import (
	"context"
	"testing"
	"time"

	"github.com/miyahealth/miya-backend/internal/vitality"
)

func TestIngestDailyEvaluatesLatestDay(t *testing.T) {
	h := newAlertHarness(t, AlertConfig{Thresholds: stepsOnly}, true)
	alerts := &fakeAlerts{}
	svc := NewMetricIngestService(h.db, testLogger(), h.metricRepo, h.exerciseRepo, alerts)

	d1 := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	// Out-of-order batch: evaluation still targets the newest day.
	_, err := svc.IngestDaily(context.Background(), h.member.ID, []DailyReading{
		{Day: d2, Metric: vitality.MetricSteps, Value: 8000},
		{Day: d3, Metric: vitality.MetricSteps, Value: 7500},
		{Day: d1, Metric: vitality.MetricSteps, Value: 9000},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(alerts.dates) != 1 || !alerts.dates[0].Equal(d3) {
		t.Fatalf("evaluated dates=%v, want [%v]", alerts.dates, d3)
	}

	series, err := h.metricRepo.FetchSeries(context.Background(), nil, h.member.ID, vitality.MetricSteps, d1, d3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("series len=%d, want 3", len(series))
	}
	if v, _ := series.Value(d3); v != 7500 {
		t.Fatalf("latest value=%v, want 7500", v)
	}
}

func TestIngestDailyRejectsEmptyBatch(t *testing.T) {
	h := newAlertHarness(t, AlertConfig{Thresholds: stepsOnly}, true)
	svc := NewMetricIngestService(h.db, testLogger(), h.metricRepo, h.exerciseRepo, &fakeAlerts{})
	if _, err := svc.IngestDaily(context.Background(), h.member.ID, nil); err == nil {
		t.Fatal("want error for empty batch")
	}
}

func TestRecordExercise(t *testing.T) {
	h := newAlertHarness(t, AlertConfig{Thresholds: stepsOnly}, true)
	svc := NewMetricIngestService(h.db, testLogger(), h.metricRepo, h.exerciseRepo, &fakeAlerts{})
	day := time.Date(2026, 3, 20, 9, 30, 0, 0, time.UTC)

	err := svc.RecordExercise(context.Background(), h.member.ID, []ExerciseEntry{
		{Day: day, ActivityType: "run", DurationMinutes: 40},
	})
	if err != nil {
		t.Fatalf("record exercise: %v", err)
	}

	days, err := h.exerciseRepo.FetchDays(context.Background(), nil, h.member.ID,
		vitality.Day(day), vitality.Day(day))
	if err != nil {
		t.Fatalf("fetch days: %v", err)
	}
	if !days[vitality.Day(day)] {
		t.Fatalf("session day missing: %v", days)
	}

	if err := svc.RecordExercise(context.Background(), h.member.ID, nil); err == nil {
		t.Fatal("want error for empty batch")
	}
}
