package vitality

import (
	"testing"
	"time"
)

func TestApplyExerciseContext(t *testing.T) {
	evalDate := mustDay(t, "2026-03-10")
	sensitive := ThresholdConfig{Metric: MetricHRV, Direction: DropTriggers, DeviationPercent: 20, ExerciseSensitive: true}
	insensitive := ThresholdConfig{Metric: MetricSteps, Direction: DropTriggers, DeviationPercent: 20}

	exerciseToday := map[time.Time]bool{evalDate: true}
	exerciseYesterday := map[time.Time]bool{AddDays(evalDate, -1): true}

	cases := []struct {
		name     string
		cfg      ThresholdConfig
		raw      EvalResult
		days     map[time.Time]bool
		wantTrue bool
	}{
		{name: "suppressed_on_exercise_day", cfg: sensitive, raw: trueResult(-25), days: exerciseToday, wantTrue: false},
		{name: "insensitive_metric_unaffected", cfg: insensitive, raw: trueResult(-25), days: exerciseToday, wantTrue: true},
		{name: "exercise_on_other_day_unaffected", cfg: sensitive, raw: trueResult(-25), days: exerciseYesterday, wantTrue: true},
		{name: "no_sessions_unaffected", cfg: sensitive, raw: trueResult(-25), days: nil, wantTrue: true},
		{name: "false_result_stays_false", cfg: sensitive, raw: falseResult(-5), days: exerciseToday, wantTrue: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ApplyExerciseContext(tc.cfg, evalDate, tc.raw, tc.days)
			if got.PatternTrue != tc.wantTrue {
				t.Fatalf("PatternTrue=%v, want %v", got.PatternTrue, tc.wantTrue)
			}
			if tc.raw.DeviationPercent != nil {
				if got.DeviationPercent == nil || *got.DeviationPercent != *tc.raw.DeviationPercent {
					t.Fatalf("snapshot not preserved: %v", got.DeviationPercent)
				}
			}
		})
	}
}
