package vitality

import "time"

// ApplyExerciseContext suppresses a positive result for exercise-sensitive
// metrics when evalDate has a recorded session. A hard workout depresses HRV
// and elevates resting HR as a healthy response, so evaluating those days
// produces systematic false positives. Snapshot fields are kept for
// explainability.
func ApplyExerciseContext(cfg ThresholdConfig, evalDate time.Time, raw EvalResult, exerciseDays map[time.Time]bool) EvalResult {
	if !cfg.ExerciseSensitive || !raw.PatternTrue {
		return raw
	}
	if exerciseDays[Day(evalDate)] {
		out := raw
		out.PatternTrue = false
		return out
	}
	return raw
}

// EvaluateFiltered runs Evaluate and the exercise filter in one step.
func EvaluateFiltered(series MetricSeries, evalDate time.Time, cfg ThresholdConfig, exerciseDays map[time.Time]bool) EvalResult {
	return ApplyExerciseContext(cfg, evalDate, Evaluate(series, evalDate, cfg), exerciseDays)
}
