package vitality

import "time"

const (
	recentWindowDays   = 3
	baselineWindowDays = 14
	minRecentSamples   = 1
	minBaselineSamples = 5
)

// EvalResult is the outcome of one deviation check. A neutral result (pattern
// false, nil snapshot fields) means the windows lacked enough data or the
// baseline was unusable; it is never an error.
type EvalResult struct {
	PatternTrue      bool
	Baseline         *float64
	Recent           *float64
	DeviationPercent *float64
}

// Evaluate compares the trailing 3-day mean against the 14-day baseline that
// sits one day behind it and reports whether the metric's pattern condition
// holds on evalDate. Absent days are skipped outright, never substituted.
func Evaluate(series MetricSeries, evalDate time.Time, cfg ThresholdConfig) EvalResult {
	day := Day(evalDate)

	recent, n := windowMean(series, AddDays(day, -(recentWindowDays-1)), day)
	if n < minRecentSamples {
		return EvalResult{}
	}

	baselineTo := AddDays(day, -(recentWindowDays + 1))
	baselineFrom := AddDays(baselineTo, -(baselineWindowDays - 1))
	baseline, n := windowMean(series, baselineFrom, baselineTo)
	if n < minBaselineSamples {
		return EvalResult{}
	}
	if baseline == 0 {
		// Undefined ratio; treat as neutral rather than dividing.
		return EvalResult{}
	}

	deviation := (recent - baseline) / baseline * 100

	var patternTrue bool
	switch cfg.Direction {
	case DropTriggers:
		patternTrue = deviation <= -cfg.DeviationPercent
	case RiseTriggers:
		patternTrue = deviation >= cfg.DeviationPercent
	}

	return EvalResult{
		PatternTrue:      patternTrue,
		Baseline:         &baseline,
		Recent:           &recent,
		DeviationPercent: &deviation,
	}
}
