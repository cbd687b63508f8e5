package vitality

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type MetricType string

const (
	MetricSleepHours       MetricType = "sleep_hours"
	MetricSteps            MetricType = "steps"
	MetricHRV              MetricType = "hrv"
	MetricRestingHeartRate MetricType = "resting_heart_rate"
	MetricSleepEfficiency  MetricType = "sleep_efficiency"
	MetricMovementMinutes  MetricType = "movement_minutes"
	MetricDeepSleepMinutes MetricType = "deep_sleep_minutes"
)

type Direction string

const (
	DropTriggers Direction = "drop"
	RiseTriggers Direction = "rise"
)

type PatternType string

const (
	PatternDropVsBaseline PatternType = "drop_vs_baseline"
	PatternRiseVsBaseline PatternType = "rise_vs_baseline"
)

// ThresholdConfig is the static per-metric detection configuration. Adding a
// metric is a data change here, not a code change anywhere else.
type ThresholdConfig struct {
	Metric            MetricType `yaml:"metric"`
	Direction         Direction  `yaml:"direction"`
	DeviationPercent  float64    `yaml:"deviation_percent"`
	ExerciseSensitive bool       `yaml:"exercise_sensitive"`
}

func (c ThresholdConfig) PatternType() PatternType {
	if c.Direction == RiseTriggers {
		return PatternRiseVsBaseline
	}
	return PatternDropVsBaseline
}

// DefaultThresholds returns the monitored metric set. Exercise transiently
// depresses HRV and elevates resting HR, so those two carry the exercise flag.
func DefaultThresholds() []ThresholdConfig {
	return []ThresholdConfig{
		{Metric: MetricSleepHours, Direction: DropTriggers, DeviationPercent: 20},
		{Metric: MetricSteps, Direction: DropTriggers, DeviationPercent: 20},
		{Metric: MetricHRV, Direction: DropTriggers, DeviationPercent: 20, ExerciseSensitive: true},
		{Metric: MetricRestingHeartRate, Direction: RiseTriggers, DeviationPercent: 10, ExerciseSensitive: true},
		{Metric: MetricSleepEfficiency, Direction: DropTriggers, DeviationPercent: 15},
		{Metric: MetricMovementMinutes, Direction: DropTriggers, DeviationPercent: 25},
		{Metric: MetricDeepSleepMinutes, Direction: DropTriggers, DeviationPercent: 20},
	}
}

// LoadThresholds overlays YAML entries from path onto the defaults, matched by
// metric name. Unknown metrics in the file become new table entries.
func LoadThresholds(path string) ([]ThresholdConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read thresholds file: %w", err)
	}
	var overlay []ThresholdConfig
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("parse thresholds file: %w", err)
	}
	out := DefaultThresholds()
	for _, o := range overlay {
		if o.Metric == "" {
			return nil, fmt.Errorf("thresholds file: entry missing metric name")
		}
		if o.Direction != DropTriggers && o.Direction != RiseTriggers {
			return nil, fmt.Errorf("thresholds file: metric %q has invalid direction %q", o.Metric, o.Direction)
		}
		if o.DeviationPercent <= 0 {
			return nil, fmt.Errorf("thresholds file: metric %q has non-positive deviation_percent", o.Metric)
		}
		replaced := false
		for i := range out {
			if out[i].Metric == o.Metric {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out, nil
}

// EscalationLevels are the duration tiers an active episode escalates through.
var EscalationLevels = []int{3, 7, 14, 21}

const (
	// MinEpisodeDays is the minimum qualifying run length before an episode
	// opens.
	MinEpisodeDays = 3
	// MaxLookbackDays bounds the backward walk that locates an episode start.
	MaxLookbackDays = 60
)

// LevelFor maps a run length to the largest escalation tier it has reached,
// or 0 when the run is still shorter than the first tier.
func LevelFor(consecutiveDays int) int {
	level := 0
	for _, l := range EscalationLevels {
		if consecutiveDays >= l {
			level = l
		}
	}
	return level
}

const (
	SeverityWatch     = "watch"
	SeverityAttention = "attention"
	SeverityCritical  = "critical"
)

// SeverityFor labels an escalation level for external consumers.
func SeverityFor(level int) string {
	switch {
	case level >= 14:
		return SeverityCritical
	case level >= 7:
		return SeverityAttention
	default:
		return SeverityWatch
	}
}
