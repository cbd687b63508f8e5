package vitality

import "time"

type TransitionKind int

const (
	// TransitionNone: nothing to persist (no active episode and either the
	// pattern is false or the run is still shorter than MinEpisodeDays).
	TransitionNone TransitionKind = iota
	// TransitionOpen: create a new active episode.
	TransitionOpen
	// TransitionRefresh: pattern still true; recompute level and snapshot,
	// reset the resolution streak.
	TransitionRefresh
	// TransitionCountdown: pattern false while active; hysteresis streak
	// bookkeeping only. Level, start date, and snapshot stay untouched.
	TransitionCountdown
	// TransitionResolve: the resolution streak completed; close the episode.
	TransitionResolve
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionOpen:
		return "open"
	case TransitionRefresh:
		return "refresh"
	case TransitionCountdown:
		return "countdown"
	case TransitionResolve:
		return "resolve"
	default:
		return "none"
	}
}

// EpisodeState is the slice of a persisted active episode the tracker needs to
// decide the next transition.
type EpisodeState struct {
	ActiveSince      time.Time
	CurrentLevel     int
	UnresolvedStreak int
}

// Transition is the tracker's decision for one evaluation date. For Open and
// Refresh it carries the new episode shape; for Countdown and Resolve only the
// streak changes.
type Transition struct {
	Kind             TransitionKind
	ActiveSince      time.Time
	ConsecutiveDays  int
	Level            int
	UnresolvedStreak int
}

// Tracker holds the episode lifecycle tunables. The transition is a pure
// function of persisted state plus the day's signal, so re-running the same
// evaluation always lands on the same state.
type Tracker struct {
	ResolutionStreak   int
	RecoveryBandPoints float64
}

const (
	DefaultResolutionStreak   = 3
	DefaultRecoveryBandPoints = 5.0
)

func NewTracker(resolutionStreak int, recoveryBandPoints float64) Tracker {
	if resolutionStreak < 1 {
		resolutionStreak = DefaultResolutionStreak
	}
	if recoveryBandPoints < 0 {
		recoveryBandPoints = DefaultRecoveryBandPoints
	}
	return Tracker{
		ResolutionStreak:   resolutionStreak,
		RecoveryBandPoints: recoveryBandPoints,
	}
}

// Step decides the transition for evalDate. active is nil when no active
// episode exists for the (user, metric, pattern) key. signal must report the
// exercise-filtered pattern boolean for any prior day in the supplied series;
// it is only consulted when a new episode may open.
func (tr Tracker) Step(active *EpisodeState, result EvalResult, cfg ThresholdConfig, evalDate time.Time, signal func(day time.Time) bool) Transition {
	day := Day(evalDate)

	if result.PatternTrue {
		if active == nil {
			since := day
			for i := 1; i < MaxLookbackDays; i++ {
				prev := AddDays(day, -i)
				if !signal(prev) {
					break
				}
				since = prev
			}
			consecutive := DaysBetween(since, day) + 1
			if consecutive < MinEpisodeDays {
				return Transition{Kind: TransitionNone}
			}
			return Transition{
				Kind:            TransitionOpen,
				ActiveSince:     since,
				ConsecutiveDays: consecutive,
				Level:           LevelFor(consecutive),
			}
		}

		consecutive := DaysBetween(Day(active.ActiveSince), day) + 1
		level := LevelFor(consecutive)
		if level < active.CurrentLevel {
			// Level never decreases while the episode stays active.
			level = active.CurrentLevel
		}
		return Transition{
			Kind:            TransitionRefresh,
			ActiveSince:     Day(active.ActiveSince),
			ConsecutiveDays: consecutive,
			Level:           level,
		}
	}

	if active == nil {
		return Transition{Kind: TransitionNone}
	}

	streak := active.UnresolvedStreak
	if tr.recovered(result, cfg) {
		streak++
	}
	t := Transition{
		ActiveSince:      Day(active.ActiveSince),
		ConsecutiveDays:  DaysBetween(Day(active.ActiveSince), day) + 1,
		Level:            active.CurrentLevel,
		UnresolvedStreak: streak,
	}
	if streak >= tr.ResolutionStreak {
		t.Kind = TransitionResolve
	} else {
		t.Kind = TransitionCountdown
	}
	return t
}

// recovered applies the hysteresis band: a false evaluation only counts toward
// resolution once the deviation is back within (threshold - band) points of
// baseline. Crossing the raw boolean is not enough, and a day with no
// computable deviation holds the streak where it is.
func (tr Tracker) recovered(result EvalResult, cfg ThresholdConfig) bool {
	if result.DeviationPercent == nil {
		return false
	}
	band := cfg.DeviationPercent - tr.RecoveryBandPoints
	if band < 0 {
		band = 0
	}
	switch cfg.Direction {
	case DropTriggers:
		return *result.DeviationPercent >= -band
	case RiseTriggers:
		return *result.DeviationPercent <= band
	}
	return false
}
