package vitality

import "time"

// Day truncates t to midnight UTC. Every series key, episode date, and window
// bound in this package is a Day value.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// DaysBetween returns the whole number of days from one Day to a later Day.
func DaysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

// MetricSeries holds daily scalar values for one (user, metric) pair, keyed by
// Day. A day with no reading has no entry; gaps are preserved, never defaulted
// to zero.
type MetricSeries map[time.Time]float64

func (s MetricSeries) Set(day time.Time, value float64) {
	s[Day(day)] = value
}

func (s MetricSeries) Value(day time.Time) (float64, bool) {
	v, ok := s[Day(day)]
	return v, ok
}

// windowMean averages the present values over [from, to] inclusive and reports
// how many days in the window actually had a value.
func windowMean(s MetricSeries, from, to time.Time) (float64, int) {
	sum := 0.0
	count := 0
	for day := from; !day.After(to); day = AddDays(day, 1) {
		if v, ok := s[day]; ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}
