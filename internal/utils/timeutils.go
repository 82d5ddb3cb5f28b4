package utils

import (
	"fmt"
	"time"
)

// ParseStartTime returns a time from an incident start string. Both RFC3339
// and the second-precision local form produced by incident tooling are
// accepted.
func ParseStartTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// LookbackWindow derives the telemetry window for an analysis: the lookback
// period ending now, widened backwards when the incident started earlier.
func LookbackWindow(incidentStart string, lookback time.Duration, now time.Time) (time.Time, time.Time) {
	if lookback <= 0 {
		lookback = 30 * time.Minute
	}
	end := now
	start := end.Add(-lookback)
	if t, err := ParseStartTime(incidentStart); err == nil && t.Before(start) {
		start = t
	}
	return start, end
}
