package models

import "time"

// TimeWindow bounds the telemetry lookback for an analysis.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// TelemetryRecord is a single raw log/metric row sampled from the log store.
type TelemetryRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields"`
}

// TelemetrySample is the bounded, ordered record set produced once per
// request. Telemetry is advisory context: failures are absorbed into the
// Degraded flag instead of an error.
type TelemetrySample struct {
	Records       []TelemetryRecord `json:"records"`
	Degraded      bool              `json:"degraded"`
	FailureReason string            `json:"failure_reason,omitempty"`
}

// GroundingDocument is a retrieved reference document used to constrain the
// generated analysis. Ordering by descending Score is significant.
type GroundingDocument struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
}
