package models

import "time"

// OutcomeStatus enumerates the terminal states of the per-action gate.
type OutcomeStatus string

const (
	OutcomeExecutedOK     OutcomeStatus = "executed-ok"
	OutcomeExecutedFailed OutcomeStatus = "executed-failed"
	OutcomeRejected       OutcomeStatus = "rejected"
	OutcomeSkipped        OutcomeStatus = "skipped"
)

// RemediationOutcome records what the gate decided and, for approved actions,
// what the executor returned. Exactly one outcome exists per proposed action.
type RemediationOutcome struct {
	Action     ProposedAction `json:"action"`
	Status     OutcomeStatus  `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	HTTPStatus int            `json:"http_status,omitempty"`
	Response   string         `json:"response,omitempty"`
}

// NotificationState enumerates the delivery status of the summary card.
type NotificationState string

const (
	NotificationSent    NotificationState = "sent"
	NotificationFailed  NotificationState = "failed"
	NotificationSkipped NotificationState = "skipped"
)

// NotificationStatus captures the best-effort webhook post result.
type NotificationStatus struct {
	State      NotificationState `json:"state"`
	HTTPStatus int               `json:"http_status,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

// TelemetryStatus summarises the sample that fed the analysis.
type TelemetryStatus struct {
	Records  int    `json:"records"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// AgentResponse is the terminal per-request entity returned to the caller.
// It is assembled once by the orchestrator and never mutated afterwards.
type AgentResponse struct {
	AnalysisID    string               `json:"analysis_id"`
	Incident      IncidentContext      `json:"incident"`
	Question      string               `json:"question"`
	Summary       string               `json:"rca_summary"`
	Confidence    float64              `json:"confidence"`
	ParseDegraded bool                 `json:"parse_degraded"`
	Outcomes      []RemediationOutcome `json:"actions"`
	Documents     []GroundingDocument  `json:"grounding_documents"`
	DocumentsUsed []string             `json:"kb_docs_used"`
	Citations     []string             `json:"citations"`
	Telemetry     TelemetryStatus      `json:"telemetry"`
	Notification  NotificationStatus   `json:"notification"`
	CreatedAt     time.Time            `json:"created_at"`
}
