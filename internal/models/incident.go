package models

// IncidentContext carries the incident metadata supplied by the caller. It is
// immutable once received and parametrises every downstream query.
type IncidentContext struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Environment  string `json:"environment"`
	Severity     string `json:"severity"`
	StartTime    string `json:"start_time_local"`
	ServiceName  string `json:"service_name"`
	Region       string `json:"region"`
	ChangeRef    string `json:"change_ref"`
	DashboardURL string `json:"dashboard_url" binding:"omitempty,url"`
	IncidentURL  string `json:"incident_url" binding:"omitempty,url"`
}

// AnalysisRequest is the inbound trigger payload. Both fields are optional;
// the orchestrator substitutes defaults for whichever is missing.
type AnalysisRequest struct {
	Question string           `json:"question" binding:"omitempty,max=2000"`
	Incident *IncidentContext `json:"incident"`
}
