package models

// RiskTier classifies how dangerous an action is to auto-execute. The
// authoritative tier always comes from the whitelist; a tier carried on a
// ProposedAction is the model's own claim and is advisory only.
type RiskTier string

const (
	RiskTierLow    RiskTier = "low"
	RiskTierMedium RiskTier = "medium"
	RiskTierHigh   RiskTier = "high"
)

// ParseRiskTier normalises a free-text tier. Unrecognised values map to high
// so that a garbled tier can never loosen policy.
func ParseRiskTier(value string) RiskTier {
	switch value {
	case "low":
		return RiskTierLow
	case "medium":
		return RiskTierMedium
	default:
		return RiskTierHigh
	}
}

// Prompt is a structured generation request: a system instruction plus the
// grounded user message.
type Prompt struct {
	System string
	User   string
}

// ProposedAction is one remediation step suggested by the model.
type ProposedAction struct {
	Name      string            `json:"name"`
	Params    map[string]string `json:"params"`
	ModelRisk RiskTier          `json:"model_risk"`
	Rationale string            `json:"rationale,omitempty"`
}

// ReasoningResult is the parsed model output. Citations reference
// GroundingDocument IDs and are guaranteed by the reasoning client to be a
// subset of the documents supplied in the prompt.
type ReasoningResult struct {
	Summary       string           `json:"summary"`
	Confidence    float64          `json:"confidence"`
	Actions       []ProposedAction `json:"actions"`
	Citations     []string         `json:"citations"`
	ParseDegraded bool             `json:"parse_degraded"`
}
