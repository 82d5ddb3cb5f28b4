package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Huzefaaa2/AIOps/internal/models"
)

type planWire struct {
	RCASummary string  `json:"rca_summary"`
	Confidence float64 `json:"confidence"`
	Actions    []struct {
		Name      string         `json:"name"`
		Params    map[string]any `json:"params"`
		Risk      string         `json:"risk"`
		Rationale string         `json:"rationale"`
	} `json:"actions"`
	Citations []string `json:"citations"`
}

// parsePlan validates the raw model reply against the output schema. A
// dangling citation (one not in docIDs) is a parse failure: the caller must
// repair via the corrective retry rather than propagate it.
func parsePlan(content string, docIDs []string) (models.ReasoningResult, error) {
	raw := stripCodeFence(content)

	var wire planWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return models.ReasoningResult{}, fmt.Errorf("not a JSON object: %w", err)
	}
	if strings.TrimSpace(wire.RCASummary) == "" {
		return models.ReasoningResult{}, fmt.Errorf("missing required field rca_summary")
	}

	known := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		known[id] = struct{}{}
	}
	for _, citation := range wire.Citations {
		if _, ok := known[citation]; !ok {
			return models.ReasoningResult{}, fmt.Errorf("citation %q does not match any supplied document id", citation)
		}
	}

	actions := make([]models.ProposedAction, 0, len(wire.Actions))
	for i, a := range wire.Actions {
		if strings.TrimSpace(a.Name) == "" {
			return models.ReasoningResult{}, fmt.Errorf("action %d has no name", i)
		}
		actions = append(actions, models.ProposedAction{
			Name:      a.Name,
			Params:    coerceParams(a.Params),
			ModelRisk: models.ParseRiskTier(a.Risk),
			Rationale: a.Rationale,
		})
	}

	confidence := wire.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return models.ReasoningResult{
		Summary:    wire.RCASummary,
		Confidence: confidence,
		Actions:    actions,
		Citations:  append([]string(nil), wire.Citations...),
	}, nil
}

// stripCodeFence unwraps a ```json fenced block if the model added one.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func coerceParams(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return map[string]string{}
	}
	params := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			params[key] = v
		case float64:
			params[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			params[key] = strconv.FormatBool(v)
		default:
			params[key] = fmt.Sprintf("%v", v)
		}
	}
	return params
}
