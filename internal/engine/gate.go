package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Huzefaaa2/AIOps/internal/models"
	"github.com/Huzefaaa2/AIOps/internal/repo"
)

// Rejection reasons recorded on rejected outcomes.
const (
	ReasonUnknownAction     = "unknown-action"
	ReasonRiskTier          = "risk-tier-exceeds-policy"
	ReasonInvalidParameters = "invalid-parameters"
)

// ActionSpec is one whitelist entry: the authoritative risk tier, the
// executor path the action is dispatched to, and a per-parameter validation
// tag table (go-playground/validator syntax).
type ActionSpec struct {
	Risk   models.RiskTier   `yaml:"risk"`
	Path   string            `yaml:"path"`
	Params map[string]string `yaml:"params"`
}

// Whitelist is the static table mapping action names to specs. It is the
// sole authority over what may reach the executor.
type Whitelist map[string]ActionSpec

// WhitelistFile is the YAML root structure.
type WhitelistFile struct {
	Actions map[string]ActionSpec `yaml:"actions"`
}

// LoadWhitelist reads the action whitelist from the provided path. A missing
// file yields an empty whitelist, under which every proposed action is
// rejected as unknown.
func LoadWhitelist(path string) (Whitelist, error) {
	if path == "" {
		return Whitelist{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Whitelist{}, nil
		}
		return nil, err
	}
	var file WhitelistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if file.Actions == nil {
		return Whitelist{}, nil
	}
	return Whitelist(file.Actions), nil
}

// Decision is the outcome of the pure policy check, before any network call.
type Decision struct {
	Approved bool
	Reason   string
	Spec     ActionSpec
}

// Decide applies the whitelist policy to a proposed action. Tier comes from
// the whitelist entry; the model-claimed tier on the action is ignored. High
// tier actions are never approved.
func Decide(action models.ProposedAction, whitelist Whitelist, validate *validator.Validate) Decision {
	spec, ok := whitelist[action.Name]
	if !ok {
		return Decision{Reason: ReasonUnknownAction}
	}
	if spec.Risk == models.RiskTierHigh {
		return Decision{Reason: ReasonRiskTier, Spec: spec}
	}
	if err := validateParams(action.Params, spec.Params, validate); err != nil {
		return Decision{Reason: ReasonInvalidParameters, Spec: spec}
	}
	return Decision{Approved: true, Spec: spec}
}

func validateParams(params map[string]string, schema map[string]string, validate *validator.Validate) error {
	for name := range params {
		if _, ok := schema[name]; !ok {
			return fmt.Errorf("unexpected parameter %q", name)
		}
	}
	for name, tag := range schema {
		if tag == "" {
			continue
		}
		if err := validate.Var(params[name], tag); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	return nil
}

// ActionExecutor is the outbound call the gate makes for approved actions.
type ActionExecutor interface {
	Execute(ctx context.Context, actionPath, action string, params map[string]string) (repo.ExecutionResult, error)
}

// Gate enforces the remediation safety policy and, for approved actions,
// invokes the executor exactly once.
type Gate struct {
	logger    *slog.Logger
	whitelist Whitelist
	executor  ActionExecutor
	validate  *validator.Validate
}

// NewGate constructs a remediation gate. A nil executor downgrades approved
// actions to skipped outcomes instead of executing them.
func NewGate(logger *slog.Logger, whitelist Whitelist, executor ActionExecutor) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		logger:    logger,
		whitelist: whitelist,
		executor:  executor,
		validate:  validator.New(),
	}
}

// Apply runs one proposed action through the state machine
// proposed -> {rejected | approved} -> {executed-ok | executed-failed}.
// Rejection is a normal, reportable outcome, never an error.
func (g *Gate) Apply(ctx context.Context, action models.ProposedAction) models.RemediationOutcome {
	decision := Decide(action, g.whitelist, g.validate)
	if !decision.Approved {
		g.logger.Info("action rejected",
			slog.String("action", action.Name),
			slog.String("reason", decision.Reason))
		return models.RemediationOutcome{
			Action: action,
			Status: models.OutcomeRejected,
			Reason: decision.Reason,
		}
	}

	if g.executor == nil {
		return models.RemediationOutcome{
			Action: action,
			Status: models.OutcomeSkipped,
			Reason: "remediation executor not configured",
		}
	}

	result, err := g.executor.Execute(ctx, decision.Spec.Path, action.Name, action.Params)
	if err != nil {
		g.logger.Warn("action execution failed",
			slog.String("action", action.Name),
			slog.Any("error", err))
		return models.RemediationOutcome{
			Action: action,
			Status: models.OutcomeExecutedFailed,
			Reason: err.Error(),
		}
	}
	if result.HTTPStatus < 200 || result.HTTPStatus >= 300 {
		return models.RemediationOutcome{
			Action:     action,
			Status:     models.OutcomeExecutedFailed,
			Reason:     fmt.Sprintf("executor returned status %d", result.HTTPStatus),
			HTTPStatus: result.HTTPStatus,
			Response:   result.Body,
		}
	}

	return models.RemediationOutcome{
		Action:     action,
		Status:     models.OutcomeExecutedOK,
		HTTPStatus: result.HTTPStatus,
		Response:   result.Body,
	}
}
