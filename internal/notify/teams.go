// Package notify renders the analysis into a Teams Adaptive Card and posts
// it to an incoming webhook. Publishing is best-effort: every failure mode is
// captured as a status on the response and never fails the request.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Huzefaaa2/AIOps/internal/models"
)

// TeamsPublisher posts summary cards to a Teams incoming webhook.
type TeamsPublisher struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTeamsPublisher constructs a publisher. An empty webhook URL makes
// Publish report skipped without attempting a post.
func NewTeamsPublisher(webhookURL string, timeout time.Duration, logger *slog.Logger) *TeamsPublisher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamsPublisher{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Publish renders and posts the card. The returned status is the only
// signal of failure; no error escapes to the orchestrator.
func (p *TeamsPublisher) Publish(ctx context.Context, incident models.IncidentContext, response models.AgentResponse) models.NotificationStatus {
	if p == nil {
		return models.NotificationStatus{State: models.NotificationSkipped}
	}
	if p.webhookURL == "" {
		p.logger.Warn("no notification webhook configured, skipping card post")
		return models.NotificationStatus{State: models.NotificationSkipped}
	}

	payload, err := json.Marshal(BuildCard(incident, response))
	if err != nil {
		return models.NotificationStatus{State: models.NotificationFailed, Reason: fmt.Sprintf("marshal card: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return models.NotificationStatus{State: models.NotificationFailed, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("card post failed", slog.Any("error", err))
		return models.NotificationStatus{State: models.NotificationFailed, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.NotificationStatus{
			State:      models.NotificationFailed,
			HTTPStatus: resp.StatusCode,
			Reason:     fmt.Sprintf("webhook returned %s", resp.Status),
		}
	}
	return models.NotificationStatus{State: models.NotificationSent, HTTPStatus: resp.StatusCode}
}

// BuildCard assembles the Adaptive Card payload summarising the incident,
// root cause, action outcomes and evidence.
func BuildCard(incident models.IncidentContext, response models.AgentResponse) map[string]any {
	return map[string]any{
		"$schema": "https://adaptivecards.io/schemas/adaptive-card.json",
		"type":    "AdaptiveCard",
		"version": "1.5",
		"msteams": map[string]any{"width": "Full"},
		"body": []map[string]any{
			{"type": "TextBlock", "text": "RCA: " + incident.Title, "wrap": true, "size": "Large", "weight": "Bolder"},
			{
				"type": "TextBlock",
				"text": fmt.Sprintf("Environment: %s • Severity: %s • Started: %s",
					incident.Environment, incident.Severity, incident.StartTime),
				"wrap": true, "isSubtle": true,
			},
			{
				"type": "FactSet",
				"facts": []map[string]string{
					{"title": "Incident ID", "value": incident.ID},
					{"title": "Service", "value": incident.ServiceName},
					{"title": "Region", "value": incident.Region},
					{"title": "Change Correlation", "value": valueOr(incident.ChangeRef, "n/a")},
				},
			},
			{"type": "TextBlock", "text": "Suspected Root Cause", "weight": "Bolder", "spacing": "Medium"},
			{"type": "TextBlock", "text": response.Summary, "wrap": true},
			{"type": "TextBlock", "text": "Remediation", "weight": "Bolder", "spacing": "Medium"},
			{"type": "TextBlock", "text": actionsText(response.Outcomes), "wrap": true},
			{"type": "TextBlock", "text": "Evidence", "weight": "Bolder", "spacing": "Medium"},
			{"type": "TextBlock", "text": evidenceText(response), "wrap": true, "isSubtle": true},
		},
		"actions": []map[string]any{
			{"type": "Action.OpenUrl", "title": "View Dashboard", "url": valueOr(incident.DashboardURL, "https://")},
			{"type": "Action.OpenUrl", "title": "Open Incident", "url": valueOr(incident.IncidentURL, "https://")},
		},
	}
}

func actionsText(outcomes []models.RemediationOutcome) string {
	if len(outcomes) == 0 {
		return "No remediation actions proposed."
	}

	lines := make([]string, 0, len(outcomes))
	executed := false
	for _, outcome := range outcomes {
		line := fmt.Sprintf("• %s %s (%s", outcome.Action.Name, paramsJSON(outcome.Action.Params), outcome.Status)
		if outcome.Reason != "" {
			line += ": " + outcome.Reason
		}
		line += ")"
		lines = append(lines, line)
		if outcome.Status == models.OutcomeExecutedOK {
			executed = true
		}
	}
	if !executed {
		lines = append(lines, "No safe remediation available.")
	}
	return strings.Join(lines, "\n")
}

func paramsJSON(params map[string]string) string {
	if len(params) == 0 {
		return "{}"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func evidenceText(response models.AgentResponse) string {
	if len(response.Citations) == 0 {
		return "No grounding citations."
	}
	byID := make(map[string]models.GroundingDocument, len(response.Documents))
	for _, doc := range response.Documents {
		byID[doc.ID] = doc
	}
	refs := make([]string, 0, len(response.Citations))
	for _, id := range response.Citations {
		if doc, ok := byID[id]; ok && doc.Title != "" {
			if doc.URL != "" {
				refs = append(refs, fmt.Sprintf("%s (%s)", doc.Title, doc.URL))
			} else {
				refs = append(refs, doc.Title)
			}
			continue
		}
		refs = append(refs, id)
	}
	return strings.Join(refs, ", ")
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
