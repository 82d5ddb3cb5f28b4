package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Huzefaaa2/AIOps/internal/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResponse() models.AgentResponse {
	return models.AgentResponse{
		AnalysisID: "a-1",
		Summary:    "Connection pool exhaustion.",
		Outcomes: []models.RemediationOutcome{
			{Action: models.ProposedAction{Name: "restart_service"}, Status: models.OutcomeExecutedOK},
			{Action: models.ProposedAction{Name: "delete-database"}, Status: models.OutcomeRejected, Reason: "unknown-action"},
		},
		Documents: []models.GroundingDocument{
			{ID: "kb-001", Title: "Connection pool runbook", URL: "https://kb.example.com/001"},
		},
		Citations: []string{"kb-001", "kb-404"},
	}
}

func TestPublishSent(t *testing.T) {
	var card map[string]any
	p := NewTeamsPublisher("https://hooks.example.com/webhook", time.Second, quietLogger())
	p.httpClient = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		data, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(data, &card); err != nil {
			t.Fatalf("decode card: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("1")),
			Header:     make(http.Header),
		}, nil
	})}

	status := p.Publish(context.Background(), models.IncidentContext{Title: "Latency spike"}, testResponse())
	if status.State != models.NotificationSent {
		t.Fatalf("state = %q, want sent", status.State)
	}
	if status.HTTPStatus != http.StatusOK {
		t.Fatalf("http status = %d", status.HTTPStatus)
	}
	if card["type"] != "AdaptiveCard" || card["version"] != "1.5" {
		t.Fatalf("card envelope = %v/%v", card["type"], card["version"])
	}
}

func TestPublishFailed(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		p := NewTeamsPublisher("https://hooks.example.com/webhook", time.Second, quietLogger())
		p.httpClient = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection reset")
		})}
		status := p.Publish(context.Background(), models.IncidentContext{}, testResponse())
		if status.State != models.NotificationFailed || status.Reason == "" {
			t.Fatalf("status = %+v", status)
		}
	})

	t.Run("non-2xx", func(t *testing.T) {
		p := NewTeamsPublisher("https://hooks.example.com/webhook", time.Second, quietLogger())
		p.httpClient = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Status:     "429 Too Many Requests",
				Body:       io.NopCloser(strings.NewReader("throttled")),
				Header:     make(http.Header),
			}, nil
		})}
		status := p.Publish(context.Background(), models.IncidentContext{}, testResponse())
		if status.State != models.NotificationFailed {
			t.Fatalf("state = %q, want failed", status.State)
		}
		if status.HTTPStatus != http.StatusTooManyRequests {
			t.Fatalf("http status = %d", status.HTTPStatus)
		}
	})
}

func TestPublishSkipped(t *testing.T) {
	p := NewTeamsPublisher("", time.Second, quietLogger())
	status := p.Publish(context.Background(), models.IncidentContext{}, testResponse())
	if status.State != models.NotificationSkipped {
		t.Fatalf("state = %q, want skipped", status.State)
	}

	var nilPublisher *TeamsPublisher
	status = nilPublisher.Publish(context.Background(), models.IncidentContext{}, testResponse())
	if status.State != models.NotificationSkipped {
		t.Fatalf("nil publisher state = %q, want skipped", status.State)
	}
}

func TestBuildCardSections(t *testing.T) {
	incident := models.IncidentContext{
		ID:          "INC-10234",
		Title:       "Checkout latency spike",
		Environment: "prod",
		Severity:    "Sev2",
		ServiceName: "checkout-api",
	}
	card := BuildCard(incident, testResponse())

	data, err := json.Marshal(card)
	if err != nil {
		t.Fatalf("marshal card: %v", err)
	}
	rendered := string(data)
	for _, want := range []string{
		"RCA: Checkout latency spike",
		"INC-10234",
		"Connection pool exhaustion.",
		"• restart_service {} (executed-ok)",
		"• delete-database {} (rejected: unknown-action)",
		"Connection pool runbook (https://kb.example.com/001)",
		"kb-404",
	} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("card missing %q", want)
		}
	}
}

func TestActionsText(t *testing.T) {
	if got := actionsText(nil); got != "No remediation actions proposed." {
		t.Fatalf("empty outcomes text = %q", got)
	}

	onlyRejected := []models.RemediationOutcome{
		{Action: models.ProposedAction{Name: "failover_database"}, Status: models.OutcomeRejected, Reason: "risk-tier-exceeds-policy"},
	}
	got := actionsText(onlyRejected)
	if !strings.Contains(got, "No safe remediation available.") {
		t.Fatalf("text = %q", got)
	}

	executed := []models.RemediationOutcome{
		{
			Action: models.ProposedAction{Name: "restart_service", Params: map[string]string{"service": "checkout-api"}},
			Status: models.OutcomeExecutedOK,
		},
	}
	got = actionsText(executed)
	if !strings.Contains(got, `• restart_service {"service":"checkout-api"} (executed-ok)`) {
		t.Fatalf("text = %q", got)
	}
	if strings.Contains(got, "No safe remediation available.") {
		t.Fatal("executed-ok outcome must suppress the fallback line")
	}
}

func TestEvidenceTextNoCitations(t *testing.T) {
	response := testResponse()
	response.Citations = nil
	if got := evidenceText(response); got != "No grounding citations." {
		t.Fatalf("text = %q", got)
	}
}
