package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Huzefaaa2/AIOps/internal/models"
	"github.com/Huzefaaa2/AIOps/internal/utils"
)

const defaultQuestion = "Why did latency spike in the last 30 minutes?"

// TelemetrySampler fetches advisory telemetry for the incident window.
type TelemetrySampler interface {
	Sample(ctx context.Context, window models.TimeWindow) models.TelemetrySample
}

// GroundingRetriever fetches ranked grounding documents for a query.
type GroundingRetriever interface {
	Retrieve(ctx context.Context, query string) ([]models.GroundingDocument, error)
}

// Reasoner turns a built prompt into a schema-validated ReasoningResult.
type Reasoner interface {
	Analyze(ctx context.Context, prompt models.Prompt, docIDs []string) (models.ReasoningResult, error)
}

// Notifier posts the summary card, best-effort.
type Notifier interface {
	Publish(ctx context.Context, incident models.IncidentContext, response models.AgentResponse) models.NotificationStatus
}

// Pipeline orchestrates one analysis request: concurrent telemetry sampling
// and grounding retrieval, prompt assembly, reasoning, the per-action
// remediation gate, and best-effort notification. All entities it produces
// are request-scoped; nothing outlives the returned AgentResponse.
type Pipeline struct {
	logger    *slog.Logger
	sampler   TelemetrySampler
	retriever GroundingRetriever
	reasoner  Reasoner
	gate      *Gate
	notifier  Notifier
	budget    PromptBudget
	lookback  time.Duration
	now       func() time.Time
}

// NewPipeline constructs the analysis pipeline.
func NewPipeline(logger *slog.Logger, sampler TelemetrySampler, retriever GroundingRetriever, reasoner Reasoner, gate *Gate, notifier Notifier, budget PromptBudget, lookback time.Duration) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if lookback <= 0 {
		lookback = 30 * time.Minute
	}
	return &Pipeline{
		logger:    logger,
		sampler:   sampler,
		retriever: retriever,
		reasoner:  reasoner,
		gate:      gate,
		notifier:  notifier,
		budget:    budget,
		lookback:  lookback,
		now:       time.Now,
	}
}

// Analyze runs the full flow. It hard-fails only when retrieval or reasoning
// are unavailable; telemetry, parsing, remediation and notification failures
// degrade into fields of the response.
func (p *Pipeline) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AgentResponse, error) {
	if p.reasoner == nil {
		return models.AgentResponse{}, utils.NewAppError("pipeline.analyze", utils.KindReasoningUnavailable, "reasoning client not configured", nil)
	}

	question := req.Question
	if strings.TrimSpace(question) == "" {
		question = defaultQuestion
	}
	incident := p.incidentOrDefault(req.Incident)

	start, end := utils.LookbackWindow(incident.StartTime, p.lookback, p.now().UTC())
	window := models.TimeWindow{Start: start, End: end}

	var (
		sample models.TelemetrySample
		docs   []models.GroundingDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if p.sampler != nil {
			sample = p.sampler.Sample(gctx, window)
		}
		return nil
	})
	g.Go(func() error {
		if p.retriever == nil {
			return nil
		}
		retrieved, err := p.retriever.Retrieve(gctx, retrievalQuery(incident, question))
		if err != nil {
			return err
		}
		docs = retrieved
		return nil
	})
	if err := g.Wait(); err != nil {
		// Only the retriever contributes errors here, and retrieval is a
		// hard dependency: ungrounded remediation is unsafe.
		p.logger.Error("grounding retrieval failed", slog.Any("error", err))
		return models.AgentResponse{}, err
	}

	if sample.Degraded {
		p.logger.Warn("telemetry degraded", slog.String("reason", sample.FailureReason))
	}

	prompt := BuildPrompt(incident, question, sample, docs, p.budget)
	result, err := p.reasoner.Analyze(ctx, prompt, documentIDs(docs))
	if err != nil {
		p.logger.Error("reasoning failed", slog.Any("error", err))
		return models.AgentResponse{}, err
	}

	outcomes := p.remediate(ctx, result.Actions)

	response := models.AgentResponse{
		AnalysisID:    uuid.NewString(),
		Incident:      incident,
		Question:      question,
		Summary:       result.Summary,
		Confidence:    result.Confidence,
		ParseDegraded: result.ParseDegraded,
		Outcomes:      outcomes,
		Documents:     docs,
		DocumentsUsed: documentTitles(docs),
		Citations:     result.Citations,
		Telemetry: models.TelemetryStatus{
			Records:  len(sample.Records),
			Degraded: sample.Degraded,
			Reason:   sample.FailureReason,
		},
		Notification: models.NotificationStatus{State: models.NotificationSkipped},
		CreatedAt:    p.now().UTC(),
	}

	if p.notifier != nil {
		response.Notification = p.notifier.Publish(ctx, incident, response)
	}

	return response, nil
}

// remediate dispatches each proposed action through the gate concurrently
// and reassembles outcomes in input order, one outcome per action.
func (p *Pipeline) remediate(ctx context.Context, actions []models.ProposedAction) []models.RemediationOutcome {
	outcomes := make([]models.RemediationOutcome, len(actions))
	if p.gate == nil {
		for i, action := range actions {
			outcomes[i] = models.RemediationOutcome{
				Action: action,
				Status: models.OutcomeSkipped,
				Reason: "remediation gate not configured",
			}
		}
		return outcomes
	}

	var wg sync.WaitGroup
	for i, action := range actions {
		wg.Add(1)
		go func(slot int, act models.ProposedAction) {
			defer wg.Done()
			outcomes[slot] = p.gate.Apply(ctx, act)
		}(i, action)
	}
	wg.Wait()
	return outcomes
}

func (p *Pipeline) incidentOrDefault(incident *models.IncidentContext) models.IncidentContext {
	if incident != nil {
		return *incident
	}
	return models.IncidentContext{
		ID:           "INC-XXXXX",
		Title:        "Service latency spike",
		Environment:  "prod",
		Severity:     "Sev2",
		StartTime:    p.now().Format("2006-01-02T15:04:05"),
		ServiceName:  "unknown-service",
		Region:       "unknown-region",
		ChangeRef:    "unknown-change",
		DashboardURL: "https://portal.azure.com/",
		IncidentURL:  "https://dev.azure.com/",
	}
}

func retrievalQuery(incident models.IncidentContext, question string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{incident.Title, incident.ServiceName, question} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func documentIDs(docs []models.GroundingDocument) []string {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids
}

func documentTitles(docs []models.GroundingDocument) []string {
	titles := make([]string, 0, len(docs))
	for _, doc := range docs {
		titles = append(titles, doc.Title)
	}
	return titles
}
