package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Huzefaaa2/AIOps/internal/engine"
	"github.com/Huzefaaa2/AIOps/internal/metrics"
	"github.com/Huzefaaa2/AIOps/internal/models"
	"github.com/Huzefaaa2/AIOps/internal/utils"
)

// Analyzer is the pipeline behaviour the service depends on.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (models.AgentResponse, error)
}

// AgentService fronts the analysis pipeline for the HTTP layer, recording
// metrics and latency percentiles per request.
type AgentService struct {
	logger    *slog.Logger
	pipeline  Analyzer
	latencies *utils.LatencyTracker
}

// NewAgentService constructs the service facade.
func NewAgentService(logger *slog.Logger, pipeline Analyzer) *AgentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentService{
		logger:    logger,
		pipeline:  pipeline,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Analyze runs one analysis end to end. It returns the pipeline's error
// unchanged so the API layer can map the error kind to a status code.
func (s *AgentService) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AgentResponse, error) {
	if s.pipeline == nil {
		return models.AgentResponse{}, utils.NewAppError("service.analyze", utils.KindInternal, "pipeline not configured", nil)
	}

	start := time.Now()
	response, err := s.pipeline.Analyze(ctx, req)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError)
		s.logger.Error("analysis failed",
			slog.String("kind", string(utils.KindOf(err))),
			slog.Any("error", err))
		return models.AgentResponse{}, err
	}

	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	for _, outcome := range response.Outcomes {
		metrics.ObserveRemediation(outcome.Status)
	}
	metrics.ObserveNotification(response.Notification.State)

	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("analysis latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}

	s.logger.Info("analysis complete",
		slog.String("analysis_id", response.AnalysisID),
		slog.String("incident_id", response.Incident.ID),
		slog.Int("actions", len(response.Outcomes)),
		slog.Bool("parse_degraded", response.ParseDegraded),
		slog.String("notification", string(response.Notification.State)))

	return response, nil
}

var _ Analyzer = (*engine.Pipeline)(nil)
