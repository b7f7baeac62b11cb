package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aigoflow/kubescale-predictor/internal/models"
	"github.com/aigoflow/kubescale-predictor/internal/search"
)

// Searcher fetches real-time context for the enrichment step.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Response, error)
}

// Completer turns a prompt into model text for the estimation step.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// MetricsRecorder receives one observation per prediction. Implementations
// must be safe for concurrent use.
type MetricsRecorder interface {
	ObservePrediction(deployment string, users int, latency time.Duration)
}

// EventPublisher fans finished predictions out to other consumers.
type EventPublisher interface {
	PublishPrediction(event *models.PredictionEvent) error
}

// Option configures a PredictionService during initialization.
type Option func(s *PredictionService)

func WithSearcher(searcher Searcher) Option {
	return func(s *PredictionService) {
		s.searcher = searcher
	}
}

func WithCompleter(completer Completer) Option {
	return func(s *PredictionService) {
		s.completer = completer
	}
}

func WithMetrics(recorder MetricsRecorder) Option {
	return func(s *PredictionService) {
		s.metrics = recorder
	}
}

func WithPublisher(publisher EventPublisher) Option {
	return func(s *PredictionService) {
		s.publisher = publisher
	}
}

func WithDefaultDeployment(deployment string) Option {
	return func(s *PredictionService) {
		if deployment != "" {
			s.defaultDeployment = deployment
		}
	}
}

// PredictionService runs the enrichment and estimation steps for a URL.
// Collaborators are fixed at construction; a nil collaborator is unavailable
// for the life of the service.
type PredictionService struct {
	searcher          Searcher
	completer         Completer
	metrics           MetricsRecorder
	publisher         EventPublisher
	defaultDeployment string
	now               func() time.Time
}

func NewPredictionService(opts ...Option) *PredictionService {
	s := &PredictionService{
		defaultDeployment: models.DefaultDeployment,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Availability reports which collaborators this service was built with.
func (s *PredictionService) Availability() models.Availability {
	return models.Availability{
		Search:  s.searcher != nil,
		LLM:     s.completer != nil,
		Metrics: s.metrics != nil,
	}
}

// DefaultDeployment is the label used when a request names none.
func (s *PredictionService) DefaultDeployment() string {
	return s.defaultDeployment
}

// Predict estimates near-term concurrent users for req.URL. Collaborator
// failures are folded into the result; the only error returned is an
// unexpected internal failure.
func (s *PredictionService) Predict(ctx context.Context, req models.PredictionRequest, source string) (result *models.PredictionResult, err error) {
	start := s.now()
	req = s.normalize(req)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Prediction panicked",
				"req_id", req.ReqID,
				"url", req.URL,
				"source", source,
				"panic", r)
			result = nil
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	var reasoning strings.Builder

	if s.searcher != nil {
		outcome := searchOutcome(s.searcher.Search(ctx, searchQuery(req.URL)))
		if outcome.Err != nil {
			slog.Error("Tavily search failed", "req_id", req.ReqID, "url", req.URL, "error", outcome.Err)
		} else if outcome.Found {
			slog.Info("Tavily search result", "req_id", req.ReqID, "url", req.URL, "excerpt", truncateRunes(outcome.Excerpt, 100))
		}
		reasoning.WriteString(enrichmentNote(outcome))
	}

	var completion CompletionOutcome
	if s.completer != nil {
		text, callErr := s.completer.Complete(ctx, buildPrompt(req.URL, reasoning.String()))
		completion = CompletionOutcome{Text: text, Err: callErr}
	}

	estimate := resolveEstimate(s.completer != nil, completion)
	switch estimate.Path {
	case PathCallFailed:
		slog.Error("Groq prediction failed", "req_id", req.ReqID, "url", req.URL, "error", completion.Err)
	case PathUnparsable:
		slog.Warn("Could not parse Groq response", "req_id", req.ReqID, "url", req.URL, "response", completion.Text)
	case PathEstimated:
		slog.Info("Groq prediction", "req_id", req.ReqID, "url", req.URL, "predicted_users", estimate.Users)
	}
	reasoning.WriteString(estimate.Note)

	latency := s.now().Sub(start)
	if s.metrics != nil {
		s.metrics.ObservePrediction(req.Deployment, estimate.Users, latency)
	}

	result = &models.PredictionResult{
		URL:            req.URL,
		PredictedUsers: estimate.Users,
		Confidence:     estimate.Confidence,
		Deployment:     req.Deployment,
		Timestamp:      models.EpochSeconds(s.now()),
		Reasoning:      strings.TrimSpace(reasoning.String()),
	}

	slog.Info("Prediction completed",
		"req_id", req.ReqID,
		"source", source,
		"deployment", req.Deployment,
		"predicted_users", result.PredictedUsers,
		"confidence", result.Confidence,
		"path", string(estimate.Path),
		"duration_ms", latency.Milliseconds())

	s.publish(req, source, result)
	return result, nil
}

// PredictBatch runs Predict for each request in order, one at a time.
func (s *PredictionService) PredictBatch(ctx context.Context, reqs []models.PredictionRequest, source string) (*models.BatchResponse, error) {
	predictions := make([]*models.PredictionResult, 0, len(reqs))
	for i, req := range reqs {
		result, err := s.Predict(ctx, req, source)
		if err != nil {
			return nil, fmt.Errorf("prediction %d failed: %w", i, err)
		}
		predictions = append(predictions, result)
	}
	return &models.BatchResponse{Predictions: predictions, Count: len(predictions)}, nil
}

func (s *PredictionService) normalize(req models.PredictionRequest) models.PredictionRequest {
	if req.Deployment == "" {
		req.Deployment = s.defaultDeployment
	}
	if req.ReqID == "" {
		req.ReqID = ulid.Make().String()
	}
	return req
}

func (s *PredictionService) publish(req models.PredictionRequest, source string, result *models.PredictionResult) {
	if s.publisher == nil {
		return
	}
	event := &models.PredictionEvent{ReqID: req.ReqID, Source: source, Result: result}
	if err := s.publisher.PublishPrediction(event); err != nil {
		slog.Warn("Failed to publish prediction event", "req_id", req.ReqID, "error", err)
	}
}
