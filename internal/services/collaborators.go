package services

import (
	"log/slog"

	"github.com/aigoflow/kubescale-predictor/internal/config"
	"github.com/aigoflow/kubescale-predictor/internal/llm"
	"github.com/aigoflow/kubescale-predictor/internal/metrics"
	"github.com/aigoflow/kubescale-predictor/internal/search"
)

// Collaborators holds the external clients constructed once at startup.
// A nil field means that collaborator is unavailable until restart.
type Collaborators struct {
	Searcher  Searcher
	Completer Completer
	Metrics   *metrics.Registry
}

// BuildCollaborators constructs each collaborator independently. A missing
// credential or construction error leaves that collaborator nil and never
// fails startup.
func BuildCollaborators(cfg *config.Config) Collaborators {
	var c Collaborators

	if cfg.TavilyAPIKey != "" {
		client, err := search.NewTavilyClient(search.Config{
			APIKey:  cfg.TavilyAPIKey,
			BaseURL: cfg.TavilyBaseURL,
			Timeout: cfg.CollaboratorTimeout,
		})
		if err != nil {
			slog.Warn("Failed to initialize Tavily", "error", err)
		} else {
			c.Searcher = client
			slog.Info("Tavily client initialized")
		}
	} else {
		slog.Info("TAVILY_API_KEY not set, real-time search disabled")
	}

	if cfg.GroqAPIKey != "" {
		client, err := llm.NewGroqClient(llm.Config{
			APIKey:      cfg.GroqAPIKey,
			BaseURL:     cfg.GroqBaseURL,
			Model:       cfg.GroqModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.CollaboratorTimeout,
		})
		if err != nil {
			slog.Warn("Failed to initialize Groq", "error", err)
		} else {
			c.Completer = client
			slog.Info("Groq client initialized", "model", client.Model())
		}
	} else {
		slog.Info("GROQ_API_KEY not set, AI prediction disabled")
	}

	if cfg.MetricsEnabled {
		c.Metrics = metrics.NewRegistry()
	}

	return c
}

// Options converts the available collaborators into service options.
func (c Collaborators) Options() []Option {
	var opts []Option
	if c.Searcher != nil {
		opts = append(opts, WithSearcher(c.Searcher))
	}
	if c.Completer != nil {
		opts = append(opts, WithCompleter(c.Completer))
	}
	if c.Metrics != nil {
		opts = append(opts, WithMetrics(c.Metrics))
	}
	return opts
}
