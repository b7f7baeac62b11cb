package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/aigoflow/kubescale-predictor/internal/models"
)

// Predictor is the part of PredictionService the refresher depends on.
type Predictor interface {
	Predict(ctx context.Context, req models.PredictionRequest, source string) (*models.PredictionResult, error)
}

// Refresher re-predicts a fixed set of targets on an interval so the gauges
// stay current between external calls to /predict.
type Refresher struct {
	predictor Predictor
	targets   []models.Target
	interval  time.Duration
}

func NewRefresher(predictor Predictor, targets []models.Target, interval time.Duration) *Refresher {
	return &Refresher{
		predictor: predictor,
		targets:   targets,
		interval:  interval,
	}
}

// Start refreshes every target immediately and then once per interval until
// ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) error {
	if len(r.targets) == 0 || r.interval <= 0 {
		slog.Info("Refresher disabled", "targets", len(r.targets), "interval", r.interval)
		return nil
	}

	slog.Info("Refresher started", "targets", len(r.targets), "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.refreshAll(ctx)

		select {
		case <-ctx.Done():
			slog.Info("Refresher shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// refreshAll predicts each target in order and returns how many succeeded.
func (r *Refresher) refreshAll(ctx context.Context) int {
	refreshed := 0
	for _, target := range r.targets {
		if ctx.Err() != nil {
			return refreshed
		}
		result, err := r.predictor.Predict(ctx, models.PredictionRequest{
			URL:        target.URL,
			Deployment: target.Deployment,
		}, "refresh")
		if err != nil {
			slog.Error("Refresh prediction failed", "url", target.URL, "deployment", target.Deployment, "error", err)
			continue
		}
		slog.Debug("Refreshed target",
			"url", target.URL,
			"deployment", result.Deployment,
			"predicted_users", result.PredictedUsers)
		refreshed++
	}
	return refreshed
}
