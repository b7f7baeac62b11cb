package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aigoflow/kubescale-predictor/internal/models"
)

const (
	healthSubject    = "predictor.health"
	heartbeatSubject = "predictor.heartbeat"
)

// HealthService answers health probes over NATS and publishes periodic
// heartbeats so fleet monitors can see which collaborators each replica has.
type HealthService struct {
	nats         *nats.Conn
	availability models.Availability
	interval     time.Duration
	now          func() time.Time
}

func NewHealthService(natsConn *nats.Conn, availability models.Availability) *HealthService {
	return &HealthService{
		nats:         natsConn,
		availability: availability,
		interval:     30 * time.Second,
		now:          time.Now,
	}
}

func (h *HealthService) Start(ctx context.Context) error {
	sub, err := h.nats.Subscribe(healthSubject, func(msg *nats.Msg) {
		data, err := h.payload()
		if err != nil {
			slog.Error("Failed to marshal health status", "error", err)
			return
		}
		if err := msg.Respond(data); err != nil {
			slog.Error("Failed to respond to health check", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to health subject: %w", err)
	}

	slog.Info("Health service started", "subject", healthSubject, "heartbeat", heartbeatSubject)

	h.publishHeartbeats(ctx)
	return sub.Unsubscribe()
}

func (h *HealthService) publishHeartbeats(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := h.payload()
			if err != nil {
				continue
			}
			if err := h.nats.Publish(heartbeatSubject, data); err != nil {
				slog.Warn("Failed to publish heartbeat", "error", err)
			}
		}
	}
}

func (h *HealthService) status() models.ServiceStatus {
	status := models.NewServiceStatus(h.availability)
	status.Timestamp = models.EpochSeconds(h.now())
	return status
}

// payload is the body of both health replies and heartbeats.
func (h *HealthService) payload() ([]byte, error) {
	return json.Marshal(h.status())
}
