package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aigoflow/kubescale-predictor/internal/config"
	"github.com/aigoflow/kubescale-predictor/internal/models"
)

const (
	LoadHealthy  = "healthy"
	LoadWarning  = "warning"
	LoadCritical = "critical"
)

// LoadMonitor tracks the NATS worker pool and publishes load reports on
// <LoadSubject>.<instance>. A nil *LoadMonitor is a no-op.
type LoadMonitor struct {
	nats      *nats.Conn
	subject   string
	instance  string
	workers   int
	capacity  int
	threshold int64

	busyInterval time.Duration
	idleInterval time.Duration

	active    atomic.Int64
	processed atomic.Int64
}

type LoadReport struct {
	Instance         string  `json:"instance"`
	PendingMessages  int64   `json:"pending_messages"`
	ActiveProcessing int64   `json:"active_processing"`
	TotalProcessed   int64   `json:"total_processed"`
	WorkerCount      int     `json:"worker_count"`
	QueueCapacity    int     `json:"queue_capacity"`
	Status           string  `json:"status"`
	Timestamp        float64 `json:"timestamp"`
}

func NewLoadMonitor(natsConn *nats.Conn, cfg *config.Config, instance string) *LoadMonitor {
	threshold := int64(cfg.BackpressureThreshold)
	if threshold <= 0 {
		threshold = 1
	}
	return &LoadMonitor{
		nats:         natsConn,
		subject:      eventSubject(cfg.LoadSubject, instance),
		instance:     instance,
		workers:      cfg.Workers,
		capacity:     natsQueueCapacity,
		threshold:    threshold,
		busyInterval: time.Second,
		idleInterval: 10 * time.Second,
	}
}

func (m *LoadMonitor) begin() {
	if m == nil {
		return
	}
	m.active.Add(1)
}

func (m *LoadMonitor) done() {
	if m == nil {
		return
	}
	m.active.Add(-1)
	m.processed.Add(1)
}

// run reports every busyInterval while messages are queued and every
// idleInterval otherwise, until ctx is done.
func (m *LoadMonitor) run(ctx context.Context, pending func() int) {
	if m == nil {
		return
	}
	slog.Info("Load monitor started", "subject", m.subject, "threshold", m.threshold)

	interval := m.idleInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			report := m.snapshot(int64(pending()), time.Now())
			m.publish(report)

			next := m.idleInterval
			if report.PendingMessages > 0 {
				next = m.busyInterval
			}
			if next != interval {
				slog.Debug("Load monitor interval changed", "interval", next, "pending", report.PendingMessages)
				interval = next
			}
			timer.Reset(interval)
		}
	}
}

func (m *LoadMonitor) snapshot(pending int64, now time.Time) LoadReport {
	return LoadReport{
		Instance:         m.instance,
		PendingMessages:  pending,
		ActiveProcessing: m.active.Load(),
		TotalProcessed:   m.processed.Load(),
		WorkerCount:      m.workers,
		QueueCapacity:    m.capacity,
		Status:           loadStatus(pending, m.threshold),
		Timestamp:        models.EpochSeconds(now),
	}
}

func (m *LoadMonitor) publish(report LoadReport) {
	data, err := json.Marshal(report)
	if err != nil {
		slog.Error("Failed to marshal load report", "error", err)
		return
	}
	if err := m.nats.Publish(m.subject, data); err != nil {
		slog.Warn("Failed to publish load report", "error", err)
		return
	}
	if report.Status != LoadHealthy {
		slog.Info("Load report",
			"pending", report.PendingMessages,
			"active", report.ActiveProcessing,
			"status", report.Status)
	}
}

// loadStatus grades the backlog waiting for a free worker.
func loadStatus(pending, threshold int64) string {
	switch {
	case pending <= 0:
		return LoadHealthy
	case pending < threshold:
		return LoadWarning
	default:
		return LoadCritical
	}
}
