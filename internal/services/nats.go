package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"

	"github.com/aigoflow/kubescale-predictor/internal/config"
	"github.com/aigoflow/kubescale-predictor/internal/models"
	"github.com/aigoflow/kubescale-predictor/pkg/client"
)

// ConnectNATS dials the configured server. Callers check cfg.NatsURL first.
func ConnectNATS(cfg *config.Config) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name("kubescale-predictor"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// EventPublisher implementation backed by a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) PublishPrediction(event *models.PredictionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.conn.Publish(eventSubject(p.prefix, event.Result.Deployment), data)
}

// eventSubject appends the deployment as a single subject token, matching
// what client.Watch subscribes to.
func eventSubject(prefix, deployment string) string {
	return prefix + "." + client.SubjectToken(deployment)
}

// natsQueueCapacity bounds the messages buffered ahead of the worker pool.
const natsQueueCapacity = 64

type natsErrorReply struct {
	ReqID string `json:"req_id,omitempty"`
	Error string `json:"error"`
}

// NATSService answers prediction requests arriving on the predict subject.
type NATSService struct {
	conn      *nats.Conn
	predictor *PredictionService
	cfg       *config.Config
	monitor   *LoadMonitor
}

// NewNATSService wires the worker pool. monitor may be nil.
func NewNATSService(conn *nats.Conn, cfg *config.Config, predictor *PredictionService, monitor *LoadMonitor) *NATSService {
	return &NATSService{
		conn:      conn,
		predictor: predictor,
		cfg:       cfg,
		monitor:   monitor,
	}
}

func (s *NATSService) Start(ctx context.Context) error {
	msgs := make(chan *nats.Msg, natsQueueCapacity)
	sub, err := s.conn.ChanQueueSubscribe(s.cfg.PredictSubject, s.cfg.QueueGroup, msgs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.cfg.PredictSubject, err)
	}

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	slog.Info("NATS service starting",
		"subject", s.cfg.PredictSubject,
		"queue_group", s.cfg.QueueGroup,
		"workers", workers)

	for i := 0; i < workers; i++ {
		go s.worker(ctx, msgs, "worker-"+ulid.Make().String())
	}
	go s.monitor.run(ctx, func() int { return len(msgs) })

	<-ctx.Done()
	slog.Info("NATS service shutting down")

	if err := sub.Unsubscribe(); err != nil {
		slog.Warn("Failed to unsubscribe", "subject", s.cfg.PredictSubject, "error", err)
	}
	return nil
}

func (s *NATSService) worker(ctx context.Context, msgs <-chan *nats.Msg, workerID string) {
	slog.Debug("NATS worker starting", "worker_id", workerID)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("NATS worker shutting down", "worker_id", workerID)
			return
		case msg := <-msgs:
			s.processMessage(ctx, msg, workerID)
		}
	}
}

func (s *NATSService) processMessage(ctx context.Context, msg *nats.Msg, workerID string) {
	start := time.Now()
	s.monitor.begin()
	reply := s.handleRequest(ctx, msg.Data)
	s.monitor.done()

	if msg.Reply == "" {
		slog.Debug("Prediction request without reply subject", "worker_id", workerID, "subject", msg.Subject)
		return
	}
	if err := msg.Respond(reply); err != nil {
		slog.Error("Failed to publish response",
			"worker_id", workerID,
			"reply_subject", msg.Reply,
			"error", err)
		return
	}

	slog.Debug("NATS prediction answered",
		"worker_id", workerID,
		"duration_ms", time.Since(start).Milliseconds())
}

// handleRequest decodes a PredictionRequest and returns the encoded reply.
func (s *NATSService) handleRequest(ctx context.Context, data []byte) []byte {
	var req models.PredictionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Error("Failed to parse prediction request", "error", err, "data", string(data))
		return encodeReply(natsErrorReply{Error: fmt.Sprintf("invalid request: %v", err)})
	}
	if err := req.Validate(); err != nil {
		return encodeReply(natsErrorReply{ReqID: req.ReqID, Error: err.Error()})
	}

	result, err := s.predictor.Predict(ctx, req, "nats")
	if err != nil {
		return encodeReply(natsErrorReply{ReqID: req.ReqID, Error: fmt.Sprintf("Prediction failed: %v", err)})
	}
	return encodeReply(result)
}

func encodeReply(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"error":"failed to encode reply"}`)
	}
	return data
}
