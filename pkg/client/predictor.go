package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

const (
	DefaultPredictSubject = "predictor.predict"
	DefaultEventSubject   = "predictor.events"
	HealthSubject         = "predictor.health"
)

// PredictorClient provides a client interface for the prediction service
type PredictorClient interface {
	Predict(ctx context.Context, url, deployment string) (*PredictionResult, error)
	CheckHealth(ctx context.Context) (*ServiceStatus, error)
	// Watch calls fn for every prediction event until ctx is done. An empty
	// deployment watches all deployments.
	Watch(ctx context.Context, deployment string, fn func(*PredictionEvent)) error
	Close() error
}

// Config configures a NATSPredictorClient
type Config struct {
	URL            string
	PredictSubject string
	EventSubject   string
	Timeout        time.Duration
}

// NATSPredictorClient implements PredictorClient using NATS request/reply
type NATSPredictorClient struct {
	conn           *nats.Conn
	predictSubject string
	eventSubject   string
	timeout        time.Duration
}

func NewNATSClient(cfg Config) (*NATSPredictorClient, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("predictctl"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if cfg.PredictSubject == "" {
		cfg.PredictSubject = DefaultPredictSubject
	}
	if cfg.EventSubject == "" {
		cfg.EventSubject = DefaultEventSubject
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &NATSPredictorClient{
		conn:           conn,
		predictSubject: cfg.PredictSubject,
		eventSubject:   cfg.EventSubject,
		timeout:        cfg.Timeout,
	}, nil
}

func (c *NATSPredictorClient) Predict(ctx context.Context, url, deployment string) (*PredictionResult, error) {
	request := PredictionRequest{
		ReqID:      ulid.Make().String(),
		URL:        url,
		Deployment: deployment,
	}
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	slog.Debug("Sending prediction request", "subject", c.predictSubject, "req_id", request.ReqID)

	msg, err := c.conn.RequestWithContext(ctx, c.predictSubject, requestBytes)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	return decodePredictReply(msg.Data)
}

func (c *NATSPredictorClient) CheckHealth(ctx context.Context) (*ServiceStatus, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	msg, err := c.conn.RequestWithContext(ctx, HealthSubject, nil)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	var status ServiceStatus
	if err := json.Unmarshal(msg.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &status, nil
}

func (c *NATSPredictorClient) Watch(ctx context.Context, deployment string, fn func(*PredictionEvent)) error {
	subject := watchSubject(c.eventSubject, deployment)

	msgs := make(chan *nats.Msg, 64)
	sub, err := c.conn.ChanSubscribe(subject, msgs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			var event PredictionEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				slog.Warn("Skipping malformed prediction event", "subject", msg.Subject, "error", err)
				continue
			}
			fn(&event)
		}
	}
}

func (c *NATSPredictorClient) Close() error {
	c.conn.Close()
	return nil
}

func (c *NATSPredictorClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// SubjectToken maps s onto a single NATS subject token. Separators, wildcards
// and whitespace become '_' and an empty string becomes "_". Predictors
// publish events on <prefix>.<SubjectToken(deployment)>.
func SubjectToken(s string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
	if token == "" {
		return "_"
	}
	return token
}

// watchSubject is the subscription for one deployment, or every deployment
// when deployment is empty.
func watchSubject(prefix, deployment string) string {
	if deployment == "" {
		return prefix + ".>"
	}
	return prefix + "." + SubjectToken(deployment)
}

// decodePredictReply turns a reply payload into a result, or an error when the
// service answered with {"error": ...}.
func decodePredictReply(data []byte) (*PredictionResult, error) {
	var reply predictReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if reply.Error != "" {
		return nil, errors.New(reply.Error)
	}
	result := reply.PredictionResult
	return &result, nil
}
