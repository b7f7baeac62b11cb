package models

import (
	"errors"
	"strings"
	"time"
)

var ErrMissingURL = errors.New("url is required")

const (
	// DefaultDeployment labels predictions that do not name a deployment.
	DefaultDeployment = "kubescaleai"

	MinPredictedUsers = 1
	MaxPredictedUsers = 10000
)

// Confidence sentinels, in ascending order of trust. Consumers threshold on
// these exact values.
const (
	ConfidenceFallback   = 0.2
	ConfidenceUnparsable = 0.3
	ConfidenceInitial    = 0.5
	ConfidenceEstimated  = 0.85
)

// PredictionRequest asks for a user-count estimate for a single URL
type PredictionRequest struct {
	ReqID      string `json:"req_id,omitempty"`
	URL        string `json:"url"`
	Deployment string `json:"deployment,omitempty"`
}

// Validate rejects requests without a URL.
func (r PredictionRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return ErrMissingURL
	}
	return nil
}

// PredictionResult is returned to the caller and never stored
type PredictionResult struct {
	URL            string  `json:"url"`
	PredictedUsers int     `json:"predicted_users"`
	Confidence     float64 `json:"confidence"`
	Deployment     string  `json:"deployment"`
	Timestamp      float64 `json:"timestamp"`
	Reasoning      string  `json:"reasoning"`
}

// BatchResponse wraps the ordered results of a batch prediction
type BatchResponse struct {
	Predictions []*PredictionResult `json:"predictions"`
	Count       int                 `json:"count"`
}

// PredictionEvent is published on the event bus after every prediction
type PredictionEvent struct {
	ReqID  string            `json:"req_id"`
	Source string            `json:"source"`
	Result *PredictionResult `json:"result"`
}

// Target is a URL the refresher keeps predicting in the background
type Target struct {
	URL        string `json:"url" yaml:"url"`
	Deployment string `json:"deployment" yaml:"deployment"`
}

// Availability reports which collaborators were constructed at startup
type Availability struct {
	Search  bool `json:"tavily_enabled"`
	LLM     bool `json:"groq_enabled"`
	Metrics bool `json:"metrics_enabled"`
}

// Ready is true only when both the search and LLM collaborators exist.
func (a Availability) Ready() bool {
	return a.Search && a.LLM
}

// EpochSeconds converts t to fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

const (
	ServiceName    = "KubeScaleAI Predictor"
	ServiceVersion = "1.0.0"
)

// ServiceStatus is served on the root endpoint and the NATS health subject
type ServiceStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Availability
	Timestamp float64 `json:"timestamp,omitempty"`
}

// NewServiceStatus builds a healthy status report for the given availability.
func NewServiceStatus(a Availability) ServiceStatus {
	return ServiceStatus{
		Status:       "healthy",
		Service:      ServiceName,
		Version:      ServiceVersion,
		Availability: a,
	}
}
