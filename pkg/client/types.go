package client

// PredictionRequest asks the predictor for a single URL estimate
type PredictionRequest struct {
	ReqID      string `json:"req_id"`
	URL        string `json:"url"`
	Deployment string `json:"deployment,omitempty"`
}

// PredictionResult mirrors the service's prediction payload
type PredictionResult struct {
	URL            string  `json:"url"`
	PredictedUsers int     `json:"predicted_users"`
	Confidence     float64 `json:"confidence"`
	Deployment     string  `json:"deployment"`
	Timestamp      float64 `json:"timestamp"`
	Reasoning      string  `json:"reasoning"`
}

// PredictionEvent is published after every prediction the service makes
type PredictionEvent struct {
	ReqID  string            `json:"req_id"`
	Source string            `json:"source"`
	Result *PredictionResult `json:"result"`
}

// ServiceStatus is the predictor's health report
type ServiceStatus struct {
	Status         string  `json:"status"`
	Service        string  `json:"service"`
	Version        string  `json:"version"`
	TavilyEnabled  bool    `json:"tavily_enabled"`
	GroqEnabled    bool    `json:"groq_enabled"`
	MetricsEnabled bool    `json:"metrics_enabled"`
	Timestamp      float64 `json:"timestamp"`
}

type predictReply struct {
	PredictionResult
	ReqID string `json:"req_id,omitempty"`
	Error string `json:"error,omitempty"`
}
