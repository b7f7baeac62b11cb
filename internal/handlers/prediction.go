package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/aigoflow/kubescale-predictor/internal/models"
	"github.com/aigoflow/kubescale-predictor/internal/services"
)

type PredictionHandler struct {
	predictor *services.PredictionService
	metrics   http.Handler
}

// NewPredictionHandler wires the HTTP surface. metricsHandler may be nil, in
// which case /metrics reports 503.
func NewPredictionHandler(predictor *services.PredictionService, metricsHandler http.Handler) *PredictionHandler {
	return &PredictionHandler{
		predictor: predictor,
		metrics:   metricsHandler,
	}
}

func (h *PredictionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Get("/predict", h.handlePredict)
	r.Post("/predict/batch", h.handleBatch)
	r.Get("/metrics", h.handleMetrics)
	r.Get("/health", h.handleHealth)
}

func (h *PredictionHandler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewServiceStatus(h.predictor.Availability()))
}

func (h *PredictionHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"ready":  h.predictor.Availability().Ready(),
	})
}

func (h *PredictionHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := models.PredictionRequest{
		ReqID:      ulid.Make().String(),
		URL:        query.Get("url"),
		Deployment: query.Get("deployment"),
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("X-Request-ID", req.ReqID)

	result, err := h.predictor.Predict(r.Context(), req, "http")
	if err != nil {
		slog.Error("Prediction endpoint error", "req_id", req.ReqID, "url", req.URL, "error", err)
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Prediction failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *PredictionHandler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		respondError(w, http.StatusBadRequest, "request body must be a JSON array of {url, deployment} objects")
		return
	}
	for i, req := range reqs {
		if err := req.Validate(); err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("entry %d: %v", i, err))
			return
		}
	}

	resp, err := h.predictor.PredictBatch(r.Context(), reqs, "http")
	if err != nil {
		slog.Error("Batch prediction error", "entries", len(reqs), "error", err)
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Prediction failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *PredictionHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		respondError(w, http.StatusServiceUnavailable, "Prometheus metrics not available")
		return
	}
	h.metrics.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
