// Package metrics exposes per-deployment prediction gauges in the Prometheus
// text format for autoscalers to scrape.
package metrics

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const (
	PredictedUsersName    = "predicted_users_total"
	PredictionLatencyName = "prediction_latency_seconds"

	predictedUsersHelp    = "Predicted total users for deployment"
	predictionLatencyHelp = "Latency of prediction request"

	textContentType = "text/plain; version=0.0.4; charset=utf-8"
)

type gaugeFamily struct {
	name string
	help string
}

var predictionFamilies = []gaugeFamily{
	{PredictedUsersName, predictedUsersHelp},
	{PredictionLatencyName, predictionLatencyHelp},
}

// Registry owns the prediction gauges on a private prometheus registry so
// tests and multiple servers never collide on the global one. Go runtime and
// process collectors are registered alongside them.
type Registry struct {
	registry          *prometheus.Registry
	predictedUsers    *prometheus.GaugeVec
	predictionLatency *prometheus.GaugeVec
}

func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		predictedUsers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: PredictedUsersName,
			Help: predictedUsersHelp,
		}, []string{"deployment"}),
		predictionLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: PredictionLatencyName,
			Help: predictionLatencyHelp,
		}, []string{"deployment"}),
	}
	r.registry.MustRegister(
		r.predictedUsers,
		r.predictionLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObservePrediction records the latest estimate and request latency for a deployment.
func (r *Registry) ObservePrediction(deployment string, users int, latency time.Duration) {
	r.predictedUsers.WithLabelValues(deployment).Set(float64(users))
	r.predictionLatency.WithLabelValues(deployment).Set(latency.Seconds())
}

// Handler renders the registry in the text exposition format. A gauge with
// no deployments observed yet is still announced with its HELP and TYPE lines.
func (r *Registry) Handler() http.Handler {
	exposition := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		families, err := r.registry.Gather()
		if err != nil {
			exposition.ServeHTTP(w, req)
			return
		}
		missing := missingFamilies(families)
		if len(missing) == 0 {
			exposition.ServeHTTP(w, req)
			return
		}

		var buf bytes.Buffer
		for _, f := range missing {
			fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s gauge\n", f.name, f.help, f.name)
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
				slog.Error("Failed to encode metric family", "family", mf.GetName(), "error", err)
				http.Error(w, "failed to encode metrics", http.StatusInternalServerError)
				return
			}
		}

		w.Header().Set("Content-Type", textContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	})
}

// Gatherer exposes the underlying registry for inspection.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func missingFamilies(families []*dto.MetricFamily) []gaugeFamily {
	present := make(map[string]bool, len(families))
	for _, mf := range families {
		present[mf.GetName()] = true
	}
	var missing []gaugeFamily
	for _, f := range predictionFamilies {
		if !present[f.name] {
			missing = append(missing, f)
		}
	}
	return missing
}
