package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservePrediction(t *testing.T) {
	r := NewRegistry()
	r.ObservePrediction("web", 420, 1500*time.Millisecond)

	assert.Equal(t, 420.0, testutil.ToFloat64(r.predictedUsers.WithLabelValues("web")))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.predictionLatency.WithLabelValues("web")))

	r.ObservePrediction("web", 10, time.Second)
	assert.Equal(t, 10.0, testutil.ToFloat64(r.predictedUsers.WithLabelValues("web")))
}

func TestObservePrediction_ConcurrentDeployments(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for _, d := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(deployment string) {
			defer wg.Done()
			for i := 1; i <= 100; i++ {
				r.ObservePrediction(deployment, i, time.Millisecond)
			}
		}(d)
	}
	wg.Wait()

	count, err := testutil.GatherAndCount(r.Gatherer(), PredictedUsersName, PredictionLatencyName)
	require.NoError(t, err)
	assert.Equal(t, 8, count)
	assert.Equal(t, 100.0, testutil.ToFloat64(r.predictedUsers.WithLabelValues("c")))
}

func TestHandler_Exposition(t *testing.T) {
	r := NewRegistry()
	r.ObservePrediction("kubescaleai", 50, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "# TYPE predicted_users_total gauge")
	assert.Contains(t, text, `predicted_users_total{deployment="kubescaleai"} 50`)
	assert.Contains(t, text, "# TYPE prediction_latency_seconds gauge")
	assert.True(t, strings.Contains(rec.Header().Get("Content-Type"), "text/plain"))
}

func TestHandler_FreshRegistryAnnouncesGauges(t *testing.T) {
	r := NewRegistry()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, textContentType, rec.Header().Get("Content-Type"))

	text := rec.Body.String()
	assert.Contains(t, text, "# HELP predicted_users_total Predicted total users for deployment\n")
	assert.Contains(t, text, "# TYPE predicted_users_total gauge\n")
	assert.Contains(t, text, "# HELP prediction_latency_seconds Latency of prediction request\n")
	assert.Contains(t, text, "# TYPE prediction_latency_seconds gauge\n")
	assert.NotContains(t, text, "predicted_users_total{")
	assert.Contains(t, text, "go_goroutines")
}

func TestHandler_PartialFamiliesStillAnnounced(t *testing.T) {
	r := NewRegistry()
	r.predictedUsers.WithLabelValues("web").Set(7)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	text := rec.Body.String()
	assert.Contains(t, text, `predicted_users_total{deployment="web"} 7`)
	assert.Contains(t, text, "# TYPE prediction_latency_seconds gauge\n")
	assert.Equal(t, 1, strings.Count(text, "# TYPE predicted_users_total gauge"))
}

func TestMissingFamilies(t *testing.T) {
	r := NewRegistry()

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	assert.Len(t, missingFamilies(families), 2)

	r.ObservePrediction("web", 1, time.Millisecond)
	families, err = r.Gatherer().Gather()
	require.NoError(t, err)
	assert.Empty(t, missingFamilies(families))
}

func TestNewRegistry_RuntimeCollectors(t *testing.T) {
	count, err := testutil.GatherAndCount(NewRegistry().Gatherer(), "go_goroutines")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
