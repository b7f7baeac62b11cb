package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aigoflow/kubescale-predictor/internal/config"
)

func TestBuildCollaborators(t *testing.T) {
	t.Run("nothing configured", func(t *testing.T) {
		c := BuildCollaborators(&config.Config{})
		assert.Nil(t, c.Searcher)
		assert.Nil(t, c.Completer)
		assert.Nil(t, c.Metrics)
		assert.Empty(t, c.Options())

		svc := NewPredictionService(c.Options()...)
		assert.False(t, svc.Availability().Ready())
	})

	t.Run("all configured", func(t *testing.T) {
		c := BuildCollaborators(&config.Config{
			TavilyAPIKey:   "tvly",
			GroqAPIKey:     "gsk",
			MetricsEnabled: true,
		})
		assert.NotNil(t, c.Searcher)
		assert.NotNil(t, c.Completer)
		assert.NotNil(t, c.Metrics)

		a := NewPredictionService(c.Options()...).Availability()
		assert.True(t, a.Ready())
		assert.True(t, a.Metrics)
	})

	t.Run("construction failure leaves collaborator unavailable", func(t *testing.T) {
		c := BuildCollaborators(&config.Config{
			TavilyAPIKey:  "tvly",
			TavilyBaseURL: "not-a-url",
			GroqAPIKey:    "gsk",
			GroqBaseURL:   "also bad",
		})
		assert.Nil(t, c.Searcher)
		assert.Nil(t, c.Completer)

		a := NewPredictionService(c.Options()...).Availability()
		assert.False(t, a.Search)
		assert.False(t, a.LLM)
	})
}
