package services

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aigoflow/kubescale-predictor/internal/models"
	"github.com/aigoflow/kubescale-predictor/internal/search"
)

func TestParseEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
		ok   bool
	}{
		{"number with unit", "9999 users", 9999, true},
		{"bare number", "42", 42, true},
		{"surrounding whitespace", "  \n 1200\n", 1200, true},
		{"thousands separator", "1,234 users", 1234, true},
		{"trailing punctuation", "350.", 350, true},
		{"negative sign stripped", "-5", 5, true},
		{"zero", "0", 0, true},
		{"only first token counts", "about 500", 0, false},
		{"no digits", "many", 0, false},
		{"empty", "", 0, false},
		{"whitespace only", " \t ", 0, false},
		{"overflow", "99999999999999999999999", math.MaxInt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseEstimate(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClampUsers(t *testing.T) {
	assert.Equal(t, 1, ClampUsers(0))
	assert.Equal(t, 1, ClampUsers(-20))
	assert.Equal(t, 500, ClampUsers(500))
	assert.Equal(t, 10000, ClampUsers(15000))
	assert.Equal(t, 10000, ClampUsers(math.MaxInt))
}

func TestResolveEstimate(t *testing.T) {
	tests := []struct {
		name       string
		available  bool
		outcome    CompletionOutcome
		users      int
		confidence float64
		note       string
		path       EstimatePath
	}{
		{"no llm", false, CompletionOutcome{}, 50, 0.2, "AI prediction unavailable. Using default estimate.", PathUnavailable},
		{"call failed", true, CompletionOutcome{Err: errors.New("401 unauthorized")}, 50, 0.2, "Prediction failed: 401 unauthorized", PathCallFailed},
		{"unparsable", true, CompletionOutcome{Text: "many"}, 100, 0.3, "", PathUnparsable},
		{"estimated", true, CompletionOutcome{Text: "9999 users"}, 9999, 0.85, "", PathEstimated},
		{"clamped high", true, CompletionOutcome{Text: "15000"}, 10000, 0.85, "", PathEstimated},
		{"clamped zero", true, CompletionOutcome{Text: "0"}, 1, 0.85, "", PathEstimated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveEstimate(tt.available, tt.outcome)
			assert.Equal(t, tt.users, got.Users)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, tt.note, got.Note)
			assert.Equal(t, tt.path, got.Path)
			assert.NotEqual(t, models.ConfidenceInitial, got.Confidence)
		})
	}
}

func TestSearchOutcomeAndNote(t *testing.T) {
	t.Run("first result only", func(t *testing.T) {
		o := searchOutcome(&search.Response{Results: []search.Result{
			{Content: "3k visitors"},
			{Content: "ignored"},
		}}, nil)
		assert.Equal(t, "Real-time data: 3k visitors. ", enrichmentNote(o))
	})

	t.Run("excerpt truncated to 200 characters", func(t *testing.T) {
		long := strings.Repeat("é", 250)
		o := searchOutcome(&search.Response{Results: []search.Result{{Content: long}}}, nil)
		assert.Equal(t, 200, len([]rune(o.Excerpt)))
	})

	t.Run("empty content still counts as found", func(t *testing.T) {
		o := searchOutcome(&search.Response{Results: []search.Result{{}}}, nil)
		assert.Equal(t, "Real-time data: . ", enrichmentNote(o))
	})

	t.Run("no results", func(t *testing.T) {
		assert.Empty(t, enrichmentNote(searchOutcome(&search.Response{}, nil)))
		assert.Empty(t, enrichmentNote(searchOutcome(nil, nil)))
	})

	t.Run("error", func(t *testing.T) {
		o := searchOutcome(nil, errors.New("timeout"))
		assert.Equal(t, "Real-time search unavailable: timeout. ", enrichmentNote(o))
	})
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt("https://example.com", "")
	assert.Contains(t, p, "https://example.com")
	assert.Contains(t, p, "No real-time data available")
	assert.Contains(t, p, "between 1 and 10000")

	p = buildPrompt("https://example.com", "Real-time data: busy. ")
	assert.Contains(t, p, "Real-time data: busy.")
	assert.NotContains(t, p, "No real-time data available")
}
