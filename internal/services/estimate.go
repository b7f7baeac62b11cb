package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aigoflow/kubescale-predictor/internal/models"
	"github.com/aigoflow/kubescale-predictor/internal/search"
)

const (
	searchQueryPrefix = "current visitors traffic "
	excerptLimit      = 200

	noContextPlaceholder = "No real-time data available"
	unavailableNote      = "AI prediction unavailable. Using default estimate."

	fallbackUsers   = 50
	unparsableUsers = 100
)

// SearchOutcome is what the enrichment step produced.
type SearchOutcome struct {
	Found   bool
	Excerpt string
	Err     error
}

// CompletionOutcome is what the estimation step produced.
type CompletionOutcome struct {
	Text string
	Err  error
}

// EstimatePath names the branch of the fallback ladder that produced an Estimate.
type EstimatePath string

const (
	PathUnavailable EstimatePath = "unavailable"
	PathCallFailed  EstimatePath = "call_failed"
	PathUnparsable  EstimatePath = "unparsable"
	PathEstimated   EstimatePath = "estimated"
)

type Estimate struct {
	Users      int
	Confidence float64
	Note       string
	Path       EstimatePath
}

func searchQuery(url string) string {
	return searchQueryPrefix + url
}

// searchOutcome keeps only the first result's content.
func searchOutcome(resp *search.Response, err error) SearchOutcome {
	if err != nil {
		return SearchOutcome{Err: err}
	}
	if resp == nil || len(resp.Results) == 0 {
		return SearchOutcome{}
	}
	return SearchOutcome{Found: true, Excerpt: truncateRunes(resp.Results[0].Content, excerptLimit)}
}

// enrichmentNote is the reasoning fragment contributed by the search step.
func enrichmentNote(o SearchOutcome) string {
	if o.Err != nil {
		return fmt.Sprintf("Real-time search unavailable: %v. ", o.Err)
	}
	if !o.Found {
		return ""
	}
	return fmt.Sprintf("Real-time data: %s. ", o.Excerpt)
}

func buildPrompt(url, reasoning string) string {
	info := reasoning
	if info == "" {
		info = noContextPlaceholder
	}
	return fmt.Sprintf(`Based on the following traffic information for %s:
%s

Predict the next hour's concurrent user count. Respond with ONLY a number (integer) representing estimated users.
Consider growth trends, time of day, and typical patterns. Return a realistic estimate between 1 and 10000.`, url, info)
}

// resolveEstimate maps the estimation step onto the confidence ladder.
func resolveEstimate(llmAvailable bool, o CompletionOutcome) Estimate {
	if !llmAvailable {
		return Estimate{Users: fallbackUsers, Confidence: models.ConfidenceFallback, Note: unavailableNote, Path: PathUnavailable}
	}
	if o.Err != nil {
		return Estimate{
			Users:      fallbackUsers,
			Confidence: models.ConfidenceFallback,
			Note:       fmt.Sprintf("Prediction failed: %v", o.Err),
			Path:       PathCallFailed,
		}
	}
	n, ok := ParseEstimate(o.Text)
	if !ok {
		return Estimate{Users: unparsableUsers, Confidence: models.ConfidenceUnparsable, Path: PathUnparsable}
	}
	return Estimate{Users: ClampUsers(n), Confidence: models.ConfidenceEstimated, Path: PathEstimated}
}

// ParseEstimate reads the first whitespace-delimited token of a model reply,
// drops every non-digit and parses what is left. "9999 users" gives 9999,
// "-5" gives 5, "many" fails. A digit run too long for an int parses as
// math.MaxInt so it clamps to the ceiling.
func ParseEstimate(text string) (int, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, fields[0])
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return math.MaxInt, true
	}
	return n, true
}

// ClampUsers bounds n to [MinPredictedUsers, MaxPredictedUsers]. Zero clamps to 1.
func ClampUsers(n int) int {
	return max(models.MinPredictedUsers, min(models.MaxPredictedUsers, n))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
